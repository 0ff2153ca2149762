// Package fit estimates the unknown parameters of a spectral response chain
// from measured transmission data.
//
// The discrete axis (candidate filter and scintillator materials) is
// expanded by [EnumerateCases] into the cartesian product of cases. Each
// case owns deep-copied component models and runs an independent fit loop:
// cost over all datasets, central-difference gradients, one optimizer step
// ([OptimizerAdam] or [OptimizerLBFGS]), and a stop check on the clamped
// physical parameter values. Non-finite costs or gradients end only that
// case, which then reports its last finite cost.
//
// [Estimate] validates the configuration, dispatches all cases onto a fixed
// worker pool and returns the minimum-cost case; diverged cases are chosen
// only when every case diverged.
package fit
