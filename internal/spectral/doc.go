// Package spectral models the energy response of an X-ray imaging chain.
//
// The chain is a product of component responses over an energy grid:
//
//   - [Source]: reference spectra interpolated at the tube voltage, with an
//     optional takeoff-angle self-absorption correction ([PhilibertFactor])
//   - [Filter]: exp(-mu(E)*t) beam hardening through a material slab
//   - [Scintillator]: 1-exp(-mu(E)*t) absorbed-energy conversion efficiency
//
// Each scalar physical parameter (voltage, thickness) is held as a [Param]:
// a normalized value in [0,1] over its [Bound]. The externally read value is
// always clamped back into the bound, so optimizer steps can never produce
// an unphysical configuration.
//
// [Composite] multiplies component responses selected by a [Combination],
// normalizes the result to unit area, and integrates it against a
// per-dataset forward matrix to predict transmission.
package spectral
