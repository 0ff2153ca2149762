package fit

import "errors"

var (
	// ErrUnknownOptimizer reports an optimizer name outside
	// {adam, lbfgs}. Configuration mistake; aborts the whole run.
	ErrUnknownOptimizer = errors.New("fit: unsupported optimizer type")

	// ErrUnknownLoss reports a loss name outside {mse, wmse, attmse}.
	// Configuration mistake; aborts the whole run.
	ErrUnknownLoss = errors.New("fit: unsupported loss type")

	// ErrNoDatasets is returned when Estimate is called without data.
	ErrNoDatasets = errors.New("fit: no datasets provided")
)
