package fit

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/xraylab/speccal/internal/spectral"
)

// LossType names how predicted and measured transmission are compared.
type LossType string

const (
	// LossSquared is plain squared error: 0.5*mean((p-y)^2).
	LossSquared LossType = "mse"
	// LossWeighted down-weights noisy measurements: 0.5*mean(w*(p-y)^2)
	// with default weight 1/y.
	LossWeighted LossType = "wmse"
	// LossAttenuation compares in negative-log space, matching a
	// multiplicative noise model: 0.5*mean((log y - log p)^2).
	LossAttenuation LossType = "attmse"
)

// OptimizerType names the per-case stepping strategy.
type OptimizerType string

const (
	// OptimizerAdam is first-order adaptive stepping; robust far from the
	// optimum.
	OptimizerAdam OptimizerType = "adam"
	// OptimizerLBFGS is quasi-Newton stepping with line search; faster near
	// a good initial guess.
	OptimizerLBFGS OptimizerType = "lbfgs"
)

// Dataset pairs one measured transmission array with its forward matrix and
// the combination of shared component instances that produced it. Weights
// may be nil; Estimate fills in the default 1/y.
type Dataset struct {
	Transmission []float64
	Weights      []float64
	Forward      *mat.Dense
	Combination  spectral.Combination
}

func checkLoss(lt LossType) error {
	switch lt {
	case LossSquared, LossWeighted, LossAttenuation:
		return nil
	}
	return fmt.Errorf("%w: %q", ErrUnknownLoss, lt)
}

func checkOptimizer(ot OptimizerType) error {
	switch ot {
	case OptimizerAdam, OptimizerLBFGS:
		return nil
	}
	return fmt.Errorf("%w: %q", ErrUnknownOptimizer, ot)
}

// lossValue computes the configured loss between predicted and measured
// transmission. The loss type has been validated before any case runs.
func lossValue(lt LossType, pred, meas, weight []float64) float64 {
	n := float64(len(meas))
	var sum float64
	switch lt {
	case LossSquared:
		for i := range meas {
			d := pred[i] - meas[i]
			sum += d * d
		}
	case LossWeighted:
		for i := range meas {
			d := pred[i] - meas[i]
			sum += weight[i] * d * d
		}
	case LossAttenuation:
		for i := range meas {
			d := math.Log(meas[i]) - math.Log(pred[i])
			sum += d * d
		}
	}
	return 0.5 * sum / n
}
