package fit

import (
	"fmt"
	"runtime"

	"go.uber.org/zap"

	"github.com/xraylab/speccal/internal/spectral"
)

// Options configures one calibration run. Zero values receive defaults.
type Options struct {
	LearningRate  float64       // default 0.02
	MaxIterations int           // default 5000
	StopThreshold float64       // default 1e-3, on clamped physical values
	Optimizer     OptimizerType // default OptimizerAdam
	Loss          LossType      // default LossWeighted
	Workers       int           // default runtime.NumCPU()
	Logger        *zap.Logger   // default no-op
	OnProgress    func(Progress)
}

func (o Options) withDefaults() Options {
	if o.LearningRate == 0 {
		o.LearningRate = 0.02
	}
	if o.MaxIterations == 0 {
		o.MaxIterations = 5000
	}
	if o.StopThreshold == 0 {
		o.StopThreshold = 1e-3
	}
	if o.Optimizer == "" {
		o.Optimizer = OptimizerAdam
	}
	if o.Loss == "" {
		o.Loss = LossWeighted
	}
	if o.Workers <= 0 {
		o.Workers = runtime.NumCPU()
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}

// RunResult aggregates all case outcomes plus the globally best one.
type RunResult struct {
	Best  Result
	Cases []Result
}

// Estimate calibrates the model against the given datasets: it validates
// the configuration, expands the discrete material choices into cases, fits
// every case on a worker pool and returns the minimum-cost outcome.
//
// Configuration errors (unknown optimizer or loss, inconsistent shapes)
// abort the run before any case is dispatched. Numerical divergence inside
// a case never does; it only ends that case.
func Estimate(model *spectral.Composite, datasets []Dataset, opts Options) (*RunResult, error) {
	opts = opts.withDefaults()

	if err := checkOptimizer(opts.Optimizer); err != nil {
		return nil, err
	}
	if err := checkLoss(opts.Loss); err != nil {
		return nil, err
	}
	if len(datasets) == 0 {
		return nil, ErrNoDatasets
	}

	prepared := make([]Dataset, len(datasets))
	for i, ds := range datasets {
		if err := model.CheckCombination(ds.Combination); err != nil {
			return nil, fmt.Errorf("dataset %d: %w", i, err)
		}
		rows, cols := ds.Forward.Dims()
		if rows != len(ds.Transmission) {
			return nil, fmt.Errorf("dataset %d: %d measurements but forward matrix has %d rows", i, len(ds.Transmission), rows)
		}
		if cols != len(model.Energies) {
			return nil, fmt.Errorf("dataset %d: forward matrix has %d energy columns, grid has %d bins", i, cols, len(model.Energies))
		}
		if ds.Weights != nil && len(ds.Weights) != len(ds.Transmission) {
			return nil, fmt.Errorf("dataset %d: %d weights for %d measurements", i, len(ds.Weights), len(ds.Transmission))
		}

		prepared[i] = ds
		if ds.Weights == nil {
			w := make([]float64, len(ds.Transmission))
			for j, y := range ds.Transmission {
				w[j] = 1 / y
			}
			prepared[i].Weights = w
		}
	}

	cases := EnumerateCases(model.Filters, model.Scintillators)
	opts.Logger.Info("dispatching cases",
		zap.Int("cases", len(cases)),
		zap.Int("workers", opts.Workers),
		zap.String("optimizer", string(opts.Optimizer)),
		zap.String("loss", string(opts.Loss)))

	cfg := loopConfig{
		LearningRate:  opts.LearningRate,
		MaxIterations: opts.MaxIterations,
		StopThreshold: opts.StopThreshold,
		Optimizer:     opts.Optimizer,
		Loss:          opts.Loss,
	}
	d := &dispatcher{workers: opts.Workers, logger: opts.Logger, onProgress: opts.OnProgress}
	results := d.run(model, prepared, cases, cfg)

	best, ok := selectBest(results)
	if !ok {
		return nil, fmt.Errorf("fit: no case produced a result")
	}

	opts.Logger.Info("best case",
		zap.Int("case", best.Case.ID),
		zap.String("status", string(best.Status)),
		zap.Float64("cost", best.Cost),
		zap.String("filters", materialNames(best.Case.FilterMaterials)),
		zap.String("scintillators", materialNames(best.Case.ScintillatorMaterials)))

	return &RunResult{Best: best, Cases: results}, nil
}
