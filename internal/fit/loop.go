package fit

import (
	"math"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/optimize"

	"github.com/xraylab/speccal/internal/spectral"
)

// Status is the terminal state of one case's fit loop.
type Status string

const (
	// StatusConverged: every clamped physical parameter moved less than the
	// stop threshold in the last step.
	StatusConverged Status = "converged"
	// StatusMaxIterations: the iteration budget ran out first. Not an
	// error; the best-found state is still reported.
	StatusMaxIterations Status = "max_iterations"
	// StatusDiverged: a non-finite cost or gradient appeared. The case ends
	// early and scores its last finite cost.
	StatusDiverged Status = "diverged"
)

// Result is the outcome of one case's fit loop.
type Result struct {
	Case       Case
	Status     Status
	Iterations int
	Cost       float64
	Model      *spectral.Composite
	Err        error
}

type loopConfig struct {
	LearningRate  float64
	MaxIterations int
	StopThreshold float64
	Optimizer     OptimizerType
	Loss          LossType
	Logger        *zap.Logger
	OnIteration   func(iteration int, cost float64)
}

const logEvery = 50

// caseEvaluator exposes the composite cost over all datasets as a pure-ish
// function of the normalized parameter vector, tracking the last finite
// cost and any non-finite evaluation for divergence containment.
type caseEvaluator struct {
	model    *spectral.Composite
	datasets []Dataset
	loss     LossType
	params   []*spectral.Param

	lastFinite float64
	diverged   bool
	evalErr    error
}

func newCaseEvaluator(model *spectral.Composite, datasets []Dataset, loss LossType) *caseEvaluator {
	return &caseEvaluator{
		model:      model,
		datasets:   datasets,
		loss:       loss,
		params:     model.Params(),
		lastFinite: math.Inf(1),
	}
}

func (e *caseEvaluator) setNorms(x []float64) {
	for i, p := range e.params {
		p.SetNorm(x[i])
	}
}

func (e *caseEvaluator) norms() []float64 {
	x := make([]float64, len(e.params))
	for i, p := range e.params {
		x[i] = p.Norm()
	}
	return x
}

// physicalValues returns the clamped physical value of every optimizable
// parameter; the convergence check compares these, not the raw norms.
func (e *caseEvaluator) physicalValues() []float64 {
	v := make([]float64, len(e.params))
	for i, p := range e.params {
		v[i] = p.Value()
	}
	return v
}

func (e *caseEvaluator) cost(x []float64) float64 {
	e.setNorms(x)
	var total float64
	for _, ds := range e.datasets {
		pred, err := e.model.PredictTransmission(ds.Forward, ds.Combination)
		if err != nil {
			e.evalErr = err
			return math.NaN()
		}
		total += lossValue(e.loss, pred, ds.Transmission, ds.Weights)
	}
	if math.IsNaN(total) || math.IsInf(total, 0) {
		e.diverged = true
	} else {
		e.lastFinite = total
	}
	return total
}

// gradient fills dst with central-difference gradients of the cost. The
// perturbed parameter state is restored afterwards.
func (e *caseEvaluator) gradient(dst, x []float64) {
	fd.Gradient(dst, e.cost, x, &fd.Settings{Formula: fd.Central})
	e.setNorms(x)
	for _, g := range dst {
		if math.IsNaN(g) || math.IsInf(g, 0) {
			e.diverged = true
			return
		}
	}
}

// runCase fits one material-resolved case to completion.
func runCase(c Case, shared *spectral.Composite, datasets []Dataset, cfg loopConfig) Result {
	model := c.resolve(shared)
	eval := newCaseEvaluator(model, datasets, cfg.Loss)

	if len(eval.params) == 0 {
		// Fully fixed configuration; score it in one evaluation.
		cost := eval.cost(nil)
		if eval.evalErr != nil {
			return Result{Case: c, Status: StatusDiverged, Cost: math.Inf(1), Model: model, Err: eval.evalErr}
		}
		return Result{Case: c, Status: StatusConverged, Iterations: 0, Cost: cost, Model: model}
	}

	switch cfg.Optimizer {
	case OptimizerLBFGS:
		return runLBFGS(c, eval, cfg)
	default:
		return runAdam(c, eval, cfg)
	}
}

func runAdam(c Case, eval *caseEvaluator, cfg loopConfig) Result {
	x := eval.norms()
	grad := make([]float64, len(x))
	opt := newAdam(cfg.LearningRate, len(x))
	prev := eval.physicalValues()

	for iter := 1; iter <= cfg.MaxIterations; iter++ {
		cost := eval.cost(x)
		if eval.evalErr != nil {
			return Result{Case: c, Status: StatusDiverged, Iterations: iter, Cost: eval.lastFinite, Model: eval.model, Err: eval.evalErr}
		}
		if eval.diverged {
			cfg.Logger.Warn("non-finite cost, abandoning case", zap.Int("iteration", iter))
			return Result{Case: c, Status: StatusDiverged, Iterations: iter, Cost: eval.lastFinite, Model: eval.model}
		}

		eval.gradient(grad, x)
		if eval.diverged {
			cfg.Logger.Warn("non-finite gradient, abandoning case", zap.Int("iteration", iter))
			return Result{Case: c, Status: StatusDiverged, Iterations: iter, Cost: eval.lastFinite, Model: eval.model}
		}

		if cfg.OnIteration != nil {
			cfg.OnIteration(iter, cost)
		}
		if iter%logEvery == 0 {
			cfg.Logger.Debug("iteration", zap.Int("iteration", iter), zap.Float64("cost", cost))
		}

		opt.update(x, grad)
		eval.setNorms(x)

		phys := eval.physicalValues()
		if maxAbsDelta(phys, prev) < cfg.StopThreshold {
			final := eval.cost(x)
			cfg.Logger.Info("converged", zap.Int("iteration", iter), zap.Float64("cost", final))
			return Result{Case: c, Status: StatusConverged, Iterations: iter, Cost: final, Model: eval.model}
		}
		copy(prev, phys)
	}

	final := eval.cost(x)
	cfg.Logger.Info("iteration budget exhausted", zap.Float64("cost", final))
	return Result{Case: c, Status: StatusMaxIterations, Iterations: cfg.MaxIterations, Cost: final, Model: eval.model}
}

func runLBFGS(c Case, eval *caseEvaluator, cfg loopConfig) Result {
	problem := optimize.Problem{
		Func: eval.cost,
		Grad: eval.gradient,
	}
	settings := &optimize.Settings{
		MajorIterations: cfg.MaxIterations,
		Converger:       &stepConverge{eval: eval, threshold: cfg.StopThreshold, onIteration: cfg.OnIteration},
	}

	res, err := optimize.Minimize(problem, eval.norms(), settings, &optimize.LBFGS{})

	iterations := 0
	if res != nil {
		eval.setNorms(res.X)
		iterations = res.Stats.MajorIterations
	}

	switch {
	case eval.evalErr != nil:
		return Result{Case: c, Status: StatusDiverged, Iterations: iterations, Cost: eval.lastFinite, Model: eval.model, Err: eval.evalErr}
	case eval.diverged:
		cfg.Logger.Warn("non-finite cost or gradient, abandoning case", zap.Int("iteration", iterations))
		return Result{Case: c, Status: StatusDiverged, Iterations: iterations, Cost: eval.lastFinite, Model: eval.model}
	case err == nil && res.Status != optimize.IterationLimit:
		cfg.Logger.Info("converged", zap.Int("iteration", iterations), zap.Float64("cost", res.F))
		return Result{Case: c, Status: StatusConverged, Iterations: iterations, Cost: res.F, Model: eval.model}
	default:
		cfg.Logger.Info("iteration budget exhausted", zap.Float64("cost", eval.lastFinite))
		return Result{Case: c, Status: StatusMaxIterations, Iterations: iterations, Cost: eval.lastFinite, Model: eval.model}
	}
}

// stepConverge stops the quasi-Newton driver once every clamped physical
// value moved less than the threshold between major iterations.
type stepConverge struct {
	eval        *caseEvaluator
	threshold   float64
	onIteration func(int, float64)
	prev        []float64
	iteration   int
}

func (s *stepConverge) Init(dim int) {
	s.prev = nil
	s.iteration = 0
}

func (s *stepConverge) Converged(loc *optimize.Location) optimize.Status {
	s.iteration++
	s.eval.setNorms(loc.X)
	phys := s.eval.physicalValues()
	if s.onIteration != nil {
		s.onIteration(s.iteration, loc.F)
	}
	if s.prev == nil {
		s.prev = phys
		return optimize.NotTerminated
	}
	if maxAbsDelta(phys, s.prev) < s.threshold {
		return optimize.StepConvergence
	}
	s.prev = phys
	return optimize.NotTerminated
}

func maxAbsDelta(a, b []float64) float64 {
	var max float64
	for i := range a {
		if d := math.Abs(a[i] - b[i]); d > max {
			max = d
		}
	}
	return max
}
