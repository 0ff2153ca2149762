package spectral

import (
	"fmt"

	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/mat"
)

// Combination selects which component instances feed the forward model for
// one dataset. Several datasets may reference the same instances, jointly
// constraining the shared hardware.
type Combination struct {
	Source       int   `json:"source" yaml:"source"`
	Filters      []int `json:"filters" yaml:"filters"`
	Scintillator int   `json:"scintillator" yaml:"scintillator"`
}

// Composite is the total spectrally distributed energy response: shared
// component instances plus the energy grid they are evaluated on.
type Composite struct {
	Energies      []float64
	Sources       []*Source
	Filters       []*Filter
	Scintillators []*Scintillator
}

// NewComposite validates the energy grid and wraps the shared component
// lists.
func NewComposite(energies []float64, sources []*Source, filters []*Filter, scintillators []*Scintillator) (*Composite, error) {
	if len(energies) < 2 {
		return nil, fmt.Errorf("composite: need at least 2 energy bins, got %d", len(energies))
	}
	for i := 1; i < len(energies); i++ {
		if energies[i] <= energies[i-1] {
			return nil, fmt.Errorf("composite: energy grid not strictly increasing at bin %d", i)
		}
	}
	if len(sources) == 0 || len(filters) == 0 || len(scintillators) == 0 {
		return nil, fmt.Errorf("composite: sources, filters and scintillators must all be non-empty")
	}
	return &Composite{Energies: energies, Sources: sources, Filters: filters, Scintillators: scintillators}, nil
}

// CheckCombination verifies all indices reference valid component slots.
func (c *Composite) CheckCombination(mc Combination) error {
	if mc.Source < 0 || mc.Source >= len(c.Sources) {
		return fmt.Errorf("combination: source index %d out of range [0, %d)", mc.Source, len(c.Sources))
	}
	if len(mc.Filters) == 0 {
		return fmt.Errorf("combination: empty filter chain")
	}
	for _, fi := range mc.Filters {
		if fi < 0 || fi >= len(c.Filters) {
			return fmt.Errorf("combination: filter index %d out of range [0, %d)", fi, len(c.Filters))
		}
	}
	if mc.Scintillator < 0 || mc.Scintillator >= len(c.Scintillators) {
		return fmt.Errorf("combination: scintillator index %d out of range [0, %d)", mc.Scintillator, len(c.Scintillators))
	}
	return nil
}

// EffectiveSpectrum multiplies the responses selected by mc and normalizes
// the product to unit area over the energy grid. The normalization decouples
// spectral shape from overall scale, which would otherwise be degenerate
// with unknown exposure and gain.
func (c *Composite) EffectiveSpectrum(mc Combination) ([]float64, error) {
	if err := c.CheckCombination(mc); err != nil {
		return nil, err
	}

	total, err := c.Sources[mc.Source].Forward(c.Energies)
	if err != nil {
		return nil, err
	}
	for _, fi := range mc.Filters {
		resp, err := c.Filters[fi].Forward(c.Energies)
		if err != nil {
			return nil, err
		}
		for i := range total {
			total[i] *= resp[i]
		}
	}
	scint, err := c.Scintillators[mc.Scintillator].Forward(c.Energies)
	if err != nil {
		return nil, err
	}
	for i := range total {
		total[i] *= scint[i]
	}

	area := integrate.Trapezoidal(c.Energies, total)
	if area == 0 {
		return nil, fmt.Errorf("effective spectrum: total response is zero over the energy grid")
	}
	for i := range total {
		total[i] /= area
	}
	return total, nil
}

// PredictTransmission integrates the forward matrix against the effective
// spectrum: out_i = integral of F(i, E)*spectrum(E) dE by trapezoid rule.
// F has one row per measurement sample and one column per energy bin.
func (c *Composite) PredictTransmission(F *mat.Dense, mc Combination) ([]float64, error) {
	_, cols := F.Dims()
	if cols != len(c.Energies) {
		return nil, fmt.Errorf("forward matrix has %d energy columns, grid has %d bins", cols, len(c.Energies))
	}

	spec, err := c.EffectiveSpectrum(mc)
	if err != nil {
		return nil, err
	}

	w := trapezoidWeights(c.Energies)
	weighted := mat.NewVecDense(len(spec), nil)
	for i := range spec {
		weighted.SetVec(i, spec[i]*w[i])
	}

	rows, _ := F.Dims()
	out := mat.NewVecDense(rows, nil)
	out.MulVec(F, weighted)
	return out.RawVector().Data, nil
}

// Params returns the optimizable parameters of all components, sources
// first, then filters, then scintillators. Order is deterministic so the
// fit loop can map them to a flat vector.
func (c *Composite) Params() []*Param {
	var params []*Param
	appendOptimizable := func(ps []*Param) {
		for _, p := range ps {
			if p.Optimizable() {
				params = append(params, p)
			}
		}
	}
	for _, s := range c.Sources {
		appendOptimizable(s.Params())
	}
	for _, f := range c.Filters {
		appendOptimizable(f.Params())
	}
	for _, s := range c.Scintillators {
		appendOptimizable(s.Params())
	}
	return params
}

// Clone deep-copies all component instances. Cases use this to own
// independent optimization state.
func (c *Composite) Clone() *Composite {
	cp := &Composite{
		Energies:      c.Energies,
		Sources:       make([]*Source, len(c.Sources)),
		Filters:       make([]*Filter, len(c.Filters)),
		Scintillators: make([]*Scintillator, len(c.Scintillators)),
	}
	for i, s := range c.Sources {
		cp.Sources[i] = s.Clone()
	}
	for i, f := range c.Filters {
		cp.Filters[i] = f.Clone()
	}
	for i, s := range c.Scintillators {
		cp.Scintillators[i] = s.Clone()
	}
	return cp
}

// trapezoidWeights returns weights w such that sum(w*y) equals the
// trapezoidal integral of y over x.
func trapezoidWeights(x []float64) []float64 {
	n := len(x)
	w := make([]float64, n)
	for i := 0; i < n-1; i++ {
		d := (x[i+1] - x[i]) / 2
		w[i] += d
		w[i+1] += d
	}
	return w
}
