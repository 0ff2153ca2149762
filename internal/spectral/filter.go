package spectral

import (
	"fmt"
	"math"
)

// Filter models a beam-hardening slab: exp(-mu(E)*t). Until a material is
// resolved, Candidates holds the discrete material choice left to the case
// enumerator; once resolved the filter is bound to exactly one material.
type Filter struct {
	Candidates []Material

	provider  AttenuationProvider
	material  *Material
	thickness *Param
}

// NewFilter creates a filter with one or more candidate materials. A
// singleton candidate list is treated as a fixed material choice.
func NewFilter(provider AttenuationProvider, candidates []Material, bound Bound, thickness float64, optimize bool) (*Filter, error) {
	if len(candidates) == 0 {
		return nil, fmt.Errorf("filter: no candidate materials")
	}
	p, err := NewParam("filter_thickness", thickness, bound, optimize)
	if err != nil {
		return nil, fmt.Errorf("filter: %w", err)
	}
	f := &Filter{Candidates: candidates, provider: provider, thickness: p}
	if len(candidates) == 1 {
		f.material = &candidates[0]
	}
	return f, nil
}

// Resolve returns an independent copy bound to the given material.
func (f *Filter) Resolve(m Material) *Filter {
	c := f.Clone()
	c.material = &m
	return c
}

// Material returns the resolved material, or false while the discrete choice
// is still open.
func (f *Filter) Material() (Material, bool) {
	if f.material == nil {
		return Material{}, false
	}
	return *f.material, true
}

// Thickness returns the clamped slab thickness in mm.
func (f *Filter) Thickness() float64 { return f.thickness.Value() }

// PhysicalValue returns the slab thickness.
func (f *Filter) PhysicalValue() float64 { return f.Thickness() }

// Params returns the thickness parameter.
func (f *Filter) Params() []*Param { return []*Param{f.thickness} }

// Forward returns exp(-mu(E)*t) for the resolved material.
func (f *Filter) Forward(energies []float64) ([]float64, error) {
	if f.material == nil {
		return nil, fmt.Errorf("filter: material not resolved")
	}
	mu, err := f.provider.LinearAttenuation(f.material.Density, f.material.Formula, energies)
	if err != nil {
		return nil, fmt.Errorf("filter %s: %w", f.material.Formula, err)
	}
	t := f.Thickness()
	resp := make([]float64, len(energies))
	for i := range resp {
		resp[i] = math.Exp(-mu[i] * t)
	}
	return resp, nil
}

// Clone returns an independent copy.
func (f *Filter) Clone() *Filter {
	c := &Filter{
		Candidates: f.Candidates,
		provider:   f.provider,
		thickness:  f.thickness.clone(),
	}
	if f.material != nil {
		m := *f.material
		c.material = &m
	}
	return c
}
