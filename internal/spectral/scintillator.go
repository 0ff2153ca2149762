package spectral

import (
	"fmt"
	"math"
)

// Scintillator models the detector conversion screen: 1-exp(-mu(E)*t), the
// fraction of incident photons absorbed and converted. Like [Filter] it may
// carry several candidate materials until the enumerator resolves one.
type Scintillator struct {
	Candidates []Material

	provider  AttenuationProvider
	material  *Material
	thickness *Param
}

// NewScintillator creates a scintillator with one or more candidate
// materials.
func NewScintillator(provider AttenuationProvider, candidates []Material, bound Bound, thickness float64, optimize bool) (*Scintillator, error) {
	if len(candidates) == 0 {
		return nil, fmt.Errorf("scintillator: no candidate materials")
	}
	p, err := NewParam("scintillator_thickness", thickness, bound, optimize)
	if err != nil {
		return nil, fmt.Errorf("scintillator: %w", err)
	}
	s := &Scintillator{Candidates: candidates, provider: provider, thickness: p}
	if len(candidates) == 1 {
		s.material = &candidates[0]
	}
	return s, nil
}

// Resolve returns an independent copy bound to the given material.
func (s *Scintillator) Resolve(m Material) *Scintillator {
	c := s.Clone()
	c.material = &m
	return c
}

// Material returns the resolved material, or false while the discrete choice
// is still open.
func (s *Scintillator) Material() (Material, bool) {
	if s.material == nil {
		return Material{}, false
	}
	return *s.material, true
}

// Thickness returns the clamped screen thickness in mm.
func (s *Scintillator) Thickness() float64 { return s.thickness.Value() }

// PhysicalValue returns the screen thickness.
func (s *Scintillator) PhysicalValue() float64 { return s.Thickness() }

// Params returns the thickness parameter.
func (s *Scintillator) Params() []*Param { return []*Param{s.thickness} }

// Forward returns 1-exp(-mu(E)*t) for the resolved material, using the
// energy-absorption coefficient.
func (s *Scintillator) Forward(energies []float64) ([]float64, error) {
	if s.material == nil {
		return nil, fmt.Errorf("scintillator: material not resolved")
	}
	mu, err := s.provider.LinearAbsorption(s.material.Density, s.material.Formula, energies)
	if err != nil {
		return nil, fmt.Errorf("scintillator %s: %w", s.material.Formula, err)
	}
	t := s.Thickness()
	resp := make([]float64, len(energies))
	for i := range resp {
		resp[i] = 1 - math.Exp(-mu[i]*t)
	}
	return resp, nil
}

// Clone returns an independent copy.
func (s *Scintillator) Clone() *Scintillator {
	c := &Scintillator{
		Candidates: s.Candidates,
		provider:   s.provider,
		thickness:  s.thickness.clone(),
	}
	if s.material != nil {
		m := *s.material
		c.material = &m
	}
	return c
}
