package spectral

import (
	"fmt"
	"math"
)

// Material identifies a physical material by chemical formula and density in
// g/cm^3. Immutable value.
type Material struct {
	Formula string
	Density float64
}

func (m Material) String() string {
	return fmt.Sprintf("%s (%.3g g/cm3)", m.Formula, m.Density)
}

// Bound is the physically valid domain of one scalar parameter.
type Bound struct {
	Lower float64
	Upper float64
}

// NewBound validates lower < upper.
func NewBound(lower, upper float64) (Bound, error) {
	if !(lower < upper) {
		return Bound{}, fmt.Errorf("invalid bound: lower %g must be below upper %g", lower, upper)
	}
	return Bound{Lower: lower, Upper: upper}, nil
}

// Width returns upper-lower.
func (b Bound) Width() float64 { return b.Upper - b.Lower }

// Normalize maps a physical value to its normalized coordinate.
func (b Bound) Normalize(v float64) float64 { return (v - b.Lower) / b.Width() }

// Denormalize maps a normalized coordinate back to a physical value,
// clamping into the bound first.
func (b Bound) Denormalize(n float64) float64 {
	return math.Min(math.Max(n, 0), 1)*b.Width() + b.Lower
}

// Param is one scalar physical parameter stored in normalized form. When
// optimizable, the normalized coordinate is the mutable optimization
// variable and may temporarily leave [0,1]; Value always reads the clamped
// physical value.
type Param struct {
	name     string
	bound    Bound
	norm     float64
	optimize bool
}

// NewParam creates a parameter at the given physical value.
func NewParam(name string, value float64, bound Bound, optimize bool) (*Param, error) {
	if bound.Width() <= 0 {
		return nil, fmt.Errorf("parameter %s: invalid bound [%g, %g]", name, bound.Lower, bound.Upper)
	}
	if value < bound.Lower || value > bound.Upper {
		return nil, fmt.Errorf("parameter %s: initial value %g outside bound [%g, %g]",
			name, value, bound.Lower, bound.Upper)
	}
	return &Param{name: name, bound: bound, norm: bound.Normalize(value), optimize: optimize}, nil
}

// Name identifies the parameter in logs and results.
func (p *Param) Name() string { return p.name }

// Bound returns the declared physical domain.
func (p *Param) Bound() Bound { return p.bound }

// Value returns the clamped physical value.
func (p *Param) Value() float64 { return p.bound.Denormalize(p.norm) }

// Norm returns the raw normalized coordinate, unclamped.
func (p *Param) Norm() float64 { return p.norm }

// SetNorm overwrites the raw normalized coordinate.
func (p *Param) SetNorm(n float64) { p.norm = n }

// Optimizable reports whether the fit loop may move this parameter.
func (p *Param) Optimizable() bool { return p.optimize }

func (p *Param) clone() *Param {
	c := *p
	return &c
}
