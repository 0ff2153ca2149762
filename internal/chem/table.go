package chem

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sort"
)

// ElementRecord holds the reference coefficient rows for one element.
// Energies are in keV, ascending; coefficients are mass coefficients in
// cm^2/g as tabulated by NIST.
type ElementRecord struct {
	Energies   []float64 `json:"energies"`
	MassAtten  []float64 `json:"mass_attenuation"`
	MassAbsorb []float64 `json:"mass_absorption"`
}

// Table interpolates mass attenuation and mass energy-absorption
// coefficients for arbitrary compounds from per-element reference rows.
type Table struct {
	elements map[string]ElementRecord
}

// NewTable builds a Table from per-element records keyed by symbol.
func NewTable(elements map[string]ElementRecord) (*Table, error) {
	for sym, rec := range elements {
		if _, ok := atomicWeights[sym]; !ok {
			return nil, fmt.Errorf("unknown element %q in attenuation table", sym)
		}
		if len(rec.Energies) < 2 {
			return nil, fmt.Errorf("element %q: need at least 2 table rows, got %d", sym, len(rec.Energies))
		}
		if len(rec.MassAtten) != len(rec.Energies) || len(rec.MassAbsorb) != len(rec.Energies) {
			return nil, fmt.Errorf("element %q: column lengths disagree", sym)
		}
		if !sort.Float64sAreSorted(rec.Energies) {
			return nil, fmt.Errorf("element %q: table energies are not sorted", sym)
		}
		for i, e := range rec.Energies {
			if e <= 0 || rec.MassAtten[i] <= 0 || rec.MassAbsorb[i] <= 0 {
				return nil, fmt.Errorf("element %q: table values must be positive for log-log interpolation", sym)
			}
		}
	}
	return &Table{elements: elements}, nil
}

// LoadTable reads a JSON attenuation table keyed by element symbol.
func LoadTable(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read attenuation table: %w", err)
	}
	var elements map[string]ElementRecord
	if err := json.Unmarshal(data, &elements); err != nil {
		return nil, fmt.Errorf("parse attenuation table: %w", err)
	}
	return NewTable(elements)
}

// Elements returns the symbols covered by the table.
func (t *Table) Elements() []string {
	syms := make([]string, 0, len(t.elements))
	for sym := range t.elements {
		syms = append(syms, sym)
	}
	sort.Strings(syms)
	return syms
}

// MassAttenuation returns the compound mass attenuation coefficient mu/rho
// in cm^2/g at each query energy, combining elements by mass fraction.
func (t *Table) MassAttenuation(formula string, energies []float64) ([]float64, error) {
	return t.interpolate(formula, energies, func(rec ElementRecord) []float64 { return rec.MassAtten })
}

// MassAbsorption returns the compound mass energy-absorption coefficient
// mu_en/rho in cm^2/g at each query energy.
func (t *Table) MassAbsorption(formula string, energies []float64) ([]float64, error) {
	return t.interpolate(formula, energies, func(rec ElementRecord) []float64 { return rec.MassAbsorb })
}

// LinearAttenuation returns the linear attenuation coefficient in 1/mm for
// a compound of the given density in g/cm^3.
func (t *Table) LinearAttenuation(density float64, formula string, energies []float64) ([]float64, error) {
	mu, err := t.MassAttenuation(formula, energies)
	if err != nil {
		return nil, err
	}
	// cm^2/g * g/cm^3 = 1/cm; divide by 10 for 1/mm.
	for i := range mu {
		mu[i] *= density / 10
	}
	return mu, nil
}

// LinearAbsorption returns the linear energy-absorption coefficient in 1/mm
// for a compound of the given density in g/cm^3.
func (t *Table) LinearAbsorption(density float64, formula string, energies []float64) ([]float64, error) {
	mu, err := t.MassAbsorption(formula, energies)
	if err != nil {
		return nil, err
	}
	for i := range mu {
		mu[i] *= density / 10
	}
	return mu, nil
}

func (t *Table) interpolate(formula string, energies []float64, column func(ElementRecord) []float64) ([]float64, error) {
	comp, err := ParseFormula(formula)
	if err != nil {
		return nil, err
	}

	// Summing in fixed symbol order keeps compound coefficients
	// bit-identical across calls; map iteration order does not.
	fractions := comp.MassFractions()
	syms := make([]string, 0, len(fractions))
	for elem := range fractions {
		syms = append(syms, elem)
	}
	sort.Strings(syms)

	total := make([]float64, len(energies))
	for _, elem := range syms {
		rec, ok := t.elements[elem]
		if !ok {
			return nil, fmt.Errorf("element %q not covered by attenuation table", elem)
		}
		col := column(rec)
		for i, e := range energies {
			total[i] += fractions[elem] * logLogInterp(rec.Energies, col, e)
		}
	}
	return total, nil
}

// logLogInterp interpolates y(x) linearly in log-log space. Queries outside
// the tabulated range return zero, matching the reference table behavior.
func logLogInterp(xs, ys []float64, x float64) float64 {
	if x < xs[0] || x > xs[len(xs)-1] {
		return 0
	}
	i := sort.SearchFloat64s(xs, x)
	if i < len(xs) && xs[i] == x {
		return ys[i]
	}
	// xs[i-1] < x < xs[i]
	lx0, lx1 := math.Log(xs[i-1]), math.Log(xs[i])
	ly0, ly1 := math.Log(ys[i-1]), math.Log(ys[i])
	r := (math.Log(x) - lx0) / (lx1 - lx0)
	return math.Exp(ly0 + r*(ly1-ly0))
}
