package chem

import (
	"fmt"
	"regexp"
)

// Composition maps element symbols to atom counts. Counts may be fractional
// for non-stoichiometric mixtures.
type Composition map[string]float64

var formulaToken = regexp.MustCompile(`([A-Z][a-z]?)([0-9]*\.?[0-9]*)`)

// ParseFormula interprets a chemical formula string such as "CsI", "H2O" or
// "Gd3Al2Ga3O12" as a composition map. Every element must exist in the
// periodic table data.
func ParseFormula(formula string) (Composition, error) {
	if formula == "" {
		return nil, fmt.Errorf("empty chemical formula")
	}

	comp := make(Composition)
	consumed := 0
	for _, m := range formulaToken.FindAllStringSubmatch(formula, -1) {
		if m[0] == "" {
			continue
		}
		elem := m[1]
		if _, ok := atomicWeights[elem]; !ok {
			return nil, fmt.Errorf("unknown element %q in formula %q", elem, formula)
		}
		count := 1.0
		if m[2] != "" {
			if _, err := fmt.Sscanf(m[2], "%g", &count); err != nil {
				return nil, fmt.Errorf("bad count %q for element %q in formula %q", m[2], elem, formula)
			}
		}
		comp[elem] += count
		consumed += len(m[0])
	}

	if consumed != len(formula) {
		return nil, fmt.Errorf("cannot parse formula %q", formula)
	}
	return comp, nil
}

// MolecularMass returns the molar mass in g/mol of the given composition.
func (c Composition) MolecularMass() float64 {
	var m float64
	for elem, n := range c {
		m += n * atomicWeights[elem]
	}
	return m
}

// MassFractions returns the mass fraction of each element in the
// composition.
func (c Composition) MassFractions() map[string]float64 {
	total := c.MolecularMass()
	fractions := make(map[string]float64, len(c))
	for elem, n := range c {
		fractions[elem] = n * atomicWeights[elem] / total
	}
	return fractions
}
