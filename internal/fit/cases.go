package fit

import (
	"github.com/xraylab/speccal/internal/spectral"
)

// Case is one fully material-resolved configuration of the combinatorial
// search: exactly one candidate material chosen per filter and scintillator
// slot. Thickness stays continuous within the case.
type Case struct {
	ID                    int
	FilterMaterials       []spectral.Material
	ScintillatorMaterials []spectral.Material
}

// CaseCount returns the product of per-slot candidate counts.
func CaseCount(filters []*spectral.Filter, scintillators []*spectral.Scintillator) int {
	n := 1
	for _, f := range filters {
		n *= len(f.Candidates)
	}
	for _, s := range scintillators {
		n *= len(s.Candidates)
	}
	return n
}

// EnumerateCases expands the candidate materials of every filter and
// scintillator slot into the full cartesian product of cases. Cases are
// independent; the fit loop evaluates each in isolation.
func EnumerateCases(filters []*spectral.Filter, scintillators []*spectral.Scintillator) []Case {
	radix := make([]int, 0, len(filters)+len(scintillators))
	for _, f := range filters {
		radix = append(radix, len(f.Candidates))
	}
	for _, s := range scintillators {
		radix = append(radix, len(s.Candidates))
	}

	cases := make([]Case, 0, CaseCount(filters, scintillators))
	choice := make([]int, len(radix))
	for {
		c := Case{
			ID:                    len(cases),
			FilterMaterials:       make([]spectral.Material, len(filters)),
			ScintillatorMaterials: make([]spectral.Material, len(scintillators)),
		}
		for i, f := range filters {
			c.FilterMaterials[i] = f.Candidates[choice[i]]
		}
		for i, s := range scintillators {
			c.ScintillatorMaterials[i] = s.Candidates[choice[len(filters)+i]]
		}
		cases = append(cases, c)

		// Mixed-radix increment, last slot fastest.
		pos := len(choice) - 1
		for pos >= 0 {
			choice[pos]++
			if choice[pos] < radix[pos] {
				break
			}
			choice[pos] = 0
			pos--
		}
		if pos < 0 {
			return cases
		}
	}
}

// resolve deep-copies the shared model and binds each slot to this case's
// material choice.
func (c Case) resolve(model *spectral.Composite) *spectral.Composite {
	resolved := model.Clone()
	for i, m := range c.FilterMaterials {
		resolved.Filters[i] = resolved.Filters[i].Resolve(m)
	}
	for i, m := range c.ScintillatorMaterials {
		resolved.Scintillators[i] = resolved.Scintillators[i].Resolve(m)
	}
	return resolved
}
