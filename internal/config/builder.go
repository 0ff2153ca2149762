package config

import (
	"fmt"

	"github.com/xraylab/speccal/internal/chem"
	"github.com/xraylab/speccal/internal/spectral"
)

// BuildModel assembles the composite forward model described by the config
// from already loaded reference tables. The energy grid comes from the
// config; the source table must be sampled on the same grid.
func BuildModel(cfg *Config, table *chem.Table, st *SourceTable) (*spectral.Composite, error) {
	energies := cfg.Energies.Grid()
	if len(st.Spectra[0]) != len(energies) {
		return nil, fmt.Errorf("source table has %d energy bins, config grid has %d", len(st.Spectra[0]), len(energies))
	}

	sources := make([]*spectral.Source, len(cfg.Sources))
	for i, sc := range cfg.Sources {
		src, err := spectral.NewSource(st.Voltages, st.Spectra,
			spectral.Bound{Lower: sc.Bound.Lower, Upper: sc.Bound.Upper}, sc.Voltage, sc.Optimize)
		if err != nil {
			return nil, fmt.Errorf("source %d: %w", i, err)
		}
		if t := sc.Takeoff; t != nil {
			err := src.SetTakeoffAngle(table, t.Angle,
				spectral.Bound{Lower: t.Bound.Lower, Upper: t.Bound.Upper}, t.ReferenceAngle, t.Optimize)
			if err != nil {
				return nil, fmt.Errorf("source %d: %w", i, err)
			}
		}
		sources[i] = src
	}

	filters := make([]*spectral.Filter, len(cfg.Filters))
	for i, fc := range cfg.Filters {
		mats, err := materials(fc.Materials)
		if err != nil {
			return nil, fmt.Errorf("filter %d: %w", i, err)
		}
		f, err := spectral.NewFilter(table, mats,
			spectral.Bound{Lower: fc.Bound.Lower, Upper: fc.Bound.Upper}, fc.Thickness, fc.Optimize)
		if err != nil {
			return nil, fmt.Errorf("filter %d: %w", i, err)
		}
		filters[i] = f
	}

	scintillators := make([]*spectral.Scintillator, len(cfg.Scintillators))
	for i, sc := range cfg.Scintillators {
		mats, err := materials(sc.Materials)
		if err != nil {
			return nil, fmt.Errorf("scintillator %d: %w", i, err)
		}
		s, err := spectral.NewScintillator(table, mats,
			spectral.Bound{Lower: sc.Bound.Lower, Upper: sc.Bound.Upper}, sc.Thickness, sc.Optimize)
		if err != nil {
			return nil, fmt.Errorf("scintillator %d: %w", i, err)
		}
		scintillators[i] = s
	}

	return spectral.NewComposite(energies, sources, filters, scintillators)
}

// Combination converts the configured index tuple.
func (c CombinationConfig) Combination() spectral.Combination {
	return spectral.Combination{Source: c.Source, Filters: c.Filters, Scintillator: c.Scintillator}
}

// materials converts configured candidates, filling in tabulated element
// densities where the config leaves the density at zero.
func materials(configs []MaterialConfig) ([]spectral.Material, error) {
	mats := make([]spectral.Material, len(configs))
	for i, mc := range configs {
		density := mc.Density
		if density == 0 {
			d, ok := chem.ElementDensity(mc.Formula)
			if !ok {
				return nil, fmt.Errorf("material %s: no tabulated density, set one explicitly", mc.Formula)
			}
			density = d
		}
		if density < 0 {
			return nil, fmt.Errorf("material %s: negative density %g", mc.Formula, density)
		}
		mats[i] = spectral.Material{Formula: mc.Formula, Density: density}
	}
	return mats, nil
}
