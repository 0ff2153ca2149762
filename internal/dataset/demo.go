package dataset

import (
	"math"

	"github.com/xraylab/speccal/internal/chem"
	"github.com/xraylab/speccal/internal/config"
)

// Demo coefficients for a power-law mass attenuation model
// mu/rho = a*E^-b in cm^2/g. Rough fits to the photoelectric-dominated
// region below 100 keV, good enough for self-contained demos and tests.
// The energy-absorption column is 0.85*a*E^-babs with its own exponent per
// element, so candidate screens differ in spectral shape, not just scale.
var demoCoefficients = map[string]struct{ a, b, babs float64 }{
	"O":  {4.0e3, 2.9, 2.95},
	"Al": {1.1e4, 2.9, 2.88},
	"S":  {2.6e4, 2.9, 2.93},
	"Cu": {1.5e5, 2.8, 2.84},
	"I":  {6.5e5, 2.6, 2.62},
	"Cs": {7.0e5, 2.6, 2.64},
	"Gd": {1.1e6, 2.6, 2.95},
	"W":  {1.6e6, 2.5, 2.55},
}

// DemoElements tabulates the power-law coefficients on a geometric energy
// grid from 1 to 200 keV, one record per demo element.
func DemoElements() map[string]chem.ElementRecord {
	const rows = 40
	energies := make([]float64, rows)
	for i := range energies {
		energies[i] = 1.0 * math.Pow(200.0, float64(i)/float64(rows-1))
	}

	elements := make(map[string]chem.ElementRecord, len(demoCoefficients))
	for sym, c := range demoCoefficients {
		atten := make([]float64, rows)
		absorb := make([]float64, rows)
		for i, e := range energies {
			atten[i] = c.a * math.Pow(e, -c.b)
			absorb[i] = 0.85 * c.a * math.Pow(e, -c.babs)
		}
		es := make([]float64, rows)
		copy(es, energies)
		elements[sym] = chem.ElementRecord{Energies: es, MassAtten: atten, MassAbsorb: absorb}
	}
	return elements
}

// DemoTable builds the synthetic attenuation table for the demo materials.
func DemoTable() (*chem.Table, error) {
	return chem.NewTable(DemoElements())
}

// DemoSourceTable synthesizes Kramers-like bremsstrahlung spectra,
// phi(E) = E*(v-E) floored at zero, for tube voltages 30 to 160 kV on the
// given energy grid.
func DemoSourceTable(energies []float64) *config.SourceTable {
	var voltages []float64
	for v := 30.0; v <= 160.0; v += 10 {
		voltages = append(voltages, v)
	}

	spectra := make([][]float64, len(voltages))
	for i, v := range voltages {
		spec := make([]float64, len(energies))
		for j, e := range energies {
			if e < v {
				spec[j] = e * (v - e)
			}
		}
		spectra[i] = spec
	}
	return &config.SourceTable{Voltages: voltages, Spectra: spectra}
}
