package spectral

import (
	"sort"
)

// InterpolateSpectrum estimates the source spectrum at voltage v from
// reference spectra tabulated at sorted voltages. Each reference spectrum is
// zero above its own voltage.
//
// Between two references the lower spectrum f0 is extended with negative
// values over (v0, v1) so that a convex blend with f1 reproduces the growth
// of spectral bandwidth with voltage: in the extension region
// f0mod(E) = -r/(1-r) * f1(E) with r = (E-v0)/(v1-v0). The blend
// rr*f1 + (1-rr)*f0mod with rr = (v-v0)/(v1-v0) is then floored at zero.
//
// Queries outside the table return the nearest reference floored at zero;
// there is no extrapolation.
func InterpolateSpectrum(energies, voltages []float64, spectra [][]float64, v float64) []float64 {
	idx := sort.SearchFloat64s(voltages, v)

	if idx == 0 {
		return clampNonNegative(spectra[0])
	}
	if idx >= len(voltages) {
		return clampNonNegative(spectra[len(spectra)-1])
	}

	v0, f0 := voltages[idx-1], spectra[idx-1]
	v1, f1 := voltages[idx], spectra[idx]
	if v == v1 {
		return clampNonNegative(f1)
	}

	rr := (v - v0) / (v1 - v0)
	out := make([]float64, len(energies))
	for j, e := range energies {
		fj := f0[j]
		if e > v0 && e < v1 {
			r := (e - v0) / (v1 - v0)
			fj = -r / (1 - r) * f1[j]
		}
		val := rr*f1[j] + (1-rr)*fj
		if val > 0 {
			out[j] = val
		}
	}
	return out
}

func clampNonNegative(spec []float64) []float64 {
	out := make([]float64, len(spec))
	for i, s := range spec {
		if s > 0 {
			out[i] = s
		}
	}
	return out
}
