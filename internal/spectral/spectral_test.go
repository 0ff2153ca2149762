package spectral

import (
	"math"
	"testing"

	"github.com/xraylab/speccal/internal/chem"
	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/mat"
)

// testProvider builds an attenuation table with exact power laws so filter
// and scintillator responses are analytically checkable.
func testProvider(t *testing.T) *chem.Table {
	t.Helper()
	energies := []float64{1, 2, 5, 10, 20, 50, 100, 200}
	mk := func(a, b float64) ([]float64, []float64) {
		atten := make([]float64, len(energies))
		absorb := make([]float64, len(energies))
		for i, e := range energies {
			atten[i] = a * math.Pow(e, -b)
			absorb[i] = 0.85 * atten[i]
		}
		return atten, absorb
	}
	elements := make(map[string]chem.ElementRecord)
	for sym, c := range map[string]struct{ a, b float64 }{
		"Al": {1.1e4, 2.9},
		"Cu": {1.5e5, 2.8},
		"Cs": {7.0e5, 2.6},
		"I":  {6.5e5, 2.6},
		"W":  {1.6e6, 2.5},
	} {
		atten, absorb := mk(c.a, c.b)
		es := make([]float64, len(energies))
		copy(es, energies)
		elements[sym] = chem.ElementRecord{Energies: es, MassAtten: atten, MassAbsorb: absorb}
	}
	table, err := chem.NewTable(elements)
	if err != nil {
		t.Fatalf("table construction failed: %v", err)
	}
	return table
}

func grid(min, max, step float64) []float64 {
	var g []float64
	for e := min; e <= max+1e-9; e += step {
		g = append(g, e)
	}
	return g
}

func TestParam_ClampedValue(t *testing.T) {
	b := Bound{Lower: 0, Upper: 10}
	p, err := NewParam("thickness", 3, b, true)
	if err != nil {
		t.Fatalf("param creation failed: %v", err)
	}

	p.SetNorm(1.7)
	if got := p.Value(); got != 10 {
		t.Errorf("value above bound clamped to %g, want 10", got)
	}
	p.SetNorm(-0.4)
	if got := p.Value(); got != 0 {
		t.Errorf("value below bound clamped to %g, want 0", got)
	}
	if got := p.Norm(); got != -0.4 {
		t.Errorf("raw norm %g, want -0.4 (clamp must not write back)", got)
	}
}

func TestNewParam_RejectsOutOfBound(t *testing.T) {
	if _, err := NewParam("v", 200, Bound{Lower: 30, Upper: 160}, true); err == nil {
		t.Error("expected error for initial value outside bound")
	}
}

// referenceSpectra builds Kramers-like spectra phi(E) = E*(v-E), floored at
// zero, on the given grid.
func referenceSpectra(energies []float64, voltages []float64) [][]float64 {
	spectra := make([][]float64, len(voltages))
	for i, v := range voltages {
		s := make([]float64, len(energies))
		for j, e := range energies {
			if e < v {
				s[j] = e * (v - e)
			}
		}
		spectra[i] = s
	}
	return spectra
}

func TestInterpolateSpectrum_ExactAtReference(t *testing.T) {
	energies := grid(1.5, 99.5, 1)
	voltages := []float64{40, 60, 80, 100}
	spectra := referenceSpectra(energies, voltages)

	got := InterpolateSpectrum(energies, voltages, spectra, 80)
	for j := range got {
		if got[j] != spectra[2][j] {
			t.Fatalf("bin %d: interpolation at tabulated voltage returned %g, want %g", j, got[j], spectra[2][j])
		}
	}
}

func TestInterpolateSpectrum_ClampsOutsideTable(t *testing.T) {
	energies := grid(1.5, 99.5, 1)
	voltages := []float64{40, 60, 80}
	spectra := referenceSpectra(energies, voltages)

	low := InterpolateSpectrum(energies, voltages, spectra, 20)
	high := InterpolateSpectrum(energies, voltages, spectra, 150)
	for j := range energies {
		if low[j] != spectra[0][j] {
			t.Fatalf("below-table query differs from first reference at bin %d", j)
		}
		if high[j] != spectra[2][j] {
			t.Fatalf("above-table query differs from last reference at bin %d", j)
		}
	}
}

func TestInterpolateSpectrum_NonNegativeAndBandwidth(t *testing.T) {
	energies := grid(1.5, 99.5, 1)
	voltages := []float64{60, 80}
	spectra := referenceSpectra(energies, voltages)

	got := InterpolateSpectrum(energies, voltages, spectra, 70)
	for j, e := range energies {
		if got[j] < 0 {
			t.Fatalf("negative interpolated value %g at %g keV", got[j], e)
		}
		// Above the interpolated tube voltage no photons should survive.
		if e > 70.5 && got[j] != 0 {
			t.Errorf("nonzero spectrum %g above tube voltage at %g keV", got[j], e)
		}
	}
	// Below the lower reference voltage the blend should stay positive.
	mid := len(energies) / 3
	if got[mid] == 0 {
		t.Errorf("unexpected zero in the passband at %g keV", energies[mid])
	}
}

func TestPhilibertFactor_Monotonicity(t *testing.T) {
	provider := testProvider(t)
	energies := grid(10, 90, 10)

	shallow, err := PhilibertFactor(provider, 100, 5, energies)
	if err != nil {
		t.Fatalf("philibert failed: %v", err)
	}
	steep, err := PhilibertFactor(provider, 100, 45, energies)
	if err != nil {
		t.Fatalf("philibert failed: %v", err)
	}

	for i := range energies {
		if shallow[i] <= 0 || shallow[i] > 1 || steep[i] <= 0 || steep[i] > 1 {
			t.Fatalf("factor outside (0, 1] at bin %d: %g, %g", i, shallow[i], steep[i])
		}
		// Larger takeoff angle shortens the escape path.
		if steep[i] < shallow[i] {
			t.Errorf("bin %d: factor at 45 deg %g below factor at 5 deg %g", i, steep[i], shallow[i])
		}
	}
}

func TestPhilibertFactor_RejectsBadAngle(t *testing.T) {
	provider := testProvider(t)
	for _, angle := range []float64{0, -5, 90, 120} {
		if _, err := PhilibertFactor(provider, 100, angle, []float64{50}); err == nil {
			t.Errorf("expected error for takeoff angle %g", angle)
		}
	}
}

func TestTakeoffAngleRatio_IdentityAtReference(t *testing.T) {
	provider := testProvider(t)
	ratio, err := TakeoffAngleRatio(provider, 100, 20, 20, grid(10, 90, 10))
	if err != nil {
		t.Fatalf("ratio failed: %v", err)
	}
	for i, r := range ratio {
		if math.Abs(r-1) > 1e-12 {
			t.Errorf("bin %d: ratio %g at identical angles, want 1", i, r)
		}
	}
}

func TestFilter_Forward(t *testing.T) {
	provider := testProvider(t)
	energies := grid(10, 90, 10)

	f, err := NewFilter(provider, []Material{{Formula: "Al", Density: 2.7}}, Bound{Lower: 0, Upper: 10}, 2, true)
	if err != nil {
		t.Fatalf("filter creation failed: %v", err)
	}

	resp, err := f.Forward(energies)
	if err != nil {
		t.Fatalf("forward failed: %v", err)
	}

	mu, err := provider.LinearAttenuation(2.7, "Al", energies)
	if err != nil {
		t.Fatal(err)
	}
	for i := range resp {
		want := math.Exp(-mu[i] * 2)
		if math.Abs(resp[i]-want) > 1e-12 {
			t.Errorf("bin %d: response %g, want %g", i, resp[i], want)
		}
		if resp[i] < 0 || resp[i] > 1 {
			t.Errorf("bin %d: response %g outside [0, 1]", i, resp[i])
		}
	}
}

func TestFilter_UnresolvedErrors(t *testing.T) {
	provider := testProvider(t)
	f, err := NewFilter(provider, []Material{
		{Formula: "Al", Density: 2.7},
		{Formula: "Cu", Density: 8.96},
	}, Bound{Lower: 0, Upper: 10}, 2, true)
	if err != nil {
		t.Fatalf("filter creation failed: %v", err)
	}

	if _, err := f.Forward(grid(10, 90, 10)); err == nil {
		t.Error("expected error for unresolved multi-candidate filter")
	}

	resolved := f.Resolve(Material{Formula: "Cu", Density: 8.96})
	if _, err := resolved.Forward(grid(10, 90, 10)); err != nil {
		t.Errorf("resolved filter forward failed: %v", err)
	}
	// Resolve must not mutate the original.
	if _, ok := f.Material(); ok {
		t.Error("resolving a copy mutated the shared filter")
	}
}

func TestScintillator_Forward(t *testing.T) {
	provider := testProvider(t)
	energies := grid(10, 90, 10)

	s, err := NewScintillator(provider, []Material{{Formula: "CsI", Density: 4.51}}, Bound{Lower: 0.01, Upper: 1}, 0.33, true)
	if err != nil {
		t.Fatalf("scintillator creation failed: %v", err)
	}

	resp, err := s.Forward(energies)
	if err != nil {
		t.Fatalf("forward failed: %v", err)
	}

	muEn, err := provider.LinearAbsorption(4.51, "CsI", energies)
	if err != nil {
		t.Fatal(err)
	}
	for i := range resp {
		want := 1 - math.Exp(-muEn[i]*0.33)
		if math.Abs(resp[i]-want) > 1e-12 {
			t.Errorf("bin %d: response %g, want %g", i, resp[i], want)
		}
	}
	// Absorption falls with energy for a power-law coefficient.
	if resp[len(resp)-1] >= resp[0] {
		t.Error("scintillator absorption should decrease with energy")
	}
}

func buildComposite(t *testing.T) *Composite {
	t.Helper()
	provider := testProvider(t)
	energies := grid(1.5, 99.5, 1)
	voltages := []float64{40, 60, 80, 100, 120}
	spectra := referenceSpectra(energies, voltages)

	src, err := NewSource(voltages, spectra, Bound{Lower: 30, Upper: 160}, 80, true)
	if err != nil {
		t.Fatal(err)
	}
	flt, err := NewFilter(provider, []Material{{Formula: "Al", Density: 2.7}}, Bound{Lower: 0, Upper: 10}, 3, true)
	if err != nil {
		t.Fatal(err)
	}
	scn, err := NewScintillator(provider, []Material{{Formula: "CsI", Density: 4.51}}, Bound{Lower: 0.01, Upper: 1}, 0.33, true)
	if err != nil {
		t.Fatal(err)
	}
	model, err := NewComposite(energies, []*Source{src}, []*Filter{flt}, []*Scintillator{scn})
	if err != nil {
		t.Fatal(err)
	}
	return model
}

func TestComposite_EffectiveSpectrumNormalized(t *testing.T) {
	model := buildComposite(t)
	comb := Combination{Source: 0, Filters: []int{0}, Scintillator: 0}

	spec, err := model.EffectiveSpectrum(comb)
	if err != nil {
		t.Fatalf("effective spectrum failed: %v", err)
	}
	area := integrate.Trapezoidal(model.Energies, spec)
	if math.Abs(area-1) > 1e-9 {
		t.Errorf("normalized spectrum area %g, want 1", area)
	}
	for i, v := range spec {
		if v < 0 {
			t.Errorf("bin %d: negative spectrum value %g", i, v)
		}
	}
}

func TestComposite_EffectiveSpectrumZeroArea(t *testing.T) {
	provider := testProvider(t)
	energies := grid(10, 50, 10)
	// Tube voltages below every grid energy: no photon reaches any bin.
	voltages := []float64{4, 8}
	spectra := referenceSpectra(energies, voltages)

	src, err := NewSource(voltages, spectra, Bound{Lower: 2, Upper: 8}, 6, true)
	if err != nil {
		t.Fatal(err)
	}
	flt, err := NewFilter(provider, []Material{{Formula: "Al", Density: 2.7}}, Bound{Lower: 0, Upper: 10}, 1, true)
	if err != nil {
		t.Fatal(err)
	}
	scn, err := NewScintillator(provider, []Material{{Formula: "CsI", Density: 4.51}}, Bound{Lower: 0.01, Upper: 1}, 0.33, true)
	if err != nil {
		t.Fatal(err)
	}
	model, err := NewComposite(energies, []*Source{src}, []*Filter{flt}, []*Scintillator{scn})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := model.EffectiveSpectrum(Combination{Source: 0, Filters: []int{0}, Scintillator: 0}); err == nil {
		t.Error("expected error for zero total response")
	}
}

func TestComposite_CheckCombination(t *testing.T) {
	model := buildComposite(t)

	bad := []Combination{
		{Source: 1, Filters: []int{0}, Scintillator: 0},
		{Source: 0, Filters: nil, Scintillator: 0},
		{Source: 0, Filters: []int{3}, Scintillator: 0},
		{Source: 0, Filters: []int{0}, Scintillator: -1},
	}
	for i, mc := range bad {
		if err := model.CheckCombination(mc); err == nil {
			t.Errorf("combination %d: expected error", i)
		}
	}
	if err := model.CheckCombination(Combination{Source: 0, Filters: []int{0}, Scintillator: 0}); err != nil {
		t.Errorf("valid combination rejected: %v", err)
	}
}

func TestComposite_PredictTransmissionIdentity(t *testing.T) {
	model := buildComposite(t)
	comb := Combination{Source: 0, Filters: []int{0}, Scintillator: 0}

	// A forward matrix of ones integrates the normalized spectrum: the
	// prediction must be 1 for every ray.
	rows := 4
	data := make([]float64, rows*len(model.Energies))
	for i := range data {
		data[i] = 1
	}
	F := mat.NewDense(rows, len(model.Energies), data)

	got, err := model.PredictTransmission(F, comb)
	if err != nil {
		t.Fatalf("prediction failed: %v", err)
	}
	for i, v := range got {
		if math.Abs(v-1) > 1e-9 {
			t.Errorf("ray %d: transmission %g, want 1", i, v)
		}
	}
}

func TestComposite_CloneIsIndependent(t *testing.T) {
	model := buildComposite(t)
	clone := model.Clone()

	params := clone.Params()
	if len(params) != 3 {
		t.Fatalf("expected 3 optimizable parameters, got %d", len(params))
	}
	params[0].SetNorm(0.9)

	if model.Params()[0].Norm() == 0.9 {
		t.Error("mutating a clone changed the original model")
	}
}

func TestComposite_ParamOrder(t *testing.T) {
	model := buildComposite(t)
	params := model.Params()
	names := []string{"voltage", "filter_thickness", "scintillator_thickness"}
	for i, want := range names {
		if params[i].Name() != want {
			t.Errorf("parameter %d named %q, want %q", i, params[i].Name(), want)
		}
	}
}
