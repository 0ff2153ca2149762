package fit

import (
	"errors"
	"math"
	"sync"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/xraylab/speccal/internal/chem"
	"github.com/xraylab/speccal/internal/spectral"
)

// testProvider builds a power-law attenuation table covering the candidate
// materials used throughout the tests. The absorption column has a distinct
// exponent per element; without that, one scintillator candidate at a
// rescaled thickness can reproduce another's response and tie the search.
func testProvider(t *testing.T) *chem.Table {
	t.Helper()
	energies := []float64{1, 2, 5, 10, 20, 50, 100, 200}
	elements := make(map[string]chem.ElementRecord)
	for sym, c := range map[string]struct{ a, b, babs float64 }{
		"O":  {4.0e3, 2.9, 2.95},
		"Al": {1.1e4, 2.9, 2.88},
		"S":  {2.6e4, 2.9, 2.93},
		"Cu": {1.5e5, 2.8, 2.84},
		"I":  {6.5e5, 2.6, 2.62},
		"Cs": {7.0e5, 2.6, 2.64},
		"Gd": {1.1e6, 2.6, 2.95},
	} {
		atten := make([]float64, len(energies))
		absorb := make([]float64, len(energies))
		for i, e := range energies {
			atten[i] = c.a * math.Pow(e, -c.b)
			absorb[i] = 0.85 * c.a * math.Pow(e, -c.babs)
		}
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

func referenceSpectra(energies, voltages []float64) [][]float64 {
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

var (
	matAl     = spectral.Material{Formula: "Al", Density: 2.7}
	matCu     = spectral.Material{Formula: "Cu", Density: 8.96}
	matCsI    = spectral.Material{Formula: "CsI", Density: 4.51}
	matGd2O2S = spectral.Material{Formula: "Gd2O2S", Density: 7.32}
)

// searchModel builds the estimation model: unknown voltage, filter material
// among {Al, Cu}, scintillator material among {CsI, Gd2O2S}, thicknesses
// free within bounds.
func searchModel(t *testing.T, provider spectral.AttenuationProvider) *spectral.Composite {
	t.Helper()
	energies := grid(1.5, 99.5, 1)
	voltages := []float64{40, 60, 80, 100, 120, 140}
	spectra := referenceSpectra(energies, voltages)

	src, err := spectral.NewSource(voltages, spectra, spectral.Bound{Lower: 30, Upper: 160}, 100, true)
	if err != nil {
		t.Fatal(err)
	}
	flt, err := spectral.NewFilter(provider, []spectral.Material{matAl, matCu},
		spectral.Bound{Lower: 0, Upper: 10}, 1, true)
	if err != nil {
		t.Fatal(err)
	}
	scn, err := spectral.NewScintillator(provider, []spectral.Material{matCsI, matGd2O2S},
		spectral.Bound{Lower: 0.01, Upper: 1}, 0.1, true)
	if err != nil {
		t.Fatal(err)
	}
	model, err := spectral.NewComposite(energies, []*spectral.Source{src}, []*spectral.Filter{flt}, []*spectral.Scintillator{scn})
	if err != nil {
		t.Fatal(err)
	}
	return model
}

// truthModel is the resolved ground truth: 80 kV, 3 mm Al, 0.33 mm CsI.
func truthModel(t *testing.T, provider spectral.AttenuationProvider) *spectral.Composite {
	t.Helper()
	energies := grid(1.5, 99.5, 1)
	voltages := []float64{40, 60, 80, 100, 120, 140}
	spectra := referenceSpectra(energies, voltages)

	src, err := spectral.NewSource(voltages, spectra, spectral.Bound{Lower: 30, Upper: 160}, 80, false)
	if err != nil {
		t.Fatal(err)
	}
	flt, err := spectral.NewFilter(provider, []spectral.Material{matAl},
		spectral.Bound{Lower: 0, Upper: 10}, 3, false)
	if err != nil {
		t.Fatal(err)
	}
	scn, err := spectral.NewScintillator(provider, []spectral.Material{matCsI},
		spectral.Bound{Lower: 0.01, Upper: 1}, 0.33, false)
	if err != nil {
		t.Fatal(err)
	}
	model, err := spectral.NewComposite(energies, []*spectral.Source{src}, []*spectral.Filter{flt}, []*spectral.Scintillator{scn})
	if err != nil {
		t.Fatal(err)
	}
	return model
}

// aluminumRays builds a forward matrix of exp(-L*mu_Al(E)) rows for a range
// of path lengths, plus one unattenuated background ray.
func aluminumRays(t *testing.T, provider spectral.AttenuationProvider, energies []float64) *mat.Dense {
	t.Helper()
	mu, err := provider.LinearAttenuation(matAl.Density, matAl.Formula, energies)
	if err != nil {
		t.Fatal(err)
	}
	lengths := []float64{0, 0.5, 1, 2, 4, 8, 12, 16, 20, 25, 30, 40}
	F := mat.NewDense(len(lengths), len(energies), nil)
	for i, L := range lengths {
		for j := range energies {
			F.Set(i, j, math.Exp(-L*mu[j]))
		}
	}
	return F
}

func synthDataset(t *testing.T, provider spectral.AttenuationProvider) Dataset {
	t.Helper()
	truth := truthModel(t, provider)
	comb := spectral.Combination{Source: 0, Filters: []int{0}, Scintillator: 0}
	F := aluminumRays(t, provider, truth.Energies)
	y, err := truth.PredictTransmission(F, comb)
	if err != nil {
		t.Fatal(err)
	}
	return Dataset{Transmission: y, Forward: F, Combination: comb}
}

func TestCaseCount(t *testing.T) {
	provider := testProvider(t)
	model := searchModel(t, provider)

	if got := CaseCount(model.Filters, model.Scintillators); got != 4 {
		t.Errorf("case count %d, want 4", got)
	}
}

func TestCaseCount_Product(t *testing.T) {
	provider := testProvider(t)

	flt, err := spectral.NewFilter(provider, []spectral.Material{matAl, matCu},
		spectral.Bound{Lower: 0, Upper: 10}, 1, true)
	if err != nil {
		t.Fatal(err)
	}
	// Seven scintillator candidates against two filters: 2*7 = 14.
	cands := make([]spectral.Material, 7)
	for i := range cands {
		cands[i] = matCsI
	}
	scn, err := spectral.NewScintillator(provider, cands, spectral.Bound{Lower: 0.01, Upper: 1}, 0.1, true)
	if err != nil {
		t.Fatal(err)
	}

	if got := CaseCount([]*spectral.Filter{flt}, []*spectral.Scintillator{scn}); got != 14 {
		t.Errorf("case count %d, want 14", got)
	}
	cases := EnumerateCases([]*spectral.Filter{flt}, []*spectral.Scintillator{scn})
	if len(cases) != 14 {
		t.Errorf("enumerated %d cases, want 14", len(cases))
	}
}

func TestEnumerateCases_OrderAndIDs(t *testing.T) {
	provider := testProvider(t)
	model := searchModel(t, provider)

	cases := EnumerateCases(model.Filters, model.Scintillators)
	if len(cases) != 4 {
		t.Fatalf("enumerated %d cases, want 4", len(cases))
	}
	for i, c := range cases {
		if c.ID != i {
			t.Errorf("case %d has ID %d", i, c.ID)
		}
	}
	// Last slot varies fastest.
	if cases[0].FilterMaterials[0] != matAl || cases[0].ScintillatorMaterials[0] != matCsI {
		t.Errorf("case 0 is %v/%v, want Al/CsI", cases[0].FilterMaterials[0], cases[0].ScintillatorMaterials[0])
	}
	if cases[1].FilterMaterials[0] != matAl || cases[1].ScintillatorMaterials[0] != matGd2O2S {
		t.Errorf("case 1 is %v/%v, want Al/Gd2O2S", cases[1].FilterMaterials[0], cases[1].ScintillatorMaterials[0])
	}
	if cases[2].FilterMaterials[0] != matCu {
		t.Errorf("case 2 filter is %v, want Cu", cases[2].FilterMaterials[0])
	}
}

func TestLossValue(t *testing.T) {
	pred := []float64{0.5, 0.8}
	meas := []float64{0.4, 1.0}
	weight := []float64{2, 1}

	mse := lossValue(LossSquared, pred, meas, weight)
	want := 0.5 * (0.01 + 0.04) / 2
	if math.Abs(mse-want) > 1e-12 {
		t.Errorf("mse %g, want %g", mse, want)
	}

	wmse := lossValue(LossWeighted, pred, meas, weight)
	want = 0.5 * (2*0.01 + 1*0.04) / 2
	if math.Abs(wmse-want) > 1e-12 {
		t.Errorf("wmse %g, want %g", wmse, want)
	}

	att := lossValue(LossAttenuation, pred, meas, weight)
	d0 := math.Log(0.4) - math.Log(0.5)
	d1 := math.Log(1.0) - math.Log(0.8)
	want = 0.5 * (d0*d0 + d1*d1) / 2
	if math.Abs(att-want) > 1e-12 {
		t.Errorf("attmse %g, want %g", att, want)
	}
}

func TestAdam_MinimizesQuadratic(t *testing.T) {
	x := []float64{2, -1.5}
	grad := make([]float64, 2)
	opt := newAdam(0.05, 2)

	for i := 0; i < 2000; i++ {
		copy(grad, x)
		opt.update(x, grad)
	}
	for i, v := range x {
		if math.Abs(v) > 1e-3 {
			t.Errorf("coordinate %d did not converge: %g", i, v)
		}
	}
}

func TestEstimate_ConfigurationErrors(t *testing.T) {
	provider := testProvider(t)
	model := searchModel(t, provider)
	ds := synthDataset(t, provider)

	if _, err := Estimate(model, []Dataset{ds}, Options{Optimizer: "newton"}); !errors.Is(err, ErrUnknownOptimizer) {
		t.Errorf("expected ErrUnknownOptimizer, got %v", err)
	}
	if _, err := Estimate(model, []Dataset{ds}, Options{Loss: "huber"}); !errors.Is(err, ErrUnknownLoss) {
		t.Errorf("expected ErrUnknownLoss, got %v", err)
	}
	if _, err := Estimate(model, nil, Options{}); !errors.Is(err, ErrNoDatasets) {
		t.Errorf("expected ErrNoDatasets, got %v", err)
	}

	bad := ds
	bad.Combination = spectral.Combination{Source: 5, Filters: []int{0}, Scintillator: 0}
	if _, err := Estimate(model, []Dataset{bad}, Options{}); err == nil {
		t.Error("expected error for invalid combination")
	}

	bad = ds
	bad.Transmission = ds.Transmission[:3]
	if _, err := Estimate(model, []Dataset{bad}, Options{}); err == nil {
		t.Error("expected error for forward/measurement shape mismatch")
	}

	bad = ds
	bad.Weights = []float64{1, 2}
	if _, err := Estimate(model, []Dataset{bad}, Options{}); err == nil {
		t.Error("expected error for weight length mismatch")
	}
}

func TestEstimate_DivergedCaseIsContained(t *testing.T) {
	provider := testProvider(t)
	model := searchModel(t, provider)
	ds := synthDataset(t, provider)

	// A zero measurement makes the default 1/y weight infinite: the very
	// first cost evaluation is non-finite and every case must end as
	// diverged at iteration 1 without failing the run.
	ds.Transmission[0] = 0
	ds.Weights = nil

	res, err := Estimate(model, []Dataset{ds}, Options{MaxIterations: 50})
	if err != nil {
		t.Fatalf("divergence escalated to a run error: %v", err)
	}
	for _, r := range res.Cases {
		if r.Status != StatusDiverged {
			t.Errorf("case %d status %q, want diverged", r.Case.ID, r.Status)
		}
		if r.Iterations != 1 {
			t.Errorf("case %d diverged at iteration %d, want 1", r.Case.ID, r.Iterations)
		}
		if math.IsNaN(r.Cost) {
			t.Errorf("case %d reported NaN cost", r.Case.ID)
		}
	}
}

func TestEstimate_BoundsHeld(t *testing.T) {
	provider := testProvider(t)
	model := searchModel(t, provider)
	ds := synthDataset(t, provider)

	res, err := Estimate(model, []Dataset{ds}, Options{MaxIterations: 200})
	if err != nil {
		t.Fatalf("estimate failed: %v", err)
	}
	for _, r := range res.Cases {
		for _, p := range r.Model.Params() {
			b := p.Bound()
			if v := p.Value(); v < b.Lower || v > b.Upper {
				t.Errorf("case %d: parameter %s = %g outside [%g, %g]", r.Case.ID, p.Name(), v, b.Lower, b.Upper)
			}
		}
	}
}

func TestEstimate_SharedModelUntouched(t *testing.T) {
	provider := testProvider(t)
	model := searchModel(t, provider)
	ds := synthDataset(t, provider)

	before := make([]float64, 0)
	for _, p := range model.Params() {
		before = append(before, p.Norm())
	}

	if _, err := Estimate(model, []Dataset{ds}, Options{MaxIterations: 100}); err != nil {
		t.Fatalf("estimate failed: %v", err)
	}

	for i, p := range model.Params() {
		if p.Norm() != before[i] {
			t.Errorf("shared model parameter %s mutated by a case", p.Name())
		}
	}
	for _, f := range model.Filters {
		if len(f.Candidates) > 1 {
			if _, ok := f.Material(); ok {
				t.Error("shared filter was resolved by a case")
			}
		}
	}
}

func TestEstimate_Progress(t *testing.T) {
	provider := testProvider(t)
	model := searchModel(t, provider)
	ds := synthDataset(t, provider)

	var mu sync.Mutex
	done := make(map[int]bool)

	_, err := Estimate(model, []Dataset{ds}, Options{
		MaxIterations: 20,
		OnProgress: func(p Progress) {
			mu.Lock()
			defer mu.Unlock()
			if p.Done {
				done[p.Case] = true
			}
		},
	})
	if err != nil {
		t.Fatalf("estimate failed: %v", err)
	}
	if len(done) != 4 {
		t.Errorf("done events for %d cases, want 4", len(done))
	}
}

func TestSelectBest_PrefersHealthyCases(t *testing.T) {
	results := []Result{
		{Case: Case{ID: 0}, Status: StatusDiverged, Cost: 0.001},
		{Case: Case{ID: 1}, Status: StatusMaxIterations, Cost: 0.5},
		{Case: Case{ID: 2}, Status: StatusConverged, Cost: 0.7},
	}
	best, ok := selectBest(results)
	if !ok {
		t.Fatal("no best case selected")
	}
	if best.Case.ID != 1 {
		t.Errorf("selected case %d, want 1 (diverged cases lose to healthy ones)", best.Case.ID)
	}
}

func TestSelectBest_AllDiverged(t *testing.T) {
	results := []Result{
		{Case: Case{ID: 0}, Status: StatusDiverged, Cost: 2},
		{Case: Case{ID: 1}, Status: StatusDiverged, Cost: 1},
	}
	best, ok := selectBest(results)
	if !ok {
		t.Fatal("no best case selected")
	}
	if best.Case.ID != 1 {
		t.Errorf("selected case %d, want 1", best.Case.ID)
	}
}

func TestSelectBest_NaNCostLoses(t *testing.T) {
	results := []Result{
		{Case: Case{ID: 0}, Status: StatusConverged, Cost: math.NaN()},
		{Case: Case{ID: 1}, Status: StatusConverged, Cost: 3},
	}
	best, ok := selectBest(results)
	if !ok {
		t.Fatal("no best case selected")
	}
	if best.Case.ID != 1 {
		t.Errorf("selected case %d, want 1", best.Case.ID)
	}
}

// The scintillator candidates must differ in the energy dependence of their
// absorption, not just its magnitude. Were the ratio flat, a rescaled
// Gd2O2S thickness would reproduce the CsI response and tie the search.
func TestScintillatorCandidatesDistinguishable(t *testing.T) {
	provider := testProvider(t)
	energies := grid(1.5, 99.5, 1)

	csi, err := provider.LinearAbsorption(matCsI.Density, matCsI.Formula, energies)
	if err != nil {
		t.Fatal(err)
	}
	gos, err := provider.LinearAbsorption(matGd2O2S.Density, matGd2O2S.Formula, energies)
	if err != nil {
		t.Fatal(err)
	}

	lo, hi := math.Inf(1), 0.0
	for j := range energies {
		r := csi[j] / gos[j]
		if r < lo {
			lo = r
		}
		if r > hi {
			hi = r
		}
	}
	if hi/lo < 2 {
		t.Errorf("absorption ratio varies only %.2fx across the band, candidates are near-degenerate", hi/lo)
	}
}

func TestEstimate_RecoversGroundTruth(t *testing.T) {
	provider := testProvider(t)
	model := searchModel(t, provider)
	ds := synthDataset(t, provider)

	res, err := Estimate(model, []Dataset{ds}, Options{
		LearningRate:  0.02,
		MaxIterations: 8000,
		StopThreshold: 1e-5,
		Workers:       2,
	})
	if err != nil {
		t.Fatalf("estimate failed: %v", err)
	}

	best := res.Best
	if best.Status == StatusDiverged {
		t.Fatalf("best case diverged: %v", best.Err)
	}
	if best.Case.FilterMaterials[0].Formula != "Al" {
		t.Errorf("best filter material %s, want Al", best.Case.FilterMaterials[0].Formula)
	}
	if best.Case.ScintillatorMaterials[0].Formula != "CsI" {
		t.Errorf("best scintillator material %s, want CsI", best.Case.ScintillatorMaterials[0].Formula)
	}

	voltage := best.Model.Sources[0].Voltage()
	if math.Abs(voltage-80)/80 > 0.01 {
		t.Errorf("estimated voltage %g, want 80 within 1%%", voltage)
	}
	thickness := best.Model.Filters[0].Thickness()
	if math.Abs(thickness-3)/3 > 0.01 {
		t.Errorf("estimated filter thickness %g, want 3 within 1%%", thickness)
	}
	scint := best.Model.Scintillators[0].Thickness()
	if math.Abs(scint-0.33)/0.33 > 0.02 {
		t.Errorf("estimated scintillator thickness %g, want 0.33 within 2%%", scint)
	}
}

func TestEstimate_LBFGS(t *testing.T) {
	provider := testProvider(t)
	model := searchModel(t, provider)
	ds := synthDataset(t, provider)

	res, err := Estimate(model, []Dataset{ds}, Options{
		Optimizer:     OptimizerLBFGS,
		MaxIterations: 500,
		StopThreshold: 1e-6,
		Workers:       2,
	})
	if err != nil {
		t.Fatalf("estimate failed: %v", err)
	}

	best := res.Best
	if best.Status == StatusDiverged {
		t.Fatalf("best case diverged: %v", best.Err)
	}
	if best.Case.FilterMaterials[0].Formula != "Al" || best.Case.ScintillatorMaterials[0].Formula != "CsI" {
		t.Errorf("best case picked %s/%s, want Al/CsI",
			best.Case.FilterMaterials[0].Formula, best.Case.ScintillatorMaterials[0].Formula)
	}
	voltage := best.Model.Sources[0].Voltage()
	if math.Abs(voltage-80)/80 > 0.02 {
		t.Errorf("estimated voltage %g, want 80 within 2%%", voltage)
	}
}
