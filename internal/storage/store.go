// Package storage persists calibration runs: a metadata.json per run with
// the estimated parameters, plus the best case's effective spectrum as CSV.
package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/xraylab/speccal/internal/fit"
	"github.com/xraylab/speccal/internal/spectral"
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

// CaseSummary records the outcome of one material case.
type CaseSummary struct {
	Case          int                `json:"case"`
	Status        string             `json:"status"`
	Iterations    int                `json:"iterations"`
	Cost          float64            `json:"cost"`
	Filters       []string           `json:"filters"`
	Scintillators []string           `json:"scintillators"`
	Parameters    map[string]float64 `json:"parameters,omitempty"`
	Error         string             `json:"error,omitempty"`
}

// RunMetadata is the persistent record of one calibration run.
type RunMetadata struct {
	ID        string        `json:"id"`
	Timestamp time.Time     `json:"timestamp"`
	Optimizer string        `json:"optimizer"`
	Loss      string        `json:"loss"`
	Datasets  int           `json:"datasets"`
	Best      CaseSummary   `json:"best"`
	Cases     []CaseSummary `json:"cases"`
}

// Save writes one run directory: metadata.json plus spectrum.csv with the
// best case's normalized effective spectrum per dataset combination.
func (s *Store) Save(res *fit.RunResult, combinations []spectral.Combination, optimizer, loss string) (string, error) {
	runID := fmt.Sprintf("run_%d", time.Now().Unix())
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta := RunMetadata{
		ID:        runID,
		Timestamp: time.Now(),
		Optimizer: optimizer,
		Loss:      loss,
		Datasets:  len(combinations),
		Best:      summarize(res.Best),
		Cases:     make([]CaseSummary, len(res.Cases)),
	}
	for i, c := range res.Cases {
		meta.Cases[i] = summarize(c)
	}

	metaPath := filepath.Join(runDir, "metadata.json")
	metaFile, err := os.Create(metaPath)
	if err != nil {
		return "", err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", err
	}

	if res.Best.Model != nil {
		if err := s.writeSpectra(runDir, res.Best.Model, combinations); err != nil {
			return "", err
		}
	}

	return runID, nil
}

func (s *Store) writeSpectra(runDir string, model *spectral.Composite, combinations []spectral.Combination) error {
	csvFile, err := os.Create(filepath.Join(runDir, "spectrum.csv"))
	if err != nil {
		return err
	}
	defer csvFile.Close()

	w := csv.NewWriter(csvFile)
	defer w.Flush()

	header := []string{"energy_kev"}
	spectra := make([][]float64, 0, len(combinations))
	for i, comb := range combinations {
		spec, err := model.EffectiveSpectrum(comb)
		if err != nil {
			return fmt.Errorf("spectrum for dataset %d: %w", i, err)
		}
		spectra = append(spectra, spec)
		header = append(header, fmt.Sprintf("dataset_%d", i))
	}

	if err := w.Write(header); err != nil {
		return err
	}
	for j, e := range model.Energies {
		row := []string{strconv.FormatFloat(e, 'f', 6, 64)}
		for _, spec := range spectra {
			row = append(row, strconv.FormatFloat(spec[j], 'g', -1, 64))
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		metaPath := filepath.Join(s.baseDir, entry.Name(), "metadata.json")
		data, err := os.ReadFile(metaPath)
		if err != nil {
			continue
		}

		var meta RunMetadata
		if err := json.Unmarshal(data, &meta); err != nil {
			continue
		}

		runs = append(runs, meta)
	}

	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	metaPath := filepath.Join(s.baseDir, runID, "metadata.json")
	data, err := os.ReadFile(metaPath)
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}

	return &meta, nil
}

// LoadSpectrum reads back the stored effective spectra: energies plus one
// column per dataset.
func (s *Store) LoadSpectrum(runID string) ([]float64, [][]float64, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, "spectrum.csv"))
	if err != nil {
		return nil, nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	records, err := r.ReadAll()
	if err != nil {
		return nil, nil, err
	}
	if len(records) < 2 {
		return []float64{}, [][]float64{}, nil
	}

	cols := len(records[0]) - 1
	energies := make([]float64, 0, len(records)-1)
	spectra := make([][]float64, cols)
	for i := range spectra {
		spectra[i] = make([]float64, 0, len(records)-1)
	}

	for _, record := range records[1:] {
		if len(record) != cols+1 {
			continue
		}
		e, err := strconv.ParseFloat(record[0], 64)
		if err != nil {
			continue
		}
		energies = append(energies, e)
		for j := 0; j < cols; j++ {
			v, err := strconv.ParseFloat(record[j+1], 64)
			if err != nil {
				v = 0
			}
			spectra[j] = append(spectra[j], v)
		}
	}

	return energies, spectra, nil
}

func summarize(r fit.Result) CaseSummary {
	cs := CaseSummary{
		Case:       r.Case.ID,
		Status:     string(r.Status),
		Iterations: r.Iterations,
		Cost:       r.Cost,
	}
	for _, m := range r.Case.FilterMaterials {
		cs.Filters = append(cs.Filters, m.Formula)
	}
	for _, m := range r.Case.ScintillatorMaterials {
		cs.Scintillators = append(cs.Scintillators, m.Formula)
	}
	if r.Model != nil {
		cs.Parameters = make(map[string]float64)
		for i, p := range r.Model.Params() {
			cs.Parameters[fmt.Sprintf("%02d_%s", i, p.Name())] = p.Value()
		}
	}
	if r.Err != nil {
		cs.Error = r.Err.Error()
	}
	return cs
}
