// Package dataset holds the measured inputs to a calibration run: one
// transmission array per dataset with its precomputed forward matrix and
// optional ground-truth metadata for validation. Records are stored as
// JSON; the package can also synthesize records from a known configuration
// for demos and tests.
package dataset

import (
	"encoding/json"
	"fmt"
	"os"

	"gonum.org/v1/gonum/mat"
)

// GroundTruth is the known configuration a synthetic record was generated
// from. Read-only validation metadata; the estimation core never reads it.
type GroundTruth struct {
	Voltage               float64 `json:"voltage,omitempty"`
	FilterFormula         string  `json:"filter_formula,omitempty"`
	FilterDensity         float64 `json:"filter_density,omitempty"`
	FilterThickness       float64 `json:"filter_thickness,omitempty"`
	ScintillatorFormula   string  `json:"scintillator_formula,omitempty"`
	ScintillatorDensity   float64 `json:"scintillator_density,omitempty"`
	ScintillatorThickness float64 `json:"scintillator_thickness,omitempty"`
}

// Record is one dataset: normalized transmission measurements (background
// close to 1) and the forward matrix mapping the energy grid to them.
type Record struct {
	Transmission []float64    `json:"transmission"`
	Forward      [][]float64  `json:"forward"`
	Weights      []float64    `json:"weights,omitempty"`
	GroundTruth  *GroundTruth `json:"ground_truth,omitempty"`
}

// Load reads a JSON record and validates its shape.
func Load(path string) (*Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dataset: %w", err)
	}
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parse dataset %s: %w", path, err)
	}
	if err := r.check(); err != nil {
		return nil, fmt.Errorf("dataset %s: %w", path, err)
	}
	return &r, nil
}

// Save writes the record as indented JSON.
func (r *Record) Save(path string) error {
	if err := r.check(); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

func (r *Record) check() error {
	if len(r.Transmission) == 0 {
		return fmt.Errorf("no transmission samples")
	}
	if len(r.Forward) != len(r.Transmission) {
		return fmt.Errorf("%d forward rows for %d transmission samples", len(r.Forward), len(r.Transmission))
	}
	for i, row := range r.Forward {
		if len(row) != len(r.Forward[0]) {
			return fmt.Errorf("forward row %d has %d bins, want %d", i, len(row), len(r.Forward[0]))
		}
	}
	if r.Weights != nil && len(r.Weights) != len(r.Transmission) {
		return fmt.Errorf("%d weights for %d transmission samples", len(r.Weights), len(r.Transmission))
	}
	return nil
}

// ForwardMatrix returns the forward rows as a dense matrix.
func (r *Record) ForwardMatrix() *mat.Dense {
	rows := len(r.Forward)
	cols := len(r.Forward[0])
	F := mat.NewDense(rows, cols, nil)
	for i, row := range r.Forward {
		F.SetRow(i, row)
	}
	return F
}
