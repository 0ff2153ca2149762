package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// SourceTable holds the simulated reference spectra shared by all sources:
// one photon-count spectrum per tabulated tube voltage, sampled on the run's
// energy grid.
type SourceTable struct {
	Voltages []float64   `json:"voltages"`
	Spectra  [][]float64 `json:"spectra"`
}

// LoadSourceTable reads a source table from JSON and checks its shape.
func LoadSourceTable(path string) (*SourceTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read source table: %w", err)
	}
	var t SourceTable
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parse source table %s: %w", path, err)
	}
	if err := t.check(); err != nil {
		return nil, fmt.Errorf("source table %s: %w", path, err)
	}
	return &t, nil
}

// SaveSourceTable writes the table as indented JSON.
func SaveSourceTable(path string, t *SourceTable) error {
	if err := t.check(); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(t)
}

func (t *SourceTable) check() error {
	if len(t.Voltages) < 2 {
		return fmt.Errorf("need at least two tabulated voltages, got %d", len(t.Voltages))
	}
	if len(t.Spectra) != len(t.Voltages) {
		return fmt.Errorf("%d spectra for %d voltages", len(t.Spectra), len(t.Voltages))
	}
	for i := 1; i < len(t.Voltages); i++ {
		if t.Voltages[i] <= t.Voltages[i-1] {
			return fmt.Errorf("voltages must be strictly increasing")
		}
	}
	for i, s := range t.Spectra {
		if len(s) != len(t.Spectra[0]) {
			return fmt.Errorf("spectrum %d has %d bins, want %d", i, len(s), len(t.Spectra[0]))
		}
	}
	return nil
}
