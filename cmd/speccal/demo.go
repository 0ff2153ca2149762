package main

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/xraylab/speccal/internal/config"
	"github.com/xraylab/speccal/internal/dataset"
	"github.com/xraylab/speccal/internal/spectral"
)

// Ground truth for the generated workspace: 80 kV tube, 3 mm Al filter,
// 0.33 mm CsI scintillator.
const (
	demoVoltage       = 80.0
	demoFilterThick   = 3.0
	demoScintThick    = 0.33
	demoCsIDensity    = 4.51
	demoGd2O2SDensity = 7.32
	demoViews         = 12
	demoChannels      = 32
	demoPixelSize     = 0.5
)

// generateDemo writes a complete synthetic calibration workspace: a
// power-law attenuation table, Kramers-like source spectra, one noiseless
// transmission dataset from a disk phantom and a run config whose candidate
// lists include the ground-truth materials.
func generateDemo(cmd *cobra.Command, args []string) error {
	dir := args[0]
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	table, err := dataset.DemoTable()
	if err != nil {
		return err
	}
	if err := writeJSON(filepath.Join(dir, "attenuation.json"), dataset.DemoElements()); err != nil {
		return err
	}

	cfg := demoConfig()
	grid := cfg.Energies.Grid()

	st := dataset.DemoSourceTable(grid)
	if err := config.SaveSourceTable(filepath.Join(dir, "source_spectra.json"), st); err != nil {
		return err
	}

	truth, err := demoTruthModel(table, st, grid)
	if err != nil {
		return err
	}

	disks := []dataset.Disk{
		{Material: spectral.Material{Formula: "Al", Density: 2.699}, Radius: 8, CenterX: -4, CenterY: 0},
		{Material: spectral.Material{Formula: "Cu", Density: 8.96}, Radius: 2, CenterX: 6, CenterY: 3},
	}
	angles := make([]float64, demoViews)
	for i := range angles {
		angles[i] = float64(i) * math.Pi / demoViews
	}
	F, err := dataset.ForwardMatrix(table, disks, grid, angles, demoChannels, demoPixelSize)
	if err != nil {
		return err
	}

	comb := spectral.Combination{Source: 0, Filters: []int{0}, Scintillator: 0}
	rec, err := dataset.Generate(truth, comb, F)
	if err != nil {
		return err
	}
	if err := rec.Save(filepath.Join(dir, "dataset0.json")); err != nil {
		return err
	}

	configPath := filepath.Join(dir, "config.yaml")
	if err := config.Save(configPath, cfg); err != nil {
		return err
	}

	fmt.Printf("demo workspace written to %s\n", dir)
	fmt.Printf("  speccal fit %s\n", configPath)

	if runDemo {
		return runFit(cmd, []string{configPath})
	}
	return nil
}

// demoConfig describes the estimation problem: the ground-truth materials
// hide among the candidates and the parameters start away from the truth.
func demoConfig() *config.Config {
	return &config.Config{
		Energies:         config.GridConfig{Min: 1.5, Max: 99.5, Step: 1.0},
		AttenuationTable: "attenuation.json",
		SourceTable:      "source_spectra.json",
		Sources: []config.SourceConfig{
			{Voltage: 100, Bound: config.BoundConfig{Lower: 30, Upper: 160}, Optimize: true},
		},
		Filters: []config.ComponentConfig{
			{
				Materials: []config.MaterialConfig{{Formula: "Al"}, {Formula: "Cu"}},
				Thickness: 1.0, Bound: config.BoundConfig{Lower: 0, Upper: 10}, Optimize: true,
			},
		},
		Scintillators: []config.ComponentConfig{
			{
				Materials: []config.MaterialConfig{
					{Formula: "CsI", Density: demoCsIDensity},
					{Formula: "Gd2O2S", Density: demoGd2O2SDensity},
				},
				Thickness: 0.1, Bound: config.BoundConfig{Lower: 0.01, Upper: 1.0}, Optimize: true,
			},
		},
		Datasets: []config.DatasetConfig{
			{
				Path:        "dataset0.json",
				Combination: config.CombinationConfig{Source: 0, Filters: []int{0}, Scintillator: 0},
			},
		},
		Fit: config.FitConfig{
			LearningRate:  config.DefaultLearningRate,
			MaxIterations: config.DefaultMaxIterations,
			StopThreshold: 1e-4,
			Optimizer:     config.DefaultOptimizer,
			Loss:          config.DefaultLoss,
		},
	}
}

// demoTruthModel is the fully resolved generator configuration.
func demoTruthModel(table spectral.AttenuationProvider, st *config.SourceTable, grid []float64) (*spectral.Composite, error) {
	src, err := spectral.NewSource(st.Voltages, st.Spectra,
		spectral.Bound{Lower: 30, Upper: 160}, demoVoltage, false)
	if err != nil {
		return nil, err
	}
	flt, err := spectral.NewFilter(table,
		[]spectral.Material{{Formula: "Al", Density: 2.699}},
		spectral.Bound{Lower: 0, Upper: 10}, demoFilterThick, false)
	if err != nil {
		return nil, err
	}
	scn, err := spectral.NewScintillator(table,
		[]spectral.Material{{Formula: "CsI", Density: demoCsIDensity}},
		spectral.Bound{Lower: 0.01, Upper: 1.0}, demoScintThick, false)
	if err != nil {
		return nil, err
	}
	return spectral.NewComposite(grid, []*spectral.Source{src}, []*spectral.Filter{flt}, []*spectral.Scintillator{scn})
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
