// Package config defines the yaml run configuration for a calibration run:
// energy grid, reference tables, component descriptions with their bounds,
// datasets and fit settings.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	DefaultLearningRate  = 0.02
	DefaultMaxIterations = 5000
	DefaultStopThreshold = 1e-3
	DefaultOptimizer     = "adam"
	DefaultLoss          = "wmse"
)

// Config is the top-level run configuration.
type Config struct {
	Energies         GridConfig        `yaml:"energies"`
	AttenuationTable string            `yaml:"attenuation_table"`
	SourceTable      string            `yaml:"source_table"`
	Sources          []SourceConfig    `yaml:"sources"`
	Filters          []ComponentConfig `yaml:"filters"`
	Scintillators    []ComponentConfig `yaml:"scintillators"`
	Datasets         []DatasetConfig   `yaml:"datasets"`
	Fit              FitConfig         `yaml:"fit"`
}

// GridConfig describes a uniform energy grid in keV.
type GridConfig struct {
	Min  float64 `yaml:"min"`
	Max  float64 `yaml:"max"`
	Step float64 `yaml:"step"`
}

// BoundConfig is a physical parameter domain.
type BoundConfig struct {
	Lower float64 `yaml:"lower"`
	Upper float64 `yaml:"upper"`
}

// MaterialConfig names one candidate material. Density zero means look the
// formula up as a pure element.
type MaterialConfig struct {
	Formula string  `yaml:"formula"`
	Density float64 `yaml:"density"`
}

// TakeoffConfig enables the anode takeoff-angle correction for a source.
type TakeoffConfig struct {
	Angle          float64     `yaml:"angle"`
	ReferenceAngle float64     `yaml:"reference_angle"`
	Bound          BoundConfig `yaml:"bound"`
	Optimize       bool        `yaml:"optimize"`
}

// SourceConfig describes one X-ray source instance.
type SourceConfig struct {
	Voltage  float64        `yaml:"voltage"`
	Bound    BoundConfig    `yaml:"bound"`
	Optimize bool           `yaml:"optimize"`
	Takeoff  *TakeoffConfig `yaml:"takeoff,omitempty"`
}

// ComponentConfig describes one filter or scintillator slot with its
// candidate materials.
type ComponentConfig struct {
	Materials []MaterialConfig `yaml:"materials"`
	Thickness float64          `yaml:"thickness"`
	Bound     BoundConfig      `yaml:"bound"`
	Optimize  bool             `yaml:"optimize"`
}

// DatasetConfig points at one measurement record and the component
// combination that produced it.
type DatasetConfig struct {
	Path        string            `yaml:"path"`
	Combination CombinationConfig `yaml:"combination"`
}

// CombinationConfig selects one component per slot by index.
type CombinationConfig struct {
	Source       int   `yaml:"source"`
	Filters      []int `yaml:"filters"`
	Scintillator int   `yaml:"scintillator"`
}

// FitConfig holds the optimizer settings.
type FitConfig struct {
	LearningRate  float64 `yaml:"learning_rate"`
	MaxIterations int     `yaml:"max_iterations"`
	StopThreshold float64 `yaml:"stop_threshold"`
	Optimizer     string  `yaml:"optimizer"`
	Loss          string  `yaml:"loss"`
	Workers       int     `yaml:"workers"`
}

// DefaultConfig returns a config with fit defaults filled in; everything
// else is experiment-specific and must come from the file.
func DefaultConfig() *Config {
	return &Config{
		Fit: FitConfig{
			LearningRate:  DefaultLearningRate,
			MaxIterations: DefaultMaxIterations,
			StopThreshold: DefaultStopThreshold,
			Optimizer:     DefaultOptimizer,
			Loss:          DefaultLoss,
		},
	}
}

// Load reads a yaml config over the defaults and validates it.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the config as yaml.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks the structural constraints that do not need the
// referenced files: grid shape, bounds, candidate lists, indices.
func (c *Config) Validate() error {
	if c.Energies.Step <= 0 || c.Energies.Max <= c.Energies.Min {
		return fmt.Errorf("invalid energy grid [%g, %g] step %g", c.Energies.Min, c.Energies.Max, c.Energies.Step)
	}
	if len(c.Sources) == 0 {
		return fmt.Errorf("no sources configured")
	}
	if len(c.Filters) == 0 {
		return fmt.Errorf("no filters configured")
	}
	if len(c.Scintillators) == 0 {
		return fmt.Errorf("no scintillators configured")
	}
	for i, s := range c.Sources {
		if s.Bound.Lower >= s.Bound.Upper {
			return fmt.Errorf("source %d: invalid voltage bound [%g, %g]", i, s.Bound.Lower, s.Bound.Upper)
		}
		if t := s.Takeoff; t != nil {
			if t.Angle <= 0 || t.Angle >= 90 || t.ReferenceAngle <= 0 || t.ReferenceAngle >= 90 {
				return fmt.Errorf("source %d: takeoff angles must lie in (0, 90) degrees", i)
			}
			if t.Optimize && t.Bound.Lower >= t.Bound.Upper {
				return fmt.Errorf("source %d: invalid takeoff bound [%g, %g]", i, t.Bound.Lower, t.Bound.Upper)
			}
		}
	}
	for i, f := range c.Filters {
		if len(f.Materials) == 0 {
			return fmt.Errorf("filter %d: no candidate materials", i)
		}
		if f.Bound.Lower >= f.Bound.Upper {
			return fmt.Errorf("filter %d: invalid thickness bound [%g, %g]", i, f.Bound.Lower, f.Bound.Upper)
		}
	}
	for i, s := range c.Scintillators {
		if len(s.Materials) == 0 {
			return fmt.Errorf("scintillator %d: no candidate materials", i)
		}
		if s.Bound.Lower >= s.Bound.Upper {
			return fmt.Errorf("scintillator %d: invalid thickness bound [%g, %g]", i, s.Bound.Lower, s.Bound.Upper)
		}
	}
	if len(c.Datasets) == 0 {
		return fmt.Errorf("no datasets configured")
	}
	for i, d := range c.Datasets {
		mc := d.Combination
		if mc.Source < 0 || mc.Source >= len(c.Sources) {
			return fmt.Errorf("dataset %d: source index %d out of range", i, mc.Source)
		}
		if len(mc.Filters) == 0 {
			return fmt.Errorf("dataset %d: empty filter chain", i)
		}
		for _, fi := range mc.Filters {
			if fi < 0 || fi >= len(c.Filters) {
				return fmt.Errorf("dataset %d: filter index %d out of range", i, fi)
			}
		}
		if mc.Scintillator < 0 || mc.Scintillator >= len(c.Scintillators) {
			return fmt.Errorf("dataset %d: scintillator index %d out of range", i, mc.Scintillator)
		}
	}
	return nil
}

// Grid materializes the uniform energy grid, inclusive of Min, stopping at
// or below Max.
func (g GridConfig) Grid() []float64 {
	n := int((g.Max-g.Min)/g.Step+1e-9) + 1
	grid := make([]float64, n)
	for i := range grid {
		grid[i] = g.Min + float64(i)*g.Step
	}
	return grid
}
