package config

// Presets are ready-made run configurations for common bench setups. Table
// and dataset paths are left empty; callers fill them in for their layout.
var Presets = map[string]*Config{
	"single-filter": {
		Energies: GridConfig{Min: 1.5, Max: 99.5, Step: 1.0},
		Sources: []SourceConfig{
			{Voltage: 100, Bound: BoundConfig{Lower: 30, Upper: 160}, Optimize: true},
		},
		Filters: []ComponentConfig{
			{
				Materials: []MaterialConfig{{Formula: "Al"}, {Formula: "Cu"}},
				Thickness: 2.0, Bound: BoundConfig{Lower: 0, Upper: 10}, Optimize: true,
			},
		},
		Scintillators: []ComponentConfig{
			{
				Materials: []MaterialConfig{
					{Formula: "CsI", Density: 4.51},
					{Formula: "Gd2O2S", Density: 7.32},
				},
				Thickness: 0.2, Bound: BoundConfig{Lower: 0.01, Upper: 1.0}, Optimize: true,
			},
		},
		Fit: FitConfig{
			LearningRate:  DefaultLearningRate,
			MaxIterations: DefaultMaxIterations,
			StopThreshold: DefaultStopThreshold,
			Optimizer:     DefaultOptimizer,
			Loss:          DefaultLoss,
		},
	},
	"shared-filter": {
		Energies: GridConfig{Min: 1.5, Max: 99.5, Step: 1.0},
		Sources: []SourceConfig{
			{Voltage: 80, Bound: BoundConfig{Lower: 30, Upper: 160}, Optimize: true},
			{Voltage: 120, Bound: BoundConfig{Lower: 30, Upper: 160}, Optimize: true},
		},
		Filters: []ComponentConfig{
			{
				Materials: []MaterialConfig{{Formula: "Al"}, {Formula: "Cu"}},
				Thickness: 2.0, Bound: BoundConfig{Lower: 0, Upper: 10}, Optimize: true,
			},
		},
		Scintillators: []ComponentConfig{
			{
				Materials: []MaterialConfig{{Formula: "CsI", Density: 4.51}},
				Thickness: 0.2, Bound: BoundConfig{Lower: 0.01, Upper: 1.0}, Optimize: true,
			},
		},
		Fit: FitConfig{
			LearningRate:  DefaultLearningRate,
			MaxIterations: DefaultMaxIterations,
			StopThreshold: DefaultStopThreshold,
			Optimizer:     DefaultOptimizer,
			Loss:          DefaultLoss,
		},
	},
}

func GetPreset(name string) *Config {
	return Presets[name]
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	return names
}
