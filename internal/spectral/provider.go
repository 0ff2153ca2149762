package spectral

// AttenuationProvider supplies energy-dependent linear coefficients in 1/mm
// for a material given by formula and density. Implemented by chem.Table.
type AttenuationProvider interface {
	// LinearAttenuation returns the linear attenuation coefficient at each
	// energy in keV.
	LinearAttenuation(density float64, formula string, energies []float64) ([]float64, error)
	// LinearAbsorption returns the linear energy-absorption coefficient at
	// each energy in keV.
	LinearAbsorption(density float64, formula string, energies []float64) ([]float64, error)
}
