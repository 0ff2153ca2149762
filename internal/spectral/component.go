package spectral

// Component is one element of the imaging chain's energy response. Concrete
// variants are [Source], [Filter] and [Scintillator]; they are stored as
// ordered lists and selected per dataset by a [Combination].
type Component interface {
	// Forward evaluates the energy-dependent response at the current
	// parameter values.
	Forward(energies []float64) ([]float64, error)
	// PhysicalValue returns the component's primary physical parameter
	// (voltage in kV or thickness in mm), clamped into its bound.
	PhysicalValue() float64
	// Params returns the component's scalar parameters.
	Params() []*Param
}
