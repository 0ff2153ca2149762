package spectral

import (
	"fmt"
	"sort"
)

// Source models the X-ray tube output: reference spectra interpolated at the
// current voltage, optionally corrected for a takeoff angle differing from
// the reference acquisition angle.
type Source struct {
	voltages []float64
	spectra  [][]float64

	voltage *Param

	// Takeoff-angle correction state; takeoff is nil for fixed geometry.
	provider   AttenuationProvider
	takeoff    *Param
	refTakeoff float64
}

// NewSource builds a source from reference spectra. Voltages must be
// strictly increasing and each spectrum must cover the same number of energy
// bins. The voltage parameter starts at voltage within bound and is mutable
// by the fit loop when optimize is set.
func NewSource(voltages []float64, spectra [][]float64, bound Bound, voltage float64, optimize bool) (*Source, error) {
	if len(voltages) == 0 || len(voltages) != len(spectra) {
		return nil, fmt.Errorf("source: %d reference voltages for %d spectra", len(voltages), len(spectra))
	}
	if !sort.Float64sAreSorted(voltages) {
		return nil, fmt.Errorf("source: reference voltages are not sorted")
	}
	for i := 1; i < len(voltages); i++ {
		if voltages[i] == voltages[i-1] {
			return nil, fmt.Errorf("source: duplicate reference voltage %g", voltages[i])
		}
	}
	for i := 1; i < len(spectra); i++ {
		if len(spectra[i]) != len(spectra[0]) {
			return nil, fmt.Errorf("source: spectrum %d has %d bins, want %d", i, len(spectra[i]), len(spectra[0]))
		}
	}

	p, err := NewParam("voltage", voltage, bound, optimize)
	if err != nil {
		return nil, fmt.Errorf("source: %w", err)
	}
	return &Source{voltages: voltages, spectra: spectra, voltage: p}, nil
}

// SetTakeoffAngle enables the anode self-absorption correction. The
// reference spectra are assumed acquired at referenceAngle; Forward rescales
// them to the current angle, which is itself optimizable within bound.
func (s *Source) SetTakeoffAngle(provider AttenuationProvider, angle float64, bound Bound, referenceAngle float64, optimize bool) error {
	p, err := NewParam("takeoff_angle", angle, bound, optimize)
	if err != nil {
		return fmt.Errorf("source: %w", err)
	}
	s.provider = provider
	s.takeoff = p
	s.refTakeoff = referenceAngle
	return nil
}

// Voltage returns the clamped tube voltage in kV.
func (s *Source) Voltage() float64 { return s.voltage.Value() }

// TakeoffAngle returns the clamped takeoff angle in degrees and whether the
// correction is enabled.
func (s *Source) TakeoffAngle() (float64, bool) {
	if s.takeoff == nil {
		return 0, false
	}
	return s.takeoff.Value(), true
}

// PhysicalValue returns the tube voltage.
func (s *Source) PhysicalValue() float64 { return s.Voltage() }

// Params returns the voltage parameter, plus the takeoff angle when the
// correction is enabled.
func (s *Source) Params() []*Param {
	if s.takeoff == nil {
		return []*Param{s.voltage}
	}
	return []*Param{s.voltage, s.takeoff}
}

// Forward returns the source spectrum at the current voltage.
func (s *Source) Forward(energies []float64) ([]float64, error) {
	spec := InterpolateSpectrum(energies, s.voltages, s.spectra, s.Voltage())
	if s.takeoff == nil {
		return spec, nil
	}

	ratio, err := TakeoffAngleRatio(s.provider, s.Voltage(), s.takeoff.Value(), s.refTakeoff, energies)
	if err != nil {
		return nil, err
	}
	for i := range spec {
		spec[i] *= ratio[i]
	}
	return spec, nil
}

// Clone returns an independent copy sharing the immutable reference table.
func (s *Source) Clone() *Source {
	c := &Source{
		voltages:   s.voltages,
		spectra:    s.spectra,
		voltage:    s.voltage.clone(),
		provider:   s.provider,
		refTakeoff: s.refTakeoff,
	}
	if s.takeoff != nil {
		c.takeoff = s.takeoff.clone()
	}
	return c
}
