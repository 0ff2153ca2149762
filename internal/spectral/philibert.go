package spectral

import (
	"fmt"
	"math"

	"github.com/xraylab/speccal/internal/chem"
)

// Tungsten anode model constants.
const (
	anodeSymbol       = "W"
	anodeZ            = 74
	philibertConstant = 4.0e5
	philibertExponent = 1.65
)

// PhilibertFactor computes the Philibert absorption-correction factor for a
// tungsten anode: the fraction of generated photons that escape the anode
// given the tube voltage in kV, the takeoff angle in degrees and the photon
// energies in keV. Larger takeoff angles shorten the escape path and raise
// the factor.
func PhilibertFactor(provider AttenuationProvider, voltage, takeoffAngle float64, energies []float64) ([]float64, error) {
	if takeoffAngle <= 0 || takeoffAngle >= 90 {
		return nil, fmt.Errorf("takeoff angle %g deg outside (0, 90)", takeoffAngle)
	}

	weight, _ := chem.AtomicWeight(anodeSymbol)
	density, _ := chem.ElementDensity(anodeSymbol)

	sinPsi := math.Sin(takeoffAngle * math.Pi / 180)
	h := 1.2 * weight / (anodeZ * anodeZ)
	hFactor := h / (1 + h)
	kvpExp := math.Pow(voltage, philibertExponent)

	mu, err := provider.LinearAttenuation(density, anodeSymbol, energies)
	if err != nil {
		return nil, fmt.Errorf("anode attenuation: %w", err)
	}

	factor := make([]float64, len(energies))
	for i, e := range energies {
		kappa := philibertConstant / (kvpExp - e)
		x := mu[i] / (kappa * sinPsi)
		factor[i] = 1 / ((1 + x) * (1 + hFactor*x))
	}
	return factor, nil
}

// TakeoffAngleRatio converts a spectrum measured at the reference takeoff
// angle to the current one: philibert(current)/philibert(reference) per
// energy.
func TakeoffAngleRatio(provider AttenuationProvider, voltage, currentAngle, referenceAngle float64, energies []float64) ([]float64, error) {
	cur, err := PhilibertFactor(provider, voltage, currentAngle, energies)
	if err != nil {
		return nil, err
	}
	ref, err := PhilibertFactor(provider, voltage, referenceAngle, energies)
	if err != nil {
		return nil, err
	}
	ratio := make([]float64, len(energies))
	for i := range ratio {
		ratio[i] = cur[i] / ref[i]
	}
	return ratio, nil
}
