package dataset

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/xraylab/speccal/internal/spectral"
)

// Disk is a homogeneous cylinder in the scanned plane, the basic phantom
// shape. Radius and center are in mm.
type Disk struct {
	Material spectral.Material
	Radius   float64
	CenterX  float64
	CenterY  float64
}

// ForwardMatrix computes the transmission forward matrix for a parallel-beam
// scan of the given phantom: one row per (view, channel) ray, one column per
// energy bin, each entry exp(-sum over disks of pathlength*mu(E)).
//
// Angles are view angles in radians; channels rays per view, spaced
// pixelSize mm apart and centered on the rotation axis. Disk path lengths
// are analytic chords, so no rasterized mask is needed.
func ForwardMatrix(provider spectral.AttenuationProvider, disks []Disk, energies []float64, angles []float64, channels int, pixelSize float64) (*mat.Dense, error) {
	if len(disks) == 0 {
		return nil, fmt.Errorf("synth: no phantom disks")
	}
	if channels <= 0 || pixelSize <= 0 {
		return nil, fmt.Errorf("synth: need positive channel count and pixel size")
	}

	mus := make([][]float64, len(disks))
	for i, d := range disks {
		mu, err := provider.LinearAttenuation(d.Material.Density, d.Material.Formula, energies)
		if err != nil {
			return nil, fmt.Errorf("synth: disk %d: %w", i, err)
		}
		mus[i] = mu
	}

	rows := len(angles) * channels
	F := mat.NewDense(rows, len(energies), nil)
	row := make([]float64, len(energies))

	for vi, theta := range angles {
		// Ray normal; detector coordinate is the projection onto it.
		nx, ny := -math.Sin(theta), math.Cos(theta)
		for ch := 0; ch < channels; ch++ {
			offset := (float64(ch) - float64(channels)/2 + 0.5) * pixelSize

			for j := range row {
				row[j] = 0
			}
			for di, d := range disks {
				dist := math.Abs(d.CenterX*nx + d.CenterY*ny - offset)
				if dist >= d.Radius {
					continue
				}
				chord := 2 * math.Sqrt(d.Radius*d.Radius-dist*dist)
				for j := range row {
					row[j] += chord * mus[di][j]
				}
			}
			for j := range row {
				row[j] = math.Exp(-row[j])
			}
			F.SetRow(vi*channels+ch, row)
		}
	}
	return F, nil
}

// Generate produces a noiseless synthetic record from a fully resolved
// ground-truth model: the transmission the model itself predicts through F,
// plus the ground-truth metadata for later validation.
func Generate(model *spectral.Composite, comb spectral.Combination, F *mat.Dense) (*Record, error) {
	y, err := model.PredictTransmission(F, comb)
	if err != nil {
		return nil, fmt.Errorf("synth: %w", err)
	}

	rows, cols := F.Dims()
	forward := make([][]float64, rows)
	for i := 0; i < rows; i++ {
		forward[i] = make([]float64, cols)
		copy(forward[i], F.RawRowView(i))
	}

	gt := &GroundTruth{Voltage: model.Sources[comb.Source].Voltage()}
	if m, ok := model.Filters[comb.Filters[0]].Material(); ok {
		gt.FilterFormula = m.Formula
		gt.FilterDensity = m.Density
		gt.FilterThickness = model.Filters[comb.Filters[0]].Thickness()
	}
	if m, ok := model.Scintillators[comb.Scintillator].Material(); ok {
		gt.ScintillatorFormula = m.Formula
		gt.ScintillatorDensity = m.Density
		gt.ScintillatorThickness = model.Scintillators[comb.Scintillator].Thickness()
	}

	return &Record{Transmission: y, Forward: forward, GroundTruth: gt}, nil
}
