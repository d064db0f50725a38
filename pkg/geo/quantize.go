package geo

import "math"

// MetersPerDegree is the length of one degree of latitude used for grid sizing.
const MetersPerDegree = 111_320.0

// minStep keeps the grid step strictly positive for degenerate tolerances.
const minStep = 1e-9

// CellKey identifies one quantization grid cell.
type CellKey struct {
	Lat, Lon int64
}

// Quantizer snaps coordinates onto a square degree grid so that points
// within roughly one tolerance of each other share a cell.
type Quantizer struct {
	step float64
}

// NewQuantizer returns a quantizer whose grid step is toleranceMeters
// converted to degrees. Non-positive or NaN tolerances clamp to the minimum step.
func NewQuantizer(toleranceMeters float64) Quantizer {
	step := toleranceMeters / MetersPerDegree
	if !(step > minStep) {
		step = minStep
	}
	return Quantizer{step: step}
}

// Step returns the grid step in degrees.
func (q Quantizer) Step() float64 { return q.step }

// Key returns the grid cell containing (lat, lon).
func (q Quantizer) Key(lat, lon float64) CellKey {
	return CellKey{
		Lat: int64(math.Round(lat / q.step)),
		Lon: int64(math.Round(lon / q.step)),
	}
}
