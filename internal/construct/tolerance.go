// Package construct turns extracted polygons into kernel shapes: the
// four-level face fallback, per-building tolerance computation, shell
// sewing with multi-shell resolution and solid construction with the repair
// escalation ladder.
package construct

import (
	"github.com/geoforge/gml2step/internal/config"
	"github.com/geoforge/gml2step/internal/geom"
)

// toleranceSpec maps a precision mode to a fraction of the building's
// coordinate extent plus the absolute clamp for the resulting tolerance.
type toleranceSpec struct {
	fraction float64
	min, max float64
}

var toleranceSpecs = map[config.PrecisionMode]toleranceSpec{
	config.PrecisionStandard: {1e-4, 1e-5, 1.0},
	config.PrecisionHigh:     {1e-5, 1e-6, 0.5},
	config.PrecisionMaximum:  {1e-6, 1e-7, 0.1},
	config.PrecisionUltra:    {1e-7, 1e-8, 0.01},
}

// Tolerance derives the per-building tolerance from the largest bounding
// box extent of its sampled vertices and the precision mode. Computed once
// per building and consumed by every sewing and fixing step within it.
func Tolerance(extent float64, mode config.PrecisionMode) float64 {
	spec, ok := toleranceSpecs[mode]
	if !ok {
		spec = toleranceSpecs[config.PrecisionStandard]
	}
	tol := extent * spec.fraction
	if tol < spec.min {
		return spec.min
	}
	if tol > spec.max {
		return spec.max
	}
	return tol
}

// ExtentOf returns the largest bounding-box side over all given rings.
func ExtentOf(rings []geom.Ring) float64 {
	var b geom.BBox
	for _, r := range rings {
		b.ExtendRing(r)
	}
	return b.MaxExtent()
}
