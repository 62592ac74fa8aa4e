// Package crs handles the coordinate pipeline: detecting the source
// reference system, selecting a projected target for geographic input,
// building the GDAL transform and recentering coordinates near the origin
// for numerical stability.
package crs

import (
	"regexp"
	"strconv"

	"github.com/geoforge/gml2step/internal/geom"
)

// RecenterThreshold is the bounding-box-center distance from the origin
// beyond which coordinates are recentered before construction.
const RecenterThreshold = 1.0

// Transform maps a source coordinate to target coordinates.
type Transform func(geom.Point3) geom.Point3

// Identity passes coordinates through unchanged.
func Identity(p geom.Point3) geom.Point3 { return p }

// Pipeline is the per-run coordinate pipeline: an optional reprojection
// followed by an optional recentering translation.
type Pipeline struct {
	SourceEPSG int
	TargetEPSG int
	Geographic bool // source uses geographic (lat/lon) coordinates

	transform Transform
	Offset    geom.Point3 // subtracted after transformation
}

// NewPipeline builds a pipeline around a raw transform; nil means identity.
func NewPipeline(sourceEPSG, targetEPSG int, geographic bool, t Transform) *Pipeline {
	if t == nil {
		t = Identity
	}
	return &Pipeline{SourceEPSG: sourceEPSG, TargetEPSG: targetEPSG, Geographic: geographic, transform: t}
}

// Apply transforms and recenters one coordinate.
func (p *Pipeline) Apply(pt geom.Point3) geom.Point3 {
	return p.transform(pt).Sub(p.Offset)
}

// ApplyRaw transforms without recentering; used while the offset is still
// being computed.
func (p *Pipeline) ApplyRaw(pt geom.Point3) geom.Point3 {
	return p.transform(pt)
}

// SetRecenter derives the recentering offset from the transformed
// bounding-box center: zero when the center is already within
// RecenterThreshold of the origin. Must run before tolerances are computed.
func (p *Pipeline) SetRecenter(center geom.Point3) {
	if center.Norm() < RecenterThreshold {
		p.Offset = geom.Point3{}
		return
	}
	p.Offset = center
}

// Recentered reports whether the pipeline applies a nonzero offset.
func (p *Pipeline) Recentered() bool { return p.Offset != (geom.Point3{}) }

var epsgPattern = regexp.MustCompile(`(?i)EPSG[:/]{1,2}(?:[0-9.]+[:/])?([0-9]+)`)

// ParseEPSG extracts an EPSG code from the srsName notations seen in the
// wild: "EPSG:25832", "urn:ogc:def:crs:EPSG::25832",
// "http://www.opengis.net/def/crs/EPSG/0/25832".
func ParseEPSG(srsName string) (int, bool) {
	m := epsgPattern.FindStringSubmatch(srsName)
	if m == nil {
		return 0, false
	}
	code, err := strconv.Atoi(m[1])
	if err != nil || code == 0 {
		return 0, false
	}
	return code, true
}

// LooksGeographic classifies a sample coordinate as geographic when both
// horizontal components are within valid degree ranges. Used as a fallback
// when no CRS declaration is present.
func LooksGeographic(p geom.Point3) bool {
	inLon := p.X >= -180 && p.X <= 180
	inLat := p.Y >= -90 && p.Y <= 90
	inLonSwapped := p.Y >= -180 && p.Y <= 180
	inLatSwapped := p.X >= -90 && p.X <= 90
	return (inLon && inLat) || (inLonSwapped && inLatSwapped)
}

// UTMZoneEPSG returns the EPSG code of the UTM zone containing the sample
// longitude/latitude: 326xx north of the equator, 327xx south.
func UTMZoneEPSG(lon, lat float64) int {
	zone := int((lon+180)/6) + 1
	if zone < 1 {
		zone = 1
	}
	if zone > 60 {
		zone = 60
	}
	if lat >= 0 {
		return 32600 + zone
	}
	return 32700 + zone
}

// DefaultProjectedEPSG is the planar fallback when a geographic source
// yields no usable sample coordinate: WGS 84 / Pseudo-Mercator.
const DefaultProjectedEPSG = 3857
