package crs

import (
	"fmt"

	"github.com/lukeroth/gdal"

	"github.com/geoforge/gml2step/internal/geom"
)

// NewGDALTransform builds the source→target reprojection via GDAL/PROJ.
// Returns the transform plus whether the source is geographic; for
// geographic sources the input axis order is assumed lat/lon (the CityGML
// urn convention) and swapped to lon/lat before handing coordinates to
// GDAL.
func NewGDALTransform(sourceEPSG, targetEPSG int) (Transform, bool, error) {
	src := gdal.CreateSpatialReference("")
	if err := src.FromEPSG(sourceEPSG); err != nil {
		return nil, false, fmt.Errorf("source EPSG:%d: %w", sourceEPSG, err)
	}
	dst := gdal.CreateSpatialReference("")
	if err := dst.FromEPSG(targetEPSG); err != nil {
		return nil, false, fmt.Errorf("target EPSG:%d: %w", targetEPSG, err)
	}

	geographic := src.IsGeographic()
	ct := gdal.CreateCoordinateTransform(src, dst)

	transform := func(p geom.Point3) geom.Point3 {
		x, y := p.X, p.Y
		if geographic {
			x, y = y, x // lat/lon -> lon/lat
		}
		xs := []float64{x}
		ys := []float64{y}
		zs := []float64{p.Z}
		ct.Transform(1, xs, ys, zs)
		return geom.Point3{X: xs[0], Y: ys[0], Z: zs[0]}
	}
	return transform, geographic, nil
}

// IsGeographicEPSG reports whether an EPSG code denotes a geographic CRS.
func IsGeographicEPSG(code int) (bool, error) {
	sr := gdal.CreateSpatialReference("")
	if err := sr.FromEPSG(code); err != nil {
		return false, fmt.Errorf("EPSG:%d: %w", code, err)
	}
	return sr.IsGeographic(), nil
}
