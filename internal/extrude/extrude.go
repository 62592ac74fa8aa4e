// Package extrude builds prism solids from building footprints: the LOD0
// footprint (or the ground surfaces when no footprint exists) is flattened,
// validated and unioned in 2D, then swept up to the building height.
package extrude

import (
	"fmt"
	"strconv"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"
	"github.com/twpayne/go-geos"

	"github.com/geoforge/gml2step/internal/brep"
	"github.com/geoforge/gml2step/internal/citygml"
	"github.com/geoforge/gml2step/internal/crs"
	"github.com/geoforge/gml2step/internal/geom"
	"github.com/geoforge/gml2step/internal/runlog"
)

// DefaultHeight is the extrusion height used when neither measuredHeight
// nor the configured height attribute yields a value.
const DefaultHeight = 10.0

// Options controls height resolution.
type Options struct {
	HeightAttribute string  // generic attribute holding the height, optional
	DefaultHeight   float64 // zero means DefaultHeight
}

// Extruder turns footprints into prism face sets for one conversion run.
type Extruder struct {
	Pipeline *crs.Pipeline
	Log      *runlog.Logger
	Opts     Options

	geosCtx *geos.Context
}

// Building extrudes one building's footprint. The returned faces sew into a
// closed prism; nil with a nil error means the building has no usable
// footprint.
func (e *Extruder) Building(b *citygml.Building) ([]*brep.Face, error) {
	log := e.Log.WithBuilding(b.ID())

	polys := b.Footprints(e.Log.Slog())
	if len(polys) == 0 {
		polys = e.groundSurfaces(b)
	}
	if len(polys) == 0 {
		log.Warn("no footprint or ground surface to extrude")
		return nil, nil
	}

	base, flat := e.flatten(polys)
	merged, err := e.mergeFootprint(flat)
	if err != nil {
		return nil, fmt.Errorf("footprint cleanup: %w", err)
	}
	if len(merged) == 0 {
		log.Warn("footprint collapsed during cleanup")
		return nil, nil
	}

	height := e.height(b)
	log.Info("extruding footprint",
		"polygons", len(merged), "base", base, "height", height)

	var faces []*brep.Face
	for _, poly := range merged {
		faces = append(faces, prism(poly, base, height)...)
	}
	return faces, nil
}

// groundSurfaces falls back to the GroundSurface thematic boundaries.
func (e *Extruder) groundSurfaces(b *citygml.Building) []citygml.Polygon {
	var out []citygml.Polygon
	for _, surf := range b.BoundarySurfaces() {
		if surf.Type != "GroundSurface" {
			continue
		}
		out = append(out, b.PolygonsIn(surf.El, e.Log.Slog())...)
	}
	return out
}

// flatten transforms the footprint into target coordinates and projects it
// to 2D, returning the base elevation (the lowest transformed Z).
func (e *Extruder) flatten(polys []citygml.Polygon) (float64, []orb.Polygon) {
	base := 0.0
	first := true
	out := make([]orb.Polygon, 0, len(polys))
	for _, p := range polys {
		op := orb.Polygon{flattenRing(e.Pipeline, p.Exterior, &base, &first)}
		for _, hole := range p.Interiors {
			op = append(op, flattenRing(e.Pipeline, hole, &base, &first))
		}
		out = append(out, op)
	}
	return base, out
}

func flattenRing(pipe *crs.Pipeline, r geom.Ring, base *float64, first *bool) orb.Ring {
	ring := make(orb.Ring, 0, len(r)+1)
	for _, p := range r {
		tp := pipe.Apply(p)
		if *first || tp.Z < *base {
			*base = tp.Z
			*first = false
		}
		ring = append(ring, orb.Point{tp.X, tp.Y})
	}
	// orb rings are explicitly closed
	if len(ring) > 0 && ring[0] != ring[len(ring)-1] {
		ring = append(ring, ring[0])
	}
	return ring
}

// mergeFootprint repairs each polygon and unions overlapping pieces so the
// prism walls do not self-intersect. The round-trip through WKT keeps the
// orb and GEOS representations decoupled.
func (e *Extruder) mergeFootprint(polys []orb.Polygon) ([]orb.Polygon, error) {
	if e.geosCtx == nil {
		e.geosCtx = geos.NewContext()
	}

	var acc *geos.Geom
	for _, p := range polys {
		g, err := e.geosCtx.NewGeomFromWKT(wkt.MarshalString(p))
		if err != nil {
			return nil, fmt.Errorf("parse footprint polygon: %w", err)
		}
		if !g.IsValid() {
			g = g.MakeValid()
		}
		if g.IsEmpty() {
			continue
		}
		if acc == nil {
			acc = g
		} else {
			acc = acc.Union(g)
		}
	}
	if acc == nil || acc.IsEmpty() {
		return nil, nil
	}

	merged, err := wkt.Unmarshal(acc.ToWKT())
	if err != nil {
		return nil, fmt.Errorf("decode merged footprint: %w", err)
	}
	switch g := merged.(type) {
	case orb.Polygon:
		return []orb.Polygon{g}, nil
	case orb.MultiPolygon:
		return g, nil
	default:
		return nil, fmt.Errorf("merged footprint is %T, expected polygon", merged)
	}
}

func (e *Extruder) height(b *citygml.Building) float64 {
	if h, ok := b.MeasuredHeight(); ok && h > 0 {
		return h
	}
	if e.Opts.HeightAttribute != "" {
		if v := b.GenericAttr(e.Opts.HeightAttribute); v != "" {
			if h, err := strconv.ParseFloat(v, 64); err == nil && h > 0 {
				return h
			}
			e.Log.WithBuilding(b.ID()).Warn("height attribute not a positive number",
				"attribute", e.Opts.HeightAttribute, "value", b.GenericAttr(e.Opts.HeightAttribute))
		}
	}
	if e.Opts.DefaultHeight > 0 {
		return e.Opts.DefaultHeight
	}
	return DefaultHeight
}

// prism builds the faces of one extruded polygon: bottom facing down, top
// facing up, and a wall quad per boundary edge. Exterior rings are
// normalized counterclockwise and holes clockwise so every wall normal
// points out of the material.
func prism(poly orb.Polygon, base, height float64) []*brep.Face {
	var faces []*brep.Face
	top := base + height

	rings := make([]orb.Ring, 0, len(poly))
	for i, r := range poly {
		r = normalize(r, i == 0)
		if len(r) < 4 { // closed ring: triangle needs 4 points
			continue
		}
		rings = append(rings, r)
	}
	if len(rings) == 0 {
		return nil
	}

	bottom := &brep.Face{Outer: reverse(ringAt(rings[0], base))}
	topFace := &brep.Face{Outer: ringAt(rings[0], top)}
	for _, hole := range rings[1:] {
		bottom.Holes = append(bottom.Holes, reverse(ringAt(hole, base)))
		topFace.Holes = append(topFace.Holes, ringAt(hole, top))
	}
	setPlane(bottom)
	setPlane(topFace)
	faces = append(faces, bottom, topFace)

	for _, r := range rings {
		open := r[:len(r)-1]
		for i, a := range open {
			b := open[(i+1)%len(open)]
			wall := &brep.Face{Outer: geom.Ring{
				{X: a[0], Y: a[1], Z: base},
				{X: b[0], Y: b[1], Z: base},
				{X: b[0], Y: b[1], Z: top},
				{X: a[0], Y: a[1], Z: top},
			}}
			setPlane(wall)
			faces = append(faces, wall)
		}
	}
	return faces
}

// normalize orients exterior rings counterclockwise and holes clockwise.
func normalize(r orb.Ring, exterior bool) orb.Ring {
	ccw := r.Orientation() == orb.CCW
	if ccw == exterior {
		return r
	}
	return reverseOrb(r)
}

func reverseOrb(r orb.Ring) orb.Ring {
	out := make(orb.Ring, len(r))
	for i, p := range r {
		out[len(r)-1-i] = p
	}
	return out
}

func ringAt(r orb.Ring, z float64) geom.Ring {
	open := r[:len(r)-1]
	out := make(geom.Ring, len(open))
	for i, p := range open {
		out[i] = geom.Point3{X: p[0], Y: p[1], Z: z}
	}
	return out
}

func reverse(r geom.Ring) geom.Ring {
	out := make(geom.Ring, len(r))
	for i, p := range r {
		out[len(r)-1-i] = p
	}
	return out
}

func setPlane(f *brep.Face) {
	if pl, _, ok := geom.FitPlane(f.Outer); ok {
		f.Plane = pl
	}
}
