package fuse

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/geoforge/gml2step/internal/brep"
	"github.com/geoforge/gml2step/internal/geom"
	"github.com/geoforge/gml2step/internal/runlog"
)

func testLog() *runlog.Logger {
	return runlog.New(slog.New(slog.NewTextHandler(io.Discard, nil)), "test")
}

func boxSolid(t *testing.T, min, max geom.Point3) *brep.Solid {
	t.Helper()
	p := func(x, y, z float64) geom.Point3 { return geom.Point3{X: x, Y: y, Z: z} }
	quads := [][4]geom.Point3{
		{p(min.X, min.Y, min.Z), p(min.X, max.Y, min.Z), p(max.X, max.Y, min.Z), p(max.X, min.Y, min.Z)},
		{p(min.X, min.Y, max.Z), p(max.X, min.Y, max.Z), p(max.X, max.Y, max.Z), p(min.X, max.Y, max.Z)},
		{p(min.X, min.Y, min.Z), p(max.X, min.Y, min.Z), p(max.X, min.Y, max.Z), p(min.X, min.Y, max.Z)},
		{p(min.X, max.Y, min.Z), p(min.X, max.Y, max.Z), p(max.X, max.Y, max.Z), p(max.X, max.Y, min.Z)},
		{p(min.X, min.Y, min.Z), p(min.X, min.Y, max.Z), p(min.X, max.Y, max.Z), p(min.X, max.Y, min.Z)},
		{p(max.X, min.Y, min.Z), p(max.X, max.Y, min.Z), p(max.X, max.Y, max.Z), p(max.X, min.Y, max.Z)},
	}
	faces := make([]*brep.Face, 0, 6)
	for _, q := range quads {
		ring := geom.Ring{q[0], q[1], q[2], q[3]}
		pl, _, _ := geom.FitPlane(ring)
		faces = append(faces, &brep.Face{Outer: ring, Plane: pl})
	}
	shells := brep.Sew(faces, 1e-6)
	require.Len(t, shells, 1)
	return &brep.Solid{Outer: shells[0]}
}

func pt(x, y, z float64) geom.Point3 { return geom.Point3{X: x, Y: y, Z: z} }

func TestFuseAdjacentParts(t *testing.T) {
	a := boxSolid(t, geom.Point3{}, pt(10, 10, 10))
	b := boxSolid(t, pt(10, 0, 0), pt(20, 10, 10))

	shape := Fuse([]brep.Shape{a, b}, true, 1e-6, testLog())
	solid, ok := shape.(*brep.Solid)
	require.True(t, ok)
	require.InDelta(t, 2000, brep.SignedVolume(solid.Outer), 1e-6)
	require.True(t, brep.ValidateSolid(solid, 1e-6).Valid())
}

func TestFuseDisjointPartsFallsBack(t *testing.T) {
	a := boxSolid(t, geom.Point3{}, pt(10, 10, 10))
	b := boxSolid(t, pt(50, 0, 0), pt(60, 10, 10))

	shape := Fuse([]brep.Shape{a, b}, true, 1e-6, testLog())
	comp, ok := shape.(*brep.Compound)
	require.True(t, ok)
	require.Len(t, comp.Shapes, 2)
}

func TestFuseManyDisjointPartsNeverFails(t *testing.T) {
	var shapes []brep.Shape
	for i := 0; i < 10; i++ {
		x := float64(i) * 30
		shapes = append(shapes, boxSolid(t, pt(x, 0, 0), pt(x+10, 10, 10)))
	}
	shape := Fuse(shapes, true, 1e-6, testLog())
	require.NotNil(t, shape)
	require.Len(t, shape.(*brep.Compound).Shapes, 10)
}

func TestFuseMergeDisabled(t *testing.T) {
	a := boxSolid(t, geom.Point3{}, pt(10, 10, 10))
	b := boxSolid(t, pt(10, 0, 0), pt(20, 10, 10))

	shape := Fuse([]brep.Shape{a, b}, false, 1e-6, testLog())
	comp, ok := shape.(*brep.Compound)
	require.True(t, ok)
	require.Len(t, comp.Shapes, 2)
}

func TestFuseNonSolidPart(t *testing.T) {
	a := boxSolid(t, geom.Point3{}, pt(10, 10, 10))
	openShell := &brep.Shell{FaceList: a.Outer.FaceList[:5]}

	shape := Fuse([]brep.Shape{a, openShell}, true, 1e-6, testLog())
	_, ok := shape.(*brep.Compound)
	require.True(t, ok)
}

func TestFuseSingleShapePassthrough(t *testing.T) {
	a := boxSolid(t, geom.Point3{}, pt(10, 10, 10))
	require.Same(t, brep.Shape(a), Fuse([]brep.Shape{a}, true, 1e-6, testLog()))
	require.Nil(t, Fuse(nil, true, 1e-6, testLog()))
}
