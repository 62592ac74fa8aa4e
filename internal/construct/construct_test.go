package construct

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/geoforge/gml2step/internal/brep"
	"github.com/geoforge/gml2step/internal/config"
	"github.com/geoforge/gml2step/internal/geom"
	"github.com/geoforge/gml2step/internal/runlog"
)

func testLog() *runlog.Logger {
	return runlog.New(slog.New(slog.NewTextHandler(io.Discard, nil)), "test")
}

func p(x, y, z float64) geom.Point3 { return geom.Point3{X: x, Y: y, Z: z} }

// boxFaces returns the six outward-oriented faces of an axis-aligned box.
func boxFaces(min, max geom.Point3) []*brep.Face {
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
	return faces
}

func cubeFaces() []*brep.Face {
	return boxFaces(geom.Point3{}, p(10, 10, 10))
}

var allModes = []config.PrecisionMode{
	config.PrecisionStandard,
	config.PrecisionHigh,
	config.PrecisionMaximum,
	config.PrecisionUltra,
}

func TestToleranceDecreasesWithPrecision(t *testing.T) {
	for _, extent := range []float64{0.5, 10, 250, 5000, 1e6} {
		prev := 0.0
		for i, mode := range allModes {
			tol := Tolerance(extent, mode)
			require.Greater(t, tol, 0.0)
			if i > 0 {
				require.Less(t, tol, prev, "mode %s at extent %g", mode, extent)
			}
			prev = tol
		}
	}
}

func TestToleranceClamps(t *testing.T) {
	// huge extents hit the absolute ceiling
	require.Equal(t, 1.0, Tolerance(1e9, config.PrecisionStandard))
	require.Equal(t, 0.01, Tolerance(1e9, config.PrecisionUltra))
	// tiny extents hit the floor
	require.Equal(t, 1e-5, Tolerance(1e-3, config.PrecisionStandard))
	require.Equal(t, 1e-8, Tolerance(1e-3, config.PrecisionUltra))
	// unknown modes fall back to standard
	require.Equal(t, Tolerance(100, config.PrecisionStandard), Tolerance(100, config.PrecisionMode("bogus")))
}

func TestExtentOf(t *testing.T) {
	rings := []geom.Ring{
		{p(0, 0, 0), p(5, 0, 0), p(5, 3, 0)},
		{p(0, 0, 0), p(0, 0, 12), p(0, 3, 12)},
	}
	require.InDelta(t, 12, ExtentOf(rings), 1e-12)
}

func TestBuildFaceDirect(t *testing.T) {
	outer := geom.Ring{p(0, 0, 0), p(10, 0, 0), p(10, 10, 0), p(0, 10, 0)}
	hole := geom.Ring{p(4, 4, 0), p(6, 4, 0), p(6, 6, 0), p(4, 6, 0)}
	res := BuildFace(outer, []geom.Ring{hole}, 1e-3)
	require.Equal(t, 1, res.Level)
	require.Len(t, res.Faces, 1)
	require.Equal(t, brep.QualityDirect, res.Faces[0].Quality)
	require.Len(t, res.Faces[0].Holes, 1)
}

func TestBuildFaceProjectsWarpedRing(t *testing.T) {
	// one corner lifted well past the relaxed planarity bound
	outer := geom.Ring{p(0, 0, 0), p(10, 0, 0), p(10, 10, 0.5), p(0, 10, 0)}
	res := BuildFace(outer, nil, 1e-3)
	require.Equal(t, 2, res.Level)
	require.Len(t, res.Faces, 1)
	require.Equal(t, brep.QualityProjected, res.Faces[0].Quality)

	// the projected ring must actually lie in a plane
	_, dev, ok := geom.FitPlane(res.Faces[0].Outer)
	require.True(t, ok)
	require.Less(t, dev, 1e-9)
}

func TestBuildFaceDegenerateRing(t *testing.T) {
	collinear := geom.Ring{p(0, 0, 0), p(5, 0, 0), p(10, 0, 0)}
	res := BuildFace(collinear, nil, 1e-3)
	require.Empty(t, res.Faces)

	tiny := geom.Ring{p(0, 0, 0), p(1e-5, 0, 0)}
	require.Empty(t, BuildFace(tiny, nil, 1e-3).Faces)
}

func TestBuildFaceDropsDegenerateHole(t *testing.T) {
	outer := geom.Ring{p(0, 0, 0), p(10, 0, 0), p(10, 10, 0), p(0, 10, 0)}
	badHole := geom.Ring{p(2, 2, 0), p(3, 2, 0), p(4, 2, 0)} // collinear
	res := BuildFace(outer, []geom.Ring{badHole}, 1e-3)
	require.Equal(t, 1, res.Level)
	require.Empty(t, res.Faces[0].Holes)
}

func TestBuildShellsCube(t *testing.T) {
	shells := BuildShells(cubeFaces(), 1e-3, config.FixStandard, testLog())
	require.Len(t, shells, 1)
	rep := brep.ValidateShell(shells[0], 1e-3)
	require.True(t, rep.Closed)
}

// translate shifts every vertex of a face by dx.
func translateFace(f *brep.Face, dx geom.Point3) {
	for i := range f.Outer {
		f.Outer[i] = f.Outer[i].Add(dx)
	}
}

func TestBuildShellsUltraWeldsLooseFace(t *testing.T) {
	const tol = 1e-3
	faces := cubeFaces()
	// top face displaced by 8 tolerances: too far for a direct sew, close
	// enough for the coarse ultra pass
	translateFace(faces[1], p(0.008, 0, 0))

	standard := BuildShells(faces, tol, config.FixStandard, testLog())
	require.Greater(t, len(standard), 1)

	faces = cubeFaces()
	translateFace(faces[1], p(0.008, 0, 0))
	ultra := BuildShells(faces, tol, config.FixUltra, testLog())
	require.Len(t, ultra, 1)
	require.True(t, brep.ValidateShell(ultra[0], tol).Closed)
}

func TestBuildSolidCube(t *testing.T) {
	out := BuildSolid(cubeFaces(), nil, 1e-3, config.FixStandard, testLog())
	require.True(t, out.Valid)
	require.Empty(t, out.Escalation)
	require.Equal(t, brep.KindSolid, out.Shape.Kind())

	solid := out.Shape.(*brep.Solid)
	require.InDelta(t, 1000, brep.SignedVolume(solid.Outer), 1e-6)
}

func TestBuildSolidEscalatesOnSliverFace(t *testing.T) {
	const tol = 1e-3
	faces := cubeFaces()
	// zero-area sliver riding a top edge; it triples the edge use count and
	// breaks closedness until a repair pass drops it
	sliver := geom.Ring{p(0, 0, 10), p(10, 0, 10), p(5, 1e-8, 10)}
	pl, _, _ := geom.FitPlane(sliver)
	faces = append(faces, &brep.Face{Outer: sliver, Plane: pl})

	out := BuildSolid(faces, nil, tol, config.FixMinimal, testLog())
	require.True(t, out.Valid)
	require.Equal(t, "repair", out.Escalation)
	require.Equal(t, brep.KindSolid, out.Shape.Kind())
}

func TestBuildSolidEscalationIsDeterministic(t *testing.T) {
	const tol = 1e-3
	build := func() Outcome {
		faces := cubeFaces()
		sliver := geom.Ring{p(0, 0, 10), p(10, 0, 10), p(5, 1e-8, 10)}
		pl, _, _ := geom.FitPlane(sliver)
		faces = append(faces, &brep.Face{Outer: sliver, Plane: pl})
		return BuildSolid(faces, nil, tol, config.FixMinimal, testLog())
	}

	first := build()
	second := build()
	require.Equal(t, first.Escalation, second.Escalation)
	require.Equal(t, first.Valid, second.Valid)
	require.Equal(t, first.Shape.Kind(), second.Shape.Kind())
}

func TestBuildSolidDowngradesOpenBox(t *testing.T) {
	faces := cubeFaces()[:5]
	out := BuildSolid(faces, nil, 1e-3, config.FixStandard, testLog())
	require.NotNil(t, out.Shape)
	require.False(t, out.Valid)
	require.Equal(t, "downgrade", out.Escalation)
	require.Equal(t, brep.KindShell, out.Shape.Kind())
}

func TestBuildSolidWithCavity(t *testing.T) {
	outer := cubeFaces()
	inner := boxFaces(p(4, 4, 4), p(6, 6, 6))

	out := BuildSolid(outer, [][]*brep.Face{inner}, 1e-3, config.FixStandard, testLog())
	require.True(t, out.Valid)
	solid := out.Shape.(*brep.Solid)
	require.Len(t, solid.Cavities, 1)
	require.Negative(t, brep.SignedVolume(solid.Cavities[0]))
}

func TestBuildSolidDropsOpenCavity(t *testing.T) {
	outer := cubeFaces()
	openInner := boxFaces(p(4, 4, 4), p(6, 6, 6))[:5]

	out := BuildSolid(outer, [][]*brep.Face{openInner}, 1e-3, config.FixStandard, testLog())
	require.True(t, out.Valid)
	require.Empty(t, out.Shape.(*brep.Solid).Cavities)
}

func TestBuildSolidEmptyInput(t *testing.T) {
	out := BuildSolid(nil, nil, 1e-3, config.FixStandard, testLog())
	require.Nil(t, out.Shape)
	require.False(t, out.Valid)
}
