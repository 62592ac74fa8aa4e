package construct

import (
	"github.com/geoforge/gml2step/internal/brep"
	"github.com/geoforge/gml2step/internal/geom"
)

// planarityLax is the factor by which the direct build level relaxes
// planarity: a ring deviating from its best-fit plane by up to this many
// tolerances is still accepted unprojected.
const planarityLax = 10

// repairMaxFactor bounds the deviation the face-repair level accepts after
// cleanup, in tolerances.
const repairMaxFactor = 100

// FaceResult carries the built faces and the fallback level that produced
// them. Level 0 with no faces means the ring was degenerate beyond saving.
type FaceResult struct {
	Faces []*brep.Face
	Level int // 1 direct, 2 projected, 3 repaired, 4 triangulated
}

// BuildFace turns one ring set into kernel faces, escalating through the
// fallback levels and stopping at the first success. It never fails hard:
// a ring with no usable geometry yields an empty result.
func BuildFace(outer geom.Ring, holes []geom.Ring, tol float64) FaceResult {
	clean := outer.Dedup(tol)
	if len(clean) < 3 {
		return FaceResult{}
	}

	// level 1: direct build, planarity relaxed
	if pl, dev, ok := geom.FitPlane(clean); ok && dev <= tol*planarityLax {
		if f := assembleFace(clean, holes, pl, tol, brep.QualityDirect); f != nil {
			return FaceResult{Faces: []*brep.Face{f}, Level: 1}
		}
	}

	// level 2: project everything onto the best-fit plane and retry
	if pl, _, ok := geom.FitPlane(clean); ok {
		projected := projectRing(clean, pl)
		if !projected.IsDegenerate(tol) {
			if f := assembleFace(projected, projectHoles(holes, pl), pl, tol, brep.QualityProjected); f != nil {
				return FaceResult{Faces: []*brep.Face{f}, Level: 2}
			}
		}
	}

	// level 3: dedicated repair pass on the unprojected wire
	if f := repairFace(clean, holes, tol); f != nil {
		return FaceResult{Faces: []*brep.Face{f}, Level: 3}
	}

	// level 4: triangle fan, guaranteed planar; holes are dropped here,
	// acceptable for a last resort where holes are rare
	tris := geom.FanTriangulate(clean, tol)
	if len(tris) == 0 {
		return FaceResult{}
	}
	faces := make([]*brep.Face, 0, len(tris))
	for _, t := range tris {
		ring := geom.Ring{t[0], t[1], t[2]}
		pl, _, ok := geom.FitPlane(ring)
		if !ok {
			continue
		}
		faces = append(faces, &brep.Face{
			Outer:   ring,
			Plane:   pl,
			Quality: brep.QualityTriangulated,
		})
	}
	if len(faces) == 0 {
		return FaceResult{}
	}
	return FaceResult{Faces: faces, Level: 4}
}

// assembleFace builds a face with holes attached, rejecting rings that
// collapse at the working tolerance.
func assembleFace(outer geom.Ring, holes []geom.Ring, pl geom.Plane, tol float64, q brep.FaceQuality) *brep.Face {
	if outer.IsDegenerate(tol) {
		return nil
	}
	f := &brep.Face{Outer: outer, Plane: pl, Quality: q}
	for _, h := range holes {
		clean := h.Dedup(tol)
		if len(clean) < 3 || clean.IsDegenerate(tol) {
			continue
		}
		f.Holes = append(f.Holes, clean)
	}
	return f
}

// repairFace is the level-3 pass: coarser dedup, collinear point removal
// and a re-fit with the max accepted deviation widened to the repair bound.
func repairFace(outer geom.Ring, holes []geom.Ring, tol float64) *brep.Face {
	clean := dropCollinear(outer.Dedup(tol*2), tol)
	if len(clean) < 3 {
		return nil
	}
	pl, dev, ok := geom.FitPlane(clean)
	if !ok || dev > tol*repairMaxFactor {
		return nil
	}
	projected := projectRing(clean, pl)
	if projected.IsDegenerate(tol) {
		return nil
	}
	return assembleFace(projected, projectHoles(holes, pl), pl, tol, brep.QualityRepaired)
}

func dropCollinear(r geom.Ring, tol float64) geom.Ring {
	if len(r) < 4 {
		return r
	}
	n := len(r)
	out := make(geom.Ring, 0, n)
	for i := 0; i < n; i++ {
		prev := r[(i-1+n)%n]
		next := r[(i+1)%n]
		a := r[i].Sub(prev)
		b := next.Sub(r[i])
		if a.Cross(b).Norm() <= tol*a.Norm()*b.Norm() {
			continue
		}
		out = append(out, r[i])
	}
	if len(out) < 3 {
		return r
	}
	return out
}

func projectRing(r geom.Ring, pl geom.Plane) geom.Ring {
	out := make(geom.Ring, len(r))
	for i, p := range r {
		out[i] = pl.Project(p)
	}
	return out
}

func projectHoles(holes []geom.Ring, pl geom.Plane) []geom.Ring {
	if holes == nil {
		return nil
	}
	out := make([]geom.Ring, len(holes))
	for i, h := range holes {
		out[i] = projectRing(h, pl)
	}
	return out
}
