// Package fuse combines a building's own shape with the shapes of its
// building parts, either by Boolean union into one solid or as a compound
// keeping the pieces separate.
package fuse

import (
	"errors"

	"github.com/geoforge/gml2step/internal/brep"
	"github.com/geoforge/gml2step/internal/runlog"
)

// Fuse merges the given shapes into one. With merge set, all-solid input is
// unioned pairwise; the first failed union abandons merging and falls back
// to a compound of the original, untouched shapes. Fusion never fails: the
// worst case is the compound.
func Fuse(shapes []brep.Shape, merge bool, tol float64, log *runlog.Logger) brep.Shape {
	switch len(shapes) {
	case 0:
		return nil
	case 1:
		return shapes[0]
	}

	if !merge {
		return compound(shapes)
	}

	solids := make([]*brep.Solid, 0, len(shapes))
	for _, s := range shapes {
		solid, ok := s.(*brep.Solid)
		if !ok {
			log.Warn("cannot union non-solid part geometry, keeping parts separate",
				"kind", s.Kind().String())
			return compound(shapes)
		}
		solids = append(solids, solid)
	}

	acc := solids[0]
	for _, next := range solids[1:] {
		merged, err := brep.GlueUnion(acc, next, tol)
		if err != nil {
			if errors.Is(err, brep.ErrUnionFailed) {
				log.Warn("part union failed, keeping parts separate",
					"parts", len(shapes))
				return compound(shapes)
			}
			log.Error("part union error", "error", err)
			return compound(shapes)
		}
		acc = merged
	}

	// unions leave coplanar seams where part faces met; merge them away
	unified := brep.UnifyCoplanarFaces(acc.Outer.FaceList, tol)
	if sewn := brep.Sew(unified, tol); len(sewn) == 1 {
		cleaned := &brep.Solid{Outer: sewn[0], Cavities: acc.Cavities}
		brep.OrientShell(cleaned.Outer, tol)
		if brep.ValidateSolid(cleaned, tol).Valid() {
			return cleaned
		}
	}
	return acc
}

func compound(shapes []brep.Shape) *brep.Compound {
	return &brep.Compound{Shapes: append([]brep.Shape(nil), shapes...)}
}
