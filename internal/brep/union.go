package brep

import (
	"errors"
	"sort"
)

// ErrUnionFailed is returned when two solids cannot be fused into a single
// valid solid. Callers are expected to fall back to a compound rather than
// retry.
var ErrUnionFailed = errors.New("brep: union did not produce a valid solid")

// GlueUnion fuses two solids that touch face-to-face: interior wall pairs
// (coincident faces with opposite orientation) are dropped, the remaining
// faces re-sewn, and the result accepted only if it is a single closed valid
// shell. Interpenetrating solids are not handled and report ErrUnionFailed.
func GlueUnion(a, b *Solid, tol float64) (*Solid, error) {
	pool := newVertexPool(tol)

	type keyed struct {
		face *Face
		key  string
		fwd  bool
	}
	var all []keyed
	for _, f := range a.Outer.FaceList {
		if k, fwd, ok := faceKey(pool, f); ok {
			all = append(all, keyed{f, k, fwd})
		}
	}
	for _, f := range b.Outer.FaceList {
		if k, fwd, ok := faceKey(pool, f); ok {
			all = append(all, keyed{f, k, fwd})
		}
	}

	// pair up coincident faces with opposite winding and drop both
	drop := make(map[int]bool)
	byKey := make(map[string][]int)
	for i, k := range all {
		byKey[k.key] = append(byKey[k.key], i)
	}
	for _, idxs := range byKey {
		for i := 0; i < len(idxs); i++ {
			if drop[idxs[i]] {
				continue
			}
			for j := i + 1; j < len(idxs); j++ {
				if drop[idxs[j]] {
					continue
				}
				if all[idxs[i]].fwd != all[idxs[j]].fwd {
					drop[idxs[i]] = true
					drop[idxs[j]] = true
					break
				}
			}
		}
	}
	if len(drop) == 0 {
		// nothing shared: disjoint or interpenetrating, either way no glue
		return nil, ErrUnionFailed
	}

	kept := make([]*Face, 0, len(all)-len(drop))
	for i, k := range all {
		if !drop[i] {
			kept = append(kept, k.face)
		}
	}

	shells := Sew(kept, tol)
	if len(shells) != 1 {
		return nil, ErrUnionFailed
	}
	if !OrientShell(shells[0], tol) {
		return nil, ErrUnionFailed
	}
	fused := &Solid{Outer: shells[0]}
	fused.Cavities = append(fused.Cavities, a.Cavities...)
	fused.Cavities = append(fused.Cavities, b.Cavities...)
	if !ValidateSolid(fused, tol).Valid() {
		return nil, ErrUnionFailed
	}
	return fused, nil
}

// faceKey builds an orientation-aware canonical signature for a face's outer
// loop: the sorted vertex id set identifies coincident faces, fwd captures
// which way the loop winds relative to its canonical rotation.
func faceKey(pool *vertexPool, f *Face) (string, bool, bool) {
	ids := pool.ringIDs(f.Outer)
	if ids == nil {
		return "", false, false
	}
	sorted := append([]int(nil), ids...)
	sort.Ints(sorted)

	// rotate the loop so it starts at the smallest id, then compare the two
	// traversal directions to derive a winding bit
	minAt := 0
	for i, id := range ids {
		if id < ids[minAt] {
			minAt = i
		}
	}
	n := len(ids)
	nextID := ids[(minAt+1)%n]
	prevID := ids[(minAt-1+n)%n]
	fwd := nextID < prevID

	key := make([]byte, 0, len(sorted)*4)
	for _, id := range sorted {
		key = append(key, byte(id), byte(id>>8), byte(id>>16), byte(id>>24))
	}
	return string(key), fwd, true
}
