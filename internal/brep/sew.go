package brep

import "github.com/geoforge/gml2step/internal/geom"

// edgeKey identifies an undirected edge between two pooled vertices.
type edgeKey struct{ a, b int }

func makeEdgeKey(a, b int) (edgeKey, bool) {
	if a < b {
		return edgeKey{a, b}, true
	}
	return edgeKey{b, a}, false
}

type edgeUse struct {
	face    int
	forward bool // true when the face traverses the edge low-id -> high-id
}

// mesh is the sewn view of a face set: pooled vertices, per-face id rings
// and the edge-use table everything else (connectivity, closedness,
// orientation) is read from.
type mesh struct {
	pool  *vertexPool
	faces []*Face
	outer [][]int
	holes [][][]int
	edges map[edgeKey][]edgeUse
}

// buildMesh pools the faces' vertices at tol and indexes edge uses. Faces
// whose outer ring collapses below three distinct vertices are dropped.
func buildMesh(faces []*Face, tol float64) *mesh {
	m := &mesh{pool: newVertexPool(tol), edges: make(map[edgeKey][]edgeUse)}
	for _, f := range faces {
		ids := m.pool.ringIDs(f.Outer)
		if ids == nil {
			continue
		}
		var holeIDs [][]int
		for _, h := range f.Holes {
			if hi := m.pool.ringIDs(h); hi != nil {
				holeIDs = append(holeIDs, hi)
			}
		}
		idx := len(m.faces)
		m.faces = append(m.faces, f)
		m.outer = append(m.outer, ids)
		m.holes = append(m.holes, holeIDs)
		m.indexLoop(idx, ids)
		for _, hi := range holeIDs {
			m.indexLoop(idx, hi)
		}
	}
	return m
}

func (m *mesh) indexLoop(face int, ids []int) {
	for i := range ids {
		a, b := ids[i], ids[(i+1)%len(ids)]
		if a == b {
			continue
		}
		key, forward := makeEdgeKey(a, b)
		m.edges[key] = append(m.edges[key], edgeUse{face: face, forward: forward})
	}
}

// components partitions the mesh faces into edge-connected groups.
func (m *mesh) components() [][]int {
	parent := make([]int, len(m.faces))
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(i int) int {
		if parent[i] != i {
			parent[i] = find(parent[i])
		}
		return parent[i]
	}
	union := func(a, b int) { parent[find(a)] = find(b) }

	for _, uses := range m.edges {
		for i := 1; i < len(uses); i++ {
			union(uses[0].face, uses[i].face)
		}
	}

	groups := make(map[int][]int)
	for i := range m.faces {
		r := find(i)
		groups[r] = append(groups[r], i)
	}
	out := make([][]int, 0, len(groups))
	for _, g := range groups {
		out = append(out, g)
	}
	return out
}

// Sew stitches faces into shells by matching coincident edges within tol.
// Each edge-connected component becomes one shell; closedness of the result
// is not implied and must be checked with Validate.
func Sew(faces []*Face, tol float64) []*Shell {
	m := buildMesh(faces, tol)
	if len(m.faces) == 0 {
		return nil
	}
	comps := m.components()
	shells := make([]*Shell, 0, len(comps))
	for _, comp := range comps {
		sh := &Shell{FaceList: make([]*Face, 0, len(comp))}
		for _, fi := range comp {
			sh.FaceList = append(sh.FaceList, m.faces[fi])
		}
		shells = append(shells, sh)
	}
	// Deterministic order: largest shell first.
	for i := 0; i < len(shells); i++ {
		for j := i + 1; j < len(shells); j++ {
			if len(shells[j].FaceList) > len(shells[i].FaceList) {
				shells[i], shells[j] = shells[j], shells[i]
			}
		}
	}
	return shells
}

// SignedVolume computes the volume enclosed by the shell's faces via the
// divergence theorem over a triangle fan per face. Positive means outward
// orientation. Only meaningful for closed shells.
func SignedVolume(s *Shell) float64 {
	var v float64
	for _, f := range s.FaceList {
		open := f.Outer.Open()
		for i := 1; i < len(open)-1; i++ {
			v += open[0].Dot(open[i].Cross(open[i+1]))
		}
	}
	return v / 6
}

// ResnapFaces re-snaps every ring of every face onto a tolerance grid, so
// a later sew pass at the same or tighter tolerance sees exactly the merged
// coordinates. Faces whose outer ring collapses are dropped.
func ResnapFaces(faces []*Face, tol float64) []*Face {
	return dedupFaceRings(faces, tol)
}

// dedupFaceRings re-snaps every ring of every face onto the pool grid so
// later stages see exactly the coordinates sewing matched on.
func dedupFaceRings(faces []*Face, tol float64) []*Face {
	pool := newVertexPool(tol)
	out := make([]*Face, 0, len(faces))
	for _, f := range faces {
		ids := pool.ringIDs(f.Outer)
		if ids == nil {
			continue
		}
		nf := &Face{Plane: f.Plane, Surface: f.Surface, Quality: f.Quality}
		nf.Outer = idsToRing(pool, ids)
		for _, h := range f.Holes {
			if hi := pool.ringIDs(h); hi != nil {
				nf.Holes = append(nf.Holes, idsToRing(pool, hi))
			}
		}
		out = append(out, nf)
	}
	return out
}

func idsToRing(pool *vertexPool, ids []int) geom.Ring {
	r := make(geom.Ring, len(ids))
	for i, id := range ids {
		r[i] = pool.point(id)
	}
	return r
}
