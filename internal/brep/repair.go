package brep

import (
	"math"

	"github.com/geoforge/gml2step/internal/geom"
)

// DropDegenerateFaces removes faces whose outer ring has no area at tol.
func DropDegenerateFaces(faces []*Face, tol float64) []*Face {
	out := make([]*Face, 0, len(faces))
	for _, f := range faces {
		if f.Outer.IsDegenerate(tol) {
			continue
		}
		out = append(out, f)
	}
	return out
}

// OrientShell makes edge traversal directions consistent across the shell by
// flipping faces during a breadth-first walk of the face adjacency, then
// flips the whole shell outward if the enclosed volume comes out negative.
// Returns false when the shell's connectivity is too broken to orient (an
// edge shared by more than two faces).
func OrientShell(s *Shell, tol float64) bool {
	m := buildMesh(s.FaceList, tol)
	if len(m.faces) == 0 {
		return false
	}
	for _, uses := range m.edges {
		if len(uses) > 2 {
			return false
		}
	}

	// adjacency with the relative orientation of each neighbor pair
	type neighbor struct {
		face      int
		sameOrder bool // true when both faces traverse the shared edge the same way
	}
	adj := make([][]neighbor, len(m.faces))
	for _, uses := range m.edges {
		if len(uses) != 2 {
			continue
		}
		a, b := uses[0], uses[1]
		same := a.forward == b.forward
		adj[a.face] = append(adj[a.face], neighbor{b.face, same})
		adj[b.face] = append(adj[b.face], neighbor{a.face, same})
	}

	flipped := make([]bool, len(m.faces))
	visited := make([]bool, len(m.faces))
	queue := []int{0}
	visited[0] = true
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, nb := range adj[cur] {
			// consistent orientation means opposite traversal directions
			want := flipped[cur]
			if nb.sameOrder {
				want = !flipped[cur]
			}
			if !visited[nb.face] {
				visited[nb.face] = true
				flipped[nb.face] = want
				queue = append(queue, nb.face)
			} else if flipped[nb.face] != want {
				// Moebius-like inconsistency; cannot orient
				return false
			}
		}
	}

	for i, f := range m.faces {
		if flipped[i] {
			f.Flip()
		}
	}
	if v := SignedVolume(s); v < 0 {
		for _, f := range s.FaceList {
			f.Flip()
		}
	}
	return true
}

// UnifyCoplanarFaces merges groups of adjacent coplanar faces into single
// faces, simplifying geometry at the cost of the merged faces' internal
// boundaries. Groups whose merged boundary cannot be chained back into
// rings are left untouched.
func UnifyCoplanarFaces(faces []*Face, tol float64) []*Face {
	m := buildMesh(faces, tol)
	if len(m.faces) == 0 {
		return faces
	}

	// group edge-adjacent faces with matching planes
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
	for _, uses := range m.edges {
		for i := 1; i < len(uses); i++ {
			a, b := uses[0].face, uses[i].face
			if coplanar(m.faces[a], m.faces[b], tol) {
				parent[find(a)] = find(b)
			}
		}
	}

	groups := make(map[int][]int)
	for i := range m.faces {
		groups[find(i)] = append(groups[find(i)], i)
	}

	var out []*Face
	for _, g := range groups {
		if len(g) == 1 {
			out = append(out, m.faces[g[0]])
			continue
		}
		if merged := m.mergeGroup(g); merged != nil {
			out = append(out, merged)
		} else {
			for _, fi := range g {
				out = append(out, m.faces[fi])
			}
		}
	}
	return out
}

func coplanar(a, b *Face, tol float64) bool {
	na, nb := a.Plane.Normal, b.Plane.Normal
	if math.Abs(na.Dot(nb)) < 1-1e-6 {
		return false
	}
	return math.Abs(a.Plane.DistanceTo(b.Plane.Origin)) <= tol
}

// mergeGroup rebuilds one face from a coplanar group: boundary edges are the
// group's edges used exactly once, chained into loops; the largest loop
// becomes the outer ring and the rest holes.
func (m *mesh) mergeGroup(g []int) *Face {
	inGroup := make(map[int]bool, len(g))
	for _, fi := range g {
		inGroup[fi] = true
	}

	// count directed boundary edges (interior edges appear once per side);
	// hole loops participate too, so an opening not covered by a neighbor
	// survives as a hole of the merged face
	type dirEdge struct{ from, to int }
	boundary := make(map[dirEdge]bool)
	addLoop := func(loop []int) {
		for i := range loop {
			a, b := loop[i], loop[(i+1)%len(loop)]
			if a == b {
				continue
			}
			if boundary[dirEdge{b, a}] {
				delete(boundary, dirEdge{b, a})
			} else {
				boundary[dirEdge{a, b}] = true
			}
		}
	}
	for _, fi := range g {
		addLoop(m.outer[fi])
		for _, h := range m.holes[fi] {
			addLoop(h)
		}
	}
	if len(boundary) < 3 {
		return nil
	}

	next := make(map[int]int, len(boundary))
	for e := range boundary {
		if _, dup := next[e.from]; dup {
			return nil // branching boundary, give up
		}
		next[e.from] = e.to
	}

	var loops [][]int
	seen := make(map[int]bool, len(next))
	for start := range next {
		if seen[start] {
			continue
		}
		loop := []int{start}
		seen[start] = true
		for cur := next[start]; cur != start; cur = next[cur] {
			if seen[cur] || len(loop) > len(next) {
				return nil // open or tangled chain
			}
			seen[cur] = true
			loop = append(loop, cur)
		}
		if len(loop) < 3 {
			return nil
		}
		loops = append(loops, loop)
	}
	if len(loops) == 0 {
		return nil
	}

	// largest-area loop is the outer boundary
	best, bestArea := 0, -1.0
	rings := make([]geom.Ring, len(loops))
	for i, loop := range loops {
		rings[i] = idsToRing(m.pool, loop)
		if a := ringArea(rings[i]); a > bestArea {
			best, bestArea = i, a
		}
	}

	f := &Face{
		Outer:   rings[best],
		Plane:   m.faces[g[0]].Plane,
		Surface: m.faces[g[0]].Surface,
		Quality: m.faces[g[0]].Quality,
	}
	for i, r := range rings {
		if i != best {
			f.Holes = append(f.Holes, r)
		}
	}
	return f
}
