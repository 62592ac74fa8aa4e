package brep

import (
	"math"

	"github.com/geoforge/gml2step/internal/geom"
)

// vertexPool merges coordinates that coincide within a tolerance and hands
// out stable integer ids. Lookup hashes points onto a grid of tolerance-sized
// cells and probes the 27-cell neighborhood, so merging is independent of
// insertion order for points within one tolerance of each other.
type vertexPool struct {
	tol    float64
	points []geom.Point3
	cells  map[cellKey][]int
}

type cellKey struct{ x, y, z int64 }

func newVertexPool(tol float64) *vertexPool {
	if tol <= 0 {
		tol = 1e-9
	}
	return &vertexPool{tol: tol, cells: make(map[cellKey][]int)}
}

func (vp *vertexPool) cellOf(p geom.Point3) cellKey {
	return cellKey{
		int64(math.Floor(p.X / vp.tol)),
		int64(math.Floor(p.Y / vp.tol)),
		int64(math.Floor(p.Z / vp.tol)),
	}
}

// id returns the pooled vertex id for p, inserting it if no existing vertex
// lies within the pool tolerance.
func (vp *vertexPool) id(p geom.Point3) int {
	c := vp.cellOf(p)
	for dx := int64(-1); dx <= 1; dx++ {
		for dy := int64(-1); dy <= 1; dy++ {
			for dz := int64(-1); dz <= 1; dz++ {
				for _, id := range vp.cells[cellKey{c.x + dx, c.y + dy, c.z + dz}] {
					if vp.points[id].AlmostEqual(p, vp.tol) {
						return id
					}
				}
			}
		}
	}
	id := len(vp.points)
	vp.points = append(vp.points, p)
	vp.cells[c] = append(vp.cells[c], id)
	return id
}

func (vp *vertexPool) point(id int) geom.Point3 { return vp.points[id] }

// ringIDs maps a ring to pooled vertex ids, dropping consecutive duplicates
// that collapse under the pool tolerance. Returns nil if fewer than three
// distinct vertices remain.
func (vp *vertexPool) ringIDs(r geom.Ring) []int {
	open := r.Open()
	ids := make([]int, 0, len(open))
	for _, p := range open {
		id := vp.id(p)
		if len(ids) > 0 && ids[len(ids)-1] == id {
			continue
		}
		ids = append(ids, id)
	}
	for len(ids) >= 2 && ids[0] == ids[len(ids)-1] {
		ids = ids[:len(ids)-1]
	}
	if len(ids) < 3 {
		return nil
	}
	return ids
}
