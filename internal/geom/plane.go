package geom

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Plane is a point-and-normal plane. Normal is unit length.
type Plane struct {
	Origin Point3
	Normal Point3
}

// DistanceTo returns the signed distance from p to the plane.
func (pl Plane) DistanceTo(p Point3) float64 {
	return p.Sub(pl.Origin).Dot(pl.Normal)
}

// Project returns p projected onto the plane.
func (pl Plane) Project(p Point3) Point3 {
	return p.Sub(pl.Normal.Scale(pl.DistanceTo(p)))
}

// FitPlane computes the least-squares best-fit plane through the points and
// the maximum absolute deviation of any point from it. The normal is the
// singular vector of the centered coordinate matrix with the smallest
// singular value.
func FitPlane(points []Point3) (Plane, float64, bool) {
	if len(points) < 3 {
		return Plane{}, 0, false
	}
	var c Point3
	for _, p := range points {
		c = c.Add(p)
	}
	c = c.Scale(1 / float64(len(points)))

	m := mat.NewDense(len(points), 3, nil)
	for i, p := range points {
		d := p.Sub(c)
		m.Set(i, 0, d.X)
		m.Set(i, 1, d.Y)
		m.Set(i, 2, d.Z)
	}

	var svd mat.SVD
	if !svd.Factorize(m, mat.SVDThin) {
		// Fall back on the Newell normal when the factorization does not
		// converge; it is exact for planar input anyway.
		n := NewellNormal(points).Unit()
		if n.Norm() == 0 {
			return Plane{}, 0, false
		}
		pl := Plane{Origin: c, Normal: n}
		return pl, maxDeviation(pl, points), true
	}

	var v mat.Dense
	svd.VTo(&v)
	n := Point3{v.At(0, 2), v.At(1, 2), v.At(2, 2)}.Unit()
	if n.Norm() == 0 {
		return Plane{}, 0, false
	}
	// Keep the fitted normal on the same side as the winding normal so
	// projection never flips face orientation.
	if w := NewellNormal(points); w.Dot(n) < 0 {
		n = n.Scale(-1)
	}
	pl := Plane{Origin: c, Normal: n}
	return pl, maxDeviation(pl, points), true
}

func maxDeviation(pl Plane, points []Point3) float64 {
	var d float64
	for _, p := range points {
		d = math.Max(d, math.Abs(pl.DistanceTo(p)))
	}
	return d
}
