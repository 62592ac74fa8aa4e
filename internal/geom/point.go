// Package geom provides the plain vector math underneath face and shell
// construction: points, rings, bounding boxes, plane fitting and the fan
// triangulation used as the face-build fallback of last resort.
package geom

import "math"

// Point3 is a 3D point or vector. One type serves both roles; all kernel
// coordinates pass through here.
type Point3 struct {
	X, Y, Z float64
}

func (p Point3) Add(q Point3) Point3 { return Point3{p.X + q.X, p.Y + q.Y, p.Z + q.Z} }
func (p Point3) Sub(q Point3) Point3 { return Point3{p.X - q.X, p.Y - q.Y, p.Z - q.Z} }

func (p Point3) Scale(s float64) Point3 { return Point3{p.X * s, p.Y * s, p.Z * s} }

func (p Point3) Dot(q Point3) float64 { return p.X*q.X + p.Y*q.Y + p.Z*q.Z }

func (p Point3) Cross(q Point3) Point3 {
	return Point3{
		p.Y*q.Z - p.Z*q.Y,
		p.Z*q.X - p.X*q.Z,
		p.X*q.Y - p.Y*q.X,
	}
}

func (p Point3) Norm() float64 { return math.Sqrt(p.Dot(p)) }

// Unit returns the normalized vector, or the zero vector if p is (numerically) zero.
func (p Point3) Unit() Point3 {
	n := p.Norm()
	if n < 1e-300 {
		return Point3{}
	}
	return p.Scale(1 / n)
}

func (p Point3) DistanceTo(q Point3) float64 { return p.Sub(q).Norm() }

// AlmostEqual reports whether two points coincide within tol.
func (p Point3) AlmostEqual(q Point3, tol float64) bool {
	return math.Abs(p.X-q.X) <= tol && math.Abs(p.Y-q.Y) <= tol && math.Abs(p.Z-q.Z) <= tol
}
