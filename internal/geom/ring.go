package geom

// Ring is an ordered sequence of 3D points describing a polygon boundary.
// Input rings may arrive explicitly closed (first == last) or implicitly
// closed; Open normalizes to the implicit form used everywhere downstream.
type Ring []Point3

// Open returns the ring without a duplicated closing point.
func (r Ring) Open() Ring {
	if len(r) >= 2 && r[0].AlmostEqual(r[len(r)-1], 0) {
		return r[:len(r)-1]
	}
	return r
}

// Dedup collapses consecutive points closer than tol, including the
// wrap-around pair. The result is an open ring.
func (r Ring) Dedup(tol float64) Ring {
	open := r.Open()
	if len(open) == 0 {
		return nil
	}
	out := make(Ring, 0, len(open))
	for _, p := range open {
		if len(out) > 0 && out[len(out)-1].AlmostEqual(p, tol) {
			continue
		}
		out = append(out, p)
	}
	for len(out) >= 2 && out[0].AlmostEqual(out[len(out)-1], tol) {
		out = out[:len(out)-1]
	}
	return out
}

// IsDegenerate reports whether the ring cannot bound any area: fewer than
// three distinct points, or all points collinear.
func (r Ring) IsDegenerate(tol float64) bool {
	open := r.Dedup(tol)
	if len(open) < 3 {
		return true
	}
	n := NewellNormal(open)
	return n.Norm() <= tol*tol
}

// Centroid returns the arithmetic mean of the ring's (open) points.
func (r Ring) Centroid() Point3 {
	open := r.Open()
	if len(open) == 0 {
		return Point3{}
	}
	var c Point3
	for _, p := range open {
		c = c.Add(p)
	}
	return c.Scale(1 / float64(len(open)))
}

// NewellNormal computes the (unnormalized) polygon normal via Newell's
// method. Magnitude is twice the enclosed area, so a near-zero result
// doubles as a degeneracy signal.
func NewellNormal(r Ring) Point3 {
	open := r.Open()
	var n Point3
	for i, p := range open {
		q := open[(i+1)%len(open)]
		n.X += (p.Y - q.Y) * (p.Z + q.Z)
		n.Y += (p.Z - q.Z) * (p.X + q.X)
		n.Z += (p.X - q.X) * (p.Y + q.Y)
	}
	return n
}
