package geom

import "math"

// BBox is an axis-aligned bounding box. The zero value is empty.
type BBox struct {
	Min, Max Point3
	set      bool
}

func (b *BBox) Extend(p Point3) {
	if !b.set {
		b.Min, b.Max = p, p
		b.set = true
		return
	}
	b.Min.X = math.Min(b.Min.X, p.X)
	b.Min.Y = math.Min(b.Min.Y, p.Y)
	b.Min.Z = math.Min(b.Min.Z, p.Z)
	b.Max.X = math.Max(b.Max.X, p.X)
	b.Max.Y = math.Max(b.Max.Y, p.Y)
	b.Max.Z = math.Max(b.Max.Z, p.Z)
}

func (b *BBox) ExtendRing(r Ring) {
	for _, p := range r {
		b.Extend(p)
	}
}

func (b BBox) Empty() bool { return !b.set }

func (b BBox) Center() Point3 {
	if !b.set {
		return Point3{}
	}
	return b.Min.Add(b.Max).Scale(0.5)
}

// MaxExtent returns the largest side length of the box.
func (b BBox) MaxExtent() float64 {
	if !b.set {
		return 0
	}
	d := b.Max.Sub(b.Min)
	return math.Max(d.X, math.Max(d.Y, d.Z))
}

// Diagonal returns the length of the box diagonal.
func (b BBox) Diagonal() float64 {
	if !b.set {
		return 0
	}
	return b.Max.Sub(b.Min).Norm()
}
