// Package brep is the converter's boundary-representation kernel: planar
// faces sewn into shells, shells promoted to solids, plus the validation and
// repair operations the construction pipeline escalates through. It is
// deliberately polygonal; every face is planar and every edge straight,
// which is all CityGML building geometry needs.
package brep

import "github.com/geoforge/gml2step/internal/geom"

// Kind discriminates the shape variants that flow between pipeline stages.
type Kind int

const (
	KindFace Kind = iota
	KindShell
	KindSolid
	KindCompound
)

func (k Kind) String() string {
	switch k {
	case KindFace:
		return "face"
	case KindShell:
		return "shell"
	case KindSolid:
		return "solid"
	case KindCompound:
		return "compound"
	default:
		return "unknown"
	}
}

// SurfaceKind classifies the underlying surface of a face. Building
// conversion only ever produces planar faces, but the classification is kept
// explicit so downstream consumers never compare surface strings.
type SurfaceKind int

const (
	SurfacePlanar SurfaceKind = iota
	SurfaceCylindrical
	SurfaceConical
	SurfaceOther
)

// FaceQuality records which construction fallback level produced a face.
type FaceQuality int

const (
	QualityDirect FaceQuality = iota
	QualityProjected
	QualityRepaired
	QualityTriangulated
)

func (q FaceQuality) String() string {
	switch q {
	case QualityDirect:
		return "direct"
	case QualityProjected:
		return "projected"
	case QualityRepaired:
		return "repaired"
	case QualityTriangulated:
		return "triangulated"
	default:
		return "unknown"
	}
}

// Shape is the common interface of faces, shells, solids and compounds.
type Shape interface {
	Kind() Kind
	BBox() geom.BBox
	// Faces returns all faces of the shape, outer and cavities included.
	Faces() []*Face
}

// Face is one planar patch: an outer ring plus optional hole rings,
// annotated with the plane it lies in and the quality of its construction.
type Face struct {
	Outer   geom.Ring
	Holes   []geom.Ring
	Plane   geom.Plane
	Surface SurfaceKind
	Quality FaceQuality
}

func (f *Face) Kind() Kind { return KindFace }

func (f *Face) BBox() geom.BBox {
	var b geom.BBox
	f.extendBBox(&b)
	return b
}

func (f *Face) extendBBox(b *geom.BBox) {
	b.ExtendRing(f.Outer)
	for _, h := range f.Holes {
		b.ExtendRing(h)
	}
}

func (f *Face) Faces() []*Face { return []*Face{f} }

// Flip reverses the face orientation in place.
func (f *Face) Flip() {
	reverseRing(f.Outer)
	for _, h := range f.Holes {
		reverseRing(h)
	}
	f.Plane.Normal = f.Plane.Normal.Scale(-1)
}

func reverseRing(r geom.Ring) {
	for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {
		r[i], r[j] = r[j], r[i]
	}
}

// Shell is a set of sewn faces. Closedness is a property checked by
// Validate, never assumed.
type Shell struct {
	FaceList []*Face
}

func (s *Shell) Kind() Kind { return KindShell }

func (s *Shell) BBox() geom.BBox {
	var b geom.BBox
	for _, f := range s.FaceList {
		f.extendBBox(&b)
	}
	return b
}

func (s *Shell) Faces() []*Face { return s.FaceList }

// Solid is one closed exterior shell plus zero or more closed interior
// shells (cavities).
type Solid struct {
	Outer    *Shell
	Cavities []*Shell
}

func (s *Solid) Kind() Kind { return KindSolid }

func (s *Solid) BBox() geom.BBox { return s.Outer.BBox() }

func (s *Solid) Faces() []*Face {
	out := append([]*Face(nil), s.Outer.FaceList...)
	for _, c := range s.Cavities {
		out = append(out, c.FaceList...)
	}
	return out
}

// Compound is a flat container of shapes kept separate on purpose, e.g.
// building parts whose union failed.
type Compound struct {
	Shapes []Shape
}

func (c *Compound) Kind() Kind { return KindCompound }

func (c *Compound) BBox() geom.BBox {
	var b geom.BBox
	for _, s := range c.Shapes {
		sb := s.BBox()
		if !sb.Empty() {
			b.Extend(sb.Min)
			b.Extend(sb.Max)
		}
	}
	return b
}

func (c *Compound) Faces() []*Face {
	var out []*Face
	for _, s := range c.Shapes {
		out = append(out, s.Faces()...)
	}
	return out
}
