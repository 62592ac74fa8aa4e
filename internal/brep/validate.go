package brep

import (
	"math"

	"github.com/geoforge/gml2step/internal/geom"
)

// ShellReport is the result of validating one shell.
type ShellReport struct {
	Closed          bool
	Oriented        bool // every shared edge traversed once in each direction
	FreeEdges       int  // edges used by exactly one face
	NonManifold     int  // edges used by more than two faces
	InvalidFaces    int  // faces with degenerate or self-touching loops
	TotalFaces      int
	InvalidFraction float64
}

// Valid reports whether the shell can serve as a solid boundary as-is.
func (r ShellReport) Valid() bool {
	return r.Closed && r.Oriented && r.InvalidFaces == 0
}

// MostlyValid reports whether the shell is close enough to valid that its
// faces are worth pooling into a re-sew (closed, oriented, under 5% bad
// faces).
func (r ShellReport) MostlyValid() bool {
	return r.Closed && r.Oriented && r.InvalidFraction < 0.05
}

// ValidateShell checks closedness, orientation consistency and per-face
// sanity at the given tolerance. Closed means every edge is shared by
// exactly two faces.
func ValidateShell(s *Shell, tol float64) ShellReport {
	m := buildMesh(s.FaceList, tol)
	rep := ShellReport{TotalFaces: len(s.FaceList), Closed: len(m.faces) > 0, Oriented: true}
	rep.InvalidFaces = len(s.FaceList) - len(m.faces)

	for _, uses := range m.edges {
		switch len(uses) {
		case 1:
			rep.FreeEdges++
			rep.Closed = false
		case 2:
			if uses[0].forward == uses[1].forward {
				rep.Oriented = false
			}
		default:
			rep.NonManifold += len(uses) - 2
			rep.Closed = false
		}
	}

	for fi := range m.faces {
		if hasRepeatedVertex(m.outer[fi]) {
			rep.InvalidFaces++
		}
	}
	if rep.TotalFaces > 0 {
		rep.InvalidFraction = float64(rep.InvalidFaces) / float64(rep.TotalFaces)
	}
	return rep
}

func hasRepeatedVertex(ids []int) bool {
	seen := make(map[int]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			return true
		}
		seen[id] = struct{}{}
	}
	return false
}

// SolidReport is the result of validating a solid.
type SolidReport struct {
	Outer    ShellReport
	Cavities []ShellReport
	Volume   float64
}

// Valid requires a closed, consistently oriented outer shell with positive
// enclosed volume, and every cavity closed with negative volume (inward
// orientation).
func (r SolidReport) Valid() bool {
	if !r.Outer.Valid() || r.Volume <= 0 {
		return false
	}
	for _, c := range r.Cavities {
		if !c.Closed || !c.Oriented {
			return false
		}
	}
	return true
}

// ValidateSolid validates the outer shell and all cavities.
func ValidateSolid(s *Solid, tol float64) SolidReport {
	rep := SolidReport{Outer: ValidateShell(s.Outer, tol)}
	if rep.Outer.Closed {
		rep.Volume = SignedVolume(s.Outer)
	}
	for _, c := range s.Cavities {
		rep.Cavities = append(rep.Cavities, ValidateShell(c, tol))
	}
	return rep
}

// FaceArea returns the area of a face's outer ring minus its holes.
func FaceArea(f *Face) float64 {
	area := ringArea(f.Outer)
	for _, h := range f.Holes {
		area -= ringArea(h)
	}
	return math.Max(area, 0)
}

func ringArea(r geom.Ring) float64 {
	return geom.NewellNormal(r).Norm() / 2
}
