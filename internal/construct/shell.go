package construct

import (
	"github.com/geoforge/gml2step/internal/brep"
	"github.com/geoforge/gml2step/internal/config"
	"github.com/geoforge/gml2step/internal/runlog"
)

// ultraSewPasses are the tolerance multipliers of the progressive sewing
// passes used at the ultra fix level. Single-pass sewing at tight tolerance
// frequently fails to connect faces that are only approximately coincident,
// so the first pass welds coarsely and later passes tighten.
var ultraSewPasses = []float64{10, 5, 1}

// BuildShells sews faces into shells at the given fix level. The returned
// slice is ordered largest shell first; more than one entry means sewing
// could not connect everything even after multi-shell resolution.
func BuildShells(faces []*brep.Face, tol float64, fix config.FixLevel, log *runlog.Logger) []*brep.Shell {
	if len(faces) == 0 {
		return nil
	}

	prepared := prepareFaces(faces, tol, fix)
	if len(prepared) == 0 {
		// everything degenerate at this tolerance; sew the originals rather
		// than dropping the building
		prepared = faces
	}

	var shells []*brep.Shell
	if fix == config.FixUltra {
		for _, factor := range ultraSewPasses {
			prepared = resnap(prepared, tol*factor)
		}
		shells = brep.Sew(prepared, tol)
	} else {
		shells = brep.Sew(prepared, tol)
	}
	if len(shells) <= 1 {
		return shells
	}

	log.Debug("sewing produced disconnected shells", "count", len(shells))
	return resolveMultiShell(shells, tol, log)
}

// prepareFaces runs the pre-sew cleanup: degenerate-face removal and
// per-face hole sanity at standard and above. Minimal skips it entirely.
func prepareFaces(faces []*brep.Face, tol float64, fix config.FixLevel) []*brep.Face {
	if fix == config.FixMinimal {
		return faces
	}
	return brep.DropDegenerateFaces(faces, tol)
}

func resnap(faces []*brep.Face, tol float64) []*brep.Face {
	if snapped := dedupAt(faces, tol); len(snapped) > 0 {
		return snapped
	}
	return faces
}

// resolveMultiShell does not simply keep the largest shell: all fully or
// mostly valid shells contribute their faces to a pooled re-sew, and only
// when that still yields disjoint shells is a looser second pass tried
// before giving up and returning the pieces.
func resolveMultiShell(shells []*brep.Shell, tol float64, log *runlog.Logger) []*brep.Shell {
	var pooled []*brep.Face
	kept := 0
	for _, sh := range shells {
		rep := brep.ValidateShell(sh, tol)
		// closed shells and open-but-nearly-clean fragments both contribute;
		// an open fragment may be exactly what closes the pooled shell
		if rep.Closed || rep.InvalidFraction < 0.05 {
			pooled = append(pooled, sh.FaceList...)
			kept++
		}
	}
	if kept == 0 {
		// nothing worth pooling, keep what sewing gave us
		return shells
	}
	log.Debug("pooling shells for re-sew", "kept", kept, "of", len(shells))

	resewn := brep.Sew(pooled, tol)
	if len(resewn) == 1 {
		return resewn
	}

	// second, lower-tolerance pass
	loose := brep.Sew(dedupAt(pooled, tol*5), tol*5)
	if len(loose) == 1 {
		log.Warn("shells connected only at loosened tolerance", "factor", 5)
		return loose
	}

	log.Warn("shells remain disconnected, emitting multi-shell result",
		"shells", len(resewn))
	return resewn
}

// dedupAt re-snaps face rings onto a tolerance grid so a following sew pass
// sees exactly the merged coordinates.
func dedupAt(faces []*brep.Face, tol float64) []*brep.Face {
	return brep.ResnapFaces(faces, tol)
}
