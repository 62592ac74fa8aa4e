package construct

import (
	"github.com/geoforge/gml2step/internal/brep"
	"github.com/geoforge/gml2step/internal/config"
	"github.com/geoforge/gml2step/internal/runlog"
)

// Outcome is the result of solid construction for one building. Shape is
// never nil when any input face survived: on total failure it degrades to a
// shell or face compound rather than disappearing from the output.
type Outcome struct {
	Shape      brep.Shape
	Valid      bool
	Escalation string // name of the repair strategy that produced the shape, "" if none was needed
}

// escalation strategies, tried in order when the sewn solid does not
// validate. Each takes the original faces and returns a candidate shell.
var escalationLadder = []struct {
	name  string
	apply func([]*brep.Face, float64) *brep.Shell
}{
	{"repair", repairStrategy},
	{"unify", unifyStrategy},
	{"rebuild", rebuildStrategy},
	{"aggressive", aggressiveStrategy},
}

// BuildSolid assembles faces into a solid, escalating through repair
// strategies until validation passes or the ladder is exhausted.
// interiorGroups carries the face sets of interior shells (cavities); only
// groups that sew closed are kept, oriented inward.
func BuildSolid(faces []*brep.Face, interiorGroups [][]*brep.Face, tol float64, fix config.FixLevel, log *runlog.Logger) Outcome {
	if len(faces) == 0 {
		return Outcome{}
	}

	shells := BuildShells(faces, tol, fix, log)
	if len(shells) == 1 {
		outer := shells[0]
		brep.OrientShell(outer, tol)
		solid := &brep.Solid{Outer: outer, Cavities: buildCavities(interiorGroups, tol, log)}
		if brep.ValidateSolid(solid, tol).Valid() {
			return Outcome{Shape: solid, Valid: true}
		}
	}

	for _, strat := range escalationLadder {
		shell := strat.apply(faces, tol)
		if shell == nil {
			continue
		}
		brep.OrientShell(shell, tol)
		solid := &brep.Solid{Outer: shell, Cavities: buildCavities(interiorGroups, tol, log)}
		if brep.ValidateSolid(solid, tol).Valid() {
			log.Info("solid recovered by escalation", "strategy", strat.name)
			return Outcome{Shape: solid, Valid: true, Escalation: strat.name}
		}
	}

	log.Warn("could not form a valid solid, downgrading to shell geometry",
		"faces", len(faces))
	return Outcome{Shape: downgrade(faces, tol, fix, log), Valid: false, Escalation: "downgrade"}
}

// repairStrategy drops degenerate faces and re-sews at the working
// tolerance.
func repairStrategy(faces []*brep.Face, tol float64) *brep.Shell {
	cleaned := brep.DropDegenerateFaces(faces, tol)
	return largestShell(brep.Sew(cleaned, tol))
}

// unifyStrategy merges coplanar neighbours first. Buildings exported as
// triangle soups often fail orientation checks that the merged quads pass.
func unifyStrategy(faces []*brep.Face, tol float64) *brep.Shell {
	unified := brep.UnifyCoplanarFaces(brep.DropDegenerateFaces(faces, tol), tol)
	return largestShell(brep.Sew(unified, tol))
}

// rebuildStrategy re-snaps all rings at doubled tolerance before sewing,
// welding shut gaps slightly wider than the working tolerance.
func rebuildStrategy(faces []*brep.Face, tol float64) *brep.Shell {
	snapped := brep.ResnapFaces(faces, tol*2)
	return largestShell(brep.Sew(snapped, tol*2))
}

// aggressiveStrategy combines all of the above at 10x tolerance. Geometry
// that needs it is already marginal, so the precision loss is acceptable
// against losing the building entirely.
func aggressiveStrategy(faces []*brep.Face, tol float64) *brep.Shell {
	wide := tol * 10
	snapped := brep.ResnapFaces(faces, wide)
	cleaned := brep.DropDegenerateFaces(snapped, wide)
	unified := brep.UnifyCoplanarFaces(cleaned, wide)
	return largestShell(brep.Sew(unified, wide))
}

func largestShell(shells []*brep.Shell) *brep.Shell {
	if len(shells) == 0 {
		return nil
	}
	return shells[0] // Sew orders largest first
}

// buildCavities sews each interior face group separately. Open cavities are
// dropped: an unclosed void cannot bound material and would invalidate the
// whole solid.
func buildCavities(groups [][]*brep.Face, tol float64, log *runlog.Logger) []*brep.Shell {
	var cavities []*brep.Shell
	for _, g := range groups {
		shells := brep.Sew(brep.DropDegenerateFaces(g, tol), tol)
		if len(shells) != 1 {
			log.Warn("dropping interior shell that did not sew closed", "faces", len(g))
			continue
		}
		cav := shells[0]
		rep := brep.ValidateShell(cav, tol)
		if !rep.Closed {
			log.Warn("dropping open interior shell", "free_edges", rep.FreeEdges)
			continue
		}
		brep.OrientShell(cav, tol)
		// cavities face inward: negative signed volume
		if brep.SignedVolume(cav) > 0 {
			for _, f := range cav.FaceList {
				f.Flip()
			}
		}
		cavities = append(cavities, cav)
	}
	return cavities
}

// downgrade produces the best non-solid shape for faces that never formed a
// valid solid: a single shell when sewing connects everything, otherwise a
// compound of the sewn pieces.
func downgrade(faces []*brep.Face, tol float64, fix config.FixLevel, log *runlog.Logger) brep.Shape {
	shells := BuildShells(faces, tol, fix, log)
	switch len(shells) {
	case 0:
		comp := &brep.Compound{}
		for _, f := range faces {
			comp.Shapes = append(comp.Shapes, f)
		}
		return comp
	case 1:
		return shells[0]
	default:
		comp := &brep.Compound{}
		for _, sh := range shells {
			comp.Shapes = append(comp.Shapes, sh)
		}
		return comp
	}
}
