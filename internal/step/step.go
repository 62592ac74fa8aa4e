// Package step serializes kernel shapes to ISO 10303-21 part files using
// the AP214 (AUTOMOTIVE_DESIGN) schema. Solids become MANIFOLD_SOLID_BREP
// entities, shells and loose faces degrade to SHELL_BASED_SURFACE_MODEL,
// and every model gets its own product structure so downstream CAD tools
// see one part per building.
package step

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/geoforge/gml2step/internal/brep"
	"github.com/geoforge/gml2step/internal/geom"
)

// DefaultUncertainty is the distance accuracy recorded in the geometric
// context, in file units.
const DefaultUncertainty = 1e-6

// UnitScale converts model coordinates (metres) to file units
// (millimetres).
const UnitScale = 1000.0

// Model is one named shape to export, typically one building.
type Model struct {
	Name  string
	Shape brep.Shape
}

// Options controls file-level metadata.
type Options struct {
	FileName    string
	Author      string
	Origin      string  // originating system recorded in the header
	Uncertainty float64 // zero means DefaultUncertainty
	Timestamp   time.Time
}

// Write serializes the models as one STEP part file.
func Write(w io.Writer, models []Model, opts Options) error {
	if opts.Uncertainty <= 0 {
		opts.Uncertainty = DefaultUncertainty
	}
	if opts.Origin == "" {
		opts.Origin = "gml2step"
	}
	if opts.Timestamp.IsZero() {
		opts.Timestamp = time.Now().UTC()
	}

	e := &enc{w: bufio.NewWriter(w)}
	e.header(opts)

	appCtx := e.entity("APPLICATION_CONTEXT('core data for automotive mechanical design processes')")
	e.entity("APPLICATION_PROTOCOL_DEFINITION('international standard','automotive_design',2010,#%d)", appCtx)
	geomCtx := e.geometricContext(opts.Uncertainty)

	for i, m := range models {
		e.model(m, i+1, appCtx, geomCtx)
	}

	e.footer()
	if e.err != nil {
		return fmt.Errorf("write step file: %w", e.err)
	}
	return e.w.Flush()
}

// enc assigns sequential entity ids and accumulates the first write error.
type enc struct {
	w   *bufio.Writer
	id  int
	err error
}

func (e *enc) raw(s string) {
	if e.err != nil {
		return
	}
	_, e.err = e.w.WriteString(s)
}

// entity writes one DATA section instance and returns its id.
func (e *enc) entity(format string, args ...any) int {
	e.id++
	e.raw("#" + strconv.Itoa(e.id) + "=" + fmt.Sprintf(format, args...) + ";\n")
	return e.id
}

func (e *enc) header(opts Options) {
	stamp := opts.Timestamp.Format("2006-01-02T15:04:05")
	e.raw("ISO-10303-21;\n")
	e.raw("HEADER;\n")
	e.raw("FILE_DESCRIPTION(('CityGML building geometry'),'2;1');\n")
	e.raw(fmt.Sprintf("FILE_NAME(%s,'%s',(%s),(''),'','%s','');\n",
		quote(opts.FileName), stamp, quote(opts.Author), escape(opts.Origin)))
	e.raw("FILE_SCHEMA(('AUTOMOTIVE_DESIGN { 1 0 10303 214 1 1 1 1 }'));\n")
	e.raw("ENDSEC;\n")
	e.raw("DATA;\n")
}

func (e *enc) footer() {
	e.raw("ENDSEC;\n")
	e.raw("END-ISO-10303-21;\n")
}

// geometricContext emits the shared 3D context: millimetre length unit,
// radian and steradian angle units, and the global uncertainty.
func (e *enc) geometricContext(uncertainty float64) int {
	lu := e.entity("(LENGTH_UNIT()NAMED_UNIT(*)SI_UNIT(.MILLI.,.METRE.))")
	pau := e.entity("(NAMED_UNIT(*)PLANE_ANGLE_UNIT()SI_UNIT($,.RADIAN.))")
	sau := e.entity("(NAMED_UNIT(*)SI_UNIT($,.STERADIAN.)SOLID_ANGLE_UNIT())")
	unc := e.entity("UNCERTAINTY_MEASURE_WITH_UNIT(LENGTH_MEASURE(%s),#%d,'distance_accuracy_value','confusion accuracy')",
		fmtReal(uncertainty), lu)
	return e.entity("(GEOMETRIC_REPRESENTATION_CONTEXT(3)"+
		"GLOBAL_UNCERTAINTY_ASSIGNED_CONTEXT((#%d))"+
		"GLOBAL_UNIT_ASSIGNED_CONTEXT((#%d,#%d,#%d))"+
		"REPRESENTATION_CONTEXT('Context #1','3D Context'))", unc, lu, pau, sau)
}

// model emits the product structure plus the shape representation for one
// named shape.
func (e *enc) model(m Model, seq int, appCtx, geomCtx int) {
	name := m.Name
	if name == "" {
		name = fmt.Sprintf("building_%d", seq)
	}

	prodCtx := e.entity("PRODUCT_CONTEXT('',#%d,'mechanical')", appCtx)
	prod := e.entity("PRODUCT('%s','%s','',(#%d))", escape(name), escape(name), prodCtx)
	e.entity("PRODUCT_RELATED_PRODUCT_CATEGORY('part',$,(#%d))", prod)
	formation := e.entity("PRODUCT_DEFINITION_FORMATION('','',#%d)", prod)
	defCtx := e.entity("PRODUCT_DEFINITION_CONTEXT('part definition',#%d,'design')", appCtx)
	pdef := e.entity("PRODUCT_DEFINITION('design','',#%d,#%d)", formation, defCtx)
	pshape := e.entity("PRODUCT_DEFINITION_SHAPE('','',#%d)", pdef)

	solids, surfaces := e.shapeItems(m.Shape, name)

	var repr int
	switch {
	case len(solids) > 0 && len(surfaces) == 0:
		repr = e.entity("ADVANCED_BREP_SHAPE_REPRESENTATION('%s',(%s),#%d)",
			escape(name), refs(solids), geomCtx)
	case len(solids) == 0 && len(surfaces) > 0:
		repr = e.entity("MANIFOLD_SURFACE_SHAPE_REPRESENTATION('%s',(%s),#%d)",
			escape(name), refs(surfaces), geomCtx)
	default:
		// mixed or empty content rides in a generic shape representation
		repr = e.entity("SHAPE_REPRESENTATION('%s',(%s),#%d)",
			escape(name), refs(append(solids, surfaces...)), geomCtx)
	}
	e.entity("SHAPE_DEFINITION_REPRESENTATION(#%d,#%d)", pshape, repr)
}

// shapeItems lowers a shape into representation items, returning solid and
// surface-model ids separately so the representation type can match.
func (e *enc) shapeItems(s brep.Shape, name string) (solids, surfaces []int) {
	switch sh := s.(type) {
	case *brep.Solid:
		return []int{e.solid(sh, name)}, nil
	case *brep.Shell:
		return nil, []int{e.shellModel(sh, name)}
	case *brep.Face:
		return nil, []int{e.shellModel(&brep.Shell{FaceList: []*brep.Face{sh}}, name)}
	case *brep.Compound:
		for i, sub := range sh.Shapes {
			ss, fs := e.shapeItems(sub, fmt.Sprintf("%s_%d", name, i+1))
			solids = append(solids, ss...)
			surfaces = append(surfaces, fs...)
		}
		return solids, surfaces
	default:
		return nil, nil
	}
}

func (e *enc) solid(s *brep.Solid, name string) int {
	se := newShapeEnc(e)
	outer := se.closedShell(s.Outer)
	if len(s.Cavities) == 0 {
		return e.entity("MANIFOLD_SOLID_BREP('%s',#%d)", escape(name), outer)
	}
	voids := make([]int, 0, len(s.Cavities))
	for _, c := range s.Cavities {
		voids = append(voids, e.entity("ORIENTED_CLOSED_SHELL('',*,#%d,.T.)", se.closedShell(c)))
	}
	return e.entity("BREP_WITH_VOIDS('%s',#%d,(%s))", escape(name), outer, refs(voids))
}

func (e *enc) shellModel(s *brep.Shell, name string) int {
	se := newShapeEnc(e)
	shell := se.openShell(s)
	return e.entity("SHELL_BASED_SURFACE_MODEL('%s',(#%d))", escape(name), shell)
}

// shapeEnc pools the topological entities of one shape so faces share
// vertex points and edge curves.
type shapeEnc struct {
	e      *enc
	points map[geom.Point3]int
	verts  map[geom.Point3]int
	edges  map[[2]geom.Point3]int
}

func newShapeEnc(e *enc) *shapeEnc {
	return &shapeEnc{
		e:      e,
		points: make(map[geom.Point3]int),
		verts:  make(map[geom.Point3]int),
		edges:  make(map[[2]geom.Point3]int),
	}
}

func (s *shapeEnc) closedShell(sh *brep.Shell) int {
	faces := s.faceIDs(sh.FaceList)
	return s.e.entity("CLOSED_SHELL('',(%s))", refs(faces))
}

func (s *shapeEnc) openShell(sh *brep.Shell) int {
	faces := s.faceIDs(sh.FaceList)
	return s.e.entity("OPEN_SHELL('',(%s))", refs(faces))
}

func (s *shapeEnc) faceIDs(faces []*brep.Face) []int {
	out := make([]int, 0, len(faces))
	for _, f := range faces {
		if id, ok := s.face(f); ok {
			out = append(out, id)
		}
	}
	return out
}

func (s *shapeEnc) face(f *brep.Face) (int, bool) {
	outer := f.Outer.Open()
	if len(outer) < 3 {
		return 0, false
	}
	bounds := []int{
		s.e.entity("FACE_OUTER_BOUND('',#%d,.T.)", s.edgeLoop(outer)),
	}
	for _, h := range f.Holes {
		hole := h.Open()
		if len(hole) < 3 {
			continue
		}
		bounds = append(bounds, s.e.entity("FACE_BOUND('',#%d,.T.)", s.edgeLoop(hole)))
	}
	plane := s.plane(f)
	return s.e.entity("ADVANCED_FACE('',(%s),#%d,.T.)", refs(bounds), plane), true
}

func (s *shapeEnc) edgeLoop(ring geom.Ring) int {
	oriented := make([]int, 0, len(ring))
	for i, a := range ring {
		b := ring[(i+1)%len(ring)]
		edge, forward := s.edgeCurve(a, b)
		flag := ".T."
		if !forward {
			flag = ".F."
		}
		oriented = append(oriented, s.e.entity("ORIENTED_EDGE('',*,*,#%d,%s)", edge, flag))
	}
	return s.e.entity("EDGE_LOOP('',(%s))", refs(oriented))
}

// edgeCurve returns the shared EDGE_CURVE for segment a-b and whether the
// caller traverses it in the stored direction.
func (s *shapeEnc) edgeCurve(a, b geom.Point3) (int, bool) {
	key, forward := edgeKeyOf(a, b)
	if id, ok := s.edges[key]; ok {
		return id, forward
	}
	lo, hi := key[0], key[1]
	dir := s.direction(hi.Sub(lo).Unit())
	vec := s.e.entity("VECTOR('',#%d,1.)", dir)
	line := s.e.entity("LINE('',#%d,#%d)", s.point(lo), vec)
	id := s.e.entity("EDGE_CURVE('',#%d,#%d,#%d,.T.)", s.vertex(lo), s.vertex(hi), line)
	s.edges[key] = id
	return id, forward
}

func edgeKeyOf(a, b geom.Point3) ([2]geom.Point3, bool) {
	if pointLess(a, b) {
		return [2]geom.Point3{a, b}, true
	}
	return [2]geom.Point3{b, a}, false
}

func pointLess(a, b geom.Point3) bool {
	if a.X != b.X {
		return a.X < b.X
	}
	if a.Y != b.Y {
		return a.Y < b.Y
	}
	return a.Z < b.Z
}

func (s *shapeEnc) point(p geom.Point3) int {
	if id, ok := s.points[p]; ok {
		return id
	}
	id := s.e.entity("CARTESIAN_POINT('',(%s,%s,%s))",
		fmtReal(p.X*UnitScale), fmtReal(p.Y*UnitScale), fmtReal(p.Z*UnitScale))
	s.points[p] = id
	return id
}

func (s *shapeEnc) vertex(p geom.Point3) int {
	if id, ok := s.verts[p]; ok {
		return id
	}
	id := s.e.entity("VERTEX_POINT('',#%d)", s.point(p))
	s.verts[p] = id
	return id
}

// direction instances are tiny and rarely shared; no pooling.
func (s *shapeEnc) direction(d geom.Point3) int {
	return s.e.entity("DIRECTION('',(%s,%s,%s))", fmtReal(d.X), fmtReal(d.Y), fmtReal(d.Z))
}

func (s *shapeEnc) plane(f *brep.Face) int {
	normal := f.Plane.Normal
	if normal.Norm() == 0 {
		normal = geom.NewellNormal(f.Outer).Unit()
	}
	if normal.Norm() == 0 {
		normal = geom.Point3{Z: 1}
	}
	origin := f.Outer.Open()[0]
	ref := refDirection(normal)

	axis := s.e.entity("AXIS2_PLACEMENT_3D('',#%d,#%d,#%d)",
		s.point(origin), s.direction(normal), s.direction(ref))
	return s.e.entity("PLANE('',#%d)", axis)
}

// refDirection picks a unit direction not parallel to the plane normal.
func refDirection(n geom.Point3) geom.Point3 {
	candidate := geom.Point3{X: 1}
	if n.Cross(candidate).Norm() < 1e-9 {
		candidate = geom.Point3{Y: 1}
	}
	// project into the plane for a proper local x axis
	return candidate.Sub(n.Scale(candidate.Dot(n))).Unit()
}

func refs(ids []int) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = "#" + strconv.Itoa(id)
	}
	return strings.Join(parts, ",")
}

// fmtReal formats a float in STEP notation, which requires an explicit
// decimal point or exponent.
func fmtReal(v float64) string {
	s := strconv.FormatFloat(v, 'G', 12, 64)
	if !strings.ContainsAny(s, ".E") {
		s += "."
	}
	return s
}

func quote(s string) string {
	return "'" + escape(s) + "'"
}

// escape doubles apostrophes per the part-21 string encoding.
func escape(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}
