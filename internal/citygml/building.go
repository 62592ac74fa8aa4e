package citygml

import (
	"log/slog"
	"strconv"
	"strings"

	"github.com/geoforge/gml2step/internal/geom"
)

// Building wraps one bldg:Building or bldg:BuildingPart element together
// with the document (or streaming-local) scope its references resolve in.
type Building struct {
	El  *Element
	doc *Document
}

// ID returns the building's gml:id, or "" when absent.
func (b *Building) ID() string { return b.El.ID() }

// GenericAttr returns the value of the gen:stringAttribute (or any generic
// attribute element) with the given name attribute.
func (b *Building) GenericAttr(name string) string {
	for _, attr := range b.El.DescendantsAll("stringAttribute") {
		if attr.Attr("name") == name {
			if v := attr.Child("value"); v != nil {
				return v.Text
			}
		}
	}
	for _, attr := range b.El.DescendantsAll("doubleAttribute") {
		if attr.Attr("name") == name {
			if v := attr.Child("value"); v != nil {
				return v.Text
			}
		}
	}
	return ""
}

// MeasuredHeight returns bldg:measuredHeight in source units.
func (b *Building) MeasuredHeight() (float64, bool) {
	for _, el := range b.El.ChildrenNamed("measuredHeight") {
		if v, err := strconv.ParseFloat(strings.TrimSpace(el.Text), 64); err == nil {
			return v, true
		}
	}
	return 0, false
}

// LODSolid returns the gml:Solid under lod{level}Solid, following one level
// of xlink indirection, or nil.
func (b *Building) LODSolid(level int, log *slog.Logger) *Element {
	prop := b.El.Child("lod" + strconv.Itoa(level) + "Solid")
	if prop == nil {
		return nil
	}
	target := b.doc.Resolve(prop, log)
	if target == nil {
		return nil
	}
	if target.Local() == "Solid" || target.Local() == "CompositeSolid" {
		return target
	}
	if s := target.Child("Solid"); s != nil {
		return s
	}
	if s := target.Child("CompositeSolid"); s != nil {
		return s
	}
	solids := target.Descendants("Solid")
	if len(solids) > 0 {
		return solids[0]
	}
	return nil
}

// LODMultiSurface returns the container under lod{level}MultiSurface, or nil.
func (b *Building) LODMultiSurface(level int, log *slog.Logger) *Element {
	return b.geometryProperty("lod"+strconv.Itoa(level)+"MultiSurface", log)
}

// LODGeometry returns the container under lod{level}Geometry, or nil.
func (b *Building) LODGeometry(level int, log *slog.Logger) *Element {
	return b.geometryProperty("lod"+strconv.Itoa(level)+"Geometry", log)
}

func (b *Building) geometryProperty(name string, log *slog.Logger) *Element {
	prop := b.El.Child(name)
	if prop == nil {
		return nil
	}
	return b.doc.Resolve(prop, log)
}

// BoundarySurface is one thematic surface (wall, roof, ...) of a building.
type BoundarySurface struct {
	Type string
	El   *Element
}

// BoundarySurfaces returns the building's thematic surfaces in
// BoundarySurfaceTypes order, walls first. Surfaces belonging to nested
// BuildingParts are excluded; parts are converted on their own.
func (b *Building) BoundarySurfaces() []BoundarySurface {
	var out []BoundarySurface
	for _, typ := range BoundarySurfaceTypes {
		for _, bounded := range b.El.ChildrenNamed("boundedBy") {
			for _, surf := range bounded.ChildrenNamed(typ) {
				out = append(out, BoundarySurface{Type: typ, El: surf})
			}
		}
	}
	return out
}

// SRSName returns the first srsName attribute in the building's reference
// scope. In streaming mode that scope is the building subtree itself.
func (b *Building) SRSName() string { return b.doc.SRSName() }

// Parts returns the building's BuildingPart sub-elements.
func (b *Building) Parts() []*Building {
	var out []*Building
	for _, consists := range b.El.ChildrenNamed("consistsOfBuildingPart") {
		for _, part := range consists.ChildrenNamed("BuildingPart") {
			out = append(out, &Building{El: part, doc: b.doc})
		}
	}
	return out
}

// Footprints returns the building's LOD0 footprint polygons, preferring
// lod0FootPrint over lod0RoofEdge.
func (b *Building) Footprints(log *slog.Logger) []Polygon {
	for _, name := range []string{"lod0FootPrint", "lod0RoofEdge"} {
		if prop := b.El.Child(name); prop != nil {
			if target := b.doc.Resolve(prop, log); target != nil {
				if polys := b.PolygonsIn(target, log); len(polys) > 0 {
					return polys
				}
			}
		}
	}
	return nil
}

// Polygon is one exterior ring with optional interior (hole) rings, in
// source coordinates.
type Polygon struct {
	Exterior  geom.Ring
	Interiors []geom.Ring
}

// PolygonsIn collects every gml:Polygon reachable under el, following
// xlink references on geometry members (shared geometry) with a cycle
// guard. Returns polygons with non-empty exterior rings only.
func (b *Building) PolygonsIn(el *Element, log *slog.Logger) []Polygon {
	if el == nil {
		return nil
	}
	var out []Polygon
	seen := make(map[*Element]bool)
	b.collectPolygons(el, log, seen, &out)
	return out
}

func (b *Building) collectPolygons(el *Element, log *slog.Logger, seen map[*Element]bool, out *[]Polygon) {
	if el == nil || seen[el] {
		return
	}
	seen[el] = true

	if el.Href() != "" {
		b.collectPolygons(b.doc.Resolve(el, log), log, seen, out)
		return
	}
	if el.Local() == "Polygon" {
		if poly, ok := parsePolygon(el); ok {
			*out = append(*out, poly)
		}
		return
	}
	for _, c := range el.Children {
		b.collectPolygons(c, log, seen, out)
	}
}

func parsePolygon(el *Element) (Polygon, bool) {
	var poly Polygon
	if ext := el.Child("exterior"); ext != nil {
		poly.Exterior = ringCoords(ext)
	}
	if len(poly.Exterior) < 3 {
		return Polygon{}, false
	}
	for _, interior := range el.ChildrenNamed("interior") {
		if ring := ringCoords(interior); len(ring) >= 3 {
			poly.Interiors = append(poly.Interiors, ring)
		}
	}
	return poly, true
}

// ringCoords extracts the coordinate ring under a gml exterior/interior
// property element, accepting posList, pos sequences and the legacy
// coordinates encoding.
func ringCoords(prop *Element) geom.Ring {
	ring := prop.Child("LinearRing")
	if ring == nil {
		if rings := prop.Descendants("LinearRing"); len(rings) > 0 {
			ring = rings[0]
		}
	}
	if ring == nil {
		return nil
	}

	if pl := ring.Child("posList"); pl != nil {
		dim := 3
		if v := pl.Attr("srsDimension"); v != "" {
			if d, err := strconv.Atoi(v); err == nil && d >= 2 {
				dim = d
			}
		}
		return parsePosList(pl.Text, dim)
	}

	if poss := ring.ChildrenNamed("pos"); len(poss) > 0 {
		out := make(geom.Ring, 0, len(poss))
		for _, pos := range poss {
			fields := strings.Fields(pos.Text)
			if len(fields) < 2 {
				continue
			}
			out = append(out, parsePoint(fields))
		}
		return out
	}

	if coords := ring.Child("coordinates"); coords != nil {
		out := make(geom.Ring, 0, 8)
		for _, tuple := range strings.Fields(coords.Text) {
			fields := strings.Split(tuple, ",")
			if len(fields) < 2 {
				continue
			}
			out = append(out, parsePoint(fields))
		}
		return out
	}
	return nil
}

func parsePosList(text string, dim int) geom.Ring {
	fields := strings.Fields(text)
	if dim < 2 || len(fields) < dim {
		return nil
	}
	out := make(geom.Ring, 0, len(fields)/dim)
	for i := 0; i+dim <= len(fields); i += dim {
		out = append(out, parsePoint(fields[i:i+dim]))
	}
	return out
}

func parsePoint(fields []string) geom.Point3 {
	var p geom.Point3
	if len(fields) > 0 {
		p.X, _ = strconv.ParseFloat(strings.TrimSpace(fields[0]), 64)
	}
	if len(fields) > 1 {
		p.Y, _ = strconv.ParseFloat(strings.TrimSpace(fields[1]), 64)
	}
	if len(fields) > 2 {
		p.Z, _ = strconv.ParseFloat(strings.TrimSpace(fields[2]), 64)
	}
	return p
}
