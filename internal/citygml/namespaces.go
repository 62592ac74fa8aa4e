// Package citygml parses CityGML 2.0 documents into a lightweight element
// tree and exposes the building-level accessors the extraction pipeline
// works from: LOD geometry containers, boundary surfaces, building parts,
// XLink resolution and ring coordinates. Real-world files are irregular, so
// matching is deliberately lenient: local names decide, namespaces are only
// consulted to disambiguate.
package citygml

// CityGML 2.0 namespace URIs. Files in the wild occasionally carry 1.0
// namespaces or none at all, which is why element matching is by local name.
const (
	NSCore     = "http://www.opengis.net/citygml/2.0"
	NSBuilding = "http://www.opengis.net/citygml/building/2.0"
	NSGenerics = "http://www.opengis.net/citygml/generics/2.0"
	NSGML      = "http://www.opengis.net/gml"
	NSXLink    = "http://www.w3.org/1999/xlink"
)

// BoundarySurfaceTypes lists the six CityGML boundary-surface element names
// in the order they are scanned during boundary-surface extraction.
var BoundarySurfaceTypes = []string{
	"WallSurface",
	"RoofSurface",
	"GroundSurface",
	"OuterCeilingSurface",
	"OuterFloorSurface",
	"ClosureSurface",
}
