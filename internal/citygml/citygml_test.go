package citygml

import (
	"encoding/xml"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const sampleDoc = `<?xml version="1.0" encoding="UTF-8"?>
<core:CityModel xmlns:core="http://www.opengis.net/citygml/2.0"
    xmlns:bldg="http://www.opengis.net/citygml/building/2.0"
    xmlns:gen="http://www.opengis.net/citygml/generics/2.0"
    xmlns:gml="http://www.opengis.net/gml"
    xmlns:xlink="http://www.w3.org/1999/xlink">
  <core:cityObjectMember>
    <bldg:Building gml:id="BLDG_0001">
      <gen:stringAttribute name="district"><gen:value>old-town</gen:value></gen:stringAttribute>
      <bldg:measuredHeight uom="m">12.5</bldg:measuredHeight>
      <bldg:lod2Solid>
        <gml:Solid>
          <gml:exterior>
            <gml:CompositeSurface>
              <gml:surfaceMember xlink:href="#poly_shared"/>
              <gml:surfaceMember>
                <gml:Polygon>
                  <gml:exterior><gml:LinearRing>
                    <gml:posList srsDimension="3">0 0 0 10 0 0 10 10 0 0 10 0 0 0 0</gml:posList>
                  </gml:LinearRing></gml:exterior>
                </gml:Polygon>
              </gml:surfaceMember>
            </gml:CompositeSurface>
          </gml:exterior>
        </gml:Solid>
      </bldg:lod2Solid>
      <bldg:boundedBy>
        <bldg:WallSurface gml:id="wall_1">
          <bldg:lod2MultiSurface>
            <gml:MultiSurface>
              <gml:surfaceMember>
                <gml:Polygon gml:id="poly_shared">
                  <gml:exterior><gml:LinearRing>
                    <gml:pos>0 0 0</gml:pos>
                    <gml:pos>10 0 0</gml:pos>
                    <gml:pos>10 0 8</gml:pos>
                    <gml:pos>0 0 8</gml:pos>
                  </gml:LinearRing></gml:exterior>
                </gml:Polygon>
              </gml:surfaceMember>
            </gml:MultiSurface>
          </bldg:lod2MultiSurface>
        </bldg:WallSurface>
      </bldg:boundedBy>
      <bldg:consistsOfBuildingPart>
        <bldg:BuildingPart gml:id="PART_0001">
          <bldg:lod1Solid>
            <gml:Solid>
              <gml:exterior>
                <gml:CompositeSurface>
                  <gml:surfaceMember>
                    <gml:Polygon>
                      <gml:exterior><gml:LinearRing>
                        <gml:posList>20 0 0 30 0 0 30 10 0 20 10 0</gml:posList>
                      </gml:LinearRing></gml:exterior>
                    </gml:Polygon>
                  </gml:surfaceMember>
                </gml:CompositeSurface>
              </gml:exterior>
            </gml:Solid>
          </bldg:lod1Solid>
        </bldg:BuildingPart>
      </bldg:consistsOfBuildingPart>
    </bldg:Building>
  </core:cityObjectMember>
  <core:cityObjectMember>
    <bldg:Building gml:id="BLDG_0002">
      <bldg:lod0FootPrint>
        <gml:MultiSurface srsName="EPSG:25832">
          <gml:surfaceMember>
            <gml:Polygon>
              <gml:exterior><gml:LinearRing>
                <gml:posList srsDimension="2">0 0 5 0 5 5 0 5</gml:posList>
              </gml:LinearRing></gml:exterior>
              <gml:interior><gml:LinearRing>
                <gml:posList srsDimension="2">1 1 2 1 2 2 1 2</gml:posList>
              </gml:LinearRing></gml:interior>
            </gml:Polygon>
          </gml:surfaceMember>
        </gml:MultiSurface>
      </bldg:lod0FootPrint>
    </bldg:Building>
  </core:cityObjectMember>
</core:CityModel>`

func parseSample(t *testing.T) *Document {
	t.Helper()
	doc, err := Parse(strings.NewReader(sampleDoc))
	require.NoError(t, err)
	return doc
}

func TestParseBuildings(t *testing.T) {
	doc := parseSample(t)
	buildings := doc.Buildings()
	require.Len(t, buildings, 2)
	require.Equal(t, "BLDG_0001", buildings[0].ID())
	require.Equal(t, "old-town", buildings[0].GenericAttr("district"))

	h, ok := buildings[0].MeasuredHeight()
	require.True(t, ok)
	require.InDelta(t, 12.5, h, 1e-9)
}

func TestLODSolidWithSharedReference(t *testing.T) {
	doc := parseSample(t)
	b := doc.Buildings()[0]

	solid := b.LODSolid(2, slog.Default())
	require.NotNil(t, solid)

	polys := b.PolygonsIn(solid, slog.Default())
	require.Len(t, polys, 2) // shared wall polygon resolved via xlink + inline floor

	// shared polygon came from gml:pos children
	require.Len(t, polys[0].Exterior, 4)
	require.InDelta(t, 8, polys[0].Exterior[2].Z, 1e-9)
	// inline polygon closed explicitly, five raw points
	require.Len(t, polys[1].Exterior, 5)
}

func TestUnresolvedReferenceReturnsNil(t *testing.T) {
	doc := parseSample(t)

	prop := &Element{Attrs: []xml.Attr{attr("href", "#poly_sharde")}} // typo
	resolved := doc.Resolve(prop, slog.Default())
	require.Nil(t, resolved)

	similar := doc.similarIDs("poly_sharde", 3)
	require.NotEmpty(t, similar)
	require.Equal(t, "poly_shared", similar[0])
}

func TestBoundarySurfaces(t *testing.T) {
	doc := parseSample(t)
	surfaces := doc.Buildings()[0].BoundarySurfaces()
	require.Len(t, surfaces, 1)
	require.Equal(t, "WallSurface", surfaces[0].Type)
}

func TestBuildingParts(t *testing.T) {
	doc := parseSample(t)
	parts := doc.Buildings()[0].Parts()
	require.Len(t, parts, 1)
	require.Equal(t, "PART_0001", parts[0].ID())
	require.NotNil(t, parts[0].LODSolid(1, slog.Default()))
}

func TestFootprints2D(t *testing.T) {
	doc := parseSample(t)
	polys := doc.Buildings()[1].Footprints(slog.Default())
	require.Len(t, polys, 1)
	require.Len(t, polys[0].Exterior, 4)
	require.Len(t, polys[0].Interiors, 1)
	for _, p := range polys[0].Exterior {
		require.Zero(t, p.Z) // srsDimension=2 pads z
	}
}

func TestSRSName(t *testing.T) {
	doc := parseSample(t)
	require.Equal(t, "EPSG:25832", doc.SRSName())
}

func TestFilterBuildings(t *testing.T) {
	doc := parseSample(t)
	all := doc.Buildings()

	require.Len(t, FilterBuildings(all, nil, ""), 2)
	require.Len(t, FilterBuildings(all, []string{"BLDG_0002"}, ""), 1)
	require.Empty(t, FilterBuildings(all, []string{"nope"}, ""))
	require.Len(t, FilterBuildings(all, []string{"old-town"}, "district"), 1)
}

func TestStreamBuildings(t *testing.T) {
	var ids []string
	err := StreamBuildings(strings.NewReader(sampleDoc), func(b *Building) error {
		ids = append(ids, b.ID())
		// streaming scope still resolves intra-building references
		if b.ID() == "BLDG_0001" {
			solid := b.LODSolid(2, slog.Default())
			require.NotNil(t, solid)
			require.Len(t, b.PolygonsIn(solid, slog.Default()), 2)
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, []string{"BLDG_0001", "BLDG_0002"}, ids)
}

func TestStreamBuildingsEarlyStop(t *testing.T) {
	count := 0
	err := StreamBuildings(strings.NewReader(sampleDoc), func(*Building) error {
		count++
		return ErrStopStreaming
	})
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

func TestStreamBuildingsSeesEnvelopeCRS(t *testing.T) {
	// the CRS is declared on the document envelope, outside any building
	// subtree; both parse modes must report it
	doc := `<?xml version="1.0" encoding="UTF-8"?>
<core:CityModel xmlns:core="http://www.opengis.net/citygml/2.0"
    xmlns:bldg="http://www.opengis.net/citygml/building/2.0"
    xmlns:gml="http://www.opengis.net/gml">
  <gml:boundedBy>
    <gml:Envelope srsName="EPSG:25832" srsDimension="3">
      <gml:lowerCorner>0 0 0</gml:lowerCorner>
      <gml:upperCorner>100 100 30</gml:upperCorner>
    </gml:Envelope>
  </gml:boundedBy>
  <core:cityObjectMember>
    <bldg:Building gml:id="B1"/>
  </core:cityObjectMember>
</core:CityModel>`

	parsed, err := Parse(strings.NewReader(doc))
	require.NoError(t, err)
	require.Equal(t, "EPSG:25832", parsed.SRSName())

	var streamed []string
	err = StreamBuildings(strings.NewReader(doc), func(b *Building) error {
		streamed = append(streamed, b.SRSName())
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, []string{"EPSG:25832"}, streamed)
}

func TestParseMalformed(t *testing.T) {
	_, err := Parse(strings.NewReader("<broken"))
	require.Error(t, err)
}

func attr(local, value string) (a xml.Attr) {
	a.Name.Local = local
	a.Value = value
	return a
}
