package convert

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/geoforge/gml2step/internal/audit"
	"github.com/geoforge/gml2step/internal/citygml"
	"github.com/geoforge/gml2step/internal/config"
	"github.com/geoforge/gml2step/internal/crs"
	"github.com/geoforge/gml2step/internal/errors"
	"github.com/geoforge/gml2step/internal/geom"
	"github.com/geoforge/gml2step/internal/metrics"
	"github.com/geoforge/gml2step/internal/runlog"
)

// cubeSolidXML renders a closed axis-aligned cube as an LOD1 solid.
func cubeSolidXML(x, y, z, s float64) string {
	f := func(coords ...float64) string {
		parts := make([]string, len(coords))
		for i, c := range coords {
			parts[i] = fmt.Sprintf("%g", c)
		}
		return `<gml:surfaceMember><gml:Polygon><gml:exterior><gml:LinearRing>
      <gml:posList srsDimension="3">` + strings.Join(parts, " ") + `</gml:posList>
    </gml:LinearRing></gml:exterior></gml:Polygon></gml:surfaceMember>`
	}
	x2, y2, z2 := x+s, y+s, z+s
	return `<bldg:lod1Solid><gml:Solid><gml:exterior><gml:CompositeSurface>` +
		f(x, y, z, x, y2, z, x2, y2, z, x2, y, z) +
		f(x, y, z2, x2, y, z2, x2, y2, z2, x, y2, z2) +
		f(x, y, z, x2, y, z, x2, y, z2, x, y, z2) +
		f(x, y2, z, x, y2, z2, x2, y2, z2, x2, y2, z) +
		f(x, y, z, x, y, z2, x, y2, z2, x, y2, z) +
		f(x2, y, z, x2, y2, z, x2, y2, z2, x2, y, z2) +
		`</gml:CompositeSurface></gml:exterior></gml:Solid></bldg:lod1Solid>`
}

func buildingXML(id, inner string) string {
	return `<core:cityObjectMember><bldg:Building gml:id="` + id + `">` +
		inner + `</bldg:Building></core:cityObjectMember>`
}

func cityModel(members ...string) string {
	return `<?xml version="1.0" encoding="UTF-8"?>
<core:CityModel xmlns:core="http://www.opengis.net/citygml/2.0"
    xmlns:bldg="http://www.opengis.net/citygml/building/2.0"
    xmlns:gen="http://www.opengis.net/citygml/generics/2.0"
    xmlns:gml="http://www.opengis.net/gml"
    xmlns:xlink="http://www.w3.org/1999/xlink">` +
		strings.Join(members, "\n") + `</core:CityModel>`
}

func newConverter(t *testing.T, doc string, mutate func(*config.Options)) *Converter {
	t.Helper()
	dir := t.TempDir()
	input := filepath.Join(dir, "in.gml")
	require.NoError(t, os.WriteFile(input, []byte(doc), 0o644))

	opts := config.Defaults()
	opts.Input = input
	opts.Output = filepath.Join(dir, "out.step")
	if mutate != nil {
		mutate(&opts)
	}
	log := runlog.New(slog.New(slog.NewTextHandler(io.Discard, nil)), NewRunID())
	return &Converter{Opts: opts, Log: log, Metrics: metrics.NoopRecorder{}}
}

func TestRunLOD1Buildings(t *testing.T) {
	doc := cityModel(
		buildingXML("B1", cubeSolidXML(0, 0, 0, 10)),
		buildingXML("B2", cubeSolidXML(50, 0, 0, 10)),
	)
	c := newConverter(t, doc, nil)
	res, err := c.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, res.Total)
	require.Equal(t, 2, res.Converted)
	require.Zero(t, res.Skipped)
	require.Len(t, res.Buildings, 2)
	require.Equal(t, "B1", res.Buildings[0].ID)
	require.Equal(t, metrics.OutcomeConverted, res.Buildings[0].Outcome)
	require.Equal(t, "solid", res.Buildings[0].Kind)

	out, err := os.ReadFile(c.Opts.Output)
	require.NoError(t, err)
	text := string(out)
	require.Equal(t, 2, strings.Count(text, "MANIFOLD_SOLID_BREP"))
	require.Contains(t, text, "PRODUCT('B1'")
	require.Contains(t, text, "PRODUCT('B2'")
}

func TestRunBuildingIDFilter(t *testing.T) {
	members := make([]string, 0, 10)
	for i := 0; i < 10; i++ {
		members = append(members,
			buildingXML(fmt.Sprintf("B%d", i), cubeSolidXML(float64(i)*20, 0, 0, 10)))
	}
	c := newConverter(t, cityModel(members...), func(o *config.Options) {
		o.BuildingIDs = []string{"B2", "B5", "B8"}
	})
	res, err := c.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3, res.Total)
	require.Equal(t, 3, res.Converted)

	out, err := os.ReadFile(c.Opts.Output)
	require.NoError(t, err)
	require.Contains(t, string(out), "PRODUCT('B5'")
	require.NotContains(t, string(out), "PRODUCT('B3'")
}

func TestRunLimit(t *testing.T) {
	doc := cityModel(
		buildingXML("B1", cubeSolidXML(0, 0, 0, 10)),
		buildingXML("B2", cubeSolidXML(50, 0, 0, 10)),
		buildingXML("B3", cubeSolidXML(100, 0, 0, 10)),
	)
	c := newConverter(t, doc, func(o *config.Options) { o.Limit = 2 })
	res, err := c.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, res.Total)
}

func TestRunMergesBuildingParts(t *testing.T) {
	part := `<bldg:consistsOfBuildingPart><bldg:BuildingPart gml:id="P1">` +
		cubeSolidXML(10, 0, 0, 10) + `</bldg:BuildingPart></bldg:consistsOfBuildingPart>`
	doc := cityModel(buildingXML("B1", cubeSolidXML(0, 0, 0, 10)+part))

	c := newConverter(t, doc, func(o *config.Options) { o.MergeBuildingParts = true })
	res, err := c.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, res.Total)
	require.Equal(t, 1, res.Converted)

	out, err := os.ReadFile(c.Opts.Output)
	require.NoError(t, err)
	require.Equal(t, 1, strings.Count(string(out), "MANIFOLD_SOLID_BREP"))
}

func TestRunKeepsPartsSeparate(t *testing.T) {
	part := `<bldg:consistsOfBuildingPart><bldg:BuildingPart gml:id="P1">` +
		cubeSolidXML(10, 0, 0, 10) + `</bldg:BuildingPart></bldg:consistsOfBuildingPart>`
	doc := cityModel(buildingXML("B1", cubeSolidXML(0, 0, 0, 10)+part))

	c := newConverter(t, doc, nil) // merge_building_parts defaults to false
	res, err := c.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, res.Total)
	require.Equal(t, 1, res.Degraded) // compound, not a single valid solid

	out, err := os.ReadFile(c.Opts.Output)
	require.NoError(t, err)
	require.Equal(t, 2, strings.Count(string(out), "MANIFOLD_SOLID_BREP"))
}

func TestRunDisjointPartsFallBackToCompound(t *testing.T) {
	part := `<bldg:consistsOfBuildingPart><bldg:BuildingPart gml:id="P1">` +
		cubeSolidXML(100, 0, 0, 10) + `</bldg:BuildingPart></bldg:consistsOfBuildingPart>`
	doc := cityModel(buildingXML("B1", cubeSolidXML(0, 0, 0, 10)+part))

	c := newConverter(t, doc, func(o *config.Options) { o.MergeBuildingParts = true })
	res, err := c.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, res.Degraded)

	out, err := os.ReadFile(c.Opts.Output)
	require.NoError(t, err)
	require.Equal(t, 2, strings.Count(string(out), "MANIFOLD_SOLID_BREP"))
}

func TestRunStreamingMatchesDocumentMode(t *testing.T) {
	// centered so neither mode recenters and outputs stay byte-comparable
	doc := cityModel(
		buildingXML("B1", cubeSolidXML(-5, -5, -5, 10)),
	)

	plain := newConverter(t, doc, nil)
	_, err := plain.Run(context.Background())
	require.NoError(t, err)

	streamed := newConverter(t, doc, func(o *config.Options) { o.Streaming = true })
	_, err = streamed.Run(context.Background())
	require.NoError(t, err)

	a, err := os.ReadFile(plain.Opts.Output)
	require.NoError(t, err)
	b, err := os.ReadFile(streamed.Opts.Output)
	require.NoError(t, err)
	require.Equal(t, dataSection(t, string(a)), dataSection(t, string(b)))
}

// dataSection strips the header, whose timestamp differs between runs.
func dataSection(t *testing.T, s string) string {
	t.Helper()
	i := strings.Index(s, "DATA;")
	require.GreaterOrEqual(t, i, 0)
	return s[i:]
}

func TestRunExtrudeMethod(t *testing.T) {
	doc := cityModel(buildingXML("B1",
		`<bldg:measuredHeight uom="m">6</bldg:measuredHeight>
     <bldg:lod0FootPrint><gml:MultiSurface><gml:surfaceMember>
       <gml:Polygon><gml:exterior><gml:LinearRing>
         <gml:posList srsDimension="2">0 0 8 0 8 8 0 8</gml:posList>
       </gml:LinearRing></gml:exterior></gml:Polygon>
     </gml:surfaceMember></gml:MultiSurface></bldg:lod0FootPrint>`))

	c := newConverter(t, doc, func(o *config.Options) { o.Method = config.MethodExtrude })
	res, err := c.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, res.Converted)

	out, err := os.ReadFile(c.Opts.Output)
	require.NoError(t, err)
	require.Contains(t, string(out), "MANIFOLD_SOLID_BREP('B1'")
}

func TestRunAutoFallsBackToExtrusion(t *testing.T) {
	// footprint only: the solid strategies all miss
	doc := cityModel(buildingXML("B1",
		`<bldg:lod0FootPrint><gml:MultiSurface><gml:surfaceMember>
       <gml:Polygon><gml:exterior><gml:LinearRing>
         <gml:posList srsDimension="2">0 0 8 0 8 8 0 8</gml:posList>
       </gml:LinearRing></gml:exterior></gml:Polygon>
     </gml:surfaceMember></gml:MultiSurface></bldg:lod0FootPrint>`))

	c := newConverter(t, doc, nil)
	res, err := c.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, res.Converted)
}

func TestRunNoMatchFails(t *testing.T) {
	doc := cityModel(buildingXML("B1", cubeSolidXML(0, 0, 0, 10)))
	c := newConverter(t, doc, func(o *config.Options) {
		o.BuildingIDs = []string{"NOPE"}
	})
	_, err := c.Run(context.Background())
	require.Error(t, err)
	require.Equal(t, errors.CategoryInput, errors.GetCategory(err))
}

func TestRunMissingInputFails(t *testing.T) {
	c := newConverter(t, "x", nil)
	c.Opts.Input = filepath.Join(t.TempDir(), "absent.gml")
	_, err := c.Run(context.Background())
	require.Error(t, err)
	require.Equal(t, errors.CategoryInput, errors.GetCategory(err))
}

func TestRunWritesAuditTrail(t *testing.T) {
	store, err := audit.Open(":memory:")
	require.NoError(t, err)
	defer store.Close()

	doc := cityModel(buildingXML("B1", cubeSolidXML(0, 0, 0, 10)))
	c := newConverter(t, doc, nil)
	c.Audit = store

	res, err := c.Run(context.Background())
	require.NoError(t, err)

	events, err := store.ByRun(context.Background(), res.RunID)
	require.NoError(t, err)
	types := make([]string, 0, len(events))
	for _, ev := range events {
		types = append(types, ev.EventType)
	}
	require.Contains(t, types, "started")
	require.Contains(t, types, "converted")
	require.Contains(t, types, "finished")
}

func TestAutoUTMTargetUsesLatLonOrder(t *testing.T) {
	// geographic samples arrive lat/lon ordered, so the longitude is Y
	tokyo := geom.Point3{X: 35.6895, Y: 139.7617}
	require.Equal(t, 32654, autoUTMTarget([]geom.Point3{tokyo}))

	sydney := geom.Point3{X: -33.8688, Y: 151.2093}
	require.Equal(t, 32756, autoUTMTarget([]geom.Point3{sydney}))

	require.Equal(t, crs.DefaultProjectedEPSG, autoUTMTarget(nil))
}

func TestSamplePointsCoverBuildingExtent(t *testing.T) {
	doc, err := citygml.Parse(strings.NewReader(cityModel(buildingXML("B1", cubeSolidXML(0, 0, 0, 10)))))
	require.NoError(t, err)
	buildings := doc.Buildings()
	require.Len(t, buildings, 1)

	log := runlog.New(slog.New(slog.NewTextHandler(io.Discard, nil)), NewRunID())
	pts := samplePoints(buildings[0], log)

	// every face ring contributes, so the sample spans the whole cube
	require.GreaterOrEqual(t, len(pts), 24)
	var box geom.BBox
	for _, pt := range pts {
		box.Extend(pt)
	}
	require.Equal(t, geom.Point3{X: 5, Y: 5, Z: 5}, box.Center())
}
