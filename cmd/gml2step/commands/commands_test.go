package commands

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/geoforge/gml2step/internal/citygml"
	"github.com/geoforge/gml2step/internal/config"
)

func TestLoadOptionsDefaults(t *testing.T) {
	opts, err := loadOptions("", nil)
	require.NoError(t, err)
	require.Equal(t, config.MethodAuto, opts.Method)
	require.Equal(t, config.PrecisionStandard, opts.PrecisionMode)
	require.True(t, opts.AutoReproject)
}

func TestLoadOptionsFileAndOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("method: sew\nprecision_mode: high\n"), 0o644))

	opts, err := loadOptions(path, func(o *config.Options) {
		o.PrecisionMode = config.PrecisionMode("ULTRA") // flag override, mixed case
	})
	require.NoError(t, err)
	require.Equal(t, config.MethodSew, opts.Method)
	require.Equal(t, config.PrecisionUltra, opts.PrecisionMode)
}

func TestLoadOptionsUnknownValueFallsBack(t *testing.T) {
	opts, err := loadOptions("", func(o *config.Options) {
		o.Method = config.Method("bogus")
	})
	require.NoError(t, err)
	require.Equal(t, config.MethodAuto, opts.Method)
}

func TestLoadOptionsMissingFileFails(t *testing.T) {
	_, err := loadOptions(filepath.Join(t.TempDir(), "absent.yaml"), nil)
	require.Error(t, err)
}

const inspectSample = `<?xml version="1.0" encoding="UTF-8"?>
<core:CityModel xmlns:core="http://www.opengis.net/citygml/2.0"
    xmlns:bldg="http://www.opengis.net/citygml/building/2.0"
    xmlns:gml="http://www.opengis.net/gml">
  <core:cityObjectMember>
    <bldg:Building gml:id="B1">
      <bldg:measuredHeight uom="m">9.5</bldg:measuredHeight>
      <bldg:lod2Solid><gml:Solid><gml:exterior><gml:CompositeSurface>
        <gml:surfaceMember><gml:Polygon><gml:exterior><gml:LinearRing>
          <gml:posList>0 0 0 1 0 0 1 1 0</gml:posList>
        </gml:LinearRing></gml:exterior></gml:Polygon></gml:surfaceMember>
      </gml:CompositeSurface></gml:exterior></gml:Solid></bldg:lod2Solid>
      <bldg:boundedBy><bldg:WallSurface/></bldg:boundedBy>
      <bldg:boundedBy><bldg:WallSurface/></bldg:boundedBy>
      <bldg:boundedBy><bldg:RoofSurface/></bldg:boundedBy>
    </bldg:Building>
  </core:cityObjectMember>
</core:CityModel>`

func inspectBuilding(t *testing.T) *citygml.Building {
	t.Helper()
	doc, err := citygml.Parse(strings.NewReader(inspectSample))
	require.NoError(t, err)
	buildings := doc.Buildings()
	require.Len(t, buildings, 1)
	return buildings[0]
}

func TestGeometrySummary(t *testing.T) {
	require.Equal(t, "lod2Solid", geometrySummary(inspectBuilding(t)))
}

func TestSurfaceSummary(t *testing.T) {
	require.Equal(t, "Wall:2 Roof:1", surfaceSummary(inspectBuilding(t)))
}

func TestHeightSummary(t *testing.T) {
	require.Equal(t, "9.5", heightSummary(inspectBuilding(t)))
}
