// Package convert orchestrates a conversion run: input parsing, CRS setup,
// per-building extraction and shape construction, part fusion and STEP
// export. Building-level failures are logged and counted, never fatal; the
// run only aborts on input, CRS or export errors.
package convert

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/geoforge/gml2step/internal/audit"
	"github.com/geoforge/gml2step/internal/brep"
	"github.com/geoforge/gml2step/internal/citygml"
	"github.com/geoforge/gml2step/internal/config"
	"github.com/geoforge/gml2step/internal/construct"
	"github.com/geoforge/gml2step/internal/crs"
	"github.com/geoforge/gml2step/internal/errors"
	"github.com/geoforge/gml2step/internal/extract"
	"github.com/geoforge/gml2step/internal/extrude"
	"github.com/geoforge/gml2step/internal/fuse"
	"github.com/geoforge/gml2step/internal/geom"
	"github.com/geoforge/gml2step/internal/metrics"
	"github.com/geoforge/gml2step/internal/runlog"
	"github.com/geoforge/gml2step/internal/step"
)

// Result summarizes one finished run.
type Result struct {
	RunID      string
	Total      int // buildings seen after filtering
	Converted  int // valid solids
	Degraded   int // shape produced, but not a valid solid
	Skipped    int // no usable geometry
	Buildings  []BuildingOutcome
	OutputPath string
	Duration   time.Duration
}

// BuildingOutcome is one building's line in the run summary.
type BuildingOutcome struct {
	ID      string
	Outcome metrics.OutcomeLabel
	Kind    string // shape kind, empty when skipped
}

// Converter runs conversions. Log and Metrics must be set; Audit is
// optional.
type Converter struct {
	Opts    config.Options
	Log     *runlog.Logger
	Metrics metrics.Recorder
	Audit   *audit.Store
}

// NewRunID returns the identifier stamped on a run's logs and audit rows.
func NewRunID() string { return uuid.NewString() }

// Run executes the conversion described by the options.
func (c *Converter) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	res := &Result{RunID: c.Log.RunID(), OutputPath: c.Opts.Output}
	log := c.Log.WithPhase("run")
	log.Info("starting conversion",
		"input", c.Opts.Input, "output", c.Opts.Output,
		"method", string(c.Opts.Method), "streaming", c.Opts.Streaming)
	c.audit(ctx, "run", "", "started", map[string]any{"input": c.Opts.Input})

	models, err := c.collectModels(ctx, res)
	if err != nil {
		return res, err
	}
	if len(models) == 0 {
		return res, errors.Fatal(errors.CategoryInput, "no buildings produced geometry")
	}

	if err := c.export(models); err != nil {
		return res, err
	}

	res.Duration = time.Since(start)
	c.Metrics.ObserveRunDuration(res.Duration)
	log.Info("conversion finished",
		"total", res.Total, "converted", res.Converted,
		"degraded", res.Degraded, "skipped", res.Skipped,
		"duration_ms", res.Duration.Milliseconds())
	c.audit(ctx, "run", "", "finished", map[string]any{
		"total": res.Total, "converted": res.Converted,
		"degraded": res.Degraded, "skipped": res.Skipped,
	})
	return res, nil
}

// collectModels runs the parse and convert phases in document or streaming
// mode.
func (c *Converter) collectModels(ctx context.Context, res *Result) ([]step.Model, error) {
	f, err := os.Open(c.Opts.Input)
	if err != nil {
		return nil, errors.WrapFatal(err, errors.CategoryInput, "open input file")
	}
	defer f.Close()

	if c.Opts.Streaming {
		return c.streamModels(ctx, f, res)
	}
	return c.documentModels(ctx, f, res)
}

func (c *Converter) documentModels(ctx context.Context, f *os.File, res *Result) ([]step.Model, error) {
	parseStart := time.Now()
	doc, err := citygml.Parse(f)
	if err != nil {
		return nil, errors.WrapFatal(err, errors.CategoryInput, "parse citygml document")
	}
	c.Metrics.ObservePhaseDuration("parse", time.Since(parseStart))

	buildings := citygml.FilterBuildings(doc.Buildings(), c.Opts.BuildingIDs, c.Opts.FilterAttribute)
	if c.Opts.Limit > 0 && len(buildings) > c.Opts.Limit {
		buildings = buildings[:c.Opts.Limit]
	}
	if len(buildings) == 0 {
		return nil, errors.Fatal(errors.CategoryInput, "no buildings matched")
	}

	crsStart := time.Now()
	pipe, err := c.setupCRS(doc.SRSName(), sampleBuildings(buildings, c.Log))
	if err != nil {
		return nil, err
	}
	c.Metrics.ObservePhaseDuration("crs", time.Since(crsStart))
	c.auditRecenter(ctx, pipe)

	convertStart := time.Now()
	models := make([]step.Model, 0, len(buildings))
	for _, b := range buildings {
		if err := ctx.Err(); err != nil {
			return nil, errors.WrapFatal(err, errors.CategoryInternal, "run canceled")
		}
		if m, ok := c.building(ctx, b, pipe, res); ok {
			models = append(models, m)
		}
	}
	c.Metrics.ObservePhaseDuration("convert", time.Since(convertStart))
	return models, nil
}

func (c *Converter) streamModels(ctx context.Context, f *os.File, res *Result) ([]step.Model, error) {
	var (
		models []step.Model
		pipe   *crs.Pipeline
	)
	convertStart := time.Now()
	err := citygml.StreamBuildings(f, func(b *citygml.Building) error {
		if err := ctx.Err(); err != nil {
			return errors.WrapFatal(err, errors.CategoryInternal, "run canceled")
		}
		if !citygml.MatchesFilter(b, c.Opts.BuildingIDs, c.Opts.FilterAttribute) {
			return nil
		}
		if pipe == nil {
			// the first matching building fixes the CRS and the recenter
			// offset for the whole stream
			p, err := c.setupCRS(b.SRSName(), samplePoints(b, c.Log))
			if err != nil {
				return err
			}
			pipe = p
			c.auditRecenter(ctx, pipe)
		}
		if m, ok := c.building(ctx, b, pipe, res); ok {
			models = append(models, m)
		}
		if c.Opts.Limit > 0 && res.Total >= c.Opts.Limit {
			return citygml.ErrStopStreaming
		}
		return nil
	})
	if err != nil {
		if _, ok := err.(*errors.ConvertError); ok {
			return nil, err
		}
		return nil, errors.WrapFatal(err, errors.CategoryInput, "stream citygml document")
	}
	c.Metrics.ObservePhaseDuration("convert", time.Since(convertStart))
	if res.Total == 0 {
		return nil, errors.Fatal(errors.CategoryInput, "no buildings matched")
	}
	return models, nil
}

// setupCRS builds the coordinate pipeline: source EPSG from options or the
// document, optional reprojection, and recentering when the transformed
// sample lies far from the origin.
func (c *Converter) setupCRS(docSRS string, sample []geom.Point3) (*crs.Pipeline, error) {
	log := c.Log.WithPhase("crs")

	source := 0
	if c.Opts.SourceCRS != "" {
		code, ok := crs.ParseEPSG(c.Opts.SourceCRS)
		if !ok {
			return nil, errors.Fatal(errors.CategoryCRS, "unrecognized source_crs "+c.Opts.SourceCRS)
		}
		source = code
	} else if code, ok := crs.ParseEPSG(docSRS); ok {
		source = code
		log.Info("source CRS from document", "epsg", code, "srs_name", docSRS)
	}

	target := 0
	if c.Opts.ReprojectTo != "" {
		code, ok := crs.ParseEPSG(c.Opts.ReprojectTo)
		if !ok {
			return nil, errors.Fatal(errors.CategoryCRS, "unrecognized reproject_to "+c.Opts.ReprojectTo)
		}
		target = code
	}

	pipe, err := c.buildPipeline(source, target, sample, log)
	if err != nil {
		return nil, err
	}

	if len(sample) > 0 {
		var box geom.BBox
		for _, p := range sample {
			box.Extend(pipe.ApplyRaw(p))
		}
		pipe.SetRecenter(box.Center())
		if pipe.Recentered() {
			log.Info("recentering coordinates", "offset", box.Center())
		}
	}
	return pipe, nil
}

func (c *Converter) buildPipeline(source, target int, sample []geom.Point3, log *runlog.Logger) (*crs.Pipeline, error) {
	if source == 0 {
		if len(sample) > 0 && crs.LooksGeographic(sample[0]) {
			log.Warn("coordinates are in degree range but no source CRS is declared; " +
				"set source_crs if this data is geographic")
		}
		log.Debug("no source CRS, passing coordinates through")
		return crs.NewPipeline(0, 0, false, nil), nil
	}

	geographic, err := crs.IsGeographicEPSG(source)
	if err != nil {
		return nil, errors.WrapFatal(err, errors.CategoryCRS, "inspect source CRS")
	}

	if target == 0 {
		if !geographic || !c.Opts.AutoReproject {
			if geographic {
				log.Warn("geographic source kept as-is, auto_reproject is off", "epsg", source)
			}
			return crs.NewPipeline(source, source, geographic, nil), nil
		}
		// geographic data is unusable for solid modeling; pick a UTM zone
		// from a sample coordinate
		target = autoUTMTarget(sample)
		log.Info("auto-reprojecting geographic source", "source", source, "target", target)
	}

	if target == source {
		return crs.NewPipeline(source, target, geographic, nil), nil
	}
	tf, srcGeographic, err := crs.NewGDALTransform(source, target)
	if err != nil {
		return nil, errors.WrapFatal(err, errors.CategoryCRS, "build coordinate transform")
	}
	log.Info("reprojecting", "source", source, "target", target)
	return crs.NewPipeline(source, target, srcGeographic, tf), nil
}

// building converts one building (and its parts) into a STEP model.
// Returns false when the building is skipped.
func (c *Converter) building(ctx context.Context, b *citygml.Building, pipe *crs.Pipeline, res *Result) (step.Model, bool) {
	res.Total++
	id := b.ID()
	if id == "" {
		id = fmt.Sprintf("building_%d", res.Total)
	}
	log := c.Log.WithPhase("convert").WithBuilding(id)
	buildStart := time.Now()

	shapes := make([]brep.Shape, 0, 1)
	tols := make([]float64, 0, 1)
	if shape, tol, ok := c.buildingShape(ctx, b, id, pipe); ok {
		shapes = append(shapes, shape)
		tols = append(tols, tol)
	}
	for _, part := range b.Parts() {
		partID := part.ID()
		if partID == "" {
			partID = id + "_part"
		}
		if shape, tol, ok := c.buildingShape(ctx, part, partID, pipe); ok {
			shapes = append(shapes, shape)
			tols = append(tols, tol)
		}
	}
	if len(shapes) == 0 {
		res.Skipped++
		res.Buildings = append(res.Buildings, BuildingOutcome{ID: id, Outcome: metrics.OutcomeSkipped})
		c.Metrics.IncBuildingOutcome(metrics.OutcomeSkipped)
		c.audit(ctx, "convert", id, "skipped", nil)
		log.Warn("building skipped, no geometry")
		return step.Model{}, false
	}

	// the loosest member tolerance governs the fusion sew
	tol := tols[0]
	for _, t := range tols[1:] {
		if t > tol {
			tol = t
		}
	}
	shape := fuse.Fuse(shapes, c.Opts.MergeBuildingParts, tol, log)
	if len(shapes) > 1 {
		if _, isCompound := shape.(*brep.Compound); isCompound && c.Opts.MergeBuildingParts {
			c.Metrics.IncFusionFallback()
			c.audit(ctx, "fuse", id, "fusion_fallback", map[string]any{"parts": len(shapes)})
		}
	}

	outcome := metrics.OutcomeDegraded
	if isValidSolid(shape, tol) {
		outcome = metrics.OutcomeConverted
		res.Converted++
	} else {
		res.Degraded++
	}
	c.Metrics.IncBuildingOutcome(outcome)
	res.Buildings = append(res.Buildings, BuildingOutcome{
		ID: id, Outcome: outcome, Kind: shape.Kind().String(),
	})
	log.Info("building converted",
		"kind", shape.Kind().String(), "parts", len(shapes),
		"duration_ms", time.Since(buildStart).Milliseconds())
	c.audit(ctx, "convert", id, "converted", map[string]any{
		"kind": shape.Kind().String(), "parts": len(shapes),
	})
	return step.Model{Name: id, Shape: shape}, true
}

// buildingShape produces the shape of a single building or part, without
// fusion. The returned tolerance is the one the shape was built at.
func (c *Converter) buildingShape(ctx context.Context, b *citygml.Building, id string, pipe *crs.Pipeline) (brep.Shape, float64, bool) {
	log := c.Log.WithPhase("convert").WithBuilding(id)

	if c.Opts.Method == config.MethodExtrude {
		return c.extrudedShape(ctx, b, id, pipe, log)
	}

	ex := &extract.Extractor{
		Pipeline:      pipe,
		Log:           c.Log.WithPhase("extract"),
		ForceBoundary: c.Opts.Method == config.MethodSew,
	}
	result := ex.Extract(b)
	if result == nil {
		if c.Opts.Method == config.MethodAuto {
			log.Info("falling back to footprint extrusion")
			return c.extrudedShape(ctx, b, id, pipe, log)
		}
		return nil, 0, false
	}
	c.Metrics.IncExtractionMethod(result.Method)

	rings := make([]geom.Ring, 0, len(result.Exterior))
	for _, p := range result.Exterior {
		rings = append(rings, p.Exterior)
	}
	tol := construct.Tolerance(construct.ExtentOf(rings), c.Opts.PrecisionMode)

	faces, maxLevel := c.buildFaces(result.Exterior, tol)
	if maxLevel > 0 {
		c.Metrics.IncFaceFallbackLevel(maxLevel)
	}
	if len(faces) == 0 {
		log.Warn("all faces degenerate", "polygons", len(result.Exterior))
		return nil, 0, false
	}

	interior := make([][]*brep.Face, 0, len(result.InteriorShells))
	for _, group := range result.InteriorShells {
		if gf, _ := c.buildFaces(group, tol); len(gf) > 0 {
			interior = append(interior, gf)
		}
	}

	outcome := construct.BuildSolid(faces, interior, tol, c.Opts.ShapeFixLevel, log)
	if outcome.Shape == nil {
		return nil, 0, false
	}
	if outcome.Escalation != "" {
		c.Metrics.IncRepairEscalation(outcome.Escalation)
		c.audit(ctx, "construct", id, "escalation", map[string]any{"level": outcome.Escalation})
	}
	return outcome.Shape, tol, true
}

func (c *Converter) extrudedShape(ctx context.Context, b *citygml.Building, id string, pipe *crs.Pipeline, log *runlog.Logger) (brep.Shape, float64, bool) {
	extr := &extrude.Extruder{
		Pipeline: pipe,
		Log:      c.Log.WithPhase("extrude"),
		Opts: extrude.Options{
			HeightAttribute: c.Opts.HeightAttribute,
			DefaultHeight:   c.Opts.DefaultHeight,
		},
	}
	faces, err := extr.Building(b)
	if err != nil {
		log.Error("extrusion failed", "error", err)
		return nil, 0, false
	}
	if len(faces) == 0 {
		return nil, 0, false
	}
	c.Metrics.IncExtractionMethod("extrude")

	rings := make([]geom.Ring, 0, len(faces))
	for _, f := range faces {
		rings = append(rings, f.Outer)
	}
	tol := construct.Tolerance(construct.ExtentOf(rings), c.Opts.PrecisionMode)
	outcome := construct.BuildSolid(faces, nil, tol, c.Opts.ShapeFixLevel, log)
	if outcome.Shape == nil {
		return nil, 0, false
	}
	if outcome.Escalation != "" {
		c.Metrics.IncRepairEscalation(outcome.Escalation)
		c.audit(ctx, "construct", id, "escalation", map[string]any{"level": outcome.Escalation})
	}
	return outcome.Shape, tol, true
}

// buildFaces runs the face fallback chain over a polygon set, returning the
// deepest fallback level used.
func (c *Converter) buildFaces(polys []extract.Polygon, tol float64) ([]*brep.Face, int) {
	var faces []*brep.Face
	maxLevel := 0
	for _, p := range polys {
		fr := construct.BuildFace(p.Exterior, p.Interiors, tol)
		faces = append(faces, fr.Faces...)
		if fr.Level > maxLevel {
			maxLevel = fr.Level
		}
	}
	return faces, maxLevel
}

func (c *Converter) export(models []step.Model) error {
	exportStart := time.Now()
	out, err := os.Create(c.Opts.Output)
	if err != nil {
		return errors.WrapFatal(err, errors.CategoryExport, "create output file")
	}
	defer out.Close()

	err = step.Write(out, models, step.Options{
		FileName: filepath.Base(c.Opts.Output),
		Author:   "gml2step",
	})
	if err != nil {
		return errors.WrapFatal(err, errors.CategoryExport, "write step file")
	}
	if err := out.Close(); err != nil {
		return errors.WrapFatal(err, errors.CategoryExport, "close output file")
	}
	c.Metrics.ObservePhaseDuration("export", time.Since(exportStart))
	c.Log.WithPhase("export").Info("step file written",
		"path", c.Opts.Output, "models", len(models))
	return nil
}

// autoUTMTarget picks the UTM zone EPSG for a geographic sample. Geographic
// source coordinates arrive lat/lon ordered (the CityGML urn convention the
// transform layer also assumes), so Y is the longitude.
func autoUTMTarget(sample []geom.Point3) int {
	if len(sample) == 0 {
		return crs.DefaultProjectedEPSG
	}
	return crs.UTMZoneEPSG(sample[0].Y, sample[0].X)
}

func (c *Converter) auditRecenter(ctx context.Context, pipe *crs.Pipeline) {
	if !pipe.Recentered() {
		return
	}
	c.audit(ctx, "crs", "", "recentered", map[string]any{
		"x": pipe.Offset.X, "y": pipe.Offset.Y, "z": pipe.Offset.Z,
	})
}

func (c *Converter) audit(ctx context.Context, phase, buildingID, event string, details map[string]any) {
	if c.Audit == nil {
		return
	}
	if err := c.Audit.Append(ctx, c.Log.RunID(), phase, buildingID, event, details); err != nil {
		c.Log.Warn("audit append failed", "error", err)
	}
}

// sampleBuildings collects one source-coordinate sample point per building
// for CRS decisions and the recenter offset.
func sampleBuildings(buildings []*citygml.Building, log *runlog.Logger) []geom.Point3 {
	var out []geom.Point3
	for _, b := range buildings {
		out = append(out, samplePoints(b, log)...)
	}
	return out
}

// samplePoints returns the first polygon ring of the building's geometry,
// searched across LOD solids, multi-surfaces and footprints. All exterior
// ring coordinates of the first representation found are returned, so the
// recenter offset reflects the building's full extent.
func samplePoints(b *citygml.Building, log *runlog.Logger) []geom.Point3 {
	slog := log.Slog()
	collect := func(polys []citygml.Polygon) []geom.Point3 {
		var pts []geom.Point3
		for _, p := range polys {
			pts = append(pts, p.Exterior...)
		}
		return pts
	}
	for lod := 3; lod >= 1; lod-- {
		if el := b.LODSolid(lod, slog); el != nil {
			if polys := b.PolygonsIn(el, slog); len(polys) > 0 {
				return collect(polys)
			}
		}
		if el := b.LODMultiSurface(lod, slog); el != nil {
			if polys := b.PolygonsIn(el, slog); len(polys) > 0 {
				return collect(polys)
			}
		}
	}
	if polys := b.Footprints(slog); len(polys) > 0 {
		return collect(polys)
	}
	for _, surf := range b.BoundarySurfaces() {
		if polys := b.PolygonsIn(surf.El, slog); len(polys) > 0 {
			return collect(polys)
		}
	}
	return nil
}

func isValidSolid(s brep.Shape, tol float64) bool {
	solid, ok := s.(*brep.Solid)
	return ok && brep.ValidateSolid(solid, tol).Valid()
}
