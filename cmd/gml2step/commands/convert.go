package commands

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/geoforge/gml2step/internal/audit"
	"github.com/geoforge/gml2step/internal/config"
	"github.com/geoforge/gml2step/internal/convert"
	"github.com/geoforge/gml2step/internal/errors"
	"github.com/geoforge/gml2step/internal/metrics"
	"github.com/geoforge/gml2step/internal/runlog"
)

// ConvertCmd implements the 'convert' command.
type ConvertCmd struct {
	Input  string `arg:"" help:"CityGML input file"`
	Output string `short:"o" help:"STEP output file" default:"out.step"`

	Method    string `help:"Geometry method: solid, auto, sew or extrude" default:"auto"`
	Precision string `help:"Precision mode: standard, high, maximum or ultra" default:"standard"`
	FixLevel  string `name:"fix-level" help:"Shape repair level: minimal, standard, aggressive or ultra" default:"standard"`

	Merge bool `help:"Union building parts into one solid per building"`

	SourceCRS   string `name:"source-crs" help:"Source CRS override, e.g. EPSG:25832"`
	ReprojectTo string `name:"reproject-to" help:"Target CRS, e.g. EPSG:32632"`
	NoReproject bool   `name:"no-reproject" help:"Keep geographic coordinates instead of auto-selecting a UTM zone"`

	ID              []string `name:"id" help:"Convert only the buildings with these gml:ids"`
	FilterAttribute string   `name:"filter-attribute" help:"Match --id values against this generic attribute instead of gml:id"`
	Limit           int      `help:"Stop after this many buildings"`

	Streaming bool `help:"Stream buildings instead of loading the whole document"`

	HeightAttribute string  `name:"height-attribute" help:"Generic attribute holding the extrusion height"`
	DefaultHeight   float64 `name:"default-height" help:"Extrusion height when no height is found"`

	AuditDB       string `name:"audit-db" help:"SQLite file recording run events"`
	MetricsListen string `name:"metrics-listen" help:"Serve Prometheus metrics on this address while converting"`
}

func (cmd *ConvertCmd) Run(_ *Global, root *CLI) error {
	opts, err := loadOptions(root.Config, func(o *config.Options) {
		o.Input = cmd.Input
		o.Output = cmd.Output
		if cmd.Method != "" {
			o.Method = config.Method(cmd.Method)
		}
		if cmd.Precision != "" {
			o.PrecisionMode = config.PrecisionMode(cmd.Precision)
		}
		if cmd.FixLevel != "" {
			o.ShapeFixLevel = config.FixLevel(cmd.FixLevel)
		}
		if cmd.Merge {
			o.MergeBuildingParts = true
		}
		if cmd.SourceCRS != "" {
			o.SourceCRS = cmd.SourceCRS
		}
		if cmd.ReprojectTo != "" {
			o.ReprojectTo = cmd.ReprojectTo
		}
		if cmd.NoReproject {
			o.AutoReproject = false
		}
		if len(cmd.ID) > 0 {
			o.BuildingIDs = cmd.ID
		}
		if cmd.FilterAttribute != "" {
			o.FilterAttribute = cmd.FilterAttribute
		}
		if cmd.Limit > 0 {
			o.Limit = cmd.Limit
		}
		if cmd.Streaming {
			o.Streaming = true
		}
		if cmd.HeightAttribute != "" {
			o.HeightAttribute = cmd.HeightAttribute
		}
		if cmd.DefaultHeight > 0 {
			o.DefaultHeight = cmd.DefaultHeight
		}
		if cmd.AuditDB != "" {
			o.AuditDB = cmd.AuditDB
		}
		if cmd.MetricsListen != "" {
			o.MetricsListen = cmd.MetricsListen
		}
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var recorder metrics.Recorder = metrics.NoopRecorder{}
	if opts.MetricsListen != "" {
		prom := metrics.NewPrometheusRecorder()
		recorder = prom
		srv := &http.Server{Addr: opts.MetricsListen, Handler: prom.Handler()}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				slog.Warn("metrics server stopped", "error", err)
			}
		}()
		defer srv.Close()
	}

	var store *audit.Store
	if opts.AuditDB != "" {
		store, err = audit.Open(opts.AuditDB)
		if err != nil {
			return errors.WrapFatal(err, errors.CategoryConfig, "open audit database")
		}
		defer store.Close()
	}

	log := runlog.New(slog.Default(), convert.NewRunID())
	converter := &convert.Converter{
		Opts:    opts,
		Log:     log,
		Metrics: recorder,
		Audit:   store,
	}

	res, err := converter.Run(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Converted %d of %d buildings (%d degraded, %d skipped) in %s\n",
		res.Converted, res.Total, res.Degraded, res.Skipped, res.Duration.Round(time.Millisecond))
	fmt.Printf("Wrote %s\n", res.OutputPath)

	if warnings := log.Records(); len(warnings) > 0 {
		fmt.Printf("%d warnings recorded; rerun with -v for details\n", len(warnings))
	}
	return nil
}
