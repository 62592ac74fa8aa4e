package commands

import (
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"github.com/geoforge/gml2step/internal/config"
	"github.com/geoforge/gml2step/internal/errors"
)

// Global context passed to subcommands if we need to share global state later.
type Global struct {
	Logger *slog.Logger
}

// CLI definition & global flags.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path (yaml), optional"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Convert ConvertCmd `cmd:"" help:"Convert a CityGML file to a STEP part file"`
	Inspect InspectCmd `cmd:"" help:"List the buildings and geometry representations in a CityGML file"`
}

// AfterApply runs after flag parsing; setup logging once.
func (c *CLI) AfterApply() error {
	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return nil
}

// loadOptions layers the optional config file under defaults and logs the
// normalization warnings. Flag overrides are applied by the caller before
// Normalize runs.
func loadOptions(path string, apply func(*config.Options)) (config.Options, error) {
	opts := config.Defaults()
	if path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return opts, errors.WrapFatal(err, errors.CategoryConfig, "load configuration")
		}
		opts = loaded
	}
	if apply != nil {
		apply(&opts)
	}
	for _, w := range config.Normalize(&opts).Warnings {
		slog.Warn(w)
	}
	return opts, nil
}
