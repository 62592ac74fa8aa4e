// Package config holds the conversion options: the yaml file format, the
// recognized enum values and the normalization applied before a run starts.
package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Method selects how building geometry is turned into a shape.
type Method string

const (
	MethodSolid   Method = "solid"   // use LOD solid/surface data directly
	MethodAuto    Method = "auto"    // solid, then boundary-surface sew, then extrusion
	MethodSew     Method = "sew"     // force boundary-surface sewing
	MethodExtrude Method = "extrude" // LOD0 footprint + height extrusion
)

// PrecisionMode controls how tight the per-building tolerance is.
type PrecisionMode string

const (
	PrecisionStandard PrecisionMode = "standard"
	PrecisionHigh     PrecisionMode = "high"
	PrecisionMaximum  PrecisionMode = "maximum"
	PrecisionUltra    PrecisionMode = "ultra"
)

// FixLevel controls how far shape repair escalates.
type FixLevel string

const (
	FixMinimal    FixLevel = "minimal"
	FixStandard   FixLevel = "standard"
	FixAggressive FixLevel = "aggressive"
	FixUltra      FixLevel = "ultra"
)

// Options are the immutable parameters of one conversion run.
type Options struct {
	Input  string `yaml:"input"`
	Output string `yaml:"output"`

	Method        Method        `yaml:"method"`
	PrecisionMode PrecisionMode `yaml:"precision_mode"`
	ShapeFixLevel FixLevel      `yaml:"shape_fix_level"`

	MergeBuildingParts bool `yaml:"merge_building_parts"`

	SourceCRS     string `yaml:"source_crs"`
	ReprojectTo   string `yaml:"reproject_to"`
	AutoReproject bool   `yaml:"auto_reproject"`

	BuildingIDs     []string `yaml:"building_ids"`
	FilterAttribute string   `yaml:"filter_attribute"`
	Limit           int      `yaml:"limit"`

	// extrusion height resolution, used by method=extrude and the auto
	// fallback
	HeightAttribute string  `yaml:"height_attribute"`
	DefaultHeight   float64 `yaml:"default_height"`

	Streaming bool `yaml:"streaming"`

	AuditDB       string `yaml:"audit_db"`
	MetricsListen string `yaml:"metrics_listen"`
}

// Defaults returns the option set a bare run starts from.
func Defaults() Options {
	return Options{
		Method:        MethodAuto,
		PrecisionMode: PrecisionStandard,
		ShapeFixLevel: FixStandard,
		AutoReproject: true,
	}
}

// Load reads options from a yaml file, layered over Defaults. A .env file
// next to the working directory is loaded first so ${VAR} references in the
// yaml expand.
func Load(path string) (Options, error) {
	_ = godotenv.Load() // optional; absence is not an error

	opts := Defaults()
	data, err := os.ReadFile(path)
	if err != nil {
		return opts, fmt.Errorf("read config file: %w", err)
	}
	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), &opts); err != nil {
		return opts, fmt.Errorf("unmarshal config: %w", err)
	}
	return opts, nil
}
