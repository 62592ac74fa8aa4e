package config

import "strings"

// NormalizeResult carries the warnings collected while normalizing options.
type NormalizeResult struct {
	Warnings []string
}

// Normalize canonicalizes enum values (case-insensitive), falls back to
// defaults for unknown values with a recorded warning, and clamps numeric
// fields. The options are modified in place.
func Normalize(opts *Options) NormalizeResult {
	var res NormalizeResult
	warn := func(msg string) { res.Warnings = append(res.Warnings, msg) }

	switch Method(strings.ToLower(string(opts.Method))) {
	case MethodSolid, MethodAuto, MethodSew, MethodExtrude:
		opts.Method = Method(strings.ToLower(string(opts.Method)))
	case "":
		opts.Method = MethodAuto
	default:
		warn("unknown method " + string(opts.Method) + ", using auto")
		opts.Method = MethodAuto
	}

	switch PrecisionMode(strings.ToLower(string(opts.PrecisionMode))) {
	case PrecisionStandard, PrecisionHigh, PrecisionMaximum, PrecisionUltra:
		opts.PrecisionMode = PrecisionMode(strings.ToLower(string(opts.PrecisionMode)))
	case "":
		opts.PrecisionMode = PrecisionStandard
	default:
		warn("unknown precision_mode " + string(opts.PrecisionMode) + ", using standard")
		opts.PrecisionMode = PrecisionStandard
	}

	switch FixLevel(strings.ToLower(string(opts.ShapeFixLevel))) {
	case FixMinimal, FixStandard, FixAggressive, FixUltra:
		opts.ShapeFixLevel = FixLevel(strings.ToLower(string(opts.ShapeFixLevel)))
	case "":
		opts.ShapeFixLevel = FixStandard
	default:
		warn("unknown shape_fix_level " + string(opts.ShapeFixLevel) + ", using standard")
		opts.ShapeFixLevel = FixStandard
	}

	if opts.Limit < 0 {
		warn("negative limit clamped to 0 (unlimited)")
		opts.Limit = 0
	}

	if opts.DefaultHeight < 0 {
		warn("negative default_height ignored")
		opts.DefaultHeight = 0
	}

	if len(opts.BuildingIDs) == 0 && opts.FilterAttribute != "" {
		warn("filter_attribute set without building_ids, ignoring")
		opts.FilterAttribute = ""
	}

	return res
}
