// Package logfields holds canonical log field name constants to avoid drift
// across packages.
package logfields

import "log/slog"

const (
	KeyRunID      = "run_id"
	KeyPhase      = "phase"
	KeyBuildingID = "building_id"
	KeyLOD        = "lod"
	KeyMethod     = "method"
	KeySurface    = "surface_type"
	KeyFaceCount  = "face_count"
	KeyTolerance  = "tolerance"
	KeyFixLevel   = "fix_level"
	KeyDurationMS = "duration_ms"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func RunID(id string) slog.Attr       { return slog.String(KeyRunID, id) }
func Phase(name string) slog.Attr     { return slog.String(KeyPhase, name) }
func BuildingID(id string) slog.Attr  { return slog.String(KeyBuildingID, id) }
func LOD(level string) slog.Attr      { return slog.String(KeyLOD, level) }
func Method(m string) slog.Attr       { return slog.String(KeyMethod, m) }
func SurfaceType(s string) slog.Attr  { return slog.String(KeySurface, s) }
func FaceCount(n int) slog.Attr       { return slog.Int(KeyFaceCount, n) }
func Tolerance(tol float64) slog.Attr { return slog.Float64(KeyTolerance, tol) }
func FixLevel(l string) slog.Attr     { return slog.String(KeyFixLevel, l) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }

func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
