// Package metrics defines observability hooks for conversion runs.
// Implementations may forward to Prometheus; the NoopRecorder keeps
// injection optional.
package metrics

import "time"

// OutcomeLabel enumerates per-building result categories for counters.
type OutcomeLabel string

const (
	OutcomeConverted OutcomeLabel = "converted"
	OutcomeDegraded  OutcomeLabel = "degraded" // shell or invalid shape emitted
	OutcomeSkipped   OutcomeLabel = "skipped"
)

// Recorder defines the hooks the conversion pipeline reports through.
type Recorder interface {
	ObservePhaseDuration(phase string, d time.Duration)
	ObserveRunDuration(d time.Duration)
	IncBuildingOutcome(outcome OutcomeLabel)
	IncExtractionMethod(method string)
	IncFaceFallbackLevel(level int)
	IncRepairEscalation(level string)
	IncFusionFallback()
}

// NoopRecorder is a Recorder that does nothing (default when metrics are not
// configured).
type NoopRecorder struct{}

func (NoopRecorder) ObservePhaseDuration(string, time.Duration) {}
func (NoopRecorder) ObserveRunDuration(time.Duration)           {}
func (NoopRecorder) IncBuildingOutcome(OutcomeLabel)            {}
func (NoopRecorder) IncExtractionMethod(string)                 {}
func (NoopRecorder) IncFaceFallbackLevel(int)                   {}
func (NoopRecorder) IncRepairEscalation(string)                 {}
func (NoopRecorder) IncFusionFallback()                         {}
