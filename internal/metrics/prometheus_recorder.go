package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusRecorder implements Recorder backed by a dedicated registry.
type PrometheusRecorder struct {
	registry *prometheus.Registry

	phaseDuration    *prometheus.HistogramVec
	runDuration      prometheus.Histogram
	buildingOutcome  *prometheus.CounterVec
	extractionMethod *prometheus.CounterVec
	faceFallback     *prometheus.CounterVec
	repairEscalation *prometheus.CounterVec
	fusionFallback   prometheus.Counter
}

// NewPrometheusRecorder creates a recorder with its own registry so tests
// and concurrent runs never collide on global collector registration.
func NewPrometheusRecorder() *PrometheusRecorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &PrometheusRecorder{
		registry: reg,
		phaseDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gml2step_phase_duration_seconds",
			Help:    "Duration of pipeline phases.",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
		}, []string{"phase"}),
		runDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "gml2step_run_duration_seconds",
			Help:    "Total duration of conversion runs.",
			Buckets: prometheus.ExponentialBuckets(0.01, 4, 10),
		}),
		buildingOutcome: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gml2step_building_outcomes_total",
			Help: "Per-building conversion outcomes.",
		}, []string{"outcome"}),
		extractionMethod: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gml2step_extraction_methods_total",
			Help: "Which LOD extraction strategy produced each building.",
		}, []string{"method"}),
		faceFallback: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gml2step_face_fallback_levels_total",
			Help: "Face construction fallback level reached.",
		}, []string{"level"}),
		repairEscalation: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gml2step_repair_escalations_total",
			Help: "Solid repair escalation level that succeeded.",
		}, []string{"level"}),
		fusionFallback: factory.NewCounter(prometheus.CounterOpts{
			Name: "gml2step_fusion_fallbacks_total",
			Help: "Building-part unions that fell back to a compound.",
		}),
	}
}

func (r *PrometheusRecorder) ObservePhaseDuration(phase string, d time.Duration) {
	r.phaseDuration.WithLabelValues(phase).Observe(d.Seconds())
}

func (r *PrometheusRecorder) ObserveRunDuration(d time.Duration) {
	r.runDuration.Observe(d.Seconds())
}

func (r *PrometheusRecorder) IncBuildingOutcome(outcome OutcomeLabel) {
	r.buildingOutcome.WithLabelValues(string(outcome)).Inc()
}

func (r *PrometheusRecorder) IncExtractionMethod(method string) {
	r.extractionMethod.WithLabelValues(method).Inc()
}

func (r *PrometheusRecorder) IncFaceFallbackLevel(level int) {
	r.faceFallback.WithLabelValues(strconv.Itoa(level)).Inc()
}

func (r *PrometheusRecorder) IncRepairEscalation(level string) {
	r.repairEscalation.WithLabelValues(level).Inc()
}

func (r *PrometheusRecorder) IncFusionFallback() {
	r.fusionFallback.Inc()
}

// Handler returns the HTTP handler exposing the recorder's registry.
func (r *PrometheusRecorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
