// Package runlog provides the run-scoped logger. Every conversion run owns
// one Logger carrying the run id and current phase; components log through
// it instead of touching ambient state, so concurrent runs never interleave
// context. Warnings and recoveries are additionally recorded in an in-memory
// sink consumed by the run summary and the audit store.
package runlog

import (
	"log/slog"
	"sync"
	"time"

	"github.com/geoforge/gml2step/internal/logfields"
)

// Record is one retained log entry: a recovery, downgrade or warning worth
// surfacing after the run.
type Record struct {
	Time       time.Time
	Phase      string
	BuildingID string
	Message    string
	Attrs      map[string]any
}

// Logger is a phase-tagged slog wrapper with a per-run sink.
type Logger struct {
	log        *slog.Logger
	runID      string
	phase      string
	buildingID string

	mu      *sync.Mutex
	records *[]Record
}

// New creates the root logger for a run.
func New(base *slog.Logger, runID string) *Logger {
	if base == nil {
		base = slog.Default()
	}
	var records []Record
	return &Logger{
		log:     base.With(logfields.RunID(runID)),
		runID:   runID,
		mu:      &sync.Mutex{},
		records: &records,
	}
}

// RunID returns the id of the run this logger belongs to.
func (l *Logger) RunID() string { return l.runID }

// WithPhase returns a child logger tagged with the pipeline phase. The sink
// is shared with the parent.
func (l *Logger) WithPhase(phase string) *Logger {
	child := *l
	child.phase = phase
	child.log = l.log.With(logfields.Phase(phase))
	return &child
}

// WithBuilding returns a child logger tagged with a building id.
func (l *Logger) WithBuilding(id string) *Logger {
	child := *l
	child.buildingID = id
	child.log = l.log.With(logfields.BuildingID(id))
	return &child
}

func (l *Logger) Debug(msg string, args ...any) { l.log.Debug(msg, args...) }
func (l *Logger) Info(msg string, args ...any)  { l.log.Info(msg, args...) }

// Warn logs and retains the entry in the run sink.
func (l *Logger) Warn(msg string, args ...any) {
	l.log.Warn(msg, args...)
	l.record(msg, args)
}

// Error logs and retains the entry in the run sink.
func (l *Logger) Error(msg string, args ...any) {
	l.log.Error(msg, args...)
	l.record(msg, args)
}

func (l *Logger) record(msg string, args []any) {
	rec := Record{
		Time:       time.Now(),
		Phase:      l.phase,
		BuildingID: l.buildingID,
		Message:    msg,
	}
	if len(args) >= 2 {
		rec.Attrs = make(map[string]any, len(args)/2)
		for i := 0; i+1 < len(args); i += 2 {
			if k, ok := args[i].(string); ok {
				rec.Attrs[k] = args[i+1]
			}
		}
	}
	l.mu.Lock()
	*l.records = append(*l.records, rec)
	l.mu.Unlock()
}

// Records returns a copy of the run's retained entries.
func (l *Logger) Records() []Record {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Record, len(*l.records))
	copy(out, *l.records)
	return out
}

// Slog exposes the underlying slog logger for packages that only need the
// plain interface (e.g. xlink resolution warnings in citygml).
func (l *Logger) Slog() *slog.Logger { return l.log }
