// taskmetrics.go
package qdispatch

import (
	"encoding/csv"
	"fmt"
	"os"
	"sync"
	"time"
)

// TaskMetrics is one terminal task transition's metrics row (§6, §4.5).
// Durations are seconds with 4-decimal precision; timestamps are
// formatted ISO-8601 local on write.
type TaskMetrics struct {
	TaskID                   string
	PilotScheduled           string
	SubmitTime               time.Time
	WaitTimeSecs             float64
	StagingTimeSecs          float64
	InputStagingDataSizeBytes int64
	CompletionTime           time.Time
	ExecutionSecs            float64
	Status                   string
	ErrorMsg                 string
}

// csvHeader is fixed at initialization and alphabetically sorted by
// field name, per §5 "Shared resources" and §6 "Metrics CSV".
var csvHeader = []string{
	"completion-time",
	"error-msg",
	"execution-secs",
	"input-staging-data-size-bytes",
	"pilot-scheduled",
	"staging-time-secs",
	"status",
	"submit-time",
	"task-id",
	"wait-time-secs",
}

func (m *TaskMetrics) row() []string {
	return []string{
		formatTimestamp(m.CompletionTime),
		m.ErrorMsg,
		formatSecs(m.ExecutionSecs),
		fmt.Sprintf("%d", m.InputStagingDataSizeBytes),
		m.PilotScheduled,
		formatSecs(m.StagingTimeSecs),
		m.Status,
		formatTimestamp(m.SubmitTime),
		m.TaskID,
		formatSecs(m.WaitTimeSecs),
	}
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format("2006-01-02T15:04:05")
}

func formatSecs(secs float64) string {
	return fmt.Sprintf("%.4f", secs)
}

// metricsAppendMu is the process-wide metrics lock from §5's locking
// discipline: it serializes metrics-file appends and is held only around
// the file write, never across user code. This is the second of the two
// sanctioned package-level mutable globals (§9).
var metricsAppendMu sync.Mutex

// MetricsRecorder appends TaskMetrics rows to a CSV file, writing the
// header once on first use. encoding/csv (stdlib) is used rather than a
// third-party CSV library: the schema is ten fixed, flat string fields
// with no quoting/dialect complexity a library would meaningfully
// simplify, and every domain dependency surfaced by the source material
// targets transport, storage, or parsing concerns this file format does
// not need.
//
// Every recorded row is also published on bus, the metrics event bus
// (§2 "Metrics event bus"): monitoring consumers subscribe instead of
// tailing the CSV file.
type MetricsRecorder struct {
	path        string
	mu          sync.Mutex
	wroteHeader bool
	bus         *BroadcastGroup
}

func NewMetricsRecorder(path string) *MetricsRecorder {
	return &MetricsRecorder{
		path: path,
		bus:  NewBroadcastGroup("task-metrics", time.Hour, 256),
	}
}

// Subscribe registers a consumer on the metrics event bus, returning a
// channel that receives every TaskMetrics row this recorder writes from
// here on, wrapped as a QValue.
func (r *MetricsRecorder) Subscribe(subscriberID string, bufferSize int) chan *QValue {
	return r.bus.Subscribe(subscriberID, bufferSize)
}

// Record appends one row under the process-wide metrics lock, writing
// the header first if this is the first row seen by this process.
func (r *MetricsRecorder) Record(row *TaskMetrics) error {
	metricsAppendMu.Lock()
	defer metricsAppendMu.Unlock()

	r.mu.Lock()
	needsHeader := !r.wroteHeader
	r.mu.Unlock()

	f, err := os.OpenFile(r.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("qdispatch: open metrics file: %w", err)
	}
	defer f.Close()

	if needsHeader {
		if info, statErr := f.Stat(); statErr == nil && info.Size() == 0 {
			w := csv.NewWriter(f)
			if err := w.Write(csvHeader); err != nil {
				return fmt.Errorf("qdispatch: write metrics header: %w", err)
			}
			w.Flush()
			if err := w.Error(); err != nil {
				return err
			}
		}
		r.mu.Lock()
		r.wroteHeader = true
		r.mu.Unlock()
	}

	w := csv.NewWriter(f)
	if err := w.Write(row.row()); err != nil {
		return fmt.Errorf("qdispatch: write metrics row: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}

	r.bus.Send(NewQValue(row, []State{{Value: row, Probability: 1.0}}))
	return nil
}
