// Package metrics records the outcome of a scan run in a Prometheus registry
// that can be written to a node-exporter textfile.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/shanehull/dlvscan/internal/types"
)

// Metrics holds the collectors for one run. A nil *Metrics is valid and records nothing.
//
// Metrics:
//   - dlvscan_fetch_attempts_total{outcome} - fetch attempts by "success" or "failure"
//   - dlvscan_rows_total{outcome} - table rows by "kept", "dropped_parse" or "dropped_range"
//   - dlvscan_selected_rows - rows that cleared the delivery threshold
//   - dlvscan_resolver_confidence - 2 full, 1 partial, 0 degraded
//   - dlvscan_run_duration_seconds - wall time of the last run
//   - dlvscan_last_success_timestamp_seconds - unix time of the last successful run
type Metrics struct {
	registry *prometheus.Registry

	FetchAttempts      *prometheus.CounterVec
	Rows               *prometheus.CounterVec
	SelectedRows       prometheus.Gauge
	ResolverConfidence prometheus.Gauge
	RunDuration        prometheus.Gauge
	LastSuccess        prometheus.Gauge
}

// New registers the collectors on a fresh registry so runs never share state.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		FetchAttempts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dlvscan_fetch_attempts_total",
				Help: "Total number of fetch attempts against the source page",
			},
			[]string{"outcome"},
		),
		Rows: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dlvscan_rows_total",
				Help: "Total number of table rows seen by the normalizer",
			},
			[]string{"outcome"},
		),
		SelectedRows: factory.NewGauge(prometheus.GaugeOpts{
			Name: "dlvscan_selected_rows",
			Help: "Number of rows that cleared the delivery threshold",
		}),
		ResolverConfidence: factory.NewGauge(prometheus.GaugeOpts{
			Name: "dlvscan_resolver_confidence",
			Help: "Confidence of the table resolution (2 full, 1 partial, 0 degraded)",
		}),
		RunDuration: factory.NewGauge(prometheus.GaugeOpts{
			Name: "dlvscan_run_duration_seconds",
			Help: "Duration of the last run in seconds",
		}),
		LastSuccess: factory.NewGauge(prometheus.GaugeOpts{
			Name: "dlvscan_last_success_timestamp_seconds",
			Help: "Unix time of the last successful run",
		}),
	}
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// RecordFetchAttempt matches the fetch attempt hook signature.
func (m *Metrics) RecordFetchAttempt(_ int, err error) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	m.FetchAttempts.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RecordRows(stats types.NormalizeStats) {
	if m == nil {
		return
	}
	m.Rows.WithLabelValues("kept").Add(float64(stats.Kept))
	m.Rows.WithLabelValues("dropped_parse").Add(float64(stats.DroppedParse))
	m.Rows.WithLabelValues("dropped_range").Add(float64(stats.DroppedRange))
}

func (m *Metrics) SetSelected(n int) {
	if m == nil {
		return
	}
	m.SelectedRows.Set(float64(n))
}

func (m *Metrics) SetConfidence(c types.Confidence) {
	if m == nil {
		return
	}
	var v float64
	switch c {
	case types.ConfidenceFull:
		v = 2
	case types.ConfidencePartial:
		v = 1
	}
	m.ResolverConfidence.Set(v)
}

// ObserveRun records the run duration, and the finish time when the run succeeded.
func (m *Metrics) ObserveRun(started, finished time.Time, ok bool) {
	if m == nil {
		return
	}
	m.RunDuration.Set(finished.Sub(started).Seconds())
	if ok {
		m.LastSuccess.Set(float64(finished.Unix()))
	}
}

// WriteTextfile writes every collected metric to path in the text exposition
// format. The file is replaced atomically.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
