package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics
type Metrics struct {
	// Workflow metrics
	WorkflowTransitions *prometheus.CounterVec

	// Archive metrics
	ArchiveRuns     *prometheus.CounterVec
	ArchiveRows     *prometheus.CounterVec
	ArchiveFiles    *prometheus.CounterVec
	ArchiveDuration prometheus.Histogram

	// Broker metrics
	BrokerPublishes *prometheus.CounterVec
}

// NewMetrics creates and registers all application metrics on reg.
// Tests pass a fresh prometheus.NewRegistry() to avoid duplicate registration.
func NewMetrics(reg prometheus.Registerer, namespace string) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		WorkflowTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "workflow",
			Name:      "transitions_total",
			Help:      "Total number of appointment workflow transitions",
		}, []string{"transition", "result"}),

		ArchiveRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "archive",
			Name:      "runs_total",
			Help:      "Total number of archive runs",
		}, []string{"mode", "result"}),
		ArchiveRows: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "archive",
			Name:      "rows_total",
			Help:      "Rows matched or stamped by the archiver",
		}, []string{"table", "mode"}),
		ArchiveFiles: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "archive",
			Name:      "files_total",
			Help:      "X-ray file outcomes during archive runs",
		}, []string{"outcome"}),
		ArchiveDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "archive",
			Name:      "run_duration_seconds",
			Help:      "Duration of archive runs",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		}),

		BrokerPublishes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "broker",
			Name:      "publishes_total",
			Help:      "Change events published to the broker",
		}, []string{"status"}),
	}
}

// Transition records the outcome of a workflow transition.
func (m *Metrics) Transition(name string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.WorkflowTransitions.WithLabelValues(name, result).Inc()
}

// ArchiveRun records a finished archive run.
func (m *Metrics) ArchiveRun(dryRun bool, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.ArchiveRuns.WithLabelValues(archiveMode(dryRun), result).Inc()
	m.ArchiveDuration.Observe(elapsed.Seconds())
}

// ArchiveTable adds the rows matched or stamped in table.
func (m *Metrics) ArchiveTable(table string, dryRun bool, rows int64) {
	if m == nil {
		return
	}
	m.ArchiveRows.WithLabelValues(table, archiveMode(dryRun)).Add(float64(rows))
}

// ArchiveFile counts one x-ray file outcome: moved, stamped, skipped or error.
func (m *Metrics) ArchiveFile(outcome string) {
	if m == nil {
		return
	}
	m.ArchiveFiles.WithLabelValues(outcome).Inc()
}

func archiveMode(dryRun bool) string {
	if dryRun {
		return "dry_run"
	}
	return "run"
}
