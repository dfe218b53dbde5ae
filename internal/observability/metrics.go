package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the ingest loop.
type Metrics struct {
	Polls       *prometheus.CounterVec // labels: source, outcome={success,fetch_error,merge_error}
	RowsFetched *prometheus.GaugeVec   // labels: source
	NewRows     *prometheus.CounterVec // labels: source
	RecordRows  *prometheus.GaugeVec   // labels: source
	LastSuccess *prometheus.GaugeVec   // labels: source

	// DetectionLatency is the delay between satellite acquisition and local discovery.
	DetectionLatency *prometheus.HistogramVec // labels: source

	CycleDuration prometheus.Histogram
	PersistErrors prometheus.Counter
	PublishErrors prometheus.Counter
	LoopRunning   prometheus.Gauge
}

// NewMetrics creates and registers all ingest metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.Polls,
		m.RowsFetched,
		m.NewRows,
		m.RecordRows,
		m.LastSuccess,
		m.DetectionLatency,
		m.CycleDuration,
		m.PersistErrors,
		m.PublishErrors,
		m.LoopRunning,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		Polls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "firms_ingest",
			Name:      "polls_total",
			Help:      "Feed polls by source and outcome.",
		}, []string{"source", "outcome"}),
		RowsFetched: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "firms_ingest",
			Name:      "snapshot_rows",
			Help:      "Rows in the most recent snapshot fetched for a source.",
		}, []string{"source"}),
		NewRows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "firms_ingest",
			Name:      "new_rows_total",
			Help:      "Detections seen for the first time.",
		}, []string{"source"}),
		RecordRows: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "firms_ingest",
			Name:      "record_rows",
			Help:      "Rows held in the cumulative record for a source.",
		}, []string{"source"}),
		LastSuccess: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "firms_ingest",
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful poll for a source.",
		}, []string{"source"}),
		DetectionLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "firms_ingest",
			Name:      "detection_latency_seconds",
			Help:      "Time between satellite acquisition and first local download.",
			Buckets:   []float64{600, 1200, 1800, 2700, 3600, 5400, 7200, 10800, 14400, 21600, 43200},
		}, []string{"source"}),
		CycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "firms_ingest",
			Name:      "cycle_duration_seconds",
			Help:      "Duration of a complete poll-merge-persist cycle.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}),
		PersistErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "firms_ingest",
			Name:      "persist_errors_total",
			Help:      "Failed record writes.",
		}),
		PublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "firms_ingest",
			Name:      "publish_errors_total",
			Help:      "Failed publishes of new detections.",
		}),
		LoopRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "firms_ingest",
			Name:      "loop_running",
			Help:      "1 when the poll loop is active, 0 when shut down.",
		}),
	}
}
