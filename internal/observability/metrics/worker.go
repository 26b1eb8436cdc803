package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kirillkom/pdf-analysis-gateway/internal/core/domain"
)

// WorkerMetrics covers the history worker: writes of analysis records into
// the history store and how far behind the event stream it runs.
type WorkerMetrics struct {
	registry *prometheus.Registry

	historyWrites   *prometheus.CounterVec
	historyDuration *prometheus.HistogramVec
	historyInFlight prometheus.Gauge
	eventLag        *prometheus.HistogramVec
	clockSkew       *prometheus.CounterVec
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	historyWrites := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "history_writes_total",
			Help:      "Analysis records written to history by write result and analysis outcome.",
		},
		[]string{"service", "result", "analysis_status"},
	)
	historyDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "history_write_duration_seconds",
			Help:      "History write duration in seconds by write result.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"service", "result"},
	)
	historyInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace:   namespace,
			Subsystem:   "worker",
			Name:        "history_writes_in_flight",
			Help:        "History writes currently running.",
			ConstLabels: prometheus.Labels{"service": service},
		},
	)
	eventLag := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "event_lag_seconds",
			Help:      "Delay between the start of an analysis and its history write.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"service"},
	)
	clockSkew := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "clock_skew_events_total",
			Help:      "Analysis events stamped later than the worker clock.",
		},
		[]string{"service"},
	)

	registry := prometheus.NewRegistry()
	registry.MustRegister(historyWrites, historyDuration, historyInFlight, eventLag, clockSkew)

	return &WorkerMetrics{
		registry:        registry,
		historyWrites:   historyWrites,
		historyDuration: historyDuration,
		historyInFlight: historyInFlight,
		eventLag:        eventLag,
		clockSkew:       clockSkew,
	}
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) StartRecord() {
	m.historyInFlight.Inc()
}

func (m *WorkerMetrics) FinishRecord(service string, record domain.AnalysisRecord, duration time.Duration, err error) {
	m.historyInFlight.Dec()

	result := "written"
	if err != nil {
		result = "error"
	}
	status := string(record.Status)
	if status == "" {
		status = "unknown"
	}

	m.historyWrites.WithLabelValues(service, result, status).Inc()
	m.historyDuration.WithLabelValues(service, result).Observe(duration.Seconds())
}

// ObserveEventLag records lag for a record created at createdAt. Records
// from the future are counted as clock skew instead.
func (m *WorkerMetrics) ObserveEventLag(service string, createdAt, now time.Time) {
	if createdAt.IsZero() {
		return
	}
	lag := now.Sub(createdAt)
	if lag < 0 {
		m.clockSkew.WithLabelValues(service).Inc()
		return
	}
	m.eventLag.WithLabelValues(service).Observe(lag.Seconds())
}
