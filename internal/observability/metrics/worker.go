package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lexora-app/lexora/internal/infrastructure/resilience"
)

var queueLagBuckets = []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600}

// WorkerMetrics covers the asynchronous pipeline of one worker process.
// The service label is fixed at construction.
type WorkerMetrics struct {
	service  string
	registry *prometheus.Registry

	processed    *prometheus.CounterVec
	duration     *prometheus.HistogramVec
	inFlight     prometheus.Gauge
	queueLag     prometheus.Observer
	outcomes     *prometheus.CounterVec
	breakerState *prometheus.GaugeVec
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	labels := prometheus.Labels{"service": service}
	opts := func(name, help string) prometheus.Opts {
		return prometheus.Opts{Namespace: namespace, Subsystem: "worker", Name: name, Help: help, ConstLabels: labels}
	}

	m := &WorkerMetrics{
		service:  service,
		registry: prometheus.NewRegistry(),
		processed: prometheus.NewCounterVec(
			prometheus.CounterOpts(opts("document_process_total", "Processed documents by status.")),
			[]string{"status"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace:   namespace,
				Subsystem:   "worker",
				Name:        "document_process_duration_seconds",
				Help:        "Document processing duration in seconds by status.",
				ConstLabels: labels,
				Buckets:     prometheus.DefBuckets,
			},
			[]string{"status"},
		),
		inFlight: prometheus.NewGauge(
			prometheus.GaugeOpts(opts("document_process_in_flight", "Documents being processed right now.")),
		),
		outcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts(opts("session_outcome_total", "Stage a session ended in after processing.")),
			[]string{"stage"},
		),
		breakerState: newBreakerStateGauge(),
	}
	lag := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace:   namespace,
		Subsystem:   "worker",
		Name:        "queue_lag_seconds",
		Help:        "Time between a session's last transition and the start of processing.",
		ConstLabels: labels,
		Buckets:     queueLagBuckets,
	})
	m.queueLag = lag

	m.registry.MustRegister(m.processed, m.duration, m.inFlight, lag, m.outcomes, m.breakerState)
	return m
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Track marks one document as in flight. The returned func must be called
// exactly once with the processing error and the stage the session ended in
// (empty when unknown).
func (m *WorkerMetrics) Track(queuedSince time.Time) func(err error, stage string) {
	start := time.Now()
	if !queuedSince.IsZero() {
		if lag := start.Sub(queuedSince); lag >= 0 {
			m.queueLag.Observe(lag.Seconds())
		}
	}
	m.inFlight.Inc()

	return func(err error, stage string) {
		m.inFlight.Dec()
		status := "success"
		if err != nil {
			status = "error"
		}
		m.processed.WithLabelValues(status).Inc()
		m.duration.WithLabelValues(status).Observe(time.Since(start).Seconds())
		if stage == "" {
			stage = "unknown"
		}
		m.outcomes.WithLabelValues(stage).Inc()
	}
}

func (m *WorkerMetrics) BreakerObserver() resilience.StateObserver {
	return breakerObserver(m.breakerState, m.service)
}
