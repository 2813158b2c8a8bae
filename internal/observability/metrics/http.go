package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lexora-app/lexora/internal/infrastructure/resilience"
)

const namespace = "lexora"

type HTTPServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	analysesTotal     *prometheus.CounterVec
	analysisRiskTotal *prometheus.CounterVec
	chatQuestions     *prometheus.CounterVec
	rejectedTotal     *prometheus.CounterVec
	breakerState      *prometheus.GaugeVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	m := &HTTPServerMetrics{
		registry: prometheus.NewRegistry(),
		requestTotal: newCounterVec("http", "requests_total",
			"Total HTTP requests processed.",
			"service", "method", "path", "status"),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"service", "method", "path"}),
		requestInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Subsystem:   "http",
			Name:        "in_flight_requests",
			Help:        "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{"service": service},
		}),
		analysesTotal: newCounterVec("analysis", "documents_total",
			"Classified documents by endpoint, legality and document type.",
			"service", "endpoint", "legal", "document_type"),
		analysisRiskTotal: newCounterVec("analysis", "clauses_total",
			"Clauses returned by risk level.",
			"service", "risk_level"),
		chatQuestions: newCounterVec("chat", "questions_total",
			"Chat questions by whether a trigger matched.",
			"service", "matched"),
		rejectedTotal: newCounterVec("http", "rejected_requests_total",
			"Requests refused by traffic control, by reason.",
			"service", "reason"),
		breakerState: newBreakerStateGauge(),
	}

	m.registry.MustRegister(
		m.requestTotal,
		m.requestDuration,
		m.requestInFlight,
		m.analysesTotal,
		m.analysisRiskTotal,
		m.chatQuestions,
		m.rejectedTotal,
		m.breakerState,
	)
	return m
}

func newCounterVec(subsystem, name, help string, labels ...string) *prometheus.CounterVec {
	return prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      name,
		Help:      help,
	}, labels)
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := normalizePath(r.URL.Path)
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			service,
			r.Method,
			path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

// normalizePath keeps document ids out of label values.
func normalizePath(path string) string {
	rest, ok := strings.CutPrefix(path, "/v1/documents/")
	if !ok || rest == "" {
		return path
	}
	_, suffix, found := strings.Cut(rest, "/")
	if !found {
		return "/v1/documents/{document_id}"
	}
	return "/v1/documents/{document_id}/" + suffix
}

// RecordAnalysis counts one classification and its clause risk levels.
func (m *HTTPServerMetrics) RecordAnalysis(service, endpoint string, legal bool, documentType string, high, medium, low int) {
	if documentType == "" {
		documentType = "unknown"
	}
	m.analysesTotal.WithLabelValues(service, endpoint, strconv.FormatBool(legal), documentType).Inc()
	if high > 0 {
		m.analysisRiskTotal.WithLabelValues(service, "High").Add(float64(high))
	}
	if medium > 0 {
		m.analysisRiskTotal.WithLabelValues(service, "Medium").Add(float64(medium))
	}
	if low > 0 {
		m.analysisRiskTotal.WithLabelValues(service, "Low").Add(float64(low))
	}
}

func (m *HTTPServerMetrics) RecordChatQuestion(service string, matched bool) {
	m.chatQuestions.WithLabelValues(service, strconv.FormatBool(matched)).Inc()
}

// RecordRejected counts rate-limited ("rate_limit") and shed ("backpressure") requests.
func (m *HTTPServerMetrics) RecordRejected(service, reason string) {
	m.rejectedTotal.WithLabelValues(service, reason).Inc()
}

func (m *HTTPServerMetrics) BreakerObserver(service string) resilience.StateObserver {
	return breakerObserver(m.breakerState, service)
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Flush() {
	flusher, ok := w.ResponseWriter.(http.Flusher)
	if ok {
		flusher.Flush()
	}
}

func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}
