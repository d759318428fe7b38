package service

import (
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the gateway.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	conflictTotal   prometheus.Counter
	codeAttempts    prometheus.Histogram
	ticketsOpen     prometheus.Gauge
}

// NewMetricsService registers the core collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	conflictTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "schedule_conflicts_total",
		Help: "Total schedule writes rejected for overlapping an existing slot",
	})

	codeAttempts := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "schedule_code_attempts",
		Help:    "Attempts needed to draw a free schedule code",
		Buckets: []float64{1, 2, 3, 5, 10, 25, 50},
	})

	ticketsOpen := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "tickets_pending",
		Help: "Tickets currently awaiting an instructor answer",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, conflictTotal, codeAttempts, ticketsOpen, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		conflictTotal:   conflictTotal,
		codeAttempts:    codeAttempts,
		ticketsOpen:     ticketsOpen,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records per-route request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := strconv.Itoa(status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordScheduleConflict counts a rejected overlapping write.
func (m *MetricsService) RecordScheduleConflict() {
	if m == nil {
		return
	}
	m.conflictTotal.Inc()
}

// ObserveCodeAttempts records how many draws a code generation took.
func (m *MetricsService) ObserveCodeAttempts(attempts int) {
	if m == nil {
		return
	}
	m.codeAttempts.Observe(float64(attempts))
}

// SetPendingTickets updates the pending-ticket gauge.
func (m *MetricsService) SetPendingTickets(count int) {
	if m == nil {
		return
	}
	m.ticketsOpen.Set(float64(count))
}
