package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects Prometheus metrics for the core.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec

	AuthzDecisions   *prometheus.CounterVec
	HijacksDetected  prometheus.Counter
	SessionEvictions prometheus.Counter
	AuditSinkErrors  *prometheus.CounterVec
}

// NewMetrics initialises the registry and core metrics.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "authcore_http_requests_total",
		Help: "HTTP requests by route and status code.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "authcore_http_request_duration_seconds",
		Help:    "HTTP request duration per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	authz := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "authcore_authz_decisions_total",
		Help: "Authorization decisions by outcome.",
	}, []string{"outcome"})
	hijacks := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "authcore_session_hijacks_detected_total",
		Help: "Suspected session hijacks detected.",
	})
	evictions := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "authcore_session_evictions_total",
		Help: "Sessions evicted by the concurrency ceiling.",
	})
	sinkErrors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "authcore_audit_sink_errors_total",
		Help: "Audit sink write failures by sink.",
	}, []string{"sink"})
	registry.MustRegister(requests, duration, authz, hijacks, evictions, sinkErrors)
	return &Metrics{
		registry:         registry,
		handler:          promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:    requests,
		requestDuration:  duration,
		AuthzDecisions:   authz,
		HijacksDetected:  hijacks,
		SessionEvictions: evictions,
		AuditSinkErrors:  sinkErrors,
	}
}

// Handler returns the http.Handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware records request metrics for each HTTP request.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)
		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// ObserveAuthzDecision counts an authorization decision. Safe on nil.
func (m *Metrics) ObserveAuthzDecision(granted bool) {
	if m == nil {
		return
	}
	outcome := "denied"
	if granted {
		outcome = "granted"
	}
	m.AuthzDecisions.WithLabelValues(outcome).Inc()
}

// RecordHijack counts a suspected session hijack. Safe on nil.
func (m *Metrics) RecordHijack() {
	if m == nil {
		return
	}
	m.HijacksDetected.Inc()
}

// RecordEviction counts a concurrency ceiling eviction. Safe on nil.
func (m *Metrics) RecordEviction() {
	if m == nil {
		return
	}
	m.SessionEvictions.Inc()
}

// RecordSinkError counts an audit sink write failure. Safe on nil.
func (m *Metrics) RecordSinkError(sink string) {
	if m == nil {
		return
	}
	m.AuditSinkErrors.WithLabelValues(sink).Inc()
}

// Registerer exposes the registry for custom metric registration.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return r.URL.Path
}
