package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics. A nil *Metrics is valid and records nothing.
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Authentication
	SignInsTotal  *prometheus.CounterVec
	SignOutsTotal prometheus.Counter

	// Session resolution
	ResolutionsTotal       *prometheus.CounterVec
	ResolutionDuration     prometheus.Histogram
	LastLoginStampFailures prometheus.Counter
	ActiveSessions         prometheus.Gauge

	// Authorization
	GuardDecisionsTotal *prometheus.CounterVec

	// Session store
	SessionStoreOperationsTotal *prometheus.CounterVec
}

// NewMetrics creates and registers all metrics on registry
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sitepanel_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sitepanel_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		SignInsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sitepanel_sign_ins_total",
				Help: "Sign-in attempts by result",
			},
			[]string{"result"},
		),
		SignOutsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "sitepanel_sign_outs_total",
				Help: "Total number of sign-outs",
			},
		),
		ResolutionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sitepanel_session_resolutions_total",
				Help: "Admin user resolutions by outcome",
			},
			[]string{"outcome"},
		),
		ResolutionDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "sitepanel_session_resolution_duration_seconds",
				Help:    "Time spent resolving an identity into an admin user",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
			},
		),
		LastLoginStampFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "sitepanel_last_login_stamp_failures_total",
				Help: "Failed best-effort last-login updates",
			},
		),
		ActiveSessions: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "sitepanel_active_sessions",
				Help: "Session managers currently held in memory",
			},
		),
		GuardDecisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sitepanel_guard_decisions_total",
				Help: "Route guard decisions by state",
			},
			[]string{"state"},
		),
		SessionStoreOperationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sitepanel_session_store_operations_total",
				Help: "Session store operations",
			},
			[]string{"operation", "backend", "status"},
		),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.SignInsTotal,
		m.SignOutsTotal,
		m.ResolutionsTotal,
		m.ResolutionDuration,
		m.LastLoginStampFailures,
		m.ActiveSessions,
		m.GuardDecisionsTotal,
		m.SessionStoreOperationsTotal,
	)

	return m
}

// RecordSignIn counts a sign-in attempt
func (m *Metrics) RecordSignIn(result string) {
	if m == nil {
		return
	}
	m.SignInsTotal.WithLabelValues(result).Inc()
}

// RecordSignOut counts a sign-out
func (m *Metrics) RecordSignOut() {
	if m == nil {
		return
	}
	m.SignOutsTotal.Inc()
}

// RecordResolution counts a resolution and its latency
func (m *Metrics) RecordResolution(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.ResolutionsTotal.WithLabelValues(outcome).Inc()
	m.ResolutionDuration.Observe(d.Seconds())
}

// RecordStampFailure counts a failed last-login update
func (m *Metrics) RecordStampFailure() {
	if m == nil {
		return
	}
	m.LastLoginStampFailures.Inc()
}

// SetActiveSessions sets the live session gauge
func (m *Metrics) SetActiveSessions(n int) {
	if m == nil {
		return
	}
	m.ActiveSessions.Set(float64(n))
}

// RecordGuardDecision counts a route guard decision
func (m *Metrics) RecordGuardDecision(state string) {
	if m == nil {
		return
	}
	m.GuardDecisionsTotal.WithLabelValues(state).Inc()
}

// RecordStoreOperation counts a session store call
func (m *Metrics) RecordStoreOperation(operation, backend string, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.SessionStoreOperationsTotal.WithLabelValues(operation, backend, status).Inc()
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// routeLabel prefers the mux path template so label cardinality stays bounded
func routeLabel(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tmpl, err := route.GetPathTemplate(); err == nil {
			return tmpl
		}
	}
	return "unmatched"
}

// HTTPMetricsMiddleware instruments HTTP requests with Prometheus metrics
func HTTPMetricsMiddleware(metrics *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if metrics == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(rw, r)

			route := routeLabel(r)
			metrics.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rw.statusCode)).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		})
	}
}

// RegisterMetricsEndpoint registers the /metrics endpoint
func RegisterMetricsEndpoint(router *mux.Router, registry *prometheus.Registry) {
	router.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)
}
