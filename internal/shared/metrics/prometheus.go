package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)

	httpRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)

	// Business metrics
	claimsSubmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "claims_submitted_total",
			Help: "Total number of claims submitted",
		},
		[]string{"claim_type", "state"},
	)

	claimsStatusChanged = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "claims_status_changed_total",
			Help: "Total number of claim status changes",
		},
		[]string{"from_status", "to_status"},
	)

	digitizationDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "digitization_decisions_total",
			Help: "Total number of legacy record digitization decisions",
		},
		[]string{"outcome"},
	)

	authorizationDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "authorization_decisions_total",
			Help: "Total number of authorization decisions",
		},
		[]string{"resource", "action", "decision"},
	)

	auditEntriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "audit_entries_total",
			Help: "Total number of audit entries created",
		},
	)
)

// Handler returns the Prometheus metrics HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware creates HTTP metrics middleware
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		httpRequestsInFlight.Inc()
		defer httpRequestsInFlight.Dec()

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		duration := time.Since(start).Seconds()
		path := normalizePath(r.URL.Path)

		httpRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.statusCode)).Inc()
		httpRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// normalizePath keeps metric label cardinality bounded
func normalizePath(path string) string {
	if len(path) > 100 {
		return "/api/..."
	}
	return path
}

// --- Business metric helpers ---

// RecordClaimSubmitted records a claim submission
func RecordClaimSubmitted(claimType, state string) {
	claimsSubmitted.WithLabelValues(claimType, state).Inc()
}

// RecordClaimStatusChange records a claim status change
func RecordClaimStatusChange(fromStatus, toStatus string) {
	claimsStatusChanged.WithLabelValues(fromStatus, toStatus).Inc()
}

// RecordDigitizationDecision records a legacy record decision outcome
func RecordDigitizationDecision(outcome string) {
	digitizationDecisions.WithLabelValues(outcome).Inc()
}

// RecordAuthorizationDecision records an authorization decision
func RecordAuthorizationDecision(resource, action, decision string) {
	authorizationDecisions.WithLabelValues(resource, action, decision).Inc()
}

// RecordAuditEntry records an audit entry append
func RecordAuditEntry() {
	auditEntriesTotal.Inc()
}
