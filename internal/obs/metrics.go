package obs

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "http_in_flight_requests",
		Help: "In-flight HTTP requests.",
	})

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	permissionMutationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "permission_mutations_total",
			Help: "Permission mutations applied, by scope and action.",
		},
		[]string{"scope", "action"},
	)

	auditEntriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audit_entries_appended_total",
			Help: "Audit log entries appended, by scope and action.",
		},
		[]string{"scope", "action"},
	)
)

// Init registers all metrics in the default registry. Call once at startup.
func Init() {
	prometheus.MustRegister(
		httpInFlight,
		httpRequestsTotal,
		httpRequestDuration,
		permissionMutationsTotal,
		auditEntriesTotal,
	)
}

// Handler exposes the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// CountPermissionMutation increments the mutation counter.
func CountPermissionMutation(scope, action string) {
	permissionMutationsTotal.WithLabelValues(scope, action).Inc()
}

// CountAuditEntry increments the audit append counter.
func CountAuditEntry(scope, action string) {
	auditEntriesTotal.WithLabelValues(scope, action).Inc()
}

// Instrument wraps a handler with RPS, latency and in-flight accounting.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := CanonicalPath(r.URL.Path)
		method := r.Method

		httpInFlight.Inc()
		start := time.Now()

		sw := &statusWriter{ResponseWriter: w, code: 200}
		next.ServeHTTP(sw, r)

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(sw.code)

		httpRequestDuration.WithLabelValues(method, path, status).Observe(duration)
		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpInFlight.Dec()
	})
}

// CanonicalPath collapses resource identifiers so metric cardinality stays
// bounded. Unrecognized shapes pass through untouched.
func CanonicalPath(raw string) string {
	path := raw
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if path == "" {
		return "/"
	}

	parts := strings.Split(strings.Trim(path, "/"), "/")
	switch {
	case len(parts) >= 3 && parts[0] == "v1" && parts[1] == "organizations":
		return canonicalScoped("/v1/organizations/:id", parts[2:])
	case len(parts) >= 3 && parts[0] == "v1" && parts[1] == "users":
		return canonicalScoped("/v1/users/:id", parts[2:])
	}
	return path
}

// canonicalScoped maps the tail after /v1/<resource>/<id>. rest[0] is the id.
func canonicalScoped(prefix string, rest []string) string {
	switch len(rest) {
	case 1:
		return prefix
	case 2:
		switch rest[1] {
		case "users", "permissions":
			return prefix + "/" + rest[1]
		}
	case 3:
		if rest[1] == "permissions" {
			switch rest[2] {
			case "apply", "reset":
				return prefix + "/permissions/" + rest[2]
			default:
				return prefix + "/permissions/:key"
			}
		}
	}
	return prefix + "/" + strings.Join(rest[1:], "/")
}

// statusWriter records the response code for labeling.
type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}
