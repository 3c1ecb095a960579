package httpapi

import (
	"net/http"

	"sentra.org/internal/audit"
	"sentra.org/internal/obs"
	"sentra.org/internal/perm"
)

// API is the HTTP admin surface: directory management, permission
// resolution and mutation, and change log queries.
type API struct {
	mux        *http.ServeMux
	readyProbe ReadyProbe
	version    string

	directory *perm.Directory
	perms     *perm.Service
	auditLog  *audit.Log

	rateBurst  int
	ratePerSec int
}

func New(rp ReadyProbe, version string, directory *perm.Directory, perms *perm.Service, auditLog *audit.Log) *API {
	a := &API{
		mux:        http.NewServeMux(),
		readyProbe: rp,
		version:    version,
		directory:  directory,
		perms:      perms,
		auditLog:   auditLog,
		rateBurst:  50,
		ratePerSec: 25,
	}

	// health/ready/info
	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.HandleFunc("/v1/info", a.Info)

	// OpenAPI YAML
	a.mux.HandleFunc("/openapi.yaml", a.OpenAPISpec)

	// Prometheus metrics
	a.mux.Handle("/metrics", obs.Handler())

	// auth
	a.mux.HandleFunc("/v1/auth/token", a.handleAuthToken)

	// directory + permissions
	a.mux.HandleFunc("/v1/organizations", a.handleOrganizations)
	a.mux.HandleFunc("/v1/organizations/", a.handleOrganizationScoped)
	a.mux.HandleFunc("/v1/users/", a.handleUserScoped)

	// change log
	a.mux.HandleFunc("/v1/audit/entries", a.handleAuditEntries)

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	return a
}

// SetRateLimit overrides the default per-IP limiter parameters.
func (a *API) SetRateLimit(burst, perSecond int) {
	a.rateBurst = burst
	a.ratePerSec = perSecond
}

// Handler assembles the middleware chain around the mux.
func (a *API) Handler() http.Handler {
	h := a.withAuth(a.mux)
	h = MaxBodyBytes(h, 1<<20)
	h = RateLimit(h, a.rateBurst, a.ratePerSec)
	h = CORS(h)
	h = SecurityHeaders(h)
	h = LoggingJSON(h)
	h = RequestID(h)
	return obs.Instrument(h)
}
