package httpapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"sentra.org/internal/audit"
)

func (a *API) handleAuditEntries(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	if !a.ensureManage(w, r) {
		return
	}

	params := r.URL.Query()
	limit, err := parsePositiveInt(params.Get("limit"), 100, 1, 1000)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	q := audit.Query{
		OrgID:   strings.TrimSpace(params.Get("org_id")),
		UserID:  strings.TrimSpace(params.Get("user_id")),
		ActorID: strings.TrimSpace(params.Get("actor_id")),
		Key:     strings.TrimSpace(params.Get("key")),
		Scope:   strings.TrimSpace(params.Get("scope")),
	}
	if raw := strings.TrimSpace(params.Get("since")); raw != "" {
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "since must be RFC 3339")
			return
		}
		q.Since = ts
	}
	if raw := strings.TrimSpace(params.Get("until")); raw != "" {
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "until must be RFC 3339")
			return
		}
		q.Until = ts
	}

	page, err := a.auditLog.Query(r.Context(), q, limit, params.Get("cursor"))
	if err != nil {
		if errors.Is(err, audit.ErrInvalidQuery) {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	if page.Entries == nil {
		page.Entries = []audit.Entry{}
	}
	writeJSON(w, http.StatusOK, page)
}
