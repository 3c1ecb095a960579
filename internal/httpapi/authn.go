package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"sentra.org/internal/auth"
	"sentra.org/internal/perm"
)

const (
	authHeader = "Authorization"
	bearer     = "Bearer "
)

var publicPaths = []string{
	"/v1/auth/token",
	"/metrics",
	"/healthz",
	"/readyz",
	"/openapi.yaml",
	"/",
}

func (a *API) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		if isPublicPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		token, err := extractBearerToken(r.Header.Get(authHeader))
		if err != nil {
			writeError(w, r, http.StatusUnauthorized, err.Error())
			return
		}

		claims, err := auth.ParseAndValidate(token)
		if err != nil {
			if errors.Is(err, auth.ErrInvalidToken) {
				writeError(w, r, http.StatusUnauthorized, "invalid token")
			} else {
				writeError(w, r, http.StatusInternalServerError, "authentication error")
			}
			return
		}

		ctx := auth.ContextWithActor(r.Context(), auth.Actor{
			ID:   claims.Subject,
			Name: claims.Name,
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ensureManage authorizes permission mutations and change log access: the
// actor must resolve to an effective manageUsers grant. Writes the error
// response and returns false when denied.
func (a *API) ensureManage(w http.ResponseWriter, r *http.Request) bool {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return false
	}
	set, err := a.perms.EffectiveForUser(r.Context(), actor.ID)
	if err != nil {
		if errors.Is(err, perm.ErrNotFound) {
			writeError(w, r, http.StatusForbidden, "actor is not a known user")
			return false
		}
		writeError(w, r, http.StatusInternalServerError, "authorization error")
		return false
	}
	if !set.Has(perm.KeyManageUsers) {
		writeError(w, r, http.StatusForbidden, "manageUsers permission required")
		return false
	}
	return true
}

// ensureView authorizes effective-permission reads: the actor may always read
// their own set; reading anyone else's requires viewReports. targetUserID is
// empty for organization-level reads.
func (a *API) ensureView(w http.ResponseWriter, r *http.Request, targetUserID string) bool {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return false
	}
	if targetUserID != "" && actor.ID == targetUserID {
		return true
	}
	set, err := a.perms.EffectiveForUser(r.Context(), actor.ID)
	if err != nil {
		if errors.Is(err, perm.ErrNotFound) {
			writeError(w, r, http.StatusForbidden, "actor is not a known user")
			return false
		}
		writeError(w, r, http.StatusInternalServerError, "authorization error")
		return false
	}
	if !set.Has(perm.KeyViewReports) && !set.Has(perm.KeyManageUsers) {
		writeError(w, r, http.StatusForbidden, "viewReports permission required")
		return false
	}
	return true
}

func extractBearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", errors.New("missing bearer token")
	}
	if !strings.HasPrefix(strings.ToLower(header), strings.ToLower(bearer)) {
		return "", errors.New("invalid authorization scheme")
	}
	token := strings.TrimSpace(header[len(bearer):])
	if token == "" {
		return "", errors.New("missing bearer token")
	}
	return token, nil
}

func isPublicPath(path string) bool {
	for _, p := range publicPaths {
		if path == p {
			return true
		}
	}
	return false
}
