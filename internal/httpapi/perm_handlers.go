package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"sentra.org/internal/audit"
	"sentra.org/internal/auth"
	"sentra.org/internal/perm"
)

type createOrganizationRequest struct {
	Name string `json:"name"`
}

type createUserRequest struct {
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
}

type setFlagRequest struct {
	Value *bool  `json:"value"`
	Note  string `json:"note"`
}

type setPermissionsRequest struct {
	Flags map[string]bool `json:"flags"`
	Note  string          `json:"note"`
}

type noteRequest struct {
	Note string `json:"note"`
}

type permissionSetResponse struct {
	Scope string `json:"scope"`
	ID    string `json:"id"`
	perm.Set
}

func (a *API) handleOrganizations(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		orgs, err := a.directory.ListOrganizations(r.Context())
		if err != nil {
			handlePermError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": orgs})
	case http.MethodPost:
		if !a.ensureManage(w, r) {
			return
		}
		var req createOrganizationRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		org, err := a.directory.CreateOrganization(r.Context(), req.Name)
		if err != nil {
			handlePermError(w, r, err)
			return
		}
		_ = audit.LogEvent(r.Context(), "directory.organization.create", map[string]any{
			"organization_id": org.ID,
			"name":            org.Name,
		})
		w.Header().Set("Location", fmt.Sprintf("/v1/organizations/%s", org.ID))
		writeJSON(w, http.StatusCreated, org)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleOrganizationScoped(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/organizations/"), "/")
	if path == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	parts := strings.Split(path, "/")
	orgID := parts[0]
	switch {
	case len(parts) == 1:
		a.getOrganization(w, r, orgID)
	case len(parts) == 2 && parts[1] == "users":
		a.handleOrganizationUsers(w, r, orgID)
	case len(parts) == 2 && parts[1] == "permissions":
		a.handleOrgPermissions(w, r, orgID)
	case len(parts) == 3 && parts[1] == "permissions" && parts[2] == "apply":
		a.applyOrgDefaults(w, r, orgID)
	case len(parts) == 3 && parts[1] == "permissions":
		a.setOrgFlag(w, r, orgID, parts[2])
	default:
		writeError(w, r, http.StatusNotFound, "resource not found")
	}
}

func (a *API) getOrganization(w http.ResponseWriter, r *http.Request, orgID string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	org, err := a.directory.GetOrganization(r.Context(), orgID)
	if err != nil {
		handlePermError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, org)
}

func (a *API) handleOrganizationUsers(w http.ResponseWriter, r *http.Request, orgID string) {
	switch r.Method {
	case http.MethodGet:
		users, err := a.directory.ListUsers(r.Context(), orgID)
		if err != nil {
			handlePermError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": users})
	case http.MethodPost:
		if !a.ensureManage(w, r) {
			return
		}
		var req createUserRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		user, err := a.directory.CreateUser(r.Context(), orgID, req.Email, req.DisplayName)
		if err != nil {
			handlePermError(w, r, err)
			return
		}
		_ = audit.LogEvent(r.Context(), "directory.user.create", map[string]any{
			"organization_id": orgID,
			"user_id":         user.ID,
			"email":           user.Email,
		})
		w.Header().Set("Location", fmt.Sprintf("/v1/users/%s", user.ID))
		writeJSON(w, http.StatusCreated, user)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleOrgPermissions(w http.ResponseWriter, r *http.Request, orgID string) {
	switch r.Method {
	case http.MethodGet:
		if !a.ensureView(w, r, "") {
			return
		}
		set, err := a.perms.EffectiveForOrganization(r.Context(), orgID)
		if err != nil {
			handlePermError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, permissionSetResponse{Scope: string(perm.ScopeOrganization), ID: orgID, Set: set})
	case http.MethodPut:
		if !a.ensureManage(w, r) {
			return
		}
		var req setPermissionsRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		if len(req.Flags) == 0 {
			writeError(w, r, http.StatusBadRequest, "flags are required")
			return
		}
		if err := a.perms.SetPermissions(r.Context(), actorFrom(r), perm.ScopeOrganization, orgID, toFlags(req.Flags), req.Note); err != nil {
			handlePermError(w, r, err)
			return
		}
		a.respondOrgSet(w, r, orgID)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPut)
	}
}

func (a *API) setOrgFlag(w http.ResponseWriter, r *http.Request, orgID, key string) {
	if r.Method != http.MethodPut {
		methodNotAllowed(w, r, http.MethodPut)
		return
	}
	if !a.ensureManage(w, r) {
		return
	}
	var req setFlagRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.Value == nil {
		writeError(w, r, http.StatusBadRequest, "value is required")
		return
	}
	if err := a.perms.SetFlag(r.Context(), actorFrom(r), perm.ScopeOrganization, orgID, perm.Key(key), *req.Value, req.Note); err != nil {
		handlePermError(w, r, err)
		return
	}
	a.respondOrgSet(w, r, orgID)
}

func (a *API) applyOrgDefaults(w http.ResponseWriter, r *http.Request, orgID string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	if !a.ensureManage(w, r) {
		return
	}
	var req noteRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
	}
	n, err := a.perms.ApplyOrgDefaults(r.Context(), actorFrom(r), orgID, req.Note)
	if err != nil {
		handlePermError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"users_affected": n})
}

func (a *API) handleUserScoped(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/users/"), "/")
	if path == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	parts := strings.Split(path, "/")
	userID := parts[0]
	switch {
	case len(parts) == 1:
		a.getUser(w, r, userID)
	case len(parts) == 2 && parts[1] == "permissions":
		a.handleUserPermissions(w, r, userID)
	case len(parts) == 3 && parts[1] == "permissions" && parts[2] == "reset":
		a.resetUser(w, r, userID)
	case len(parts) == 3 && parts[1] == "permissions":
		a.setUserFlag(w, r, userID, parts[2])
	default:
		writeError(w, r, http.StatusNotFound, "resource not found")
	}
}

func (a *API) getUser(w http.ResponseWriter, r *http.Request, userID string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	user, err := a.directory.GetUser(r.Context(), userID)
	if err != nil {
		handlePermError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (a *API) handleUserPermissions(w http.ResponseWriter, r *http.Request, userID string) {
	switch r.Method {
	case http.MethodGet:
		if !a.ensureView(w, r, userID) {
			return
		}
		set, err := a.perms.EffectiveForUser(r.Context(), userID)
		if err != nil {
			handlePermError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, permissionSetResponse{Scope: string(perm.ScopeUser), ID: userID, Set: set})
	case http.MethodPut:
		if !a.ensureManage(w, r) {
			return
		}
		var req setPermissionsRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		if len(req.Flags) == 0 {
			writeError(w, r, http.StatusBadRequest, "flags are required")
			return
		}
		if err := a.perms.SetPermissions(r.Context(), actorFrom(r), perm.ScopeUser, userID, toFlags(req.Flags), req.Note); err != nil {
			handlePermError(w, r, err)
			return
		}
		a.respondUserSet(w, r, userID)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPut)
	}
}

func (a *API) setUserFlag(w http.ResponseWriter, r *http.Request, userID, key string) {
	if r.Method != http.MethodPut {
		methodNotAllowed(w, r, http.MethodPut)
		return
	}
	if !a.ensureManage(w, r) {
		return
	}
	var req setFlagRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.Value == nil {
		writeError(w, r, http.StatusBadRequest, "value is required")
		return
	}
	if err := a.perms.SetFlag(r.Context(), actorFrom(r), perm.ScopeUser, userID, perm.Key(key), *req.Value, req.Note); err != nil {
		handlePermError(w, r, err)
		return
	}
	a.respondUserSet(w, r, userID)
}

func (a *API) resetUser(w http.ResponseWriter, r *http.Request, userID string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	if !a.ensureManage(w, r) {
		return
	}
	var req noteRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
	}
	if err := a.perms.ResetUser(r.Context(), actorFrom(r), userID, req.Note); err != nil {
		handlePermError(w, r, err)
		return
	}
	a.respondUserSet(w, r, userID)
}

func (a *API) respondOrgSet(w http.ResponseWriter, r *http.Request, orgID string) {
	set, err := a.perms.EffectiveForOrganization(r.Context(), orgID)
	if err != nil {
		handlePermError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, permissionSetResponse{Scope: string(perm.ScopeOrganization), ID: orgID, Set: set})
}

func (a *API) respondUserSet(w http.ResponseWriter, r *http.Request, userID string) {
	set, err := a.perms.EffectiveForUser(r.Context(), userID)
	if err != nil {
		handlePermError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, permissionSetResponse{Scope: string(perm.ScopeUser), ID: userID, Set: set})
}

func actorFrom(r *http.Request) audit.Actor {
	a, _ := auth.ActorFromContext(r.Context())
	return audit.Actor{ID: a.ID, Name: a.Name}
}

func toFlags(raw map[string]bool) perm.Flags {
	flags := make(perm.Flags, len(raw))
	for k, v := range raw {
		flags[perm.Key(k)] = v
	}
	return flags
}

func handlePermError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, perm.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, perm.ErrConflict):
		writeError(w, r, http.StatusConflict, err.Error())
	case errors.Is(err, perm.ErrNotFound):
		writeError(w, r, http.StatusNotFound, err.Error())
	case errors.Is(err, perm.ErrForbidden):
		writeError(w, r, http.StatusForbidden, err.Error())
	case errors.Is(err, perm.ErrInvalidState):
		writeError(w, r, http.StatusUnprocessableEntity, err.Error())
	default:
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}
