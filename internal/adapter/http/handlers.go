// Package http provides the HTTP API handlers and routing.
package http

import (
	"net/http"

	"github.com/rosterhub/rosterhub/internal/middleware"
	"github.com/rosterhub/rosterhub/internal/port/messagequeue"
	"github.com/rosterhub/rosterhub/internal/service"
)

// Handlers holds the services the HTTP layer dispatches into.
type Handlers struct {
	Users   *service.BulkUserService
	Tenants *service.TenantConfigService

	// Queue is optional; readiness reports degraded when it disconnects.
	Queue messagequeue.Queue
}

// callerID returns the authenticated caller's identity id, or "" for
// anonymous requests. The services treat "" as unauthenticated.
func callerID(r *http.Request) string {
	if caller := middleware.CallerFromContext(r.Context()); caller != nil {
		return caller.ID
	}
	return ""
}

// CheckIsAdmin handles GET /api/v1/admin/check?email=...
func (h *Handlers) CheckIsAdmin(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	isAdmin, err := h.Users.CheckIsAdmin(r.Context(), callerID(r), email)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"is_admin": isAdmin})
}

// ListUsers handles GET /api/v1/users
func (h *Handlers) ListUsers(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.Users.ListUsers(r.Context(), callerID(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": profiles})
}

// ProvisionUser handles POST /api/v1/users
func (h *Handlers) ProvisionUser(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[struct {
		Email  string         `json:"email"`
		Fields map[string]any `json:"fields"`
	}](w, r)
	if !ok {
		return
	}

	ident, err := h.Users.ProvisionUser(r.Context(), callerID(r), req.Email, req.Fields)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, ident)
}

// DeleteUsers handles POST /api/v1/users/delete
func (h *Handlers) DeleteUsers(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[struct {
		IDs []string `json:"ids"`
	}](w, r)
	if !ok {
		return
	}

	report, err := h.Users.DeleteUsers(r.Context(), callerID(r), req.IDs)
	if err != nil {
		// A reconciliation failure still carries a partial report.
		if report != nil {
			writeJSON(w, http.StatusInternalServerError, report)
			return
		}
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// ResetPasswords handles POST /api/v1/users/reset-passwords
func (h *Handlers) ResetPasswords(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[struct {
		IDs []string `json:"ids"`
	}](w, r)
	if !ok {
		return
	}

	password, result, err := h.Users.ResetPasswords(r.Context(), callerID(r), req.IDs)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"password": password,
		"result":   result,
	})
}

// SetEmail handles PUT /api/v1/users/{id}/email
func (h *Handlers) SetEmail(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[struct {
		Email string `json:"email"`
	}](w, r)
	if !ok {
		return
	}

	if err := h.Users.SetEmail(r.Context(), callerID(r), urlParam(r, "id"), req.Email); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteFailedProvisioning handles DELETE /api/v1/provisioning/{id}
func (h *Handlers) DeleteFailedProvisioning(w http.ResponseWriter, r *http.Request) {
	if err := h.Users.DeleteFailedProvisioning(r.Context(), callerID(r), urlParam(r, "id")); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetTenantConfig handles GET /api/v1/tenants/{id}/config
func (h *Handlers) GetTenantConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.Tenants.GetFor(r.Context(), callerID(r), urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

// UpdateTenantConfig handles PUT /api/v1/tenants/{id}/config
func (h *Handlers) UpdateTenantConfig(w http.ResponseWriter, r *http.Request) {
	fields, ok := readJSON[map[string]any](w, r)
	if !ok {
		return
	}

	if err := h.Tenants.Update(r.Context(), callerID(r), urlParam(r, "id"), fields); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Health handles GET /health
func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Ready handles GET /health/ready
func (h *Handlers) Ready(w http.ResponseWriter, _ *http.Request) {
	if h.Queue != nil && !h.Queue.IsConnected() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "degraded",
			"queue":  "disconnected",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
