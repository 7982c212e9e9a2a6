package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// MountRoutes registers all API routes on the given chi router.
func MountRoutes(r chi.Router, h *Handlers) {
	r.Get("/health", h.Health)
	r.Get("/health/ready", h.Ready)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"version":"0.1.0"}`))
		})

		// Admin lookup
		r.Get("/admin/check", h.CheckIsAdmin)

		// Users
		r.Get("/users", h.ListUsers)
		r.Post("/users", h.ProvisionUser)
		r.Post("/users/delete", h.DeleteUsers)
		r.Post("/users/reset-passwords", h.ResetPasswords)
		r.Put("/users/{id}/email", h.SetEmail)

		// Provisioning cleanup (self-service)
		r.Delete("/provisioning/{id}", h.DeleteFailedProvisioning)

		// Tenant configuration
		r.Get("/tenants/{id}/config", h.GetTenantConfig)
		r.Put("/tenants/{id}/config", h.UpdateTenantConfig)
	})
}
