package audithttp

import (
	"github.com/go-chi/chi/v5"

	"github.com/speedissuesflow/sif/internal/policy"
)

// MountRoutes registers the audit endpoints behind the view-audit capability.
func (h *Handler) MountRoutes(r chi.Router, mw policy.Middleware) {
	r.Route("/audit", func(r chi.Router) {
		r.Use(mw.Require(policy.CapViewAudit))
		r.Get("/", h.Timeline)
		r.Get("/export", h.Export)
	})
}
