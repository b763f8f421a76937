package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	audithttp "github.com/speedissuesflow/sif/internal/audit/http"
	"github.com/speedissuesflow/sif/internal/auth"
	"github.com/speedissuesflow/sif/internal/masterdata"
	"github.com/speedissuesflow/sif/internal/observability"
	"github.com/speedissuesflow/sif/internal/policy"
	"github.com/speedissuesflow/sif/internal/resources"
	"github.com/speedissuesflow/sif/internal/shared"
	"github.com/speedissuesflow/sif/internal/support/cases"
	"github.com/speedissuesflow/sif/internal/support/solutions"
	"github.com/speedissuesflow/sif/internal/support/tests"
	"github.com/speedissuesflow/sif/internal/users"
	"github.com/speedissuesflow/sif/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager

	AuthHandler       *auth.Handler
	UsersHandler      *users.Handler
	CasesHandler      *cases.Handler
	TestsHandler      *tests.Handler
	SolutionsHandler  *solutions.Handler
	MasterDataHandler *masterdata.Handler
	ResourcesHandler  *resources.Handler
	AuditHandler      *audithttp.Handler
	JobHandler        *jobs.Handler

	PolicyMiddleware policy.Middleware
	Metrics          *observability.Metrics
}

// NewRouter constructs the chi.Router with application defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/auth", params.AuthHandler.MountRoutes)

	// Share links resolve without a session; the gate decides access.
	if params.ResourcesHandler != nil {
		params.ResourcesHandler.MountShareRoutes(r)
	}

	r.Route("/api", func(r chi.Router) {
		if params.UsersHandler != nil {
			params.UsersHandler.MountRoutes(r, params.PolicyMiddleware)
		}
		if params.CasesHandler != nil {
			params.CasesHandler.MountRoutes(r, params.PolicyMiddleware)
		}
		if params.TestsHandler != nil {
			params.TestsHandler.MountRoutes(r, params.PolicyMiddleware)
		}
		if params.SolutionsHandler != nil {
			params.SolutionsHandler.MountRoutes(r, params.PolicyMiddleware)
		}
		if params.MasterDataHandler != nil {
			params.MasterDataHandler.MountRoutes(r, params.PolicyMiddleware)
		}
		if params.ResourcesHandler != nil {
			params.ResourcesHandler.MountRoutes(r, params.PolicyMiddleware)
		}
		if params.AuditHandler != nil {
			params.AuditHandler.MountRoutes(r, params.PolicyMiddleware)
		}
	})

	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
