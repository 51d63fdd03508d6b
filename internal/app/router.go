package app

import (
	"io/fs"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/casinha/portal/internal/auth"
	"github.com/casinha/portal/internal/observability"
	"github.com/casinha/portal/internal/platform/httpx"
	"github.com/casinha/portal/internal/portal"
	"github.com/casinha/portal/internal/rbac"
	"github.com/casinha/portal/internal/reports"
	"github.com/casinha/portal/internal/roles"
	"github.com/casinha/portal/internal/shared"
	"github.com/casinha/portal/internal/users"
	"github.com/casinha/portal/jobs"
	"github.com/casinha/portal/web"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager
	RBACMiddleware rbac.Middleware

	AuthHandler    *auth.Handler
	PortalHandler  *portal.Handler
	RolesHandler   *roles.Handler
	UsersHandler   *users.Handler
	ReportsHandler *reports.Handler
	PolicyHandler  *rbac.PolicyHandler
	JobHandler     *jobs.Handler
	Metrics        *observability.Metrics
}

// NewRouter constructs the chi.Router with portal defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Guard:          params.RBACMiddleware.Guard,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	if params.AuthHandler != nil {
		r.Route("/auth", params.AuthHandler.MountRoutes)
	}
	if params.PortalHandler != nil {
		params.PortalHandler.MountPages(r)
	}

	r.Route("/api", func(r chi.Router) {
		if params.PortalHandler != nil {
			params.PortalHandler.MountAPI(r)
		}
		if params.UsersHandler != nil {
			r.Route("/me", params.UsersHandler.MountMe)
			r.Route("/usuarios", params.UsersHandler.MountRoutes)
		}
		if params.RolesHandler != nil {
			r.Route("/cargos", params.RolesHandler.MountRoutes)
		}
		if params.ReportsHandler != nil {
			r.Route("/relatorios", params.ReportsHandler.MountRoutes)
		}
		if params.PolicyHandler != nil {
			r.Route("/politica", params.PolicyHandler.MountRoutes)
		}
	})

	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	staticFS, err := fs.Sub(web.Static, "static")
	if err != nil {
		params.Logger.Error("create static sub filesystem", slog.Any("error", err))
	} else {
		fileServer := http.StripPrefix("/static/", http.FileServer(http.FS(staticFS)))
		r.Handle("/static/*", staticCacheHandler(fileServer))
	}

	r.NotFound(notFound(params.RBACMiddleware))

	return r
}

// notFound answers JSON for the API and, for pages, applies the table before
// revealing that nothing lives at the path.
func notFound(mw rbac.Middleware) http.HandlerFunc {
	page := mw.RequirePage("")(http.HandlerFunc(http.NotFound))
	return func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/") {
			httpx.Message(w, http.StatusNotFound, httpx.MsgNotFound)
			return
		}
		page.ServeHTTP(w, r)
	}
}

// staticCacheHandler caches static assets for one hour.
func staticCacheHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		next.ServeHTTP(w, r)
	})
}
