package portal

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"github.com/casinha/portal/internal/platform/httpx"
	"github.com/casinha/portal/internal/rbac"
	"github.com/casinha/portal/internal/shared"
	"github.com/casinha/portal/internal/view"
)

// Handler serves the portal page shells and the access check endpoint.
type Handler struct {
	logger    *slog.Logger
	templates *view.Engine
	rbac      rbac.Middleware
	stats     StatsPort
	csrf      *shared.CSRFManager
}

// NewHandler builds Handler instance. csrf may be nil.
func NewHandler(logger *slog.Logger, templates *view.Engine, rbac rbac.Middleware, stats StatsPort, csrf *shared.CSRFManager) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, templates: templates, rbac: rbac, stats: stats, csrf: csrf}
}

// MountPages registers every page shell, each guarded by its own path.
func (h *Handler) MountPages(r chi.Router) {
	for _, s := range sections {
		if s.Path == shared.PathHome {
			r.With(h.rbac.RequirePage(s.Path)).Get(s.Path, h.home)
			continue
		}
		r.With(h.rbac.RequirePage(s.Path)).Get(s.Path, h.section(s))
	}
}

// MountAPI registers /api/acesso.
func (h *Handler) MountAPI(r chi.Router) {
	r.Get("/acesso", h.access)
}

type homeData struct {
	Role          string
	ActiveMembers int
	Roles         int
	ShowReports   bool
	Reports       int
}

func (h *Handler) home(w http.ResponseWriter, r *http.Request) {
	user := rbac.UserFromContext(r.Context())
	data := homeData{Role: user.Role.Name, ShowReports: h.rbac.Guard.CheckAction(user, shared.ActionReportsView)}

	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		n, err := h.stats.CountActiveMembers(ctx)
		data.ActiveMembers = n
		return err
	})
	g.Go(func() error {
		n, err := h.stats.CountRoles(ctx)
		data.Roles = n
		return err
	})
	if data.ShowReports {
		var areas []rbac.Area
		if !user.IsDirector() {
			areas = user.EffectiveAreas().Slice()
		}
		g.Go(func() error {
			n, err := h.stats.CountReports(ctx, areas)
			data.Reports = n
			return err
		})
	}
	if err := g.Wait(); err != nil {
		h.logger.Error("load home stats", slog.Any("error", err))
		h.rbac.Denied.RenderError(w, r)
		return
	}
	h.render(w, r, "home.html", "Início", data)
}

type sectionData struct {
	Summary string
}

func (h *Handler) section(s Section) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.render(w, r, "section.html", s.Label, sectionData{Summary: s.Summary})
	}
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, name, title string, data any) {
	user := rbac.UserFromContext(r.Context())
	td := view.TemplateData{
		Title:       title,
		CurrentPath: r.URL.Path,
		Nav:         Navigation(h.rbac.Guard, user, r.URL.Path),
		Data:        data,
	}
	if user != nil {
		td.UserName = user.Name
	}
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		td.Flash = sess.PopFlash()
		if h.csrf != nil {
			td.CSRFToken, _ = h.csrf.EnsureToken(r.Context(), sess)
		}
	}
	if err := h.templates.Render(w, name, td); err != nil {
		h.logger.Error("render "+name, slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

type accessResponse struct {
	Allowed bool       `json:"allowed"`
	User    *rbac.User `json:"user"`
}

// access answers whether the caller may open ?path=. Anonymous callers get allowed=false.
func (h *Handler) access(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimSpace(r.URL.Query().Get("path"))
	if !strings.HasPrefix(path, "/") {
		httpx.Message(w, http.StatusBadRequest, httpx.MsgValidation)
		return
	}
	ev, err := h.rbac.Guard.Evaluate(r, path)
	if err != nil {
		httpx.Message(w, http.StatusInternalServerError, httpx.MsgInternal)
		return
	}
	httpx.JSON(w, http.StatusOK, accessResponse{Allowed: ev.Allowed(), User: ev.User})
}
