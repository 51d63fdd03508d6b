package reports

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/casinha/portal/internal/platform/httpx"
	"github.com/casinha/portal/internal/rbac"
	"github.com/casinha/portal/internal/shared"
)

// Handler manages report endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, rbac: rbac}
}

// MountRoutes registers report routes under /api/relatorios.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.rbac.RequireAction(shared.ActionReportsView)).Get("/", h.list)
	r.With(h.rbac.RequireAction(shared.ActionReportsView)).Get("/{id}", h.get)
	r.With(h.rbac.RequireAction(shared.ActionReportsCreate)).Post("/", h.create)
	r.With(h.rbac.RequireAction(shared.ActionReportsDelete)).Delete("/{id}", h.delete)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	reports, err := h.service.ListReports(r.Context(), rbac.UserFromContext(r.Context()))
	if err != nil {
		h.fail(w, "list reports", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"reports": reports})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := reportID(w, r)
	if !ok {
		return
	}
	rep, err := h.service.GetReport(r.Context(), rbac.UserFromContext(r.Context()), id)
	if err != nil {
		h.fail(w, "get report", err)
		return
	}
	httpx.JSON(w, http.StatusOK, rep)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var in CreateInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Message(w, http.StatusBadRequest, httpx.MsgValidation)
		return
	}
	rep, err := h.service.CreateReport(r.Context(), rbac.UserFromContext(r.Context()), in)
	if err != nil {
		h.fail(w, "create report", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, rep)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := reportID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteReport(r.Context(), rbac.UserFromContext(r.Context()), id); err != nil {
		h.fail(w, "delete report", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	h.logger.Warn(op, slog.Any("error", err))
	httpx.RespondError(w, err)
}

func reportID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Message(w, http.StatusBadRequest, httpx.MsgValidation)
		return 0, false
	}
	return id, true
}
