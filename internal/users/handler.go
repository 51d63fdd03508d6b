package users

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/casinha/portal/internal/platform/httpx"
	"github.com/casinha/portal/internal/rbac"
	"github.com/casinha/portal/internal/shared"
)

// Handler manages member directory endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	rbac     rbac.Middleware
	validate *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, rbac: rbac, validate: validator.New()}
}

// MountMe registers the current member routes under /api/me.
func (h *Handler) MountMe(r chi.Router) {
	r.With(h.rbac.RequireAction(shared.ActionMeView)).Get("/", h.me)
	r.With(h.rbac.RequireAction(shared.ActionMeHeartbeat)).Post("/heartbeat", h.heartbeat)
}

// MountRoutes registers directory routes under /api/usuarios.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.rbac.RequireAction(shared.ActionUsersView)).Get("/", h.listUsers)
	r.With(h.rbac.RequireAction(shared.ActionUsersView)).Get("/{id}/historico", h.history)
	r.With(h.rbac.RequireAction(shared.ActionUsersAssign)).Put("/{id}/cargo", h.assignRole)
	r.With(h.rbac.RequireAction(shared.ActionUsersStatus)).Put("/{id}/status", h.setStatus)
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	ev, _ := rbac.EvaluationFromContext(r.Context())
	httpx.JSON(w, http.StatusOK, ev.User)
}

func (h *Handler) heartbeat(w http.ResponseWriter, r *http.Request) {
	user := rbac.UserFromContext(r.Context())
	at, err := h.service.Heartbeat(r.Context(), user.ID)
	if err != nil {
		h.fail(w, "heartbeat", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"lastActiveAt": at})
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	page, perPage := shared.PageParams(r)
	filter := ListFilter{Page: page, PerPage: perPage}
	if raw := r.URL.Query().Get("status"); raw != "" {
		status, err := rbac.ParseMembershipStatus(raw)
		if err != nil {
			httpx.Message(w, http.StatusBadRequest, httpx.MsgValidation)
			return
		}
		filter.Status = status
	}
	members, pagination, err := h.service.ListUsers(r.Context(), filter)
	if err != nil {
		h.fail(w, "list users", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"users": members, "pagination": pagination})
}

func (h *Handler) history(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	entries, err := h.service.History(r.Context(), id)
	if err != nil {
		h.fail(w, "role history", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"history": entries})
}

func (h *Handler) assignRole(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var in assignRoleInput
	if err := httpx.DecodeJSON(r, &in); err != nil || h.validate.Struct(in) != nil {
		httpx.Message(w, http.StatusBadRequest, httpx.MsgValidation)
		return
	}
	actor := rbac.UserFromContext(r.Context())
	if err := h.service.AssignRole(r.Context(), actor.ID, id, in.RoleID); err != nil {
		h.fail(w, "assign role", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) setStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var in statusInput
	if err := httpx.DecodeJSON(r, &in); err != nil || h.validate.Struct(in) != nil {
		httpx.Message(w, http.StatusBadRequest, httpx.MsgValidation)
		return
	}
	status, err := rbac.ParseMembershipStatus(in.Status)
	if err != nil {
		httpx.Message(w, http.StatusBadRequest, httpx.MsgValidation)
		return
	}
	actor := rbac.UserFromContext(r.Context())
	if err := h.service.SetStatus(r.Context(), actor.ID, id, status); err != nil {
		h.fail(w, "set status", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	h.logger.Warn(op, slog.Any("error", err))
	httpx.RespondError(w, err)
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Message(w, http.StatusBadRequest, httpx.MsgValidation)
		return 0, false
	}
	return id, true
}
