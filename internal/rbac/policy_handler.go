package rbac

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/casinha/portal/internal/platform/httpx"
	"github.com/casinha/portal/internal/shared"
)

// PolicyHandler exposes the effective resource table to directors.
type PolicyHandler struct {
	table *Table
	rbac  Middleware
}

// NewPolicyHandler builds PolicyHandler instance.
func NewPolicyHandler(table *Table, rbac Middleware) *PolicyHandler {
	return &PolicyHandler{table: table, rbac: rbac}
}

// MountRoutes registers policy routes.
func (h *PolicyHandler) MountRoutes(r chi.Router) {
	r.With(h.rbac.RequireAction(shared.ActionPolicyView)).Get("/", h.listPolicy)
}

type descriptorView struct {
	Kind    Kind   `json:"kind"`
	Key     string `json:"key"`
	Require Level  `json:"require"`
	Areas   []Area `json:"areas,omitempty"`
}

func (h *PolicyHandler) listPolicy(w http.ResponseWriter, r *http.Request) {
	descriptors := h.table.Descriptors()
	out := make([]descriptorView, 0, len(descriptors))
	for _, d := range descriptors {
		v := descriptorView{Kind: d.Kind, Key: d.Key, Require: d.Requirement.Level}
		if d.Requirement.Level == LevelAreas {
			v.Areas = d.Requirement.Areas.Slice()
		}
		out = append(out, v)
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"descriptors": out})
}
