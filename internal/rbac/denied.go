package rbac

import (
	"log/slog"
	"net/http"

	"github.com/casinha/portal/internal/view"
)

// DeniedView renders the fixed access denied page and the resolution failure page.
type DeniedView struct {
	Templates *view.Engine
	Logger    *slog.Logger
}

// Render writes the denied page with status 401 or 403.
func (v DeniedView) Render(w http.ResponseWriter, r *http.Request, status int) {
	data := view.TemplateData{
		Title:       "Acesso negado",
		CurrentPath: r.URL.Path,
		Data:        map[string]any{"Status": status},
	}
	if user := UserFromContext(r.Context()); user != nil {
		data.UserName = user.Name
	}
	v.render(w, status, "denied.html", data, "Acesso negado")
}

// RenderError writes the internal error page.
func (v DeniedView) RenderError(w http.ResponseWriter, r *http.Request) {
	data := view.TemplateData{Title: "Erro", CurrentPath: r.URL.Path}
	v.render(w, http.StatusInternalServerError, "error.html", data, "Erro interno do servidor")
}

func (v DeniedView) render(w http.ResponseWriter, status int, name string, data view.TemplateData, fallback string) {
	if v.Templates != nil {
		err := v.Templates.RenderStatus(w, status, name, data)
		if err == nil {
			return
		}
		if v.Logger != nil {
			v.Logger.Error("render "+name, slog.Any("error", err))
		}
	}
	http.Error(w, fallback, status)
}
