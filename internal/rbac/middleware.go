package rbac

import (
	"net/http"

	"github.com/casinha/portal/internal/platform/httpx"
)

// Middleware enforces the resource table on chi routes.
type Middleware struct {
	Guard  *Guard
	Denied DeniedView
}

// RequirePage guards a server rendered page. An empty path evaluates the request path.
func (m Middleware) RequirePage(path string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			target := path
			if target == "" {
				target = r.URL.Path
			}
			ev, err := m.Guard.Evaluate(r, target)
			if err != nil {
				m.Denied.RenderError(w, r)
				return
			}
			r = r.WithContext(ContextWithEvaluation(r.Context(), ev))
			switch ev.Decision.Outcome {
			case OutcomeAllow:
				next.ServeHTTP(w, r)
			case OutcomeUnauthenticated:
				m.Denied.Render(w, r, http.StatusUnauthorized)
			default:
				m.Denied.Render(w, r, http.StatusForbidden)
			}
		})
	}
}

// RequireAction guards a JSON API route by action key.
func (m Middleware) RequireAction(key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ev, err := m.Guard.EvaluateAction(r, key)
			if err != nil {
				httpx.Message(w, http.StatusInternalServerError, httpx.MsgInternal)
				return
			}
			switch ev.Decision.Outcome {
			case OutcomeAllow:
				next.ServeHTTP(w, r.WithContext(ContextWithEvaluation(r.Context(), ev)))
			case OutcomeUnauthenticated:
				httpx.Message(w, http.StatusUnauthorized, httpx.MsgUnauthorized)
			default:
				httpx.Message(w, http.StatusForbidden, httpx.MsgForbidden)
			}
		})
	}
}
