// Package rbactest provides helpers for testing handlers guarded by rbac.
package rbactest

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/casinha/portal/internal/rbac"
)

// CookieName is the session cookie understood by Resolver.
const CookieName = "s"

// Resolver maps session cookie values to users. Safe for concurrent use.
type Resolver struct {
	mu    sync.Mutex
	users map[string]*rbac.User
	err   error
}

// NewResolver returns a resolver with no users.
func NewResolver() *Resolver {
	return &Resolver{users: make(map[string]*rbac.User)}
}

// Add binds token to user.
func (r *Resolver) Add(token string, user *rbac.User) *Resolver {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[token] = user
	return r
}

// Fail makes every resolution fail with err.
func (r *Resolver) Fail(err error) *Resolver {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
	return r
}

// Resolve implements rbac.IdentityResolver.
func (r *Resolver) Resolve(ctx context.Context, cookieHeader string) (*rbac.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, fmt.Errorf("%w: %w", rbac.ErrResolutionFailed, r.err)
	}
	for _, part := range strings.Split(cookieHeader, ";") {
		name, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if ok && name == CookieName {
			return r.users[value], nil
		}
	}
	return nil, nil
}

// Middleware builds an rbac.Middleware over the default table without templates.
func Middleware(resolver rbac.IdentityResolver) rbac.Middleware {
	return rbac.Middleware{Guard: rbac.NewGuard(resolver, rbac.DefaultTable(), nil, nil)}
}

// WithSession sets the session cookie on req.
func WithSession(req *http.Request, token string) *http.Request {
	req.AddCookie(&http.Cookie{Name: CookieName, Value: token})
	return req
}

// Member builds an active user holding a role with the given areas.
func Member(id int64, name, role string, areas ...rbac.Area) *rbac.User {
	return &rbac.User{
		ID:     id,
		Name:   name,
		Email:  strings.ToLower(name) + "@casinha.dev",
		Role:   rbac.Role{ID: id * 10, Name: role, Areas: areas},
		Status: rbac.StatusActive,
	}
}
