package rbac

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/casinha/portal/internal/shared"
)

// ErrResolutionFailed marks infrastructure failures while resolving identity.
// It is never returned for a missing or invalid credential.
var ErrResolutionFailed = errors.New("rbac: identity resolution failed")

// DefaultResolveTimeout bounds the store lookups performed by Resolve.
const DefaultResolveTimeout = 3 * time.Second

// SessionLookup reads the user bound to a session id.
type SessionLookup interface {
	LookupUser(ctx context.Context, sessionID string) (userID string, found bool, err error)
}

// UserStore loads a user with the current role and its areas from durable storage.
// It returns shared.ErrNotFound when the user does not exist.
type UserStore interface {
	FindUser(ctx context.Context, id int64) (*User, error)
}

// Resolver maps a request's cookie header to a User.
type Resolver struct {
	sessions   SessionLookup
	store      UserStore
	cookieName string
	timeout    time.Duration
	logger     *slog.Logger
}

// NewResolver constructs a Resolver. A non-positive timeout selects DefaultResolveTimeout.
func NewResolver(sessions SessionLookup, store UserStore, cookieName string, timeout time.Duration, logger *slog.Logger) *Resolver {
	if timeout <= 0 {
		timeout = DefaultResolveTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{sessions: sessions, store: store, cookieName: cookieName, timeout: timeout, logger: logger}
}

// Resolve returns the user for cookieHeader, or nil when the request carries no
// valid credential. Errors wrap ErrResolutionFailed.
func (r *Resolver) Resolve(ctx context.Context, cookieHeader string) (*User, error) {
	sessionID := sessionCookie(cookieHeader, r.cookieName)
	if sessionID == "" {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	raw, found, err := r.sessions.LookupUser(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("%w: session lookup: %w", ErrResolutionFailed, err)
	}
	raw = strings.TrimSpace(raw)
	if !found || raw == "" {
		return nil, nil
	}
	userID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		r.logger.Warn("rbac session carries invalid user id", slog.String("value", raw))
		return nil, nil
	}

	user, err := r.store.FindUser(ctx, userID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: load user %d: %w", ErrResolutionFailed, userID, err)
	}
	if user == nil || user.Status == StatusExMember {
		return nil, nil
	}
	return user, nil
}

func sessionCookie(header, name string) string {
	if header == "" || name == "" {
		return ""
	}
	req := http.Request{Header: http.Header{"Cookie": []string{header}}}
	c, err := req.Cookie(name)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(c.Value)
}
