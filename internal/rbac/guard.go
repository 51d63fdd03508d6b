package rbac

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
)

// IdentityResolver maps a raw cookie header to a user. See Resolver.
type IdentityResolver interface {
	Resolve(ctx context.Context, cookieHeader string) (*User, error)
}

// DecisionRecorder observes every decision taken by a Guard.
type DecisionRecorder interface {
	RecordDecision(kind, outcome string)
}

// Evaluation is the per-request result of identity resolution and policy evaluation.
type Evaluation struct {
	Decision   Decision
	User       *User
	Descriptor Descriptor
	// Registered is false when the resource has no entry in the table.
	Registered bool
}

// Allowed reports whether the request may proceed.
func (e Evaluation) Allowed() bool {
	return e.Decision.Allowed()
}

// Guard integrates the identity resolver with the resource table.
type Guard struct {
	resolver IdentityResolver
	table    *Table
	recorder DecisionRecorder
	logger   *slog.Logger
}

// NewGuard constructs a Guard. recorder may be nil.
func NewGuard(resolver IdentityResolver, table *Table, recorder DecisionRecorder, logger *slog.Logger) *Guard {
	if logger == nil {
		logger = slog.Default()
	}
	return &Guard{resolver: resolver, table: table, recorder: recorder, logger: logger}
}

// Table exposes the resource table consulted by the guard.
func (g *Guard) Table() *Table {
	return g.table
}

// Evaluate resolves the request's user and decides access to a page pathname.
// The error is non-nil only when identity resolution failed.
func (g *Guard) Evaluate(r *http.Request, pathname string) (Evaluation, error) {
	d, ok := g.table.Page(pathname)
	return g.evaluate(r, KindPage, pathname, d, ok)
}

// EvaluateAction is Evaluate for an API action key.
func (g *Guard) EvaluateAction(r *http.Request, key string) (Evaluation, error) {
	d, ok := g.table.Action(key)
	return g.evaluate(r, KindAction, key, d, ok)
}

// Check decides page access for an already resolved user. It records nothing and
// is used to filter navigation.
func (g *Guard) Check(user *User, pathname string) bool {
	d, ok := g.table.Page(pathname)
	if !ok {
		return false
	}
	return Evaluate(user, d.Requirement).Allowed()
}

// CheckAction is Check for an action key.
func (g *Guard) CheckAction(user *User, key string) bool {
	d, ok := g.table.Action(key)
	if !ok {
		return false
	}
	return Evaluate(user, d.Requirement).Allowed()
}

func (g *Guard) evaluate(r *http.Request, kind Kind, key string, d Descriptor, registered bool) (Evaluation, error) {
	user, err := g.user(r)
	if err != nil {
		g.record(kind, "error")
		g.logger.Error("rbac resolve identity", slog.String("kind", string(kind)), slog.String("resource", key), slog.Any("error", err))
		return Evaluation{}, err
	}

	var decision Decision
	switch {
	case registered:
		decision = Evaluate(user, d.Requirement)
	case user == nil:
		decision = Decision{Outcome: OutcomeUnauthenticated, Reason: "no user"}
	default:
		decision = forbid("unregistered resource")
	}
	g.record(kind, decision.Outcome.String())

	attrs := []any{
		slog.String("kind", string(kind)),
		slog.String("resource", key),
		slog.String("outcome", decision.Outcome.String()),
		slog.String("reason", decision.Reason),
	}
	if user != nil {
		attrs = append(attrs, slog.Int64("user_id", user.ID))
	}
	if decision.Allowed() {
		g.logger.Debug("rbac decision", attrs...)
	} else {
		g.logger.Info("rbac decision", attrs...)
	}
	return Evaluation{Decision: decision, User: user, Descriptor: d, Registered: registered}, nil
}

// Identify resolves the request's user ahead of any evaluation and stores it on
// the returned request so later guards reuse it. user is nil when the request
// carries no valid credential.
func (g *Guard) Identify(r *http.Request) (*http.Request, *User, error) {
	if ev, ok := EvaluationFromContext(r.Context()); ok {
		return r, ev.User, nil
	}
	user, err := g.user(r)
	if err != nil {
		g.logger.Error("rbac resolve identity", slog.String("path", r.URL.Path), slog.Any("error", err))
		return r, nil, err
	}
	// Identity alone grants nothing until a resource is evaluated.
	ev := Evaluation{Decision: forbid("not evaluated"), User: user}
	return r.WithContext(ContextWithEvaluation(r.Context(), ev)), user, nil
}

// user reuses the identity of an earlier evaluation on the same request.
func (g *Guard) user(r *http.Request) (*User, error) {
	if ev, ok := EvaluationFromContext(r.Context()); ok {
		return ev.User, nil
	}
	return g.resolver.Resolve(r.Context(), strings.Join(r.Header.Values("Cookie"), "; "))
}

func (g *Guard) record(kind Kind, outcome string) {
	if g.recorder != nil {
		g.recorder.RecordDecision(string(kind), outcome)
	}
}
