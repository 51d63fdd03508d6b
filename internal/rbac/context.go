package rbac

import "context"

type evaluationContextKey struct{}

// ContextWithEvaluation stores the request's evaluation in ctx.
func ContextWithEvaluation(ctx context.Context, ev Evaluation) context.Context {
	return context.WithValue(ctx, evaluationContextKey{}, ev)
}

// EvaluationFromContext returns the evaluation stored by the enforcement middleware.
func EvaluationFromContext(ctx context.Context) (Evaluation, bool) {
	ev, ok := ctx.Value(evaluationContextKey{}).(Evaluation)
	return ev, ok
}

// UserFromContext returns the resolved user, or nil for anonymous requests.
func UserFromContext(ctx context.Context) *User {
	ev, ok := EvaluationFromContext(ctx)
	if !ok {
		return nil
	}
	return ev.User
}
