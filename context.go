package aegis

import (
	"context"

	"github.com/xraph/forge"
)

type contextKey int

const (
	ctxKeyOperator contextKey = iota
	ctxKeyActor
)

// WithOperator returns a context naming the user performing admin
// mutations. It fills CreatedBy and UpdatedBy. Use this for standalone
// mode (without Forge).
func WithOperator(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, ctxKeyOperator, userID)
}

// operatorFromContext prefers an explicit operator and falls back to the
// authenticated Forge user.
func operatorFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyOperator).(string); ok && v != "" {
		return v
	}
	return forge.UserIDFromContext(ctx)
}

// WithActor returns a context carrying an already resolved actor.
func WithActor(ctx context.Context, a *Actor) context.Context {
	return context.WithValue(ctx, ctxKeyActor, a)
}

// ActorFromContext returns the actor stored by WithActor, if any.
func ActorFromContext(ctx context.Context) (*Actor, bool) {
	a, ok := ctx.Value(ctxKeyActor).(*Actor)
	return a, ok && a != nil
}
