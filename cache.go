package aegis

import "context"

// Cache stores resolved actors keyed by user id. The engine invalidates a
// user when its role or grants change and everything when a role or
// catalog entry changes.
type Cache interface {
	// Get returns a cached actor, if available.
	Get(ctx context.Context, userID string) (*Actor, bool)

	// Set stores an actor in the cache.
	Set(ctx context.Context, a *Actor)

	// InvalidateUser removes the cached actor for one user.
	InvalidateUser(ctx context.Context, userID string)

	// InvalidateAll removes every cached actor.
	InvalidateAll(ctx context.Context)
}
