// Package middleware provides HTTP authorization middleware for aegis.
package middleware

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/xraph/forge"

	"github.com/xraph/aegis"
)

// errAnonymous marks a request that carries no user at all.
var errAnonymous = errors.New("aegis: no authenticated user")

// Require enforces one capability against the effective permissions of the
// authenticated Forge user.
func Require(eng *aegis.Engine, capability string) forge.Middleware {
	return RequireAll(eng, capability)
}

// RequireAny allows the request if ANY of the capabilities is held.
func RequireAny(eng *aegis.Engine, capabilities ...string) forge.Middleware {
	return func(next forge.Handler) forge.Handler {
		return func(ctx forge.Context) error {
			actor, err := resolveActor(ctx, eng)
			if err != nil {
				return unauthenticated(ctx, err)
			}
			for _, c := range capabilities {
				result, err := eng.Check(ctx.Context(), &aegis.CheckRequest{Actor: *actor, Capability: c})
				if err != nil {
					return err
				}
				if result.Allowed {
					return next(ctx)
				}
			}
			return denyResponse(ctx, http.StatusForbidden, "access denied")
		}
	}
}

// RequireAll allows the request only if ALL capabilities are held.
func RequireAll(eng *aegis.Engine, capabilities ...string) forge.Middleware {
	return func(next forge.Handler) forge.Handler {
		return func(ctx forge.Context) error {
			actor, err := resolveActor(ctx, eng)
			if err != nil {
				return unauthenticated(ctx, err)
			}
			for _, c := range capabilities {
				err := eng.Enforce(ctx.Context(), &aegis.CheckRequest{Actor: *actor, Capability: c})
				if errors.Is(err, aegis.ErrAccessDenied) {
					return denyResponse(ctx, http.StatusForbidden, "access denied")
				}
				if err != nil {
					return err
				}
			}
			return next(ctx)
		}
	}
}

// resolveActor prefers an actor already placed on the request context with
// aegis.WithActor and otherwise loads the Forge user.
func resolveActor(ctx forge.Context, eng *aegis.Engine) (*aegis.Actor, error) {
	if a, ok := aegis.ActorFromContext(ctx.Context()); ok {
		return a, nil
	}
	userID := forge.UserIDFromContext(ctx.Context())
	if userID == "" {
		return nil, errAnonymous
	}
	return eng.ResolveActor(ctx.Context(), userID)
}

// unauthenticated answers 401 when the caller does not map to a live user.
// Any other resolution failure is returned for the router to report.
func unauthenticated(ctx forge.Context, err error) error {
	if errors.Is(err, errAnonymous) || errors.Is(err, aegis.ErrNotFound) || errors.Is(err, aegis.ErrBadRequest) {
		return denyResponse(ctx, http.StatusUnauthorized, "authentication required")
	}
	return err
}

func denyResponse(ctx forge.Context, status int, msg string) error {
	ctx.SetHeader("Content-Type", "application/json")
	ctx.Response().WriteHeader(status)
	return json.NewEncoder(ctx.Response()).Encode(map[string]string{"error": msg})
}
