package aegis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xraph/aegis/capability"
	"github.com/xraph/aegis/id"
	"github.com/xraph/aegis/store"
)

// ResolveActor loads a user and computes its effective permission set:
// the role's permissions plus the user's grants, expanded. A role that is
// missing or inactive contributes nothing. Results are cached when a cache
// is configured; a result read across a concurrent invalidation is returned
// but not cached.
func (e *Engine) ResolveActor(ctx context.Context, userID string) (*Actor, error) {
	var gen uint64
	if e.cache != nil {
		gen = e.cacheGeneration()
		if a, ok := e.cache.Get(ctx, userID); ok {
			return a, nil
		}
	}

	uid, err := id.ParseUserID(userID)
	if err != nil {
		return nil, invalid(err)
	}
	u, err := e.GetUser(ctx, uid)
	if err != nil {
		return nil, err
	}

	var rolePerms []string
	r, err := e.store.GetRoleByName(ctx, u.Role)
	switch {
	case err == nil:
		if r.Active() {
			rolePerms = r.Permissions
		}
	case errors.Is(err, store.ErrNotFound):
		e.logger.Warn("user holds unknown role", "user", userID, "role", u.Role)
	default:
		return nil, translate("resolve role", err, nil, nil)
	}

	a := &Actor{
		UserID:      userID,
		Role:        u.Role,
		Permissions: capability.Expand(rolePerms, u.Grants).Sorted(),
	}
	if e.cache != nil {
		e.fillCache(ctx, a, gen)
	}
	return a, nil
}

// EffectivePermissions returns the sorted, expanded permission set of a user.
func (e *Engine) EffectivePermissions(ctx context.Context, userID string) ([]string, error) {
	a, err := e.ResolveActor(ctx, userID)
	if err != nil {
		return nil, err
	}
	return a.Permissions, nil
}

// PermissionView returns a user's permissions in the legacy nested
// module to action to boolean form.
func (e *Engine) PermissionView(ctx context.Context, userID string) (capability.Nested, error) {
	a, err := e.ResolveActor(ctx, userID)
	if err != nil {
		return nil, err
	}
	return capability.Nest(capability.Expand(a.Permissions)), nil
}

// Check evaluates a request against an already resolved actor. It performs
// no I/O: the admin role is allowed outright for any string, anyone else
// needs a well-formed capability in their expanded permission set.
func (e *Engine) Check(ctx context.Context, req *CheckRequest) (*CheckResult, error) {
	start := time.Now()
	if !e.isAdmin(req.Actor) {
		if err := capability.Validate(req.Capability); err != nil {
			return nil, invalid(err)
		}
	}

	e.plugins.EmitBeforeCheck(ctx, req)

	result := e.evaluate(req)
	result.EvalTimeNs = time.Since(start).Nanoseconds()

	e.plugins.EmitAfterCheck(ctx, req, result)
	return result, nil
}

func (e *Engine) evaluate(req *CheckRequest) *CheckResult {
	actor := req.Actor
	if e.isAdmin(actor) {
		return &CheckResult{
			Allowed:   true,
			Decision:  DecisionAllowAdmin,
			MatchedBy: []MatchInfo{{Source: "admin", Detail: "role " + actor.Role + " bypasses permission checks"}},
		}
	}
	if actor.Role == "" && len(actor.Permissions) == 0 {
		return &CheckResult{Decision: DecisionDenyNoRole, Reason: "actor has no role and no grants"}
	}
	if capability.Allows(capability.Expand(actor.Permissions), req.Capability) {
		return &CheckResult{
			Allowed:   true,
			Decision:  DecisionAllow,
			MatchedBy: []MatchInfo{{Source: "permission", Detail: "effective set holds " + req.Capability}},
		}
	}
	return &CheckResult{
		Decision: DecisionDenyNoPermission,
		Reason:   "missing permission " + req.Capability,
	}
}

// CheckUser resolves a user and checks one capability.
func (e *Engine) CheckUser(ctx context.Context, userID, capabilityName string) (*CheckResult, error) {
	a, err := e.ResolveActor(ctx, userID)
	if err != nil {
		return nil, err
	}
	return e.Check(ctx, &CheckRequest{Actor: *a, Capability: capabilityName})
}

// HasPermission reports whether a user may perform capabilityName. A
// malformed capability is simply not held; errors come only from resolving
// the user.
func (e *Engine) HasPermission(ctx context.Context, userID, capabilityName string) (bool, error) {
	a, err := e.ResolveActor(ctx, userID)
	if err != nil {
		return false, err
	}
	result, err := e.Check(ctx, &CheckRequest{Actor: *a, Capability: capabilityName})
	if errors.Is(err, ErrBadRequest) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return result.Allowed, nil
}

// Enforce returns an error wrapping ErrAccessDenied if the check is denied.
func (e *Engine) Enforce(ctx context.Context, req *CheckRequest) error {
	result, err := e.Check(ctx, req)
	if err != nil {
		return err
	}
	if !result.Allowed {
		return fmt.Errorf("%w: %s (%s)", ErrAccessDenied, result.Decision, result.Reason)
	}
	return nil
}

func (e *Engine) isAdmin(a Actor) bool {
	return a.Role != "" && a.Role == e.config.adminRole()
}
