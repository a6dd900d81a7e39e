// Package plugin defines the plugin system for aegis.
// Plugins are notified of lifecycle events (check performed, role renamed,
// permission deleted, user moved to another role) and can react with
// logging, metrics, cache warming and the like.
//
// Each lifecycle hook is a separate interface so plugins opt in only
// to the events they care about.
package plugin

import (
	"context"

	"github.com/xraph/aegis/permission"
	"github.com/xraph/aegis/role"
	"github.com/xraph/aegis/user"
)

// Plugin is the base interface all plugins must implement.
type Plugin interface {
	// Name returns a unique human-readable name for the plugin.
	Name() string
}

// ──────────────────────────────────────────────────
// Check lifecycle hooks
// ──────────────────────────────────────────────────

// BeforeCheck is called before an authorization check is evaluated.
// The req parameter is *aegis.CheckRequest (passed as any to avoid import cycle).
type BeforeCheck interface {
	OnBeforeCheck(ctx context.Context, req any) error
}

// AfterCheck is called after an authorization check completes.
// The req parameter is *aegis.CheckRequest; result is *aegis.CheckResult.
type AfterCheck interface {
	OnAfterCheck(ctx context.Context, req, result any) error
}

// ──────────────────────────────────────────────────
// Permission catalog hooks
// ──────────────────────────────────────────────────

// PermissionCreated is called after a catalog entry is created.
type PermissionCreated interface {
	OnPermissionCreated(ctx context.Context, p *permission.Permission) error
}

// PermissionUpdated is called after a catalog entry changes without a rename.
type PermissionUpdated interface {
	OnPermissionUpdated(ctx context.Context, p *permission.Permission) error
}

// PermissionRenamed is called after a catalog entry's name changed and the
// rename was cascaded into roles and user grants.
type PermissionRenamed interface {
	OnPermissionRenamed(ctx context.Context, p *permission.Permission, oldName string, roles, users int64) error
}

// PermissionDeleted is called after a catalog entry is soft-deleted.
type PermissionDeleted interface {
	OnPermissionDeleted(ctx context.Context, p *permission.Permission) error
}

// ──────────────────────────────────────────────────
// Role lifecycle hooks
// ──────────────────────────────────────────────────

// RoleCreated is called after a role is created.
type RoleCreated interface {
	OnRoleCreated(ctx context.Context, r *role.Role) error
}

// RoleUpdated is called after a role changes without a rename.
type RoleUpdated interface {
	OnRoleUpdated(ctx context.Context, r *role.Role) error
}

// RoleRenamed is called after a role is renamed and its users were moved.
type RoleRenamed interface {
	OnRoleRenamed(ctx context.Context, r *role.Role, oldName string, movedUsers int64) error
}

// RoleDeleted is called after a role is soft-deleted.
type RoleDeleted interface {
	OnRoleDeleted(ctx context.Context, r *role.Role) error
}

// ──────────────────────────────────────────────────
// User hooks
// ──────────────────────────────────────────────────

// UserCreated is called after a user is created.
type UserCreated interface {
	OnUserCreated(ctx context.Context, u *user.User) error
}

// UserRoleChanged is called after a user moves to another role.
type UserRoleChanged interface {
	OnUserRoleChanged(ctx context.Context, u *user.User, oldRole string) error
}

// UserGrantsChanged is called after a user's direct grants are replaced.
// oldGrants is the list held before the change.
type UserGrantsChanged interface {
	OnUserGrantsChanged(ctx context.Context, u *user.User, oldGrants []string) error
}

// UserDeleted is called after a user is soft-deleted.
type UserDeleted interface {
	OnUserDeleted(ctx context.Context, u *user.User) error
}

// ──────────────────────────────────────────────────
// Bootstrap and shutdown hooks
// ──────────────────────────────────────────────────

// SystemSeeded is called after the built-in permissions or roles were
// upserted. entity is "permission" or "role".
type SystemSeeded interface {
	OnSystemSeeded(ctx context.Context, entity string, created, updated int) error
}

// Shutdown is called during graceful shutdown.
type Shutdown interface {
	OnShutdown(ctx context.Context) error
}
