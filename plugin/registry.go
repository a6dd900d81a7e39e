package plugin

import (
	"context"
	"log/slog"

	"github.com/xraph/aegis/permission"
	"github.com/xraph/aegis/role"
	"github.com/xraph/aegis/user"
)

// entry pairs a hook with the plugin name for logging.
type entry[H any] struct {
	name string
	hook H
}

func collect[H any](list []entry[H], p Plugin) []entry[H] {
	if h, ok := p.(H); ok {
		return append(list, entry[H]{name: p.Name(), hook: h})
	}
	return list
}

// Registry holds registered plugins and dispatches lifecycle events.
// It type-caches plugins at registration time so emit calls iterate
// only over plugins implementing the relevant hook.
type Registry struct {
	plugins []Plugin
	logger  *slog.Logger

	beforeCheck       []entry[BeforeCheck]
	afterCheck        []entry[AfterCheck]
	permissionCreated []entry[PermissionCreated]
	permissionUpdated []entry[PermissionUpdated]
	permissionRenamed []entry[PermissionRenamed]
	permissionDeleted []entry[PermissionDeleted]
	roleCreated       []entry[RoleCreated]
	roleUpdated       []entry[RoleUpdated]
	roleRenamed       []entry[RoleRenamed]
	roleDeleted       []entry[RoleDeleted]
	userCreated       []entry[UserCreated]
	userRoleChanged   []entry[UserRoleChanged]
	userGrantsChanged []entry[UserGrantsChanged]
	userDeleted       []entry[UserDeleted]
	systemSeeded      []entry[SystemSeeded]
	shutdown          []entry[Shutdown]
}

// NewRegistry creates a plugin registry with the given logger.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{logger: logger}
}

// Register adds a plugin and type-asserts it into all applicable
// hook caches. Plugins are notified in registration order.
func (r *Registry) Register(p Plugin) {
	r.plugins = append(r.plugins, p)

	r.beforeCheck = collect(r.beforeCheck, p)
	r.afterCheck = collect(r.afterCheck, p)
	r.permissionCreated = collect(r.permissionCreated, p)
	r.permissionUpdated = collect(r.permissionUpdated, p)
	r.permissionRenamed = collect(r.permissionRenamed, p)
	r.permissionDeleted = collect(r.permissionDeleted, p)
	r.roleCreated = collect(r.roleCreated, p)
	r.roleUpdated = collect(r.roleUpdated, p)
	r.roleRenamed = collect(r.roleRenamed, p)
	r.roleDeleted = collect(r.roleDeleted, p)
	r.userCreated = collect(r.userCreated, p)
	r.userRoleChanged = collect(r.userRoleChanged, p)
	r.userGrantsChanged = collect(r.userGrantsChanged, p)
	r.userDeleted = collect(r.userDeleted, p)
	r.systemSeeded = collect(r.systemSeeded, p)
	r.shutdown = collect(r.shutdown, p)
}

// Plugins returns all registered plugins.
func (r *Registry) Plugins() []Plugin { return r.plugins }

// ──────────────────────────────────────────────────
// Check event emitters
// ──────────────────────────────────────────────────

// EmitBeforeCheck notifies all plugins that implement BeforeCheck.
func (r *Registry) EmitBeforeCheck(ctx context.Context, req any) {
	for _, e := range r.beforeCheck {
		r.report("OnBeforeCheck", e.name, e.hook.OnBeforeCheck(ctx, req))
	}
}

// EmitAfterCheck notifies all plugins that implement AfterCheck.
func (r *Registry) EmitAfterCheck(ctx context.Context, req, result any) {
	for _, e := range r.afterCheck {
		r.report("OnAfterCheck", e.name, e.hook.OnAfterCheck(ctx, req, result))
	}
}

// ──────────────────────────────────────────────────
// Permission event emitters
// ──────────────────────────────────────────────────

// EmitPermissionCreated notifies all plugins that implement PermissionCreated.
func (r *Registry) EmitPermissionCreated(ctx context.Context, p *permission.Permission) {
	for _, e := range r.permissionCreated {
		r.report("OnPermissionCreated", e.name, e.hook.OnPermissionCreated(ctx, p))
	}
}

// EmitPermissionUpdated notifies all plugins that implement PermissionUpdated.
func (r *Registry) EmitPermissionUpdated(ctx context.Context, p *permission.Permission) {
	for _, e := range r.permissionUpdated {
		r.report("OnPermissionUpdated", e.name, e.hook.OnPermissionUpdated(ctx, p))
	}
}

// EmitPermissionRenamed notifies all plugins that implement PermissionRenamed.
func (r *Registry) EmitPermissionRenamed(ctx context.Context, p *permission.Permission, oldName string, roles, users int64) {
	for _, e := range r.permissionRenamed {
		r.report("OnPermissionRenamed", e.name, e.hook.OnPermissionRenamed(ctx, p, oldName, roles, users))
	}
}

// EmitPermissionDeleted notifies all plugins that implement PermissionDeleted.
func (r *Registry) EmitPermissionDeleted(ctx context.Context, p *permission.Permission) {
	for _, e := range r.permissionDeleted {
		r.report("OnPermissionDeleted", e.name, e.hook.OnPermissionDeleted(ctx, p))
	}
}

// ──────────────────────────────────────────────────
// Role event emitters
// ──────────────────────────────────────────────────

// EmitRoleCreated notifies all plugins that implement RoleCreated.
func (r *Registry) EmitRoleCreated(ctx context.Context, rl *role.Role) {
	for _, e := range r.roleCreated {
		r.report("OnRoleCreated", e.name, e.hook.OnRoleCreated(ctx, rl))
	}
}

// EmitRoleUpdated notifies all plugins that implement RoleUpdated.
func (r *Registry) EmitRoleUpdated(ctx context.Context, rl *role.Role) {
	for _, e := range r.roleUpdated {
		r.report("OnRoleUpdated", e.name, e.hook.OnRoleUpdated(ctx, rl))
	}
}

// EmitRoleRenamed notifies all plugins that implement RoleRenamed.
func (r *Registry) EmitRoleRenamed(ctx context.Context, rl *role.Role, oldName string, movedUsers int64) {
	for _, e := range r.roleRenamed {
		r.report("OnRoleRenamed", e.name, e.hook.OnRoleRenamed(ctx, rl, oldName, movedUsers))
	}
}

// EmitRoleDeleted notifies all plugins that implement RoleDeleted.
func (r *Registry) EmitRoleDeleted(ctx context.Context, rl *role.Role) {
	for _, e := range r.roleDeleted {
		r.report("OnRoleDeleted", e.name, e.hook.OnRoleDeleted(ctx, rl))
	}
}

// ──────────────────────────────────────────────────
// User event emitters
// ──────────────────────────────────────────────────

// EmitUserCreated notifies all plugins that implement UserCreated.
func (r *Registry) EmitUserCreated(ctx context.Context, u *user.User) {
	for _, e := range r.userCreated {
		r.report("OnUserCreated", e.name, e.hook.OnUserCreated(ctx, u))
	}
}

// EmitUserRoleChanged notifies all plugins that implement UserRoleChanged.
func (r *Registry) EmitUserRoleChanged(ctx context.Context, u *user.User, oldRole string) {
	for _, e := range r.userRoleChanged {
		r.report("OnUserRoleChanged", e.name, e.hook.OnUserRoleChanged(ctx, u, oldRole))
	}
}

// EmitUserGrantsChanged notifies all plugins that implement UserGrantsChanged.
func (r *Registry) EmitUserGrantsChanged(ctx context.Context, u *user.User, oldGrants []string) {
	for _, e := range r.userGrantsChanged {
		r.report("OnUserGrantsChanged", e.name, e.hook.OnUserGrantsChanged(ctx, u, oldGrants))
	}
}

// EmitUserDeleted notifies all plugins that implement UserDeleted.
func (r *Registry) EmitUserDeleted(ctx context.Context, u *user.User) {
	for _, e := range r.userDeleted {
		r.report("OnUserDeleted", e.name, e.hook.OnUserDeleted(ctx, u))
	}
}

// ──────────────────────────────────────────────────
// Bootstrap and shutdown emitters
// ──────────────────────────────────────────────────

// EmitSystemSeeded notifies all plugins that implement SystemSeeded.
func (r *Registry) EmitSystemSeeded(ctx context.Context, entity string, created, updated int) {
	for _, e := range r.systemSeeded {
		r.report("OnSystemSeeded", e.name, e.hook.OnSystemSeeded(ctx, entity, created, updated))
	}
}

// EmitShutdown notifies all plugins that implement Shutdown.
func (r *Registry) EmitShutdown(ctx context.Context) {
	for _, e := range r.shutdown {
		r.report("OnShutdown", e.name, e.hook.OnShutdown(ctx))
	}
}

// report logs a warning when a lifecycle hook returns an error.
// Hook errors are never propagated to the caller.
func (r *Registry) report(hook, pluginName string, err error) {
	if err == nil {
		return
	}
	r.logger.Warn("plugin hook error",
		slog.String("hook", hook),
		slog.String("plugin", pluginName),
		slog.String("error", err.Error()),
	)
}
