package aegis

import (
	"context"
	"errors"
	"log/slog"

	"github.com/xraph/aegis/id"
	"github.com/xraph/aegis/role"
	"github.com/xraph/aegis/store"
)

// CreateRoleInput describes a new custom role. DisplayName defaults to the
// name and Status to active.
type CreateRoleInput struct {
	Name        string      `json:"name"`
	DisplayName string      `json:"display_name,omitempty"`
	Description string      `json:"description,omitempty"`
	Permissions []string    `json:"permissions"`
	Status      role.Status `json:"status,omitempty"`
}

// RolePatch lists the fields to change. Nil fields are left alone; a
// non-nil Permissions replaces the whole list.
type RolePatch struct {
	Name        *string      `json:"name,omitempty"`
	DisplayName *string      `json:"display_name,omitempty"`
	Description *string      `json:"description,omitempty"`
	Permissions *[]string    `json:"permissions,omitempty"`
	Status      *role.Status `json:"status,omitempty"`
}

// CreateRole adds a custom role. Built-in names are reserved.
func (e *Engine) CreateRole(ctx context.Context, in CreateRoleInput) (*role.Role, error) {
	now := e.timestamp()
	r := &role.Role{
		ID:          id.NewRoleID(),
		Name:        in.Name,
		DisplayName: in.DisplayName,
		Description: in.Description,
		Permissions: in.Permissions,
		Status:      in.Status,
		CreatedBy:   operatorFromContext(ctx),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if r.DisplayName == "" {
		r.DisplayName = r.Name
	}
	if r.Status == "" {
		r.Status = role.StatusActive
	}
	r.Normalize()
	if err := r.Validate(); err != nil {
		return nil, invalid(err)
	}
	if role.IsSystemName(r.Name) || r.Name == e.config.adminRole() {
		return nil, ErrReservedRoleName
	}
	if err := e.ensureRoleNameFree(ctx, r.Name); err != nil {
		return nil, err
	}
	if err := e.store.CreateRole(ctx, r); err != nil {
		return nil, translate("create role", err, nil, ErrRoleExists)
	}

	e.logger.Info("role created", slog.String("name", r.Name), slog.String("id", r.ID.String()))
	e.plugins.EmitRoleCreated(ctx, r)
	return r, nil
}

// GetRole returns a live role.
func (e *Engine) GetRole(ctx context.Context, roleID id.RoleID) (*role.Role, error) {
	r, err := e.store.GetRole(ctx, roleID)
	if err != nil {
		return nil, translate("get role", err, ErrRoleNotFound, nil)
	}
	return r, nil
}

// GetRoleByName returns a live role by name.
func (e *Engine) GetRoleByName(ctx context.Context, name string) (*role.Role, error) {
	r, err := e.store.GetRoleByName(ctx, name)
	if err != nil {
		return nil, translate("get role", err, ErrRoleNotFound, nil)
	}
	return r, nil
}

// ListRoles returns roles matching the filter.
func (e *Engine) ListRoles(ctx context.Context, filter *role.ListFilter) ([]*role.Role, error) {
	list, err := e.store.ListRoles(ctx, filter)
	if err != nil {
		return nil, translate("list roles", err, nil, nil)
	}
	return list, nil
}

// CountRoles counts roles matching the filter.
func (e *Engine) CountRoles(ctx context.Context, filter *role.ListFilter) (int64, error) {
	n, err := e.store.CountRoles(ctx, filter)
	if err != nil {
		return 0, translate("count roles", err, nil, nil)
	}
	return n, nil
}

// UpdateRole applies patch to a role. Renaming a custom role moves every
// user holding the old name in the same transaction. System roles cannot be
// renamed or deactivated.
func (e *Engine) UpdateRole(ctx context.Context, roleID id.RoleID, patch RolePatch) (*role.Role, error) {
	current, err := e.GetRole(ctx, roleID)
	if err != nil {
		return nil, err
	}
	if current.IsSystem {
		if patch.Name != nil && *patch.Name != current.Name {
			return nil, ErrSystemRoleImmutable
		}
		if patch.Status != nil && *patch.Status != role.StatusActive {
			return nil, ErrSystemRoleDeactivate
		}
	}

	next := *current
	if patch.Name != nil {
		next.Name = *patch.Name
	}
	if patch.DisplayName != nil {
		next.DisplayName = *patch.DisplayName
	}
	if patch.Description != nil {
		next.Description = *patch.Description
	}
	if patch.Permissions != nil {
		next.Permissions = *patch.Permissions
	}
	if patch.Status != nil {
		next.Status = *patch.Status
	}
	next.UpdatedBy = operatorFromContext(ctx)
	next.UpdatedAt = e.timestamp()
	next.Normalize()
	if err := next.Validate(); err != nil {
		return nil, invalid(err)
	}

	if next.Name == current.Name {
		if err := e.store.UpdateRole(ctx, &next); err != nil {
			return nil, translate("update role", err, ErrRoleNotFound, nil)
		}
		if next.Status != current.Status || !sameList(next.Permissions, current.Permissions) {
			e.invalidateAll(ctx)
		}
		e.plugins.EmitRoleUpdated(ctx, &next)
		return &next, nil
	}

	if role.IsSystemName(next.Name) || next.Name == e.config.adminRole() {
		return nil, ErrReservedRoleName
	}
	if err := e.ensureRoleNameFree(ctx, next.Name); err != nil {
		return nil, err
	}
	moved, err := e.store.RenameRole(ctx, &next, current.Name)
	if err != nil {
		return nil, translate("rename role", err, ErrRoleNotFound, ErrRoleExists)
	}
	e.invalidateAll(ctx)

	e.logger.Info("role renamed",
		slog.String("from", current.Name),
		slog.String("to", next.Name),
		slog.Int64("users", moved),
	)
	e.plugins.EmitRoleRenamed(ctx, &next, current.Name, moved)
	return &next, nil
}

// UpdateRolePermissions replaces a role's permission list.
func (e *Engine) UpdateRolePermissions(ctx context.Context, roleID id.RoleID, permissions []string) (*role.Role, error) {
	if permissions == nil {
		permissions = []string{}
	}
	return e.UpdateRole(ctx, roleID, RolePatch{Permissions: &permissions})
}

// DeleteRole soft-deletes a custom role that no live user holds.
func (e *Engine) DeleteRole(ctx context.Context, roleID id.RoleID) error {
	r, err := e.GetRole(ctx, roleID)
	if err != nil {
		return err
	}
	if r.IsSystem {
		return ErrSystemRoleDelete
	}

	at := e.timestamp()
	err = e.store.DeleteRole(ctx, roleID, r.Name, at)
	var inUse *store.InUseError
	if errors.As(err, &inUse) {
		return &ReferenceError{Entity: "role", Names: []string{r.Name}, Users: inUse.Users}
	}
	if err != nil {
		return translate("delete role", err, ErrRoleNotFound, nil)
	}

	r.DeletedAt = &at
	r.Status = role.StatusInactive
	e.logger.Info("role deleted", slog.String("name", r.Name))
	e.plugins.EmitRoleDeleted(ctx, r)
	return nil
}

// InitializeSystemRoles upserts the built-in roles keyed by name and resets
// their permission lists to the built-in definition.
func (e *Engine) InitializeSystemRoles(ctx context.Context) (*SeedReport, error) {
	report := &SeedReport{}
	now := e.timestamp()
	for _, seed := range role.SystemRoles() {
		existing, err := e.store.GetRoleByName(ctx, seed.Name)
		switch {
		case errors.Is(err, store.ErrNotFound):
			seed.ID = id.NewRoleID()
			seed.CreatedAt = now
			seed.UpdatedAt = now
			if err := e.store.CreateRole(ctx, seed); err != nil {
				return report, translate("seed role "+seed.Name, err, nil, nil)
			}
			report.Created++
		case err != nil:
			return report, translate("seed role "+seed.Name, err, nil, nil)
		default:
			if !roleDrifted(existing, seed) {
				continue
			}
			existing.DisplayName = seed.DisplayName
			existing.Description = seed.Description
			existing.Permissions = seed.Permissions
			existing.IsSystem = true
			existing.Status = role.StatusActive
			existing.UpdatedAt = now
			if err := e.store.UpdateRole(ctx, existing); err != nil {
				return report, translate("seed role "+seed.Name, err, nil, nil)
			}
			report.Updated++
		}
	}
	if report.Updated > 0 {
		e.invalidateAll(ctx)
	}

	e.logger.Info("system roles initialized",
		slog.Int("created", report.Created),
		slog.Int("updated", report.Updated),
	)
	e.plugins.EmitSystemSeeded(ctx, "role", report.Created, report.Updated)
	return report, nil
}

// ensureRoleNameFree reports ErrRoleExists if a live role already uses name.
func (e *Engine) ensureRoleNameFree(ctx context.Context, name string) error {
	_, err := e.store.GetRoleByName(ctx, name)
	switch {
	case err == nil:
		return ErrRoleExists
	case errors.Is(err, store.ErrNotFound):
		return nil
	default:
		return translate("lookup role", err, nil, nil)
	}
}

func roleDrifted(have, want *role.Role) bool {
	return !have.IsSystem ||
		have.Status != role.StatusActive ||
		have.DisplayName != want.DisplayName ||
		have.Description != want.Description ||
		!sameList(have.Permissions, want.Permissions)
}

func sameList(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
