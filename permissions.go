package aegis

import (
	"context"
	"errors"
	"log/slog"

	"github.com/xraph/aegis/capability"
	"github.com/xraph/aegis/id"
	"github.com/xraph/aegis/permission"
	"github.com/xraph/aegis/store"
)

// CreatePermissionInput describes a new catalog entry. Name is derived from
// Module and Action. Zero values take defaults: DisplayName falls back to
// the name, Category and Priority derive from the action, Status is active.
type CreatePermissionInput struct {
	Module      string              `json:"module"`
	Action      string              `json:"action"`
	DisplayName string              `json:"display_name,omitempty"`
	Description string              `json:"description,omitempty"`
	Resource    string              `json:"resource,omitempty"`
	Category    permission.Category `json:"category,omitempty"`
	Status      permission.Status   `json:"status,omitempty"`
	Priority    *int                `json:"priority,omitempty"`
}

// PermissionPatch lists the fields to change. Nil fields are left alone.
type PermissionPatch struct {
	Name        *string              `json:"name,omitempty"`
	DisplayName *string              `json:"display_name,omitempty"`
	Description *string              `json:"description,omitempty"`
	Module      *string              `json:"module,omitempty"`
	Action      *string              `json:"action,omitempty"`
	Resource    *string              `json:"resource,omitempty"`
	Category    *permission.Category `json:"category,omitempty"`
	Status      *permission.Status   `json:"status,omitempty"`
	Priority    *int                 `json:"priority,omitempty"`
}

// CreatePermission adds a custom catalog entry.
func (e *Engine) CreatePermission(ctx context.Context, in CreatePermissionInput) (*permission.Permission, error) {
	now := e.timestamp()
	p := &permission.Permission{
		ID:          id.NewPermissionID(),
		Module:      in.Module,
		Action:      in.Action,
		DisplayName: in.DisplayName,
		Description: in.Description,
		Resource:    in.Resource,
		Category:    in.Category,
		Status:      in.Status,
		CreatedBy:   operatorFromContext(ctx),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	p.DeriveName()
	if p.DisplayName == "" {
		p.DisplayName = p.Name
	}
	if p.Resource == "" {
		p.Resource = p.Module
	}
	if p.Category == "" {
		p.Category = permission.CategoryFor(p.Module, p.Action)
	}
	if p.Status == "" {
		p.Status = permission.StatusActive
	}
	p.Priority = permission.PriorityFor(p.Action)
	if in.Priority != nil {
		p.Priority = *in.Priority
	}
	if err := p.Validate(); err != nil {
		return nil, invalid(err)
	}

	if _, err := e.store.GetPermissionByName(ctx, p.Name); err == nil {
		return nil, ErrPermissionExists
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, translate("lookup permission", err, nil, nil)
	}
	if err := e.store.CreatePermission(ctx, p); err != nil {
		return nil, translate("create permission", err, nil, ErrPermissionExists)
	}

	e.logger.Info("permission created", slog.String("name", p.Name), slog.String("id", p.ID.String()))
	e.plugins.EmitPermissionCreated(ctx, p)
	return p, nil
}

// GetPermission returns a live catalog entry.
func (e *Engine) GetPermission(ctx context.Context, permID id.PermissionID) (*permission.Permission, error) {
	p, err := e.store.GetPermission(ctx, permID)
	if err != nil {
		return nil, translate("get permission", err, ErrPermissionNotFound, nil)
	}
	return p, nil
}

// GetPermissionByName returns a live catalog entry by module:action name.
func (e *Engine) GetPermissionByName(ctx context.Context, name string) (*permission.Permission, error) {
	if err := capability.Validate(name); err != nil {
		return nil, invalid(err)
	}
	p, err := e.store.GetPermissionByName(ctx, name)
	if err != nil {
		return nil, translate("get permission", err, ErrPermissionNotFound, nil)
	}
	return p, nil
}

// ListPermissions returns catalog entries ordered by module, then priority.
func (e *Engine) ListPermissions(ctx context.Context, filter *permission.ListFilter) ([]*permission.Permission, error) {
	list, err := e.store.ListPermissions(ctx, filter)
	if err != nil {
		return nil, translate("list permissions", err, nil, nil)
	}
	return list, nil
}

// CountPermissions counts catalog entries matching the filter.
func (e *Engine) CountPermissions(ctx context.Context, filter *permission.ListFilter) (int64, error) {
	n, err := e.store.CountPermissions(ctx, filter)
	if err != nil {
		return 0, translate("count permissions", err, nil, nil)
	}
	return n, nil
}

// PermissionsByModule returns the live entries of one module by priority.
func (e *Engine) PermissionsByModule(ctx context.Context, module string) ([]*permission.Permission, error) {
	if err := capability.ValidateSegment("module", module); err != nil {
		return nil, invalid(err)
	}
	return e.ListPermissions(ctx, &permission.ListFilter{Module: module})
}

// PermissionTree groups every live entry by module.
func (e *Engine) PermissionTree(ctx context.Context) ([]permission.ModuleGroup, error) {
	list, err := e.ListPermissions(ctx, nil)
	if err != nil {
		return nil, err
	}
	return permission.Tree(list), nil
}

// UpdatePermission applies patch to a catalog entry. Changing module or
// action renames the entry and rewrites the old name in every role and user
// grant list in one transaction. System entries keep their name.
func (e *Engine) UpdatePermission(ctx context.Context, permID id.PermissionID, patch PermissionPatch) (*permission.Permission, error) {
	current, err := e.GetPermission(ctx, permID)
	if err != nil {
		return nil, err
	}

	next := *current
	if patch.Module != nil {
		next.Module = *patch.Module
	}
	if patch.Action != nil {
		next.Action = *patch.Action
	}
	next.DeriveName()

	if current.IsSystem {
		nameChanged := patch.Name != nil && *patch.Name != current.Name
		if nameChanged || next.Name != current.Name {
			return nil, ErrSystemPermissionImmutable
		}
	}
	if patch.Name != nil && *patch.Name != next.Name {
		return nil, ErrNameMismatch
	}

	if patch.DisplayName != nil {
		next.DisplayName = *patch.DisplayName
	}
	if patch.Description != nil {
		next.Description = *patch.Description
	}
	if patch.Resource != nil {
		next.Resource = *patch.Resource
	}
	if patch.Category != nil {
		next.Category = *patch.Category
	}
	if patch.Status != nil {
		next.Status = *patch.Status
	}
	if patch.Priority != nil {
		next.Priority = *patch.Priority
	}
	next.UpdatedBy = operatorFromContext(ctx)
	next.UpdatedAt = e.timestamp()
	if err := next.Validate(); err != nil {
		return nil, invalid(err)
	}

	if next.Name == current.Name {
		if err := e.store.UpdatePermission(ctx, &next); err != nil {
			return nil, translate("update permission", err, ErrPermissionNotFound, nil)
		}
		e.plugins.EmitPermissionUpdated(ctx, &next)
		return &next, nil
	}

	if _, err := e.store.GetPermissionByName(ctx, next.Name); err == nil {
		return nil, ErrPermissionExists
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, translate("lookup permission", err, nil, nil)
	}
	roles, users, err := e.store.RenamePermission(ctx, &next, current.Name)
	if err != nil {
		return nil, translate("rename permission", err, ErrPermissionNotFound, ErrPermissionExists)
	}
	e.invalidateAll(ctx)

	e.logger.Info("permission renamed",
		slog.String("from", current.Name),
		slog.String("to", next.Name),
		slog.Int64("roles", roles),
		slog.Int64("users", users),
	)
	e.plugins.EmitPermissionRenamed(ctx, &next, current.Name, roles, users)
	return &next, nil
}

// DeletePermission soft-deletes one custom catalog entry.
func (e *Engine) DeletePermission(ctx context.Context, permID id.PermissionID) error {
	return e.BatchDeletePermissions(ctx, []id.PermissionID{permID})
}

// BatchDeletePermissions soft-deletes every listed custom entry, or none.
// It fails if any id is unknown, any entry is a system entry, or any live
// role or user still references one of them.
func (e *Engine) BatchDeletePermissions(ctx context.Context, ids []id.PermissionID) error {
	if len(ids) == 0 {
		return ErrEmptyBatch
	}
	if len(ids) > e.config.maxBatch() {
		return ErrBatchTooLarge
	}

	seen := make(map[string]struct{}, len(ids))
	targets := make([]*permission.Permission, 0, len(ids))
	uniq := make([]id.PermissionID, 0, len(ids))
	names := make([]string, 0, len(ids))
	for _, pid := range ids {
		if _, dup := seen[pid.String()]; dup {
			continue
		}
		seen[pid.String()] = struct{}{}
		p, err := e.GetPermission(ctx, pid)
		if err != nil {
			return err
		}
		if p.IsSystem {
			return ErrSystemPermissionDelete
		}
		targets = append(targets, p)
		uniq = append(uniq, pid)
		names = append(names, p.Name)
	}

	at := e.timestamp()
	err := e.store.DeletePermissions(ctx, uniq, names, at)
	var inUse *store.InUseError
	if errors.As(err, &inUse) {
		return &ReferenceError{Entity: "permission", Names: names, Roles: inUse.Roles, Users: inUse.Users}
	}
	if err != nil {
		return translate("delete permissions", err, ErrPermissionNotFound, nil)
	}

	for _, p := range targets {
		p.DeletedAt = &at
		p.Status = permission.StatusInactive
		e.logger.Info("permission deleted", slog.String("name", p.Name))
		e.plugins.EmitPermissionDeleted(ctx, p)
	}
	return nil
}

// InitializeSystemPermissions upserts the built-in catalog keyed by name.
// Existing entries are brought back in line with the built-in definition
// and flagged as system entries; their status is left as is.
func (e *Engine) InitializeSystemPermissions(ctx context.Context) (*SeedReport, error) {
	report := &SeedReport{}
	now := e.timestamp()
	for _, seed := range permission.SystemPermissions() {
		existing, err := e.store.GetPermissionByName(ctx, seed.Name)
		switch {
		case errors.Is(err, store.ErrNotFound):
			seed.ID = id.NewPermissionID()
			seed.CreatedAt = now
			seed.UpdatedAt = now
			if err := e.store.CreatePermission(ctx, seed); err != nil {
				return report, translate("seed permission "+seed.Name, err, nil, nil)
			}
			report.Created++
		case err != nil:
			return report, translate("seed permission "+seed.Name, err, nil, nil)
		default:
			if !permissionDrifted(existing, seed) {
				continue
			}
			existing.DisplayName = seed.DisplayName
			existing.Description = seed.Description
			existing.Resource = seed.Resource
			existing.Category = seed.Category
			existing.Priority = seed.Priority
			existing.IsSystem = true
			existing.UpdatedAt = now
			if err := e.store.UpdatePermission(ctx, existing); err != nil {
				return report, translate("seed permission "+seed.Name, err, nil, nil)
			}
			report.Updated++
		}
	}

	e.logger.Info("system permissions initialized",
		slog.Int("created", report.Created),
		slog.Int("updated", report.Updated),
	)
	e.plugins.EmitSystemSeeded(ctx, "permission", report.Created, report.Updated)
	return report, nil
}

func permissionDrifted(have, want *permission.Permission) bool {
	return !have.IsSystem ||
		have.DisplayName != want.DisplayName ||
		have.Description != want.Description ||
		have.Resource != want.Resource ||
		have.Category != want.Category ||
		have.Priority != want.Priority
}
