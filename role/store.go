package role

import (
	"context"

	"github.com/xraph/aegis/id"
)

// Store defines persistence operations for roles. Lookups return only live
// (not soft-deleted) roles.
type Store interface {
	// CreateRole persists a new role. A live role with the same name yields
	// store.ErrDuplicate.
	CreateRole(ctx context.Context, r *Role) error

	// GetRole retrieves a live role by ID.
	GetRole(ctx context.Context, roleID id.RoleID) (*Role, error)

	// GetRoleByName retrieves a live role by name.
	GetRoleByName(ctx context.Context, name string) (*Role, error)

	// UpdateRole persists changes to a live role without touching users.
	// Renames go through the composite store's RenameRole.
	UpdateRole(ctx context.Context, r *Role) error

	// ListRoles returns roles matching the filter, ordered by creation time.
	ListRoles(ctx context.Context, filter *ListFilter) ([]*Role, error)

	// CountRoles returns the number of roles matching the filter.
	CountRoles(ctx context.Context, filter *ListFilter) (int64, error)
}
