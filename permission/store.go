package permission

import (
	"context"

	"github.com/xraph/aegis/id"
)

// Store defines persistence operations for catalog permissions. Lookups
// return only live (not soft-deleted) entries.
type Store interface {
	// CreatePermission persists a new permission. A live entry with the
	// same name yields store.ErrDuplicate.
	CreatePermission(ctx context.Context, p *Permission) error

	// GetPermission retrieves a live permission by ID.
	GetPermission(ctx context.Context, permID id.PermissionID) (*Permission, error)

	// GetPermissionByName retrieves a live permission by its module:action name.
	GetPermissionByName(ctx context.Context, name string) (*Permission, error)

	// UpdatePermission persists changes to a live permission.
	UpdatePermission(ctx context.Context, p *Permission) error

	// ListPermissions returns permissions matching the filter, ordered by
	// module then priority.
	ListPermissions(ctx context.Context, filter *ListFilter) ([]*Permission, error)

	// CountPermissions returns the number of permissions matching the filter.
	CountPermissions(ctx context.Context, filter *ListFilter) (int64, error)
}
