// Package store defines the aggregate persistence interface. The permission,
// role and user packages each define their own store interface; the
// composite Store embeds them and adds the multi-document units that must
// commit or roll back as one. Backends: Memory, MongoDB, Postgres, SQLite.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xraph/aegis/id"
	"github.com/xraph/aegis/permission"
	"github.com/xraph/aegis/role"
	"github.com/xraph/aegis/user"
)

var (
	// ErrNotFound is returned (wrapped) when a live record does not exist.
	ErrNotFound = errors.New("store: not found")

	// ErrDuplicate is returned (wrapped) when a unique key is already taken
	// by a live record.
	ErrDuplicate = errors.New("store: duplicate key")
)

// InUseError is returned by the guarded deletes when live records still
// reference the target. Counts are exact at the time of the check.
type InUseError struct {
	Roles int64
	Users int64
}

func (e *InUseError) Error() string {
	return fmt.Sprintf("store: still referenced by %d roles and %d users", e.Roles, e.Users)
}

// Store is the aggregate persistence interface.
// A single backend implements all of the subsystem stores.
type Store interface {
	permission.Store
	role.Store
	user.Store

	// RenameRole saves r and moves every live user holding oldName to
	// r.Name in the same transaction. It returns the number of users moved.
	RenameRole(ctx context.Context, r *role.Role, oldName string) (int64, error)

	// DeleteRole soft-deletes the role unless a live user holds name, in
	// which case it returns *InUseError and changes nothing.
	DeleteRole(ctx context.Context, roleID id.RoleID, name string, at time.Time) error

	// RenamePermission saves p and rewrites oldName to p.Name in every live
	// role's permission list and every live user's grants, deduping each
	// list, in the same transaction. It returns the number of roles and
	// users rewritten.
	RenamePermission(ctx context.Context, p *permission.Permission, oldName string) (roles, users int64, err error)

	// DeletePermissions soft-deletes every listed permission unless a live
	// role or user references one of names, in which case it returns
	// *InUseError and changes nothing.
	DeletePermissions(ctx context.Context, ids []id.PermissionID, names []string, at time.Time) error

	// Migrate runs all schema migrations.
	Migrate(ctx context.Context) error

	// Ping checks database connectivity.
	Ping(ctx context.Context) error

	// Close closes the store connection.
	Close() error
}
