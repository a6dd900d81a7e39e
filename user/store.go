package user

import (
	"context"

	"github.com/xraph/aegis/id"
)

// Store defines persistence operations for users.
type Store interface {
	// CreateUser persists a new user. A live user with the same username
	// yields store.ErrDuplicate.
	CreateUser(ctx context.Context, u *User) error

	// GetUser retrieves a live user by ID.
	GetUser(ctx context.Context, userID id.UserID) (*User, error)

	// GetUserByUsername retrieves a live user by username.
	GetUserByUsername(ctx context.Context, username string) (*User, error)

	// UpdateUser persists changes to a live user.
	UpdateUser(ctx context.Context, u *User) error

	// ListUsers returns users matching the filter, ordered by creation time.
	ListUsers(ctx context.Context, filter *ListFilter) ([]*User, error)

	// CountUsers returns the number of users matching the filter.
	CountUsers(ctx context.Context, filter *ListFilter) (int64, error)
}
