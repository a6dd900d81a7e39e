// Package user defines the permission-relevant slice of a user record: the
// role it holds and any direct capability grants.
package user

import (
	"time"

	"github.com/xraph/aegis/capability"
	"github.com/xraph/aegis/id"
)

// Status is the account state.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// User binds an account to exactly one role name. Grants are extra
// capability strings held directly by the user.
type User struct {
	ID          id.UserID  `json:"id" db:"id"`
	Username    string     `json:"username" db:"username" validate:"required,min=3,max=50"`
	Email       string     `json:"email,omitempty" db:"email" validate:"omitempty,email"`
	DisplayName string     `json:"display_name,omitempty" db:"display_name" validate:"max=100"`
	Role        string     `json:"role" db:"role" validate:"required,rolename"`
	Grants      []string   `json:"grants" db:"grants" validate:"dive,capability"`
	Status      Status     `json:"status" db:"status" validate:"oneof=active inactive"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
}

// Normalize dedupes the grant list in place.
func (u *User) Normalize() {
	u.Grants = capability.Dedupe(u.Grants)
	if u.Grants == nil {
		u.Grants = []string{}
	}
}

// Validate checks field formats, including every grant string.
func (u *User) Validate() error { return capability.Struct(u) }

// ListFilter contains filters for listing users. Soft-deleted users are
// excluded unless IncludeDeleted is set.
type ListFilter struct {
	Role           string `json:"role,omitempty"`
	Grant          string `json:"grant,omitempty"`
	Status         Status `json:"status,omitempty"`
	Search         string `json:"search,omitempty"`
	IncludeDeleted bool   `json:"include_deleted,omitempty"`
	Limit          int    `json:"limit,omitempty"`
	Offset         int    `json:"offset,omitempty"`
}
