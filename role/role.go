// Package role defines the Role entity, the built-in role table and the
// role store interface.
package role

import (
	"time"

	"github.com/xraph/aegis/capability"
	"github.com/xraph/aegis/id"
)

// Status is the lifecycle state of a role.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// Role is a named bundle of capability strings.
type Role struct {
	ID          id.RoleID  `json:"id" db:"id"`
	Name        string     `json:"name" db:"name" validate:"required,rolename"`
	DisplayName string     `json:"display_name" db:"display_name" validate:"required,max=100"`
	Description string     `json:"description,omitempty" db:"description" validate:"max=500"`
	Permissions []string   `json:"permissions" db:"permissions" validate:"dive,capability"`
	IsSystem    bool       `json:"is_system" db:"is_system"`
	Status      Status     `json:"status" db:"status" validate:"oneof=active inactive"`
	CreatedBy   string     `json:"created_by,omitempty" db:"created_by"`
	UpdatedBy   string     `json:"updated_by,omitempty" db:"updated_by"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
}

// Normalize dedupes the permission list in place. It runs before every save.
func (r *Role) Normalize() {
	r.Permissions = capability.Dedupe(r.Permissions)
	if r.Permissions == nil {
		r.Permissions = []string{}
	}
}

// Validate checks the name pattern and every permission string.
func (r *Role) Validate() error {
	return capability.Struct(r)
}

// HasPermission reports whether the role grants p, directly or through a
// module:manage entry.
func (r *Role) HasPermission(p string) bool {
	return capability.Allows(capability.Expand(r.Permissions), p)
}

// Active reports whether the role is live and enabled.
func (r *Role) Active() bool {
	return r.DeletedAt == nil && r.Status != StatusInactive
}

// ListFilter contains filters for listing roles. Soft-deleted roles are
// excluded unless IncludeDeleted is set.
type ListFilter struct {
	IsSystem       *bool  `json:"is_system,omitempty"`
	Status         Status `json:"status,omitempty"`
	Permission     string `json:"permission,omitempty"`
	Search         string `json:"search,omitempty"`
	IncludeDeleted bool   `json:"include_deleted,omitempty"`
	Limit          int    `json:"limit,omitempty"`
	Offset         int    `json:"offset,omitempty"`
}
