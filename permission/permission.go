// Package permission defines the Permission catalog entity and its store
// interface.
package permission

import (
	"fmt"
	"sort"
	"time"

	"github.com/xraph/aegis/capability"
	"github.com/xraph/aegis/id"
)

// Category classifies a permission for display and grouping.
type Category string

const (
	CategoryRead   Category = "read"
	CategoryWrite  Category = "write"
	CategoryManage Category = "manage"
	CategoryAdmin  Category = "admin"
)

// Status is the lifecycle state of a catalog entry.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// Permission is a catalog entry describing one module:action capability.
// Name always equals Module + ":" + Action.
type Permission struct {
	ID          id.PermissionID `json:"id" db:"id"`
	Name        string          `json:"name" db:"name" validate:"required,capability"`
	DisplayName string          `json:"display_name" db:"display_name" validate:"required,max=100"`
	Description string          `json:"description,omitempty" db:"description" validate:"max=500"`
	Module      string          `json:"module" db:"module" validate:"required,segment"`
	Action      string          `json:"action" db:"action" validate:"required,segment"`
	Resource    string          `json:"resource,omitempty" db:"resource"`
	Category    Category        `json:"category" db:"category" validate:"oneof=read write manage admin"`
	IsSystem    bool            `json:"is_system" db:"is_system"`
	Status      Status          `json:"status" db:"status" validate:"oneof=active inactive"`
	Priority    int             `json:"priority" db:"priority" validate:"gte=0,lte=100"`
	CreatedBy   string          `json:"created_by,omitempty" db:"created_by"`
	UpdatedBy   string          `json:"updated_by,omitempty" db:"updated_by"`
	DeletedAt   *time.Time      `json:"deleted_at,omitempty" db:"deleted_at"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at" db:"updated_at"`
}

// DeriveName recomputes Name from Module and Action.
func (p *Permission) DeriveName() {
	p.Name = capability.Format(p.Module, p.Action)
}

// Deleted reports whether the entry has been soft-deleted.
func (p *Permission) Deleted() bool { return p.DeletedAt != nil }

// Validate checks field formats and the name invariant.
func (p *Permission) Validate() error {
	if err := capability.Struct(p); err != nil {
		return err
	}
	if p.Name != capability.Format(p.Module, p.Action) {
		return fmt.Errorf("%w: name %q does not match %s:%s", capability.ErrInvalid, p.Name, p.Module, p.Action)
	}
	return nil
}

// ListFilter contains filters for listing permissions. Soft-deleted entries
// are excluded unless IncludeDeleted is set.
type ListFilter struct {
	Module         string   `json:"module,omitempty"`
	Action         string   `json:"action,omitempty"`
	Category       Category `json:"category,omitempty"`
	Status         Status   `json:"status,omitempty"`
	IsSystem       *bool    `json:"is_system,omitempty"`
	Names          []string `json:"names,omitempty"`
	Search         string   `json:"search,omitempty"`
	IncludeDeleted bool     `json:"include_deleted,omitempty"`
	Limit          int      `json:"limit,omitempty"`
	Offset         int      `json:"offset,omitempty"`
}

// ModuleGroup is one branch of the permission tree.
type ModuleGroup struct {
	Module      string        `json:"module"`
	Permissions []*Permission `json:"permissions"`
}

// Sort orders permissions by module, then priority, then name.
func Sort(perms []*Permission) {
	sort.SliceStable(perms, func(i, j int) bool {
		a, b := perms[i], perms[j]
		if a.Module != b.Module {
			return a.Module < b.Module
		}
		if a.Priority != b.Priority {
			return a.Priority < b.Priority
		}
		return a.Name < b.Name
	})
}

// Tree groups permissions by module. Groups are ordered by module name and
// each group's entries by priority.
func Tree(perms []*Permission) []ModuleGroup {
	sorted := make([]*Permission, len(perms))
	copy(sorted, perms)
	Sort(sorted)

	var groups []ModuleGroup
	for _, p := range sorted {
		if n := len(groups); n == 0 || groups[n-1].Module != p.Module {
			groups = append(groups, ModuleGroup{Module: p.Module})
		}
		g := &groups[len(groups)-1]
		g.Permissions = append(g.Permissions, p)
	}
	return groups
}
