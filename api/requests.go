package api

import (
	"github.com/xraph/aegis/permission"
	"github.com/xraph/aegis/role"
)

// ──────────────────────────────────────────────────
// Check requests
// ──────────────────────────────────────────────────

// CheckRequest is the request body for an authorization check.
type CheckRequest struct {
	UserID     string `json:"user_id" description:"User identifier"`
	Capability string `json:"capability" description:"Capability in module:action form"`
}

// BatchCheckRequest contains multiple checks.
type BatchCheckRequest struct {
	Checks []CheckRequest `json:"checks" description:"List of authorization checks"`
}

// UserPermissionsRequest is the path parameter for a user's permission view.
type UserPermissionsRequest struct {
	UserID string `path:"userId" description:"User ID"`
}

// ──────────────────────────────────────────────────
// Permission requests
// ──────────────────────────────────────────────────

// CreatePermissionRequest is the body for creating a permission.
type CreatePermissionRequest struct {
	Module      string              `json:"module" description:"Module segment (e.g. news)"`
	Action      string              `json:"action" description:"Action segment (e.g. publish)"`
	DisplayName string              `json:"display_name,omitempty" description:"Human-readable name"`
	Description string              `json:"description,omitempty" description:"Human-readable description"`
	Resource    string              `json:"resource,omitempty" description:"Resource label, defaults to the module"`
	Category    permission.Category `json:"category,omitempty" description:"read, write, delete or admin"`
	Status      permission.Status   `json:"status,omitempty" description:"active or inactive"`
	Priority    *int                `json:"priority,omitempty" description:"Display order within the module"`
}

// UpdatePermissionRequest is the body for updating a permission. Absent
// fields are left unchanged.
type UpdatePermissionRequest struct {
	Name        *string              `json:"name,omitempty" description:"New name, must equal module:action"`
	DisplayName *string              `json:"display_name,omitempty" description:"Human-readable name"`
	Description *string              `json:"description,omitempty" description:"Human-readable description"`
	Module      *string              `json:"module,omitempty" description:"Module segment"`
	Action      *string              `json:"action,omitempty" description:"Action segment"`
	Resource    *string              `json:"resource,omitempty" description:"Resource label"`
	Category    *permission.Category `json:"category,omitempty" description:"Category"`
	Status      *permission.Status   `json:"status,omitempty" description:"Status"`
	Priority    *int                 `json:"priority,omitempty" description:"Display order"`
}

// GetPermissionRequest is the path parameter for getting a permission.
type GetPermissionRequest struct {
	PermissionID string `path:"permissionId" description:"Permission ID"`
}

// ListPermissionsRequest holds query parameters.
type ListPermissionsRequest struct {
	Module   string `query:"module" optional:"true" description:"Filter by module"`
	Action   string `query:"action" optional:"true" description:"Filter by action"`
	Category string `query:"category" optional:"true" description:"Filter by category"`
	Status   string `query:"status" optional:"true" description:"Filter by status"`
	Search   string `query:"search" optional:"true" description:"Search by name"`
	Limit    int    `query:"limit" optional:"true" description:"Maximum results"`
	Offset   int    `query:"offset" optional:"true" description:"Results to skip"`
}

// ModulePermissionsRequest is the path parameter for one module's permissions.
type ModulePermissionsRequest struct {
	Module string `path:"module" description:"Module name"`
}

// BatchDeletePermissionsRequest lists permission IDs to delete together.
type BatchDeletePermissionsRequest struct {
	IDs []string `json:"ids" description:"Permission IDs"`
}

// ──────────────────────────────────────────────────
// Role requests
// ──────────────────────────────────────────────────

// CreateRoleRequest is the body for creating a role.
type CreateRoleRequest struct {
	Name        string      `json:"name" description:"Role name"`
	DisplayName string      `json:"display_name,omitempty" description:"Human-readable name"`
	Description string      `json:"description,omitempty" description:"Human-readable description"`
	Permissions []string    `json:"permissions" description:"Capability strings granted by the role"`
	Status      role.Status `json:"status,omitempty" description:"active or inactive"`
}

// UpdateRoleRequest is the body for updating a role. Absent fields are left
// unchanged; a present permissions list replaces the whole list.
type UpdateRoleRequest struct {
	Name        *string      `json:"name,omitempty" description:"Role name"`
	DisplayName *string      `json:"display_name,omitempty" description:"Human-readable name"`
	Description *string      `json:"description,omitempty" description:"Human-readable description"`
	Permissions *[]string    `json:"permissions,omitempty" description:"Replacement permission list"`
	Status      *role.Status `json:"status,omitempty" description:"active or inactive"`
}

// SetRolePermissionsRequest replaces a role's permission list.
type SetRolePermissionsRequest struct {
	Permissions []string `json:"permissions" description:"Replacement permission list"`
}

// GetRoleRequest is the path parameter for getting a role.
type GetRoleRequest struct {
	RoleID string `path:"roleId" description:"Role ID"`
}

// ListRolesRequest holds query parameters for listing roles.
type ListRolesRequest struct {
	Status     string `query:"status" optional:"true" description:"Filter by status"`
	Permission string `query:"permission" optional:"true" description:"Only roles holding this capability"`
	Search     string `query:"search" optional:"true" description:"Search by name"`
	Limit      int    `query:"limit" optional:"true" description:"Maximum results (default: 50)"`
	Offset     int    `query:"offset" optional:"true" description:"Results to skip"`
}

// ──────────────────────────────────────────────────
// User requests
// ──────────────────────────────────────────────────

// CreateUserRequest is the body for registering a user.
type CreateUserRequest struct {
	Username    string   `json:"username" description:"Unique username"`
	Email       string   `json:"email,omitempty" description:"Email address"`
	DisplayName string   `json:"display_name,omitempty" description:"Human-readable name"`
	Role        string   `json:"role,omitempty" description:"Role name, defaults to user"`
	Grants      []string `json:"grants,omitempty" description:"Direct capability grants"`
}

// GetUserRequest is the path parameter for getting a user.
type GetUserRequest struct {
	UserID string `path:"userId" description:"User ID"`
}

// ListUsersRequest holds query parameters for listing users.
type ListUsersRequest struct {
	Role   string `query:"role" optional:"true" description:"Filter by role name"`
	Grant  string `query:"grant" optional:"true" description:"Only users holding this direct grant"`
	Status string `query:"status" optional:"true" description:"Filter by status"`
	Search string `query:"search" optional:"true" description:"Search by username, email or name"`
	Limit  int    `query:"limit" optional:"true" description:"Maximum results (default: 50)"`
	Offset int    `query:"offset" optional:"true" description:"Results to skip"`
}

// AssignRoleRequest is the body for moving a user to another role.
type AssignRoleRequest struct {
	Role string `json:"role" description:"Role name"`
}

// SetGrantsRequest replaces a user's direct grants.
type SetGrantsRequest struct {
	Grants []string `json:"grants" description:"Capability strings"`
}
