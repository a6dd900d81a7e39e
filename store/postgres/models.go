package postgres

import (
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/aegis/id"
	"github.com/xraph/aegis/permission"
	"github.com/xraph/aegis/role"
	"github.com/xraph/aegis/user"
)

// ──────────────────────────────────────────────────
// Permission model
// ──────────────────────────────────────────────────

type permissionModel struct {
	grove.BaseModel `grove:"table:aegis_permissions"`
	ID              string     `grove:"id,pk"`
	Name            string     `grove:"name,notnull"`
	DisplayName     string     `grove:"display_name,notnull"`
	Description     string     `grove:"description"`
	Module          string     `grove:"module,notnull"`
	Action          string     `grove:"action,notnull"`
	Resource        string     `grove:"resource"`
	Category        string     `grove:"category,notnull"`
	IsSystem        bool       `grove:"is_system,notnull"`
	Status          string     `grove:"status,notnull"`
	Priority        int        `grove:"priority,notnull"`
	CreatedBy       string     `grove:"created_by"`
	UpdatedBy       string     `grove:"updated_by"`
	DeletedAt       *time.Time `grove:"deleted_at"`
	CreatedAt       time.Time  `grove:"created_at,notnull"`
	UpdatedAt       time.Time  `grove:"updated_at,notnull"`
}

func permissionToModel(p *permission.Permission) *permissionModel {
	return &permissionModel{
		ID:          p.ID.String(),
		Name:        p.Name,
		DisplayName: p.DisplayName,
		Description: p.Description,
		Module:      p.Module,
		Action:      p.Action,
		Resource:    p.Resource,
		Category:    string(p.Category),
		IsSystem:    p.IsSystem,
		Status:      string(p.Status),
		Priority:    p.Priority,
		CreatedBy:   p.CreatedBy,
		UpdatedBy:   p.UpdatedBy,
		DeletedAt:   p.DeletedAt,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func permissionFromModel(m *permissionModel) *permission.Permission {
	pid, _ := id.ParsePermissionID(m.ID) //nolint:errcheck // stored IDs are always valid
	return &permission.Permission{
		ID:          pid,
		Name:        m.Name,
		DisplayName: m.DisplayName,
		Description: m.Description,
		Module:      m.Module,
		Action:      m.Action,
		Resource:    m.Resource,
		Category:    permission.Category(m.Category),
		IsSystem:    m.IsSystem,
		Status:      permission.Status(m.Status),
		Priority:    m.Priority,
		CreatedBy:   m.CreatedBy,
		UpdatedBy:   m.UpdatedBy,
		DeletedAt:   m.DeletedAt,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

// ──────────────────────────────────────────────────
// Role model
// ──────────────────────────────────────────────────

type roleModel struct {
	grove.BaseModel `grove:"table:aegis_roles"`
	ID              string     `grove:"id,pk"`
	Name            string     `grove:"name,notnull"`
	DisplayName     string     `grove:"display_name,notnull"`
	Description     string     `grove:"description"`
	Permissions     []string   `grove:"permissions,type:jsonb"`
	IsSystem        bool       `grove:"is_system,notnull"`
	Status          string     `grove:"status,notnull"`
	CreatedBy       string     `grove:"created_by"`
	UpdatedBy       string     `grove:"updated_by"`
	DeletedAt       *time.Time `grove:"deleted_at"`
	CreatedAt       time.Time  `grove:"created_at,notnull"`
	UpdatedAt       time.Time  `grove:"updated_at,notnull"`
}

func roleToModel(r *role.Role) *roleModel {
	perms := r.Permissions
	if perms == nil {
		perms = []string{}
	}
	return &roleModel{
		ID:          r.ID.String(),
		Name:        r.Name,
		DisplayName: r.DisplayName,
		Description: r.Description,
		Permissions: perms,
		IsSystem:    r.IsSystem,
		Status:      string(r.Status),
		CreatedBy:   r.CreatedBy,
		UpdatedBy:   r.UpdatedBy,
		DeletedAt:   r.DeletedAt,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

func roleFromModel(m *roleModel) *role.Role {
	rid, _ := id.ParseRoleID(m.ID) //nolint:errcheck // stored IDs are always valid
	r := &role.Role{
		ID:          rid,
		Name:        m.Name,
		DisplayName: m.DisplayName,
		Description: m.Description,
		Permissions: m.Permissions,
		IsSystem:    m.IsSystem,
		Status:      role.Status(m.Status),
		CreatedBy:   m.CreatedBy,
		UpdatedBy:   m.UpdatedBy,
		DeletedAt:   m.DeletedAt,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
	if r.Permissions == nil {
		r.Permissions = []string{}
	}
	return r
}

// ──────────────────────────────────────────────────
// User model
// ──────────────────────────────────────────────────

type userModel struct {
	grove.BaseModel `grove:"table:aegis_users"`
	ID              string     `grove:"id,pk"`
	Username        string     `grove:"username,notnull"`
	Email           string     `grove:"email"`
	DisplayName     string     `grove:"display_name"`
	Role            string     `grove:"role,notnull"`
	Grants          []string   `grove:"grants,type:jsonb"`
	Status          string     `grove:"status,notnull"`
	DeletedAt       *time.Time `grove:"deleted_at"`
	CreatedAt       time.Time  `grove:"created_at,notnull"`
	UpdatedAt       time.Time  `grove:"updated_at,notnull"`
}

func userToModel(u *user.User) *userModel {
	grants := u.Grants
	if grants == nil {
		grants = []string{}
	}
	return &userModel{
		ID:          u.ID.String(),
		Username:    u.Username,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		Role:        u.Role,
		Grants:      grants,
		Status:      string(u.Status),
		DeletedAt:   u.DeletedAt,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}

func userFromModel(m *userModel) *user.User {
	uid, _ := id.ParseUserID(m.ID) //nolint:errcheck // stored IDs are always valid
	u := &user.User{
		ID:          uid,
		Username:    m.Username,
		Email:       m.Email,
		DisplayName: m.DisplayName,
		Role:        m.Role,
		Grants:      m.Grants,
		Status:      user.Status(m.Status),
		DeletedAt:   m.DeletedAt,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
	if u.Grants == nil {
		u.Grants = []string{}
	}
	return u
}
