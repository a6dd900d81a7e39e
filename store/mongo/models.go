package mongo

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/xraph/grove"

	"github.com/xraph/aegis/id"
	"github.com/xraph/aegis/permission"
	"github.com/xraph/aegis/role"
	"github.com/xraph/aegis/user"
)

// deleted_at is written as an explicit null on live documents so the
// partial unique indexes can match it with $type.

// ──────────────────────────────────────────────────
// Permission model
// ──────────────────────────────────────────────────

type permissionModel struct {
	grove.BaseModel `grove:"table:aegis_permissions"`
	ID              string     `grove:"id,pk"        bson:"_id"`
	Name            string     `grove:"name"         bson:"name"`
	DisplayName     string     `grove:"display_name" bson:"display_name"`
	Description     string     `grove:"description"  bson:"description"`
	Module          string     `grove:"module"       bson:"module"`
	Action          string     `grove:"action"       bson:"action"`
	Resource        string     `grove:"resource"     bson:"resource"`
	Category        string     `grove:"category"     bson:"category"`
	IsSystem        bool       `grove:"is_system"    bson:"is_system"`
	Status          string     `grove:"status"       bson:"status"`
	Priority        int        `grove:"priority"     bson:"priority"`
	CreatedBy       string     `grove:"created_by"   bson:"created_by"`
	UpdatedBy       string     `grove:"updated_by"   bson:"updated_by"`
	DeletedAt       *time.Time `grove:"deleted_at"   bson:"deleted_at"`
	CreatedAt       time.Time  `grove:"created_at"   bson:"created_at"`
	UpdatedAt       time.Time  `grove:"updated_at"   bson:"updated_at"`
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

// permissionSet is the $set document used inside transactions.
func permissionSet(m *permissionModel) bson.M {
	return bson.M{
		"name":         m.Name,
		"display_name": m.DisplayName,
		"description":  m.Description,
		"module":       m.Module,
		"action":       m.Action,
		"resource":     m.Resource,
		"category":     m.Category,
		"is_system":    m.IsSystem,
		"status":       m.Status,
		"priority":     m.Priority,
		"updated_by":   m.UpdatedBy,
		"updated_at":   m.UpdatedAt,
	}
}

// ──────────────────────────────────────────────────
// Role model
// ──────────────────────────────────────────────────

type roleModel struct {
	grove.BaseModel `grove:"table:aegis_roles"`
	ID              string     `grove:"id,pk"        bson:"_id"`
	Name            string     `grove:"name"         bson:"name"`
	DisplayName     string     `grove:"display_name" bson:"display_name"`
	Description     string     `grove:"description"  bson:"description"`
	Permissions     []string   `grove:"permissions"  bson:"permissions"`
	IsSystem        bool       `grove:"is_system"    bson:"is_system"`
	Status          string     `grove:"status"       bson:"status"`
	CreatedBy       string     `grove:"created_by"   bson:"created_by"`
	UpdatedBy       string     `grove:"updated_by"   bson:"updated_by"`
	DeletedAt       *time.Time `grove:"deleted_at"   bson:"deleted_at"`
	CreatedAt       time.Time  `grove:"created_at"   bson:"created_at"`
	UpdatedAt       time.Time  `grove:"updated_at"   bson:"updated_at"`
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

func roleSet(m *roleModel) bson.M {
	return bson.M{
		"name":         m.Name,
		"display_name": m.DisplayName,
		"description":  m.Description,
		"permissions":  m.Permissions,
		"is_system":    m.IsSystem,
		"status":       m.Status,
		"updated_by":   m.UpdatedBy,
		"updated_at":   m.UpdatedAt,
	}
}

// ──────────────────────────────────────────────────
// User model
// ──────────────────────────────────────────────────

type userModel struct {
	grove.BaseModel `grove:"table:aegis_users"`
	ID              string     `grove:"id,pk"        bson:"_id"`
	Username        string     `grove:"username"     bson:"username"`
	Email           string     `grove:"email"        bson:"email"`
	DisplayName     string     `grove:"display_name" bson:"display_name"`
	Role            string     `grove:"role"         bson:"role"`
	Grants          []string   `grove:"grants"       bson:"grants"`
	Status          string     `grove:"status"       bson:"status"`
	DeletedAt       *time.Time `grove:"deleted_at"   bson:"deleted_at"`
	CreatedAt       time.Time  `grove:"created_at"   bson:"created_at"`
	UpdatedAt       time.Time  `grove:"updated_at"   bson:"updated_at"`
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
