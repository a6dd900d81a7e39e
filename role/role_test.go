package role_test

import (
	"errors"
	"testing"

	"github.com/xraph/aegis/capability"
	"github.com/xraph/aegis/role"
)

func TestSystemRolesTable(t *testing.T) {
	roles := map[string]*role.Role{}
	for _, r := range role.SystemRoles() {
		roles[r.Name] = r
		if !r.IsSystem {
			t.Fatalf("%s: expected IsSystem", r.Name)
		}
		if err := r.Validate(); err != nil {
			t.Fatalf("%s: %v", r.Name, err)
		}
	}
	if len(roles) != 4 {
		t.Fatalf("expected 4 system roles, got %d", len(roles))
	}

	want := map[string]int{
		role.Admin:   3*6 + 5 + 3 + 3,
		role.Editor:  3*3 + 2,
		role.CoAdmin: 3*5 + 2,
		role.User:    3,
	}
	for name, n := range want {
		if got := len(roles[name].Permissions); got != n {
			t.Errorf("%s: expected %d permissions, got %d", name, n, got)
		}
	}

	admin := roles[role.Admin]
	for _, p := range []string{"news:publish", "users:manage", "settings:manage", "uploads:delete"} {
		if !capability.Contains(admin.Permissions, p) {
			t.Errorf("admin missing %s", p)
		}
	}
	if capability.Contains(roles[role.Editor].Permissions, "news:publish") {
		t.Error("editor must not publish")
	}
	if capability.Contains(roles[role.CoAdmin].Permissions, "news:manage") {
		t.Error("co_admin holds no manage grants")
	}
}

func TestSystemRolesAreFreshCopies(t *testing.T) {
	a := role.SystemRoles()
	a[0].Permissions[0] = "tampered:value"
	b := role.SystemRoles()
	if b[0].Permissions[0] == "tampered:value" {
		t.Fatal("SystemRoles must return independent copies")
	}
}

func TestIsSystemName(t *testing.T) {
	for _, n := range []string{"admin", "editor", "co_admin", "user"} {
		if !role.IsSystemName(n) {
			t.Errorf("%s should be a system role", n)
		}
	}
	if role.IsSystemName("moderator") {
		t.Error("moderator is not a system role")
	}
}

func TestHasPermissionExpandsManage(t *testing.T) {
	r := &role.Role{Name: "moderator", Permissions: []string{"news:manage", "users:read"}}
	if !r.HasPermission("news:delete") {
		t.Error("news:manage should imply news:delete")
	}
	if r.HasPermission("news:publish") {
		t.Error("news:manage should not imply news:publish")
	}
	if !r.HasPermission("users:read") {
		t.Error("expected direct grant")
	}
}

func TestNormalizeDedupes(t *testing.T) {
	r := &role.Role{Permissions: []string{"news:read", "news:read", "users:read"}}
	r.Normalize()
	if len(r.Permissions) != 2 {
		t.Fatalf("expected 2 permissions, got %v", r.Permissions)
	}

	empty := &role.Role{}
	empty.Normalize()
	if empty.Permissions == nil {
		t.Fatal("expected non-nil empty list")
	}
}

func TestValidateRejectsMalformed(t *testing.T) {
	r := &role.Role{Name: "bad-name", DisplayName: "Bad", Status: role.StatusActive, Permissions: []string{"NEWS"}}
	err := r.Validate()
	if !errors.Is(err, capability.ErrInvalid) {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}
}
