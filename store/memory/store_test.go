package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/xraph/aegis/id"
	"github.com/xraph/aegis/permission"
	"github.com/xraph/aegis/role"
	"github.com/xraph/aegis/store"
	"github.com/xraph/aegis/user"
)

func newPermission(module, action string) *permission.Permission {
	p := &permission.Permission{
		ID:          id.NewPermissionID(),
		Module:      module,
		Action:      action,
		DisplayName: module + " " + action,
		Category:    permission.CategoryFor(module, action),
		Status:      permission.StatusActive,
		Priority:    permission.PriorityFor(action),
	}
	p.DeriveName()
	return p
}

func newRole(name string, perms ...string) *role.Role {
	return &role.Role{
		ID:          id.NewRoleID(),
		Name:        name,
		DisplayName: name,
		Permissions: perms,
		Status:      role.StatusActive,
	}
}

func newUser(username, roleName string, grants ...string) *user.User {
	return &user.User{
		ID:       id.NewUserID(),
		Username: username,
		Role:     roleName,
		Grants:   grants,
		Status:   user.StatusActive,
	}
}

func TestPermissionCRUD(t *testing.T) {
	ctx := context.Background()
	s := New()

	p := newPermission("news", "read")
	if err := s.CreatePermission(ctx, p); err != nil {
		t.Fatal(err)
	}

	got, err := s.GetPermission(ctx, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "news:read" {
		t.Fatalf("expected news:read, got %s", got.Name)
	}

	got, err = s.GetPermissionByName(ctx, "news:read")
	if err != nil {
		t.Fatal(err)
	}
	if got.ID.String() != p.ID.String() {
		t.Fatal("name lookup mismatch")
	}

	if err := s.CreatePermission(ctx, newPermission("news", "read")); !errors.Is(err, store.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}

	p.DisplayName = "Read the news"
	if err := s.UpdatePermission(ctx, p); err != nil {
		t.Fatal(err)
	}
	got, _ = s.GetPermission(ctx, p.ID)
	if got.DisplayName != "Read the news" {
		t.Fatal("update failed")
	}

	// Mutating the returned copy must not leak into the store.
	got.DisplayName = "mutated"
	again, _ := s.GetPermission(ctx, p.ID)
	if again.DisplayName == "mutated" {
		t.Fatal("store returned a shared pointer")
	}
}

func TestListPermissionsOrderAndFilters(t *testing.T) {
	ctx := context.Background()
	s := New()
	for _, p := range []*permission.Permission{
		newPermission("users", "manage"),
		newPermission("news", "update"),
		newPermission("news", "read"),
		newPermission("users", "read"),
	} {
		if err := s.CreatePermission(ctx, p); err != nil {
			t.Fatal(err)
		}
	}

	list, err := s.ListPermissions(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"news:read", "news:update", "users:read", "users:manage"}
	for i, p := range list {
		if p.Name != want[i] {
			t.Fatalf("position %d: expected %s, got %s", i, want[i], p.Name)
		}
	}

	news, _ := s.ListPermissions(ctx, &permission.ListFilter{Module: "news"})
	if len(news) != 2 {
		t.Fatalf("expected 2 news permissions, got %d", len(news))
	}
	page, _ := s.ListPermissions(ctx, &permission.ListFilter{Limit: 1, Offset: 1})
	if len(page) != 1 || page[0].Name != "news:update" {
		t.Fatalf("unexpected page: %+v", page)
	}
	count, _ := s.CountPermissions(ctx, &permission.ListFilter{Category: permission.CategoryRead})
	if count != 2 {
		t.Fatalf("expected 2 read permissions, got %d", count)
	}
}

func TestRoleAndUserCRUD(t *testing.T) {
	ctx := context.Background()
	s := New()

	r := newRole("editor", "news:read")
	if err := s.CreateRole(ctx, r); err != nil {
		t.Fatal(err)
	}
	if err := s.CreateRole(ctx, newRole("editor")); !errors.Is(err, store.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
	got, err := s.GetRoleByName(ctx, "editor")
	if err != nil {
		t.Fatal(err)
	}
	got.Permissions[0] = "mutated:value"
	again, _ := s.GetRole(ctx, r.ID)
	if again.Permissions[0] != "news:read" {
		t.Fatal("store returned a shared slice")
	}

	u := newUser("alice", "editor")
	if err := s.CreateUser(ctx, u); err != nil {
		t.Fatal(err)
	}
	if err := s.CreateUser(ctx, newUser("alice", "user")); !errors.Is(err, store.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
	byName, err := s.GetUserByUsername(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}
	if byName.Role != "editor" {
		t.Fatalf("expected editor, got %s", byName.Role)
	}

	now := time.Now()
	u.DeletedAt = &now
	if err := s.UpdateUser(ctx, u); err != nil {
		t.Fatal(err)
	}
	if _, err := s.GetUser(ctx, u.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for deleted user, got %v", err)
	}
	if n, _ := s.CountUsers(ctx, &user.ListFilter{IncludeDeleted: true}); n != 1 {
		t.Fatalf("expected deleted user to remain visible, got %d", n)
	}
}

func TestRenameRoleMovesUsers(t *testing.T) {
	ctx := context.Background()
	s := New()

	r := newRole("writer", "news:create")
	_ = s.CreateRole(ctx, r)
	for _, name := range []string{"a1", "a2", "a3"} {
		_ = s.CreateUser(ctx, newUser(name, "writer"))
	}
	other := newUser("b1", "user")
	_ = s.CreateUser(ctx, other)

	r.Name = "author"
	moved, err := s.RenameRole(ctx, r, "writer")
	if err != nil {
		t.Fatal(err)
	}
	if moved != 3 {
		t.Fatalf("expected 3 users moved, got %d", moved)
	}
	if n, _ := s.CountUsers(ctx, &user.ListFilter{Role: "writer"}); n != 0 {
		t.Fatalf("expected no users left on old name, got %d", n)
	}
	if n, _ := s.CountUsers(ctx, &user.ListFilter{Role: "author"}); n != 3 {
		t.Fatalf("expected 3 users on new name, got %d", n)
	}
	if got, _ := s.GetUser(ctx, other.ID); got.Role != "user" {
		t.Fatal("unrelated user was moved")
	}
}

func TestRenameRoleRejectsTakenName(t *testing.T) {
	ctx := context.Background()
	s := New()
	a := newRole("writer")
	_ = s.CreateRole(ctx, a)
	_ = s.CreateRole(ctx, newRole("author"))

	a.Name = "author"
	if _, err := s.RenameRole(ctx, a, "writer"); !errors.Is(err, store.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
	if got, _ := s.GetRole(ctx, a.ID); got.Name != "writer" {
		t.Fatal("failed rename must not change the role")
	}
}

func TestDeleteRoleGuard(t *testing.T) {
	ctx := context.Background()
	s := New()
	r := newRole("moderator")
	_ = s.CreateRole(ctx, r)
	_ = s.CreateUser(ctx, newUser("m1", "moderator"))
	_ = s.CreateUser(ctx, newUser("m2", "moderator"))

	err := s.DeleteRole(ctx, r.ID, r.Name, time.Now())
	var inUse *store.InUseError
	if !errors.As(err, &inUse) {
		t.Fatalf("expected InUseError, got %v", err)
	}
	if inUse.Users != 2 {
		t.Fatalf("expected 2 holders, got %d", inUse.Users)
	}
	if _, err := s.GetRole(ctx, r.ID); err != nil {
		t.Fatal("guarded delete must leave the role in place")
	}

	empty := newRole("unused")
	_ = s.CreateRole(ctx, empty)
	if err := s.DeleteRole(ctx, empty.ID, empty.Name, time.Now()); err != nil {
		t.Fatal(err)
	}
	if _, err := s.GetRole(ctx, empty.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after soft delete, got %v", err)
	}
	all, _ := s.ListRoles(ctx, &role.ListFilter{IncludeDeleted: true})
	if len(all) != 2 {
		t.Fatalf("soft-deleted role should remain listable, got %d", len(all))
	}

	// The name is free again once the holder is soft-deleted.
	if err := s.CreateRole(ctx, newRole("unused")); err != nil {
		t.Fatalf("expected name reuse after soft delete, got %v", err)
	}
}

func TestRenamePermissionCascades(t *testing.T) {
	ctx := context.Background()
	s := New()
	p := newPermission("blog", "post")
	_ = s.CreatePermission(ctx, p)

	r1 := newRole("blogger", "blog:post", "news:read", "blog:post")
	r2 := newRole("reader", "news:read")
	r3 := newRole("both", "blog:post", "blog:publish")
	for _, r := range []*role.Role{r1, r2, r3} {
		_ = s.CreateRole(ctx, r)
	}
	u := newUser("poster", "reader", "blog:post")
	_ = s.CreateUser(ctx, u)

	p.Action = "publish"
	p.DeriveName()
	roles, users, err := s.RenamePermission(ctx, p, "blog:post")
	if err != nil {
		t.Fatal(err)
	}
	if roles != 2 || users != 1 {
		t.Fatalf("expected 2 roles and 1 user rewritten, got %d and %d", roles, users)
	}

	got, _ := s.GetRole(ctx, r1.ID)
	if len(got.Permissions) != 2 || got.Permissions[0] != "blog:publish" || got.Permissions[1] != "news:read" {
		t.Fatalf("unexpected blogger permissions: %v", got.Permissions)
	}
	got, _ = s.GetRole(ctx, r3.ID)
	if len(got.Permissions) != 1 || got.Permissions[0] != "blog:publish" {
		t.Fatalf("expected dedupe after rewrite, got %v", got.Permissions)
	}
	gotUser, _ := s.GetUser(ctx, u.ID)
	if gotUser.Grants[0] != "blog:publish" {
		t.Fatalf("user grants not rewritten: %v", gotUser.Grants)
	}
	if _, err := s.GetPermissionByName(ctx, "blog:publish"); err != nil {
		t.Fatal(err)
	}
}

func TestDeletePermissionsGuard(t *testing.T) {
	ctx := context.Background()
	s := New()
	used := newPermission("blog", "post")
	free := newPermission("blog", "archive")
	_ = s.CreatePermission(ctx, used)
	_ = s.CreatePermission(ctx, free)
	_ = s.CreateRole(ctx, newRole("r1", "blog:post"))
	_ = s.CreateRole(ctx, newRole("r2", "blog:post"))
	_ = s.CreateUser(ctx, newUser("u1", "r1", "blog:post"))

	err := s.DeletePermissions(ctx, []id.PermissionID{used.ID, free.ID}, []string{used.Name, free.Name}, time.Now())
	var inUse *store.InUseError
	if !errors.As(err, &inUse) {
		t.Fatalf("expected InUseError, got %v", err)
	}
	if inUse.Roles != 2 || inUse.Users != 1 {
		t.Fatalf("expected 2 roles and 1 user, got %+v", inUse)
	}
	if _, err := s.GetPermission(ctx, free.ID); err != nil {
		t.Fatal("batch must be all-or-nothing")
	}

	if err := s.DeletePermissions(ctx, []id.PermissionID{free.ID}, []string{free.Name}, time.Now()); err != nil {
		t.Fatal(err)
	}
	deleted, _ := s.ListPermissions(ctx, &permission.ListFilter{IncludeDeleted: true, Names: []string{"blog:archive"}})
	if len(deleted) != 1 || deleted[0].DeletedAt == nil || deleted[0].Status != permission.StatusInactive {
		t.Fatalf("expected soft-deleted inactive entry, got %+v", deleted)
	}

	missing := id.NewPermissionID()
	if err := s.DeletePermissions(ctx, []id.PermissionID{missing}, []string{"x:y"}, time.Now()); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
