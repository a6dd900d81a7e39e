package plugin

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/xraph/aegis/id"
	"github.com/xraph/aegis/role"
	"github.com/xraph/aegis/user"
)

// testPlugin implements Plugin + RoleCreated + RoleRenamed + AfterCheck.
type testPlugin struct {
	roleCreatedCalled bool
	afterCheckCalled  bool
	renamedFrom       string
	moved             int64
}

func (t *testPlugin) Name() string { return "test-plugin" }

func (t *testPlugin) OnRoleCreated(_ context.Context, _ *role.Role) error {
	t.roleCreatedCalled = true
	return nil
}

func (t *testPlugin) OnRoleRenamed(_ context.Context, _ *role.Role, oldName string, moved int64) error {
	t.renamedFrom = oldName
	t.moved = moved
	return nil
}

func (t *testPlugin) OnAfterCheck(_ context.Context, _, _ any) error {
	t.afterCheckCalled = true
	return nil
}

// minimalPlugin only implements Plugin (no hooks).
type minimalPlugin struct{}

func (m *minimalPlugin) Name() string { return "minimal" }

// failingPlugin returns an error from its only hook.
type failingPlugin struct{}

func (f *failingPlugin) Name() string { return "failing" }

func (f *failingPlugin) OnUserRoleChanged(_ context.Context, _ *user.User, _ string) error {
	return errors.New("boom")
}

func TestRegistryDispatch(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry(slog.Default())

	tp := &testPlugin{}
	reg.Register(tp)
	reg.Register(&minimalPlugin{})

	if len(reg.Plugins()) != 2 {
		t.Fatalf("expected 2 plugins, got %d", len(reg.Plugins()))
	}

	reg.EmitRoleCreated(ctx, &role.Role{ID: id.NewRoleID(), Name: "moderator"})
	if !tp.roleCreatedCalled {
		t.Fatal("OnRoleCreated was not called")
	}

	reg.EmitRoleRenamed(ctx, &role.Role{ID: id.NewRoleID(), Name: "author"}, "writer", 4)
	if tp.renamedFrom != "writer" || tp.moved != 4 {
		t.Fatalf("unexpected rename payload: %q %d", tp.renamedFrom, tp.moved)
	}

	reg.EmitAfterCheck(ctx, nil, nil)
	if !tp.afterCheckCalled {
		t.Fatal("OnAfterCheck was not called")
	}

	// Should not panic on hooks with no listeners.
	reg.EmitBeforeCheck(ctx, nil)
	reg.EmitRoleDeleted(ctx, &role.Role{})
	reg.EmitSystemSeeded(ctx, "role", 4, 0)
	reg.EmitShutdown(ctx)
}

func TestRegistryLogsHookErrors(t *testing.T) {
	var buf bytes.Buffer
	reg := NewRegistry(slog.New(slog.NewTextHandler(&buf, nil)))
	reg.Register(&failingPlugin{})

	reg.EmitUserRoleChanged(context.Background(), &user.User{Username: "bob"}, "user")

	out := buf.String()
	if !strings.Contains(out, "plugin=failing") || !strings.Contains(out, "hook=OnUserRoleChanged") {
		t.Fatalf("expected hook error to be logged, got %q", out)
	}
}
