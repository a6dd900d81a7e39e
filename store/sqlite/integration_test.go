package sqlite_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/sqlitedriver"

	"github.com/xraph/aegis"
	"github.com/xraph/aegis/permission"
	"github.com/xraph/aegis/role"
	"github.com/xraph/aegis/store/sqlite"
	"github.com/xraph/aegis/user"
)

// openEngine bootstraps an engine over a fresh database file.
func openEngine(t *testing.T) (*aegis.Engine, *sqlite.Store) {
	t.Helper()
	ctx := context.Background()

	drv := sqlitedriver.New()
	require.NoError(t, drv.Open(ctx, filepath.Join(t.TempDir(), "aegis.db")))
	db, err := grove.Open(drv)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	s := sqlite.New(db)
	require.NoError(t, s.Migrate(ctx))
	require.NoError(t, s.Migrate(ctx), "migrations are idempotent")

	eng, err := aegis.NewEngine(aegis.WithStore(s))
	require.NoError(t, err)
	require.NoError(t, eng.Bootstrap(ctx))
	return eng, s
}

func TestSQLite_BootstrapTwice(t *testing.T) {
	ctx := context.Background()
	eng, _ := openEngine(t)

	require.NoError(t, eng.Bootstrap(ctx))

	roles, err := eng.CountRoles(ctx, nil)
	require.NoError(t, err)
	assert.EqualValues(t, 4, roles)

	perms, err := eng.CountPermissions(ctx, nil)
	require.NoError(t, err)
	assert.EqualValues(t, len(permission.SystemPermissions()), perms)

	admin, err := eng.GetRoleByName(ctx, role.Admin)
	require.NoError(t, err)
	assert.True(t, admin.IsSystem)
	assert.False(t, admin.CreatedAt.IsZero())
}

func TestSQLite_TimestampsRoundTrip(t *testing.T) {
	ctx := context.Background()
	eng, _ := openEngine(t)

	u, err := eng.CreateUser(ctx, aegis.CreateUserInput{Username: "clock", Role: role.User})
	require.NoError(t, err)

	got, err := eng.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.WithinDuration(t, u.CreatedAt, got.CreatedAt, time.Second)
	assert.Nil(t, got.DeletedAt)

	list, err := eng.ListUsers(ctx, &user.ListFilter{Role: role.User})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, u.ID.String(), list[0].ID.String())
}

func TestSQLite_RoleRenameMovesUsers(t *testing.T) {
	ctx := context.Background()
	eng, _ := openEngine(t)

	r, err := eng.CreateRole(ctx, aegis.CreateRoleInput{Name: "r1", Permissions: []string{"news:read"}})
	require.NoError(t, err)
	for _, name := range []string{"a", "b"} {
		_, err := eng.CreateUser(ctx, aegis.CreateUserInput{Username: name, Role: "r1"})
		require.NoError(t, err)
	}

	name := "r2"
	_, err = eng.UpdateRole(ctx, r.ID, aegis.RolePatch{Name: &name})
	require.NoError(t, err)

	old, err := eng.CountUsers(ctx, &user.ListFilter{Role: "r1"})
	require.NoError(t, err)
	assert.Zero(t, old)

	moved, err := eng.CountUsers(ctx, &user.ListFilter{Role: "r2"})
	require.NoError(t, err)
	assert.EqualValues(t, 2, moved)
}

func TestSQLite_PermissionReferenceGuardAndCascade(t *testing.T) {
	ctx := context.Background()
	eng, _ := openEngine(t)

	p, err := eng.CreatePermission(ctx, aegis.CreatePermissionInput{Module: "blog", Action: "read"})
	require.NoError(t, err)
	r, err := eng.CreateRole(ctx, aegis.CreateRoleInput{Name: "blogger", Permissions: []string{"blog:read", "news:read"}})
	require.NoError(t, err)
	u, err := eng.CreateUser(ctx, aegis.CreateUserInput{Username: "reader", Role: role.User, Grants: []string{"blog:read"}})
	require.NoError(t, err)

	err = eng.DeletePermission(ctx, p.ID)
	var ref *aegis.ReferenceError
	require.True(t, errors.As(err, &ref), "got %v", err)
	assert.EqualValues(t, 1, ref.Roles)
	assert.EqualValues(t, 1, ref.Users)
	assert.ErrorIs(t, err, aegis.ErrConflict)

	action := "view"
	_, err = eng.UpdatePermission(ctx, p.ID, aegis.PermissionPatch{Action: &action})
	require.NoError(t, err)

	r, err = eng.GetRole(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"blog:view", "news:read"}, r.Permissions)

	u, err = eng.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"blog:view"}, u.Grants)

	ok, err := eng.HasPermission(ctx, u.ID.String(), "blog:view")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSQLite_SoftDeleteFreesName(t *testing.T) {
	ctx := context.Background()
	eng, _ := openEngine(t)

	u, err := eng.CreateUser(ctx, aegis.CreateUserInput{Username: "gone", Role: role.User})
	require.NoError(t, err)
	require.NoError(t, eng.DeleteUser(ctx, u.ID))

	_, err = eng.GetUser(ctx, u.ID)
	assert.ErrorIs(t, err, aegis.ErrNotFound)

	live, err := eng.CountUsers(ctx, &user.ListFilter{})
	require.NoError(t, err)
	assert.Zero(t, live)

	raw, err := eng.CountUsers(ctx, &user.ListFilter{IncludeDeleted: true})
	require.NoError(t, err)
	assert.EqualValues(t, 1, raw)

	_, err = eng.CreateUser(ctx, aegis.CreateUserInput{Username: "gone", Role: role.User})
	assert.NoError(t, err, "soft-deleted username can be reused")
}

func TestSQLite_DuplicateLiveRole(t *testing.T) {
	ctx := context.Background()
	eng, _ := openEngine(t)

	_, err := eng.CreateRole(ctx, aegis.CreateRoleInput{Name: "dup"})
	require.NoError(t, err)
	_, err = eng.CreateRole(ctx, aegis.CreateRoleInput{Name: "dup"})
	assert.ErrorIs(t, err, aegis.ErrConflict)
}

func TestSQLite_TimeColumnsAreDatetime(t *testing.T) {
	ctx := context.Background()
	drv := sqlitedriver.New()
	require.NoError(t, drv.Open(ctx, filepath.Join(t.TempDir(), "aegis.db")))
	db, err := grove.Open(drv)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, sqlite.New(db).Migrate(ctx))

	for _, table := range []string{"aegis_permissions", "aegis_roles", "aegis_users"} {
		for _, col := range []string{"created_at", "updated_at", "deleted_at"} {
			var typ string
			err := drv.QueryRow(ctx, `SELECT type FROM pragma_table_info(?) WHERE name = ?`, table, col).Scan(&typ)
			require.NoError(t, err, "%s.%s", table, col)
			assert.Equal(t, "DATETIME", typ, "%s.%s", table, col)
		}
	}
}
