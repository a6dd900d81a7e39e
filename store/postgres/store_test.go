package postgres

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xraph/grove/drivers/pgdriver"
	"github.com/xraph/grove/migrate"

	"github.com/xraph/aegis/role"
	"github.com/xraph/aegis/store"
)

func TestClassify(t *testing.T) {
	assert.ErrorIs(t, classify("get role", sql.ErrNoRows), store.ErrNotFound)

	dup := fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505", ConstraintName: "aegis_roles_name_live"})
	err := classify("create role", dup)
	assert.ErrorIs(t, err, store.ErrDuplicate)
	assert.Contains(t, err.Error(), "aegis_roles_name_live")

	other := errors.New("connection reset")
	err = classify("list roles", other)
	assert.ErrorIs(t, err, other)
	assert.NotErrorIs(t, err, store.ErrNotFound)
}

func TestContainsAny(t *testing.T) {
	c := containsAny("grants", []string{"news:read", `odd"name`})
	assert.Equal(t, "(grants @> ?::jsonb OR grants @> ?::jsonb)", c.expr)
	assert.Equal(t, []any{`["news:read"]`, `["odd\"name"]`}, c.args)
}

func TestPlaceholders(t *testing.T) {
	assert.Equal(t, "?", placeholders(1))
	assert.Equal(t, "?,?,?", placeholders(3))
}

func TestRoleModelNilPermissions(t *testing.T) {
	m := roleToModel(&role.Role{Name: "writer"})
	assert.NotNil(t, m.Permissions)
	assert.Empty(t, m.Permissions)
}

func TestMigrationExecutorRegistered(t *testing.T) {
	assert.Contains(t, migrate.Executors(), "pg")
	exec, err := migrate.NewExecutorFor(pgdriver.New())
	require.NoError(t, err)
	assert.NotNil(t, exec)
}
