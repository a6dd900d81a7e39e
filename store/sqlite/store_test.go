package sqlite

import (
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xraph/grove/drivers/sqlitedriver"
	"github.com/xraph/grove/migrate"

	"github.com/xraph/aegis/store"
	"github.com/xraph/aegis/user"
)

func TestListRoundTrip(t *testing.T) {
	assert.Equal(t, "[]", encodeList(nil))

	text := encodeList([]string{"news:read", "news:update"})
	got, err := decodeList(text, "grants")
	require.NoError(t, err)
	assert.Equal(t, []string{"news:read", "news:update"}, got)

	got, err = decodeList("", "grants")
	require.NoError(t, err)
	assert.Equal(t, []string{}, got)

	_, err = decodeList("{not json", "grants")
	assert.ErrorContains(t, err, "unmarshal grants")
}

func TestClassify(t *testing.T) {
	assert.ErrorIs(t, classify("get user", sql.ErrNoRows), store.ErrNotFound)
	assert.ErrorIs(t,
		classify("create user", errors.New("UNIQUE constraint failed: aegis_users.username")),
		store.ErrDuplicate,
	)
	assert.NotErrorIs(t, classify("list users", errors.New("disk I/O error")), store.ErrDuplicate)
}

func TestHoldsAny(t *testing.T) {
	c := holdsAny("permissions", []string{"a:b", "c:d"})
	assert.Equal(t,
		"EXISTS (SELECT 1 FROM json_each(permissions) WHERE json_each.value IN (?,?))",
		c.expr,
	)
	assert.Equal(t, []any{"a:b", "c:d"}, c.args)
}

func TestUserModelCorruptGrants(t *testing.T) {
	m := userToModel(&user.User{Username: "ana", Role: "user"})
	assert.Equal(t, "[]", m.Grants)

	m.Grants = "oops"
	_, err := userFromModel(m)
	assert.Error(t, err)
}

func TestMigrationExecutorRegistered(t *testing.T) {
	assert.Contains(t, migrate.Executors(), "sqlite")
	exec, err := migrate.NewExecutorFor(sqlitedriver.New())
	require.NoError(t, err)
	assert.NotNil(t, exec)
}
