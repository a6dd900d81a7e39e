package mongo

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/v2/bson"
	mongod "go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/xraph/aegis/id"
	"github.com/xraph/aegis/role"
	"github.com/xraph/aegis/store"
)

func TestMigrationIndexesCoverLiveNames(t *testing.T) {
	idx := migrationIndexes()
	for col, field := range map[string]string{
		colPermissions: "name",
		colRoles:       "name",
		colUsers:       "username",
	} {
		models := idx[col]
		if assert.NotEmpty(t, models, col) {
			assert.Equal(t, bson.D{{Key: field, Value: 1}}, models[0].Keys, col)
			assert.NotNil(t, models[0].Options, col)
		}
	}
}

func TestClassifyNoDocuments(t *testing.T) {
	assert.ErrorIs(t, classify("get role", mongod.ErrNoDocuments), store.ErrNotFound)

	other := errors.New("server selection timeout")
	err := classify("get role", other)
	assert.ErrorIs(t, err, other)
	assert.NotErrorIs(t, err, store.ErrNotFound)
}

func TestRoleSetLeavesImmutableFields(t *testing.T) {
	m := roleToModel(&role.Role{ID: id.NewRoleID(), Name: "writer"})
	set := roleSet(m)

	assert.Equal(t, "writer", set["name"])
	assert.Equal(t, []string{}, set["permissions"])
	for _, k := range []string{"_id", "created_at", "created_by", "deleted_at"} {
		_, ok := set[k]
		assert.False(t, ok, k)
	}
}

func TestSearchRegexEscapes(t *testing.T) {
	assert.Equal(t, bson.M{"$regex": `news\.read`, "$options": "i"}, searchRegex("news.read"))
}
