package capability_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/aegis/capability"
)

func TestParse(t *testing.T) {
	module, action, err := capability.Parse("news:publish")
	require.NoError(t, err)
	assert.Equal(t, "news", module)
	assert.Equal(t, "publish", action)

	for _, bad := range []string{"", "news", "News:read", "news:read:x", "news:", ":read", "news-feed:read", "news:re4d"} {
		_, _, err := capability.Parse(bad)
		assert.ErrorIs(t, err, capability.ErrInvalid, bad)
	}
}

func TestValidateRoleName(t *testing.T) {
	for _, ok := range []string{"admin", "co_admin", "_internal", "Editor2"} {
		assert.NoError(t, capability.ValidateRoleName(ok), ok)
	}
	for _, bad := range []string{"", "2fast", "co-admin", "has space"} {
		assert.ErrorIs(t, capability.ValidateRoleName(bad), capability.ErrInvalid, bad)
	}
}

func TestDedupeKeepsFirstOccurrence(t *testing.T) {
	got := capability.Dedupe([]string{"news:read", "news:create", "news:read", "users:read", "news:create"})
	assert.Equal(t, []string{"news:read", "news:create", "users:read"}, got)
	assert.Nil(t, capability.Dedupe(nil))
}

func TestReplaceRewritesEveryOccurrence(t *testing.T) {
	in := []string{"news:read", "blog:post", "users:read", "blog:post"}
	out, changed := capability.Replace(in, "blog:post", "blog:publish")
	require.True(t, changed)
	assert.Equal(t, []string{"news:read", "blog:publish", "users:read"}, out)
	assert.Equal(t, "blog:post", in[1], "input must not be mutated")

	out, changed = capability.Replace([]string{"blog:post", "blog:publish"}, "blog:post", "blog:publish")
	require.True(t, changed)
	assert.Equal(t, []string{"blog:publish"}, out)

	_, changed = capability.Replace(in, "missing:thing", "other:thing")
	assert.False(t, changed)
}

func TestExpandManage(t *testing.T) {
	set := capability.Expand([]string{"news:manage"})
	for _, c := range []string{"news:manage", "news:create", "news:read", "news:update", "news:delete"} {
		assert.True(t, set.Has(c), c)
	}
	assert.False(t, set.Has("news:publish"), "manage does not imply publish")
	assert.Len(t, set, 5)
}

func TestExpandSettingsAlias(t *testing.T) {
	set := capability.Expand([]string{"settings:update"})
	assert.True(t, set.Has("system:setting"))

	set = capability.Expand([]string{"settings:manage"})
	assert.True(t, set.Has("settings:update"))
	assert.True(t, set.Has("system:setting"))

	set = capability.Expand([]string{"settings:read"})
	assert.False(t, set.Has("system:setting"))
}

func TestExpandUnionAndIdempotence(t *testing.T) {
	first := capability.Expand([]string{"users:manage"}, []string{"uploads:create"})
	again := capability.Expand(first.Sorted())
	assert.Equal(t, first.Sorted(), again.Sorted())
	assert.True(t, first.Has("uploads:create"))
	assert.True(t, first.Has("users:delete"))
}

func TestExpandKeepsMalformedVerbatim(t *testing.T) {
	set := capability.Expand([]string{"Bad:manage"})
	assert.True(t, set.Has("Bad:manage"))
	assert.Len(t, set, 1)
}

func TestImplies(t *testing.T) {
	assert.True(t, capability.Implies("news:read", "news:read"))
	assert.True(t, capability.Implies("news:manage", "news:delete"))
	assert.True(t, capability.Implies("settings:update", "system:setting"))
	assert.False(t, capability.Implies("news:manage", "users:read"))
	assert.False(t, capability.Implies("news:read", "news:manage"))
}

func TestAllowsRejectsMalformedRequirement(t *testing.T) {
	set := capability.Expand([]string{"news:read"})
	assert.True(t, capability.Allows(set, "news:read"))
	assert.False(t, capability.Allows(set, "news:update"))
	assert.False(t, capability.Allows(capability.Set{"NEWS": {}}, "NEWS"))
}

func TestNestProjection(t *testing.T) {
	n := capability.Nest(capability.Expand([]string{"news:manage", "uploads:create"}))

	assert.True(t, n.Has("news", "delete"))
	assert.False(t, n.Has("news", "publish"))
	assert.True(t, n.Has("uploads", "create"))

	// Legacy grid is always fully populated.
	for _, m := range capability.LegacyModules {
		for _, a := range capability.LegacyActions {
			_, ok := n[m][a]
			assert.True(t, ok, "%s.%s missing", m, a)
		}
	}
}

func TestNestedHasUnknownModule(t *testing.T) {
	var n capability.Nested
	assert.False(t, n.Has("news", "read"))
	n = capability.Nested{"news": {"read": true}}
	assert.False(t, n.Has("ghost", "read"))
	assert.False(t, n.Has("news", "ghost"))
}

func TestTransform(t *testing.T) {
	got := capability.Transform(capability.Nested{
		"news":     {"manage": true, "publish": false},
		"settings": {"update": true},
	})
	assert.Equal(t, []string{
		"news:create", "news:delete", "news:manage", "news:read", "news:update",
		"settings:update", "system:setting",
	}, got)
}

func TestTransformNestRoundTrip(t *testing.T) {
	list := []string{"activities:read", "news:create", "users:read"}
	assert.Equal(t, list, capability.Transform(capability.Nest(capability.Expand(list))))
}

type grantForm struct {
	Module string   `validate:"required,segment"`
	Role   string   `validate:"required,rolename"`
	Grants []string `validate:"dive,capability"`
}

func TestStructValidation(t *testing.T) {
	require.NoError(t, capability.Struct(grantForm{Module: "news", Role: "co_admin", Grants: []string{"news:read"}}))

	err := capability.Struct(grantForm{Module: "News", Role: "9x", Grants: []string{"news:read", "oops"}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, capability.ErrInvalid))
	assert.Contains(t, err.Error(), "grantForm.Module")
	assert.Contains(t, err.Error(), "grantForm.Role")
	assert.Contains(t, err.Error(), "grantForm.Grants[1]")
}
