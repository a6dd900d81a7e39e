package id_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/aegis/id"
)

func TestKinds(t *testing.T) {
	cases := map[id.Kind]struct {
		gen   func() id.ID
		parse func(string) (id.ID, error)
	}{
		id.KindPermission: {id.NewPermissionID, id.ParsePermissionID},
		id.KindRole:       {id.NewRoleID, id.ParseRoleID},
		id.KindUser:       {id.NewUserID, id.ParseUserID},
	}
	for kind, c := range cases {
		t.Run(string(kind), func(t *testing.T) {
			v := c.gen()
			assert.Equal(t, kind, v.Kind())
			assert.Contains(t, v.String(), string(kind)+"_")

			back, err := c.parse(v.String())
			require.NoError(t, err)
			assert.Equal(t, v.String(), back.String())
		})
	}
}

func TestParseKind_RejectsOtherKind(t *testing.T) {
	_, err := id.ParseRoleID(id.NewUserID().String())
	assert.Error(t, err)

	_, err = id.ParseUserID(id.NewPermissionID().String())
	assert.Error(t, err)
}

func TestParse_Invalid(t *testing.T) {
	_, err := id.Parse("")
	assert.ErrorIs(t, err, id.ErrEmpty)

	_, err = id.ParseRoleID("role_nope")
	assert.Error(t, err)
}

func TestNil(t *testing.T) {
	var v id.ID
	assert.True(t, v.IsNil())
	assert.Empty(t, v.String())
	assert.Empty(t, v.Kind())

	val, err := v.Value()
	require.NoError(t, err)
	assert.Nil(t, val)
}

func TestJSON(t *testing.T) {
	type row struct {
		ID    id.ID `json:"id"`
		Owner id.ID `json:"owner"`
	}
	in := row{ID: id.NewRoleID()}
	data, err := json.Marshal(in)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"`+in.ID.String()+`","owner":""}`, string(data))

	var out row
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, in.ID.String(), out.ID.String())
	assert.True(t, out.Owner.IsNil())
}

func TestScan(t *testing.T) {
	want := id.NewPermissionID()

	for _, src := range []any{want.String(), []byte(want.String())} {
		var got id.ID
		require.NoError(t, got.Scan(src))
		assert.Equal(t, want.String(), got.String())
	}

	got := want
	require.NoError(t, got.Scan(nil))
	assert.True(t, got.IsNil())

	assert.Error(t, got.Scan(42))
}
