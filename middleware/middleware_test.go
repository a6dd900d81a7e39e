package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xraph/forge"
	forge_http "github.com/xraph/go-utils/http"

	"github.com/xraph/aegis"
	"github.com/xraph/aegis/id"
	"github.com/xraph/aegis/role"
	"github.com/xraph/aegis/store"
	"github.com/xraph/aegis/store/memory"
	"github.com/xraph/aegis/user"
)

func newEngine(t *testing.T, s store.Store) *aegis.Engine {
	t.Helper()
	eng, err := aegis.NewEngine(aegis.WithStore(s))
	require.NoError(t, err)
	require.NoError(t, eng.Bootstrap(context.Background()))
	return eng
}

// serve runs mw around a handler that records whether it was reached.
func serve(t *testing.T, mw forge.Middleware, userID string) (*httptest.ResponseRecorder, bool, error) {
	t.Helper()
	reached := false
	handler := mw(func(ctx forge.Context) error {
		reached = true
		return ctx.String(http.StatusOK, "ok")
	})

	req := httptest.NewRequest(http.MethodGet, "/v1/news", nil)
	if userID != "" {
		req = req.WithContext(forge.WithUserID(req.Context(), userID))
	}
	rec := httptest.NewRecorder()
	err := handler(forge_http.NewContext(rec, req, nil))
	return rec, reached, err
}

func errorBody(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body["error"]
}

func TestRequire(t *testing.T) {
	ctx := context.Background()
	eng := newEngine(t, memory.New())
	editor, err := eng.CreateUser(ctx, aegis.CreateUserInput{Username: "ed", Role: role.Editor})
	require.NoError(t, err)

	rec, reached, err := serve(t, Require(eng, "news:update"), editor.ID.String())
	require.NoError(t, err)
	assert.True(t, reached)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, reached, err = serve(t, Require(eng, "users:create"), editor.ID.String())
	require.NoError(t, err)
	assert.False(t, reached)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "access denied", errorBody(t, rec))
}

func TestRequire_Unauthenticated(t *testing.T) {
	eng := newEngine(t, memory.New())

	for name, userID := range map[string]string{
		"anonymous": "",
		"unknown":   id.NewUserID().String(),
		"malformed": "not-a-user",
	} {
		t.Run(name, func(t *testing.T) {
			rec, reached, err := serve(t, Require(eng, "news:read"), userID)
			require.NoError(t, err)
			assert.False(t, reached)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, "authentication required", errorBody(t, rec))
		})
	}
}

func TestRequireAll_NeedsEveryCapability(t *testing.T) {
	ctx := context.Background()
	eng := newEngine(t, memory.New())
	u, err := eng.CreateUser(ctx, aegis.CreateUserInput{Username: "reader", Role: role.User, Grants: []string{"news:publish"}})
	require.NoError(t, err)

	_, reached, err := serve(t, RequireAll(eng, "news:read", "news:publish"), u.ID.String())
	require.NoError(t, err)
	assert.True(t, reached)

	rec, reached, err := serve(t, RequireAll(eng, "news:read", "news:delete"), u.ID.String())
	require.NoError(t, err)
	assert.False(t, reached)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequireAny(t *testing.T) {
	ctx := context.Background()
	eng := newEngine(t, memory.New())
	u, err := eng.CreateUser(ctx, aegis.CreateUserInput{Username: "viewer", Role: role.User})
	require.NoError(t, err)

	_, reached, err := serve(t, RequireAny(eng, "users:delete", "news:read"), u.ID.String())
	require.NoError(t, err)
	assert.True(t, reached)

	rec, reached, err := serve(t, RequireAny(eng, "users:delete", "roles:delete"), u.ID.String())
	require.NoError(t, err)
	assert.False(t, reached)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequire_ActorOnContext(t *testing.T) {
	eng := newEngine(t, memory.New())
	handler := Require(eng, "news:delete")(func(ctx forge.Context) error {
		return ctx.String(http.StatusOK, "ok")
	})

	req := httptest.NewRequest(http.MethodDelete, "/v1/news/1", nil)
	req = req.WithContext(aegis.WithActor(req.Context(), &aegis.Actor{UserID: "svc", Role: role.Admin}))
	rec := httptest.NewRecorder()
	require.NoError(t, handler(forge_http.NewContext(rec, req, nil)))
	assert.Equal(t, http.StatusOK, rec.Code)
}

// outageStore fails every user lookup as a broken connection would.
type outageStore struct {
	*memory.Store
}

var errOutage = errors.New("connection refused")

func (s *outageStore) GetUser(context.Context, id.UserID) (*user.User, error) {
	return nil, errOutage
}

func TestRequire_StoreOutagePropagates(t *testing.T) {
	eng := newEngine(t, &outageStore{Store: memory.New()})

	rec, reached, err := serve(t, Require(eng, "news:read"), id.NewUserID().String())
	require.Error(t, err)
	assert.ErrorIs(t, err, errOutage)
	assert.False(t, reached)
	assert.NotEqual(t, http.StatusUnauthorized, rec.Code)
}
