package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xraph/forge"

	"github.com/xraph/aegis"
	"github.com/xraph/aegis/api"
	"github.com/xraph/aegis/id"
	"github.com/xraph/aegis/permission"
	"github.com/xraph/aegis/role"
	"github.com/xraph/aegis/store/memory"
)

func setup(t *testing.T) (*aegis.Engine, http.Handler) {
	t.Helper()
	eng, err := aegis.NewEngine(aegis.WithStore(memory.New()))
	require.NoError(t, err)
	require.NoError(t, eng.Bootstrap(context.Background()))
	return eng, api.New(eng, forge.NewRouter()).Handler()
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

// decode reads the first JSON document of the response.
func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
	return v
}

func TestCheckEndpoints(t *testing.T) {
	ctx := context.Background()
	eng, h := setup(t)
	admin, err := eng.CreateUser(ctx, aegis.CreateUserInput{Username: "root", Role: role.Admin})
	require.NoError(t, err)
	editor, err := eng.CreateUser(ctx, aegis.CreateUserInput{Username: "ed", Role: role.Editor})
	require.NoError(t, err)

	rec := do(t, h, http.MethodPost, "/v1/authz/check", api.CheckRequest{UserID: admin.ID.String(), Capability: "anything"})
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[api.CheckResponse](t, rec)
	assert.True(t, resp.Allowed)
	assert.Equal(t, string(aegis.DecisionAllowAdmin), resp.Decision)

	rec = do(t, h, http.MethodPost, "/v1/authz/check", api.CheckRequest{UserID: editor.ID.String(), Capability: "users:create"})
	require.Equal(t, http.StatusOK, rec.Code)
	resp = decode[api.CheckResponse](t, rec)
	assert.False(t, resp.Allowed)
	assert.Equal(t, string(aegis.DecisionDenyNoPermission), resp.Decision)

	rec = do(t, h, http.MethodPost, "/v1/authz/enforce", api.CheckRequest{UserID: editor.ID.String(), Capability: "users:create"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(t, h, http.MethodPost, "/v1/authz/enforce", api.CheckRequest{UserID: editor.ID.String(), Capability: "news:update"})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodPost, "/v1/authz/check", api.CheckRequest{UserID: editor.ID.String(), Capability: "News:Read"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, "/v1/authz/check", api.CheckRequest{UserID: id.NewUserID().String(), Capability: "news:read"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUserPermissionsView(t *testing.T) {
	ctx := context.Background()
	eng, h := setup(t)
	u, err := eng.CreateUser(ctx, aegis.CreateUserInput{Username: "mgr", Role: role.User, Grants: []string{"news:manage"}})
	require.NoError(t, err)

	rec := do(t, h, http.MethodGet, "/v1/authz/users/"+u.ID.String()+"/permissions", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[api.PermissionsResponse](t, rec)
	assert.Equal(t, role.User, resp.Role)
	assert.Contains(t, resp.Permissions, "news:delete")
	assert.True(t, resp.Nested["news"]["update"])
	assert.False(t, resp.Nested["news"]["publish"])
}

func TestNotFound(t *testing.T) {
	_, h := setup(t)

	rec := do(t, h, http.MethodGet, "/v1/permissions/"+id.NewPermissionID().String(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodGet, "/v1/roles/"+id.NewRoleID().String(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodGet, "/v1/roles/"+id.NewUserID().String(), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "wrong id kind")
}

func TestDeletePermission_ReferencedConflict(t *testing.T) {
	ctx := context.Background()
	eng, h := setup(t)
	p, err := eng.CreatePermission(ctx, aegis.CreatePermissionInput{Module: "blog", Action: "post"})
	require.NoError(t, err)
	_, err = eng.CreateRole(ctx, aegis.CreateRoleInput{Name: "blogger", Permissions: []string{"blog:post"}})
	require.NoError(t, err)
	_, err = eng.CreateUser(ctx, aegis.CreateUserInput{Username: "guest", Role: role.User, Grants: []string{"blog:post"}})
	require.NoError(t, err)

	rec := do(t, h, http.MethodDelete, "/v1/permissions/"+p.ID.String(), nil)
	require.Equal(t, http.StatusConflict, rec.Code)
	body := decode[api.ErrorResponse](t, rec)
	assert.EqualValues(t, 1, body.Roles)
	assert.EqualValues(t, 1, body.Users)
	assert.Contains(t, body.Error, "blog:post")

	_, err = eng.GetPermission(ctx, p.ID)
	assert.NoError(t, err, "blocked delete leaves the permission live")
}

func TestRoleConflictsAndSystemProtection(t *testing.T) {
	ctx := context.Background()
	eng, h := setup(t)

	rec := do(t, h, http.MethodPost, "/v1/roles", api.CreateRoleRequest{Name: "writer", Permissions: []string{"news:create"}})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(t, h, http.MethodPost, "/v1/roles", api.CreateRoleRequest{Name: "writer"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, h, http.MethodPost, "/v1/roles", api.CreateRoleRequest{Name: role.Editor})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	editor, err := eng.GetRoleByName(ctx, role.Editor)
	require.NoError(t, err)
	rec = do(t, h, http.MethodDelete, "/v1/roles/"+editor.ID.String(), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	writer, err := eng.GetRoleByName(ctx, "writer")
	require.NoError(t, err)
	_, err = eng.CreateUser(ctx, aegis.CreateUserInput{Username: "w1", Role: "writer"})
	require.NoError(t, err)
	rec = do(t, h, http.MethodDelete, "/v1/roles/"+writer.ID.String(), nil)
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.EqualValues(t, 1, decode[api.ErrorResponse](t, rec).Users)
}

func TestListEndpoints_PartialQuery(t *testing.T) {
	_, h := setup(t)

	rec := do(t, h, http.MethodGet, "/v1/permissions?module=news", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	perms := decode[api.ListResponse[*permission.Permission]](t, rec)
	require.NotEmpty(t, perms.Items)
	for _, p := range perms.Items {
		assert.Equal(t, "news", p.Module)
	}
	assert.EqualValues(t, len(perms.Items), perms.Total)

	rec = do(t, h, http.MethodGet, "/v1/roles", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 4, decode[api.ListResponse[*role.Role]](t, rec).Total)
}
