package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/xraph/forge"

	"github.com/xraph/aegis"
	"github.com/xraph/aegis/id"
)

// fail maps engine errors onto HTTP responses: bad request 400, not found
// 404, access denied 403. Conflicts are written directly as 409 with the
// reference counts when a delete was blocked.
func fail(ctx forge.Context, err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, aegis.ErrBadRequest):
		return forge.BadRequest(err.Error())
	case errors.Is(err, aegis.ErrNotFound):
		return forge.NotFound(err.Error())
	case errors.Is(err, aegis.ErrAccessDenied):
		return forge.Forbidden(err.Error())
	case errors.Is(err, aegis.ErrConflict):
		body := ErrorResponse{Error: err.Error()}
		var ref *aegis.ReferenceError
		if errors.As(err, &ref) {
			body.Roles = ref.Roles
			body.Users = ref.Users
		}
		return ctx.JSON(http.StatusConflict, body)
	}
	return err
}

func permissionParam(ctx forge.Context) (id.PermissionID, error) {
	pid, err := id.ParsePermissionID(ctx.Param("permissionId"))
	if err != nil {
		return pid, forge.BadRequest(fmt.Sprintf("invalid permission ID: %v", err))
	}
	return pid, nil
}

func roleParam(ctx forge.Context) (id.RoleID, error) {
	rid, err := id.ParseRoleID(ctx.Param("roleId"))
	if err != nil {
		return rid, forge.BadRequest(fmt.Sprintf("invalid role ID: %v", err))
	}
	return rid, nil
}

func userParam(ctx forge.Context) (id.UserID, error) {
	uid, err := id.ParseUserID(ctx.Param("userId"))
	if err != nil {
		return uid, forge.BadRequest(fmt.Sprintf("invalid user ID: %v", err))
	}
	return uid, nil
}

func defaultLimit(limit int) int {
	if limit <= 0 {
		return 50
	}
	if limit > 1000 {
		return 1000
	}
	return limit
}
