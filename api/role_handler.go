package api

import (
	"net/http"

	"github.com/xraph/forge"

	"github.com/xraph/aegis"
	"github.com/xraph/aegis/role"
)

func (a *API) registerRoleRoutes(router forge.Router) error {
	g := router.Group("/v1", forge.WithGroupTags("roles"))

	if err := g.POST("/roles", a.createRole,
		forge.WithSummary("Create role"),
		forge.WithDescription("Creates a custom role. System role names are reserved."),
		forge.WithOperationID("createRole"),
		forge.WithRequestSchema(CreateRoleRequest{}),
		forge.WithCreatedResponse(&role.Role{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.GET("/roles/:roleId", a.getRole,
		forge.WithSummary("Get role"),
		forge.WithDescription("Returns details of a specific role."),
		forge.WithOperationID("getRole"),
		forge.WithResponseSchema(http.StatusOK, "Role details", &role.Role{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.PUT("/roles/:roleId", a.updateRole,
		forge.WithSummary("Update role"),
		forge.WithDescription("Updates a role. Renaming moves every user holding the old name."),
		forge.WithOperationID("updateRole"),
		forge.WithRequestSchema(UpdateRoleRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Updated role", &role.Role{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.DELETE("/roles/:roleId", a.deleteRole,
		forge.WithSummary("Delete role"),
		forge.WithDescription("Soft-deletes a custom role no user holds."),
		forge.WithOperationID("deleteRole"),
		forge.WithNoContentResponse(),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.GET("/roles", a.listRoles,
		forge.WithSummary("List roles"),
		forge.WithDescription("Lists roles with optional filters."),
		forge.WithOperationID("listRoles"),
		forge.WithRequestSchema(ListRolesRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Role list", ListResponse[*role.Role]{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	return g.PUT("/roles/:roleId/permissions", a.setRolePermissions,
		forge.WithSummary("Set role permissions"),
		forge.WithDescription("Replaces the role's permission list. Allowed on system roles."),
		forge.WithOperationID("setRolePermissions"),
		forge.WithRequestSchema(SetRolePermissionsRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Updated role", &role.Role{}),
		forge.WithErrorResponses(),
	)
}

func (a *API) createRole(ctx forge.Context, req *CreateRoleRequest) (*role.Role, error) {
	if req.Name == "" {
		return nil, forge.BadRequest("name is required")
	}

	r, err := a.eng.CreateRole(ctx.Context(), aegis.CreateRoleInput{
		Name:        req.Name,
		DisplayName: req.DisplayName,
		Description: req.Description,
		Permissions: req.Permissions,
		Status:      req.Status,
	})
	if err != nil {
		return nil, fail(ctx, err)
	}

	return r, ctx.JSON(http.StatusCreated, r)
}

func (a *API) getRole(ctx forge.Context, _ *GetRoleRequest) (*role.Role, error) {
	roleID, err := roleParam(ctx)
	if err != nil {
		return nil, err
	}

	r, err := a.eng.GetRole(ctx.Context(), roleID)
	if err != nil {
		return nil, fail(ctx, err)
	}

	return r, ctx.JSON(http.StatusOK, r)
}

func (a *API) updateRole(ctx forge.Context, req *UpdateRoleRequest) (*role.Role, error) {
	roleID, err := roleParam(ctx)
	if err != nil {
		return nil, err
	}

	r, err := a.eng.UpdateRole(ctx.Context(), roleID, aegis.RolePatch{
		Name:        req.Name,
		DisplayName: req.DisplayName,
		Description: req.Description,
		Permissions: req.Permissions,
		Status:      req.Status,
	})
	if err != nil {
		return nil, fail(ctx, err)
	}

	return r, ctx.JSON(http.StatusOK, r)
}

func (a *API) setRolePermissions(ctx forge.Context, req *SetRolePermissionsRequest) (*role.Role, error) {
	roleID, err := roleParam(ctx)
	if err != nil {
		return nil, err
	}

	r, err := a.eng.UpdateRolePermissions(ctx.Context(), roleID, req.Permissions)
	if err != nil {
		return nil, fail(ctx, err)
	}

	return r, ctx.JSON(http.StatusOK, r)
}

func (a *API) deleteRole(ctx forge.Context, _ *GetRoleRequest) (*struct{}, error) {
	roleID, err := roleParam(ctx)
	if err != nil {
		return nil, err
	}

	if err := a.eng.DeleteRole(ctx.Context(), roleID); err != nil {
		return nil, fail(ctx, err)
	}

	return nil, ctx.NoContent(http.StatusNoContent)
}

func (a *API) listRoles(ctx forge.Context, req *ListRolesRequest) (*ListResponse[*role.Role], error) {
	filter := &role.ListFilter{
		Status:     role.Status(req.Status),
		Permission: req.Permission,
		Search:     req.Search,
	}
	total, err := a.eng.CountRoles(ctx.Context(), filter)
	if err != nil {
		return nil, fail(ctx, err)
	}

	filter.Limit = defaultLimit(req.Limit)
	filter.Offset = req.Offset
	roles, err := a.eng.ListRoles(ctx.Context(), filter)
	if err != nil {
		return nil, fail(ctx, err)
	}

	resp := &ListResponse[*role.Role]{Items: roles, Total: total, Limit: filter.Limit, Offset: filter.Offset}
	return resp, ctx.JSON(http.StatusOK, resp)
}
