package api

import (
	"fmt"
	"net/http"

	"github.com/xraph/forge"

	"github.com/xraph/aegis"
	"github.com/xraph/aegis/id"
	"github.com/xraph/aegis/permission"
)

func (a *API) registerPermissionRoutes(router forge.Router) error {
	g := router.Group("/v1", forge.WithGroupTags("permissions"))

	if err := g.POST("/permissions", a.createPermission,
		forge.WithSummary("Create permission"),
		forge.WithDescription("Adds a module:action permission to the catalog."),
		forge.WithOperationID("createPermission"),
		forge.WithRequestSchema(CreatePermissionRequest{}),
		forge.WithCreatedResponse(&permission.Permission{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.GET("/permissions/:permissionId", a.getPermission,
		forge.WithSummary("Get permission"),
		forge.WithOperationID("getPermission"),
		forge.WithResponseSchema(http.StatusOK, "Permission details", &permission.Permission{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.PUT("/permissions/:permissionId", a.updatePermission,
		forge.WithSummary("Update permission"),
		forge.WithDescription("Updates a permission. A rename is applied to every role and user holding the old name."),
		forge.WithOperationID("updatePermission"),
		forge.WithRequestSchema(UpdatePermissionRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Updated permission", &permission.Permission{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.DELETE("/permissions/:permissionId", a.deletePermission,
		forge.WithSummary("Delete permission"),
		forge.WithDescription("Soft-deletes a permission no role or user references."),
		forge.WithOperationID("deletePermission"),
		forge.WithNoContentResponse(),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.GET("/permissions", a.listPermissions,
		forge.WithSummary("List permissions"),
		forge.WithOperationID("listPermissions"),
		forge.WithRequestSchema(ListPermissionsRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Permission list", ListResponse[*permission.Permission]{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	c := router.Group("/v1/catalog", forge.WithGroupTags("permissions"))

	if err := c.GET("/tree", a.permissionTree,
		forge.WithSummary("Permission tree"),
		forge.WithDescription("Returns live permissions grouped by module."),
		forge.WithOperationID("permissionTree"),
		forge.WithResponseSchema(http.StatusOK, "Permission tree", []permission.ModuleGroup{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := c.GET("/modules/:module", a.modulePermissions,
		forge.WithSummary("Module permissions"),
		forge.WithOperationID("modulePermissions"),
		forge.WithResponseSchema(http.StatusOK, "Module permissions", []*permission.Permission{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	return c.POST("/batch-delete", a.batchDeletePermissions,
		forge.WithSummary("Delete permissions"),
		forge.WithDescription("Soft-deletes several permissions. Nothing changes unless every one can go."),
		forge.WithOperationID("batchDeletePermissions"),
		forge.WithRequestSchema(BatchDeletePermissionsRequest{}),
		forge.WithNoContentResponse(),
		forge.WithErrorResponses(),
	)
}

func (a *API) createPermission(ctx forge.Context, req *CreatePermissionRequest) (*permission.Permission, error) {
	if req.Module == "" || req.Action == "" {
		return nil, forge.BadRequest("module and action are required")
	}

	p, err := a.eng.CreatePermission(ctx.Context(), aegis.CreatePermissionInput{
		Module:      req.Module,
		Action:      req.Action,
		DisplayName: req.DisplayName,
		Description: req.Description,
		Resource:    req.Resource,
		Category:    req.Category,
		Status:      req.Status,
		Priority:    req.Priority,
	})
	if err != nil {
		return nil, fail(ctx, err)
	}

	return p, ctx.JSON(http.StatusCreated, p)
}

func (a *API) getPermission(ctx forge.Context, _ *GetPermissionRequest) (*permission.Permission, error) {
	permID, err := permissionParam(ctx)
	if err != nil {
		return nil, err
	}

	p, err := a.eng.GetPermission(ctx.Context(), permID)
	if err != nil {
		return nil, fail(ctx, err)
	}

	return p, ctx.JSON(http.StatusOK, p)
}

func (a *API) updatePermission(ctx forge.Context, req *UpdatePermissionRequest) (*permission.Permission, error) {
	permID, err := permissionParam(ctx)
	if err != nil {
		return nil, err
	}

	p, err := a.eng.UpdatePermission(ctx.Context(), permID, aegis.PermissionPatch{
		Name:        req.Name,
		DisplayName: req.DisplayName,
		Description: req.Description,
		Module:      req.Module,
		Action:      req.Action,
		Resource:    req.Resource,
		Category:    req.Category,
		Status:      req.Status,
		Priority:    req.Priority,
	})
	if err != nil {
		return nil, fail(ctx, err)
	}

	return p, ctx.JSON(http.StatusOK, p)
}

func (a *API) deletePermission(ctx forge.Context, _ *GetPermissionRequest) (*struct{}, error) {
	permID, err := permissionParam(ctx)
	if err != nil {
		return nil, err
	}

	if err := a.eng.DeletePermission(ctx.Context(), permID); err != nil {
		return nil, fail(ctx, err)
	}

	return nil, ctx.NoContent(http.StatusNoContent)
}

func (a *API) listPermissions(ctx forge.Context, req *ListPermissionsRequest) (*ListResponse[*permission.Permission], error) {
	filter := &permission.ListFilter{
		Module:   req.Module,
		Action:   req.Action,
		Category: permission.Category(req.Category),
		Status:   permission.Status(req.Status),
		Search:   req.Search,
	}
	total, err := a.eng.CountPermissions(ctx.Context(), filter)
	if err != nil {
		return nil, fail(ctx, err)
	}

	filter.Limit = defaultLimit(req.Limit)
	filter.Offset = req.Offset
	perms, err := a.eng.ListPermissions(ctx.Context(), filter)
	if err != nil {
		return nil, fail(ctx, err)
	}

	resp := &ListResponse[*permission.Permission]{
		Items:  perms,
		Total:  total,
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}
	return resp, ctx.JSON(http.StatusOK, resp)
}

func (a *API) permissionTree(ctx forge.Context, _ *struct{}) ([]permission.ModuleGroup, error) {
	tree, err := a.eng.PermissionTree(ctx.Context())
	if err != nil {
		return nil, fail(ctx, err)
	}

	return tree, ctx.JSON(http.StatusOK, tree)
}

func (a *API) modulePermissions(ctx forge.Context, _ *ModulePermissionsRequest) ([]*permission.Permission, error) {
	perms, err := a.eng.PermissionsByModule(ctx.Context(), ctx.Param("module"))
	if err != nil {
		return nil, fail(ctx, err)
	}

	return perms, ctx.JSON(http.StatusOK, perms)
}

func (a *API) batchDeletePermissions(ctx forge.Context, req *BatchDeletePermissionsRequest) (*struct{}, error) {
	ids := make([]id.PermissionID, len(req.IDs))
	for i, raw := range req.IDs {
		pid, err := id.ParsePermissionID(raw)
		if err != nil {
			return nil, forge.BadRequest(fmt.Sprintf("invalid permission ID %q: %v", raw, err))
		}
		ids[i] = pid
	}

	if err := a.eng.BatchDeletePermissions(ctx.Context(), ids); err != nil {
		return nil, fail(ctx, err)
	}

	return nil, ctx.NoContent(http.StatusNoContent)
}
