package api

import (
	"net/http"

	"github.com/xraph/forge"

	"github.com/xraph/aegis"
	"github.com/xraph/aegis/user"
)

func (a *API) registerUserRoutes(router forge.Router) error {
	g := router.Group("/v1", forge.WithGroupTags("users"))

	if err := g.POST("/users", a.createUser,
		forge.WithSummary("Create user"),
		forge.WithDescription("Registers a user with a role and optional direct grants."),
		forge.WithOperationID("createUser"),
		forge.WithRequestSchema(CreateUserRequest{}),
		forge.WithCreatedResponse(&user.User{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.GET("/users/:userId", a.getUser,
		forge.WithSummary("Get user"),
		forge.WithOperationID("getUser"),
		forge.WithResponseSchema(http.StatusOK, "User details", &user.User{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.GET("/users", a.listUsers,
		forge.WithSummary("List users"),
		forge.WithOperationID("listUsers"),
		forge.WithRequestSchema(ListUsersRequest{}),
		forge.WithResponseSchema(http.StatusOK, "User list", ListResponse[*user.User]{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.PUT("/users/:userId/role", a.assignRole,
		forge.WithSummary("Assign role"),
		forge.WithDescription("Moves the user to another live role."),
		forge.WithOperationID("assignRole"),
		forge.WithRequestSchema(AssignRoleRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Updated user", &user.User{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.PUT("/users/:userId/grants", a.setGrants,
		forge.WithSummary("Set grants"),
		forge.WithDescription("Replaces the user's direct capability grants."),
		forge.WithOperationID("setUserGrants"),
		forge.WithRequestSchema(SetGrantsRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Updated user", &user.User{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	return g.DELETE("/users/:userId", a.deleteUser,
		forge.WithSummary("Delete user"),
		forge.WithOperationID("deleteUser"),
		forge.WithNoContentResponse(),
		forge.WithErrorResponses(),
	)
}

func (a *API) createUser(ctx forge.Context, req *CreateUserRequest) (*user.User, error) {
	if req.Username == "" {
		return nil, forge.BadRequest("username is required")
	}

	u, err := a.eng.CreateUser(ctx.Context(), aegis.CreateUserInput{
		Username:    req.Username,
		Email:       req.Email,
		DisplayName: req.DisplayName,
		Role:        req.Role,
		Grants:      req.Grants,
	})
	if err != nil {
		return nil, fail(ctx, err)
	}

	return u, ctx.JSON(http.StatusCreated, u)
}

func (a *API) getUser(ctx forge.Context, _ *GetUserRequest) (*user.User, error) {
	userID, err := userParam(ctx)
	if err != nil {
		return nil, err
	}

	u, err := a.eng.GetUser(ctx.Context(), userID)
	if err != nil {
		return nil, fail(ctx, err)
	}

	return u, ctx.JSON(http.StatusOK, u)
}

func (a *API) listUsers(ctx forge.Context, req *ListUsersRequest) (*ListResponse[*user.User], error) {
	filter := &user.ListFilter{
		Role:   req.Role,
		Grant:  req.Grant,
		Status: user.Status(req.Status),
		Search: req.Search,
	}
	total, err := a.eng.CountUsers(ctx.Context(), filter)
	if err != nil {
		return nil, fail(ctx, err)
	}

	filter.Limit = defaultLimit(req.Limit)
	filter.Offset = req.Offset
	users, err := a.eng.ListUsers(ctx.Context(), filter)
	if err != nil {
		return nil, fail(ctx, err)
	}

	resp := &ListResponse[*user.User]{Items: users, Total: total, Limit: filter.Limit, Offset: filter.Offset}
	return resp, ctx.JSON(http.StatusOK, resp)
}

func (a *API) assignRole(ctx forge.Context, req *AssignRoleRequest) (*user.User, error) {
	userID, err := userParam(ctx)
	if err != nil {
		return nil, err
	}
	if req.Role == "" {
		return nil, forge.BadRequest("role is required")
	}

	u, err := a.eng.AssignRole(ctx.Context(), userID, req.Role)
	if err != nil {
		return nil, fail(ctx, err)
	}

	return u, ctx.JSON(http.StatusOK, u)
}

func (a *API) setGrants(ctx forge.Context, req *SetGrantsRequest) (*user.User, error) {
	userID, err := userParam(ctx)
	if err != nil {
		return nil, err
	}

	u, err := a.eng.SetUserGrants(ctx.Context(), userID, req.Grants)
	if err != nil {
		return nil, fail(ctx, err)
	}

	return u, ctx.JSON(http.StatusOK, u)
}

func (a *API) deleteUser(ctx forge.Context, _ *GetUserRequest) (*struct{}, error) {
	userID, err := userParam(ctx)
	if err != nil {
		return nil, err
	}

	if err := a.eng.DeleteUser(ctx.Context(), userID); err != nil {
		return nil, fail(ctx, err)
	}

	return nil, ctx.NoContent(http.StatusNoContent)
}
