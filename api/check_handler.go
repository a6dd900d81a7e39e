package api

import (
	"net/http"

	"github.com/xraph/forge"

	"github.com/xraph/aegis"
	"github.com/xraph/aegis/capability"
)

func (a *API) registerCheckRoutes(router forge.Router) error {
	g := router.Group("/v1/authz", forge.WithGroupTags("authorization"))

	if err := g.POST("/check", a.check,
		forge.WithSummary("Authorization check"),
		forge.WithDescription("Evaluates whether the user holds the capability."),
		forge.WithOperationID("authzCheck"),
		forge.WithRequestSchema(CheckRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Check result", CheckResponse{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.POST("/enforce", a.enforce,
		forge.WithSummary("Enforce authorization"),
		forge.WithDescription("Returns 200 if allowed, 403 if denied."),
		forge.WithOperationID("authzEnforce"),
		forge.WithRequestSchema(CheckRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Allowed", CheckResponse{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.POST("/batch-check", a.batchCheck,
		forge.WithSummary("Batch authorization check"),
		forge.WithDescription("Evaluates multiple authorization checks in one request."),
		forge.WithOperationID("authzBatchCheck"),
		forge.WithRequestSchema(BatchCheckRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Batch results", BatchCheckResponse{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	return g.GET("/users/:userId/permissions", a.userPermissions,
		forge.WithSummary("Effective permissions"),
		forge.WithDescription("Returns the user's expanded permissions as a list and as the module to action map."),
		forge.WithOperationID("authzUserPermissions"),
		forge.WithResponseSchema(http.StatusOK, "Effective permissions", PermissionsResponse{}),
		forge.WithErrorResponses(),
	)
}

func (a *API) check(ctx forge.Context, req *CheckRequest) (*CheckResponse, error) {
	resp, _, err := a.decide(ctx, req)
	if err != nil {
		return nil, fail(ctx, err)
	}
	return resp, ctx.JSON(http.StatusOK, resp)
}

// enforce answers 403 with the decision body when the user is denied.
func (a *API) enforce(ctx forge.Context, req *CheckRequest) (*CheckResponse, error) {
	resp, allowed, err := a.decide(ctx, req)
	if err != nil {
		return nil, fail(ctx, err)
	}
	status := http.StatusOK
	if !allowed {
		status = http.StatusForbidden
	}
	return resp, ctx.JSON(status, resp)
}

func (a *API) decide(ctx forge.Context, req *CheckRequest) (*CheckResponse, bool, error) {
	if req.UserID == "" || req.Capability == "" {
		return nil, false, forge.BadRequest("user_id and capability are required")
	}
	result, err := a.eng.CheckUser(ctx.Context(), req.UserID, req.Capability)
	if err != nil {
		return nil, false, err
	}
	return toCheckResponse(result), result.Allowed, nil
}

func (a *API) batchCheck(ctx forge.Context, req *BatchCheckRequest) (*BatchCheckResponse, error) {
	if len(req.Checks) == 0 {
		return nil, forge.BadRequest("checks cannot be empty")
	}

	results := make([]CheckResponse, len(req.Checks))
	for i, c := range req.Checks {
		result, err := a.eng.CheckUser(ctx.Context(), c.UserID, c.Capability)
		if err != nil {
			return nil, fail(ctx, err)
		}
		results[i] = *toCheckResponse(result)
	}

	resp := &BatchCheckResponse{Results: results}
	return resp, ctx.JSON(http.StatusOK, resp)
}

func (a *API) userPermissions(ctx forge.Context, _ *UserPermissionsRequest) (*PermissionsResponse, error) {
	actor, err := a.eng.ResolveActor(ctx.Context(), ctx.Param("userId"))
	if err != nil {
		return nil, fail(ctx, err)
	}

	resp := &PermissionsResponse{
		UserID:      actor.UserID,
		Role:        actor.Role,
		Permissions: actor.Permissions,
		Nested:      capability.Nest(capability.Expand(actor.Permissions)),
	}
	return resp, ctx.JSON(http.StatusOK, resp)
}

func toCheckResponse(r *aegis.CheckResult) *CheckResponse {
	resp := &CheckResponse{
		Allowed:    r.Allowed,
		Decision:   string(r.Decision),
		Reason:     r.Reason,
		EvalTimeNs: r.EvalTimeNs,
	}
	for _, m := range r.MatchedBy {
		resp.MatchedBy = append(resp.MatchedBy, MatchInfo{
			Source: m.Source,
			Detail: m.Detail,
		})
	}
	return resp
}
