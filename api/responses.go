package api

import "github.com/xraph/aegis/capability"

// CheckResponse is the response for an authorization check.
type CheckResponse struct {
	Allowed    bool        `json:"allowed" description:"Whether the request is allowed"`
	Decision   string      `json:"decision" description:"Decision code"`
	Reason     string      `json:"reason,omitempty" description:"Human-readable reason"`
	MatchedBy  []MatchInfo `json:"matched_by,omitempty" description:"What granted access"`
	EvalTimeNs int64       `json:"eval_time_ns" description:"Evaluation time in nanoseconds"`
}

// MatchInfo identifies what granted access.
type MatchInfo struct {
	Source string `json:"source" description:"admin or permission"`
	Detail string `json:"detail,omitempty" description:"Match detail"`
}

// BatchCheckResponse contains results for multiple checks.
type BatchCheckResponse struct {
	Results []CheckResponse `json:"results" description:"Check results in order"`
}

// PermissionsResponse is a user's effective permissions in both shapes.
type PermissionsResponse struct {
	UserID      string            `json:"user_id" description:"User ID"`
	Role        string            `json:"role" description:"Role name"`
	Permissions []string          `json:"permissions" description:"Sorted expanded capability list"`
	Nested      capability.Nested `json:"nested" description:"module to action to boolean view"`
}

// ListResponse wraps a list of items with pagination metadata.
type ListResponse[T any] struct {
	Items  []T   `json:"items" description:"List of items"`
	Total  int64 `json:"total" description:"Total count"`
	Limit  int   `json:"limit" description:"Page size"`
	Offset int   `json:"offset" description:"Page offset"`
}

// ErrorResponse is the body written for conflicts.
type ErrorResponse struct {
	Error string `json:"error" description:"Error message"`
	Roles int64  `json:"roles,omitempty" description:"Roles still referencing the target"`
	Users int64  `json:"users,omitempty" description:"Users still referencing the target"`
}
