// Package aegis is the authorization core of a CMS: a catalog of
// "module:action" permissions, named roles that bundle them, and the
// resolution of a user's effective permission set.
//
// A user holds exactly one role. Its effective set is the role's
// permissions plus the user's direct grants, expanded so that module:manage
// implies create, read, update and delete on that module and
// settings:update implies system:setting. The admin role passes every
// check.
//
//	eng, err := aegis.NewEngine(
//	    aegis.WithStore(memory.New()),
//	)
//	if err := eng.Bootstrap(ctx); err != nil { ... }
//	ok, err := eng.HasPermission(ctx, userID, "news:publish")
package aegis

// Actor is the resolved caller of a check: who they are, which role they
// hold and their effective (expanded, sorted) permission set.
type Actor struct {
	UserID      string   `json:"user_id"`
	Role        string   `json:"role"`
	Permissions []string `json:"permissions"`
}

// CheckRequest is the input to an authorization check.
type CheckRequest struct {
	Actor      Actor  `json:"actor"`
	Capability string `json:"capability"`
}

// CheckResult is the outcome of an authorization check.
type CheckResult struct {
	Allowed    bool        `json:"allowed"`
	Decision   Decision    `json:"decision"`
	Reason     string      `json:"reason,omitempty"`
	MatchedBy  []MatchInfo `json:"matched_by,omitempty"`
	EvalTimeNs int64       `json:"eval_time_ns"`
}

// Decision is the authorization outcome.
type Decision string

const (
	// DecisionAllow means the effective set holds the capability.
	DecisionAllow Decision = "allow"

	// DecisionAllowAdmin means the actor holds the admin role.
	DecisionAllowAdmin Decision = "allow_admin"

	// DecisionDenyNoPermission means the effective set lacks the capability.
	DecisionDenyNoPermission Decision = "deny_no_permission"

	// DecisionDenyNoRole means the actor has neither a role nor grants.
	DecisionDenyNoRole Decision = "deny_no_role"
)

// MatchInfo describes what granted an allow.
type MatchInfo struct {
	Source string `json:"source"` // "admin", "permission"
	Detail string `json:"detail,omitempty"`
}
