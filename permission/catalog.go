package permission

import (
	"strings"

	"github.com/xraph/aegis/capability"
)

var actionPriority = map[string]int{
	capability.ActionRead:    10,
	capability.ActionCreate:  20,
	capability.ActionUpdate:  30,
	capability.ActionDelete:  40,
	capability.ActionPublish: 50,
	capability.ActionManage:  60,
}

var actionVerb = map[string]string{
	capability.ActionRead:    "View",
	capability.ActionCreate:  "Create",
	capability.ActionUpdate:  "Edit",
	capability.ActionDelete:  "Delete",
	capability.ActionPublish: "Publish",
	capability.ActionManage:  "Manage",
}

type moduleSeed struct {
	module  string
	label   string
	actions []string
}

var systemModules = []moduleSeed{
	{"news", "news articles", []string{"read", "create", "update", "delete", "publish", "manage"}},
	{"resources", "resources", []string{"read", "create", "update", "delete", "publish", "manage"}},
	{"activities", "activities", []string{"read", "create", "update", "delete", "publish", "manage"}},
	{"users", "users", []string{"read", "create", "update", "delete", "manage"}},
	{"settings", "site settings", []string{"read", "update", "manage"}},
	{"uploads", "uploaded files", []string{"create", "delete", "manage"}},
}

// SystemPermissions returns a fresh copy of the built-in catalog.
func SystemPermissions() []*Permission {
	var out []*Permission
	for _, m := range systemModules {
		for _, action := range m.actions {
			p := &Permission{
				Module:      m.module,
				Action:      action,
				DisplayName: actionVerb[action] + " " + m.label,
				Description: "Allows the holder to " + strings.ToLower(actionVerb[action]) + " " + m.label + ".",
				Resource:    m.module,
				Category:    CategoryFor(m.module, action),
				IsSystem:    true,
				Status:      StatusActive,
				Priority:    PriorityFor(action),
			}
			p.DeriveName()
			out = append(out, p)
		}
	}
	return out
}

// CategoryFor derives the default category of a module:action pair.
func CategoryFor(module, action string) Category {
	switch {
	case action == capability.ActionRead:
		return CategoryRead
	case action == capability.ActionManage && (module == "users" || module == "settings"):
		return CategoryAdmin
	case action == capability.ActionManage:
		return CategoryManage
	default:
		return CategoryWrite
	}
}

// PriorityFor returns the default ordering weight of an action. Unknown
// actions sort last.
func PriorityFor(action string) int {
	if p, ok := actionPriority[action]; ok {
		return p
	}
	return 100
}
