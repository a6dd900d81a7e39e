package role

// Built-in role names.
const (
	Admin   = "admin"
	Editor  = "editor"
	CoAdmin = "co_admin"
	User    = "user"
)

var contentModules = []string{"news", "resources", "activities"}

func grid(modules []string, actions ...string) []string {
	out := make([]string, 0, len(modules)*len(actions))
	for _, m := range modules {
		for _, a := range actions {
			out = append(out, m+":"+a)
		}
	}
	return out
}

func concat(lists ...[]string) []string {
	var out []string
	for _, l := range lists {
		out = append(out, l...)
	}
	return out
}

type seed struct {
	name        string
	displayName string
	description string
	permissions func() []string
}

var systemSeeds = []seed{
	{Admin, "Administrator", "Full access to every module.", func() []string {
		return concat(
			grid(contentModules, "manage", "create", "read", "update", "delete", "publish"),
			grid([]string{"users"}, "manage", "create", "read", "update", "delete"),
			grid([]string{"settings"}, "manage", "read", "update"),
			grid([]string{"uploads"}, "manage", "create", "delete"),
		)
	}},
	{Editor, "Editor", "Writes and edits content without publishing.", func() []string {
		return concat(
			grid(contentModules, "create", "read", "update"),
			[]string{"users:read", "uploads:create"},
		)
	}},
	{CoAdmin, "Co-Administrator", "Full content control without user or settings administration.", func() []string {
		return concat(
			grid(contentModules, "create", "read", "update", "delete", "publish"),
			[]string{"users:read", "uploads:create"},
		)
	}},
	{User, "User", "Read-only access to published content.", func() []string {
		return grid(contentModules, "read")
	}},
}

// SystemRoles returns fresh copies of the four built-in roles with their
// fixed permission lists.
func SystemRoles() []*Role {
	out := make([]*Role, 0, len(systemSeeds))
	for _, s := range systemSeeds {
		out = append(out, &Role{
			Name:        s.name,
			DisplayName: s.displayName,
			Description: s.description,
			Permissions: s.permissions(),
			IsSystem:    true,
			Status:      StatusActive,
		})
	}
	return out
}

// IsSystemName reports whether name is one of the built-in role names.
func IsSystemName(name string) bool {
	for _, s := range systemSeeds {
		if s.name == name {
			return true
		}
	}
	return false
}
