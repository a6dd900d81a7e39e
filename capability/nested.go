package capability

// Legacy modules and actions always present in a Nested projection.
var (
	LegacyModules = []string{"news", "resources", "activities", "users", "settings"}
	LegacyActions = []string{ActionCreate, ActionRead, ActionUpdate, ActionDelete, ActionPublish}
)

// Nested is the legacy module to action to boolean representation of a
// permission set. It is derived from a Set at the boundary and never
// persisted.
type Nested map[string]map[string]bool

// Has reports whether the nested form grants action on module. An unknown
// module or action yields false.
func (n Nested) Has(module, action string) bool {
	actions, ok := n[module]
	if !ok {
		return false
	}
	return actions[action]
}

// Nest projects a canonical set onto the nested form. Every legacy module
// carries every legacy action, defaulting to false; capabilities outside the
// legacy grid are added as true entries.
func Nest(set Set) Nested {
	n := make(Nested, len(LegacyModules))
	for _, m := range LegacyModules {
		actions := make(map[string]bool, len(LegacyActions))
		for _, a := range LegacyActions {
			actions[a] = false
		}
		n[m] = actions
	}
	for c := range set {
		module, action, err := Parse(c)
		if err != nil {
			continue
		}
		if n[module] == nil {
			n[module] = make(map[string]bool)
		}
		n[module][action] = true
	}
	return n
}

// Transform flattens a nested permission map to its sorted, expanded string
// list. Only true entries count.
func Transform(n Nested) []string {
	var flat []string
	for module, actions := range n {
		for action, granted := range actions {
			if granted {
				flat = append(flat, Format(module, action))
			}
		}
	}
	return Expand(flat).Sorted()
}
