package capability

import (
	"sort"
	"strings"
)

// crud lists the actions a module:manage grant implies.
var crud = []string{ActionCreate, ActionRead, ActionUpdate, ActionDelete}

// aliases maps a capability to extra capabilities it grants outright.
var aliases = map[string][]string{
	"settings:update": {"system:setting"},
}

// Set is a canonical, expanded permission set.
type Set map[string]struct{}

// Has reports whether the set holds capability c.
func (s Set) Has(c string) bool {
	_, ok := s[c]
	return ok
}

// Sorted returns the set members in lexical order.
func (s Set) Sorted() []string {
	out := make([]string, 0, len(s))
	for c := range s {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// Expand builds the effective permission set for the given grant lists.
//
// The result is closed under the expansion rules: module:manage brings in
// create, read, update and delete on the same module, and settings:update
// brings in system:setting. A settings:manage grant therefore also yields
// system:setting. Malformed entries are kept verbatim and never expanded.
func Expand(lists ...[]string) Set {
	set := make(Set)
	var queue []string
	for _, list := range lists {
		queue = append(queue, list...)
	}
	for len(queue) > 0 {
		c := queue[0]
		queue = queue[1:]
		if set.Has(c) {
			continue
		}
		set[c] = struct{}{}
		queue = append(queue, implied(c)...)
	}
	return set
}

func implied(c string) []string {
	out := aliases[c]
	module, action, ok := strings.Cut(c, Separator)
	if !ok || action != ActionManage || !segmentPattern.MatchString(module) {
		return out
	}
	for _, a := range crud {
		out = append(out, Format(module, a))
	}
	return out
}

// Implies reports whether holding grant is enough for required, either
// because they are equal or because an expansion rule derives required
// from grant.
func Implies(grant, required string) bool {
	if grant == required {
		return true
	}
	return Expand([]string{grant}).Has(required)
}

// Allows reports whether the expanded set grants required. Malformed
// required strings are never granted.
func Allows(set Set, required string) bool {
	if Validate(required) != nil {
		return false
	}
	return set.Has(required)
}
