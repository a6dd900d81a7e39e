// Package capability implements the "module:action" capability strings that
// permissions, roles and users are expressed in, together with the
// expansion rules that turn a stored grant list into an effective set.
//
// Everything in this package is pure: no I/O and no shared mutable state
// beyond the lazily built validator.
package capability

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrInvalid is returned for malformed capability strings, module or action
// names, and role names.
var ErrInvalid = errors.New("capability: invalid")

// Action names with special meaning.
const (
	ActionCreate  = "create"
	ActionRead    = "read"
	ActionUpdate  = "update"
	ActionDelete  = "delete"
	ActionPublish = "publish"
	ActionManage  = "manage"
)

// Separator joins module and action.
const Separator = ":"

var (
	capabilityPattern = regexp.MustCompile(`^[a-z]+:[a-z]+$`)
	segmentPattern    = regexp.MustCompile(`^[a-z]+$`)
	roleNamePattern   = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)
)

// Format joins a module and an action into a capability string.
func Format(module, action string) string {
	return module + Separator + action
}

// Parse splits a capability string into module and action.
func Parse(s string) (module, action string, err error) {
	if !capabilityPattern.MatchString(s) {
		return "", "", fmt.Errorf("%w: capability %q must match module:action", ErrInvalid, s)
	}
	module, action, _ = strings.Cut(s, Separator)
	return module, action, nil
}

// Validate reports whether s is a well-formed capability string.
func Validate(s string) error {
	_, _, err := Parse(s)
	return err
}

// ValidateAll validates every element of list and reports the first failure.
func ValidateAll(list []string) error {
	for _, s := range list {
		if err := Validate(s); err != nil {
			return err
		}
	}
	return nil
}

// ValidateSegment validates a module or action name.
func ValidateSegment(kind, s string) error {
	if !segmentPattern.MatchString(s) {
		return fmt.Errorf("%w: %s %q must be lowercase letters only", ErrInvalid, kind, s)
	}
	return nil
}

// ValidateRoleName validates a role name.
func ValidateRoleName(name string) error {
	if !roleNamePattern.MatchString(name) {
		return fmt.Errorf("%w: role name %q must start with a letter or underscore and contain only letters, digits and underscores", ErrInvalid, name)
	}
	return nil
}

// Dedupe removes repeated entries, keeping the first occurrence of each.
// The input slice is not modified.
func Dedupe(list []string) []string {
	if list == nil {
		return nil
	}
	seen := make(map[string]struct{}, len(list))
	out := make([]string, 0, len(list))
	for _, s := range list {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// Replace rewrites every occurrence of from in list to to and dedupes the
// result. The second return value reports whether anything changed.
func Replace(list []string, from, to string) ([]string, bool) {
	changed := false
	out := make([]string, len(list))
	for i, s := range list {
		if s == from {
			s = to
			changed = true
		}
		out[i] = s
	}
	if !changed {
		return list, false
	}
	return Dedupe(out), true
}

// Contains reports whether list holds s verbatim.
func Contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
