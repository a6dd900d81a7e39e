package aegis

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds. Every error returned by the engine matches exactly one of
// them with errors.Is; transports map them to status codes.
var (
	// ErrBadRequest marks malformed input and forbidden operations on
	// system records.
	ErrBadRequest = errors.New("aegis: bad request")

	// ErrNotFound marks ids or names that do not resolve to a live record.
	ErrNotFound = errors.New("aegis: not found")

	// ErrConflict marks uniqueness collisions and deletes blocked by
	// references.
	ErrConflict = errors.New("aegis: conflict")

	// ErrAccessDenied is returned by Enforce when a check is denied.
	ErrAccessDenied = errors.New("aegis: access denied")
)

// kindError is a fixed message that unwraps to one of the kinds above.
type kindError struct {
	kind error
	msg  string
}

func (e *kindError) Error() string { return e.msg }
func (e *kindError) Unwrap() error { return e.kind }

func newError(kind error, msg string) error { return &kindError{kind: kind, msg: msg} }

var (
	ErrPermissionNotFound = newError(ErrNotFound, "aegis: permission not found")
	ErrRoleNotFound       = newError(ErrNotFound, "aegis: role not found")
	ErrUserNotFound       = newError(ErrNotFound, "aegis: user not found")

	ErrPermissionExists = newError(ErrConflict, "aegis: permission already exists")
	ErrRoleExists       = newError(ErrConflict, "aegis: role already exists")
	ErrUserExists       = newError(ErrConflict, "aegis: username already taken")

	ErrSystemPermissionImmutable = newError(ErrBadRequest, "aegis: system permission name, module and action cannot be changed")
	ErrSystemPermissionDelete    = newError(ErrBadRequest, "aegis: system permission cannot be deleted")
	ErrSystemRoleImmutable       = newError(ErrBadRequest, "aegis: system role cannot be renamed")
	ErrSystemRoleDelete          = newError(ErrBadRequest, "aegis: system role cannot be deleted")
	ErrSystemRoleDeactivate      = newError(ErrBadRequest, "aegis: system role cannot be deactivated")
	ErrReservedRoleName          = newError(ErrBadRequest, "aegis: role name is reserved for a system role")
	ErrUnknownRole               = newError(ErrBadRequest, "aegis: role does not exist")
	ErrNameMismatch              = newError(ErrBadRequest, "aegis: permission name must equal module:action")
	ErrEmptyBatch                = newError(ErrBadRequest, "aegis: no ids given")
	ErrBatchTooLarge             = newError(ErrBadRequest, "aegis: batch exceeds the configured maximum")
)

// invalid wraps a validation failure as a bad request.
func invalid(err error) error {
	return fmt.Errorf("%w: %w", ErrBadRequest, err)
}

// ReferenceError reports a delete blocked because live roles or users still
// reference the target. It matches ErrConflict.
type ReferenceError struct {
	Entity string
	Names  []string
	Roles  int64
	Users  int64
}

func (e *ReferenceError) Error() string {
	var parts []string
	if e.Roles > 0 {
		parts = append(parts, fmt.Sprintf("%d roles", e.Roles))
	}
	if e.Users > 0 {
		parts = append(parts, fmt.Sprintf("%d users", e.Users))
	}
	return fmt.Sprintf("aegis: %s %s is still referenced by %s",
		e.Entity, strings.Join(e.Names, ", "), strings.Join(parts, " and "))
}

// Unwrap lets errors.Is match ErrConflict.
func (e *ReferenceError) Unwrap() error { return ErrConflict }
