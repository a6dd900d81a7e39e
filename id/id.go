// Package id provides the identifiers of permissions, roles and users.
//
// An ID is a TypeID: a kind prefix followed by a UUIDv7 suffix, so ids sort
// by creation time and a permission id can never be mistaken for a role id.
package id

import (
	"database/sql/driver"
	"errors"
	"fmt"

	"go.jetify.com/typeid/v2"
)

// Kind is the entity prefix carried by an ID.
type Kind string

const (
	KindPermission Kind = "perm"
	KindRole       Kind = "role"
	KindUser       Kind = "user"
)

// ErrEmpty is returned when parsing an empty string.
var ErrEmpty = errors.New("id: empty")

// ID identifies one stored entity. The zero value is Nil and stores as NULL.
//
//nolint:recvcheck // UnmarshalText and Scan need pointer receivers.
type ID struct {
	tid typeid.TypeID
	set bool
}

// Nil is the unset ID.
var Nil ID

// PermissionID, RoleID and UserID document which kind a field holds.
type (
	PermissionID = ID
	RoleID       = ID
	UserID       = ID
)

func generate(k Kind) ID {
	tid, err := typeid.Generate(string(k))
	if err != nil {
		panic(fmt.Sprintf("id: generate %s: %v", k, err))
	}
	return ID{tid: tid, set: true}
}

func NewPermissionID() ID { return generate(KindPermission) }
func NewRoleID() ID       { return generate(KindRole) }
func NewUserID() ID       { return generate(KindUser) }

// Parse reads any aegis id.
func Parse(s string) (ID, error) {
	if s == "" {
		return Nil, ErrEmpty
	}
	tid, err := typeid.Parse(s)
	if err != nil {
		return Nil, fmt.Errorf("id: %q: %w", s, err)
	}
	return ID{tid: tid, set: true}, nil
}

// ParseKind reads s and rejects ids of another kind.
func ParseKind(s string, want Kind) (ID, error) {
	v, err := Parse(s)
	if err != nil {
		return Nil, err
	}
	if got := v.Kind(); got != want {
		return Nil, fmt.Errorf("id: %q is a %s id, want %s", s, got, want)
	}
	return v, nil
}

func ParsePermissionID(s string) (ID, error) { return ParseKind(s, KindPermission) }
func ParseRoleID(s string) (ID, error)       { return ParseKind(s, KindRole) }
func ParseUserID(s string) (ID, error)       { return ParseKind(s, KindUser) }

// IsNil reports whether the id is unset.
func (i ID) IsNil() bool { return !i.set }

// Kind returns the entity prefix, or "" for Nil.
func (i ID) Kind() Kind {
	if !i.set {
		return ""
	}
	return Kind(i.tid.Prefix())
}

func (i ID) String() string {
	if !i.set {
		return ""
	}
	return i.tid.String()
}

func (i ID) MarshalText() ([]byte, error) { return []byte(i.String()), nil }

func (i *ID) UnmarshalText(b []byte) error {
	return i.assign(string(b))
}

// Value stores Nil as NULL.
func (i ID) Value() (driver.Value, error) {
	if !i.set {
		return nil, nil //nolint:nilnil // NULL column
	}
	return i.tid.String(), nil
}

func (i *ID) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*i = Nil
		return nil
	case string:
		return i.assign(v)
	case []byte:
		return i.assign(string(v))
	default:
		return fmt.Errorf("id: cannot scan %T", src)
	}
}

func (i *ID) assign(s string) error {
	if s == "" {
		*i = Nil
		return nil
	}
	v, err := Parse(s)
	if err != nil {
		return err
	}
	*i = v
	return nil
}
