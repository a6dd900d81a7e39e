package aegis

import "github.com/xraph/aegis/id"

// ID identifies a permission, role or user.
type ID = id.ID

// IDKind is the entity prefix of an ID.
type IDKind = id.Kind
