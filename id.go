package thali

import "github.com/xraph/thali/id"

// ID is the primary identifier type for all Thali entities.
type ID = id.ID

// Prefix identifies the entity type encoded in a TypeID.
type Prefix = id.Prefix
