package thali

import "github.com/xraph/thali/types"

// Re-export common types for convenience so users don't have to import types package.

// Money is re-exported from types package.
type Money = types.Money

// Entity is re-exported from types package.
type Entity = types.Entity

// Re-export Money constructors
var (
	INR     = types.INR
	Rupees  = types.Rupees
	Zero    = types.Zero
	ZeroINR = types.ZeroINR
	Sum     = types.Sum
)

// Re-export Entity constructors
var (
	NewEntity   = types.NewEntity
	NewEntityAt = types.NewEntityAt
)
