// Package payment defines the gateway abstraction the engine collects
// customization charges through, plus the payment-state consistency rules.
package payment

import (
	"context"

	"github.com/xraph/thali/types"
)

// Order is a gateway-side payment order awaiting capture.
type Order struct {
	ID      string
	Amount  types.Money
	Receipt string
	Status  string
	Notes   map[string]string
}

// Proof is what a client presents after completing a checkout.
type Proof struct {
	OrderID   string
	PaymentID string
	Signature string
}

// Gateway creates payment orders and verifies completion proofs. Drivers
// wrap a concrete provider; the in-repo driver wraps Razorpay.
type Gateway interface {
	CreateOrder(ctx context.Context, amount types.Money, receipt string, notes map[string]string) (*Order, error)
	// VerifySignature reports whether the proof's signature is authentic
	// for its order and payment pair.
	VerifySignature(proof Proof) bool
}
