package customization

import (
	"context"
	"time"

	"github.com/xraph/thali/id"
	"github.com/xraph/thali/subscription"
)

// Store is the customization-facing slice of the storage layer.
type Store interface {
	Create(ctx context.Context, c *Customization) error
	Get(ctx context.Context, custID id.CustomizationID) (*Customization, error)
	// GetForUser enforces ownership: the record must belong to userID.
	GetForUser(ctx context.Context, custID id.CustomizationID, userID id.UserID) (*Customization, error)
	Update(ctx context.Context, c *Customization) error
	// Deactivate soft-deletes the record. Nothing hard-deletes customizations.
	Deactivate(ctx context.Context, custID id.CustomizationID, updatedBy id.UserID) error

	// FindConflicting returns active pending/confirmed customizations that
	// occupy the queried slot, ordered oldest first.
	FindConflicting(ctx context.Context, q ConflictQuery) ([]*Customization, error)
	// ListPending returns pending-status active customizations in scope.
	ListPending(ctx context.Context, scope Scope) ([]*Customization, error)
	// ListReplacements returns active customizations carrying a replacement
	// thali for the subscription, any status except rejected/cancelled.
	ListReplacements(ctx context.Context, subID id.SubscriptionID) ([]*Customization, error)
	// CountRecent counts customizations created for the subscription at or
	// after since. Feeds the rate limiter.
	CountRecent(ctx context.Context, subID id.SubscriptionID, since time.Time) (int64, error)
}

// ConflictQuery selects customizations occupying a (subscription, day, shift)
// slot. ReplacementThaliID narrows to literal duplicates; ExcludeID removes
// the record being updated from its own scan.
type ConflictQuery struct {
	SubscriptionID     id.SubscriptionID
	Date               time.Time
	Shift              subscription.Shift
	ReplacementThaliID id.ThaliID         // optional
	ExcludeID          id.CustomizationID // optional
}

// Scope selects customizations by subscription or by owning user.
// Exactly one of the fields should be set.
type Scope struct {
	SubscriptionID id.SubscriptionID
	UserID         id.UserID
}
