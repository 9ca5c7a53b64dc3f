package subscription

import (
	"context"

	"github.com/xraph/thali/id"
)

// Store is the subscription-facing slice of the storage layer.
type Store interface {
	Create(ctx context.Context, s *Subscription) error
	Get(ctx context.Context, subID id.SubscriptionID) (*Subscription, error)
	// GetForUser enforces ownership: the subscription must belong to userID.
	GetForUser(ctx context.Context, subID id.SubscriptionID, userID id.UserID) (*Subscription, error)
	ListForUser(ctx context.Context, userID id.UserID, opts ListOpts) ([]*Subscription, error)
	Update(ctx context.Context, s *Subscription) error

	// AppendCustomizationRef records a customization in the subscription's
	// lightweight tracking list. Best-effort; the customization record is
	// the system of record.
	AppendCustomizationRef(ctx context.Context, subID id.SubscriptionID, custID id.CustomizationID) error

	// UpsertReplacementEntry appends entry to the replacement ledger only if
	// no entry with the same CustomizationID exists. Returns true when a row
	// was appended. The write bypasses full-document validation because the
	// ledger may hold legacy partial entries.
	UpsertReplacementEntry(ctx context.Context, subID id.SubscriptionID, entry ReplacementEntry) (bool, error)

	// SetDefaultReplacement overwrites the subscription's permanent default
	// replacement. Last writer wins.
	SetDefaultReplacement(ctx context.Context, subID id.SubscriptionID, entry ReplacementEntry) error
}

type ListOpts struct {
	Status Status
	Limit  int
	Offset int
}
