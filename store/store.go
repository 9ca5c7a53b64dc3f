package store

import (
	"context"
	"time"

	"github.com/xraph/thali/catalog"
	"github.com/xraph/thali/customization"
	"github.com/xraph/thali/id"
	"github.com/xraph/thali/subscription"
)

// Store is the unified storage interface for all engine entities.
// Instead of embedding the sub-interfaces, we explicitly declare all methods
// to avoid naming conflicts.
type Store interface {
	// Subscription methods
	CreateSubscription(ctx context.Context, s *subscription.Subscription) error
	GetSubscription(ctx context.Context, subID id.SubscriptionID) (*subscription.Subscription, error)
	GetSubscriptionForUser(ctx context.Context, subID id.SubscriptionID, userID id.UserID) (*subscription.Subscription, error)
	ListSubscriptionsForUser(ctx context.Context, userID id.UserID, opts subscription.ListOpts) ([]*subscription.Subscription, error)
	UpdateSubscription(ctx context.Context, s *subscription.Subscription) error
	AppendCustomizationRef(ctx context.Context, subID id.SubscriptionID, custID id.CustomizationID) error
	// UpsertReplacementEntry appends the entry to the subscription's embedded
	// replacement ledger only if no entry with its customization ID exists.
	// It bypasses subscription-level validation and returns whether a write
	// happened.
	UpsertReplacementEntry(ctx context.Context, subID id.SubscriptionID, entry *subscription.ReplacementEntry) (bool, error)
	SetDefaultReplacement(ctx context.Context, subID id.SubscriptionID, entry *subscription.ReplacementEntry) error

	// Catalog methods
	CreateThali(ctx context.Context, t *catalog.Thali) error
	GetThali(ctx context.Context, thaliID id.ThaliID) (*catalog.Thali, error)
	ListThalis(ctx context.Context, opts catalog.ListOpts) ([]*catalog.Thali, error)
	CreateExtraItem(ctx context.Context, item *catalog.ExtraItem) error
	GetExtraItem(ctx context.Context, itemID id.ExtraItemID) (*catalog.ExtraItem, error)

	// Customization methods
	CreateCustomization(ctx context.Context, c *customization.Customization) error
	GetCustomization(ctx context.Context, custID id.CustomizationID) (*customization.Customization, error)
	GetCustomizationForUser(ctx context.Context, custID id.CustomizationID, userID id.UserID) (*customization.Customization, error)
	UpdateCustomization(ctx context.Context, c *customization.Customization) error
	DeactivateCustomization(ctx context.Context, custID id.CustomizationID, updatedBy id.UserID) error
	FindConflicting(ctx context.Context, q customization.ConflictQuery) ([]*customization.Customization, error)
	ListPendingCustomizations(ctx context.Context, scope customization.Scope) ([]*customization.Customization, error)
	ListReplacementCustomizations(ctx context.Context, subID id.SubscriptionID) ([]*customization.Customization, error)
	CountRecentCustomizations(ctx context.Context, subID id.SubscriptionID, since time.Time) (int64, error)

	// Core methods
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
