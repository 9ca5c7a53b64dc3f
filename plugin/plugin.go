// Package plugin provides an extensible plugin system for the engine.
// Plugins can hook into various lifecycle events to extend functionality.
package plugin

import (
	"context"
)

// Plugin is the base interface that all plugins must implement.
type Plugin interface {
	Name() string
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called when the plugin is initialized.
type OnInit interface {
	Plugin
	OnInit(ctx context.Context, engine interface{}) error
}

// OnShutdown is called when the plugin is shutting down.
type OnShutdown interface {
	Plugin
	OnShutdown(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// Subscription lifecycle hooks
// ──────────────────────────────────────────────────

// OnSubscriptionCreated is called when a new subscription is registered.
type OnSubscriptionCreated interface {
	Plugin
	OnSubscriptionCreated(ctx context.Context, sub interface{}) error
}

// ──────────────────────────────────────────────────
// Customization lifecycle hooks
// ──────────────────────────────────────────────────

// OnCustomizationCreated is called when a customization is admitted.
type OnCustomizationCreated interface {
	Plugin
	OnCustomizationCreated(ctx context.Context, cust interface{}) error
}

// OnCustomizationUpdated is called when a pending customization is edited.
type OnCustomizationUpdated interface {
	Plugin
	OnCustomizationUpdated(ctx context.Context, oldCust, newCust interface{}) error
}

// OnCustomizationRejected is called when the admission pipeline denies a
// request. The code is the machine-readable rejection code.
type OnCustomizationRejected interface {
	Plugin
	OnCustomizationRejected(ctx context.Context, subID, code, message string) error
}

// OnRateLimited is called when a subscription trips the creation rate limit.
type OnRateLimited interface {
	Plugin
	OnRateLimited(ctx context.Context, subID string, recent int64) error
}

// ──────────────────────────────────────────────────
// Payment hooks
// ──────────────────────────────────────────────────

// OnPaymentOrderCreated is called after a gateway order is placed.
type OnPaymentOrderCreated interface {
	Plugin
	OnPaymentOrderCreated(ctx context.Context, cust interface{}, orderID string) error
}

// OnPaymentVerified is called when a payment proof checks out.
type OnPaymentVerified interface {
	Plugin
	OnPaymentVerified(ctx context.Context, cust interface{}, paymentID string) error
}

// OnPaymentFailed is called when verification fails or a payment is
// recorded as failed.
type OnPaymentFailed interface {
	Plugin
	OnPaymentFailed(ctx context.Context, cust interface{}, reason string) error
}

// ──────────────────────────────────────────────────
// Projection hooks
// ──────────────────────────────────────────────────

// OnLedgerProjected is called when a customization is projected into the
// subscription's replacement ledger.
type OnLedgerProjected interface {
	Plugin
	OnLedgerProjected(ctx context.Context, subID, custID string, appended bool) error
}

// OnLedgerSynced is called when a sync pass over a subscription finishes.
type OnLedgerSynced interface {
	Plugin
	OnLedgerSynced(ctx context.Context, subID string, synced int) error
}

// ──────────────────────────────────────────────────
// Audit hooks
// ──────────────────────────────────────────────────

// OnCleanupApplied is called when the payment-state cleanup repairs records.
type OnCleanupApplied interface {
	Plugin
	OnCleanupApplied(ctx context.Context, repaired int, dryRun bool) error
}
