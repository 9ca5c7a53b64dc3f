// Package observability provides a metrics extension for Thali that records
// lifecycle event counts via go-utils MetricFactory.
package observability

import (
	"context"

	"github.com/xraph/thali/plugin"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ plugin.Plugin                  = (*MetricsExtension)(nil)
	_ plugin.OnInit                  = (*MetricsExtension)(nil)
	_ plugin.OnSubscriptionCreated   = (*MetricsExtension)(nil)
	_ plugin.OnCustomizationCreated  = (*MetricsExtension)(nil)
	_ plugin.OnCustomizationUpdated  = (*MetricsExtension)(nil)
	_ plugin.OnCustomizationRejected = (*MetricsExtension)(nil)
	_ plugin.OnRateLimited           = (*MetricsExtension)(nil)
	_ plugin.OnPaymentOrderCreated   = (*MetricsExtension)(nil)
	_ plugin.OnPaymentVerified       = (*MetricsExtension)(nil)
	_ plugin.OnPaymentFailed         = (*MetricsExtension)(nil)
	_ plugin.OnLedgerProjected       = (*MetricsExtension)(nil)
	_ plugin.OnLedgerSynced          = (*MetricsExtension)(nil)
	_ plugin.OnCleanupApplied        = (*MetricsExtension)(nil)
)

// Counter interface for metric counters.
type Counter interface {
	Inc()
	Add(float64)
}

// Histogram interface for metric histograms.
type Histogram interface {
	Observe(float64)
}

// MetricFactory creates metrics.
type MetricFactory interface {
	Counter(name string) Counter
	Histogram(name string) Histogram
}

// MetricsExtension records system-wide lifecycle metrics.
// Register it as a Thali plugin to automatically track admission,
// payment and ledger metrics.
type MetricsExtension struct {
	factory MetricFactory

	// Subscription metrics
	SubscriptionCreated Counter

	// Admission metrics
	CustomizationCreated  Counter
	CustomizationUpdated  Counter
	CustomizationRejected Counter
	RateLimited           Counter

	// Payment metrics
	PaymentOrderCreated Counter
	PaymentVerified     Counter
	PaymentFailed       Counter

	// Ledger metrics
	LedgerProjected  Counter
	LedgerDuplicates Counter
	LedgerSyncBatch  Histogram
	CleanupRepaired  Counter
	CleanupBatchSize Histogram

	// Error metrics
	StoreErrors  Counter
	PluginErrors Counter
}

// NewMetricsExtension creates a MetricsExtension with the provided MetricFactory.
// Use app.Metrics() in forge extensions.
func NewMetricsExtension(factory MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		factory: factory,

		// Subscription metrics
		SubscriptionCreated: factory.Counter("thali.subscription.created"),

		// Admission metrics
		CustomizationCreated:  factory.Counter("thali.customization.created"),
		CustomizationUpdated:  factory.Counter("thali.customization.updated"),
		CustomizationRejected: factory.Counter("thali.customization.rejected"),
		RateLimited:           factory.Counter("thali.customization.rate_limited"),

		// Payment metrics
		PaymentOrderCreated: factory.Counter("thali.payment.order.created"),
		PaymentVerified:     factory.Counter("thali.payment.verified"),
		PaymentFailed:       factory.Counter("thali.payment.failed"),

		// Ledger metrics
		LedgerProjected:  factory.Counter("thali.ledger.projected"),
		LedgerDuplicates: factory.Counter("thali.ledger.duplicates"),
		LedgerSyncBatch:  factory.Histogram("thali.ledger.sync.batch_size"),
		CleanupRepaired:  factory.Counter("thali.cleanup.repaired"),
		CleanupBatchSize: factory.Histogram("thali.cleanup.batch_size"),

		// Error metrics
		StoreErrors:  factory.Counter("thali.store.errors"),
		PluginErrors: factory.Counter("thali.plugin.errors"),
	}
}

// Name implements plugin.Plugin.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnInit implements plugin.OnInit.
func (m *MetricsExtension) OnInit(_ context.Context, _ interface{}) error {
	// No initialization needed
	return nil
}

// ──────────────────────────────────────────────────
// Subscription lifecycle hooks
// ──────────────────────────────────────────────────

// OnSubscriptionCreated implements plugin.OnSubscriptionCreated.
func (m *MetricsExtension) OnSubscriptionCreated(_ context.Context, _ interface{}) error {
	m.SubscriptionCreated.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Admission lifecycle hooks
// ──────────────────────────────────────────────────

// OnCustomizationCreated implements plugin.OnCustomizationCreated.
func (m *MetricsExtension) OnCustomizationCreated(_ context.Context, _ interface{}) error {
	m.CustomizationCreated.Inc()
	return nil
}

// OnCustomizationUpdated implements plugin.OnCustomizationUpdated.
func (m *MetricsExtension) OnCustomizationUpdated(_ context.Context, _, _ interface{}) error {
	m.CustomizationUpdated.Inc()
	return nil
}

// OnCustomizationRejected implements plugin.OnCustomizationRejected.
func (m *MetricsExtension) OnCustomizationRejected(_ context.Context, _, _, _ string) error {
	m.CustomizationRejected.Inc()
	return nil
}

// OnRateLimited implements plugin.OnRateLimited.
func (m *MetricsExtension) OnRateLimited(_ context.Context, _ string, _ int64) error {
	m.RateLimited.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Payment lifecycle hooks
// ──────────────────────────────────────────────────

// OnPaymentOrderCreated implements plugin.OnPaymentOrderCreated.
func (m *MetricsExtension) OnPaymentOrderCreated(_ context.Context, _ interface{}, _ string) error {
	m.PaymentOrderCreated.Inc()
	return nil
}

// OnPaymentVerified implements plugin.OnPaymentVerified.
func (m *MetricsExtension) OnPaymentVerified(_ context.Context, _ interface{}, _ string) error {
	m.PaymentVerified.Inc()
	return nil
}

// OnPaymentFailed implements plugin.OnPaymentFailed.
func (m *MetricsExtension) OnPaymentFailed(_ context.Context, _ interface{}, _ string) error {
	m.PaymentFailed.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Ledger lifecycle hooks
// ──────────────────────────────────────────────────

// OnLedgerProjected implements plugin.OnLedgerProjected.
func (m *MetricsExtension) OnLedgerProjected(_ context.Context, _, _ string, appended bool) error {
	if appended {
		m.LedgerProjected.Inc()
	} else {
		m.LedgerDuplicates.Inc()
	}
	return nil
}

// OnLedgerSynced implements plugin.OnLedgerSynced.
func (m *MetricsExtension) OnLedgerSynced(_ context.Context, _ string, synced int) error {
	m.LedgerSyncBatch.Observe(float64(synced))
	return nil
}

// ──────────────────────────────────────────────────
// Audit lifecycle hooks
// ──────────────────────────────────────────────────

// OnCleanupApplied implements plugin.OnCleanupApplied.
func (m *MetricsExtension) OnCleanupApplied(_ context.Context, repaired int, dryRun bool) error {
	if dryRun {
		return nil
	}
	m.CleanupRepaired.Add(float64(repaired))
	m.CleanupBatchSize.Observe(float64(repaired))
	return nil
}
