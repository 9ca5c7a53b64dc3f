// Package audithook bridges Thali lifecycle events to an audit trail backend.
//
// It defines a local Recorder interface so the package does not import
// Chronicle directly. Callers inject a RecorderFunc adapter that bridges
// to Chronicle at wiring time.
package audithook

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/xraph/thali/customization"
	"github.com/xraph/thali/plugin"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin                  = (*Extension)(nil)
	_ plugin.OnSubscriptionCreated   = (*Extension)(nil)
	_ plugin.OnCustomizationCreated  = (*Extension)(nil)
	_ plugin.OnCustomizationUpdated  = (*Extension)(nil)
	_ plugin.OnCustomizationRejected = (*Extension)(nil)
	_ plugin.OnRateLimited           = (*Extension)(nil)
	_ plugin.OnPaymentOrderCreated   = (*Extension)(nil)
	_ plugin.OnPaymentVerified       = (*Extension)(nil)
	_ plugin.OnPaymentFailed         = (*Extension)(nil)
	_ plugin.OnLedgerProjected       = (*Extension)(nil)
	_ plugin.OnLedgerSynced          = (*Extension)(nil)
	_ plugin.OnCleanupApplied        = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
// This matches chronicle.Emitter but is defined locally so that the
// audit_hook package does not import Chronicle directly — callers inject
// the concrete *chronicle.Chronicle at wiring time.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is a local representation of an audit event.
// It mirrors chronicle/audit.Event but avoids a module dependency.
type AuditEvent struct {
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	Category   string         `json:"category"`
	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Extension bridges Thali lifecycle events to an audit trail backend.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "audit-hook" }

// ──────────────────────────────────────────────────
// Subscription lifecycle hooks
// ──────────────────────────────────────────────────

// OnSubscriptionCreated implements plugin.OnSubscriptionCreated.
func (e *Extension) OnSubscriptionCreated(ctx context.Context, _ interface{}) error {
	return e.record(ctx, ActionSubscriptionCreated, SeverityInfo, OutcomeSuccess,
		ResourceSubscription, "", CategorySubscription, nil,
		"event", "subscription_created",
	)
}

// ──────────────────────────────────────────────────
// Customization lifecycle hooks
// ──────────────────────────────────────────────────

// OnCustomizationCreated implements plugin.OnCustomizationCreated.
func (e *Extension) OnCustomizationCreated(ctx context.Context, cust interface{}) error {
	id, subID := custIDs(cust)
	return e.record(ctx, ActionCustomizationCreated, SeverityInfo, OutcomeSuccess,
		ResourceCustomization, id, CategoryAdmission, nil,
		"subscription_id", subID,
	)
}

// OnCustomizationUpdated implements plugin.OnCustomizationUpdated.
func (e *Extension) OnCustomizationUpdated(ctx context.Context, _, newCust interface{}) error {
	id, subID := custIDs(newCust)
	return e.record(ctx, ActionCustomizationUpdated, SeverityInfo, OutcomeSuccess,
		ResourceCustomization, id, CategoryAdmission, nil,
		"subscription_id", subID,
	)
}

// OnCustomizationRejected implements plugin.OnCustomizationRejected.
func (e *Extension) OnCustomizationRejected(ctx context.Context, subID, code, message string) error {
	return e.record(ctx, ActionCustomizationRejected, SeverityWarning, OutcomeFailure,
		ResourceCustomization, "", CategoryAdmission, nil,
		"subscription_id", subID,
		"code", code,
		"message", message,
	)
}

// OnRateLimited implements plugin.OnRateLimited.
func (e *Extension) OnRateLimited(ctx context.Context, subID string, recent int64) error {
	return e.record(ctx, ActionRateLimited, SeverityWarning, OutcomeFailure,
		ResourceSubscription, subID, CategoryAdmission, nil,
		"recent_requests", recent,
	)
}

// ──────────────────────────────────────────────────
// Payment lifecycle hooks
// ──────────────────────────────────────────────────

// OnPaymentOrderCreated implements plugin.OnPaymentOrderCreated.
func (e *Extension) OnPaymentOrderCreated(ctx context.Context, cust interface{}, orderID string) error {
	id, subID := custIDs(cust)
	return e.record(ctx, ActionPaymentOrderCreated, SeverityInfo, OutcomeSuccess,
		ResourcePayment, id, CategoryPayment, nil,
		"subscription_id", subID,
		"order_id", orderID,
	)
}

// OnPaymentVerified implements plugin.OnPaymentVerified.
func (e *Extension) OnPaymentVerified(ctx context.Context, cust interface{}, paymentID string) error {
	id, subID := custIDs(cust)
	return e.record(ctx, ActionPaymentVerified, SeverityInfo, OutcomeSuccess,
		ResourcePayment, id, CategoryPayment, nil,
		"subscription_id", subID,
		"payment_id", paymentID,
	)
}

// OnPaymentFailed implements plugin.OnPaymentFailed.
func (e *Extension) OnPaymentFailed(ctx context.Context, cust interface{}, reason string) error {
	id, subID := custIDs(cust)
	return e.record(ctx, ActionPaymentFailed, SeverityCritical, OutcomeFailure,
		ResourcePayment, id, CategoryPayment, nil,
		"subscription_id", subID,
		"failure_reason", reason,
	)
}

// ──────────────────────────────────────────────────
// Ledger lifecycle hooks
// ──────────────────────────────────────────────────

// OnLedgerProjected implements plugin.OnLedgerProjected.
func (e *Extension) OnLedgerProjected(ctx context.Context, subID, custID string, appended bool) error {
	outcome := OutcomeSuccess
	if !appended {
		outcome = OutcomePartial
	}
	return e.record(ctx, ActionLedgerProjected, SeverityInfo, outcome,
		ResourceLedger, subID, CategoryLedger, nil,
		"customization_id", custID,
		"appended", appended,
	)
}

// OnLedgerSynced implements plugin.OnLedgerSynced.
func (e *Extension) OnLedgerSynced(ctx context.Context, subID string, synced int) error {
	return e.record(ctx, ActionLedgerSynced, SeverityInfo, OutcomeSuccess,
		ResourceLedger, subID, CategoryLedger, nil,
		"synced", synced,
	)
}

// ──────────────────────────────────────────────────
// Cleanup lifecycle hooks
// ──────────────────────────────────────────────────

// OnCleanupApplied implements plugin.OnCleanupApplied.
func (e *Extension) OnCleanupApplied(ctx context.Context, repaired int, dryRun bool) error {
	severity := SeverityInfo
	if repaired > 0 {
		severity = SeverityWarning
	}
	return e.record(ctx, ActionCleanupApplied, severity, OutcomeSuccess,
		ResourceLedger, "", CategoryPayment, nil,
		"repaired", repaired,
		"dry_run", dryRun,
	)
}

// ──────────────────────────────────────────────────
// Internal helpers
// ──────────────────────────────────────────────────

// custIDs extracts the customization and subscription IDs when the hook
// payload carries the concrete type.
func custIDs(v interface{}) (custID, subID string) {
	if c, ok := v.(*customization.Customization); ok && c != nil {
		return c.ID.String(), c.SubscriptionID.String()
	}
	return "", ""
}

// record builds and sends an audit event if the action is enabled.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resource, resourceID, category string,
	err error,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var reason string
	if err != nil {
		reason = err.Error()
		meta["error"] = err.Error()
	}

	evt := &AuditEvent{
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}
