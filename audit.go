package thali

import (
	"context"

	"github.com/xraph/thali/customization"
	"github.com/xraph/thali/id"
	"github.com/xraph/thali/payment"
	"github.com/xraph/thali/types"
)

// AuditFinding is one payment-state violation found by an audit pass.
type AuditFinding struct {
	CustomizationID id.CustomizationID
	SubscriptionID  id.SubscriptionID
	Payable         types.Money
	Status          customization.PaymentStatus
	Reason          string
	Detail          string
}

// AuditPaymentStates scans pending customizations in scope for records
// whose payment status contradicts their payable amount. Read-only.
func (e *Engine) AuditPaymentStates(ctx context.Context, scope customization.Scope) ([]AuditFinding, error) {
	pending, err := e.store.ListPendingCustomizations(ctx, scope)
	if err != nil {
		return nil, err
	}

	var findings []AuditFinding
	for _, c := range pending {
		r := payment.ValidateState(c.Pricing.TotalPayable, c.PaymentStatus)
		if r.Consistent {
			continue
		}
		findings = append(findings, AuditFinding{
			CustomizationID: c.ID,
			SubscriptionID:  c.SubscriptionID,
			Payable:         c.Pricing.TotalPayable,
			Status:          c.PaymentStatus,
			Reason:          r.Reason,
			Detail:          r.Detail,
		})
	}

	if len(findings) > 0 {
		e.logger.Warn("payment-state audit found violations",
			"violations", len(findings),
		)
	}
	return findings, nil
}

// CleanupResult reports one cleanup pass.
type CleanupResult struct {
	Findings []AuditFinding
	Repaired int
	DryRun   bool
}

// CleanupPaymentStates repairs records AuditPaymentStates flags. Repaired
// records are promoted to the completed payment status, never paid — the
// customer handed over no money, and "completed" keeps repaired records
// distinguishable from genuine captures. Each repair stamps the record's
// metadata trail via the notes field and confirms the customization.
// With apply false the pass only reports.
func (e *Engine) CleanupPaymentStates(ctx context.Context, scope customization.Scope, apply bool) (*CleanupResult, error) {
	findings, err := e.AuditPaymentStates(ctx, scope)
	if err != nil {
		return nil, err
	}

	result := &CleanupResult{Findings: findings, DryRun: !apply}
	if !apply {
		e.plugins.EmitCleanupApplied(ctx, 0, true)
		return result, nil
	}

	for _, f := range findings {
		c, err := e.store.GetCustomization(ctx, f.CustomizationID)
		if err != nil {
			e.logger.Error("cleanup: failed to load flagged customization",
				"customization_id", f.CustomizationID,
				"error", err,
			)
			continue
		}

		// Re-check under the latest state; the record may have settled or
		// changed since the audit pass.
		if r := payment.ValidateState(c.Pricing.TotalPayable, c.PaymentStatus); r.Consistent {
			continue
		}

		c.PaymentStatus = customization.PaymentCompleted
		c.Status = customization.StatusConfirmed
		stamp := "payment state normalized " + e.now().Format("2006-01-02T15:04:05Z07:00")
		if c.Notes != "" {
			c.Notes += "; "
		}
		c.Notes += stamp
		c.TouchAt(e.now())

		if err := e.store.UpdateCustomization(ctx, c); err != nil {
			e.logger.Error("cleanup: failed to repair customization",
				"customization_id", c.ID,
				"error", err,
			)
			continue
		}
		result.Repaired++

		e.logger.Info("cleanup repaired payment state",
			"customization_id", c.ID,
			"payable", c.Pricing.TotalPayable,
		)
	}

	e.plugins.EmitCleanupApplied(ctx, result.Repaired, false)
	return result, nil
}
