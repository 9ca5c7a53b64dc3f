package thali

import (
	"context"

	"github.com/xraph/thali/customization"
	"github.com/xraph/thali/id"
	"github.com/xraph/thali/subscription"
)

// projectReplacement writes a settled customization into the subscription's
// embedded replacement ledger. The keyed upsert makes double-projection a
// no-op, so callers retry freely. Permanent customizations additionally
// become the subscription's default replacement.
func (e *Engine) projectReplacement(ctx context.Context, sub *subscription.Subscription, c *customization.Customization) (bool, error) {
	if c.ReplacementThaliID.IsNil() {
		// Nothing to mirror: add-on-only customizations never touch the ledger.
		return false, nil
	}

	entry := e.buildLedgerEntry(sub, c)

	appended, err := e.store.UpsertReplacementEntry(ctx, sub.ID, entry)
	if err != nil {
		return false, err
	}

	if c.Type == customization.TypePermanent {
		if err := e.store.SetDefaultReplacement(ctx, sub.ID, entry); err != nil {
			return appended, err
		}
	}

	e.plugins.EmitLedgerProjected(ctx, sub.ID.String(), c.ID.String(), appended)
	if appended {
		e.logger.Info("replacement projected into subscription ledger",
			"customization_id", c.ID,
			"subscription_id", sub.ID,
			"is_default", c.Type == customization.TypePermanent,
		)
	}
	return appended, nil
}

func (e *Engine) buildLedgerEntry(sub *subscription.Subscription, c *customization.Customization) *subscription.ReplacementEntry {
	addOns := make([]subscription.AddOn, len(c.AddOns))
	for i, a := range c.AddOns {
		addOns[i] = subscription.AddOn{Name: a.Name, Price: a.Price, Quantity: a.Quantity}
	}

	primary := c.Target.Primary()
	return &subscription.ReplacementEntry{
		OriginalThaliID:    sub.DefaultThaliID,
		ReplacementThaliID: c.ReplacementThaliID,
		PriceDifference:    c.Pricing.ReplacementPrice,
		CustomizationID:    c.ID,
		CustomizationType:  string(c.Type),
		AddOns:             addOns,
		AddOnsTotal:        c.Pricing.AddOnPrice,
		Date:               primary.Date,
		Shift:              primary.Shift,
		IsDefault:          c.Type == customization.TypePermanent,
		ReplacedAt:         e.now(),
	}
}

// SyncResult reports one ledger reconciliation pass.
type SyncResult struct {
	SubscriptionID id.SubscriptionID
	// Checked is how many settled replacement customizations were examined.
	Checked int
	// Synced is how many missing ledger entries were appended.
	Synced int
	// Errors holds per-record failures; the pass continues past them.
	Errors []string
}

// SyncLedger reconciles a subscription's replacement ledger against its
// settled customizations, appending any entries that projection missed.
// Existing entries are never rewritten.
func (e *Engine) SyncLedger(ctx context.Context, subID id.SubscriptionID) (*SyncResult, error) {
	sub, err := e.store.GetSubscription(ctx, subID)
	if err != nil {
		return nil, err
	}

	settled, err := e.store.ListReplacementCustomizations(ctx, subID)
	if err != nil {
		return nil, err
	}

	result := &SyncResult{SubscriptionID: subID}
	for _, c := range settled {
		if !c.PaymentStatus.Paid() {
			continue
		}
		result.Checked++

		if sub.FindReplacement(c.ID) != nil {
			continue
		}

		appended, err := e.projectReplacement(ctx, sub, c)
		if err != nil {
			result.Errors = append(result.Errors, c.ID.String()+": "+err.Error())
			continue
		}
		if appended {
			result.Synced++
			// Keep the in-memory view current so later records see the entry.
			sub.ThaliReplacements = append(sub.ThaliReplacements, *e.buildLedgerEntry(sub, c))
		}
	}

	e.plugins.EmitLedgerSynced(ctx, subID.String(), result.Synced)
	if result.Synced > 0 || len(result.Errors) > 0 {
		e.logger.Info("subscription ledger synced",
			"subscription_id", subID,
			"checked", result.Checked,
			"synced", result.Synced,
			"errors", len(result.Errors),
		)
	}
	return result, nil
}
