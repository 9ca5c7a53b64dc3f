package thali

import (
	"context"
	"errors"

	"github.com/xraph/thali/customization"
	"github.com/xraph/thali/id"
	"github.com/xraph/thali/pricing"
	"github.com/xraph/thali/subscription"
	"github.com/xraph/thali/types"
	"github.com/xraph/thali/window"
)

// CreateCommand is a request to customize one or more delivery slots.
type CreateCommand struct {
	UserID         id.UserID
	SubscriptionID id.SubscriptionID
	Type           customization.Type
	Target         customization.Target

	ReplacementThaliID id.ThaliID
	AddOns             []customization.AddOn
	ExtraItems         []customization.ExtraItem

	DietaryPreference string
	SpiceLevel        string
	Preferences       string
	Notes             string

	// ConfirmPriceDifference acknowledges a prior PRICE_DIFFERENCE_WARNING
	// soft rejection for the same request.
	ConfirmPriceDifference bool

	// ValidateOnly runs the full pipeline and returns the would-be record
	// without persisting anything.
	ValidateOnly bool
}

// CreateCustomization runs the admission pipeline: ownership, subscription
// state, per-slot shift/conflict/window/skip checks, catalog resolution and
// pricing, same-day payment-state revalidation, then the rate limit. On
// success the record is persisted with a seeded payment status; zero-payable
// records are settled and projected into the subscription ledger immediately.
func (e *Engine) CreateCustomization(ctx context.Context, cmd CreateCommand) (*customization.Customization, error) {
	if err := cmd.Target.Validate(); err != nil {
		return nil, e.deny(ctx, cmd.SubscriptionID, reject(CodeInvalidTarget, "%v", err))
	}
	if cmd.Target.Kind == customization.TargetRecurring && cmd.Type != customization.TypePermanent {
		return nil, e.deny(ctx, cmd.SubscriptionID,
			reject(CodeInvalidTarget, "recurring targets require a permanent customization"))
	}

	sub, err := e.store.GetSubscriptionForUser(ctx, cmd.SubscriptionID, cmd.UserID)
	if err != nil {
		return nil, err
	}
	if sub.Status != subscription.StatusActive {
		return nil, e.deny(ctx, sub.ID,
			reject(CodeSubscriptionNotActive, "subscription is %s", sub.Status))
	}
	if sub.MealPlanID.IsNil() {
		return nil, e.deny(ctx, sub.ID,
			reject(CodeNoMealPlan, "subscription has no meal plan attached"))
	}

	if rej, err := e.validateSlots(ctx, sub, cmd.Target, cmd.ReplacementThaliID, id.Nil); err != nil {
		return nil, err
	} else if rej != nil {
		return nil, e.deny(ctx, sub.ID, rej)
	}

	quote, rej, err := e.price(ctx, sub, cmd.ReplacementThaliID, cmd.AddOns, &cmd.ExtraItems, cmd.ConfirmPriceDifference)
	if err != nil {
		return nil, err
	}
	if rej != nil {
		return nil, e.deny(ctx, sub.ID, rej)
	}

	if rej, err := e.revalidateSameDay(ctx, sub, cmd.Target, id.Nil); err != nil {
		return nil, err
	} else if rej != nil {
		return nil, e.deny(ctx, sub.ID, rej)
	}

	if err := e.checkRateLimit(ctx, sub.ID); err != nil {
		return nil, err
	}

	now := e.now()
	c := &customization.Customization{
		Entity:             types.NewEntityAt(now),
		ID:                 id.NewCustomizationID(),
		UserID:             cmd.UserID,
		SubscriptionID:     sub.ID,
		Type:               cmd.Type,
		Target:             cmd.Target,
		ReplacementThaliID: cmd.ReplacementThaliID,
		AddOns:             cmd.AddOns,
		ExtraItems:         cmd.ExtraItems,
		DietaryPreference:  cmd.DietaryPreference,
		SpiceLevel:         cmd.SpiceLevel,
		Preferences:        cmd.Preferences,
		Notes:              cmd.Notes,
		Pricing:            quote.Pricing,
		PaymentStatus:      quote.SeedPaymentStatus,
		Status:             customization.StatusPending,
		IsDefault:          cmd.Type == customization.TypePermanent,
		IsActive:           true,
		CreatedBy:          cmd.UserID,
	}
	if !quote.Pricing.TotalPayable.IsPositive() {
		// Nothing to collect: settle and confirm in one step.
		c.Status = customization.StatusConfirmed
	}

	if cmd.ValidateOnly {
		return c, nil
	}

	if err := e.store.CreateCustomization(ctx, c); err != nil {
		return nil, err
	}
	if err := e.store.AppendCustomizationRef(ctx, sub.ID, c.ID); err != nil {
		e.logger.Error("failed to append customization ref",
			"customization_id", c.ID,
			"subscription_id", sub.ID,
			"error", err,
		)
	}

	if c.Status == customization.StatusConfirmed {
		if _, err := e.projectReplacement(ctx, sub, c); err != nil {
			e.logger.Error("failed to project auto-settled customization",
				"customization_id", c.ID,
				"error", err,
			)
		}
	}

	e.plugins.EmitCustomizationCreated(ctx, c)
	e.logger.Info("customization admitted",
		"customization_id", c.ID,
		"subscription_id", sub.ID,
		"type", c.Type,
		"payable", c.Pricing.TotalPayable,
		"payment_status", c.PaymentStatus,
	)

	return c, nil
}

// UpdatePatch carries partial edits to a pending customization. Nil fields
// are left untouched. Pricing is recomputed only when the patch touches the
// cart or the replacement; a notes-only edit never repriced anything.
type UpdatePatch struct {
	Target             *customization.Target
	ReplacementThaliID *id.ThaliID
	AddOns             *[]customization.AddOn
	ExtraItems         *[]customization.ExtraItem
	DietaryPreference  *string
	SpiceLevel         *string
	Preferences        *string
	Notes              *string
	Status             *customization.Status
	RejectionReason    *string
	Type               *customization.Type
	SetAsDefault       *bool

	ConfirmPriceDifference bool
}

// repricing reports whether the patch touches a field the price depends on.
func (p UpdatePatch) repricing() bool {
	return p.AddOns != nil || p.ExtraItems != nil || p.ReplacementThaliID != nil
}

// UpdateCustomization edits a pending, unpaid customization and revalidates
// its slots. Pricing is recomputed only when the patch touches the cart or
// the replacement. Confirmed or settled records are immutable.
func (e *Engine) UpdateCustomization(ctx context.Context, custID id.CustomizationID, userID id.UserID, patch UpdatePatch) (*customization.Customization, error) {
	c, err := e.store.GetCustomizationForUser(ctx, custID, userID)
	if err != nil {
		return nil, err
	}
	if !c.IsActive {
		return nil, ErrCustomizationInactive
	}
	if c.Status != customization.StatusPending || c.PaymentStatus.Paid() {
		return nil, e.deny(ctx, c.SubscriptionID,
			reject(CodeImmutableAfterConfirmation, "customization %s is %s and can no longer change", c.ID, c.Status))
	}

	sub, err := e.store.GetSubscription(ctx, c.SubscriptionID)
	if err != nil {
		return nil, err
	}

	before := *c

	if patch.Target != nil {
		if err := patch.Target.Validate(); err != nil {
			return nil, e.deny(ctx, sub.ID, reject(CodeInvalidTarget, "%v", err))
		}
		c.Target = *patch.Target
	}
	if patch.ReplacementThaliID != nil {
		c.ReplacementThaliID = *patch.ReplacementThaliID
	}
	if patch.AddOns != nil {
		c.AddOns = *patch.AddOns
	}
	if patch.ExtraItems != nil {
		c.ExtraItems = *patch.ExtraItems
	}
	if patch.DietaryPreference != nil {
		c.DietaryPreference = *patch.DietaryPreference
	}
	if patch.SpiceLevel != nil {
		c.SpiceLevel = *patch.SpiceLevel
	}
	if patch.Preferences != nil {
		c.Preferences = *patch.Preferences
	}
	if patch.Notes != nil {
		c.Notes = *patch.Notes
	}
	if patch.Status != nil {
		c.Status = *patch.Status
	}
	if patch.RejectionReason != nil {
		c.RejectionReason = *patch.RejectionReason
	}
	if patch.Type != nil {
		c.Type = *patch.Type
	}
	if patch.SetAsDefault != nil {
		c.IsDefault = *patch.SetAsDefault
	}

	if rej, err := e.validateSlots(ctx, sub, c.Target, c.ReplacementThaliID, c.ID); err != nil {
		return nil, err
	} else if rej != nil {
		return nil, e.deny(ctx, sub.ID, rej)
	}

	if patch.repricing() {
		quote, rej, err := e.price(ctx, sub, c.ReplacementThaliID, c.AddOns, &c.ExtraItems, patch.ConfirmPriceDifference)
		if err != nil {
			return nil, err
		}
		if rej != nil {
			return nil, e.deny(ctx, sub.ID, rej)
		}

		c.Pricing = quote.Pricing
		c.PaymentStatus = quote.SeedPaymentStatus
		if !quote.Pricing.TotalPayable.IsPositive() {
			c.Status = customization.StatusConfirmed
		}
	}

	if rej, err := e.revalidateSameDay(ctx, sub, c.Target, c.ID); err != nil {
		return nil, err
	} else if rej != nil {
		return nil, e.deny(ctx, sub.ID, rej)
	}

	c.UpdatedBy = userID
	c.TouchAt(e.now())

	if err := e.store.UpdateCustomization(ctx, c); err != nil {
		return nil, err
	}

	if c.Status == customization.StatusConfirmed {
		if _, err := e.projectReplacement(ctx, sub, c); err != nil {
			e.logger.Error("failed to project auto-settled customization",
				"customization_id", c.ID,
				"error", err,
			)
		}
	}

	e.plugins.EmitCustomizationUpdated(ctx, &before, c)
	return c, nil
}

// DeleteCustomization soft-deletes a customization. The record stays in
// storage for audit; only IsActive flips.
func (e *Engine) DeleteCustomization(ctx context.Context, custID id.CustomizationID, userID id.UserID) error {
	c, err := e.store.GetCustomizationForUser(ctx, custID, userID)
	if err != nil {
		return err
	}
	if !c.IsActive {
		return nil
	}

	if err := e.store.DeactivateCustomization(ctx, custID, userID); err != nil {
		return err
	}

	e.logger.Info("customization deactivated",
		"customization_id", custID,
		"subscription_id", c.SubscriptionID,
	)
	return nil
}

// ──────────────────────────────────────────────────
// Pipeline stages
// ──────────────────────────────────────────────────

func (e *Engine) checkRateLimit(ctx context.Context, subID id.SubscriptionID) error {
	since := e.now().Add(-e.rateLimitWindow)
	recent, err := e.store.CountRecentCustomizations(ctx, subID, since)
	if err != nil {
		return err
	}
	if recent >= e.rateLimitCount {
		e.plugins.EmitRateLimited(ctx, subID.String(), recent)
		r := reject(CodeRateLimitExceeded, "%d customizations created in the last %s", recent, e.rateLimitWindow)
		r.withContext("retry_after", e.rateLimitWindow.String())
		return e.deny(ctx, subID, r)
	}
	return nil
}

// validateSlots checks every concrete slot the target names: shift
// membership, settled duplicates, ordering cutoffs, then skipped meals.
// The first violation wins.
func (e *Engine) validateSlots(ctx context.Context, sub *subscription.Subscription, target customization.Target, replacementThaliID id.ThaliID, excludeID id.CustomizationID) (*Reject, error) {
	now := e.now()
	multiDate := target.Kind != customization.TargetSingle

	for _, slot := range target.AllSlots() {
		if !sub.Allows(slot.Shift) {
			code := CodeInvalidShift
			if multiDate {
				code = CodeInvalidShiftsInDates
			}
			r := reject(code, "subscription does not deliver in the %s shift", slot.Shift)
			r.withContext("allowed_shifts", sub.AllowedShifts())
			return r, nil
		}

		if !replacementThaliID.IsNil() {
			report, err := e.scanSlot(ctx, sub, slot, replacementThaliID, excludeID)
			if err != nil {
				return nil, err
			}
			if report.invalid != nil {
				return report.invalid, nil
			}
			if len(report.blocking) > 0 {
				r := reject(CodeDuplicatePaidReplacement, "slot %s %s already has a settled customization for this replacement",
					slot.Date.Format("2006-01-02"), slot.Shift)
				r.withContext("existing_customization_id", report.blocking[0].ID.String())
				return r, nil
			}
			if len(report.ledgerPaid) > 0 {
				r := reject(CodeDuplicatePaidLedgerEntry, "slot %s %s replacement is already settled in the subscription ledger",
					slot.Date.Format("2006-01-02"), slot.Shift)
				r.withContext("existing_customization_id", report.ledgerPaid[0].ID.String())
				return r, nil
			}
		}

		d := window.Evaluate(slot.Shift, slot.Date, now, e.maxAdvanceDays)
		if !d.Allowed {
			r := reject(string(d.Reason), "slot %s %s is outside the ordering window",
				slot.Date.Format("2006-01-02"), slot.Shift)
			if d.Cutoff != "" {
				r.withContext("cutoff", d.Cutoff)
			}
			if d.MaxAdvanceDays > 0 {
				r.withContext("max_advance_days", d.MaxAdvanceDays)
			}
			return r, nil
		}

		if sub.IsSkipped(slot.Date, slot.Shift) {
			return reject(CodeMealSkipped, "meal on %s %s is skipped",
				slot.Date.Format("2006-01-02"), slot.Shift), nil
		}
	}
	return nil, nil
}

// revalidateSameDay runs after pricing for slots landing today: every
// occupant of the slot is re-checked, not just duplicate replacements, so
// new work never stacks on a record with a corrupt payment state.
func (e *Engine) revalidateSameDay(ctx context.Context, sub *subscription.Subscription, target customization.Target, excludeID id.CustomizationID) (*Reject, error) {
	now := e.now()

	for _, slot := range target.AllSlots() {
		if !subscription.SameDay(slot.Date, now) {
			continue
		}
		broad, err := e.scanSlot(ctx, sub, slot, id.Nil, excludeID)
		if err != nil {
			return nil, err
		}
		if broad.invalid != nil {
			return broad.invalid, nil
		}
	}
	return nil, nil
}

// price resolves catalog references and computes the quote. Extra item
// prices are overwritten from the catalog in place.
func (e *Engine) price(ctx context.Context, sub *subscription.Subscription, replacementThaliID id.ThaliID, addOns []customization.AddOn, extraItems *[]customization.ExtraItem, confirmed bool) (*pricing.Quote, *Reject, error) {
	in := pricing.Inputs{
		BasePrice: sub.BasePricePerMeal,
		AddOns:    addOns,
	}
	if in.BasePrice.IsZero() {
		in.BasePrice = e.basePrice
	}

	if !replacementThaliID.IsNil() {
		t, err := e.store.GetThali(ctx, replacementThaliID)
		if err != nil {
			return nil, nil, err
		}
		if !t.IsReplaceable {
			return nil, reject(CodeThaliNotReplaceable, "thali %q cannot replace a subscribed meal", t.Name), nil
		}
		if !t.IsAvailable {
			return nil, reject(CodeThaliUnavailable, "thali %q is currently unavailable", t.Name), nil
		}
		in.HasReplacement = true
		in.ReplacementPrice = t.Price
	}

	for i := range *extraItems {
		item, err := e.store.GetExtraItem(ctx, (*extraItems)[i].ItemID)
		if err != nil {
			return nil, nil, err
		}
		if !item.IsAvailable {
			return nil, reject(CodeExtraItemUnavailable, "extra item %q is currently unavailable", item.Name), nil
		}
		// Catalog price is authoritative; whatever the client sent is dropped.
		(*extraItems)[i].Price = item.Price
	}
	in.ExtraItems = *extraItems

	quote, err := pricing.Compute(in, e.warningThreshold)
	if err != nil {
		var re *pricing.RuleError
		if errors.As(err, &re) {
			r := reject(string(re.Kind), "%s", re.Message)
			for k, v := range re.Context {
				r.withContext(k, v)
			}
			return nil, r, nil
		}
		return nil, nil, err
	}

	if quote.Warning != nil && !confirmed {
		r := reject(CodePriceDifferenceWarning, "%s", quote.Warning.Message)
		r.RequireConfirmation = true
		r.withContext("saved_amount", quote.Warning.SavedAmount.String())
		return nil, r, nil
	}

	return quote, nil, nil
}

// deny emits the rejection hook and hands the rejection back as the error.
func (e *Engine) deny(ctx context.Context, subID id.SubscriptionID, r *Reject) error {
	e.plugins.EmitCustomizationRejected(ctx, subID.String(), r.Code, r.Message)
	e.logger.Info("customization rejected",
		"subscription_id", subID,
		"code", r.Code,
	)
	return r
}
