package thali

import (
	"context"

	"github.com/xraph/thali/customization"
	"github.com/xraph/thali/id"
	"github.com/xraph/thali/payment"
	"github.com/xraph/thali/subscription"
)

// slotConflicts is the scanner's view of one delivery slot.
type slotConflicts struct {
	// blocking are settled customizations occupying the slot. Admitting a
	// new one would double-charge the meal.
	blocking []*customization.Customization
	// pending are unpaid occupants. They don't block: the customer may be
	// retrying after an abandoned checkout.
	pending []*customization.Customization
	// ledgerPaid are settled customizations found through the subscription's
	// replacement ledger rather than the customization query. Orphaned
	// ledger entries without a settled backer are excluded.
	ledgerPaid []*customization.Customization
	// invalid carries the first payment-state violation found on an existing
	// occupant. New work never stacks on top of a corrupt record.
	invalid *Reject
}

// scanSlot finds active customizations occupying the (date, shift) slot and
// splits them by settlement. Each record's own payment state is validated
// along the way; an inconsistent occupant blocks with its own failure code.
// When a replacement is requested, the subscription's embedded ledger is
// cross-checked for a same (date, shift, replacement) entry backed by a
// settled customization. The scan itself never mutates.
func (e *Engine) scanSlot(ctx context.Context, sub *subscription.Subscription, slot customization.Slot, replacementThaliID id.ThaliID, excludeID id.CustomizationID) (*slotConflicts, error) {
	found, err := e.store.FindConflicting(ctx, customization.ConflictQuery{
		SubscriptionID:     sub.ID,
		Date:               slot.Date,
		Shift:              slot.Shift,
		ReplacementThaliID: replacementThaliID,
		ExcludeID:          excludeID,
	})
	if err != nil {
		return nil, err
	}

	report := &slotConflicts{}
	for _, c := range found {
		if rej := e.auditConflict(sub, c); rej != nil && report.invalid == nil {
			report.invalid = rej
		}

		if c.PaymentStatus.Paid() {
			report.blocking = append(report.blocking, c)
		} else {
			report.pending = append(report.pending, c)
		}
	}

	if !replacementThaliID.IsNil() {
		for _, entry := range sub.FindReplacementSlot(slot.Date, slot.Shift, replacementThaliID) {
			if entry.CustomizationID.String() == excludeID.String() {
				continue
			}
			c, err := e.store.GetCustomization(ctx, entry.CustomizationID)
			if err != nil {
				if IsNotFound(err) {
					// Orphaned ledger entry. It doesn't block; sync repairs it.
					e.logger.Warn("ledger entry references a missing customization",
						"customization_id", entry.CustomizationID,
						"subscription_id", sub.ID,
					)
					continue
				}
				return nil, err
			}
			if c.PaymentStatus.Paid() {
				report.ledgerPaid = append(report.ledgerPaid, c)
			}
		}
	}

	return report, nil
}

// auditConflict validates the payment state of a record the scanner touched
// and logs ledger drift. A violation comes back as a rejection carrying the
// record's own failure code.
func (e *Engine) auditConflict(sub *subscription.Subscription, c *customization.Customization) *Reject {
	if r := payment.ValidateState(c.Pricing.TotalPayable, c.PaymentStatus); !r.Consistent {
		e.logger.Warn("conflict scan found inconsistent payment state",
			"customization_id", c.ID,
			"subscription_id", sub.ID,
			"reason", r.Reason,
			"detail", r.Detail,
		)

		code := r.Reason
		if code == "" {
			code = CodeConflictingPaymentState
		}
		rej := reject(code, "existing customization %s on this slot has an inconsistent payment state", c.ID)
		rej.withContext("existing_customization_id", c.ID.String())
		return rej
	}

	// A settled replacement should already be in the subscription's ledger.
	if c.PaymentStatus.Paid() && !c.ReplacementThaliID.IsNil() {
		if sub.FindReplacement(c.ID) == nil {
			e.logger.Warn("conflict scan found ledger drift",
				"customization_id", c.ID,
				"subscription_id", sub.ID,
			)
		}
	}
	return nil
}
