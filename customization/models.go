// Package customization defines the meal customization record — the primary
// entity of the engine — and its targeting, pricing, and status vocabulary.
package customization

import (
	"fmt"
	"time"

	"github.com/xraph/thali/id"
	"github.com/xraph/thali/subscription"
	"github.com/xraph/thali/types"
)

// Type distinguishes a one-off slot customization from a standing default.
type Type string

const (
	TypeOneTime   Type = "one-time"
	TypePermanent Type = "permanent"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusRejected  Status = "rejected"
	StatusCancelled Status = "cancelled"
)

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentPaid      PaymentStatus = "paid"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
)

// Paid reports whether the payment status represents settled money.
func (p PaymentStatus) Paid() bool {
	return p == PaymentPaid || p == PaymentCompleted
}

// TargetKind tags the targeting variant.
type TargetKind string

const (
	// TargetSingle customizes one (date, shift) slot.
	TargetSingle TargetKind = "single"
	// TargetRange customizes an explicit list of slots.
	TargetRange TargetKind = "range"
	// TargetRecurring applies on every matching shift inside an open-ended
	// window; only valid for permanent customizations.
	TargetRecurring TargetKind = "recurring"
)

// Slot is a single deliverable (date, shift) pair.
type Slot struct {
	Date  time.Time          `json:"date"`
	Shift subscription.Shift `json:"shift"`
}

// Target is the tagged targeting variant. Exactly one of the field groups is
// meaningful, selected by Kind.
type Target struct {
	Kind TargetKind `json:"kind"`

	// Single
	Slot Slot `json:"slot,omitempty"`

	// Range
	Slots []Slot `json:"slots,omitempty"`

	// Recurring
	StartsAt time.Time          `json:"starts_at,omitempty"`
	EndsAt   time.Time          `json:"ends_at,omitempty"` // zero means open-ended
	Shift    subscription.Shift `json:"shift,omitempty"`
}

// Single builds a single-slot target.
func Single(date time.Time, shift subscription.Shift) Target {
	return Target{Kind: TargetSingle, Slot: Slot{Date: date, Shift: shift}}
}

// Range builds a multi-slot target.
func Range(slots []Slot) Target {
	return Target{Kind: TargetRange, Slots: slots}
}

// Recurring builds an open-ended recurring target.
func Recurring(startsAt, endsAt time.Time, shift subscription.Shift) Target {
	return Target{Kind: TargetRecurring, StartsAt: startsAt, EndsAt: endsAt, Shift: shift}
}

// Primary returns the slot that identifies the target for conflict scans:
// the single slot, the first range slot, or the recurring window's start.
func (t Target) Primary() Slot {
	switch t.Kind {
	case TargetSingle:
		return t.Slot
	case TargetRange:
		if len(t.Slots) > 0 {
			return t.Slots[0]
		}
		return Slot{}
	case TargetRecurring:
		return Slot{Date: t.StartsAt, Shift: t.Shift}
	}
	return Slot{}
}

// AllSlots returns every concrete slot the target names. Recurring targets
// contribute only their start slot; their matching slots are unbounded.
func (t Target) AllSlots() []Slot {
	switch t.Kind {
	case TargetSingle:
		return []Slot{t.Slot}
	case TargetRange:
		return t.Slots
	case TargetRecurring:
		return []Slot{{Date: t.StartsAt, Shift: t.Shift}}
	}
	return nil
}

// Validate checks structural soundness of the variant.
func (t Target) Validate() error {
	switch t.Kind {
	case TargetSingle:
		if t.Slot.Date.IsZero() {
			return fmt.Errorf("customization: single target requires a date")
		}
		if t.Slot.Shift != subscription.ShiftMorning && t.Slot.Shift != subscription.ShiftEvening {
			return fmt.Errorf("customization: single target requires shift morning or evening, got %q", t.Slot.Shift)
		}
	case TargetRange:
		if len(t.Slots) == 0 {
			return fmt.Errorf("customization: range target requires at least one slot")
		}
		for i, s := range t.Slots {
			if s.Date.IsZero() {
				return fmt.Errorf("customization: range slot %d missing date", i)
			}
			if s.Shift != subscription.ShiftMorning && s.Shift != subscription.ShiftEvening {
				return fmt.Errorf("customization: range slot %d has invalid shift %q", i, s.Shift)
			}
		}
	case TargetRecurring:
		if t.StartsAt.IsZero() {
			return fmt.Errorf("customization: recurring target requires a start")
		}
		if !t.EndsAt.IsZero() && t.EndsAt.Before(t.StartsAt) {
			return fmt.Errorf("customization: recurring target ends before it starts")
		}
		if t.Shift != subscription.ShiftMorning && t.Shift != subscription.ShiftEvening {
			return fmt.Errorf("customization: recurring target requires shift morning or evening, got %q", t.Shift)
		}
	default:
		return fmt.Errorf("customization: unknown target kind %q", t.Kind)
	}
	return nil
}

// AddOn is a priced add-on requested with the meal.
type AddOn struct {
	Name     string      `json:"name"`
	Price    types.Money `json:"price"`
	Quantity int         `json:"quantity"`
}

// ExtraItem is a catalog extra requested with the meal. Price is resolved
// from the catalog at admission time; any client-supplied value is discarded.
type ExtraItem struct {
	ItemID   id.ExtraItemID `json:"item_id"`
	Quantity int            `json:"quantity"`
	Price    types.Money    `json:"price"`
}

// Pricing holds the derived price breakdown of a customization.
type Pricing struct {
	BasePrice        types.Money `json:"base_price"`
	AddOnPrice       types.Money `json:"addon_price"`
	ExtraItemPrice   types.Money `json:"extra_item_price"`
	ReplacementPrice types.Money `json:"replacement_price"` // signed delta; negative is a credit
	TotalPrice       types.Money `json:"total_price"`       // base+addons+extras, pre-replacement
	TotalPayable     types.Money `json:"total_payable"`     // final amount due
}

// Customization is a validated meal substitution against a subscription.
// Records are soft-deleted via IsActive, never removed.
type Customization struct {
	types.Entity
	ID             id.CustomizationID `json:"id"`
	UserID         id.UserID          `json:"user_id"`
	SubscriptionID id.SubscriptionID  `json:"subscription_id"`
	Type           Type               `json:"type"`
	Target         Target             `json:"target"`

	ReplacementThaliID id.ThaliID  `json:"replacement_thali_id,omitempty"`
	AddOns             []AddOn     `json:"add_ons,omitempty"`
	ExtraItems         []ExtraItem `json:"extra_items,omitempty"`

	DietaryPreference string `json:"dietary_preference,omitempty"`
	SpiceLevel        string `json:"spice_level,omitempty"`
	Preferences       string `json:"preferences,omitempty"`
	Notes             string `json:"notes,omitempty"`

	Pricing       Pricing       `json:"pricing"`
	PaymentStatus PaymentStatus `json:"payment_status"`
	Status        Status        `json:"status"`

	RazorpayOrderID   string `json:"razorpay_order_id,omitempty"`
	RazorpayPaymentID string `json:"razorpay_payment_id,omitempty"`
	RejectionReason   string `json:"rejection_reason,omitempty"`

	IsDefault bool      `json:"is_default"`
	IsActive  bool      `json:"is_active"`
	CreatedBy id.UserID `json:"created_by,omitempty"`
	UpdatedBy id.UserID `json:"updated_by,omitempty"`
}
