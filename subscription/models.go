// Package subscription defines the meal subscription aggregate: delivery
// shifts, skipped meals, and the embedded thali replacement ledger that the
// engine projects accepted customizations into.
package subscription

import (
	"time"

	"github.com/xraph/thali/id"
	"github.com/xraph/thali/types"
)

type Status string

const (
	StatusPendingPayment Status = "pending_payment"
	StatusActive         Status = "active"
	StatusPaused         Status = "paused"
	StatusCancelled      Status = "cancelled"
	StatusExpired        Status = "expired"
)

// Shift is a named delivery window.
type Shift string

const (
	ShiftMorning Shift = "morning"
	ShiftEvening Shift = "evening"
	// ShiftBoth is only valid on a subscription, never on a single delivery slot.
	ShiftBoth Shift = "both"
)

// DeliveryTiming holds the per-shift enabled flags.
type DeliveryTiming struct {
	Morning bool `json:"morning"`
	Evening bool `json:"evening"`
}

// SkippedMeal marks a (date, shift) slot the customer opted out of.
// A skipped slot can never carry a customization.
type SkippedMeal struct {
	Date  time.Time `json:"date"`
	Shift Shift     `json:"shift"`
}

// AddOn is a priced extra recorded inside a ledger entry.
type AddOn struct {
	Name     string      `json:"name"`
	Price    types.Money `json:"price"`
	Quantity int         `json:"quantity"`
}

// ReplacementEntry is one row of the subscription's replacement ledger.
// Entries are keyed by CustomizationID; the ledger is append-only and
// repaired by the engine's sync operation when it drifts.
type ReplacementEntry struct {
	OriginalThaliID    id.ThaliID         `json:"original_thali_id"`
	ReplacementThaliID id.ThaliID         `json:"replacement_thali_id"`
	PriceDifference    types.Money        `json:"price_difference"`
	CustomizationID    id.CustomizationID `json:"customization_id"`
	CustomizationType  string             `json:"customization_type"`
	AddOns             []AddOn            `json:"add_ons,omitempty"`
	AddOnsTotal        types.Money        `json:"add_ons_total"`
	Date               time.Time          `json:"date"`
	Shift              Shift              `json:"shift"`
	IsDefault          bool               `json:"is_default"`
	ReplacedAt         time.Time          `json:"replaced_at"`
}

// Subscription is the parent aggregate a customization validates against.
// The engine reads it, never creates it from user input; replacement ledger
// mutations go through the store's keyed upsert so retries stay idempotent.
type Subscription struct {
	types.Entity
	ID               id.SubscriptionID `json:"id"`
	UserID           id.UserID         `json:"user_id"`
	MealPlanID       id.MealPlanID     `json:"meal_plan_id"`
	Status           Status            `json:"status"`
	Shift            Shift             `json:"shift,omitempty"`
	StartDate        time.Time         `json:"start_date"`
	EndDate          time.Time         `json:"end_date,omitempty"`
	DefaultThaliID   id.ThaliID        `json:"default_thali_id,omitempty"`
	BasePricePerMeal types.Money       `json:"base_price_per_meal"`
	DeliveryTiming   DeliveryTiming    `json:"delivery_timing"`
	DeliveryDays     []time.Weekday    `json:"delivery_days,omitempty"`
	// MealPlanShifts is denormalized from the plan document so the allowed
	// shift derivation has a fallback without another store round-trip.
	MealPlanShifts []Shift `json:"meal_plan_shifts,omitempty"`

	SkippedMeals       []SkippedMeal        `json:"skipped_meals,omitempty"`
	ThaliReplacements  []ReplacementEntry   `json:"thali_replacements,omitempty"`
	DefaultReplacement *ReplacementEntry    `json:"thali_replacement,omitempty"`
	CustomizationRefs  []id.CustomizationID `json:"customization_refs,omitempty"`

	Metadata map[string]string `json:"metadata,omitempty"`
}

// AllowedShifts derives the set of shifts a customization may target:
// the explicit subscription shift wins, then the delivery timing flags,
// then the meal plan's shifts.
func (s *Subscription) AllowedShifts() []Shift {
	switch s.Shift {
	case ShiftBoth:
		return []Shift{ShiftMorning, ShiftEvening}
	case ShiftMorning, ShiftEvening:
		return []Shift{s.Shift}
	}

	var shifts []Shift
	if s.DeliveryTiming.Morning {
		shifts = append(shifts, ShiftMorning)
	}
	if s.DeliveryTiming.Evening {
		shifts = append(shifts, ShiftEvening)
	}
	if len(shifts) > 0 {
		return shifts
	}

	return s.MealPlanShifts
}

// Allows reports whether the given shift is in the subscription's allowed set.
func (s *Subscription) Allows(shift Shift) bool {
	for _, a := range s.AllowedShifts() {
		if a == shift {
			return true
		}
	}
	return false
}

// IsSkipped reports whether the (date, shift) slot is in the skipped meals.
// Dates compare by calendar day.
func (s *Subscription) IsSkipped(date time.Time, shift Shift) bool {
	for _, sk := range s.SkippedMeals {
		if sk.Shift == shift && SameDay(sk.Date, date) {
			return true
		}
	}
	return false
}

// FindReplacement returns the ledger entry keyed by the customization ID,
// or nil when absent.
func (s *Subscription) FindReplacement(custID id.CustomizationID) *ReplacementEntry {
	for i := range s.ThaliReplacements {
		if s.ThaliReplacements[i].CustomizationID.String() == custID.String() {
			return &s.ThaliReplacements[i]
		}
	}
	return nil
}

// FindReplacementSlot returns ledger entries for a (date, shift, thali) triple.
func (s *Subscription) FindReplacementSlot(date time.Time, shift Shift, thaliID id.ThaliID) []ReplacementEntry {
	var matches []ReplacementEntry
	for _, r := range s.ThaliReplacements {
		if r.Shift == shift && SameDay(r.Date, date) && r.ReplacementThaliID.String() == thaliID.String() {
			matches = append(matches, r)
		}
	}
	return matches
}

// SameDay reports whether two times fall on the same calendar day
// in the first time's location.
func SameDay(a, b time.Time) bool {
	y1, m1, d1 := a.Date()
	y2, m2, d2 := b.In(a.Location()).Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}
