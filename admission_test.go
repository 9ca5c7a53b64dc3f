package thali_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/xraph/thali"
	"github.com/xraph/thali/catalog"
	"github.com/xraph/thali/customization"
	"github.com/xraph/thali/id"
	"github.com/xraph/thali/payment"
	"github.com/xraph/thali/pricing"
	"github.com/xraph/thali/subscription"
	"github.com/xraph/thali/types"
)

func TestCreateCustomizationAdmits(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	c, err := f.engine.CreateCustomization(ctx, thali.CreateCommand{
		UserID:             f.userID,
		SubscriptionID:     f.sub.ID,
		Type:               customization.TypeOneTime,
		Target:             customization.Single(tomorrow(), subscription.ShiftMorning),
		ReplacementThaliID: f.premium.ID,
		AddOns: []customization.AddOn{
			{Name: "Extra Roti", Price: types.Rupees(20), Quantity: 1},
		},
		ExtraItems: []customization.ExtraItem{
			{ItemID: f.gulab.ID, Quantity: 1},
		},
	})
	if err != nil {
		t.Fatalf("CreateCustomization: %v", err)
	}

	// ₹20 add-ons + ₹30 extras + ₹50 replacement delta.
	if want := types.Rupees(100); !c.Pricing.TotalPayable.Equal(want) {
		t.Errorf("TotalPayable = %s, want %s", c.Pricing.TotalPayable, want)
	}
	if c.Status != customization.StatusPending {
		t.Errorf("Status = %s, want pending", c.Status)
	}
	if c.PaymentStatus != customization.PaymentPending {
		t.Errorf("PaymentStatus = %s, want pending", c.PaymentStatus)
	}
	if !c.IsActive {
		t.Error("admitted customization should be active")
	}
	// Extra item price must come from the catalog, not the client.
	if !c.ExtraItems[0].Price.Equal(f.gulab.Price) {
		t.Errorf("extra item price = %s, want catalog price %s", c.ExtraItems[0].Price, f.gulab.Price)
	}

	got, err := f.engine.GetCustomization(ctx, c.ID)
	if err != nil {
		t.Fatalf("GetCustomization: %v", err)
	}
	if got.ID != c.ID {
		t.Errorf("persisted ID = %s, want %s", got.ID, c.ID)
	}
}

func TestCreateCustomizationZeroPayableSettles(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Same-priced replacement, no add-ons: nothing payable.
	c, err := f.engine.CreateCustomization(ctx, thali.CreateCommand{
		UserID:             f.userID,
		SubscriptionID:     f.sub.ID,
		Type:               customization.TypeOneTime,
		Target:             customization.Single(tomorrow(), subscription.ShiftMorning),
		ReplacementThaliID: f.standard.ID,
	})
	if err != nil {
		t.Fatalf("CreateCustomization: %v", err)
	}

	if !c.Pricing.TotalPayable.IsZero() {
		t.Fatalf("TotalPayable = %s, want zero", c.Pricing.TotalPayable)
	}
	if c.PaymentStatus != customization.PaymentPaid {
		t.Errorf("PaymentStatus = %s, want paid", c.PaymentStatus)
	}
	if c.Status != customization.StatusConfirmed {
		t.Errorf("Status = %s, want confirmed", c.Status)
	}

	// Settled immediately means projected immediately.
	sub, err := f.engine.GetSubscription(ctx, f.sub.ID)
	if err != nil {
		t.Fatalf("GetSubscription: %v", err)
	}
	if sub.FindReplacement(c.ID) == nil {
		t.Error("settled customization missing from the replacement ledger")
	}
}

func TestCreateCustomizationRejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	morningOnly := &subscription.Subscription{
		UserID:           f.userID,
		MealPlanID:       id.NewMealPlanID(),
		Status:           subscription.StatusActive,
		Shift:            subscription.ShiftMorning,
		BasePricePerMeal: types.Rupees(100),
	}
	if err := f.engine.RegisterSubscription(ctx, morningOnly); err != nil {
		t.Fatalf("RegisterSubscription: %v", err)
	}

	paused := &subscription.Subscription{
		UserID:           f.userID,
		MealPlanID:       id.NewMealPlanID(),
		Status:           subscription.StatusPaused,
		Shift:            subscription.ShiftBoth,
		BasePricePerMeal: types.Rupees(100),
	}
	if err := f.engine.RegisterSubscription(ctx, paused); err != nil {
		t.Fatalf("RegisterSubscription: %v", err)
	}

	planless := &subscription.Subscription{
		UserID:           f.userID,
		Status:           subscription.StatusActive,
		Shift:            subscription.ShiftBoth,
		BasePricePerMeal: types.Rupees(100),
	}
	if err := f.engine.RegisterSubscription(ctx, planless); err != nil {
		t.Fatalf("RegisterSubscription: %v", err)
	}

	skipping := &subscription.Subscription{
		UserID:           f.userID,
		MealPlanID:       id.NewMealPlanID(),
		Status:           subscription.StatusActive,
		Shift:            subscription.ShiftBoth,
		BasePricePerMeal: types.Rupees(100),
		SkippedMeals: []subscription.SkippedMeal{
			{Date: tomorrow(), Shift: subscription.ShiftMorning},
		},
	}
	if err := f.engine.RegisterSubscription(ctx, skipping); err != nil {
		t.Fatalf("RegisterSubscription: %v", err)
	}

	tests := []struct {
		name string
		cmd  thali.CreateCommand
		code string
	}{
		{
			name: "paused subscription",
			cmd: thali.CreateCommand{
				UserID:             f.userID,
				SubscriptionID:     paused.ID,
				Type:               customization.TypeOneTime,
				Target:             customization.Single(tomorrow(), subscription.ShiftMorning),
				ReplacementThaliID: f.premium.ID,
			},
			code: thali.CodeSubscriptionNotActive,
		},
		{
			name: "no meal plan",
			cmd: thali.CreateCommand{
				UserID:             f.userID,
				SubscriptionID:     planless.ID,
				Type:               customization.TypeOneTime,
				Target:             customization.Single(tomorrow(), subscription.ShiftMorning),
				ReplacementThaliID: f.premium.ID,
			},
			code: thali.CodeNoMealPlan,
		},
		{
			name: "shift not delivered",
			cmd: thali.CreateCommand{
				UserID:             f.userID,
				SubscriptionID:     morningOnly.ID,
				Type:               customization.TypeOneTime,
				Target:             customization.Single(tomorrow(), subscription.ShiftEvening),
				ReplacementThaliID: f.premium.ID,
			},
			code: thali.CodeInvalidShift,
		},
		{
			name: "shift not delivered across dates",
			cmd: thali.CreateCommand{
				UserID:         f.userID,
				SubscriptionID: morningOnly.ID,
				Type:           customization.TypeOneTime,
				Target: customization.Range([]customization.Slot{
					{Date: tomorrow(), Shift: subscription.ShiftMorning},
					{Date: tomorrow(), Shift: subscription.ShiftEvening},
				}),
				ReplacementThaliID: f.premium.ID,
			},
			code: thali.CodeInvalidShiftsInDates,
		},
		{
			name: "past date",
			cmd: thali.CreateCommand{
				UserID:             f.userID,
				SubscriptionID:     f.sub.ID,
				Type:               customization.TypeOneTime,
				Target:             customization.Single(testNow.AddDate(0, 0, -1), subscription.ShiftMorning),
				ReplacementThaliID: f.premium.ID,
			},
			code: thali.CodePastDate,
		},
		{
			name: "too far ahead",
			cmd: thali.CreateCommand{
				UserID:             f.userID,
				SubscriptionID:     f.sub.ID,
				Type:               customization.TypeOneTime,
				Target:             customization.Single(testNow.AddDate(0, 0, 10), subscription.ShiftMorning),
				ReplacementThaliID: f.premium.ID,
			},
			code: thali.CodeTooFarInAdvance,
		},
		{
			name: "skipped meal",
			cmd: thali.CreateCommand{
				UserID:             f.userID,
				SubscriptionID:     skipping.ID,
				Type:               customization.TypeOneTime,
				Target:             customization.Single(tomorrow(), subscription.ShiftMorning),
				ReplacementThaliID: f.premium.ID,
			},
			code: thali.CodeMealSkipped,
		},
		{
			name: "thali not replaceable",
			cmd: thali.CreateCommand{
				UserID:             f.userID,
				SubscriptionID:     f.sub.ID,
				Type:               customization.TypeOneTime,
				Target:             customization.Single(tomorrow(), subscription.ShiftMorning),
				ReplacementThaliID: f.offMenu.ID,
			},
			code: thali.CodeThaliNotReplaceable,
		},
		{
			name: "thali unavailable",
			cmd: thali.CreateCommand{
				UserID:             f.userID,
				SubscriptionID:     f.sub.ID,
				Type:               customization.TypeOneTime,
				Target:             customization.Single(tomorrow(), subscription.ShiftMorning),
				ReplacementThaliID: f.soldOut.ID,
			},
			code: thali.CodeThaliUnavailable,
		},
		{
			name: "extra item unavailable",
			cmd: thali.CreateCommand{
				UserID:         f.userID,
				SubscriptionID: f.sub.ID,
				Type:           customization.TypeOneTime,
				Target:         customization.Single(tomorrow(), subscription.ShiftMorning),
				ExtraItems: []customization.ExtraItem{
					{ItemID: f.lassi.ID, Quantity: 1},
				},
			},
			code: thali.CodeExtraItemUnavailable,
		},
		{
			name: "invalid target",
			cmd: thali.CreateCommand{
				UserID:         f.userID,
				SubscriptionID: f.sub.ID,
				Type:           customization.TypeOneTime,
				Target:         customization.Target{Kind: customization.TargetSingle},
			},
			code: thali.CodeInvalidTarget,
		},
		{
			name: "recurring without permanent",
			cmd: thali.CreateCommand{
				UserID:         f.userID,
				SubscriptionID: f.sub.ID,
				Type:           customization.TypeOneTime,
				Target:         customization.Recurring(tomorrow(), time.Time{}, subscription.ShiftMorning),
			},
			code: thali.CodeInvalidTarget,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.engine.CreateCustomization(ctx, tt.cmd)
			wantRejectCode(t, err, tt.code)
		})
	}
}

func TestCreateCustomizationSameDayCutoff(t *testing.T) {
	// 12:30 is past the 11:59 morning cutoff but before the 19:00 evening one.
	afternoon := time.Date(2026, 3, 2, 12, 30, 0, 0, time.UTC)
	f := newFixture(t, thali.WithClock(func() time.Time { return afternoon }))
	ctx := context.Background()

	_, err := f.engine.CreateCustomization(ctx, thali.CreateCommand{
		UserID:             f.userID,
		SubscriptionID:     f.sub.ID,
		Type:               customization.TypeOneTime,
		Target:             customization.Single(afternoon, subscription.ShiftMorning),
		ReplacementThaliID: f.premium.ID,
	})
	wantRejectCode(t, err, thali.CodeTimeLimitExceeded)

	// The evening slot on the same day is still orderable.
	if _, err := f.engine.CreateCustomization(ctx, thali.CreateCommand{
		UserID:             f.userID,
		SubscriptionID:     f.sub.ID,
		Type:               customization.TypeOneTime,
		Target:             customization.Single(afternoon, subscription.ShiftEvening),
		ReplacementThaliID: f.premium.ID,
	}); err != nil {
		t.Fatalf("evening slot rejected: %v", err)
	}
}

func TestCreateCustomizationDuplicates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	slot := customization.Single(tomorrow(), subscription.ShiftMorning)

	// Settled customization blocks the slot outright.
	settled, err := f.engine.CreateCustomization(ctx, thali.CreateCommand{
		UserID:             f.userID,
		SubscriptionID:     f.sub.ID,
		Type:               customization.TypeOneTime,
		Target:             slot,
		ReplacementThaliID: f.standard.ID, // zero payable, settles immediately
	})
	if err != nil {
		t.Fatalf("CreateCustomization: %v", err)
	}

	// Requesting the same replacement for the same slot again is a duplicate.
	_, err = f.engine.CreateCustomization(ctx, thali.CreateCommand{
		UserID:             f.userID,
		SubscriptionID:     f.sub.ID,
		Type:               customization.TypeOneTime,
		Target:             slot,
		ReplacementThaliID: f.standard.ID,
	})
	wantRejectCode(t, err, thali.CodeDuplicatePaidReplacement)

	var rej *thali.Reject
	if !errors.As(err, &rej) || rej.Context["existing_customization_id"] != settled.ID.String() {
		t.Errorf("rejection should name the blocking customization %s", settled.ID)
	}

	// An unpaid pending customization does not block the slot: the customer
	// may abandon checkout and order again.
	eveningSlot := customization.Single(tomorrow(), subscription.ShiftEvening)
	if _, err := f.engine.CreateCustomization(ctx, thali.CreateCommand{
		UserID:             f.userID,
		SubscriptionID:     f.sub.ID,
		Type:               customization.TypeOneTime,
		Target:             eveningSlot,
		ReplacementThaliID: f.premium.ID, // positive payable, stays pending
	}); err != nil {
		t.Fatalf("first pending create: %v", err)
	}
	if _, err := f.engine.CreateCustomization(ctx, thali.CreateCommand{
		UserID:             f.userID,
		SubscriptionID:     f.sub.ID,
		Type:               customization.TypeOneTime,
		Target:             eveningSlot,
		ReplacementThaliID: f.premium.ID,
	}); err != nil {
		t.Fatalf("second pending create on the same slot should pass: %v", err)
	}
}

func TestCreateCustomizationLedgerDuplicates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	slot := customization.Single(tomorrow(), subscription.ShiftMorning)

	// Settle a replacement, then soft-delete the record. The ledger entry
	// survives and still represents a settled replacement for the slot.
	settled, err := f.engine.CreateCustomization(ctx, thali.CreateCommand{
		UserID:             f.userID,
		SubscriptionID:     f.sub.ID,
		Type:               customization.TypeOneTime,
		Target:             slot,
		ReplacementThaliID: f.standard.ID, // zero payable, settles and projects
	})
	if err != nil {
		t.Fatalf("CreateCustomization: %v", err)
	}
	if err := f.engine.DeleteCustomization(ctx, settled.ID, f.userID); err != nil {
		t.Fatalf("DeleteCustomization: %v", err)
	}

	_, err = f.engine.CreateCustomization(ctx, thali.CreateCommand{
		UserID:             f.userID,
		SubscriptionID:     f.sub.ID,
		Type:               customization.TypeOneTime,
		Target:             slot,
		ReplacementThaliID: f.standard.ID,
	})
	wantRejectCode(t, err, thali.CodeDuplicatePaidLedgerEntry)

	// An orphaned ledger entry with no record behind it does not block.
	sub, err := f.engine.GetSubscription(ctx, f.sub.ID)
	if err != nil {
		t.Fatalf("GetSubscription: %v", err)
	}
	sub.ThaliReplacements = append(sub.ThaliReplacements, subscription.ReplacementEntry{
		OriginalThaliID:    f.standard.ID,
		ReplacementThaliID: f.premium.ID,
		CustomizationID:    id.NewCustomizationID(),
		Date:               tomorrow(),
		Shift:              subscription.ShiftEvening,
	})
	if _, err := f.engine.CreateCustomization(ctx, thali.CreateCommand{
		UserID:             f.userID,
		SubscriptionID:     f.sub.ID,
		Type:               customization.TypeOneTime,
		Target:             customization.Single(tomorrow(), subscription.ShiftEvening),
		ReplacementThaliID: f.premium.ID,
	}); err != nil {
		t.Fatalf("orphaned ledger entry should not block: %v", err)
	}
}

func TestCreateCustomizationBlockedByCorruptNeighbor(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	today := customization.Single(testNow, subscription.ShiftMorning)

	// An occupant whose payment state contradicts its payable amount. Such
	// records predate the admission pipeline, so seed through the store.
	bad := &customization.Customization{
		Entity:         types.NewEntityAt(testNow),
		ID:             id.NewCustomizationID(),
		UserID:         f.userID,
		SubscriptionID: f.sub.ID,
		Type:           customization.TypeOneTime,
		Target:         today,
		Pricing: customization.Pricing{
			BasePrice:    types.Rupees(100),
			TotalPrice:   types.Rupees(100),
			TotalPayable: types.ZeroINR(),
		},
		PaymentStatus: customization.PaymentPending,
		Status:        customization.StatusPending,
		IsActive:      true,
	}
	if err := f.store.CreateCustomization(ctx, bad); err != nil {
		t.Fatalf("seed: %v", err)
	}

	// Same-day admissions re-validate every occupant of the slot; the
	// corrupt record blocks with its own failure code.
	_, err := f.engine.CreateCustomization(ctx, thali.CreateCommand{
		UserID:         f.userID,
		SubscriptionID: f.sub.ID,
		Type:           customization.TypeOneTime,
		Target:         today,
		ExtraItems:     []customization.ExtraItem{{ItemID: f.gulab.ID, Quantity: 1}},
	})
	wantRejectCode(t, err, payment.ReasonZeroPending)

	// Tomorrow's slot is out of the corrupt record's reach.
	if _, err := f.engine.CreateCustomization(ctx, thali.CreateCommand{
		UserID:         f.userID,
		SubscriptionID: f.sub.ID,
		Type:           customization.TypeOneTime,
		Target:         customization.Single(tomorrow(), subscription.ShiftMorning),
		ExtraItems:     []customization.ExtraItem{{ItemID: f.gulab.ID, Quantity: 1}},
	}); err != nil {
		t.Fatalf("unrelated slot rejected: %v", err)
	}
}

func TestCreateCustomizationExtrasValueContext(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	kheer := &catalog.ExtraItem{Name: "Kheer Family Pack", Price: types.Rupees(200), IsAvailable: true}
	if err := f.engine.AddExtraItem(ctx, kheer); err != nil {
		t.Fatalf("AddExtraItem: %v", err)
	}

	_, err := f.engine.CreateCustomization(ctx, thali.CreateCommand{
		UserID:         f.userID,
		SubscriptionID: f.sub.ID,
		Type:           customization.TypeOneTime,
		Target:         customization.Single(tomorrow(), subscription.ShiftMorning),
		ExtraItems:     []customization.ExtraItem{{ItemID: kheer.ID, Quantity: 3}},
	})
	wantRejectCode(t, err, thali.CodeExtraItemsValueExceeded)

	// The rejection names the bound and the offending total, not just prose.
	var rej *thali.Reject
	if !errors.As(err, &rej) {
		t.Fatalf("expected *thali.Reject, got %T", err)
	}
	if rej.Context["max_value"] != pricing.MaxExtraItemsValue.String() {
		t.Errorf("max_value context: got %v", rej.Context["max_value"])
	}
	if rej.Context["current_value"] != types.Rupees(600).String() {
		t.Errorf("current_value context: got %v", rej.Context["current_value"])
	}
}

func TestCreateCustomizationWithoutReplacementChargesBase(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// No replacement: the full total is due, base meal included.
	c, err := f.engine.CreateCustomization(ctx, thali.CreateCommand{
		UserID:         f.userID,
		SubscriptionID: f.sub.ID,
		Type:           customization.TypeOneTime,
		Target:         customization.Single(tomorrow(), subscription.ShiftMorning),
		ExtraItems:     []customization.ExtraItem{{ItemID: f.gulab.ID, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("CreateCustomization: %v", err)
	}
	// ₹100 base + ₹30 extras.
	if want := types.Rupees(130); !c.Pricing.TotalPayable.Equal(want) {
		t.Errorf("TotalPayable = %s, want %s", c.Pricing.TotalPayable, want)
	}
	if c.PaymentStatus != customization.PaymentPending {
		t.Errorf("PaymentStatus = %s, want pending", c.PaymentStatus)
	}
}

func TestSlotChecksPrecedeRateLimit(t *testing.T) {
	f := newFixture(t, thali.WithRateLimit(1, 5*time.Minute))
	ctx := context.Background()

	morningOnly := &subscription.Subscription{
		UserID:           f.userID,
		MealPlanID:       id.NewMealPlanID(),
		Status:           subscription.StatusActive,
		Shift:            subscription.ShiftMorning,
		DefaultThaliID:   f.standard.ID,
		BasePricePerMeal: types.Rupees(100),
	}
	if err := f.engine.RegisterSubscription(ctx, morningOnly); err != nil {
		t.Fatalf("RegisterSubscription: %v", err)
	}

	if _, err := f.engine.CreateCustomization(ctx, thali.CreateCommand{
		UserID:             f.userID,
		SubscriptionID:     morningOnly.ID,
		Type:               customization.TypeOneTime,
		Target:             customization.Single(tomorrow(), subscription.ShiftMorning),
		ReplacementThaliID: f.premium.ID,
	}); err != nil {
		t.Fatalf("CreateCustomization: %v", err)
	}

	// Over the limit AND the wrong shift: the slot check reports first.
	_, err := f.engine.CreateCustomization(ctx, thali.CreateCommand{
		UserID:             f.userID,
		SubscriptionID:     morningOnly.ID,
		Type:               customization.TypeOneTime,
		Target:             customization.Single(tomorrow(), subscription.ShiftEvening),
		ReplacementThaliID: f.premium.ID,
	})
	wantRejectCode(t, err, thali.CodeInvalidShift)
}

func TestDuplicateScanPrecedesWindow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	yesterday := testNow.AddDate(0, 0, -1)

	// A settled replacement already occupies yesterday's slot.
	settled := &customization.Customization{
		Entity:             types.NewEntityAt(testNow),
		ID:                 id.NewCustomizationID(),
		UserID:             f.userID,
		SubscriptionID:     f.sub.ID,
		Type:               customization.TypeOneTime,
		Target:             customization.Single(yesterday, subscription.ShiftMorning),
		ReplacementThaliID: f.standard.ID,
		Pricing: customization.Pricing{
			BasePrice:  types.Rupees(100),
			TotalPrice: types.Rupees(100),
		},
		PaymentStatus: customization.PaymentCompleted,
		Status:        customization.StatusConfirmed,
		IsActive:      true,
	}
	if err := f.store.CreateCustomization(ctx, settled); err != nil {
		t.Fatalf("seed: %v", err)
	}

	// Both rules fail; the duplicate wins over the past-date window check.
	_, err := f.engine.CreateCustomization(ctx, thali.CreateCommand{
		UserID:             f.userID,
		SubscriptionID:     f.sub.ID,
		Type:               customization.TypeOneTime,
		Target:             customization.Single(yesterday, subscription.ShiftMorning),
		ReplacementThaliID: f.standard.ID,
	})
	wantRejectCode(t, err, thali.CodeDuplicatePaidReplacement)
}

func TestCreateCustomizationRateLimit(t *testing.T) {
	f := newFixture(t, thali.WithRateLimit(2, 5*time.Minute))
	ctx := context.Background()

	slots := []customization.Target{
		customization.Single(tomorrow(), subscription.ShiftMorning),
		customization.Single(tomorrow(), subscription.ShiftEvening),
		customization.Single(testNow.AddDate(0, 0, 2), subscription.ShiftMorning),
	}
	for i := 0; i < 2; i++ {
		if _, err := f.engine.CreateCustomization(ctx, thali.CreateCommand{
			UserID:             f.userID,
			SubscriptionID:     f.sub.ID,
			Type:               customization.TypeOneTime,
			Target:             slots[i],
			ReplacementThaliID: f.premium.ID,
		}); err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
	}

	_, err := f.engine.CreateCustomization(ctx, thali.CreateCommand{
		UserID:             f.userID,
		SubscriptionID:     f.sub.ID,
		Type:               customization.TypeOneTime,
		Target:             slots[2],
		ReplacementThaliID: f.premium.ID,
	})
	wantRejectCode(t, err, thali.CodeRateLimitExceeded)
}

func TestCreateCustomizationPriceWarning(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cmd := thali.CreateCommand{
		UserID:             f.userID,
		SubscriptionID:     f.sub.ID,
		Type:               customization.TypeOneTime,
		Target:             customization.Single(tomorrow(), subscription.ShiftMorning),
		ReplacementThaliID: f.budget.ID, // ₹50 cheaper than the base price
	}

	_, err := f.engine.CreateCustomization(ctx, cmd)
	wantRejectCode(t, err, thali.CodePriceDifferenceWarning)

	var rej *thali.Reject
	if !errors.As(err, &rej) {
		t.Fatalf("expected *thali.Reject, got %T", err)
	}
	if !rej.RequireConfirmation {
		t.Error("price warning must be a soft rejection")
	}

	// Acknowledging the warning admits the same request. The saving makes
	// the payable negative, so it settles on the spot.
	cmd.ConfirmPriceDifference = true
	c, err := f.engine.CreateCustomization(ctx, cmd)
	if err != nil {
		t.Fatalf("confirmed resubmit: %v", err)
	}
	if !c.Pricing.TotalPayable.IsNegative() {
		t.Errorf("TotalPayable = %s, want negative", c.Pricing.TotalPayable)
	}
	if c.PaymentStatus != customization.PaymentPaid || c.Status != customization.StatusConfirmed {
		t.Errorf("cheaper replacement should settle: payment=%s status=%s", c.PaymentStatus, c.Status)
	}
}

func TestCreateCustomizationValidateOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	c, err := f.engine.CreateCustomization(ctx, thali.CreateCommand{
		UserID:             f.userID,
		SubscriptionID:     f.sub.ID,
		Type:               customization.TypeOneTime,
		Target:             customization.Single(tomorrow(), subscription.ShiftMorning),
		ReplacementThaliID: f.premium.ID,
		ValidateOnly:       true,
	})
	if err != nil {
		t.Fatalf("CreateCustomization: %v", err)
	}
	if c.Pricing.TotalPayable.IsZero() {
		t.Error("dry run should still price the request")
	}

	if _, err := f.engine.GetCustomization(ctx, c.ID); !thali.IsNotFound(err) {
		t.Errorf("dry run must not persist, lookup err = %v", err)
	}
}

func TestUpdateCustomization(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	c, err := f.engine.CreateCustomization(ctx, thali.CreateCommand{
		UserID:             f.userID,
		SubscriptionID:     f.sub.ID,
		Type:               customization.TypeOneTime,
		Target:             customization.Single(tomorrow(), subscription.ShiftMorning),
		ReplacementThaliID: f.premium.ID,
	})
	if err != nil {
		t.Fatalf("CreateCustomization: %v", err)
	}

	addOns := []customization.AddOn{{Name: "Extra Roti", Price: types.Rupees(20), Quantity: 2}}
	updated, err := f.engine.UpdateCustomization(ctx, c.ID, f.userID, thali.UpdatePatch{
		AddOns: &addOns,
	})
	if err != nil {
		t.Fatalf("UpdateCustomization: %v", err)
	}
	// ₹50 delta + 2×₹20 add-ons.
	if want := types.Rupees(90); !updated.Pricing.TotalPayable.Equal(want) {
		t.Errorf("repriced TotalPayable = %s, want %s", updated.Pricing.TotalPayable, want)
	}

	// Settled records are immutable.
	settled, err := f.engine.CreateCustomization(ctx, thali.CreateCommand{
		UserID:             f.userID,
		SubscriptionID:     f.sub.ID,
		Type:               customization.TypeOneTime,
		Target:             customization.Single(tomorrow(), subscription.ShiftEvening),
		ReplacementThaliID: f.standard.ID,
	})
	if err != nil {
		t.Fatalf("CreateCustomization: %v", err)
	}
	_, err = f.engine.UpdateCustomization(ctx, settled.ID, f.userID, thali.UpdatePatch{AddOns: &addOns})
	wantRejectCode(t, err, thali.CodeImmutableAfterConfirmation)
}

func TestUpdateCustomizationNotesOnlyKeepsPricing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// A confirmed cheaper replacement whose cart keeps the payable positive:
	// ₹60 add-on less the ₹50 credit leaves ₹10 pending.
	c, err := f.engine.CreateCustomization(ctx, thali.CreateCommand{
		UserID:                 f.userID,
		SubscriptionID:         f.sub.ID,
		Type:                   customization.TypeOneTime,
		Target:                 customization.Single(tomorrow(), subscription.ShiftMorning),
		ReplacementThaliID:     f.budget.ID,
		AddOns:                 []customization.AddOn{{Name: "Extra Roti", Price: types.Rupees(60), Quantity: 1}},
		ConfirmPriceDifference: true,
	})
	if err != nil {
		t.Fatalf("CreateCustomization: %v", err)
	}

	// A notes-only patch touches nothing the price depends on: no repricing,
	// and no replayed price-difference warning to confirm again.
	notes := "less spicy please"
	updated, err := f.engine.UpdateCustomization(ctx, c.ID, f.userID, thali.UpdatePatch{Notes: &notes})
	if err != nil {
		t.Fatalf("notes-only update: %v", err)
	}
	if updated.Notes != notes {
		t.Errorf("Notes = %q, want %q", updated.Notes, notes)
	}
	if !updated.Pricing.TotalPayable.Equal(types.Rupees(10)) {
		t.Errorf("TotalPayable = %s, want ₹10.00", updated.Pricing.TotalPayable)
	}
	if updated.PaymentStatus != customization.PaymentPending {
		t.Errorf("PaymentStatus = %s, want pending", updated.PaymentStatus)
	}
}

func TestUpdateCustomizationStatusFields(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Cancel a pending record with a reason.
	c := createPending(t, f)
	status := customization.StatusCancelled
	reason := "customer changed plans"
	updated, err := f.engine.UpdateCustomization(ctx, c.ID, f.userID, thali.UpdatePatch{
		Status:          &status,
		RejectionReason: &reason,
	})
	if err != nil {
		t.Fatalf("UpdateCustomization: %v", err)
	}
	if updated.Status != customization.StatusCancelled {
		t.Errorf("Status = %s, want cancelled", updated.Status)
	}
	if updated.RejectionReason != reason {
		t.Errorf("RejectionReason = %q, want %q", updated.RejectionReason, reason)
	}
	// Status edits leave the pricing alone: still the ₹50 replacement delta.
	if !updated.Pricing.TotalPayable.Equal(types.Rupees(50)) {
		t.Errorf("TotalPayable = %s, want ₹50.00", updated.Pricing.TotalPayable)
	}

	// Promote another pending record to a standing default.
	other, err := f.engine.CreateCustomization(ctx, thali.CreateCommand{
		UserID:             f.userID,
		SubscriptionID:     f.sub.ID,
		Type:               customization.TypeOneTime,
		Target:             customization.Single(tomorrow(), subscription.ShiftEvening),
		ReplacementThaliID: f.premium.ID,
	})
	if err != nil {
		t.Fatalf("CreateCustomization: %v", err)
	}
	typ := customization.TypePermanent
	asDefault := true
	updated, err = f.engine.UpdateCustomization(ctx, other.ID, f.userID, thali.UpdatePatch{
		Type:         &typ,
		SetAsDefault: &asDefault,
	})
	if err != nil {
		t.Fatalf("UpdateCustomization: %v", err)
	}
	if updated.Type != customization.TypePermanent {
		t.Errorf("Type = %s, want permanent", updated.Type)
	}
	if !updated.IsDefault {
		t.Error("SetAsDefault patch not applied")
	}
}

func TestDeleteCustomizationSoftDeletes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	c, err := f.engine.CreateCustomization(ctx, thali.CreateCommand{
		UserID:             f.userID,
		SubscriptionID:     f.sub.ID,
		Type:               customization.TypeOneTime,
		Target:             customization.Single(tomorrow(), subscription.ShiftMorning),
		ReplacementThaliID: f.premium.ID,
	})
	if err != nil {
		t.Fatalf("CreateCustomization: %v", err)
	}

	if err := f.engine.DeleteCustomization(ctx, c.ID, f.userID); err != nil {
		t.Fatalf("DeleteCustomization: %v", err)
	}

	got, err := f.engine.GetCustomization(ctx, c.ID)
	if err != nil {
		t.Fatalf("record should survive deletion: %v", err)
	}
	if got.IsActive {
		t.Error("deleted customization still active")
	}
	if got.Status != customization.StatusCancelled {
		t.Errorf("Status = %s, want cancelled", got.Status)
	}

	// Deleting again is a no-op.
	if err := f.engine.DeleteCustomization(ctx, c.ID, f.userID); err != nil {
		t.Fatalf("repeat delete: %v", err)
	}
}
