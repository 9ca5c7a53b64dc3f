package thali_test

import (
	"context"
	"testing"
	"time"

	"github.com/xraph/thali"
	"github.com/xraph/thali/customization"
	"github.com/xraph/thali/payment"
	"github.com/xraph/thali/subscription"
)

func TestProjectionIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Settle through the payment flow so the first projection happens there.
	c := createPending(t, f)
	intent, err := f.engine.CreatePaymentOrder(ctx, c.ID, f.userID)
	if err != nil {
		t.Fatalf("CreatePaymentOrder: %v", err)
	}
	if _, err := f.engine.VerifyPayment(ctx, c.ID, f.userID, payment.Proof{
		OrderID: intent.OrderID, PaymentID: "pay_1", Signature: "valid",
	}); err != nil {
		t.Fatalf("VerifyPayment: %v", err)
	}

	// A sync pass over an already consistent ledger appends nothing.
	res, err := f.engine.SyncLedger(ctx, f.sub.ID)
	if err != nil {
		t.Fatalf("SyncLedger: %v", err)
	}
	if res.Checked != 1 || res.Synced != 0 {
		t.Errorf("sync = checked %d synced %d, want 1/0", res.Checked, res.Synced)
	}

	sub, err := f.engine.GetSubscription(ctx, f.sub.ID)
	if err != nil {
		t.Fatalf("GetSubscription: %v", err)
	}
	if n := len(sub.ThaliReplacements); n != 1 {
		t.Errorf("ledger entries = %d, want exactly 1", n)
	}
}

func TestSyncLedgerRepairsDrift(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	c := createPending(t, f)
	intent, err := f.engine.CreatePaymentOrder(ctx, c.ID, f.userID)
	if err != nil {
		t.Fatalf("CreatePaymentOrder: %v", err)
	}
	if _, err := f.engine.VerifyPayment(ctx, c.ID, f.userID, payment.Proof{
		OrderID: intent.OrderID, PaymentID: "pay_1", Signature: "valid",
	}); err != nil {
		t.Fatalf("VerifyPayment: %v", err)
	}

	// Simulate ledger drift: a settled customization with no matching entry.
	sub, err := f.engine.GetSubscription(ctx, f.sub.ID)
	if err != nil {
		t.Fatalf("GetSubscription: %v", err)
	}
	sub.ThaliReplacements = nil

	res, err := f.engine.SyncLedger(ctx, f.sub.ID)
	if err != nil {
		t.Fatalf("SyncLedger: %v", err)
	}
	if res.Synced != 1 {
		t.Errorf("Synced = %d, want 1", res.Synced)
	}

	sub, err = f.engine.GetSubscription(ctx, f.sub.ID)
	if err != nil {
		t.Fatalf("GetSubscription: %v", err)
	}
	entry := sub.FindReplacement(c.ID)
	if entry == nil {
		t.Fatal("sync did not restore the ledger entry")
	}
	if entry.ReplacementThaliID != f.premium.ID {
		t.Errorf("restored entry thali = %s, want %s", entry.ReplacementThaliID, f.premium.ID)
	}
}

func TestPermanentCustomizationSetsDefault(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	c, err := f.engine.CreateCustomization(ctx, thali.CreateCommand{
		UserID:             f.userID,
		SubscriptionID:     f.sub.ID,
		Type:               customization.TypePermanent,
		Target:             customization.Recurring(tomorrow(), time.Time{}, subscription.ShiftMorning),
		ReplacementThaliID: f.standard.ID, // zero payable, settles and projects
	})
	if err != nil {
		t.Fatalf("CreateCustomization: %v", err)
	}
	if !c.IsDefault {
		t.Error("permanent customization should be marked default")
	}

	sub, err := f.engine.GetSubscription(ctx, f.sub.ID)
	if err != nil {
		t.Fatalf("GetSubscription: %v", err)
	}
	if sub.DefaultReplacement == nil {
		t.Fatal("permanent settle did not install a default replacement")
	}
	if sub.DefaultReplacement.CustomizationID != c.ID {
		t.Errorf("default replacement keyed to %s, want %s", sub.DefaultReplacement.CustomizationID, c.ID)
	}
	if sub.DefaultThaliID != f.standard.ID {
		t.Errorf("default thali = %s, want %s", sub.DefaultThaliID, f.standard.ID)
	}
}

func TestSyncLedgerSkipsUnsettled(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Pending, unpaid replacement: sync must leave it alone.
	createPending(t, f)

	res, err := f.engine.SyncLedger(ctx, f.sub.ID)
	if err != nil {
		t.Fatalf("SyncLedger: %v", err)
	}
	if res.Checked != 0 || res.Synced != 0 {
		t.Errorf("sync = checked %d synced %d, want 0/0", res.Checked, res.Synced)
	}
}
