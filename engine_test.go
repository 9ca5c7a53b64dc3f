package thali_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/xraph/thali"
	"github.com/xraph/thali/catalog"
	"github.com/xraph/thali/id"
	"github.com/xraph/thali/payment"
	"github.com/xraph/thali/store/memory"
	"github.com/xraph/thali/subscription"
	"github.com/xraph/thali/types"
)

// testNow is the fixed clock for engine tests: 08:00, well before both
// same-day cutoffs.
var testNow = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

func tomorrow() time.Time { return testNow.AddDate(0, 0, 1) }

// fakeGateway records orders in memory and accepts any proof whose
// signature is "valid".
type fakeGateway struct {
	orders int
}

func (g *fakeGateway) CreateOrder(_ context.Context, amount types.Money, receipt string, notes map[string]string) (*payment.Order, error) {
	g.orders++
	return &payment.Order{
		ID:      fmt.Sprintf("order_test_%d", g.orders),
		Amount:  amount,
		Receipt: receipt,
		Status:  "created",
		Notes:   notes,
	}, nil
}

func (g *fakeGateway) VerifySignature(p payment.Proof) bool {
	return p.Signature == "valid"
}

// fixture bundles the engine with the catalog and subscription every test
// admits customizations against.
type fixture struct {
	engine  *thali.Engine
	store   *memory.Store
	gateway *fakeGateway

	userID id.UserID
	sub    *subscription.Subscription

	// Catalog: standard matches the subscription's base price, premium is
	// ₹50 dearer, budget is ₹50 cheaper (past the warning threshold).
	standard *catalog.Thali
	premium  *catalog.Thali
	budget   *catalog.Thali
	offMenu  *catalog.Thali // not replaceable
	soldOut  *catalog.Thali // replaceable but unavailable

	gulab *catalog.ExtraItem // ₹30
	lassi *catalog.ExtraItem // unavailable
}

func newFixture(t *testing.T, opts ...thali.Option) *fixture {
	t.Helper()
	ctx := context.Background()

	st := memory.New()
	gw := &fakeGateway{}
	base := []thali.Option{
		thali.WithClock(func() time.Time { return testNow }),
		thali.WithGateway(gw),
	}
	engine := thali.New(st, append(base, opts...)...)
	if err := engine.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	f := &fixture{engine: engine, store: st, gateway: gw, userID: id.NewUserID()}

	f.standard = f.addThali(t, "Standard Thali", types.Rupees(100), true, true)
	f.premium = f.addThali(t, "Paneer Special", types.Rupees(150), true, true)
	f.budget = f.addThali(t, "Budget Thali", types.Rupees(50), true, true)
	f.offMenu = f.addThali(t, "Festival Thali", types.Rupees(200), false, true)
	f.soldOut = f.addThali(t, "Seasonal Thali", types.Rupees(120), true, false)

	f.gulab = &catalog.ExtraItem{Name: "Gulab Jamun", Price: types.Rupees(30), IsAvailable: true}
	if err := engine.AddExtraItem(ctx, f.gulab); err != nil {
		t.Fatalf("AddExtraItem: %v", err)
	}
	f.lassi = &catalog.ExtraItem{Name: "Lassi", Price: types.Rupees(40), IsAvailable: false}
	if err := engine.AddExtraItem(ctx, f.lassi); err != nil {
		t.Fatalf("AddExtraItem: %v", err)
	}

	f.sub = f.addSubscription(t)
	return f
}

func (f *fixture) addThali(t *testing.T, name string, price types.Money, replaceable, available bool) *catalog.Thali {
	t.Helper()
	th := &catalog.Thali{
		Name:          name,
		Price:         price,
		IsReplaceable: replaceable,
		IsAvailable:   available,
	}
	if err := f.engine.AddThali(context.Background(), th); err != nil {
		t.Fatalf("AddThali(%s): %v", name, err)
	}
	return th
}

func (f *fixture) addSubscription(t *testing.T) *subscription.Subscription {
	t.Helper()
	sub := &subscription.Subscription{
		UserID:           f.userID,
		MealPlanID:       id.NewMealPlanID(),
		Status:           subscription.StatusActive,
		Shift:            subscription.ShiftBoth,
		StartDate:        testNow.AddDate(0, 0, -30),
		DefaultThaliID:   f.standard.ID,
		BasePricePerMeal: types.Rupees(100),
	}
	if err := f.engine.RegisterSubscription(context.Background(), sub); err != nil {
		t.Fatalf("RegisterSubscription: %v", err)
	}
	return sub
}

func wantRejectCode(t *testing.T, err error, code string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected rejection %s, got nil error", code)
	}
	if !thali.IsReject(err) {
		t.Fatalf("expected rejection %s, got %v", code, err)
	}
	if got := thali.RejectCode(err); got != code {
		t.Fatalf("rejection code = %s, want %s", got, code)
	}
}
