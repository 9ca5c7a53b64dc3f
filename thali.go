package thali

import (
	"context"
	"log/slog"
	"time"

	"github.com/xraph/thali/catalog"
	"github.com/xraph/thali/customization"
	"github.com/xraph/thali/id"
	"github.com/xraph/thali/payment"
	"github.com/xraph/thali/plugin"
	"github.com/xraph/thali/store"
	"github.com/xraph/thali/subscription"
	"github.com/xraph/thali/types"
	"github.com/xraph/thali/window"
)

// Default engine tunables.
const (
	DefaultRateLimitCount  = 5
	DefaultRateLimitWindow = 5 * time.Minute
)

// DefaultBasePrice is the per-meal fallback used when a subscription
// carries no base price of its own.
var DefaultBasePrice = types.Rupees(75)

// Engine is the meal customization validation and payment-consistency engine.
type Engine struct {
	store   store.Store
	gateway payment.Gateway
	plugins *plugin.Registry
	logger  *slog.Logger
	clock   func() time.Time

	// Configuration
	maxAdvanceDays   int
	basePrice        types.Money
	warningThreshold types.Money
	rateLimitCount   int64
	rateLimitWindow  time.Duration
}

// New creates a new Engine instance.
func New(s store.Store, opts ...Option) *Engine {
	e := &Engine{
		store:            s,
		plugins:          plugin.NewRegistry(),
		logger:           slog.Default(),
		clock:            time.Now,
		maxAdvanceDays:   window.DefaultMaxAdvanceDays,
		basePrice:        DefaultBasePrice,
		warningThreshold: types.Rupees(20),
		rateLimitCount:   DefaultRateLimitCount,
		rateLimitWindow:  DefaultRateLimitWindow,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Option configures an Engine instance.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
		e.plugins.WithLogger(logger)
	}
}

// WithGateway sets the payment gateway.
func WithGateway(g payment.Gateway) Option {
	return func(e *Engine) {
		e.gateway = g
	}
}

// WithPlugin registers a plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Engine) {
		_ = e.plugins.Register(p) //nolint:errcheck // best-effort plugin registration during init
	}
}

// WithClock injects the time source. Window evaluation, rate limiting, and
// record timestamps all read from it.
func WithClock(clock func() time.Time) Option {
	return func(e *Engine) {
		if clock != nil {
			e.clock = clock
		}
	}
}

// WithMaxAdvanceDays sets how far ahead a slot may be customized.
func WithMaxAdvanceDays(days int) Option {
	return func(e *Engine) {
		e.maxAdvanceDays = days
	}
}

// WithBasePrice sets the fallback per-meal base price for subscriptions
// that carry none.
func WithBasePrice(m types.Money) Option {
	return func(e *Engine) {
		e.basePrice = m
	}
}

// WithPriceWarningThreshold sets how much cheaper a replacement may be
// before admission demands confirmation.
func WithPriceWarningThreshold(m types.Money) Option {
	return func(e *Engine) {
		e.warningThreshold = m
	}
}

// WithRateLimit sets the per-subscription creation rate limit.
func WithRateLimit(count int64, per time.Duration) Option {
	return func(e *Engine) {
		e.rateLimitCount = count
		e.rateLimitWindow = per
	}
}

// Start migrates the store and initializes plugins.
func (e *Engine) Start(ctx context.Context) error {
	if err := e.store.Migrate(ctx); err != nil {
		return err
	}

	e.plugins.EmitInit(ctx, e)

	e.logger.Info("thali engine started",
		"max_advance_days", e.maxAdvanceDays,
		"rate_limit_count", e.rateLimitCount,
		"rate_limit_window", e.rateLimitWindow,
		"gateway", e.gateway != nil,
	)

	return nil
}

// Stop shuts down the engine.
func (e *Engine) Stop() error {
	ctx := context.Background()
	e.plugins.EmitShutdown(ctx)

	return e.store.Close()
}

// now reads the injected clock.
func (e *Engine) now() time.Time {
	return e.clock()
}

// ──────────────────────────────────────────────────
// Subscription Management
// ──────────────────────────────────────────────────

// RegisterSubscription records a subscription for the engine to validate
// customizations against. Subscription lifecycle itself lives upstream;
// the engine only needs the aggregate.
func (e *Engine) RegisterSubscription(ctx context.Context, sub *subscription.Subscription) error {
	if sub.ID.IsNil() {
		sub.ID = id.NewSubscriptionID()
	}
	sub.Entity = types.NewEntityAt(e.now())

	if err := e.store.CreateSubscription(ctx, sub); err != nil {
		return err
	}

	e.plugins.EmitSubscriptionCreated(ctx, sub)
	return nil
}

// GetSubscription retrieves a subscription by ID.
func (e *Engine) GetSubscription(ctx context.Context, subID id.SubscriptionID) (*subscription.Subscription, error) {
	return e.store.GetSubscription(ctx, subID)
}

// GetSubscriptionForUser retrieves a subscription enforcing ownership.
func (e *Engine) GetSubscriptionForUser(ctx context.Context, subID id.SubscriptionID, userID id.UserID) (*subscription.Subscription, error) {
	return e.store.GetSubscriptionForUser(ctx, subID, userID)
}

// ListSubscriptionsForUser lists a user's subscriptions.
func (e *Engine) ListSubscriptionsForUser(ctx context.Context, userID id.UserID, opts subscription.ListOpts) ([]*subscription.Subscription, error) {
	return e.store.ListSubscriptionsForUser(ctx, userID, opts)
}

// ──────────────────────────────────────────────────
// Catalog Management
// ──────────────────────────────────────────────────

// AddThali adds a thali to the catalog.
func (e *Engine) AddThali(ctx context.Context, t *catalog.Thali) error {
	if t.ID.IsNil() {
		t.ID = id.NewThaliID()
	}
	t.Entity = types.NewEntityAt(e.now())
	return e.store.CreateThali(ctx, t)
}

// GetThali retrieves a catalog thali by ID.
func (e *Engine) GetThali(ctx context.Context, thaliID id.ThaliID) (*catalog.Thali, error) {
	return e.store.GetThali(ctx, thaliID)
}

// ListThalis lists catalog thalis.
func (e *Engine) ListThalis(ctx context.Context, opts catalog.ListOpts) ([]*catalog.Thali, error) {
	return e.store.ListThalis(ctx, opts)
}

// AddExtraItem adds an extra item to the catalog.
func (e *Engine) AddExtraItem(ctx context.Context, item *catalog.ExtraItem) error {
	if item.ID.IsNil() {
		item.ID = id.NewExtraItemID()
	}
	item.Entity = types.NewEntityAt(e.now())
	return e.store.CreateExtraItem(ctx, item)
}

// GetExtraItem retrieves a catalog extra item by ID.
func (e *Engine) GetExtraItem(ctx context.Context, itemID id.ExtraItemID) (*catalog.ExtraItem, error) {
	return e.store.GetExtraItem(ctx, itemID)
}

// ──────────────────────────────────────────────────
// Customization reads
// ──────────────────────────────────────────────────

// GetCustomization retrieves a customization by ID.
func (e *Engine) GetCustomization(ctx context.Context, custID id.CustomizationID) (*customization.Customization, error) {
	return e.store.GetCustomization(ctx, custID)
}

// GetCustomizationForUser retrieves a customization enforcing ownership.
func (e *Engine) GetCustomizationForUser(ctx context.Context, custID id.CustomizationID, userID id.UserID) (*customization.Customization, error) {
	return e.store.GetCustomizationForUser(ctx, custID, userID)
}

// ListPendingCustomizations lists pending customizations in scope.
func (e *Engine) ListPendingCustomizations(ctx context.Context, scope customization.Scope) ([]*customization.Customization, error) {
	return e.store.ListPendingCustomizations(ctx, scope)
}
