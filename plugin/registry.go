package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"
)

// Registry manages all registered plugins and provides efficient dispatch.
// It uses type-cached discovery for O(1) dispatch performance.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
	logger  *slog.Logger

	// Type-cached plugin lists for efficient dispatch
	onInit                  []OnInit
	onShutdown              []OnShutdown
	onSubscriptionCreated   []OnSubscriptionCreated
	onCustomizationCreated  []OnCustomizationCreated
	onCustomizationUpdated  []OnCustomizationUpdated
	onCustomizationRejected []OnCustomizationRejected
	onRateLimited           []OnRateLimited
	onPaymentOrderCreated   []OnPaymentOrderCreated
	onPaymentVerified       []OnPaymentVerified
	onPaymentFailed         []OnPaymentFailed
	onLedgerProjected       []OnLedgerProjected
	onLedgerSynced          []OnLedgerSynced
	onCleanupApplied        []OnCleanupApplied
}

// NewRegistry creates a new plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		logger: slog.Default(),
	}
}

// WithLogger sets the logger for the registry.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// Register adds a plugin to the registry and caches its interfaces.
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Check for duplicate
	for _, existing := range r.plugins {
		if existing.Name() == p.Name() {
			return fmt.Errorf("plugin: duplicate registration: %s", p.Name())
		}
	}

	r.plugins = append(r.plugins, p)

	// Type-switch to cache interfaces
	if v, ok := p.(OnInit); ok {
		r.onInit = append(r.onInit, v)
	}
	if v, ok := p.(OnShutdown); ok {
		r.onShutdown = append(r.onShutdown, v)
	}
	if v, ok := p.(OnSubscriptionCreated); ok {
		r.onSubscriptionCreated = append(r.onSubscriptionCreated, v)
	}
	if v, ok := p.(OnCustomizationCreated); ok {
		r.onCustomizationCreated = append(r.onCustomizationCreated, v)
	}
	if v, ok := p.(OnCustomizationUpdated); ok {
		r.onCustomizationUpdated = append(r.onCustomizationUpdated, v)
	}
	if v, ok := p.(OnCustomizationRejected); ok {
		r.onCustomizationRejected = append(r.onCustomizationRejected, v)
	}
	if v, ok := p.(OnRateLimited); ok {
		r.onRateLimited = append(r.onRateLimited, v)
	}
	if v, ok := p.(OnPaymentOrderCreated); ok {
		r.onPaymentOrderCreated = append(r.onPaymentOrderCreated, v)
	}
	if v, ok := p.(OnPaymentVerified); ok {
		r.onPaymentVerified = append(r.onPaymentVerified, v)
	}
	if v, ok := p.(OnPaymentFailed); ok {
		r.onPaymentFailed = append(r.onPaymentFailed, v)
	}
	if v, ok := p.(OnLedgerProjected); ok {
		r.onLedgerProjected = append(r.onLedgerProjected, v)
	}
	if v, ok := p.(OnLedgerSynced); ok {
		r.onLedgerSynced = append(r.onLedgerSynced, v)
	}
	if v, ok := p.(OnCleanupApplied); ok {
		r.onCleanupApplied = append(r.onCleanupApplied, v)
	}

	r.logger.Info("plugin registered",
		"name", p.Name(),
		"interfaces", r.getImplementedInterfaces(p),
	)

	return nil
}

// getImplementedInterfaces returns a list of interfaces implemented by the plugin.
func (r *Registry) getImplementedInterfaces(p Plugin) []string {
	var interfaces []string
	v := reflect.TypeOf(p)

	// Check each interface
	checkInterface := func(iface reflect.Type, name string) {
		if v.Implements(iface) {
			interfaces = append(interfaces, name)
		}
	}

	// List all interfaces to check
	checkInterface(reflect.TypeOf((*OnInit)(nil)).Elem(), "OnInit")
	checkInterface(reflect.TypeOf((*OnShutdown)(nil)).Elem(), "OnShutdown")
	checkInterface(reflect.TypeOf((*OnSubscriptionCreated)(nil)).Elem(), "OnSubscriptionCreated")
	checkInterface(reflect.TypeOf((*OnCustomizationCreated)(nil)).Elem(), "OnCustomizationCreated")
	checkInterface(reflect.TypeOf((*OnCustomizationRejected)(nil)).Elem(), "OnCustomizationRejected")
	checkInterface(reflect.TypeOf((*OnPaymentOrderCreated)(nil)).Elem(), "OnPaymentOrderCreated")
	checkInterface(reflect.TypeOf((*OnPaymentVerified)(nil)).Elem(), "OnPaymentVerified")
	checkInterface(reflect.TypeOf((*OnLedgerProjected)(nil)).Elem(), "OnLedgerProjected")
	checkInterface(reflect.TypeOf((*OnCleanupApplied)(nil)).Elem(), "OnCleanupApplied")

	return interfaces
}

// Get returns a plugin by name.
func (r *Registry) Get(name string) Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.plugins {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// List returns all registered plugins.
func (r *Registry) List() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Plugin, len(r.plugins))
	copy(result, r.plugins)
	return result
}

// Count returns the number of registered plugins.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// ──────────────────────────────────────────────────
// Event emission methods
// ──────────────────────────────────────────────────

// EmitInit calls OnInit for all plugins that implement it.
func (r *Registry) EmitInit(ctx context.Context, engine interface{}) {
	r.mu.RLock()
	plugins := r.onInit
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnInit(ctx, engine)
		}); err != nil {
			r.logger.Warn("plugin OnInit failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitShutdown calls OnShutdown for all plugins that implement it.
func (r *Registry) EmitShutdown(ctx context.Context) {
	r.mu.RLock()
	plugins := r.onShutdown
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnShutdown(ctx)
		}); err != nil {
			r.logger.Warn("plugin OnShutdown failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitSubscriptionCreated emits a subscription created event.
func (r *Registry) EmitSubscriptionCreated(ctx context.Context, sub interface{}) {
	r.mu.RLock()
	plugins := r.onSubscriptionCreated
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnSubscriptionCreated(ctx, sub)
		}); err != nil {
			r.logger.Warn("plugin OnSubscriptionCreated failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitCustomizationCreated emits a customization admitted event.
func (r *Registry) EmitCustomizationCreated(ctx context.Context, cust interface{}) {
	r.mu.RLock()
	plugins := r.onCustomizationCreated
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnCustomizationCreated(ctx, cust)
		}); err != nil {
			r.logger.Warn("plugin OnCustomizationCreated failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitCustomizationUpdated emits a customization updated event.
func (r *Registry) EmitCustomizationUpdated(ctx context.Context, oldCust, newCust interface{}) {
	r.mu.RLock()
	plugins := r.onCustomizationUpdated
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnCustomizationUpdated(ctx, oldCust, newCust)
		}); err != nil {
			r.logger.Warn("plugin OnCustomizationUpdated failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitCustomizationRejected emits an admission rejection event.
func (r *Registry) EmitCustomizationRejected(ctx context.Context, subID, code, message string) {
	r.mu.RLock()
	plugins := r.onCustomizationRejected
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnCustomizationRejected(ctx, subID, code, message)
		}); err != nil {
			r.logger.Warn("plugin OnCustomizationRejected failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitRateLimited emits a rate limit event.
func (r *Registry) EmitRateLimited(ctx context.Context, subID string, recent int64) {
	r.mu.RLock()
	plugins := r.onRateLimited
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnRateLimited(ctx, subID, recent)
		}); err != nil {
			r.logger.Warn("plugin OnRateLimited failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitPaymentOrderCreated emits a payment order created event.
func (r *Registry) EmitPaymentOrderCreated(ctx context.Context, cust interface{}, orderID string) {
	r.mu.RLock()
	plugins := r.onPaymentOrderCreated
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnPaymentOrderCreated(ctx, cust, orderID)
		}); err != nil {
			r.logger.Warn("plugin OnPaymentOrderCreated failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitPaymentVerified emits a payment verified event.
func (r *Registry) EmitPaymentVerified(ctx context.Context, cust interface{}, paymentID string) {
	r.mu.RLock()
	plugins := r.onPaymentVerified
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnPaymentVerified(ctx, cust, paymentID)
		}); err != nil {
			r.logger.Warn("plugin OnPaymentVerified failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitPaymentFailed emits a payment failed event.
func (r *Registry) EmitPaymentFailed(ctx context.Context, cust interface{}, reason string) {
	r.mu.RLock()
	plugins := r.onPaymentFailed
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnPaymentFailed(ctx, cust, reason)
		}); err != nil {
			r.logger.Warn("plugin OnPaymentFailed failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitLedgerProjected emits a ledger projection event.
func (r *Registry) EmitLedgerProjected(ctx context.Context, subID, custID string, appended bool) {
	r.mu.RLock()
	plugins := r.onLedgerProjected
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnLedgerProjected(ctx, subID, custID, appended)
		}); err != nil {
			r.logger.Warn("plugin OnLedgerProjected failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitLedgerSynced emits a ledger sync event.
func (r *Registry) EmitLedgerSynced(ctx context.Context, subID string, synced int) {
	r.mu.RLock()
	plugins := r.onLedgerSynced
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnLedgerSynced(ctx, subID, synced)
		}); err != nil {
			r.logger.Warn("plugin OnLedgerSynced failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitCleanupApplied emits a cleanup event.
func (r *Registry) EmitCleanupApplied(ctx context.Context, repaired int, dryRun bool) {
	r.mu.RLock()
	plugins := r.onCleanupApplied
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnCleanupApplied(ctx, repaired, dryRun)
		}); err != nil {
			r.logger.Warn("plugin OnCleanupApplied failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// callWithTimeout calls a plugin function with a timeout.
// Plugins should never block the admission pipeline.
func (r *Registry) callWithTimeout(ctx context.Context, pluginName string, fn func() error) error {
	done := make(chan error, 1)

	go func() {
		done <- fn()
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		return fmt.Errorf("plugin timeout: %s", pluginName)
	case <-ctx.Done():
		return ctx.Err()
	}
}
