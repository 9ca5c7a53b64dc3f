package extension

import (
	"time"

	thali "github.com/xraph/thali"
	"github.com/xraph/thali/plugin"
	"github.com/xraph/thali/store"
)

// Option configures the Thali Forge extension.
type Option func(*Extension)

// WithStore sets the store for the thali engine.
func WithStore(s store.Store) Option {
	return func(e *Extension) {
		e.store = s
	}
}

// WithEngineOption passes a thali.Option through to the underlying engine.
func WithEngineOption(opt thali.Option) Option {
	return func(e *Extension) {
		e.engineOpts = append(e.engineOpts, opt)
	}
}

// WithPlugin registers a thali plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Extension) {
		e.engineOpts = append(e.engineOpts, thali.WithPlugin(p))
	}
}

// WithConfig sets the Forge extension configuration.
func WithConfig(cfg Config) Option {
	return func(e *Extension) { e.config = cfg }
}

// WithDisableMigrate prevents auto-migration on start.
func WithDisableMigrate() Option {
	return func(e *Extension) { e.config.DisableMigrate = true }
}

// WithRequireConfig requires config to be present in YAML files.
// If true and no config is found, Register returns an error.
func WithRequireConfig(require bool) Option {
	return func(e *Extension) { e.config.RequireConfig = require }
}

// WithMaxAdvanceDays sets how far ahead customizations may target a delivery.
func WithMaxAdvanceDays(days int) Option {
	return func(e *Extension) { e.config.MaxAdvanceDays = days }
}

// WithRateLimit sets the per-subscription create rate limit.
func WithRateLimit(count int64, per time.Duration) Option {
	return func(e *Extension) {
		e.config.RateLimitCount = count
		e.config.RateLimitWindow = per
	}
}

// WithRazorpay sets the Razorpay API credentials for the built-in gateway.
func WithRazorpay(keyID, keySecret string) Option {
	return func(e *Extension) {
		e.config.RazorpayKeyID = keyID
		e.config.RazorpayKeySecret = keySecret
	}
}
