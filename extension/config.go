package extension

import "time"

// Config holds the Thali extension configuration.
// Fields can be set programmatically via Option functions or loaded from
// YAML configuration files (under "extensions.thali" or "thali" keys).
type Config struct {
	// DisableMigrate prevents auto-migration on start.
	DisableMigrate bool `json:"disable_migrate" mapstructure:"disable_migrate" yaml:"disable_migrate"`

	// MaxAdvanceDays is how far ahead customizations may target a delivery
	// (default: 7).
	MaxAdvanceDays int `json:"max_advance_days" mapstructure:"max_advance_days" yaml:"max_advance_days"`

	// RateLimitCount is the number of customization creates allowed per
	// subscription within RateLimitWindow (default: 5).
	RateLimitCount int64 `json:"rate_limit_count" mapstructure:"rate_limit_count" yaml:"rate_limit_count"`

	// RateLimitWindow is the sliding window for the create rate limit
	// (default: 5m).
	RateLimitWindow time.Duration `json:"rate_limit_window" mapstructure:"rate_limit_window" yaml:"rate_limit_window"`

	// BasePricePaise is the fallback per-meal base price in paise, used when
	// a subscription carries no base price of its own.
	BasePricePaise int64 `json:"base_price_paise" mapstructure:"base_price_paise" yaml:"base_price_paise"`

	// PriceWarningPaise is the cheaper-replacement threshold in paise beyond
	// which admission asks for explicit confirmation (default: 2000 = ₹20).
	PriceWarningPaise int64 `json:"price_warning_paise" mapstructure:"price_warning_paise" yaml:"price_warning_paise"`

	// RazorpayKeyID and RazorpayKeySecret configure the built-in Razorpay
	// gateway. When both are set the extension wires the gateway
	// automatically; leave empty to run without one (zero payables still
	// auto-approve).
	RazorpayKeyID     string `json:"razorpay_key_id" mapstructure:"razorpay_key_id" yaml:"razorpay_key_id"`
	RazorpayKeySecret string `json:"razorpay_key_secret" mapstructure:"razorpay_key_secret" yaml:"razorpay_key_secret"`

	// RequireConfig requires config to be present in YAML files.
	// If true and no config is found, Register returns an error.
	RequireConfig bool `json:"-" yaml:"-"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxAdvanceDays:    7,
		RateLimitCount:    5,
		RateLimitWindow:   5 * time.Minute,
		PriceWarningPaise: 2000,
	}
}
