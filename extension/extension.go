// Package extension provides the Forge extension adapter for Thali.
//
// It implements the forge.Extension interface to integrate Thali
// into a Forge application with automatic dependency discovery,
// DI registration, and lifecycle management.
//
// Configuration can be provided programmatically via Option functions
// or via YAML configuration files under "extensions.thali" or "thali" keys.
package extension

import (
	"context"
	"errors"

	"github.com/xraph/forge"
	"github.com/xraph/vessel"

	thali "github.com/xraph/thali"
	"github.com/xraph/thali/payment/razorpay"
	"github.com/xraph/thali/store"
	"github.com/xraph/thali/store/memory"
	"github.com/xraph/thali/types"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "thali"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "Meal customization validation and payment-consistency engine"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

// Ensure Extension implements forge.Extension at compile time.
var _ forge.Extension = (*Extension)(nil)

// Extension adapts Thali as a Forge extension.
type Extension struct {
	*forge.BaseExtension

	config     Config
	engine     *thali.Engine
	store      store.Store
	engineOpts []thali.Option
}

// New creates a new Thali Forge extension with the given options.
func New(opts ...Option) *Extension {
	e := &Extension{
		BaseExtension: forge.NewBaseExtension(ExtensionName, ExtensionVersion, ExtensionDescription),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Engine returns the underlying Thali engine instance.
// This is nil until Register is called.
func (e *Extension) Engine() *thali.Engine { return e.engine }

// Register implements [forge.Extension]. It loads configuration,
// initializes the thali engine, and registers it in the DI container.
func (e *Extension) Register(fapp forge.App) error {
	if err := e.BaseExtension.Register(fapp); err != nil {
		return err
	}

	if err := e.loadConfiguration(); err != nil {
		return err
	}

	// Use memory store if no store was provided programmatically.
	if e.store == nil {
		e.store = memory.New()
	}

	// Build engine options from resolved config.
	opts := e.buildEngineOpts()

	eng := thali.New(e.store, opts...)
	e.engine = eng

	return vessel.Provide(fapp.Container(), func() (*thali.Engine, error) {
		return e.engine, nil
	})
}

// Start implements [forge.Extension].
func (e *Extension) Start(ctx context.Context) error {
	if e.engine == nil {
		return errors.New("thali: extension not initialized")
	}

	if !e.config.DisableMigrate {
		if err := e.engine.Start(ctx); err != nil {
			return err
		}
	}

	e.MarkStarted()
	return nil
}

// Stop implements [forge.Extension].
func (e *Extension) Stop(_ context.Context) error {
	if e.engine != nil {
		if err := e.engine.Stop(); err != nil {
			e.MarkStopped()
			return err
		}
	}
	e.MarkStopped()
	return nil
}

// Health implements [forge.Extension].
func (e *Extension) Health(ctx context.Context) error {
	if e.store == nil {
		return errors.New("thali: store not initialized")
	}
	return e.store.Ping(ctx)
}

// buildEngineOpts constructs thali.Option values from the resolved config.
func (e *Extension) buildEngineOpts() []thali.Option {
	opts := make([]thali.Option, 0, len(e.engineOpts)+5)

	if e.config.MaxAdvanceDays > 0 {
		opts = append(opts, thali.WithMaxAdvanceDays(e.config.MaxAdvanceDays))
	}
	if e.config.RateLimitCount > 0 && e.config.RateLimitWindow > 0 {
		opts = append(opts, thali.WithRateLimit(e.config.RateLimitCount, e.config.RateLimitWindow))
	}
	if e.config.BasePricePaise > 0 {
		opts = append(opts, thali.WithBasePrice(types.INR(e.config.BasePricePaise)))
	}
	if e.config.PriceWarningPaise > 0 {
		opts = append(opts, thali.WithPriceWarningThreshold(types.INR(e.config.PriceWarningPaise)))
	}
	if e.config.RazorpayKeyID != "" && e.config.RazorpayKeySecret != "" {
		opts = append(opts, thali.WithGateway(razorpay.New(e.config.RazorpayKeyID, e.config.RazorpayKeySecret)))
	}

	// Append any pass-through engine options.
	opts = append(opts, e.engineOpts...)

	return opts
}

// --- Config Loading (mirrors grove/shield extension pattern) ---

// loadConfiguration loads config from YAML files or programmatic sources.
func (e *Extension) loadConfiguration() error {
	programmaticConfig := e.config

	// Try loading from config file.
	fileConfig, configLoaded := e.tryLoadFromConfigFile()

	if !configLoaded {
		if programmaticConfig.RequireConfig {
			return errors.New("thali: configuration is required but not found in config files; " +
				"ensure 'extensions.thali' or 'thali' key exists in your config")
		}

		// Use programmatic config merged with defaults.
		e.config = e.mergeWithDefaults(programmaticConfig)
	} else {
		// Config loaded from YAML -- merge with programmatic options.
		e.config = e.mergeConfigurations(fileConfig, programmaticConfig)
	}

	e.Logger().Debug("thali: configuration loaded",
		forge.F("disable_migrate", e.config.DisableMigrate),
		forge.F("max_advance_days", e.config.MaxAdvanceDays),
		forge.F("rate_limit_count", e.config.RateLimitCount),
		forge.F("rate_limit_window", e.config.RateLimitWindow),
		forge.F("gateway_configured", e.config.RazorpayKeyID != ""),
	)

	return nil
}

// tryLoadFromConfigFile attempts to load config from YAML files.
func (e *Extension) tryLoadFromConfigFile() (Config, bool) {
	cm := e.App().Config()
	var cfg Config

	// Try "extensions.thali" first (namespaced pattern).
	if cm.IsSet("extensions.thali") {
		if err := cm.Bind("extensions.thali", &cfg); err == nil {
			e.Logger().Debug("thali: loaded config from file",
				forge.F("key", "extensions.thali"),
			)
			return cfg, true
		}
		e.Logger().Warn("thali: failed to bind extensions.thali config",
			forge.F("error", "bind failed"),
		)
	}

	// Try legacy "thali" key.
	if cm.IsSet("thali") {
		if err := cm.Bind("thali", &cfg); err == nil {
			e.Logger().Debug("thali: loaded config from file",
				forge.F("key", "thali"),
			)
			return cfg, true
		}
		e.Logger().Warn("thali: failed to bind thali config",
			forge.F("error", "bind failed"),
		)
	}

	return Config{}, false
}

// mergeWithDefaults fills zero-valued fields with defaults.
func (e *Extension) mergeWithDefaults(cfg Config) Config {
	defaults := DefaultConfig()
	if cfg.MaxAdvanceDays == 0 {
		cfg.MaxAdvanceDays = defaults.MaxAdvanceDays
	}
	if cfg.RateLimitCount == 0 {
		cfg.RateLimitCount = defaults.RateLimitCount
	}
	if cfg.RateLimitWindow == 0 {
		cfg.RateLimitWindow = defaults.RateLimitWindow
	}
	if cfg.PriceWarningPaise == 0 {
		cfg.PriceWarningPaise = defaults.PriceWarningPaise
	}
	return cfg
}

// mergeConfigurations merges YAML config with programmatic options.
// YAML config takes precedence for most fields; programmatic bool flags fill gaps.
func (e *Extension) mergeConfigurations(yamlConfig, programmaticConfig Config) Config {
	// Programmatic bool flags override when true.
	if programmaticConfig.DisableMigrate {
		yamlConfig.DisableMigrate = true
	}

	// String fields: YAML takes precedence.
	if yamlConfig.RazorpayKeyID == "" && programmaticConfig.RazorpayKeyID != "" {
		yamlConfig.RazorpayKeyID = programmaticConfig.RazorpayKeyID
	}
	if yamlConfig.RazorpayKeySecret == "" && programmaticConfig.RazorpayKeySecret != "" {
		yamlConfig.RazorpayKeySecret = programmaticConfig.RazorpayKeySecret
	}

	// Duration/int fields: YAML takes precedence, programmatic fills gaps.
	if yamlConfig.MaxAdvanceDays == 0 && programmaticConfig.MaxAdvanceDays != 0 {
		yamlConfig.MaxAdvanceDays = programmaticConfig.MaxAdvanceDays
	}
	if yamlConfig.RateLimitCount == 0 && programmaticConfig.RateLimitCount != 0 {
		yamlConfig.RateLimitCount = programmaticConfig.RateLimitCount
	}
	if yamlConfig.RateLimitWindow == 0 && programmaticConfig.RateLimitWindow != 0 {
		yamlConfig.RateLimitWindow = programmaticConfig.RateLimitWindow
	}
	if yamlConfig.BasePricePaise == 0 && programmaticConfig.BasePricePaise != 0 {
		yamlConfig.BasePricePaise = programmaticConfig.BasePricePaise
	}
	if yamlConfig.PriceWarningPaise == 0 && programmaticConfig.PriceWarningPaise != 0 {
		yamlConfig.PriceWarningPaise = programmaticConfig.PriceWarningPaise
	}

	// Fill remaining zeros with defaults.
	return e.mergeWithDefaults(yamlConfig)
}
