package audithook

// Action constants for audit events.
const (
	// Subscription actions
	ActionSubscriptionCreated = "subscription.created"

	// Customization actions
	ActionCustomizationCreated  = "customization.created"
	ActionCustomizationUpdated  = "customization.updated"
	ActionCustomizationRejected = "customization.rejected"
	ActionRateLimited           = "customization.rate_limited"

	// Payment actions
	ActionPaymentOrderCreated = "payment.order_created"
	ActionPaymentVerified     = "payment.verified"
	ActionPaymentFailed       = "payment.failed"

	// Ledger actions
	ActionLedgerProjected = "ledger.projected"
	ActionLedgerSynced    = "ledger.synced"

	// Cleanup actions
	ActionCleanupApplied = "cleanup.applied"
)

// Resource constants for audit events.
const (
	ResourceSubscription  = "subscription"
	ResourceCustomization = "customization"
	ResourcePayment       = "payment"
	ResourceLedger        = "ledger"
)

// Category constants for audit events.
const (
	CategorySubscription = "subscription"
	CategoryAdmission    = "admission"
	CategoryPayment      = "payment"
	CategoryLedger       = "ledger"
)

// Severity levels for audit events.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

// Outcome values for audit events.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomePartial = "partial"
)
