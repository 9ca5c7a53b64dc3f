package thali

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for common failure scenarios.
var (
	// General errors
	ErrNotFound     = errors.New("thali: not found")
	ErrInvalidInput = errors.New("thali: invalid input")
	ErrForbidden    = errors.New("thali: forbidden")

	// Subscription errors
	ErrSubscriptionNotFound = errors.New("thali: subscription not found")
	ErrSubscriptionInactive = errors.New("thali: subscription is not active")
	ErrNoMealPlan           = errors.New("thali: subscription has no meal plan")

	// Catalog errors
	ErrThaliNotFound       = errors.New("thali: thali not found")
	ErrExtraItemNotFound   = errors.New("thali: extra item not found")
	ErrThaliNotReplaceable = errors.New("thali: thali cannot be used as a replacement")

	// Customization errors
	ErrCustomizationNotFound = errors.New("thali: customization not found")
	ErrCustomizationInactive = errors.New("thali: customization is inactive")
	ErrNotPending            = errors.New("thali: customization is not pending")

	// Payment errors
	ErrNoGateway        = errors.New("thali: no payment gateway configured")
	ErrNothingPayable   = errors.New("thali: nothing payable on this customization")
	ErrOrderMismatch    = errors.New("thali: payment proof does not match the recorded order")
	ErrBadSignature     = errors.New("thali: payment signature verification failed")
	ErrPaymentNotPlaced = errors.New("thali: no payment order placed for this customization")

	// Store errors
	ErrStoreClosed     = errors.New("thali: store is closed")
	ErrMigrationFailed = errors.New("thali: migration failed")
	ErrLedgerConflict  = errors.New("thali: concurrent ledger write lost, retry")
)

// Rejection codes. Every admission denial carries exactly one of these so
// callers can branch without parsing messages.
const (
	CodeSubscriptionNotActive      = "SUBSCRIPTION_NOT_ACTIVE"
	CodeNoMealPlan                 = "NO_MEAL_PLAN_SELECTED"
	CodeInvalidShift               = "INVALID_SHIFT_FOR_SUBSCRIPTION"
	CodeInvalidShiftsInDates       = "INVALID_SHIFTS_IN_DATES"
	CodePastDate                   = "PAST_DATE_NOT_ALLOWED"
	CodeTimeLimitExceeded          = "TIME_LIMIT_EXCEEDED"
	CodeTooFarInAdvance            = "TOO_FAR_IN_ADVANCE"
	CodeMealSkipped                = "MEAL_ALREADY_SKIPPED"
	CodeDuplicatePaidReplacement   = "DUPLICATE_PAID_REPLACEMENT"
	CodeDuplicatePaidLedgerEntry   = "DUPLICATE_PAID_THALI_REPLACEMENT"
	CodeConflictingPaymentState    = "CONFLICTING_INVALID_PAYMENT_STATE"
	CodeThaliNotReplaceable        = "THALI_NOT_REPLACEABLE"
	CodeThaliUnavailable           = "THALI_UNAVAILABLE"
	CodeExtraItemUnavailable       = "EXTRA_ITEM_UNAVAILABLE"
	CodeTooManyAddOns              = "TOO_MANY_ADDONS"
	CodeInvalidAddOnQuantity       = "INVALID_ADDON_QUANTITY"
	CodeTooManyExtraItems          = "TOO_MANY_EXTRA_ITEMS"
	CodeInvalidExtraItemQuantity   = "INVALID_EXTRA_ITEM_QUANTITY"
	CodeExtraItemsValueExceeded    = "EXTRA_ITEMS_VALUE_EXCEEDED"
	CodePriceDifferenceWarning     = "PRICE_DIFFERENCE_WARNING"
	CodeInvalidPaymentStateZero    = "INVALID_PAYMENT_STATE_ZERO_PENDING"
	CodePaymentSignatureMismatch   = "PAYMENT_SIGNATURE_MISMATCH"
	CodeRateLimitExceeded          = "RATE_LIMIT_EXCEEDED"
	CodeInvalidTarget              = "INVALID_TARGET"
	CodeImmutableAfterConfirmation = "IMMUTABLE_AFTER_CONFIRMATION"
)

// Reject is a structured admission denial. It is an error so it flows
// through normal error returns, but carries a machine code and context map
// an API layer can serialize directly.
type Reject struct {
	Code    string
	Message string
	Context map[string]any

	// RequireConfirmation marks soft rejections: resubmitting the same
	// request with confirmation acknowledged will be admitted.
	RequireConfirmation bool
}

func (r *Reject) Error() string {
	return fmt.Sprintf("thali: rejected [%s]: %s", r.Code, r.Message)
}

func reject(code, format string, args ...any) *Reject {
	return &Reject{Code: code, Message: fmt.Sprintf(format, args...)}
}

func (r *Reject) withContext(key string, value any) *Reject {
	if r.Context == nil {
		r.Context = map[string]any{}
	}
	r.Context[key] = value
	return r
}

// IsReject reports whether err is (or wraps) an admission rejection.
func IsReject(err error) bool {
	var r *Reject
	return errors.As(err, &r)
}

// RejectCode returns the rejection code, or "" for non-rejection errors.
func RejectCode(err error) string {
	var r *Reject
	if errors.As(err, &r) {
		return r.Code
	}
	return ""
}

// HTTPStatus maps an engine error to the status an API layer should return.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case IsReject(err):
		switch RejectCode(err) {
		case CodeRateLimitExceeded:
			return http.StatusTooManyRequests
		case CodePriceDifferenceWarning:
			// Soft rejection: the same request succeeds once confirmed.
			return http.StatusBadRequest
		}
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrBadSignature), errors.Is(err, ErrOrderMismatch):
		return http.StatusBadRequest
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// IsNotFound returns true if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrSubscriptionNotFound) ||
		errors.Is(err, ErrThaliNotFound) ||
		errors.Is(err, ErrExtraItemNotFound) ||
		errors.Is(err, ErrCustomizationNotFound)
}

// IsRetryable returns true if the error is temporary and the operation can
// be retried.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrLedgerConflict)
}
