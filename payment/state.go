package payment

import (
	"fmt"

	"github.com/xraph/thali/customization"
	"github.com/xraph/thali/types"
)

// ReasonZeroPending marks the one inconsistent combination: nothing payable
// yet the record still claims a payment is pending.
const ReasonZeroPending = "INVALID_PAYMENT_STATE_ZERO_PENDING"

// StateResult reports whether an (amount payable, payment status) pair is
// internally consistent, and how to repair it when it is not.
type StateResult struct {
	Consistent bool
	Reason     string
	Detail     string
	// Expected is the status a repair should move the record to. Only set
	// for inconsistent pairs. Repairs use completed rather than paid: no
	// money was ever captured.
	Expected customization.PaymentStatus
}

// ValidateState checks the payment-state invariant: a record with nothing
// payable must never sit in pending. Positive payable amounts are valid in
// any status, since pending, paid, and failed are all reachable legitimately.
func ValidateState(payable types.Money, status customization.PaymentStatus) StateResult {
	if !payable.IsPositive() && status == customization.PaymentPending {
		return StateResult{
			Consistent: false,
			Reason:     ReasonZeroPending,
			Detail:     fmt.Sprintf("payable %s cannot be pending payment", payable),
			Expected:   customization.PaymentCompleted,
		}
	}
	return StateResult{Consistent: true}
}
