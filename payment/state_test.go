package payment_test

import (
	"testing"

	"github.com/xraph/thali/customization"
	"github.com/xraph/thali/payment"
	"github.com/xraph/thali/types"
)

func TestValidateState(t *testing.T) {
	tests := []struct {
		name       string
		payable    types.Money
		status     customization.PaymentStatus
		consistent bool
	}{
		{"zero payable pending", types.ZeroINR(), customization.PaymentPending, false},
		{"negative payable pending", types.Rupees(-25), customization.PaymentPending, false},
		{"zero payable paid", types.ZeroINR(), customization.PaymentPaid, true},
		{"zero payable completed", types.ZeroINR(), customization.PaymentCompleted, true},
		{"positive payable pending", types.Rupees(45), customization.PaymentPending, true},
		{"positive payable paid", types.Rupees(45), customization.PaymentPaid, true},
		{"positive payable failed", types.Rupees(45), customization.PaymentFailed, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := payment.ValidateState(tt.payable, tt.status)
			if r.Consistent != tt.consistent {
				t.Fatalf("consistent: got %v, want %v", r.Consistent, tt.consistent)
			}
			if !tt.consistent {
				if r.Reason != payment.ReasonZeroPending {
					t.Errorf("reason: got %q", r.Reason)
				}
				if r.Expected != customization.PaymentCompleted {
					t.Errorf("expected status: got %q, want completed", r.Expected)
				}
			}
		})
	}
}
