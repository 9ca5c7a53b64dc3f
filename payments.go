package thali

import (
	"context"

	"github.com/xraph/thali/customization"
	"github.com/xraph/thali/id"
	"github.com/xraph/thali/payment"
	"github.com/xraph/thali/types"
)

// PaymentIntent is the result of placing (or short-circuiting) a payment
// order for a customization.
type PaymentIntent struct {
	CustomizationID id.CustomizationID
	OrderID         string
	Amount          types.Money
	// AutoApproved is set when nothing was payable: no gateway order was
	// placed and the customization settled immediately.
	AutoApproved bool
}

// CreatePaymentOrder places a gateway order for a customization's payable
// amount. Zero-or-negative payables auto-approve without touching the
// gateway. Re-invoking with an order already open returns the same order.
func (e *Engine) CreatePaymentOrder(ctx context.Context, custID id.CustomizationID, userID id.UserID) (*PaymentIntent, error) {
	c, err := e.store.GetCustomizationForUser(ctx, custID, userID)
	if err != nil {
		return nil, err
	}
	if !c.IsActive {
		return nil, ErrCustomizationInactive
	}

	payable := c.Pricing.TotalPayable

	if c.PaymentStatus.Paid() {
		return &PaymentIntent{
			CustomizationID: c.ID,
			OrderID:         c.RazorpayOrderID,
			Amount:          payable,
			AutoApproved:    c.RazorpayOrderID == "",
		}, nil
	}

	if !payable.IsPositive() {
		// Nothing to collect. Settle, confirm, and project.
		c.PaymentStatus = customization.PaymentPaid
		c.Status = customization.StatusConfirmed
		c.TouchAt(e.now())
		if err := e.store.UpdateCustomization(ctx, c); err != nil {
			return nil, err
		}

		sub, err := e.store.GetSubscription(ctx, c.SubscriptionID)
		if err != nil {
			return nil, err
		}
		if _, err := e.projectReplacement(ctx, sub, c); err != nil {
			e.logger.Error("failed to project auto-approved customization",
				"customization_id", c.ID,
				"error", err,
			)
		}

		e.logger.Info("payment auto-approved",
			"customization_id", c.ID,
			"payable", payable,
		)
		return &PaymentIntent{CustomizationID: c.ID, Amount: payable, AutoApproved: true}, nil
	}

	if e.gateway == nil {
		return nil, ErrNoGateway
	}

	// An open order is reused rather than duplicated at the gateway.
	if c.RazorpayOrderID != "" {
		return &PaymentIntent{CustomizationID: c.ID, OrderID: c.RazorpayOrderID, Amount: payable}, nil
	}

	order, err := e.gateway.CreateOrder(ctx, payable, c.ID.String(), map[string]string{
		"customization_id": c.ID.String(),
		"subscription_id":  c.SubscriptionID.String(),
	})
	if err != nil {
		return nil, err
	}

	c.RazorpayOrderID = order.ID
	c.TouchAt(e.now())
	if err := e.store.UpdateCustomization(ctx, c); err != nil {
		return nil, err
	}

	e.plugins.EmitPaymentOrderCreated(ctx, c, order.ID)
	e.logger.Info("payment order created",
		"customization_id", c.ID,
		"order_id", order.ID,
		"amount", payable,
	)

	return &PaymentIntent{CustomizationID: c.ID, OrderID: order.ID, Amount: payable}, nil
}

// VerifyPayment checks a checkout proof against the recorded order, settles
// the customization, and projects it into the subscription ledger.
// Re-verifying an already settled payment with the same proof is a no-op.
func (e *Engine) VerifyPayment(ctx context.Context, custID id.CustomizationID, userID id.UserID, proof payment.Proof) (*customization.Customization, error) {
	c, err := e.store.GetCustomizationForUser(ctx, custID, userID)
	if err != nil {
		return nil, err
	}
	if !c.IsActive {
		return nil, ErrCustomizationInactive
	}

	if c.PaymentStatus.Paid() {
		if c.RazorpayPaymentID != "" && c.RazorpayPaymentID == proof.PaymentID {
			return c, nil
		}
		return nil, ErrOrderMismatch
	}

	if c.RazorpayOrderID == "" {
		return nil, ErrPaymentNotPlaced
	}
	if proof.OrderID != c.RazorpayOrderID {
		return nil, ErrOrderMismatch
	}
	if e.gateway == nil {
		return nil, ErrNoGateway
	}

	if !e.gateway.VerifySignature(proof) {
		c.PaymentStatus = customization.PaymentFailed
		c.TouchAt(e.now())
		if err := e.store.UpdateCustomization(ctx, c); err != nil {
			e.logger.Error("failed to record payment failure",
				"customization_id", c.ID,
				"error", err,
			)
		}

		e.plugins.EmitPaymentFailed(ctx, c, CodePaymentSignatureMismatch)
		e.logger.Warn("payment signature mismatch",
			"customization_id", c.ID,
			"order_id", proof.OrderID,
		)
		return nil, reject(CodePaymentSignatureMismatch, "payment signature does not verify for order %s", proof.OrderID)
	}

	// Verified captures land on completed; paid is reserved for records that
	// settled at creation with nothing payable.
	c.PaymentStatus = customization.PaymentCompleted
	c.Status = customization.StatusConfirmed
	c.RazorpayPaymentID = proof.PaymentID
	c.TouchAt(e.now())
	if err := e.store.UpdateCustomization(ctx, c); err != nil {
		return nil, err
	}

	sub, err := e.store.GetSubscription(ctx, c.SubscriptionID)
	if err != nil {
		return nil, err
	}
	if _, err := e.projectReplacement(ctx, sub, c); err != nil {
		e.logger.Error("failed to project settled customization",
			"customization_id", c.ID,
			"error", err,
		)
	}

	e.plugins.EmitPaymentVerified(ctx, c, proof.PaymentID)
	e.logger.Info("payment verified",
		"customization_id", c.ID,
		"payment_id", proof.PaymentID,
	)

	return c, nil
}
