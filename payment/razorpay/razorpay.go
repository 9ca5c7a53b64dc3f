// Package razorpay adapts the Razorpay SDK to the payment.Gateway interface.
package razorpay

import (
	"context"
	"fmt"

	rzp "github.com/razorpay/razorpay-go"
	"github.com/razorpay/razorpay-go/utils"

	"github.com/xraph/thali/payment"
	"github.com/xraph/thali/types"
)

// Gateway is a payment.Gateway backed by Razorpay Orders.
type Gateway struct {
	client *rzp.Client
	secret string
}

var _ payment.Gateway = (*Gateway)(nil)

// New builds a gateway from API credentials.
func New(keyID, keySecret string) *Gateway {
	return &Gateway{
		client: rzp.NewClient(keyID, keySecret),
		secret: keySecret,
	}
}

// CreateOrder creates a Razorpay order for the amount in minor units.
func (g *Gateway) CreateOrder(_ context.Context, amount types.Money, receipt string, notes map[string]string) (*payment.Order, error) {
	data := map[string]interface{}{
		"amount":   amount.Amount,
		"currency": amount.Currency,
		"receipt":  receipt,
	}
	if len(notes) > 0 {
		n := make(map[string]interface{}, len(notes))
		for k, v := range notes {
			n[k] = v
		}
		data["notes"] = n
	}

	body, err := g.client.Order.Create(data, nil)
	if err != nil {
		return nil, fmt.Errorf("razorpay: create order: %w", err)
	}

	orderID, _ := body["id"].(string)
	if orderID == "" {
		return nil, fmt.Errorf("razorpay: create order: response missing order id")
	}
	status, _ := body["status"].(string)

	return &payment.Order{
		ID:      orderID,
		Amount:  amount,
		Receipt: receipt,
		Status:  status,
		Notes:   notes,
	}, nil
}

// VerifySignature checks the HMAC the checkout returned against the order
// and payment pair.
func (g *Gateway) VerifySignature(proof payment.Proof) bool {
	params := map[string]interface{}{
		"razorpay_order_id":   proof.OrderID,
		"razorpay_payment_id": proof.PaymentID,
	}
	return utils.VerifyPaymentSignature(params, proof.Signature, g.secret)
}
