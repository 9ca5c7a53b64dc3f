// Package thali provides a meal customization validation and
// payment-consistency engine for meal subscription platforms.
//
// Thali is designed as a library, not a service. Import it directly into
// your Go application. It provides:
//
//   - Shift-aware ordering windows with hard same-day cutoffs
//   - A layered admission pipeline for meal customizations
//   - Integer-only pricing with replacement deltas and cart caps
//   - Payment-state consistency validation and repair
//   - Idempotent projection of settled customizations into the
//     subscription's replacement ledger
//   - Pluggable payment gateway integration (Razorpay built-in)
//
// # Quick Start
//
// Create an engine with your preferred store:
//
//	import (
//	    "github.com/xraph/thali"
//	    "github.com/xraph/thali/payment/razorpay"
//	    "github.com/xraph/thali/store/memory"
//	)
//
//	store := memory.New()
//	engine := thali.New(store,
//	    thali.WithGateway(razorpay.New(keyID, keySecret)),
//	)
//
//	if err := engine.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer engine.Stop()
//
// # Core Concepts
//
// Customizations target one or more delivery slots of a subscription:
//
//	cust, err := engine.CreateCustomization(ctx, thali.CreateCommand{
//	    UserID:             userID,
//	    SubscriptionID:     subID,
//	    Type:               customization.TypeOneTime,
//	    Target:             customization.Single(date, subscription.ShiftMorning),
//	    ReplacementThaliID: paneerThaliID,
//	})
//
// Admission rejections carry machine codes:
//
//	if thali.IsReject(err) {
//	    code := thali.RejectCode(err) // e.g. "TIME_LIMIT_EXCEEDED"
//	}
//
// Positive payables go through the gateway; zero payables settle
// immediately:
//
//	intent, err := engine.CreatePaymentOrder(ctx, cust.ID, userID)
//	if !intent.AutoApproved {
//	    // Hand intent.OrderID to the checkout, then:
//	    cust, err = engine.VerifyPayment(ctx, cust.ID, userID, proof)
//	}
//
// All monetary calculations use integer arithmetic to avoid floating-point
// precision issues. The Money type represents amounts in the smallest
// currency unit (paise for INR).
//
// # TypeID
//
// All entities use TypeID for globally unique, type-safe identifiers:
//
//	sub_01h2xcejqtf2nbrexx3vqjhp41    // Subscription ID
//	cust_01h2xcejqtf2nbrexx3vqjhp41   // Customization ID
//	thali_01h455vb4pex5vsknk084sn02q  // Catalog thali ID
//
// TypeIDs are K-sortable, making them ideal for database indexes and
// providing natural time-ordering of entities.
package thali
