// Package pricing computes the price breakdown of a customization from
// catalog-resolved inputs. It is pure: callers resolve thali and extra-item
// prices first, Compute only does arithmetic and cap enforcement.
package pricing

import (
	"fmt"

	"github.com/xraph/thali/customization"
	"github.com/xraph/thali/types"
)

// Cart caps. Quantities outside these bounds and carts above these sizes are
// rejected before any money moves.
const (
	MaxAddOnQuantity     = 5
	MaxDistinctAddOns    = 10
	MaxExtraItemQuantity = 3
	MaxDistinctExtras    = 5
)

// MaxExtraItemsValue caps the combined extra-items spend per customization.
var MaxExtraItemsValue = types.Rupees(500)

// DefaultPriceWarningThreshold: replacements cheaper than the base meal by
// more than this require explicit confirmation.
var DefaultPriceWarningThreshold = types.Rupees(20)

// RuleKind identifies which cart cap a request broke.
type RuleKind string

const (
	RuleTooManyAddOns        RuleKind = "TOO_MANY_ADDONS"
	RuleInvalidAddOnQuantity RuleKind = "INVALID_ADDON_QUANTITY"
	RuleTooManyExtras        RuleKind = "TOO_MANY_EXTRA_ITEMS"
	RuleInvalidExtraQuantity RuleKind = "INVALID_EXTRA_ITEM_QUANTITY"
	RuleExtrasValueExceeded  RuleKind = "EXTRA_ITEMS_VALUE_EXCEEDED"
	RuleNegativeCatalogPrice RuleKind = "NEGATIVE_CATALOG_PRICE"
)

// RuleError reports a cart-cap violation. Context carries the violated
// bound and the offending value in machine-readable form.
type RuleError struct {
	Kind    RuleKind
	Message string
	Context map[string]any
}

func (e *RuleError) Error() string { return "pricing: " + e.Message }

func ruleErr(kind RuleKind, format string, args ...any) *RuleError {
	return &RuleError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func (e *RuleError) with(key string, value any) *RuleError {
	if e.Context == nil {
		e.Context = map[string]any{}
	}
	e.Context[key] = value
	return e
}

// Inputs are the catalog-resolved facts Compute works from. ExtraItems must
// already carry their catalog price.
type Inputs struct {
	BasePrice types.Money

	// Replacement selection. ReplacementPrice is the replacement thali's
	// catalog price, meaningful only when HasReplacement is set.
	HasReplacement   bool
	ReplacementPrice types.Money

	AddOns     []customization.AddOn
	ExtraItems []customization.ExtraItem
}

// Warning flags a quote that needs explicit user confirmation before it may
// be admitted.
type Warning struct {
	Code    string
	Message string
	// SavedAmount is how much cheaper the replacement is than the base meal.
	SavedAmount types.Money
}

// Quote is the computed breakdown plus the payment status a fresh record
// should be seeded with.
type Quote struct {
	Pricing customization.Pricing
	// SeedPaymentStatus is paid when nothing is payable, pending otherwise.
	SeedPaymentStatus customization.PaymentStatus
	Warning           *Warning
}

// Compute validates the cart against the caps and derives the breakdown.
//
// With a replacement, the payable amount is the add-on and extra spend plus
// the signed price difference between the replacement and the base meal; a
// cheaper replacement credits the difference. Without one, the full total is
// due: the base meal plus add-ons and extras.
func Compute(in Inputs, warningThreshold types.Money) (*Quote, error) {
	if in.BasePrice.IsNegative() {
		return nil, ruleErr(RuleNegativeCatalogPrice, "base price %s is negative", in.BasePrice)
	}
	if in.HasReplacement && in.ReplacementPrice.IsNegative() {
		return nil, ruleErr(RuleNegativeCatalogPrice, "replacement price %s is negative", in.ReplacementPrice)
	}
	if warningThreshold.IsZero() {
		warningThreshold = DefaultPriceWarningThreshold
	}

	if len(in.AddOns) > MaxDistinctAddOns {
		return nil, ruleErr(RuleTooManyAddOns, "cart has %d add-ons, max %d", len(in.AddOns), MaxDistinctAddOns)
	}
	addOnTotal := types.ZeroINR()
	for _, a := range in.AddOns {
		if a.Quantity < 1 || a.Quantity > MaxAddOnQuantity {
			return nil, ruleErr(RuleInvalidAddOnQuantity, "add-on %q quantity %d outside 1..%d", a.Name, a.Quantity, MaxAddOnQuantity)
		}
		addOnTotal = addOnTotal.Add(a.Price.Multiply(int64(a.Quantity)))
	}

	if len(in.ExtraItems) > MaxDistinctExtras {
		return nil, ruleErr(RuleTooManyExtras, "cart has %d extra items, max %d", len(in.ExtraItems), MaxDistinctExtras)
	}
	extraTotal := types.ZeroINR()
	for _, e := range in.ExtraItems {
		if e.Quantity < 1 || e.Quantity > MaxExtraItemQuantity {
			return nil, ruleErr(RuleInvalidExtraQuantity, "extra item %s quantity %d outside 1..%d", e.ItemID, e.Quantity, MaxExtraItemQuantity)
		}
		extraTotal = extraTotal.Add(e.Price.Multiply(int64(e.Quantity)))
	}
	if extraTotal.GreaterThan(MaxExtraItemsValue) {
		return nil, ruleErr(RuleExtrasValueExceeded, "extra items total %s exceeds %s", extraTotal, MaxExtraItemsValue).
			with("max_value", MaxExtraItemsValue.String()).
			with("current_value", extraTotal.String())
	}

	p := customization.Pricing{
		BasePrice:      in.BasePrice,
		AddOnPrice:     addOnTotal,
		ExtraItemPrice: extraTotal,
	}
	p.TotalPrice = in.BasePrice.Add(addOnTotal).Add(extraTotal)

	q := &Quote{}
	if in.HasReplacement {
		p.ReplacementPrice = in.ReplacementPrice.Subtract(in.BasePrice)
		p.TotalPayable = addOnTotal.Add(extraTotal).Add(p.ReplacementPrice)

		saved := in.BasePrice.Subtract(in.ReplacementPrice)
		if saved.GreaterThan(warningThreshold) {
			q.Warning = &Warning{
				Code:        "PRICE_DIFFERENCE_WARNING",
				Message:     fmt.Sprintf("replacement is %s cheaper than the subscribed meal", saved),
				SavedAmount: saved,
			}
		}
	} else {
		p.ReplacementPrice = types.ZeroINR()
		p.TotalPayable = p.TotalPrice
	}

	q.Pricing = p
	if p.TotalPayable.IsPositive() {
		q.SeedPaymentStatus = customization.PaymentPending
	} else {
		q.SeedPaymentStatus = customization.PaymentPaid
	}
	return q, nil
}
