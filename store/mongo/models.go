package mongo

import (
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/thali/catalog"
	"github.com/xraph/thali/customization"
	"github.com/xraph/thali/id"
	"github.com/xraph/thali/subscription"
	"github.com/xraph/thali/types"
)

// ==================== Subscription models ====================

type subscriptionModel struct {
	grove.BaseModel `grove:"table:thali_subscriptions"`

	ID             string `grove:"id,pk"           bson:"_id"`
	UserID         string `grove:"user_id"         bson:"user_id"`
	MealPlanID     string `grove:"meal_plan_id"    bson:"meal_plan_id"`
	Status         string `grove:"status"          bson:"status"`
	Shift          string `grove:"shift"           bson:"shift,omitempty"`
	DefaultThaliID string `grove:"default_thali_id" bson:"default_thali_id,omitempty"`

	StartDate time.Time `grove:"start_date" bson:"start_date"`
	EndDate   time.Time `grove:"end_date"   bson:"end_date,omitempty"`

	BasePricePaise int64  `grove:"base_price_paise" bson:"base_price_paise"`
	Currency       string `grove:"currency"         bson:"currency"`

	DeliveryMorning bool     `grove:"delivery_morning" bson:"delivery_morning"`
	DeliveryEvening bool     `grove:"delivery_evening" bson:"delivery_evening"`
	DeliveryDays    []int    `grove:"delivery_days"    bson:"delivery_days,omitempty"`
	MealPlanShifts  []string `grove:"meal_plan_shifts" bson:"meal_plan_shifts,omitempty"`

	SkippedMeals       []skippedMealModel      `grove:"skipped_meals"      bson:"skipped_meals,omitempty"`
	ThaliReplacements  []replacementEntryModel `grove:"thali_replacements" bson:"thali_replacements,omitempty"`
	DefaultReplacement *replacementEntryModel  `grove:"thali_replacement"  bson:"thali_replacement,omitempty"`
	CustomizationRefs  []string                `grove:"customization_refs" bson:"customization_refs,omitempty"`

	Metadata  map[string]string `grove:"metadata"   bson:"metadata,omitempty"`
	CreatedAt time.Time         `grove:"created_at" bson:"created_at"`
	UpdatedAt time.Time         `grove:"updated_at" bson:"updated_at"`
}

type skippedMealModel struct {
	Date  time.Time `bson:"date"`
	Shift string    `bson:"shift"`
}

type addOnModel struct {
	Name       string `bson:"name"`
	PricePaise int64  `bson:"price_paise"`
	Currency   string `bson:"currency"`
	Quantity   int    `bson:"quantity"`
}

type replacementEntryModel struct {
	OriginalThaliID      string       `bson:"original_thali_id"`
	ReplacementThaliID   string       `bson:"replacement_thali_id"`
	PriceDifferencePaise int64        `bson:"price_difference_paise"`
	Currency             string       `bson:"currency"`
	CustomizationID      string       `bson:"customization_id"`
	CustomizationType    string       `bson:"customization_type"`
	AddOns               []addOnModel `bson:"add_ons,omitempty"`
	AddOnsTotalPaise     int64        `bson:"add_ons_total_paise"`
	Date                 time.Time    `bson:"date"`
	Shift                string       `bson:"shift"`
	IsDefault            bool         `bson:"is_default"`
	ReplacedAt           time.Time    `bson:"replaced_at"`
}

func toSubscriptionModel(s *subscription.Subscription) *subscriptionModel {
	skipped := make([]skippedMealModel, len(s.SkippedMeals))
	for i, sk := range s.SkippedMeals {
		skipped[i] = skippedMealModel{Date: sk.Date, Shift: string(sk.Shift)}
	}

	replacements := make([]replacementEntryModel, len(s.ThaliReplacements))
	for i := range s.ThaliReplacements {
		replacements[i] = toReplacementEntryModel(&s.ThaliReplacements[i])
	}

	var defaultRepl *replacementEntryModel
	if s.DefaultReplacement != nil {
		m := toReplacementEntryModel(s.DefaultReplacement)
		defaultRepl = &m
	}

	refs := make([]string, len(s.CustomizationRefs))
	for i, r := range s.CustomizationRefs {
		refs[i] = r.String()
	}

	days := make([]int, len(s.DeliveryDays))
	for i, d := range s.DeliveryDays {
		days[i] = int(d)
	}

	shifts := make([]string, len(s.MealPlanShifts))
	for i, sh := range s.MealPlanShifts {
		shifts[i] = string(sh)
	}

	return &subscriptionModel{
		ID:                 s.ID.String(),
		UserID:             s.UserID.String(),
		MealPlanID:         s.MealPlanID.String(),
		Status:             string(s.Status),
		Shift:              string(s.Shift),
		DefaultThaliID:     s.DefaultThaliID.String(),
		StartDate:          s.StartDate,
		EndDate:            s.EndDate,
		BasePricePaise:     s.BasePricePerMeal.Amount,
		Currency:           s.BasePricePerMeal.Currency,
		DeliveryMorning:    s.DeliveryTiming.Morning,
		DeliveryEvening:    s.DeliveryTiming.Evening,
		DeliveryDays:       days,
		MealPlanShifts:     shifts,
		SkippedMeals:       skipped,
		ThaliReplacements:  replacements,
		DefaultReplacement: defaultRepl,
		CustomizationRefs:  refs,
		Metadata:           s.Metadata,
		CreatedAt:          s.CreatedAt,
		UpdatedAt:          s.UpdatedAt,
	}
}

func fromSubscriptionModel(m *subscriptionModel) (*subscription.Subscription, error) {
	subID, err := id.ParseSubscriptionID(m.ID)
	if err != nil {
		return nil, err
	}
	userID, err := id.ParseUserID(m.UserID)
	if err != nil {
		return nil, err
	}
	planID, err := id.ParseMealPlanID(m.MealPlanID)
	if err != nil {
		return nil, err
	}
	defaultThali, err := parseOptionalThaliID(m.DefaultThaliID)
	if err != nil {
		return nil, err
	}

	skipped := make([]subscription.SkippedMeal, len(m.SkippedMeals))
	for i, sk := range m.SkippedMeals {
		skipped[i] = subscription.SkippedMeal{Date: sk.Date, Shift: subscription.Shift(sk.Shift)}
	}

	replacements := make([]subscription.ReplacementEntry, len(m.ThaliReplacements))
	for i := range m.ThaliReplacements {
		e, err := fromReplacementEntryModel(&m.ThaliReplacements[i])
		if err != nil {
			return nil, err
		}
		replacements[i] = *e
	}

	var defaultRepl *subscription.ReplacementEntry
	if m.DefaultReplacement != nil {
		defaultRepl, err = fromReplacementEntryModel(m.DefaultReplacement)
		if err != nil {
			return nil, err
		}
	}

	refs := make([]id.CustomizationID, len(m.CustomizationRefs))
	for i, r := range m.CustomizationRefs {
		refs[i], err = id.ParseCustomizationID(r)
		if err != nil {
			return nil, err
		}
	}

	days := make([]time.Weekday, len(m.DeliveryDays))
	for i, d := range m.DeliveryDays {
		days[i] = time.Weekday(d)
	}

	shifts := make([]subscription.Shift, len(m.MealPlanShifts))
	for i, sh := range m.MealPlanShifts {
		shifts[i] = subscription.Shift(sh)
	}

	return &subscription.Subscription{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:                 subID,
		UserID:             userID,
		MealPlanID:         planID,
		Status:             subscription.Status(m.Status),
		Shift:              subscription.Shift(m.Shift),
		StartDate:          m.StartDate,
		EndDate:            m.EndDate,
		DefaultThaliID:     defaultThali,
		BasePricePerMeal:   types.Money{Amount: m.BasePricePaise, Currency: m.Currency},
		DeliveryTiming:     subscription.DeliveryTiming{Morning: m.DeliveryMorning, Evening: m.DeliveryEvening},
		DeliveryDays:       days,
		MealPlanShifts:     shifts,
		SkippedMeals:       skipped,
		ThaliReplacements:  replacements,
		DefaultReplacement: defaultRepl,
		CustomizationRefs:  refs,
		Metadata:           m.Metadata,
	}, nil
}

func toReplacementEntryModel(e *subscription.ReplacementEntry) replacementEntryModel {
	addOns := make([]addOnModel, len(e.AddOns))
	for i, a := range e.AddOns {
		addOns[i] = addOnModel{
			Name:       a.Name,
			PricePaise: a.Price.Amount,
			Currency:   a.Price.Currency,
			Quantity:   a.Quantity,
		}
	}
	return replacementEntryModel{
		OriginalThaliID:      e.OriginalThaliID.String(),
		ReplacementThaliID:   e.ReplacementThaliID.String(),
		PriceDifferencePaise: e.PriceDifference.Amount,
		Currency:             e.PriceDifference.Currency,
		CustomizationID:      e.CustomizationID.String(),
		CustomizationType:    e.CustomizationType,
		AddOns:               addOns,
		AddOnsTotalPaise:     e.AddOnsTotal.Amount,
		Date:                 e.Date,
		Shift:                string(e.Shift),
		IsDefault:            e.IsDefault,
		ReplacedAt:           e.ReplacedAt,
	}
}

func fromReplacementEntryModel(m *replacementEntryModel) (*subscription.ReplacementEntry, error) {
	origID, err := parseOptionalThaliID(m.OriginalThaliID)
	if err != nil {
		return nil, err
	}
	replID, err := id.ParseThaliID(m.ReplacementThaliID)
	if err != nil {
		return nil, err
	}
	custID, err := id.ParseCustomizationID(m.CustomizationID)
	if err != nil {
		return nil, err
	}

	addOns := make([]subscription.AddOn, len(m.AddOns))
	for i, a := range m.AddOns {
		addOns[i] = subscription.AddOn{
			Name:     a.Name,
			Price:    types.Money{Amount: a.PricePaise, Currency: a.Currency},
			Quantity: a.Quantity,
		}
	}

	return &subscription.ReplacementEntry{
		OriginalThaliID:    origID,
		ReplacementThaliID: replID,
		PriceDifference:    types.Money{Amount: m.PriceDifferencePaise, Currency: m.Currency},
		CustomizationID:    custID,
		CustomizationType:  m.CustomizationType,
		AddOns:             addOns,
		AddOnsTotal:        types.Money{Amount: m.AddOnsTotalPaise, Currency: m.Currency},
		Date:               m.Date,
		Shift:              subscription.Shift(m.Shift),
		IsDefault:          m.IsDefault,
		ReplacedAt:         m.ReplacedAt,
	}, nil
}

// ==================== Catalog models ====================

type thaliModel struct {
	grove.BaseModel `grove:"table:thali_catalog"`

	ID            string            `grove:"id,pk"          bson:"_id"`
	Name          string            `grove:"name"           bson:"name"`
	Description   string            `grove:"description"    bson:"description,omitempty"`
	PricePaise    int64             `grove:"price_paise"    bson:"price_paise"`
	Currency      string            `grove:"currency"       bson:"currency"`
	IsReplaceable bool              `grove:"is_replaceable" bson:"is_replaceable"`
	IsAvailable   bool              `grove:"is_available"   bson:"is_available"`
	Metadata      map[string]string `grove:"metadata"       bson:"metadata,omitempty"`
	CreatedAt     time.Time         `grove:"created_at"     bson:"created_at"`
	UpdatedAt     time.Time         `grove:"updated_at"     bson:"updated_at"`
}

func toThaliModel(t *catalog.Thali) *thaliModel {
	return &thaliModel{
		ID:            t.ID.String(),
		Name:          t.Name,
		Description:   t.Description,
		PricePaise:    t.Price.Amount,
		Currency:      t.Price.Currency,
		IsReplaceable: t.IsReplaceable,
		IsAvailable:   t.IsAvailable,
		Metadata:      t.Metadata,
		CreatedAt:     t.CreatedAt,
		UpdatedAt:     t.UpdatedAt,
	}
}

func fromThaliModel(m *thaliModel) (*catalog.Thali, error) {
	thaliID, err := id.ParseThaliID(m.ID)
	if err != nil {
		return nil, err
	}
	return &catalog.Thali{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:            thaliID,
		Name:          m.Name,
		Description:   m.Description,
		Price:         types.Money{Amount: m.PricePaise, Currency: m.Currency},
		IsReplaceable: m.IsReplaceable,
		IsAvailable:   m.IsAvailable,
		Metadata:      m.Metadata,
	}, nil
}

type extraItemModel struct {
	grove.BaseModel `grove:"table:thali_extra_items"`

	ID          string    `grove:"id,pk"        bson:"_id"`
	Name        string    `grove:"name"         bson:"name"`
	PricePaise  int64     `grove:"price_paise"  bson:"price_paise"`
	Currency    string    `grove:"currency"     bson:"currency"`
	IsAvailable bool      `grove:"is_available" bson:"is_available"`
	CreatedAt   time.Time `grove:"created_at"   bson:"created_at"`
	UpdatedAt   time.Time `grove:"updated_at"   bson:"updated_at"`
}

func toExtraItemModel(item *catalog.ExtraItem) *extraItemModel {
	return &extraItemModel{
		ID:          item.ID.String(),
		Name:        item.Name,
		PricePaise:  item.Price.Amount,
		Currency:    item.Price.Currency,
		IsAvailable: item.IsAvailable,
		CreatedAt:   item.CreatedAt,
		UpdatedAt:   item.UpdatedAt,
	}
}

func fromExtraItemModel(m *extraItemModel) (*catalog.ExtraItem, error) {
	itemID, err := id.ParseExtraItemID(m.ID)
	if err != nil {
		return nil, err
	}
	return &catalog.ExtraItem{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:          itemID,
		Name:        m.Name,
		Price:       types.Money{Amount: m.PricePaise, Currency: m.Currency},
		IsAvailable: m.IsAvailable,
	}, nil
}

// ==================== Customization models ====================

type customizationModel struct {
	grove.BaseModel `grove:"table:thali_customizations"`

	ID             string `grove:"id,pk"           bson:"_id"`
	UserID         string `grove:"user_id"         bson:"user_id"`
	SubscriptionID string `grove:"subscription_id" bson:"subscription_id"`
	Type           string `grove:"type"            bson:"type"`

	// Primary slot, denormalized from the target for the conflict index.
	Date  time.Time `grove:"date"  bson:"date"`
	Shift string    `grove:"shift" bson:"shift"`

	Target targetModel `grove:"target" bson:"target"`

	ReplacementThaliID string              `grove:"replacement_thali_id" bson:"replacement_thali_id,omitempty"`
	AddOns             []addOnModel        `grove:"add_ons"              bson:"add_ons,omitempty"`
	ExtraItems         []extraItemRefModel `grove:"extra_items"          bson:"extra_items,omitempty"`

	DietaryPreference string `grove:"dietary_preference" bson:"dietary_preference,omitempty"`
	SpiceLevel        string `grove:"spice_level"        bson:"spice_level,omitempty"`
	Preferences       string `grove:"preferences"        bson:"preferences,omitempty"`
	Notes             string `grove:"notes"              bson:"notes,omitempty"`

	Pricing       pricingModel `grove:"pricing"        bson:"pricing"`
	PaymentStatus string       `grove:"payment_status" bson:"payment_status"`
	Status        string       `grove:"status"         bson:"status"`

	RazorpayOrderID   string `grove:"razorpay_order_id"   bson:"razorpay_order_id,omitempty"`
	RazorpayPaymentID string `grove:"razorpay_payment_id" bson:"razorpay_payment_id,omitempty"`
	RejectionReason   string `grove:"rejection_reason"    bson:"rejection_reason,omitempty"`

	IsDefault bool   `grove:"is_default" bson:"is_default"`
	IsActive  bool   `grove:"is_active"  bson:"is_active"`
	CreatedBy string `grove:"created_by" bson:"created_by,omitempty"`
	UpdatedBy string `grove:"updated_by" bson:"updated_by,omitempty"`

	CreatedAt time.Time `grove:"created_at" bson:"created_at"`
	UpdatedAt time.Time `grove:"updated_at" bson:"updated_at"`
}

type targetModel struct {
	Kind     string      `bson:"kind"`
	Slot     *slotModel  `bson:"slot,omitempty"`
	Slots    []slotModel `bson:"slots,omitempty"`
	StartsAt time.Time   `bson:"starts_at,omitempty"`
	EndsAt   time.Time   `bson:"ends_at,omitempty"`
	Shift    string      `bson:"shift,omitempty"`
}

type slotModel struct {
	Date  time.Time `bson:"date"`
	Shift string    `bson:"shift"`
}

type extraItemRefModel struct {
	ItemID     string `bson:"item_id"`
	Quantity   int    `bson:"quantity"`
	PricePaise int64  `bson:"price_paise"`
	Currency   string `bson:"currency"`
}

type pricingModel struct {
	Currency         string `bson:"currency"`
	BasePaise        int64  `bson:"base_paise"`
	AddOnPaise       int64  `bson:"addon_paise"`
	ExtraItemPaise   int64  `bson:"extra_item_paise"`
	ReplacementPaise int64  `bson:"replacement_paise"`
	TotalPaise       int64  `bson:"total_paise"`
	PayablePaise     int64  `bson:"payable_paise"`
}

func toCustomizationModel(c *customization.Customization) *customizationModel {
	addOns := make([]addOnModel, len(c.AddOns))
	for i, a := range c.AddOns {
		addOns[i] = addOnModel{
			Name:       a.Name,
			PricePaise: a.Price.Amount,
			Currency:   a.Price.Currency,
			Quantity:   a.Quantity,
		}
	}

	extras := make([]extraItemRefModel, len(c.ExtraItems))
	for i, e := range c.ExtraItems {
		extras[i] = extraItemRefModel{
			ItemID:     e.ItemID.String(),
			Quantity:   e.Quantity,
			PricePaise: e.Price.Amount,
			Currency:   e.Price.Currency,
		}
	}

	target := targetModel{
		Kind:     string(c.Target.Kind),
		StartsAt: c.Target.StartsAt,
		EndsAt:   c.Target.EndsAt,
		Shift:    string(c.Target.Shift),
	}
	if c.Target.Kind == customization.TargetSingle {
		target.Slot = &slotModel{Date: c.Target.Slot.Date, Shift: string(c.Target.Slot.Shift)}
	}
	for _, s := range c.Target.Slots {
		target.Slots = append(target.Slots, slotModel{Date: s.Date, Shift: string(s.Shift)})
	}

	primary := c.Target.Primary()

	currency := c.Pricing.BasePrice.Currency
	if currency == "" {
		currency = types.CurrencyINR
	}

	return &customizationModel{
		ID:                 c.ID.String(),
		UserID:             c.UserID.String(),
		SubscriptionID:     c.SubscriptionID.String(),
		Type:               string(c.Type),
		Date:               primary.Date,
		Shift:              string(primary.Shift),
		Target:             target,
		ReplacementThaliID: c.ReplacementThaliID.String(),
		AddOns:             addOns,
		ExtraItems:         extras,
		DietaryPreference:  c.DietaryPreference,
		SpiceLevel:         c.SpiceLevel,
		Preferences:        c.Preferences,
		Notes:              c.Notes,
		Pricing: pricingModel{
			Currency:         currency,
			BasePaise:        c.Pricing.BasePrice.Amount,
			AddOnPaise:       c.Pricing.AddOnPrice.Amount,
			ExtraItemPaise:   c.Pricing.ExtraItemPrice.Amount,
			ReplacementPaise: c.Pricing.ReplacementPrice.Amount,
			TotalPaise:       c.Pricing.TotalPrice.Amount,
			PayablePaise:     c.Pricing.TotalPayable.Amount,
		},
		PaymentStatus:     string(c.PaymentStatus),
		Status:            string(c.Status),
		RazorpayOrderID:   c.RazorpayOrderID,
		RazorpayPaymentID: c.RazorpayPaymentID,
		RejectionReason:   c.RejectionReason,
		IsDefault:         c.IsDefault,
		IsActive:          c.IsActive,
		CreatedBy:         c.CreatedBy.String(),
		UpdatedBy:         c.UpdatedBy.String(),
		CreatedAt:         c.CreatedAt,
		UpdatedAt:         c.UpdatedAt,
	}
}

func fromCustomizationModel(m *customizationModel) (*customization.Customization, error) {
	custID, err := id.ParseCustomizationID(m.ID)
	if err != nil {
		return nil, err
	}
	userID, err := id.ParseUserID(m.UserID)
	if err != nil {
		return nil, err
	}
	subID, err := id.ParseSubscriptionID(m.SubscriptionID)
	if err != nil {
		return nil, err
	}
	replID, err := parseOptionalThaliID(m.ReplacementThaliID)
	if err != nil {
		return nil, err
	}

	addOns := make([]customization.AddOn, len(m.AddOns))
	for i, a := range m.AddOns {
		addOns[i] = customization.AddOn{
			Name:     a.Name,
			Price:    types.Money{Amount: a.PricePaise, Currency: a.Currency},
			Quantity: a.Quantity,
		}
	}

	extras := make([]customization.ExtraItem, len(m.ExtraItems))
	for i, e := range m.ExtraItems {
		itemID, err := id.ParseExtraItemID(e.ItemID)
		if err != nil {
			return nil, err
		}
		extras[i] = customization.ExtraItem{
			ItemID:   itemID,
			Quantity: e.Quantity,
			Price:    types.Money{Amount: e.PricePaise, Currency: e.Currency},
		}
	}

	target := customization.Target{
		Kind:     customization.TargetKind(m.Target.Kind),
		StartsAt: m.Target.StartsAt,
		EndsAt:   m.Target.EndsAt,
		Shift:    subscription.Shift(m.Target.Shift),
	}
	if m.Target.Slot != nil {
		target.Slot = customization.Slot{Date: m.Target.Slot.Date, Shift: subscription.Shift(m.Target.Slot.Shift)}
	}
	for _, s := range m.Target.Slots {
		target.Slots = append(target.Slots, customization.Slot{Date: s.Date, Shift: subscription.Shift(s.Shift)})
	}

	createdBy, err := parseOptionalUserID(m.CreatedBy)
	if err != nil {
		return nil, err
	}
	updatedBy, err := parseOptionalUserID(m.UpdatedBy)
	if err != nil {
		return nil, err
	}

	cur := m.Pricing.Currency

	return &customization.Customization{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:                 custID,
		UserID:             userID,
		SubscriptionID:     subID,
		Type:               customization.Type(m.Type),
		Target:             target,
		ReplacementThaliID: replID,
		AddOns:             addOns,
		ExtraItems:         extras,
		DietaryPreference:  m.DietaryPreference,
		SpiceLevel:         m.SpiceLevel,
		Preferences:        m.Preferences,
		Notes:              m.Notes,
		Pricing: customization.Pricing{
			BasePrice:        types.Money{Amount: m.Pricing.BasePaise, Currency: cur},
			AddOnPrice:       types.Money{Amount: m.Pricing.AddOnPaise, Currency: cur},
			ExtraItemPrice:   types.Money{Amount: m.Pricing.ExtraItemPaise, Currency: cur},
			ReplacementPrice: types.Money{Amount: m.Pricing.ReplacementPaise, Currency: cur},
			TotalPrice:       types.Money{Amount: m.Pricing.TotalPaise, Currency: cur},
			TotalPayable:     types.Money{Amount: m.Pricing.PayablePaise, Currency: cur},
		},
		PaymentStatus:     customization.PaymentStatus(m.PaymentStatus),
		Status:            customization.Status(m.Status),
		RazorpayOrderID:   m.RazorpayOrderID,
		RazorpayPaymentID: m.RazorpayPaymentID,
		RejectionReason:   m.RejectionReason,
		IsDefault:         m.IsDefault,
		IsActive:          m.IsActive,
		CreatedBy:         createdBy,
		UpdatedBy:         updatedBy,
	}, nil
}

// ==================== Helpers ====================

func parseOptionalThaliID(s string) (id.ThaliID, error) {
	if s == "" {
		return id.ThaliID{}, nil
	}
	return id.ParseThaliID(s)
}

func parseOptionalUserID(s string) (id.UserID, error) {
	if s == "" {
		return id.UserID{}, nil
	}
	return id.ParseUserID(s)
}
