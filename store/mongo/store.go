// Package mongo implements the unified Store on MongoDB via Grove ORM.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"

	thali "github.com/xraph/thali"
	"github.com/xraph/thali/catalog"
	"github.com/xraph/thali/customization"
	"github.com/xraph/thali/id"
	thalistore "github.com/xraph/thali/store"
	"github.com/xraph/thali/subscription"
)

// Collection name constants.
const (
	colSubscriptions  = "thali_subscriptions"
	colThalis         = "thali_catalog"
	colExtraItems     = "thali_extra_items"
	colCustomizations = "thali_customizations"
)

// compile-time interface check
var _ thalistore.Store = (*Store)(nil)

// Store implements store.Store using MongoDB via Grove ORM.
type Store struct {
	db  *grove.DB
	mdb *mongodriver.MongoDB
}

// New creates a new MongoDB store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		mdb: mongodriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates indexes for all collections.
func (s *Store) Migrate(ctx context.Context) error {
	indexes := migrationIndexes()

	for col, models := range indexes {
		if len(models) == 0 {
			continue
		}
		_, err := s.mdb.Collection(col).Indexes().CreateMany(ctx, models)
		if err != nil {
			return fmt.Errorf("thali/mongo: migrate %s indexes: %w", col, err)
		}
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ==================== Subscription Store ====================

func (s *Store) CreateSubscription(ctx context.Context, sub *subscription.Subscription) error {
	m := toSubscriptionModel(sub)
	_, err := s.mdb.NewInsert(m).Exec(ctx)
	if err != nil {
		return fmt.Errorf("thali/mongo: create subscription: %w", err)
	}
	return nil
}

func (s *Store) GetSubscription(ctx context.Context, subID id.SubscriptionID) (*subscription.Subscription, error) {
	var m subscriptionModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": subID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, thali.ErrSubscriptionNotFound
		}
		return nil, fmt.Errorf("thali/mongo: get subscription: %w", err)
	}
	return fromSubscriptionModel(&m)
}

func (s *Store) GetSubscriptionForUser(ctx context.Context, subID id.SubscriptionID, userID id.UserID) (*subscription.Subscription, error) {
	sub, err := s.GetSubscription(ctx, subID)
	if err != nil {
		return nil, err
	}
	if sub.UserID != userID {
		return nil, thali.ErrForbidden
	}
	return sub, nil
}

func (s *Store) ListSubscriptionsForUser(ctx context.Context, userID id.UserID, opts subscription.ListOpts) ([]*subscription.Subscription, error) {
	var models []subscriptionModel

	filter := bson.M{"user_id": userID.String()}
	if opts.Status != "" {
		filter["status"] = string(opts.Status)
	}

	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "created_at", Value: -1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("thali/mongo: list subscriptions: %w", err)
	}

	result := make([]*subscription.Subscription, len(models))
	for i := range models {
		sub, err := fromSubscriptionModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = sub
	}
	return result, nil
}

func (s *Store) UpdateSubscription(ctx context.Context, sub *subscription.Subscription) error {
	m := toSubscriptionModel(sub)
	m.UpdatedAt = now()

	res, err := s.mdb.NewUpdate(m).
		Filter(bson.M{"_id": m.ID}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("thali/mongo: update subscription: %w", err)
	}
	if res.MatchedCount() == 0 {
		return thali.ErrSubscriptionNotFound
	}
	return nil
}

func (s *Store) AppendCustomizationRef(ctx context.Context, subID id.SubscriptionID, custID id.CustomizationID) error {
	res, err := s.mdb.NewUpdate((*subscriptionModel)(nil)).
		Filter(bson.M{"_id": subID.String()}).
		SetUpdate(bson.M{
			"$addToSet": bson.M{"customization_refs": custID.String()},
			"$set":      bson.M{"updated_at": now()},
		}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("thali/mongo: append customization ref: %w", err)
	}
	if res.MatchedCount() == 0 {
		return thali.ErrSubscriptionNotFound
	}
	return nil
}

// UpsertReplacementEntry pushes the ledger entry only when no entry with its
// customization ID is present, making retries and double-projections no-ops.
// The conditional filter runs server-side so concurrent writers cannot both
// append the same key.
func (s *Store) UpsertReplacementEntry(ctx context.Context, subID id.SubscriptionID, entry *subscription.ReplacementEntry) (bool, error) {
	m := toReplacementEntryModel(entry)

	res, err := s.mdb.NewUpdate((*subscriptionModel)(nil)).
		Filter(bson.M{
			"_id":                                 subID.String(),
			"thali_replacements.customization_id": bson.M{"$ne": m.CustomizationID},
		}).
		SetUpdate(bson.M{
			"$push": bson.M{"thali_replacements": m},
			"$set":  bson.M{"updated_at": now()},
		}).
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("thali/mongo: upsert replacement entry: %w", err)
	}
	if res.MatchedCount() > 0 {
		return true, nil
	}

	// Not matched: either the entry already exists or the subscription is
	// missing. Disambiguate with a point read.
	if _, err := s.GetSubscription(ctx, subID); err != nil {
		return false, err
	}
	return false, nil
}

func (s *Store) SetDefaultReplacement(ctx context.Context, subID id.SubscriptionID, entry *subscription.ReplacementEntry) error {
	set := bson.M{"updated_at": now()}
	if entry != nil {
		m := toReplacementEntryModel(entry)
		set["thali_replacement"] = m
		set["default_thali_id"] = m.ReplacementThaliID
	} else {
		set["thali_replacement"] = nil
	}

	res, err := s.mdb.NewUpdate((*subscriptionModel)(nil)).
		Filter(bson.M{"_id": subID.String()}).
		SetUpdate(bson.M{"$set": set}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("thali/mongo: set default replacement: %w", err)
	}
	if res.MatchedCount() == 0 {
		return thali.ErrSubscriptionNotFound
	}
	return nil
}

// ==================== Catalog Store ====================

func (s *Store) CreateThali(ctx context.Context, t *catalog.Thali) error {
	m := toThaliModel(t)
	_, err := s.mdb.NewInsert(m).Exec(ctx)
	if err != nil {
		return fmt.Errorf("thali/mongo: create thali: %w", err)
	}
	return nil
}

func (s *Store) GetThali(ctx context.Context, thaliID id.ThaliID) (*catalog.Thali, error) {
	var m thaliModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": thaliID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, thali.ErrThaliNotFound
		}
		return nil, fmt.Errorf("thali/mongo: get thali: %w", err)
	}
	return fromThaliModel(&m)
}

func (s *Store) ListThalis(ctx context.Context, opts catalog.ListOpts) ([]*catalog.Thali, error) {
	var models []thaliModel

	filter := bson.M{}
	if opts.ReplaceableOnly {
		filter["is_replaceable"] = true
	}
	if opts.AvailableOnly {
		filter["is_available"] = true
	}

	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "name", Value: 1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("thali/mongo: list thalis: %w", err)
	}

	result := make([]*catalog.Thali, len(models))
	for i := range models {
		t, err := fromThaliModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = t
	}
	return result, nil
}

func (s *Store) CreateExtraItem(ctx context.Context, item *catalog.ExtraItem) error {
	m := toExtraItemModel(item)
	_, err := s.mdb.NewInsert(m).Exec(ctx)
	if err != nil {
		return fmt.Errorf("thali/mongo: create extra item: %w", err)
	}
	return nil
}

func (s *Store) GetExtraItem(ctx context.Context, itemID id.ExtraItemID) (*catalog.ExtraItem, error) {
	var m extraItemModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": itemID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, thali.ErrExtraItemNotFound
		}
		return nil, fmt.Errorf("thali/mongo: get extra item: %w", err)
	}
	return fromExtraItemModel(&m)
}

// ==================== Customization Store ====================

func (s *Store) CreateCustomization(ctx context.Context, c *customization.Customization) error {
	m := toCustomizationModel(c)
	_, err := s.mdb.NewInsert(m).Exec(ctx)
	if err != nil {
		return fmt.Errorf("thali/mongo: create customization: %w", err)
	}
	return nil
}

func (s *Store) GetCustomization(ctx context.Context, custID id.CustomizationID) (*customization.Customization, error) {
	var m customizationModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": custID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, thali.ErrCustomizationNotFound
		}
		return nil, fmt.Errorf("thali/mongo: get customization: %w", err)
	}
	return fromCustomizationModel(&m)
}

func (s *Store) GetCustomizationForUser(ctx context.Context, custID id.CustomizationID, userID id.UserID) (*customization.Customization, error) {
	c, err := s.GetCustomization(ctx, custID)
	if err != nil {
		return nil, err
	}
	if c.UserID != userID {
		return nil, thali.ErrForbidden
	}
	return c, nil
}

func (s *Store) UpdateCustomization(ctx context.Context, c *customization.Customization) error {
	m := toCustomizationModel(c)
	m.UpdatedAt = now()

	res, err := s.mdb.NewUpdate(m).
		Filter(bson.M{"_id": m.ID}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("thali/mongo: update customization: %w", err)
	}
	if res.MatchedCount() == 0 {
		return thali.ErrCustomizationNotFound
	}
	return nil
}

func (s *Store) DeactivateCustomization(ctx context.Context, custID id.CustomizationID, updatedBy id.UserID) error {
	t := now()
	res, err := s.mdb.NewUpdate((*customizationModel)(nil)).
		Filter(bson.M{"_id": custID.String()}).
		Set("is_active", false).
		Set("status", string(customization.StatusCancelled)).
		Set("updated_by", updatedBy.String()).
		Set("updated_at", t).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("thali/mongo: deactivate customization: %w", err)
	}
	if res.MatchedCount() == 0 {
		return thali.ErrCustomizationNotFound
	}
	return nil
}

func (s *Store) FindConflicting(ctx context.Context, q customization.ConflictQuery) ([]*customization.Customization, error) {
	var models []customizationModel

	dayStart := startOfDay(q.Date)
	dayEnd := dayStart.AddDate(0, 0, 1)
	shift := string(q.Shift)

	filter := bson.M{
		"subscription_id": q.SubscriptionID.String(),
		"is_active":       true,
		"status": bson.M{"$in": []string{
			string(customization.StatusPending),
			string(customization.StatusConfirmed),
		}},
		"$or": bson.A{
			bson.M{
				"target.kind":       string(customization.TargetSingle),
				"target.slot.date":  bson.M{"$gte": dayStart, "$lt": dayEnd},
				"target.slot.shift": shift,
			},
			bson.M{
				"target.kind": string(customization.TargetRange),
				"target.slots": bson.M{"$elemMatch": bson.M{
					"date":  bson.M{"$gte": dayStart, "$lt": dayEnd},
					"shift": shift,
				}},
			},
			bson.M{
				"target.kind":      string(customization.TargetRecurring),
				"target.shift":     shift,
				"target.starts_at": bson.M{"$lt": dayEnd},
				"$or": bson.A{
					bson.M{"target.ends_at": bson.M{"$exists": false}},
					bson.M{"target.ends_at": time.Time{}},
					bson.M{"target.ends_at": bson.M{"$gte": dayStart}},
				},
			},
		},
	}
	if !q.ReplacementThaliID.IsNil() {
		filter["replacement_thali_id"] = q.ReplacementThaliID.String()
	}
	if !q.ExcludeID.IsNil() {
		filter["_id"] = bson.M{"$ne": q.ExcludeID.String()}
	}

	err := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "created_at", Value: 1}}).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("thali/mongo: find conflicting: %w", err)
	}

	result := make([]*customization.Customization, len(models))
	for i := range models {
		c, err := fromCustomizationModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = c
	}
	return result, nil
}

func (s *Store) ListPendingCustomizations(ctx context.Context, scope customization.Scope) ([]*customization.Customization, error) {
	var models []customizationModel

	filter := bson.M{
		"is_active": true,
		"status":    string(customization.StatusPending),
	}
	if !scope.SubscriptionID.IsNil() {
		filter["subscription_id"] = scope.SubscriptionID.String()
	}
	if !scope.UserID.IsNil() {
		filter["user_id"] = scope.UserID.String()
	}

	err := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "created_at", Value: 1}}).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("thali/mongo: list pending customizations: %w", err)
	}

	result := make([]*customization.Customization, len(models))
	for i := range models {
		c, err := fromCustomizationModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = c
	}
	return result, nil
}

func (s *Store) ListReplacementCustomizations(ctx context.Context, subID id.SubscriptionID) ([]*customization.Customization, error) {
	var models []customizationModel

	err := s.mdb.NewFind(&models).
		Filter(bson.M{
			"subscription_id":      subID.String(),
			"is_active":            true,
			"replacement_thali_id": bson.M{"$nin": bson.A{nil, ""}},
			"status": bson.M{"$nin": []string{
				string(customization.StatusRejected),
				string(customization.StatusCancelled),
			}},
		}).
		Sort(bson.D{{Key: "created_at", Value: 1}}).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("thali/mongo: list replacement customizations: %w", err)
	}

	result := make([]*customization.Customization, len(models))
	for i := range models {
		c, err := fromCustomizationModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = c
	}
	return result, nil
}

func (s *Store) CountRecentCustomizations(ctx context.Context, subID id.SubscriptionID, since time.Time) (int64, error) {
	n, err := s.mdb.Collection(colCustomizations).CountDocuments(ctx, bson.M{
		"subscription_id": subID.String(),
		"created_at":      bson.M{"$gte": since},
	})
	if err != nil {
		return 0, fmt.Errorf("thali/mongo: count recent customizations: %w", err)
	}
	return n, nil
}

// ==================== Helpers ====================

// now returns the current UTC time.
func now() time.Time {
	return time.Now().UTC()
}

// startOfDay normalizes t to 00:00 UTC.
func startOfDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// isNoDocuments checks if an error wraps mongo.ErrNoDocuments.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

// migrationIndexes returns the index definitions for all collections.
func migrationIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		colSubscriptions: {
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "status", Value: 1}}},
			{Keys: bson.D{{Key: "thali_replacements.customization_id", Value: 1}}},
			{Keys: bson.D{{Key: "created_at", Value: -1}}},
		},
		colThalis: {
			{Keys: bson.D{{Key: "is_replaceable", Value: 1}, {Key: "is_available", Value: 1}}},
			{
				Keys:    bson.D{{Key: "name", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
		},
		colExtraItems: {
			{Keys: bson.D{{Key: "is_available", Value: 1}}},
		},
		colCustomizations: {
			{Keys: bson.D{{Key: "subscription_id", Value: 1}, {Key: "date", Value: 1}, {Key: "shift", Value: 1}, {Key: "is_active", Value: 1}}},
			{Keys: bson.D{{Key: "subscription_id", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "status", Value: 1}}},
			{
				Keys:    bson.D{{Key: "razorpay_order_id", Value: 1}},
				Options: options.Index().SetUnique(true).SetSparse(true),
			},
		},
	}
}
