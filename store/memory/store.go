// Package memory provides an in-memory Store for tests and local development.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/xraph/thali"
	"github.com/xraph/thali/catalog"
	"github.com/xraph/thali/customization"
	"github.com/xraph/thali/id"
	"github.com/xraph/thali/subscription"
)

type Store struct {
	mu sync.RWMutex

	// Subscription storage
	subscriptions map[string]*subscription.Subscription

	// Catalog storage
	thalis     map[string]*catalog.Thali
	extraItems map[string]*catalog.ExtraItem

	// Customization storage
	customizations map[string]*customization.Customization

	closed bool
}

func New() *Store {
	return &Store{
		subscriptions:  make(map[string]*subscription.Subscription),
		thalis:         make(map[string]*catalog.Thali),
		extraItems:     make(map[string]*catalog.ExtraItem),
		customizations: make(map[string]*customization.Customization),
	}
}

// Subscription Store implementation

func (s *Store) CreateSubscription(_ context.Context, sub *subscription.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.subscriptions[sub.ID.String()] = sub
	return nil
}

func (s *Store) GetSubscription(_ context.Context, subID id.SubscriptionID) (*subscription.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if sub, ok := s.subscriptions[subID.String()]; ok {
		return sub, nil
	}
	return nil, thali.ErrSubscriptionNotFound
}

func (s *Store) GetSubscriptionForUser(_ context.Context, subID id.SubscriptionID, userID id.UserID) (*subscription.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sub, ok := s.subscriptions[subID.String()]
	if !ok {
		return nil, thali.ErrSubscriptionNotFound
	}
	if sub.UserID != userID {
		return nil, thali.ErrForbidden
	}
	return sub, nil
}

func (s *Store) ListSubscriptionsForUser(_ context.Context, userID id.UserID, opts subscription.ListOpts) ([]*subscription.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*subscription.Subscription, 0)
	for _, sub := range s.subscriptions {
		if sub.UserID != userID {
			continue
		}
		if opts.Status != "" && sub.Status != opts.Status {
			continue
		}
		result = append(result, sub)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})

	return window(result, opts.Offset, opts.Limit), nil
}

func (s *Store) UpdateSubscription(_ context.Context, sub *subscription.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.subscriptions[sub.ID.String()]; !exists {
		return thali.ErrSubscriptionNotFound
	}
	s.subscriptions[sub.ID.String()] = sub
	return nil
}

func (s *Store) AppendCustomizationRef(_ context.Context, subID id.SubscriptionID, custID id.CustomizationID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, ok := s.subscriptions[subID.String()]
	if !ok {
		return thali.ErrSubscriptionNotFound
	}
	for _, ref := range sub.CustomizationRefs {
		if ref == custID {
			return nil
		}
	}
	sub.CustomizationRefs = append(sub.CustomizationRefs, custID)
	return nil
}

func (s *Store) UpsertReplacementEntry(_ context.Context, subID id.SubscriptionID, entry *subscription.ReplacementEntry) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, ok := s.subscriptions[subID.String()]
	if !ok {
		return false, thali.ErrSubscriptionNotFound
	}
	for _, e := range sub.ThaliReplacements {
		if e.CustomizationID == entry.CustomizationID {
			return false, nil
		}
	}
	sub.ThaliReplacements = append(sub.ThaliReplacements, *entry)
	return true, nil
}

func (s *Store) SetDefaultReplacement(_ context.Context, subID id.SubscriptionID, entry *subscription.ReplacementEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, ok := s.subscriptions[subID.String()]
	if !ok {
		return thali.ErrSubscriptionNotFound
	}
	sub.DefaultReplacement = entry
	if entry != nil {
		sub.DefaultThaliID = entry.ReplacementThaliID
	}
	return nil
}

// Catalog Store implementation

func (s *Store) CreateThali(_ context.Context, t *catalog.Thali) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.thalis[t.ID.String()] = t
	return nil
}

func (s *Store) GetThali(_ context.Context, thaliID id.ThaliID) (*catalog.Thali, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if t, ok := s.thalis[thaliID.String()]; ok {
		return t, nil
	}
	return nil, thali.ErrThaliNotFound
}

func (s *Store) ListThalis(_ context.Context, opts catalog.ListOpts) ([]*catalog.Thali, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*catalog.Thali, 0)
	for _, t := range s.thalis {
		if opts.ReplaceableOnly && !t.IsReplaceable {
			continue
		}
		if opts.AvailableOnly && !t.IsAvailable {
			continue
		}
		result = append(result, t)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Name < result[j].Name
	})

	return window(result, opts.Offset, opts.Limit), nil
}

func (s *Store) CreateExtraItem(_ context.Context, item *catalog.ExtraItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.extraItems[item.ID.String()] = item
	return nil
}

func (s *Store) GetExtraItem(_ context.Context, itemID id.ExtraItemID) (*catalog.ExtraItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if item, ok := s.extraItems[itemID.String()]; ok {
		return item, nil
	}
	return nil, thali.ErrExtraItemNotFound
}

// Customization Store implementation

func (s *Store) CreateCustomization(_ context.Context, c *customization.Customization) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.customizations[c.ID.String()] = c
	return nil
}

func (s *Store) GetCustomization(_ context.Context, custID id.CustomizationID) (*customization.Customization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if c, ok := s.customizations[custID.String()]; ok {
		return c, nil
	}
	return nil, thali.ErrCustomizationNotFound
}

func (s *Store) GetCustomizationForUser(_ context.Context, custID id.CustomizationID, userID id.UserID) (*customization.Customization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.customizations[custID.String()]
	if !ok {
		return nil, thali.ErrCustomizationNotFound
	}
	if c.UserID != userID {
		return nil, thali.ErrForbidden
	}
	return c, nil
}

func (s *Store) UpdateCustomization(_ context.Context, c *customization.Customization) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.customizations[c.ID.String()]; !exists {
		return thali.ErrCustomizationNotFound
	}
	s.customizations[c.ID.String()] = c
	return nil
}

func (s *Store) DeactivateCustomization(_ context.Context, custID id.CustomizationID, updatedBy id.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.customizations[custID.String()]
	if !ok {
		return thali.ErrCustomizationNotFound
	}
	c.IsActive = false
	c.Status = customization.StatusCancelled
	c.UpdatedBy = updatedBy
	c.Touch()
	return nil
}

func (s *Store) FindConflicting(_ context.Context, q customization.ConflictQuery) ([]*customization.Customization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*customization.Customization, 0)
	for _, c := range s.customizations {
		if !c.IsActive || c.SubscriptionID != q.SubscriptionID {
			continue
		}
		if c.Status != customization.StatusPending && c.Status != customization.StatusConfirmed {
			continue
		}
		if q.ExcludeID != (id.CustomizationID{}) && c.ID == q.ExcludeID {
			continue
		}
		if q.ReplacementThaliID != (id.ThaliID{}) && c.ReplacementThaliID != q.ReplacementThaliID {
			continue
		}
		if !occupies(c, q.Date, q.Shift) {
			continue
		}
		result = append(result, c)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})

	return result, nil
}

func (s *Store) ListPendingCustomizations(_ context.Context, scope customization.Scope) ([]*customization.Customization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*customization.Customization, 0)
	for _, c := range s.customizations {
		if !c.IsActive || c.Status != customization.StatusPending {
			continue
		}
		if scope.SubscriptionID != (id.SubscriptionID{}) && c.SubscriptionID != scope.SubscriptionID {
			continue
		}
		if scope.UserID != (id.UserID{}) && c.UserID != scope.UserID {
			continue
		}
		result = append(result, c)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})

	return result, nil
}

func (s *Store) ListReplacementCustomizations(_ context.Context, subID id.SubscriptionID) ([]*customization.Customization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*customization.Customization, 0)
	for _, c := range s.customizations {
		if !c.IsActive || c.SubscriptionID != subID {
			continue
		}
		if c.ReplacementThaliID == (id.ThaliID{}) {
			continue
		}
		if c.Status == customization.StatusRejected || c.Status == customization.StatusCancelled {
			continue
		}
		result = append(result, c)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})

	return result, nil
}

func (s *Store) CountRecentCustomizations(_ context.Context, subID id.SubscriptionID, since time.Time) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for _, c := range s.customizations {
		if c.SubscriptionID == subID && !c.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

// Core methods

func (s *Store) Migrate(_ context.Context) error { return nil }

func (s *Store) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return thali.ErrStoreClosed
	}
	return nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	return nil
}

// occupies reports whether c claims the (date, shift) slot through any of
// its targeting variants.
func occupies(c *customization.Customization, date time.Time, shift subscription.Shift) bool {
	for _, slot := range c.Target.AllSlots() {
		if subscription.SameDay(slot.Date, date) && slot.Shift == shift {
			return true
		}
	}
	if c.Target.Kind == customization.TargetRecurring {
		if c.Target.Shift != shift {
			return false
		}
		day := date
		if day.Before(c.Target.StartsAt) && !subscription.SameDay(day, c.Target.StartsAt) {
			return false
		}
		if !c.Target.EndsAt.IsZero() && day.After(c.Target.EndsAt) && !subscription.SameDay(day, c.Target.EndsAt) {
			return false
		}
		return true
	}
	return false
}

func window[T any](items []T, offset, limit int) []T {
	start := offset
	if start > len(items) {
		start = len(items)
	}
	end := start + limit
	if limit == 0 || end > len(items) {
		end = len(items)
	}
	return items[start:end]
}
