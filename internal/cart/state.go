package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Cheertaboi/storefront-checkout/internal/models"
	"github.com/Cheertaboi/storefront-checkout/internal/storage"
)

// Record is the persisted form of a cart. Entries and coupon are stored
// together so a restore never pairs a coupon with a different cart.
type Record struct {
	Entries []models.CartEntry `json:"entries"`
	Coupon  models.CouponState `json:"coupon"`
}

func (r Record) empty() bool {
	return len(r.Entries) == 0 && r.Coupon.Code == ""
}

type StateStore interface {
	Load(ctx context.Context) (Record, bool, error)
	Save(ctx context.Context, rec Record) error
	Clear(ctx context.Context) error
}

type storedState struct {
	store storage.Store
	key   string
	ttl   time.Duration
}

// NewStoredState keeps the cart record under key in store.
func NewStoredState(store storage.Store, key string, ttl time.Duration) StateStore {
	return &storedState{store: store, key: key, ttl: ttl}
}

func (s *storedState) Load(ctx context.Context) (Record, bool, error) {
	raw, err := s.store.Get(ctx, s.key)
	if errors.Is(err, storage.ErrNotFound) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, err
	}
	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		// unreadable records are dropped
		_ = s.store.Delete(ctx, s.key)
		return Record{}, false, nil
	}
	return rec, true, nil
}

func (s *storedState) Save(ctx context.Context, rec Record) error {
	if rec.empty() {
		return s.Clear(ctx)
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode cart: %w", err)
	}
	return s.store.Set(ctx, s.key, raw, s.ttl)
}

func (s *storedState) Clear(ctx context.Context) error {
	return s.store.Delete(ctx, s.key)
}

type nopState struct{}

func (nopState) Load(context.Context) (Record, bool, error) { return Record{}, false, nil }
func (nopState) Save(context.Context, Record) error         { return nil }
func (nopState) Clear(context.Context) error                { return nil }
