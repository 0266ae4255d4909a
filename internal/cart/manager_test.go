package cart

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/Cheertaboi/storefront-checkout/internal/client"
	"github.com/Cheertaboi/storefront-checkout/internal/events"
	"github.com/Cheertaboi/storefront-checkout/internal/models"
	"github.com/Cheertaboi/storefront-checkout/internal/storage"
)

type fakeBackend struct {
	mu       sync.Mutex
	validate func(ctx context.Context, code string, total decimal.Decimal) (*models.CouponValidation, error)
	order    func(ctx context.Context, req models.OrderRequest) (*models.Order, error)
	totals   []decimal.Decimal
	orders   []models.OrderRequest
}

func (f *fakeBackend) ValidateCoupon(ctx context.Context, code string, total decimal.Decimal) (*models.CouponValidation, error) {
	f.mu.Lock()
	f.totals = append(f.totals, total)
	fn := f.validate
	f.mu.Unlock()
	if fn == nil {
		return &models.CouponValidation{Discount: decimal.NewFromInt(10)}, nil
	}
	return fn(ctx, code, total)
}

func (f *fakeBackend) PlaceOrder(ctx context.Context, req models.OrderRequest) (*models.Order, error) {
	f.mu.Lock()
	f.orders = append(f.orders, req)
	fn := f.order
	f.mu.Unlock()
	if fn == nil {
		return &models.Order{ID: 1}, nil
	}
	return fn(ctx, req)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, ev events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []events.Type {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]events.Type, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.Type)
	}
	return out
}

// gatedStore holds the first Set until gate is closed.
type gatedStore struct {
	storage.Store
	mu      sync.Mutex
	used    bool
	entered chan struct{}
	gate    chan struct{}
}

func newGatedStore(inner storage.Store) *gatedStore {
	return &gatedStore{Store: inner, entered: make(chan struct{}), gate: make(chan struct{})}
}

func (g *gatedStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	g.mu.Lock()
	first := !g.used
	g.used = true
	g.mu.Unlock()
	if first {
		close(g.entered)
		<-g.gate
	}
	return g.Store.Set(ctx, key, value, ttl)
}

func product(id int64, price string, stock int) models.Product {
	return models.Product{ID: id, Name: "p", Price: decimal.RequireFromString(price), Stock: stock}
}

const stateKey = "cart:browser-1"

type ManagerTestSuite struct {
	suite.Suite
	ctx     context.Context
	backend *fakeBackend
	store   *storage.MemoryStore
	pub     *recordingPublisher
	m       *Manager
}

func TestManagerSuite(t *testing.T) {
	suite.Run(t, new(ManagerTestSuite))
}

func (s *ManagerTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.backend = &fakeBackend{}
	s.store = storage.NewMemoryStore()
	s.pub = &recordingPublisher{}
	s.m = s.newManager()
}

func (s *ManagerTestSuite) newManager() *Manager {
	return New(s.backend,
		WithState(NewStoredState(s.store, stateKey, time.Hour)),
		WithPublisher(s.pub),
		WithOwner("browser-1"),
	)
}

func (s *ManagerTestSuite) TestAddItemMergesSameProduct() {
	require.NoError(s.T(), s.m.AddItem(s.ctx, product(1, "10", 5), 2))
	require.NoError(s.T(), s.m.AddItem(s.ctx, product(2, "5", 5), 1))
	require.NoError(s.T(), s.m.AddItem(s.ctx, product(1, "10", 5), 1))

	entries := s.m.Entries()
	require.Len(s.T(), entries, 2)
	require.Equal(s.T(), int64(1), entries[0].Product.ID)
	require.Equal(s.T(), 3, entries[0].Quantity)
	require.Equal(s.T(), 4, s.m.Snapshot().ItemCount)
}

func (s *ManagerTestSuite) TestAddItemRejectsQuantityOutsideStock() {
	require.ErrorIs(s.T(), s.m.AddItem(s.ctx, product(1, "10", 2), 3), ErrInvalidQuantity)
	require.ErrorIs(s.T(), s.m.AddItem(s.ctx, product(1, "10", 2), 0), ErrInvalidQuantity)
	require.ErrorIs(s.T(), s.m.AddItem(s.ctx, product(0, "10", 2), 1), models.ErrInvalidProduct)
	require.Empty(s.T(), s.m.Entries())
	require.Zero(s.T(), s.m.Revision())
}

func (s *ManagerTestSuite) TestUpdateQuantity() {
	require.NoError(s.T(), s.m.AddItem(s.ctx, product(1, "10", 5), 1))

	require.ErrorIs(s.T(), s.m.UpdateQuantity(s.ctx, 1, 0), ErrInvalidQuantity)
	require.NoError(s.T(), s.m.UpdateQuantity(s.ctx, 1, 4))
	require.Equal(s.T(), 4, s.m.Entries()[0].Quantity)

	rev := s.m.Revision()
	require.NoError(s.T(), s.m.UpdateQuantity(s.ctx, 99, 2))
	require.Equal(s.T(), rev, s.m.Revision())
}

func (s *ManagerTestSuite) TestRemoveItem() {
	require.NoError(s.T(), s.m.AddItem(s.ctx, product(1, "10", 5), 1))
	require.NoError(s.T(), s.m.AddItem(s.ctx, product(2, "5", 5), 1))

	require.NoError(s.T(), s.m.RemoveItem(s.ctx, 1))
	entries := s.m.Entries()
	require.Len(s.T(), entries, 1)
	require.Equal(s.T(), int64(2), entries[0].Product.ID)

	require.NoError(s.T(), s.m.RemoveItem(s.ctx, 1))
	require.Len(s.T(), s.m.Entries(), 1)
}

func (s *ManagerTestSuite) TestEntriesAreNotMutatedInPlace() {
	require.NoError(s.T(), s.m.AddItem(s.ctx, product(1, "10", 5), 1))
	before := s.m.Entries()
	require.NoError(s.T(), s.m.UpdateQuantity(s.ctx, 1, 3))
	require.Equal(s.T(), 1, before[0].Quantity)
}

func (s *ManagerTestSuite) TestTotals() {
	require.NoError(s.T(), s.m.AddItem(s.ctx, product(1, "10", 5), 2))
	require.NoError(s.T(), s.m.AddItem(s.ctx, product(2, "5", 5), 1))
	require.Equal(s.T(), "25.00", s.m.Total().StringFixed(2))
	require.Equal(s.T(), "25.00", s.m.DiscountedTotal().StringFixed(2))

	_, err := s.m.ApplyCoupon(s.ctx, "SAVE10")
	require.NoError(s.T(), err)
	require.Equal(s.T(), "25.00", s.backend.totals[0].StringFixed(2))
	require.Equal(s.T(), "22.50", s.m.DiscountedTotal().StringFixed(2))

	require.NoError(s.T(), s.m.UpdateQuantity(s.ctx, 1, 3))
	snap := s.m.Snapshot()
	require.Equal(s.T(), "35.00", snap.Total.StringFixed(2))
	require.Equal(s.T(), "31.50", snap.DiscountedTotal.StringFixed(2))
	require.Equal(s.T(), "SAVE10", snap.CouponCode)
}

func (s *ManagerTestSuite) TestApplyCouponRejectsBlankCode() {
	_, err := s.m.ApplyCoupon(s.ctx, "   ")
	require.ErrorIs(s.T(), err, ErrCouponCodeRequired)
	require.Empty(s.T(), s.backend.totals)
}

func (s *ManagerTestSuite) TestApplyCouponFailureResetsDiscount() {
	require.NoError(s.T(), s.m.AddItem(s.ctx, product(1, "10", 5), 1))
	_, err := s.m.ApplyCoupon(s.ctx, "SAVE10")
	require.NoError(s.T(), err)

	s.backend.validate = func(context.Context, string, decimal.Decimal) (*models.CouponValidation, error) {
		return nil, &client.Error{Kind: client.KindValidation, Op: "validate coupon", Status: 400, Message: "Coupon expired"}
	}
	_, err = s.m.ApplyCoupon(s.ctx, "OLD")
	require.Error(s.T(), err)

	snap := s.m.Snapshot()
	require.Empty(s.T(), snap.CouponCode)
	require.True(s.T(), snap.Discount.IsZero())
	require.Equal(s.T(), "Coupon expired", snap.CouponError)
	require.Equal(s.T(), "10.00", snap.DiscountedTotal.StringFixed(2))
	require.Equal(s.T(), []events.Type{events.CouponApplied, events.CouponRejected}, s.pub.types())

	restored := s.newManager()
	require.NoError(s.T(), restored.Load(s.ctx))
	require.False(s.T(), restored.Coupon().Active())
}

func (s *ManagerTestSuite) TestApplyCouponFallbackMessage() {
	s.backend.validate = func(context.Context, string, decimal.Decimal) (*models.CouponValidation, error) {
		return nil, errors.New("boom")
	}
	_, err := s.m.ApplyCoupon(s.ctx, "X")
	require.Error(s.T(), err)
	require.Equal(s.T(), "invalid coupon", s.m.Snapshot().CouponError)
}

func (s *ManagerTestSuite) TestNewerCouponSupersedesInFlight() {
	started := make(chan struct{})
	s.backend.validate = func(ctx context.Context, code string, _ decimal.Decimal) (*models.CouponValidation, error) {
		if code == "SLOW" {
			close(started)
			<-ctx.Done()
			return &models.CouponValidation{Discount: decimal.NewFromInt(50)}, nil
		}
		return &models.CouponValidation{Discount: decimal.NewFromInt(10)}, nil
	}

	slowErr := make(chan error, 1)
	go func() {
		_, err := s.m.ApplyCoupon(s.ctx, "SLOW")
		slowErr <- err
	}()
	<-started

	state, err := s.m.ApplyCoupon(s.ctx, "FAST")
	require.NoError(s.T(), err)
	require.Equal(s.T(), "FAST", state.Code)

	select {
	case err := <-slowErr:
		require.ErrorIs(s.T(), err, ErrSuperseded)
	case <-time.After(time.Second):
		s.T().Fatal("superseded coupon call did not return")
	}
	require.Equal(s.T(), "FAST", s.m.Coupon().Code)
	require.True(s.T(), decimal.NewFromInt(10).Equal(s.m.Coupon().Discount))
}

func (s *ManagerTestSuite) TestPlaceOrderEmptyCart() {
	_, err := s.m.PlaceOrder(s.ctx)
	require.ErrorIs(s.T(), err, ErrEmptyCart)
	require.Empty(s.T(), s.backend.orders)
}

func (s *ManagerTestSuite) TestPlaceOrderSuccessClearsCartAndCoupon() {
	require.NoError(s.T(), s.m.AddItem(s.ctx, product(1, "10", 5), 2))
	require.NoError(s.T(), s.m.AddItem(s.ctx, product(2, "5", 5), 1))
	_, err := s.m.ApplyCoupon(s.ctx, "SAVE10")
	require.NoError(s.T(), err)

	order, err := s.m.PlaceOrder(s.ctx)
	require.NoError(s.T(), err)
	require.Equal(s.T(), int64(1), order.ID)

	require.Len(s.T(), s.backend.orders, 1)
	req := s.backend.orders[0]
	require.Equal(s.T(), "SAVE10", req.CouponCode)
	require.Equal(s.T(), []models.OrderLine{{ProductID: 1, Quantity: 2}, {ProductID: 2, Quantity: 1}}, req.Items)

	snap := s.m.Snapshot()
	require.Empty(s.T(), snap.Items)
	require.Empty(s.T(), snap.CouponCode)
	require.Equal(s.T(), CheckoutCompleted, snap.Checkout)

	_, err = s.store.Get(s.ctx, stateKey)
	require.ErrorIs(s.T(), err, storage.ErrNotFound)
	require.Contains(s.T(), s.pub.types(), events.OrderPlaced)
}

func (s *ManagerTestSuite) TestPlaceOrderWithoutCouponOmitsCode() {
	require.NoError(s.T(), s.m.AddItem(s.ctx, product(1, "10", 5), 1))
	_, err := s.m.PlaceOrder(s.ctx)
	require.NoError(s.T(), err)
	require.Empty(s.T(), s.backend.orders[0].CouponCode)
}

func (s *ManagerTestSuite) TestPlaceOrderFailureKeepsCart() {
	require.NoError(s.T(), s.m.AddItem(s.ctx, product(1, "10", 5), 1))
	_, err := s.m.ApplyCoupon(s.ctx, "SAVE10")
	require.NoError(s.T(), err)

	s.backend.order = func(context.Context, models.OrderRequest) (*models.Order, error) {
		return nil, &client.Error{Kind: client.KindServer, Op: "place order", Status: 500}
	}
	_, err = s.m.PlaceOrder(s.ctx)
	require.Error(s.T(), err)

	snap := s.m.Snapshot()
	require.Len(s.T(), snap.Items, 1)
	require.Equal(s.T(), "SAVE10", snap.CouponCode)
	require.Equal(s.T(), CheckoutFailed, snap.Checkout)
	require.Equal(s.T(), "failed to place order", snap.CheckoutError)
	require.Contains(s.T(), s.pub.types(), events.OrderFailed)
}

func (s *ManagerTestSuite) TestPlaceOrderInProgress() {
	require.NoError(s.T(), s.m.AddItem(s.ctx, product(1, "10", 5), 1))
	started := make(chan struct{})
	release := make(chan struct{})
	s.backend.order = func(context.Context, models.OrderRequest) (*models.Order, error) {
		close(started)
		<-release
		return &models.Order{ID: 7}, nil
	}

	done := make(chan error, 1)
	go func() {
		_, err := s.m.PlaceOrder(s.ctx)
		done <- err
	}()
	<-started

	require.Equal(s.T(), CheckoutSubmitting, s.m.Snapshot().Checkout)
	_, err := s.m.PlaceOrder(s.ctx)
	require.ErrorIs(s.T(), err, ErrCheckoutInProgress)

	close(release)
	require.NoError(s.T(), <-done)
	require.Len(s.T(), s.backend.orders, 1)
}

func (s *ManagerTestSuite) TestLoadRestoresCartAndCoupon() {
	require.NoError(s.T(), s.m.AddItem(s.ctx, product(1, "10", 5), 2))
	_, err := s.m.ApplyCoupon(s.ctx, "SAVE10")
	require.NoError(s.T(), err)

	restored := s.newManager()
	require.NoError(s.T(), restored.Load(s.ctx))
	require.Len(s.T(), restored.Entries(), 1)
	require.Equal(s.T(), 2, restored.Entries()[0].Quantity)
	require.Equal(s.T(), "SAVE10", restored.Coupon().Code)
	require.Equal(s.T(), "18.00", restored.DiscountedTotal().StringFixed(2))
}

func (s *ManagerTestSuite) TestLoadDropsUnreadableRecord() {
	require.NoError(s.T(), s.store.Set(s.ctx, stateKey, []byte("{not json"), 0))
	require.NoError(s.T(), s.m.Load(s.ctx))
	require.Empty(s.T(), s.m.Entries())
	_, err := s.store.Get(s.ctx, stateKey)
	require.ErrorIs(s.T(), err, storage.ErrNotFound)
}

func (s *ManagerTestSuite) TestClear() {
	require.NoError(s.T(), s.m.AddItem(s.ctx, product(1, "10", 5), 2))
	_, err := s.m.ApplyCoupon(s.ctx, "SAVE10")
	require.NoError(s.T(), err)

	require.NoError(s.T(), s.m.Clear(s.ctx))
	require.Empty(s.T(), s.m.Entries())
	require.False(s.T(), s.m.Coupon().Active())
	require.Zero(s.T(), s.store.Len())
}

func (s *ManagerTestSuite) TestOverlappingEditsPersistLatestState() {
	gated := newGatedStore(s.store)
	m := New(s.backend, WithState(NewStoredState(gated, stateKey, time.Hour)))

	first := make(chan error, 1)
	go func() { first <- m.AddItem(s.ctx, product(1, "10", 5), 1) }()
	<-gated.entered

	second := make(chan error, 1)
	go func() { second <- m.AddItem(s.ctx, product(2, "5", 5), 1) }()
	require.Eventually(s.T(), func() bool { return m.Revision() == 2 }, time.Second, time.Millisecond)

	close(gated.gate)
	require.NoError(s.T(), <-first)
	require.NoError(s.T(), <-second)

	restored := s.newManager()
	require.NoError(s.T(), restored.Load(s.ctx))
	require.Len(s.T(), restored.Entries(), 2)
}

func (s *ManagerTestSuite) TestEditsRejectedWhileSubmitting() {
	require.NoError(s.T(), s.m.AddItem(s.ctx, product(1, "10", 5), 1))
	started := make(chan struct{})
	release := make(chan struct{})
	s.backend.order = func(context.Context, models.OrderRequest) (*models.Order, error) {
		close(started)
		<-release
		return &models.Order{ID: 3}, nil
	}

	done := make(chan error, 1)
	go func() {
		_, err := s.m.PlaceOrder(s.ctx)
		done <- err
	}()
	<-started

	require.ErrorIs(s.T(), s.m.AddItem(s.ctx, product(2, "5", 5), 1), ErrCheckoutInProgress)
	require.ErrorIs(s.T(), s.m.UpdateQuantity(s.ctx, 1, 4), ErrCheckoutInProgress)
	require.ErrorIs(s.T(), s.m.RemoveItem(s.ctx, 1), ErrCheckoutInProgress)

	close(release)
	require.NoError(s.T(), <-done)
	require.Equal(s.T(), []models.OrderLine{{ProductID: 1, Quantity: 1}}, s.backend.orders[0].Items)
	require.Empty(s.T(), s.m.Entries())

	require.NoError(s.T(), s.m.AddItem(s.ctx, product(2, "5", 5), 1))
	require.Len(s.T(), s.m.Entries(), 1)
}

func (s *ManagerTestSuite) TestPlaceOrderOutlivesCallerCancel() {
	require.NoError(s.T(), s.m.AddItem(s.ctx, product(1, "10", 5), 1))
	var sawErr error
	var hasDeadline bool
	s.backend.order = func(ctx context.Context, _ models.OrderRequest) (*models.Order, error) {
		sawErr = ctx.Err()
		_, hasDeadline = ctx.Deadline()
		return &models.Order{ID: 5}, nil
	}

	ctx, cancel := context.WithCancel(s.ctx)
	cancel()
	order, err := s.m.PlaceOrder(ctx)
	require.NoError(s.T(), err)
	require.Equal(s.T(), int64(5), order.ID)
	require.NoError(s.T(), sawErr)
	require.True(s.T(), hasDeadline)
	require.Empty(s.T(), s.m.Entries())
}

func (s *ManagerTestSuite) TestEditAfterCheckoutResetsState() {
	require.NoError(s.T(), s.m.AddItem(s.ctx, product(1, "10", 5), 1))
	s.backend.order = func(context.Context, models.OrderRequest) (*models.Order, error) {
		return nil, &client.Error{Kind: client.KindServer, Op: "place order", Status: 502}
	}
	_, err := s.m.PlaceOrder(s.ctx)
	require.Error(s.T(), err)
	require.Equal(s.T(), CheckoutFailed, s.m.Snapshot().Checkout)

	require.NoError(s.T(), s.m.UpdateQuantity(s.ctx, 1, 2))
	snap := s.m.Snapshot()
	require.Equal(s.T(), CheckoutIdle, snap.Checkout)
	require.Empty(s.T(), snap.CheckoutError)

	s.backend.order = nil
	_, err = s.m.PlaceOrder(s.ctx)
	require.NoError(s.T(), err)
	require.Equal(s.T(), CheckoutCompleted, s.m.Snapshot().Checkout)

	require.NoError(s.T(), s.m.AddItem(s.ctx, product(2, "5", 5), 1))
	require.Equal(s.T(), CheckoutIdle, s.m.Snapshot().Checkout)
}

func TestIsSuperseded(t *testing.T) {
	require.True(t, IsSuperseded(ErrSuperseded))
	require.False(t, IsSuperseded(ErrEmptyCart))
}
