package cart

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/Cheertaboi/storefront-checkout/internal/events"
	"github.com/Cheertaboi/storefront-checkout/internal/models"
)

var (
	ErrInvalidQuantity    = errors.New("quantity must be at least 1 and within available stock")
	ErrCouponCodeRequired = errors.New("coupon code is required")
	ErrEmptyCart          = errors.New("cart is empty")
	ErrSuperseded         = errors.New("superseded by a newer request")
	ErrCheckoutInProgress = errors.New("an order is already being submitted")
)

// Backend is the slice of the storefront API the cart needs.
type Backend interface {
	ValidateCoupon(ctx context.Context, code string, orderTotal decimal.Decimal) (*models.CouponValidation, error)
	PlaceOrder(ctx context.Context, req models.OrderRequest) (*models.Order, error)
}

// Manager holds one shopper's cart. Mutations are serialized; the lock is
// never held across a backend call.
type Manager struct {
	backend Backend
	state   StateStore
	events  events.Publisher
	log     zerolog.Logger
	owner   string

	mu          sync.Mutex
	entries     []models.CartEntry
	coupon      models.CouponState
	couponErr   string
	checkout    CheckoutState
	checkoutErr string
	revision    uint64

	// in-flight tokens, one per operation kind
	couponSeq    uint64
	couponCancel context.CancelFunc

	// persistMu orders writes to state; persisted is the revision last
	// written
	persistMu sync.Mutex
	persisted uint64
}

type Option func(*Manager)

func WithState(s StateStore) Option {
	return func(m *Manager) { m.state = s }
}

func WithPublisher(p events.Publisher) Option {
	return func(m *Manager) { m.events = p }
}

func WithLogger(l zerolog.Logger) Option {
	return func(m *Manager) { m.log = l }
}

// WithOwner names the shopper in published events.
func WithOwner(id string) Option {
	return func(m *Manager) { m.owner = id }
}

func New(backend Backend, opts ...Option) *Manager {
	m := &Manager{
		backend:  backend,
		state:    nopState{},
		events:   events.NopPublisher{},
		log:      zerolog.Nop(),
		checkout: CheckoutIdle,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Load restores the persisted cart and coupon, replacing current contents.
func (m *Manager) Load(ctx context.Context) error {
	rec, ok, err := m.state.Load(ctx)
	if err != nil || !ok {
		return err
	}
	entries := make([]models.CartEntry, 0, len(rec.Entries))
	seen := make(map[int64]bool, len(rec.Entries))
	for _, e := range rec.Entries {
		if e.Quantity < 1 || e.Product.ID <= 0 || seen[e.Product.ID] {
			continue
		}
		seen[e.Product.ID] = true
		entries = append(entries, e)
	}
	coupon := rec.Coupon
	if (models.CouponValidation{Discount: coupon.Discount}).Validate() != nil {
		coupon = models.CouponState{}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.replaceLocked(entries)
	m.coupon = coupon
	return nil
}

// AddItem merges quantity into the entry for product, appending a new entry
// when there is none. quantity is checked against the product's stock; the
// merged sum is not.
func (m *Manager) AddItem(ctx context.Context, product models.Product, quantity int) error {
	if err := product.Validate(); err != nil {
		return err
	}
	if quantity < 1 || quantity > product.Stock {
		return ErrInvalidQuantity
	}

	m.mu.Lock()
	if err := m.editableLocked(); err != nil {
		m.mu.Unlock()
		return err
	}
	next := make([]models.CartEntry, len(m.entries), len(m.entries)+1)
	copy(next, m.entries)
	merged := false
	for i := range next {
		if next[i].Product.ID == product.ID {
			next[i].Quantity += quantity
			merged = true
			break
		}
	}
	if !merged {
		next = append(next, models.CartEntry{Product: product, Quantity: quantity})
	}
	m.replaceLocked(next)
	m.mu.Unlock()

	m.save(ctx)
	return nil
}

// UpdateQuantity sets the quantity of an existing entry. Unknown ids are a
// no-op.
func (m *Manager) UpdateQuantity(ctx context.Context, productID int64, quantity int) error {
	if quantity < 1 {
		return ErrInvalidQuantity
	}

	m.mu.Lock()
	if err := m.editableLocked(); err != nil {
		m.mu.Unlock()
		return err
	}
	idx := m.indexLocked(productID)
	if idx < 0 {
		m.mu.Unlock()
		return nil
	}
	next := make([]models.CartEntry, len(m.entries))
	copy(next, m.entries)
	next[idx].Quantity = quantity
	m.replaceLocked(next)
	m.mu.Unlock()

	m.save(ctx)
	return nil
}

// RemoveItem deletes the entry for productID, if any.
func (m *Manager) RemoveItem(ctx context.Context, productID int64) error {
	m.mu.Lock()
	if err := m.editableLocked(); err != nil {
		m.mu.Unlock()
		return err
	}
	idx := m.indexLocked(productID)
	if idx < 0 {
		m.mu.Unlock()
		return nil
	}
	next := make([]models.CartEntry, 0, len(m.entries)-1)
	next = append(next, m.entries[:idx]...)
	next = append(next, m.entries[idx+1:]...)
	m.replaceLocked(next)
	m.mu.Unlock()

	m.save(ctx)
	return nil
}

// Clear discards cart and coupon, cancelling any coupon check in flight.
func (m *Manager) Clear(ctx context.Context) error {
	m.mu.Lock()
	m.supersedeCouponLocked()
	m.replaceLocked(nil)
	m.coupon = models.CouponState{}
	m.couponErr = ""
	m.checkout = CheckoutIdle
	m.checkoutErr = ""
	m.mu.Unlock()

	return m.persist(ctx)
}

// Entries returns the current entry sequence. Every mutation installs a new
// slice, so callers may keep it but must not modify it.
func (m *Manager) Entries() []models.CartEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.entries
}

func (m *Manager) Coupon() models.CouponState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.coupon
}

func (m *Manager) Revision() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.revision
}

// Total is the undiscounted sum of price * quantity.
func (m *Manager) Total() decimal.Decimal {
	m.mu.Lock()
	defer m.mu.Unlock()
	return totalOf(m.entries)
}

// DiscountedTotal applies the active coupon to Total, rounded to cents.
func (m *Manager) DiscountedTotal() decimal.Decimal {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.coupon.Apply(totalOf(m.entries)).Round(2)
}

func totalOf(entries []models.CartEntry) decimal.Decimal {
	total := decimal.Zero
	for _, e := range entries {
		total = total.Add(e.LineTotal())
	}
	return total
}

func (m *Manager) indexLocked(productID int64) int {
	for i, e := range m.entries {
		if e.Product.ID == productID {
			return i
		}
	}
	return -1
}

func (m *Manager) replaceLocked(next []models.CartEntry) {
	m.entries = next
	m.revision++
}

func (m *Manager) recordLocked() Record {
	return Record{Entries: m.entries, Coupon: m.coupon}
}

func (m *Manager) supersedeCouponLocked() {
	m.couponSeq++
	if m.couponCancel != nil {
		m.couponCancel()
		m.couponCancel = nil
	}
}

// editableLocked rejects edits while an order is being submitted and
// returns a finished checkout to idle.
func (m *Manager) editableLocked() error {
	switch m.checkout {
	case CheckoutSubmitting:
		return ErrCheckoutInProgress
	case CheckoutCompleted, CheckoutFailed:
		m.checkout = CheckoutIdle
		m.checkoutErr = ""
	}
	return nil
}

// persist writes the current record. Writes are serialized and always take
// the latest state, so an older snapshot can never land after a newer one.
func (m *Manager) persist(ctx context.Context) error {
	m.persistMu.Lock()
	defer m.persistMu.Unlock()

	m.mu.Lock()
	rec, rev := m.recordLocked(), m.revision
	m.mu.Unlock()
	if rev <= m.persisted {
		return nil
	}
	if err := m.state.Save(context.WithoutCancel(ctx), rec); err != nil {
		return err
	}
	m.persisted = rev
	return nil
}

func (m *Manager) save(ctx context.Context) {
	if err := m.persist(ctx); err != nil {
		m.log.Warn().Err(err).Str("shopper", m.owner).Msg("persist cart")
	}
}

func (m *Manager) publish(ctx context.Context, ev events.Event) {
	ev.Shopper = m.owner
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if err := m.events.Publish(ctx, ev); err != nil {
		m.log.Warn().Err(err).Str("event", string(ev.Type)).Msg("publish checkout event")
	}
}
