package cart

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Cheertaboi/storefront-checkout/internal/client"
	"github.com/Cheertaboi/storefront-checkout/internal/events"
	"github.com/Cheertaboi/storefront-checkout/internal/models"
)

type CheckoutState string

const (
	CheckoutIdle       CheckoutState = "idle"
	CheckoutSubmitting CheckoutState = "submitting"
	CheckoutFailed     CheckoutState = "failed"
	CheckoutCompleted  CheckoutState = "completed"
)

const (
	couponFallback = "invalid coupon"
	orderFallback  = "failed to place order"
)

// submitTimeout bounds an order submission once started. The caller's
// cancellation does not reach it: the backend may already have taken
// the order.
const submitTimeout = 30 * time.Second

// ApplyCoupon validates code against the current undiscounted total. A
// newer call, an order or Clear supersedes an in-flight one: its result is
// dropped and ErrSuperseded returned.
func (m *Manager) ApplyCoupon(ctx context.Context, code string) (models.CouponState, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return models.CouponState{}, ErrCouponCodeRequired
	}

	m.mu.Lock()
	m.supersedeCouponLocked()
	seq := m.couponSeq
	callCtx, cancel := context.WithCancel(ctx)
	m.couponCancel = cancel
	total := totalOf(m.entries)
	m.mu.Unlock()
	defer cancel()

	res, err := m.backend.ValidateCoupon(callCtx, code, total)

	m.mu.Lock()
	if seq != m.couponSeq {
		m.mu.Unlock()
		return models.CouponState{}, ErrSuperseded
	}
	m.couponCancel = nil
	if err != nil {
		m.coupon = models.CouponState{}
		m.couponErr = client.Message(err, couponFallback)
		msg := m.couponErr
		m.revision++
		m.mu.Unlock()

		m.save(ctx)
		m.publish(ctx, events.Event{Type: events.CouponRejected, CouponCode: code, Total: total, Message: msg})
		return models.CouponState{}, err
	}
	state := models.CouponState{Code: code, Discount: res.Discount}
	m.coupon = state
	m.couponErr = ""
	m.revision++
	m.mu.Unlock()

	m.save(ctx)
	discount := res.Discount
	m.publish(ctx, events.Event{Type: events.CouponApplied, CouponCode: code, Discount: &discount, Total: total})
	return state, nil
}

// PlaceOrder submits the cart with the applied coupon, if any. Only one
// submission runs at a time and the cart cannot be edited meanwhile. On
// success the cart and coupon are cleared; on failure both are kept.
func (m *Manager) PlaceOrder(ctx context.Context) (*models.Order, error) {
	m.mu.Lock()
	if m.checkout == CheckoutSubmitting {
		m.mu.Unlock()
		return nil, ErrCheckoutInProgress
	}
	if len(m.entries) == 0 {
		m.mu.Unlock()
		return nil, ErrEmptyCart
	}
	req := models.OrderRequest{Items: make([]models.OrderLine, 0, len(m.entries))}
	items := 0
	for _, e := range m.entries {
		req.Items = append(req.Items, models.OrderLine{ProductID: e.Product.ID, Quantity: e.Quantity})
		items += e.Quantity
	}
	if m.coupon.Active() {
		req.CouponCode = m.coupon.Code
	}
	total := m.coupon.Apply(totalOf(m.entries)).Round(2)
	m.checkout = CheckoutSubmitting
	m.checkoutErr = ""
	m.mu.Unlock()

	submitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), submitTimeout)
	order, err := m.backend.PlaceOrder(submitCtx, req)
	cancel()

	m.mu.Lock()
	if err != nil {
		m.checkout = CheckoutFailed
		m.checkoutErr = client.Message(err, orderFallback)
		msg := m.checkoutErr
		m.mu.Unlock()

		m.log.Warn().Err(err).Str("shopper", m.owner).Msg("place order")
		m.publish(ctx, events.Event{Type: events.OrderFailed, CouponCode: req.CouponCode, Total: total, Items: items, Message: msg})
		return nil, err
	}
	m.supersedeCouponLocked()
	m.replaceLocked(nil)
	m.coupon = models.CouponState{}
	m.couponErr = ""
	m.checkout = CheckoutCompleted
	m.mu.Unlock()

	m.save(ctx)
	ev := events.Event{Type: events.OrderPlaced, CouponCode: req.CouponCode, Total: total, Items: items}
	if order != nil {
		ev.OrderID = order.ID
		if !order.TotalPrice.IsZero() {
			ev.Total = order.TotalPrice
		}
	}
	m.publish(ctx, ev)
	return order, nil
}

// Line is one rendered cart row.
type Line struct {
	Product   models.Product  `json:"product"`
	Quantity  int             `json:"quantity"`
	LineTotal decimal.Decimal `json:"line_total"`
}

// Snapshot is a consistent view of the cart for display.
type Snapshot struct {
	Items           []Line          `json:"items"`
	ItemCount       int             `json:"item_count"`
	Total           decimal.Decimal `json:"total"`
	CouponCode      string          `json:"coupon_code,omitempty"`
	Discount        decimal.Decimal `json:"discount"`
	DiscountedTotal decimal.Decimal `json:"discounted_total"`
	CouponError     string          `json:"coupon_error,omitempty"`
	Checkout        CheckoutState   `json:"checkout"`
	CheckoutError   string          `json:"checkout_error,omitempty"`
	Revision        uint64          `json:"revision"`
}

func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := Snapshot{
		Items:         make([]Line, 0, len(m.entries)),
		Total:         totalOf(m.entries),
		Discount:      decimal.Zero,
		CouponError:   m.couponErr,
		Checkout:      m.checkout,
		CheckoutError: m.checkoutErr,
		Revision:      m.revision,
	}
	for _, e := range m.entries {
		s.Items = append(s.Items, Line{Product: e.Product, Quantity: e.Quantity, LineTotal: e.LineTotal()})
		s.ItemCount += e.Quantity
	}
	if m.coupon.Active() {
		s.CouponCode = m.coupon.Code
		s.Discount = m.coupon.Discount
	}
	s.DiscountedTotal = m.coupon.Apply(s.Total).Round(2)
	return s
}

// IsSuperseded reports whether err only means a newer request won.
func IsSuperseded(err error) bool {
	return errors.Is(err, ErrSuperseded)
}
