package events

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type Type string

const (
	CouponApplied  Type = "coupon.applied"
	CouponRejected Type = "coupon.rejected"
	OrderPlaced    Type = "order.placed"
	OrderFailed    Type = "order.failed"
)

// Event describes one checkout outcome for one shopper.
type Event struct {
	ID         string           `json:"id"`
	Type       Type             `json:"type"`
	Shopper    string           `json:"shopper"`
	OccurredAt time.Time        `json:"occurred_at"`
	CouponCode string           `json:"coupon_code,omitempty"`
	Discount   *decimal.Decimal `json:"discount,omitempty"`
	OrderID    int64            `json:"order_id,omitempty"`
	Total      decimal.Decimal  `json:"total"`
	Items      int              `json:"items,omitempty"`
	Message    string           `json:"message,omitempty"`
}

type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
func (NopPublisher) Close() error                         { return nil }
