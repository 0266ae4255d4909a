package models

import (
	"errors"

	"github.com/shopspring/decimal"
)

var ErrInvalidDiscount = errors.New("discount must be between 0 and 100")

var hundred = decimal.NewFromInt(100)

// CouponValidation is the body of GET /coupons/validate.
type CouponValidation struct {
	Discount decimal.Decimal `json:"discount"`
	Message  string          `json:"message,omitempty"`
}

func (v CouponValidation) Validate() error {
	if v.Discount.IsNegative() || v.Discount.GreaterThan(hundred) {
		return ErrInvalidDiscount
	}
	return nil
}

// CouponState is the coupon currently applied to a cart.
type CouponState struct {
	Code     string          `json:"code"`
	Discount decimal.Decimal `json:"discount"`
}

func (c CouponState) Active() bool {
	return c.Code != "" && c.Discount.IsPositive()
}

// Apply reduces amount by the coupon percentage.
func (c CouponState) Apply(amount decimal.Decimal) decimal.Decimal {
	if !c.Active() {
		return amount
	}
	return amount.Mul(hundred.Sub(c.Discount)).Div(hundred)
}
