package client

import (
	"context"
	"net/http"
	"net/url"

	"github.com/shopspring/decimal"

	"github.com/Cheertaboi/storefront-checkout/internal/models"
)

// ValidateCoupon asks the backend to resolve code against orderTotal.
func (c *Client) ValidateCoupon(ctx context.Context, code string, orderTotal decimal.Decimal) (*models.CouponValidation, error) {
	q := url.Values{}
	q.Set("code", code)
	q.Set("orderTotal", orderTotal.StringFixed(2))

	var out models.CouponValidation
	if err := c.do(ctx, http.MethodGet, "/coupons/validate", q, nil, &out); err != nil {
		return nil, err
	}
	if err := out.Validate(); err != nil {
		return nil, invalid("GET /coupons/validate", err)
	}
	return &out, nil
}
