package handlers

import (
	"net/http"
)

type ApplyCouponRequest struct {
	Code string `json:"code"`
}

// ApplyCoupon handles POST /api/cart/coupon
// validates the code against the current cart total; a rejected code
// leaves the cart without a discount
func (h *CartHandler) ApplyCoupon(w http.ResponseWriter, r *http.Request) {
	var req ApplyCouponRequest
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, r, err, "")
		return
	}
	s, ok := h.shopper(w, r)
	if !ok {
		return
	}

	if _, err := s.Cart.ApplyCoupon(r.Context(), req.Code); err != nil {
		h.fail(w, r, err, "invalid coupon")
		return
	}
	writeJSON(w, http.StatusOK, s.Cart.Snapshot())
}
