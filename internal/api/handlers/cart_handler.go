package handlers

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/Cheertaboi/storefront-checkout/internal/cart"
	"github.com/Cheertaboi/storefront-checkout/internal/models"
	"github.com/Cheertaboi/storefront-checkout/internal/shopper"
)

type AddItemRequest struct {
	ProductID int64 `json:"product_id"`
	Quantity  *int  `json:"quantity,omitempty"`
}

type UpdateItemRequest struct {
	Quantity int `json:"quantity"`
}

type CheckoutResponse struct {
	Order *models.Order `json:"order"`
	Cart  cart.Snapshot `json:"cart"`
}

type CartHandler struct {
	base
}

func NewCartHandler(reg *shopper.Registry, log zerolog.Logger) *CartHandler {
	return &CartHandler{base{reg: reg, log: log}}
}

// Get handles GET /api/cart
func (h *CartHandler) Get(w http.ResponseWriter, r *http.Request) {
	s, ok := h.shopper(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.Cart.Snapshot())
}

// AddItem handles POST /api/cart/items. The product is fetched fresh so
// price and stock come from the backend, not the browser.
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req AddItemRequest
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, r, err, "")
		return
	}
	if req.ProductID <= 0 {
		writeMessage(w, http.StatusBadRequest, "product_id is required")
		return
	}
	qty := 1
	if req.Quantity != nil {
		qty = *req.Quantity
	}

	s, ok := h.shopper(w, r)
	if !ok {
		return
	}
	p, err := s.API.GetProduct(r.Context(), req.ProductID)
	if err != nil {
		h.fail(w, r, err, "could not load product")
		return
	}
	if err := s.Cart.AddItem(r.Context(), *p, qty); err != nil {
		h.fail(w, r, err, "could not add to cart")
		return
	}
	writeJSON(w, http.StatusOK, s.Cart.Snapshot())
}

// UpdateItem handles PUT /api/cart/items/{productID}
func (h *CartHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "productID")
	if !ok {
		writeMessage(w, http.StatusBadRequest, "invalid product id")
		return
	}
	var req UpdateItemRequest
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, r, err, "")
		return
	}
	s, ok := h.shopper(w, r)
	if !ok {
		return
	}
	if err := s.Cart.UpdateQuantity(r.Context(), id, req.Quantity); err != nil {
		h.fail(w, r, err, "could not update cart")
		return
	}
	writeJSON(w, http.StatusOK, s.Cart.Snapshot())
}

// RemoveItem handles DELETE /api/cart/items/{productID}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "productID")
	if !ok {
		writeMessage(w, http.StatusBadRequest, "invalid product id")
		return
	}
	s, ok := h.shopper(w, r)
	if !ok {
		return
	}
	if err := s.Cart.RemoveItem(r.Context(), id); err != nil {
		h.fail(w, r, err, "could not update cart")
		return
	}
	writeJSON(w, http.StatusOK, s.Cart.Snapshot())
}

// Checkout handles POST /api/cart/checkout
func (h *CartHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	s, ok := h.shopper(w, r)
	if !ok {
		return
	}
	order, err := s.Cart.PlaceOrder(r.Context())
	if err != nil {
		h.fail(w, r, err, "failed to place order")
		return
	}
	writeJSON(w, http.StatusCreated, CheckoutResponse{Order: order, Cart: s.Cart.Snapshot()})
}
