package handlers

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/Cheertaboi/storefront-checkout/internal/models"
	"github.com/Cheertaboi/storefront-checkout/internal/shopper"
)

type OrderHandler struct {
	base
}

func NewOrderHandler(reg *shopper.Registry, log zerolog.Logger) *OrderHandler {
	return &OrderHandler{base{reg: reg, log: log}}
}

// ListOrders handles GET /api/orders
func (h *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	s, ok := h.shopper(w, r)
	if !ok {
		return
	}
	orders, err := s.API.ListOrders(r.Context())
	if err != nil {
		h.fail(w, r, err, "could not load orders")
		return
	}
	if orders == nil {
		orders = []models.Order{}
	}
	writeJSON(w, http.StatusOK, orders)
}

// GetOrder handles GET /api/orders/{id}
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeMessage(w, http.StatusBadRequest, "invalid order id")
		return
	}
	s, ok := h.shopper(w, r)
	if !ok {
		return
	}
	order, err := s.API.GetOrder(r.Context(), id)
	if err != nil {
		h.fail(w, r, err, "could not load order")
		return
	}
	writeJSON(w, http.StatusOK, order)
}
