package handlers

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/Cheertaboi/storefront-checkout/internal/models"
	"github.com/Cheertaboi/storefront-checkout/internal/shopper"
)

type ReviewHandler struct {
	base
}

func NewReviewHandler(reg *shopper.Registry, log zerolog.Logger) *ReviewHandler {
	return &ReviewHandler{base{reg: reg, log: log}}
}

// ProductReviews handles GET /api/products/{id}/reviews
func (h *ReviewHandler) ProductReviews(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeMessage(w, http.StatusBadRequest, "invalid product id")
		return
	}
	s, ok := h.shopper(w, r)
	if !ok {
		return
	}
	reviews, err := s.API.ProductReviews(r.Context(), id)
	if err != nil {
		h.fail(w, r, err, "could not load reviews")
		return
	}
	if reviews == nil {
		reviews = []models.Review{}
	}
	writeJSON(w, http.StatusOK, reviews)
}

// CreateReview handles POST /api/reviews
func (h *ReviewHandler) CreateReview(w http.ResponseWriter, r *http.Request) {
	var in models.ReviewInput
	if err := decodeJSON(r, &in); err != nil {
		h.fail(w, r, err, "")
		return
	}
	if err := in.Validate(); err != nil {
		h.fail(w, r, err, "")
		return
	}
	s, ok := h.shopper(w, r)
	if !ok {
		return
	}
	review, err := s.API.CreateReview(r.Context(), in)
	if err != nil {
		h.fail(w, r, err, "could not post review")
		return
	}
	writeJSON(w, http.StatusCreated, review)
}

// DeleteReview handles DELETE /api/reviews/{id} (admin)
func (h *ReviewHandler) DeleteReview(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeMessage(w, http.StatusBadRequest, "invalid review id")
		return
	}
	s, ok := h.shopper(w, r)
	if !ok {
		return
	}
	if err := s.API.DeleteReview(r.Context(), id); err != nil {
		h.fail(w, r, err, "could not delete review")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
