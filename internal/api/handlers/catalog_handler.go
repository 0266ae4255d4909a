package handlers

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/Cheertaboi/storefront-checkout/internal/models"
	"github.com/Cheertaboi/storefront-checkout/internal/shopper"
)

type CatalogHandler struct {
	base
}

func NewCatalogHandler(reg *shopper.Registry, log zerolog.Logger) *CatalogHandler {
	return &CatalogHandler{base{reg: reg, log: log}}
}

// ListProducts handles GET /api/products, optionally filtered with
// ?categoryIds=1,2
func (h *CatalogHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	ids, err := parseIDs(r.URL.Query().Get("categoryIds"))
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid categoryIds")
		return
	}
	s, ok := h.shopper(w, r)
	if !ok {
		return
	}
	products, err := s.API.ProductsByCategory(r.Context(), ids)
	if err != nil {
		h.fail(w, r, err, "could not load products")
		return
	}
	if products == nil {
		products = []models.Product{}
	}
	writeJSON(w, http.StatusOK, products)
}

func (h *CatalogHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeMessage(w, http.StatusBadRequest, "invalid product id")
		return
	}
	s, ok := h.shopper(w, r)
	if !ok {
		return
	}
	p, err := s.API.GetProduct(r.Context(), id)
	if err != nil {
		h.fail(w, r, err, "could not load product")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *CatalogHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	s, ok := h.shopper(w, r)
	if !ok {
		return
	}
	cats, err := s.API.ListCategories(r.Context())
	if err != nil {
		h.fail(w, r, err, "could not load categories")
		return
	}
	if cats == nil {
		cats = []models.Category{}
	}
	writeJSON(w, http.StatusOK, cats)
}

// CreateProduct handles POST /api/products (admin)
func (h *CatalogHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var in models.ProductInput
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
	p, err := s.API.CreateProduct(r.Context(), in)
	if err != nil {
		h.fail(w, r, err, "could not create product")
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// UpdateProduct handles PUT /api/products/{id} (admin)
func (h *CatalogHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeMessage(w, http.StatusBadRequest, "invalid product id")
		return
	}
	var in models.ProductInput
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
	if err := s.API.UpdateProduct(r.Context(), id, in); err != nil {
		h.fail(w, r, err, "could not update product")
		return
	}
	p, err := s.API.GetProduct(r.Context(), id)
	if err != nil {
		h.fail(w, r, err, "product updated but could not be reloaded")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// MarkUnavailable handles POST /api/products/{id}/unavailable (admin)
func (h *CatalogHandler) MarkUnavailable(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeMessage(w, http.StatusBadRequest, "invalid product id")
		return
	}
	s, ok := h.shopper(w, r)
	if !ok {
		return
	}
	p, err := s.API.MarkUnavailable(r.Context(), id)
	if err != nil {
		h.fail(w, r, err, "could not update product")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// DeleteProduct handles DELETE /api/products/{id} (admin)
func (h *CatalogHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeMessage(w, http.StatusBadRequest, "invalid product id")
		return
	}
	s, ok := h.shopper(w, r)
	if !ok {
		return
	}
	if err := s.API.DeleteProduct(r.Context(), id); err != nil {
		h.fail(w, r, err, "could not delete product")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
