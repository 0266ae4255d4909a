package models

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

func init() {
	// the storefront backend speaks plain JSON numbers for money
	decimal.MarshalJSONWithoutQuotes = true
}

var ErrInvalidProduct = errors.New("invalid product")

type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type CategoryRef struct {
	ID int64 `json:"id"`
}

// Product is a catalog snapshot as returned by the backend. Stock travels
// as "quantity" on the wire.
type Product struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"quantity"`
	Categories  []Category      `json:"categories,omitempty"`
}

func (p Product) Validate() error {
	if p.ID <= 0 {
		return fmt.Errorf("%w: missing id", ErrInvalidProduct)
	}
	if p.Price.IsNegative() {
		return fmt.Errorf("%w: negative price", ErrInvalidProduct)
	}
	if p.Stock < 0 {
		return fmt.Errorf("%w: negative stock", ErrInvalidProduct)
	}
	return nil
}

func (p Product) Available() bool {
	return p.Stock > 0
}

// ProductInput is the admin create/update payload.
type ProductInput struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity"`
	Categories  []CategoryRef   `json:"categories"`
}

func (in ProductInput) Validate() error {
	switch {
	case in.Name == "":
		return fmt.Errorf("%w: name is required", ErrInvalidProduct)
	case in.Price.IsNegative():
		return fmt.Errorf("%w: price must not be negative", ErrInvalidProduct)
	case in.Quantity < 0:
		return fmt.Errorf("%w: quantity must not be negative", ErrInvalidProduct)
	}
	return nil
}

// InputFrom turns a fetched product back into an update payload.
func InputFrom(p Product) ProductInput {
	refs := make([]CategoryRef, 0, len(p.Categories))
	for _, c := range p.Categories {
		refs = append(refs, CategoryRef{ID: c.ID})
	}
	return ProductInput{
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		Quantity:    p.Stock,
		Categories:  refs,
	}
}
