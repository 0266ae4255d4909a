package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/Cheertaboi/storefront-checkout/internal/models"
)

func (c *Client) ListProducts(ctx context.Context) ([]models.Product, error) {
	var out []models.Product
	if err := c.do(ctx, http.MethodGet, "/products", nil, nil, &out); err != nil {
		return nil, err
	}
	return validProducts("GET /products", out)
}

// ProductsByCategory lists products in any of the given categories. With no
// ids it is the same as ListProducts.
func (c *Client) ProductsByCategory(ctx context.Context, categoryIDs []int64) ([]models.Product, error) {
	if len(categoryIDs) == 0 {
		return c.ListProducts(ctx)
	}
	q := url.Values{}
	q.Set("categoryIds", joinIDs(categoryIDs))

	var out []models.Product
	if err := c.do(ctx, http.MethodGet, "/products/by-category", q, nil, &out); err != nil {
		return nil, err
	}
	return validProducts("GET /products/by-category", out)
}

func (c *Client) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	path := "/products/" + strconv.FormatInt(id, 10)
	var out models.Product
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &out); err != nil {
		return nil, err
	}
	if err := out.Validate(); err != nil {
		return nil, invalid("GET "+path, err)
	}
	return &out, nil
}

func (c *Client) ListCategories(ctx context.Context) ([]models.Category, error) {
	var out []models.Category
	if err := c.do(ctx, http.MethodGet, "/categories", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateProduct(ctx context.Context, in models.ProductInput) (*models.Product, error) {
	var out models.Product
	if err := c.do(ctx, http.MethodPost, "/products", nil, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateProduct(ctx context.Context, id int64, in models.ProductInput) error {
	return c.do(ctx, http.MethodPut, "/products/"+strconv.FormatInt(id, 10), nil, in, nil)
}

// MarkUnavailable drops the stock of a product to zero, keeping the rest of
// its fields.
func (c *Client) MarkUnavailable(ctx context.Context, id int64) (*models.Product, error) {
	p, err := c.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	in := models.InputFrom(*p)
	in.Quantity = 0
	if err := c.UpdateProduct(ctx, id, in); err != nil {
		return nil, err
	}
	p.Stock = 0
	return p, nil
}

func (c *Client) DeleteProduct(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, "/products/"+strconv.FormatInt(id, 10), nil, nil, nil)
}

func validProducts(op string, ps []models.Product) ([]models.Product, error) {
	for _, p := range ps {
		if err := p.Validate(); err != nil {
			return nil, invalid(op, err)
		}
	}
	return ps, nil
}

func joinIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}
