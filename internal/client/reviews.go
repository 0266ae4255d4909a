package client

import (
	"context"
	"net/http"
	"strconv"

	"github.com/Cheertaboi/storefront-checkout/internal/models"
)

func (c *Client) ProductReviews(ctx context.Context, productID int64) ([]models.Review, error) {
	var out []models.Review
	path := "/reviews/product/" + strconv.FormatInt(productID, 10)
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateReview(ctx context.Context, in models.ReviewInput) (*models.Review, error) {
	var out models.Review
	if err := c.do(ctx, http.MethodPost, "/reviews", nil, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteReview(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, "/reviews/"+strconv.FormatInt(id, 10), nil, nil, nil)
}
