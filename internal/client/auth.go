package client

import (
	"context"
	"errors"
	"net/http"

	"github.com/Cheertaboi/storefront-checkout/internal/models"
)

var errMissingToken = errors.New("response carries no token")

func (c *Client) Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error) {
	var out models.AuthResponse
	if err := c.do(ctx, http.MethodPost, "/auth/login", nil, req, &out); err != nil {
		return nil, err
	}
	if out.Token == "" {
		return nil, invalid("POST /auth/login", errMissingToken)
	}
	return &out, nil
}

// Register creates an account. Backends that log the user straight in
// return a token; others return an empty body.
func (c *Client) Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResponse, error) {
	var out models.AuthResponse
	if err := c.do(ctx, http.MethodPost, "/auth/register", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
