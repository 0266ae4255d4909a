package models

import (
	"errors"
	"fmt"
)

var ErrInvalidReview = errors.New("invalid review")

type Review struct {
	ID        int64  `json:"id"`
	ProductID int64  `json:"productId,omitempty"`
	Content   string `json:"content"`
	Rating    int    `json:"rating"`
}

type ReviewInput struct {
	ProductID int64  `json:"productId"`
	Content   string `json:"content"`
	Rating    int    `json:"rating"`
}

func (in ReviewInput) Validate() error {
	switch {
	case in.ProductID <= 0:
		return fmt.Errorf("%w: product is required", ErrInvalidReview)
	case in.Content == "":
		return fmt.Errorf("%w: content is required", ErrInvalidReview)
	case in.Rating < 1 || in.Rating > 5:
		return fmt.Errorf("%w: rating must be 1-5", ErrInvalidReview)
	}
	return nil
}
