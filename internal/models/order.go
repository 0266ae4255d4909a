package models

import "github.com/shopspring/decimal"

type OrderLine struct {
	ProductID int64 `json:"productId"`
	Quantity  int   `json:"quantity"`
}

// OrderRequest is the body of POST /orders.
type OrderRequest struct {
	Items      []OrderLine `json:"items"`
	CouponCode string      `json:"couponCode,omitempty"`
}

type OrderProduct struct {
	Product  Product `json:"product"`
	Quantity int     `json:"quantity"`
}

// Order dates are kept as sent; the backend emits zone-less local timestamps.
type Order struct {
	ID            int64           `json:"id"`
	TotalPrice    decimal.Decimal `json:"totalPrice"`
	OrderDate     string          `json:"orderDate,omitempty"`
	OrderProducts []OrderProduct  `json:"orderProducts,omitempty"`
}
