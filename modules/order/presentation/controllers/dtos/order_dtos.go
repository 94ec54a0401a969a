package dtos

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	ErrorCodeInvalidRequest = "INVALID_REQUEST"
	ErrorCodeOrderNotFound  = "ORDER_NOT_FOUND"
	ErrorCodeInternal       = "INTERNAL"
)

type OrderItemDTO struct {
	SKU       string          `json:"sku"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

type PlaceOrderRequest struct {
	OrderNo        string         `json:"order_no"`
	CustomerID     *int64         `json:"customer_id,omitempty"`
	Items          []OrderItemDTO `json:"items"`
	IdempotencyKey string         `json:"idempotency_key,omitempty"`
}

type OrderResponse struct {
	OrderNo    string          `json:"order_no"`
	CustomerID *int64          `json:"customer_id,omitempty"`
	Total      decimal.Decimal `json:"total"`
	Status     string          `json:"status"`
	Items      []OrderItemDTO  `json:"items"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}
