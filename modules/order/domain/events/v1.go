package events

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	TopicOrderPlacedV1 = "commerce.order.placed.v1"
	EventVersionV1     = 1
)

type OrderItemV1 struct {
	SKU       string          `json:"sku"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// OrderPlacedV1 is emitted once per checkout and never mutated.
// IdempotencyKey is forwarded to the payment processor so a redelivered
// envelope cannot create a second charge.
type OrderPlacedV1 struct {
	EventID        uuid.UUID       `json:"event_id"`
	EventVersion   int             `json:"event_version"`
	OrderNo        string          `json:"order_no"`
	CustomerID     *int64          `json:"customer_id,omitempty"`
	Total          decimal.Decimal `json:"total"`
	Items          []OrderItemV1   `json:"items"`
	IdempotencyKey string          `json:"idempotency_key"`
	OccurredAt     time.Time       `json:"occurred_at"`
}
