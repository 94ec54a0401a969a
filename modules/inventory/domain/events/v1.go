package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	TopicInventoryReservedV1 = "commerce.inventory.reserved.v1"
	EventVersionV1           = 1
)

// InventoryReservedV1 reports the outcome of a reservation attempt.
// Success=false carries the rejection reason and triggers compensation
// in the order and payment modules.
type InventoryReservedV1 struct {
	EventID      uuid.UUID `json:"event_id"`
	EventVersion int       `json:"event_version"`
	OrderNo      string    `json:"order_no"`
	Success      bool      `json:"success"`
	Reason       string    `json:"reason,omitempty"`
	OccurredAt   time.Time `json:"occurred_at"`
}
