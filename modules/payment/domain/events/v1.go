package events

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	TopicPaymentCompletedV1 = "commerce.payment.completed.v1"
	TopicPaymentRefundedV1  = "commerce.payment.refunded.v1"
	EventVersionV1          = 1
)

const (
	PaymentStatusSucceeded = "Succeeded"
	PaymentStatusFailed    = "Failed"
)

// PaymentCompletedV1 announces that a payment attempt reached a
// terminal outcome.
type PaymentCompletedV1 struct {
	EventID      uuid.UUID       `json:"event_id"`
	EventVersion int             `json:"event_version"`
	OrderNo      string          `json:"order_no"`
	PaymentID    uuid.UUID       `json:"payment_id"`
	Status       string          `json:"status"`
	PaidAmount   decimal.Decimal `json:"paid_amount"`
	Reason       string          `json:"reason,omitempty"`
	OccurredAt   time.Time       `json:"occurred_at"`
}

// PaymentRefundedV1 announces a compensating refund of a settled
// payment.
type PaymentRefundedV1 struct {
	EventID      uuid.UUID       `json:"event_id"`
	EventVersion int             `json:"event_version"`
	OrderNo      string          `json:"order_no"`
	PaymentID    uuid.UUID       `json:"payment_id"`
	Amount       decimal.Decimal `json:"amount"`
	Reason       string          `json:"reason,omitempty"`
	OccurredAt   time.Time       `json:"occurred_at"`
}
