package outbox

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/iota-uz/commerce-sdk/pkg/composables"
	"github.com/iota-uz/commerce-sdk/pkg/outbox"
)

// Table is the inventory module's outbox table.
var Table = pgx.Identifier{"inventory_outbox"}

type Writer struct {
	publisher outbox.Publisher
}

func NewWriter() *Writer {
	return &Writer{publisher: outbox.NewPublisher()}
}

func (w *Writer) Append(ctx context.Context, topic string, eventID uuid.UUID, payload any) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("inventory outbox: encode %s: %w", topic, err)
	}
	_, err = w.publisher.Enqueue(ctx, tx, Table, outbox.Message{
		Topic:   topic,
		EventID: eventID,
		Payload: body,
	})
	return err
}
