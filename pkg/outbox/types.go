package outbox

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Message is the unit stored in <module>_outbox. EventID is globally
// unique and doubles as the consumer-side deduplication key.
type Message struct {
	Topic      string
	EventID    uuid.UUID
	OccurredAt time.Time
	Payload    json.RawMessage
}

// Meta is the stable dispatch metadata (idempotency + ops).
type Meta struct {
	Table      pgx.Identifier
	Topic      string
	EventID    uuid.UUID
	Sequence   int64
	Attempts   int
	OccurredAt time.Time
}

// DispatchedMessage is the unit delivered by Relay to Dispatcher.
type DispatchedMessage struct {
	Meta    Meta
	Payload json.RawMessage
}
