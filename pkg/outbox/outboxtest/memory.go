// Package outboxtest provides an in-memory stand-in for the durable
// outbox, for tests that exercise choreography without Postgres.
package outboxtest

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/iota-uz/commerce-sdk/pkg/outbox"
)

// DispatchFunc receives every appended message, in append order. Tests
// wire it to a module dispatcher to simulate the relay synchronously.
type DispatchFunc func(ctx context.Context, msg outbox.DispatchedMessage) error

// Memory records appended messages and optionally dispatches them
// immediately. Duplicate event ids are dropped, mirroring the
// ON CONFLICT (event_id) behavior of the durable store.
type Memory struct {
	mu       sync.Mutex
	seq      int64
	seen     map[uuid.UUID]struct{}
	Messages []outbox.Message

	Dispatch DispatchFunc
}

func NewMemory() *Memory {
	return &Memory{seen: make(map[uuid.UUID]struct{})}
}

func (m *Memory) Append(ctx context.Context, topic string, eventID uuid.UUID, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	m.mu.Lock()
	if _, dup := m.seen[eventID]; dup {
		m.mu.Unlock()
		return nil
	}
	m.seen[eventID] = struct{}{}
	m.seq++
	seq := m.seq
	msg := outbox.Message{
		Topic:      topic,
		EventID:    eventID,
		OccurredAt: time.Now(),
		Payload:    raw,
	}
	m.Messages = append(m.Messages, msg)
	dispatch := m.Dispatch
	m.mu.Unlock()

	if dispatch == nil {
		return nil
	}
	return dispatch(ctx, outbox.DispatchedMessage{
		Meta: outbox.Meta{
			Topic:      topic,
			EventID:    eventID,
			Sequence:   seq,
			Attempts:   1,
			OccurredAt: msg.OccurredAt,
		},
		Payload: raw,
	})
}

// Topics returns the appended topics in order.
func (m *Memory) Topics() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.Messages))
	for _, msg := range m.Messages {
		out = append(out, msg.Topic)
	}
	return out
}
