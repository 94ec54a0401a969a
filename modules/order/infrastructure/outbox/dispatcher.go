package outbox

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/iota-uz/commerce-sdk/modules/order/domain/events"
	"github.com/iota-uz/commerce-sdk/pkg/eventbus"
	"github.com/iota-uz/commerce-sdk/pkg/outbox"
)

type Dispatcher struct {
	bus eventbus.EventBusWithError
}

func NewDispatcher(bus eventbus.EventBusWithError) *Dispatcher {
	return &Dispatcher{bus: bus}
}

func (d *Dispatcher) Dispatch(ctx context.Context, msg outbox.DispatchedMessage) error {
	_ = ctx
	if d == nil || d.bus == nil {
		return fmt.Errorf("order outbox dispatcher: bus is nil")
	}

	switch msg.Meta.Topic {
	case events.TopicOrderPlacedV1:
		var ev events.OrderPlacedV1
		if err := json.Unmarshal(msg.Payload, &ev); err != nil {
			return fmt.Errorf("order outbox dispatcher: decode payload: %w", err)
		}
		return d.bus.PublishE(&msg.Meta, &ev)
	default:
		return fmt.Errorf("order outbox dispatcher: unsupported topic %q", msg.Meta.Topic)
	}
}
