package handlers

import (
	"context"

	"github.com/iota-uz/commerce-sdk/modules/inventory/domain/aggregates/inventory"
	"github.com/iota-uz/commerce-sdk/modules/inventory/services"
	orderevents "github.com/iota-uz/commerce-sdk/modules/order/domain/events"
	paymentevents "github.com/iota-uz/commerce-sdk/modules/payment/domain/events"
	"github.com/iota-uz/commerce-sdk/pkg/application"
	"github.com/iota-uz/commerce-sdk/pkg/composables"
	"github.com/iota-uz/commerce-sdk/pkg/outbox"
)

// OutboxEventsHandler drives the reservation state machine from the
// saga's events. All operations tolerate duplicate deliveries.
type OutboxEventsHandler struct {
	ctx       context.Context
	inventory *services.InventoryService
}

func RegisterOutboxEventHandlers(app application.Application) {
	ctx := context.Background()
	if app.DB() != nil {
		ctx = composables.WithPool(ctx, app.DB())
	}
	handler := &OutboxEventsHandler{
		ctx:       ctx,
		inventory: app.Service(services.InventoryService{}).(*services.InventoryService),
	}
	app.EventPublisher().Subscribe(handler.onOrderPlacedV1)
	app.EventPublisher().Subscribe(handler.onPaymentCompletedV1)
}

func (h *OutboxEventsHandler) onOrderPlacedV1(meta *outbox.Meta, ev *orderevents.OrderPlacedV1) error {
	if h == nil || h.inventory == nil || meta == nil || ev == nil {
		return nil
	}
	lines := make([]inventory.Line, 0, len(ev.Items))
	for _, item := range ev.Items {
		lines = append(lines, inventory.Line{SKU: item.SKU, Quantity: item.Quantity})
	}
	_, err := h.inventory.TryReserve(h.ctx, ev.OrderNo, lines)
	return err
}

func (h *OutboxEventsHandler) onPaymentCompletedV1(meta *outbox.Meta, ev *paymentevents.PaymentCompletedV1) error {
	if h == nil || h.inventory == nil || meta == nil || ev == nil {
		return nil
	}
	switch ev.Status {
	case paymentevents.PaymentStatusSucceeded:
		return h.inventory.Confirm(h.ctx, ev.OrderNo)
	case paymentevents.PaymentStatusFailed:
		return h.inventory.Cancel(h.ctx, ev.OrderNo)
	default:
		return nil
	}
}
