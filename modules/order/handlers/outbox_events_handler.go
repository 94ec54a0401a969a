package handlers

import (
	"context"

	inventoryevents "github.com/iota-uz/commerce-sdk/modules/inventory/domain/events"
	"github.com/iota-uz/commerce-sdk/modules/order/services"
	paymentevents "github.com/iota-uz/commerce-sdk/modules/payment/domain/events"
	"github.com/iota-uz/commerce-sdk/pkg/application"
	"github.com/iota-uz/commerce-sdk/pkg/composables"
	"github.com/iota-uz/commerce-sdk/pkg/outbox"
)

// OutboxEventsHandler moves orders through their terminal statuses as
// the saga resolves. Transitions are no-ops on terminal orders, so
// duplicate deliveries are harmless.
type OutboxEventsHandler struct {
	ctx    context.Context
	orders *services.OrderService
}

func RegisterOutboxEventHandlers(app application.Application) {
	ctx := context.Background()
	if app.DB() != nil {
		ctx = composables.WithPool(ctx, app.DB())
	}
	handler := &OutboxEventsHandler{
		ctx:    ctx,
		orders: app.Service(services.OrderService{}).(*services.OrderService),
	}
	app.EventPublisher().Subscribe(handler.onInventoryReservedV1)
	app.EventPublisher().Subscribe(handler.onPaymentCompletedV1)
}

func (h *OutboxEventsHandler) onInventoryReservedV1(meta *outbox.Meta, ev *inventoryevents.InventoryReservedV1) error {
	if h == nil || h.orders == nil || meta == nil || ev == nil {
		return nil
	}
	if ev.Success {
		return nil
	}
	return h.orders.MarkCancelled(h.ctx, ev.OrderNo)
}

func (h *OutboxEventsHandler) onPaymentCompletedV1(meta *outbox.Meta, ev *paymentevents.PaymentCompletedV1) error {
	if h == nil || h.orders == nil || meta == nil || ev == nil {
		return nil
	}
	switch ev.Status {
	case paymentevents.PaymentStatusSucceeded:
		return h.orders.MarkPaid(h.ctx, ev.OrderNo)
	case paymentevents.PaymentStatusFailed:
		return h.orders.MarkCancelled(h.ctx, ev.OrderNo)
	default:
		return nil
	}
}
