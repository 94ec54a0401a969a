package handlers

import (
	"context"
	"errors"

	inventoryevents "github.com/iota-uz/commerce-sdk/modules/inventory/domain/events"
	orderaggregate "github.com/iota-uz/commerce-sdk/modules/order/domain/aggregates/order"
	orderevents "github.com/iota-uz/commerce-sdk/modules/order/domain/events"
	orderservices "github.com/iota-uz/commerce-sdk/modules/order/services"
	"github.com/iota-uz/commerce-sdk/modules/payment/services"
	"github.com/iota-uz/commerce-sdk/pkg/application"
	"github.com/iota-uz/commerce-sdk/pkg/composables"
	"github.com/iota-uz/commerce-sdk/pkg/outbox"
)

// OutboxEventsHandler opens payment attempts for placed orders and
// compensates them when the inventory side of the saga fails. Both
// interleavings are covered: a failure that lands before the payment
// exists cancels the order, and the handler refuses to charge a
// cancelled order; a failure that lands after is compensated by
// Refund.
type OutboxEventsHandler struct {
	ctx      context.Context
	payments *services.PaymentService
	orders   *orderservices.OrderService
}

func RegisterOutboxEventHandlers(app application.Application) {
	ctx := context.Background()
	if app.DB() != nil {
		ctx = composables.WithPool(ctx, app.DB())
	}
	handler := &OutboxEventsHandler{
		ctx:      ctx,
		payments: app.Service(services.PaymentService{}).(*services.PaymentService),
		orders:   app.Service(orderservices.OrderService{}).(*orderservices.OrderService),
	}
	app.EventPublisher().Subscribe(handler.onOrderPlacedV1)
	app.EventPublisher().Subscribe(handler.onInventoryReservedV1)
}

func (h *OutboxEventsHandler) onOrderPlacedV1(meta *outbox.Meta, ev *orderevents.OrderPlacedV1) error {
	if h == nil || h.payments == nil || meta == nil || ev == nil {
		return nil
	}
	if h.orders != nil {
		o, err := h.orders.GetByOrderNo(h.ctx, ev.OrderNo)
		if err != nil && !errors.Is(err, orderaggregate.ErrOrderNotFound) {
			return err
		}
		if err == nil && o.Status() == orderaggregate.StatusCancelled {
			return nil
		}
	}
	_, err := h.payments.Create(h.ctx, services.CreatePaymentCommand{
		OrderNo:        ev.OrderNo,
		Amount:         ev.Total,
		IdempotencyKey: ev.IdempotencyKey,
	})
	return err
}

func (h *OutboxEventsHandler) onInventoryReservedV1(meta *outbox.Meta, ev *inventoryevents.InventoryReservedV1) error {
	if h == nil || h.payments == nil || meta == nil || ev == nil {
		return nil
	}
	if ev.Success {
		return nil
	}
	return h.payments.Refund(h.ctx, ev.OrderNo, ev.Reason)
}
