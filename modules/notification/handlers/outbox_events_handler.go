package handlers

import (
	"context"

	inventoryevents "github.com/iota-uz/commerce-sdk/modules/inventory/domain/events"
	"github.com/iota-uz/commerce-sdk/modules/notification/services"
	paymentevents "github.com/iota-uz/commerce-sdk/modules/payment/domain/events"
	"github.com/iota-uz/commerce-sdk/pkg/application"
	"github.com/iota-uz/commerce-sdk/pkg/outbox"
)

type OutboxEventsHandler struct {
	notifications *services.NotificationService
}

func RegisterOutboxEventHandlers(app application.Application) {
	handler := &OutboxEventsHandler{
		notifications: app.Service(services.NotificationService{}).(*services.NotificationService),
	}
	app.EventPublisher().Subscribe(handler.onPaymentCompletedV1)
	app.EventPublisher().Subscribe(handler.onPaymentRefundedV1)
	app.EventPublisher().Subscribe(handler.onInventoryReservedV1)
}

func (h *OutboxEventsHandler) onPaymentCompletedV1(meta *outbox.Meta, ev *paymentevents.PaymentCompletedV1) error {
	if h == nil || h.notifications == nil || meta == nil || ev == nil {
		return nil
	}
	switch ev.Status {
	case paymentevents.PaymentStatusSucceeded:
		h.notifications.NotifyOrderPaid(context.Background(), ev.OrderNo)
	case paymentevents.PaymentStatusFailed:
		h.notifications.NotifyOrderCancelled(context.Background(), ev.OrderNo, ev.Reason)
	}
	return nil
}

func (h *OutboxEventsHandler) onPaymentRefundedV1(meta *outbox.Meta, ev *paymentevents.PaymentRefundedV1) error {
	if h == nil || h.notifications == nil || meta == nil || ev == nil {
		return nil
	}
	h.notifications.NotifyRefund(context.Background(), ev.OrderNo)
	return nil
}

func (h *OutboxEventsHandler) onInventoryReservedV1(meta *outbox.Meta, ev *inventoryevents.InventoryReservedV1) error {
	if h == nil || h.notifications == nil || meta == nil || ev == nil {
		return nil
	}
	if !ev.Success {
		h.notifications.NotifyOrderCancelled(context.Background(), ev.OrderNo, ev.Reason)
	}
	return nil
}
