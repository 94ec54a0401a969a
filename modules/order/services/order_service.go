package services

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/iota-uz/commerce-sdk/modules/order/domain/aggregates/order"
	"github.com/iota-uz/commerce-sdk/modules/order/domain/events"
	"github.com/iota-uz/commerce-sdk/pkg/composables"
)

// EventWriter appends an event to the module outbox on the transaction
// carried by ctx.
type EventWriter interface {
	Append(ctx context.Context, topic string, eventID uuid.UUID, payload any) error
}

type PlaceOrderCommand struct {
	OrderNo        string
	CustomerID     *int64
	Items          []order.Item
	IdempotencyKey string
}

type OrderService struct {
	repo   order.Repository
	events EventWriter
}

func NewOrderService(repo order.Repository, events EventWriter) *OrderService {
	return &OrderService{repo: repo, events: events}
}

// PlaceOrder persists the order and its OrderPlaced outbox record in
// one transaction. A resubmitted order number returns the existing
// order without emitting a second event.
func (s *OrderService) PlaceOrder(ctx context.Context, cmd PlaceOrderCommand) (order.Order, error) {
	idempotencyKey := cmd.IdempotencyKey
	if idempotencyKey == "" {
		idempotencyKey = uuid.New().String()
	}

	total := decimal.Zero
	for _, item := range cmd.Items {
		total = total.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}

	var placed order.Order
	err := composables.InTx(ctx, func(txCtx context.Context) error {
		o, err := order.New(
			cmd.OrderNo,
			total,
			cmd.Items,
			order.WithCustomerID(cmd.CustomerID),
			order.WithStatus(order.StatusAwaitingPayment),
		)
		if err != nil {
			return err
		}

		saved, err := s.repo.Save(txCtx, o)
		if err != nil {
			return err
		}

		items := make([]events.OrderItemV1, 0, len(cmd.Items))
		for _, item := range cmd.Items {
			items = append(items, events.OrderItemV1{
				SKU:       item.SKU,
				Quantity:  item.Quantity,
				UnitPrice: item.UnitPrice,
			})
		}
		ev := events.OrderPlacedV1{
			EventID:        uuid.New(),
			EventVersion:   events.EventVersionV1,
			OrderNo:        saved.OrderNo(),
			CustomerID:     saved.CustomerID(),
			Total:          saved.Total(),
			Items:          items,
			IdempotencyKey: idempotencyKey,
			OccurredAt:     time.Now(),
		}
		if err := s.events.Append(txCtx, events.TopicOrderPlacedV1, ev.EventID, &ev); err != nil {
			return errors.Wrap(err, "enqueue order placed event")
		}

		placed = saved
		return nil
	})
	if err != nil {
		if stderrors.Is(err, order.ErrOrderExists) {
			return s.GetByOrderNo(ctx, cmd.OrderNo)
		}
		return nil, err
	}
	return placed, nil
}

func (s *OrderService) GetByOrderNo(ctx context.Context, orderNo string) (order.Order, error) {
	var found order.Order
	err := composables.InTx(ctx, func(txCtx context.Context) error {
		o, err := s.repo.GetByOrderNo(txCtx, orderNo)
		if err != nil {
			return err
		}
		found = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return found, nil
}

func (s *OrderService) MarkPaid(ctx context.Context, orderNo string) error {
	return s.transition(ctx, orderNo, order.StatusPaid)
}

func (s *OrderService) MarkCancelled(ctx context.Context, orderNo string) error {
	return s.transition(ctx, orderNo, order.StatusCancelled)
}

// transition moves the order to a terminal status. Orders already in a
// terminal status are left untouched so duplicate event deliveries
// cannot flip Paid to Cancelled or back.
func (s *OrderService) transition(ctx context.Context, orderNo string, status order.Status) error {
	return composables.InTx(ctx, func(txCtx context.Context) error {
		o, err := s.repo.GetByOrderNo(txCtx, orderNo)
		if err != nil {
			if stderrors.Is(err, order.ErrOrderNotFound) {
				composables.UseLogger(txCtx).
					WithField("order_no", orderNo).
					WithField("status", status).
					Warn("status transition for unknown order")
				return nil
			}
			return err
		}
		if o.Status().IsTerminal() {
			return nil
		}
		return s.repo.UpdateStatus(txCtx, orderNo, status)
	})
}
