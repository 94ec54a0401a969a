package services

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/iota-uz/commerce-sdk/modules/inventory/domain/aggregates/inventory"
	"github.com/iota-uz/commerce-sdk/modules/inventory/domain/events"
	"github.com/iota-uz/commerce-sdk/pkg/composables"
)

// EventWriter appends an event to the module outbox on the transaction
// carried by ctx.
type EventWriter interface {
	Append(ctx context.Context, topic string, eventID uuid.UUID, payload any) error
}

// ReserveResult is the business outcome of a reservation attempt.
// Insufficient stock is a normal outcome, not an error.
type ReserveResult struct {
	Success bool
	Reason  string
}

type InventoryService struct {
	repo   inventory.Repository
	events EventWriter
	locks  *keyedMutex
}

func NewInventoryService(repo inventory.Repository, events EventWriter) *InventoryService {
	return &InventoryService{
		repo:   repo,
		events: events,
		locks:  newKeyedMutex(),
	}
}

// TryReserve reserves stock for every line or none of them. A second
// call for the same order number is a no-op success and does not
// reserve again or emit another event.
func (s *InventoryService) TryReserve(ctx context.Context, orderNo string, lines []inventory.Line) (ReserveResult, error) {
	var result ReserveResult
	err := composables.InTx(ctx, func(txCtx context.Context) error {
		res, fresh, err := s.reserve(txCtx, orderNo, lines)
		if err != nil {
			return err
		}
		result = res
		if !fresh {
			return nil
		}
		return s.emitReserved(txCtx, orderNo, res)
	})
	if err != nil {
		if stderrors.Is(err, inventory.ErrReservationExists) {
			// a concurrent delivery won the insert; its event stands
			// and the rollback undid this attempt's stock mutations
			return ReserveResult{Success: true}, nil
		}
		return ReserveResult{}, err
	}
	return result, nil
}

// reserve mutates stock under the per-order lock and reports whether
// the outcome is new. The lock is released before the caller emits, so
// a handler reacting to the event may re-enter this service for the
// same order without deadlocking.
func (s *InventoryService) reserve(ctx context.Context, orderNo string, lines []inventory.Line) (ReserveResult, bool, error) {
	unlock := s.locks.Lock(orderNo)
	defer unlock()

	if _, err := s.repo.GetReservation(ctx, orderNo); err == nil {
		return ReserveResult{Success: true}, false, nil
	} else if !stderrors.Is(err, inventory.ErrReservationNotFound) {
		return ReserveResult{}, false, err
	}

	updated := make([]inventory.Item, 0, len(lines))
	for _, line := range lines {
		item, err := s.repo.GetItem(ctx, line.SKU)
		if err != nil {
			if stderrors.Is(err, inventory.ErrItemNotFound) {
				return ReserveResult{Success: false, Reason: insufficientStockReason(line.SKU)}, true, nil
			}
			return ReserveResult{}, false, err
		}
		reserved, err := item.Reserve(line.Quantity)
		if err != nil {
			if stderrors.Is(err, inventory.ErrNegativeQuantity) {
				return ReserveResult{}, false, err
			}
			return ReserveResult{Success: false, Reason: insufficientStockReason(line.SKU)}, true, nil
		}
		updated = append(updated, reserved)
	}

	for _, item := range updated {
		if err := s.repo.SaveItem(ctx, item); err != nil {
			return ReserveResult{}, false, err
		}
	}
	if err := s.repo.SaveReservation(ctx, inventory.NewReservation(orderNo, lines)); err != nil {
		return ReserveResult{}, false, err
	}
	return ReserveResult{Success: true}, true, nil
}

// Confirm commits a reservation after payment: stock leaves the shelf
// and the reserved quantity is released together. Missing or already
// confirmed reservations are logged and ignored.
func (s *InventoryService) Confirm(ctx context.Context, orderNo string) error {
	unlock := s.locks.Lock(orderNo)
	defer unlock()

	return composables.InTx(ctx, func(txCtx context.Context) error {
		reservation, err := s.repo.GetReservation(txCtx, orderNo)
		if err != nil {
			if stderrors.Is(err, inventory.ErrReservationNotFound) {
				composables.UseLogger(txCtx).
					WithField("order_no", orderNo).
					Warn("confirm requested for unknown reservation")
				return nil
			}
			return err
		}
		if reservation.Confirmed() {
			return nil
		}

		for _, line := range reservation.Lines() {
			item, err := s.repo.GetItem(txCtx, line.SKU)
			if err != nil {
				return err
			}
			confirmed, err := item.ConfirmReservation(line.Quantity)
			if err != nil {
				return errors.Wrapf(err, "confirm %s for order %s", line.SKU, orderNo)
			}
			if err := s.repo.SaveItem(txCtx, confirmed); err != nil {
				return err
			}
		}
		return s.repo.UpdateReservation(txCtx, reservation.Confirm())
	})
}

// Cancel releases a reservation. Confirmed reservations are terminal;
// the cancel attempt is rejected as a no-op and stock is unchanged.
func (s *InventoryService) Cancel(ctx context.Context, orderNo string) error {
	unlock := s.locks.Lock(orderNo)
	defer unlock()

	return composables.InTx(ctx, func(txCtx context.Context) error {
		reservation, err := s.repo.GetReservation(txCtx, orderNo)
		if err != nil {
			if stderrors.Is(err, inventory.ErrReservationNotFound) {
				return nil
			}
			return err
		}
		if reservation.Confirmed() {
			composables.UseLogger(txCtx).
				WithField("order_no", orderNo).
				Warn("cancel rejected for confirmed reservation")
			return nil
		}

		for _, line := range reservation.Lines() {
			item, err := s.repo.GetItem(txCtx, line.SKU)
			if err != nil {
				return err
			}
			released, err := item.Release(line.Quantity)
			if err != nil {
				return errors.Wrapf(err, "release %s for order %s", line.SKU, orderNo)
			}
			if err := s.repo.SaveItem(txCtx, released); err != nil {
				return err
			}
		}
		return s.repo.DeleteReservation(txCtx, orderNo)
	})
}

// Replenish adds stock for a SKU, creating the item if needed.
func (s *InventoryService) Replenish(ctx context.Context, sku string, quantity int) error {
	if quantity <= 0 {
		return inventory.ErrNegativeQuantity
	}
	return composables.InTx(ctx, func(txCtx context.Context) error {
		item, err := s.repo.GetItem(txCtx, sku)
		if err != nil {
			if stderrors.Is(err, inventory.ErrItemNotFound) {
				return s.repo.SaveItem(txCtx, inventory.NewItem(sku, quantity))
			}
			return err
		}
		return s.repo.SaveItem(txCtx, item.Replenish(quantity))
	})
}

func (s *InventoryService) emitReserved(ctx context.Context, orderNo string, result ReserveResult) error {
	ev := events.InventoryReservedV1{
		EventID:      uuid.New(),
		EventVersion: events.EventVersionV1,
		OrderNo:      orderNo,
		Success:      result.Success,
		Reason:       result.Reason,
		OccurredAt:   time.Now(),
	}
	if err := s.events.Append(ctx, events.TopicInventoryReservedV1, ev.EventID, &ev); err != nil {
		return errors.Wrap(err, "enqueue inventory reserved event")
	}
	return nil
}

func insufficientStockReason(sku string) string {
	return fmt.Sprintf("insufficient_stock:%s", sku)
}
