package persistence

import (
	"context"
	"sync"

	"github.com/iota-uz/commerce-sdk/modules/inventory/domain/aggregates/inventory"
)

// InmemInventoryRepository is a process-local Repository used by tests
// and local development setups. A single mutex stands in for row locks
// so multi-item reservations stay atomic.
type InmemInventoryRepository struct {
	mu           sync.Mutex
	items        map[string]inventory.Item
	reservations map[string]inventory.Reservation
}

func NewInmemInventoryRepository() *InmemInventoryRepository {
	return &InmemInventoryRepository{
		items:        make(map[string]inventory.Item),
		reservations: make(map[string]inventory.Reservation),
	}
}

func (r *InmemInventoryRepository) GetItem(_ context.Context, sku string) (inventory.Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.items[sku]
	if !ok {
		return nil, inventory.ErrItemNotFound
	}
	return item, nil
}

func (r *InmemInventoryRepository) SaveItem(_ context.Context, item inventory.Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[item.SKU()] = item
	return nil
}

func (r *InmemInventoryRepository) GetReservation(_ context.Context, orderNo string) (inventory.Reservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	reservation, ok := r.reservations[orderNo]
	if !ok {
		return nil, inventory.ErrReservationNotFound
	}
	return reservation, nil
}

func (r *InmemInventoryRepository) SaveReservation(_ context.Context, reservation inventory.Reservation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.reservations[reservation.OrderNo()]; ok {
		return inventory.ErrReservationExists
	}
	r.reservations[reservation.OrderNo()] = reservation
	return nil
}

func (r *InmemInventoryRepository) UpdateReservation(_ context.Context, reservation inventory.Reservation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.reservations[reservation.OrderNo()]; !ok {
		return inventory.ErrReservationNotFound
	}
	r.reservations[reservation.OrderNo()] = reservation
	return nil
}

func (r *InmemInventoryRepository) DeleteReservation(_ context.Context, orderNo string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.reservations, orderNo)
	return nil
}
