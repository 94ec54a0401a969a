package persistence

import (
	"context"
	"sync"

	"github.com/iota-uz/commerce-sdk/modules/order/domain/aggregates/order"
)

// InmemOrderRepository is a process-local Repository used by tests and
// local development setups.
type InmemOrderRepository struct {
	mu     sync.RWMutex
	orders map[string]order.Order
}

func NewInmemOrderRepository() *InmemOrderRepository {
	return &InmemOrderRepository{
		orders: make(map[string]order.Order),
	}
}

func (r *InmemOrderRepository) GetByOrderNo(_ context.Context, orderNo string) (order.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.orders[orderNo]
	if !ok {
		return nil, order.ErrOrderNotFound
	}
	return o, nil
}

func (r *InmemOrderRepository) Save(_ context.Context, o order.Order) (order.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.orders[o.OrderNo()]; ok {
		return nil, order.ErrOrderExists
	}
	r.orders[o.OrderNo()] = o
	return o, nil
}

func (r *InmemOrderRepository) UpdateStatus(_ context.Context, orderNo string, status order.Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[orderNo]
	if !ok {
		return order.ErrOrderNotFound
	}
	r.orders[orderNo] = o.WithStatus(status)
	return nil
}
