package persistence

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/iota-uz/commerce-sdk/modules/payment/domain/aggregates/payment"
)

// InmemPaymentRepository is a process-local Repository used by tests
// and local development setups.
type InmemPaymentRepository struct {
	mu       sync.RWMutex
	payments map[uuid.UUID]payment.Payment
	byKey    map[string]uuid.UUID
}

func NewInmemPaymentRepository() *InmemPaymentRepository {
	return &InmemPaymentRepository{
		payments: make(map[uuid.UUID]payment.Payment),
		byKey:    make(map[string]uuid.UUID),
	}
}

func (r *InmemPaymentRepository) GetByID(_ context.Context, id uuid.UUID) (payment.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.payments[id]
	if !ok {
		return nil, payment.ErrPaymentNotFound
	}
	return p, nil
}

func (r *InmemPaymentRepository) GetByIdempotencyKey(_ context.Context, key string) (payment.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byKey[key]
	if !ok {
		return nil, payment.ErrPaymentNotFound
	}
	return r.payments[id], nil
}

func (r *InmemPaymentRepository) GetByOrderNo(_ context.Context, orderNo string) (payment.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var found payment.Payment
	for _, p := range r.payments {
		if p.OrderNo() != orderNo {
			continue
		}
		if found == nil || p.CreatedAt().Before(found.CreatedAt()) {
			found = p
		}
	}
	if found == nil {
		return nil, payment.ErrPaymentNotFound
	}
	return found, nil
}

func (r *InmemPaymentRepository) Save(_ context.Context, p payment.Payment) (payment.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byKey[p.IdempotencyKey()]; ok {
		return nil, payment.ErrDuplicateKey
	}
	r.payments[p.ID()] = p
	r.byKey[p.IdempotencyKey()] = p.ID()
	return p, nil
}

func (r *InmemPaymentRepository) Update(_ context.Context, p payment.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.payments[p.ID()]; !ok {
		return payment.ErrPaymentNotFound
	}
	r.payments[p.ID()] = p
	return nil
}

// All returns every stored payment, ordered by creation time.
func (r *InmemPaymentRepository) All() []payment.Payment {
	r.mu.RLock()
	defer r.mu.RUnlock()
	payments := make([]payment.Payment, 0, len(r.payments))
	for _, p := range r.payments {
		payments = append(payments, p)
	}
	sort.Slice(payments, func(i, j int) bool {
		return payments[i].CreatedAt().Before(payments[j].CreatedAt())
	})
	return payments
}

func (r *InmemPaymentRepository) ListProcessingBefore(_ context.Context, deadline time.Time) ([]payment.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var payments []payment.Payment
	for _, p := range r.payments {
		if p.Status() == payment.StatusProcessing && p.CreatedAt().Before(deadline) {
			payments = append(payments, p)
		}
	}
	sort.Slice(payments, func(i, j int) bool {
		return payments[i].CreatedAt().Before(payments[j].CreatedAt())
	})
	return payments, nil
}
