package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	ErrItemNotFound        = errors.New("inventory item not found")
	ErrReservationNotFound = errors.New("reservation not found")
	ErrReservationExists   = errors.New("reservation already exists")
	ErrNegativeQuantity    = errors.New("quantity must be positive")
)

// Line is a reserved quantity for one SKU.
type Line struct {
	SKU      string
	Quantity int
}

// Item tracks stock for a single SKU. The invariant
// 0 <= reserved <= onHand holds after every mutation.
type Item interface {
	SKU() string
	OnHand() int
	Reserved() int
	Available() int
	UpdatedAt() time.Time

	Reserve(quantity int) (Item, error)
	Release(quantity int) (Item, error)
	ConfirmReservation(quantity int) (Item, error)
	Replenish(quantity int) Item
}

type Reservation interface {
	OrderNo() string
	Lines() []Line
	Confirmed() bool
	CreatedAt() time.Time

	Confirm() Reservation
}

// Repository persists items and reservations. SaveReservation is
// strictly an insert: a reservation that already exists surfaces as
// ErrReservationExists so concurrent deliveries cannot overwrite each
// other. UpdateReservation is the only way to change a stored one.
type Repository interface {
	GetItem(ctx context.Context, sku string) (Item, error)
	SaveItem(ctx context.Context, item Item) error
	GetReservation(ctx context.Context, orderNo string) (Reservation, error)
	SaveReservation(ctx context.Context, reservation Reservation) error
	UpdateReservation(ctx context.Context, reservation Reservation) error
	DeleteReservation(ctx context.Context, orderNo string) error
}

type item struct {
	sku       string
	onHand    int
	reserved  int
	updatedAt time.Time
}

func NewItem(sku string, onHand int, opts ...ItemOption) Item {
	it := &item{
		sku:       sku,
		onHand:    onHand,
		updatedAt: time.Now(),
	}
	for _, opt := range opts {
		opt(it)
	}
	return it
}

type ItemOption func(*item)

func WithReserved(reserved int) ItemOption {
	return func(it *item) {
		if reserved >= 0 {
			it.reserved = reserved
		}
	}
}

func WithItemUpdatedAt(updatedAt time.Time) ItemOption {
	return func(it *item) {
		if !updatedAt.IsZero() {
			it.updatedAt = updatedAt
		}
	}
}

func (it *item) SKU() string          { return it.sku }
func (it *item) OnHand() int          { return it.onHand }
func (it *item) Reserved() int        { return it.reserved }
func (it *item) Available() int       { return it.onHand - it.reserved }
func (it *item) UpdatedAt() time.Time { return it.updatedAt }

func (it *item) Reserve(quantity int) (Item, error) {
	if quantity <= 0 {
		return nil, ErrNegativeQuantity
	}
	if it.Available() < quantity {
		return nil, fmt.Errorf("insufficient stock for %s: available %d, requested %d", it.sku, it.Available(), quantity)
	}
	clone := *it
	clone.reserved += quantity
	clone.updatedAt = time.Now()
	return &clone, nil
}

func (it *item) Release(quantity int) (Item, error) {
	if quantity <= 0 {
		return nil, ErrNegativeQuantity
	}
	if quantity > it.reserved {
		quantity = it.reserved
	}
	clone := *it
	clone.reserved -= quantity
	clone.updatedAt = time.Now()
	return &clone, nil
}

func (it *item) ConfirmReservation(quantity int) (Item, error) {
	if quantity <= 0 {
		return nil, ErrNegativeQuantity
	}
	if quantity > it.reserved {
		quantity = it.reserved
	}
	clone := *it
	clone.onHand -= quantity
	clone.reserved -= quantity
	clone.updatedAt = time.Now()
	return &clone, nil
}

func (it *item) Replenish(quantity int) Item {
	clone := *it
	if quantity > 0 {
		clone.onHand += quantity
	}
	clone.updatedAt = time.Now()
	return &clone
}

type reservation struct {
	orderNo   string
	lines     []Line
	confirmed bool
	createdAt time.Time
}

func NewReservation(orderNo string, lines []Line, opts ...ReservationOption) Reservation {
	res := &reservation{
		orderNo:   orderNo,
		lines:     lines,
		createdAt: time.Now(),
	}
	for _, opt := range opts {
		opt(res)
	}
	return res
}

type ReservationOption func(*reservation)

func WithConfirmed(confirmed bool) ReservationOption {
	return func(res *reservation) {
		res.confirmed = confirmed
	}
}

func WithReservationCreatedAt(createdAt time.Time) ReservationOption {
	return func(res *reservation) {
		if !createdAt.IsZero() {
			res.createdAt = createdAt
		}
	}
}

func (res *reservation) OrderNo() string      { return res.orderNo }
func (res *reservation) Confirmed() bool      { return res.confirmed }
func (res *reservation) CreatedAt() time.Time { return res.createdAt }

func (res *reservation) Lines() []Line {
	lines := make([]Line, len(res.lines))
	copy(lines, res.lines)
	return lines
}

func (res *reservation) Confirm() Reservation {
	clone := *res
	clone.confirmed = true
	return &clone
}
