package order

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrOrderNotFound = errors.New("order not found")
	ErrOrderExists   = errors.New("order already exists")
	ErrNoItems       = errors.New("order has no items")
	ErrEmptyOrderNo  = errors.New("order number is empty")
)

type Status string

const (
	StatusNew             Status = "New"
	StatusAwaitingPayment Status = "AwaitingPayment"
	StatusPaid            Status = "Paid"
	StatusCancelled       Status = "Cancelled"
)

func (s Status) IsTerminal() bool {
	return s == StatusPaid || s == StatusCancelled
}

// Item is an order line held by value. Items carry no reference back to
// the order; the order number is the only link.
type Item struct {
	SKU       string
	Quantity  int
	UnitPrice decimal.Decimal
}

type Repository interface {
	GetByOrderNo(ctx context.Context, orderNo string) (Order, error)
	Save(ctx context.Context, o Order) (Order, error)
	UpdateStatus(ctx context.Context, orderNo string, status Status) error
}

type order struct {
	id         uuid.UUID
	orderNo    string
	customerID *int64
	total      decimal.Decimal
	status     Status
	items      []Item
	createdAt  time.Time
	updatedAt  time.Time
}

type Order interface {
	ID() uuid.UUID
	OrderNo() string
	CustomerID() *int64
	Total() decimal.Decimal
	Status() Status
	Items() []Item
	CreatedAt() time.Time
	UpdatedAt() time.Time

	WithStatus(status Status) Order
}

func New(orderNo string, total decimal.Decimal, items []Item, opts ...Option) (Order, error) {
	if orderNo == "" {
		return nil, ErrEmptyOrderNo
	}
	if len(items) == 0 {
		return nil, ErrNoItems
	}
	o := &order{
		id:        uuid.New(),
		orderNo:   orderNo,
		total:     total,
		status:    StatusNew,
		items:     items,
		createdAt: time.Now(),
		updatedAt: time.Now(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

type Option func(*order)

func WithID(id uuid.UUID) Option {
	return func(o *order) {
		if id != uuid.Nil {
			o.id = id
		}
	}
}

func WithCustomerID(customerID *int64) Option {
	return func(o *order) {
		o.customerID = customerID
	}
}

func WithStatus(status Status) Option {
	return func(o *order) {
		if status != "" {
			o.status = status
		}
	}
}

func WithCreatedAt(createdAt time.Time) Option {
	return func(o *order) {
		if !createdAt.IsZero() {
			o.createdAt = createdAt
		}
	}
}

func WithUpdatedAt(updatedAt time.Time) Option {
	return func(o *order) {
		if !updatedAt.IsZero() {
			o.updatedAt = updatedAt
		}
	}
}

func (o *order) ID() uuid.UUID             { return o.id }
func (o *order) OrderNo() string           { return o.orderNo }
func (o *order) CustomerID() *int64        { return o.customerID }
func (o *order) Total() decimal.Decimal    { return o.total }
func (o *order) Status() Status            { return o.status }
func (o *order) CreatedAt() time.Time      { return o.createdAt }
func (o *order) UpdatedAt() time.Time      { return o.updatedAt }

func (o *order) Items() []Item {
	items := make([]Item, len(o.items))
	copy(items, o.items)
	return items
}

func (o *order) WithStatus(status Status) Order {
	clone := *o
	clone.status = status
	clone.updatedAt = time.Now()
	return &clone
}
