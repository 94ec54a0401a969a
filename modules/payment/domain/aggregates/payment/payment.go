package payment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrPaymentNotFound = errors.New("payment not found")
	ErrDuplicateKey    = errors.New("idempotency key already used")
	ErrInvalidAmount   = errors.New("payment amount must be positive")
)

type Status string

const (
	StatusProcessing Status = "Processing"
	StatusSucceeded  Status = "Succeeded"
	StatusFailed     Status = "Failed"
	StatusRefunded   Status = "Refunded"
)

func (s Status) IsTerminal() bool {
	return s != StatusProcessing
}

type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (Payment, error)
	GetByIdempotencyKey(ctx context.Context, key string) (Payment, error)
	GetByOrderNo(ctx context.Context, orderNo string) (Payment, error)
	Save(ctx context.Context, p Payment) (Payment, error)
	Update(ctx context.Context, p Payment) error
	ListProcessingBefore(ctx context.Context, deadline time.Time) ([]Payment, error)
}

type payment struct {
	id                 uuid.UUID
	orderNo            string
	idempotencyKey     string
	amount             decimal.Decimal
	method             string
	status             Status
	externalRef        *string
	rawCallbackPayload *string
	failureReason      *string
	createdAt          time.Time
	updatedAt          time.Time
}

type Payment interface {
	ID() uuid.UUID
	OrderNo() string
	IdempotencyKey() string
	Amount() decimal.Decimal
	Method() string
	Status() Status
	ExternalRef() *string
	RawCallbackPayload() *string
	FailureReason() *string
	CreatedAt() time.Time
	UpdatedAt() time.Time

	WithStatus(status Status) Payment
	WithExternalRef(ref string) Payment
	WithRawCallbackPayload(raw string) Payment
	WithFailureReason(reason string) Payment
}

func New(orderNo string, amount decimal.Decimal, method, idempotencyKey string, opts ...Option) (Payment, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	p := &payment{
		id:             uuid.New(),
		orderNo:        orderNo,
		idempotencyKey: idempotencyKey,
		amount:         amount,
		method:         method,
		status:         StatusProcessing,
		createdAt:      time.Now(),
		updatedAt:      time.Now(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

type Option func(*payment)

func WithID(id uuid.UUID) Option {
	return func(p *payment) {
		if id != uuid.Nil {
			p.id = id
		}
	}
}

func WithStatus(status Status) Option {
	return func(p *payment) {
		if status != "" {
			p.status = status
		}
	}
}

func WithExternalRef(ref *string) Option {
	return func(p *payment) {
		p.externalRef = ref
	}
}

func WithRawCallbackPayload(raw *string) Option {
	return func(p *payment) {
		p.rawCallbackPayload = raw
	}
}

func WithFailureReason(reason *string) Option {
	return func(p *payment) {
		p.failureReason = reason
	}
}

func WithCreatedAt(createdAt time.Time) Option {
	return func(p *payment) {
		if !createdAt.IsZero() {
			p.createdAt = createdAt
		}
	}
}

func WithUpdatedAt(updatedAt time.Time) Option {
	return func(p *payment) {
		if !updatedAt.IsZero() {
			p.updatedAt = updatedAt
		}
	}
}

func (p *payment) ID() uuid.UUID               { return p.id }
func (p *payment) OrderNo() string             { return p.orderNo }
func (p *payment) IdempotencyKey() string      { return p.idempotencyKey }
func (p *payment) Amount() decimal.Decimal     { return p.amount }
func (p *payment) Method() string              { return p.method }
func (p *payment) Status() Status              { return p.status }
func (p *payment) ExternalRef() *string        { return p.externalRef }
func (p *payment) RawCallbackPayload() *string { return p.rawCallbackPayload }
func (p *payment) FailureReason() *string      { return p.failureReason }
func (p *payment) CreatedAt() time.Time        { return p.createdAt }
func (p *payment) UpdatedAt() time.Time        { return p.updatedAt }

func (p *payment) WithStatus(status Status) Payment {
	clone := *p
	clone.status = status
	clone.updatedAt = time.Now()
	return &clone
}

func (p *payment) WithExternalRef(ref string) Payment {
	clone := *p
	clone.externalRef = &ref
	clone.updatedAt = time.Now()
	return &clone
}

func (p *payment) WithRawCallbackPayload(raw string) Payment {
	clone := *p
	clone.rawCallbackPayload = &raw
	clone.updatedAt = time.Now()
	return &clone
}

func (p *payment) WithFailureReason(reason string) Payment {
	clone := *p
	clone.failureReason = &reason
	clone.updatedAt = time.Now()
	return &clone
}
