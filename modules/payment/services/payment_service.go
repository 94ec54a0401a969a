package services

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/iota-uz/commerce-sdk/modules/payment/domain/aggregates/payment"
	"github.com/iota-uz/commerce-sdk/modules/payment/domain/events"
	"github.com/iota-uz/commerce-sdk/pkg/composables"
)

// EventWriter appends an event to the module outbox on the transaction
// carried by ctx.
type EventWriter interface {
	Append(ctx context.Context, topic string, eventID uuid.UUID, payload any) error
}

type CreatePaymentCommand struct {
	OrderNo        string
	Amount         decimal.Decimal
	Method         string
	IdempotencyKey string
}

type PaymentService struct {
	repo            payment.Repository
	providers       *payment.ProviderRegistry
	events          EventWriter
	locks           *keyedMutex
	defaultMethod   string
	providerTimeout time.Duration
}

type Option func(*PaymentService)

func WithDefaultMethod(method string) Option {
	return func(s *PaymentService) {
		if method != "" {
			s.defaultMethod = method
		}
	}
}

func WithProviderTimeout(timeout time.Duration) Option {
	return func(s *PaymentService) {
		if timeout > 0 {
			s.providerTimeout = timeout
		}
	}
}

func NewPaymentService(
	repo payment.Repository,
	providers *payment.ProviderRegistry,
	events EventWriter,
	opts ...Option,
) *PaymentService {
	s := &PaymentService{
		repo:            repo,
		providers:       providers,
		events:          events,
		locks:           newKeyedMutex(),
		defaultMethod:   "fake",
		providerTimeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create opens a payment attempt. The idempotency key makes retries
// safe: a second call with a key already used returns the first
// payment unchanged, whatever the rest of the arguments say.
func (s *PaymentService) Create(ctx context.Context, cmd CreatePaymentCommand) (payment.Payment, error) {
	unlock := s.locks.Lock(cmd.IdempotencyKey)
	defer unlock()

	method := cmd.Method
	if method == "" {
		method = s.defaultMethod
	}

	provider, err := s.providers.Get(method)
	if err != nil {
		return nil, err
	}

	var created payment.Payment
	var fresh bool
	err = composables.InTx(ctx, func(txCtx context.Context) error {
		if existing, err := s.repo.GetByIdempotencyKey(txCtx, cmd.IdempotencyKey); err == nil {
			created = existing
			return nil
		} else if !stderrors.Is(err, payment.ErrPaymentNotFound) {
			return err
		}

		p, err := payment.New(cmd.OrderNo, cmd.Amount, method, cmd.IdempotencyKey)
		if err != nil {
			return err
		}
		created, err = s.repo.Save(txCtx, p)
		if err != nil {
			return err
		}
		fresh = true
		return nil
	})
	if err != nil {
		if stderrors.Is(err, payment.ErrDuplicateKey) {
			return s.GetByIdempotencyKey(ctx, cmd.IdempotencyKey)
		}
		return nil, err
	}
	if !fresh {
		return created, nil
	}

	// The provider round-trip happens after the insert commits, so no
	// transaction or row lock is held across it. A crash between the
	// two leaves a Processing payment for the reconciler to expire.
	callCtx, cancel := context.WithTimeout(ctx, s.providerTimeout)
	result, callErr := provider.Create(callCtx, created)
	cancel()
	if callErr != nil {
		composables.UseLogger(ctx).
			WithError(callErr).
			WithField("order_no", cmd.OrderNo).
			WithField("method", method).
			Warn("payment provider create failed")
		return created, nil
	}

	updated := created.WithExternalRef(result.ProviderRef)
	if result.Status.IsTerminal() {
		updated = updated.WithStatus(result.Status)
	}
	err = composables.InTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.Update(txCtx, updated); err != nil {
			return err
		}
		if result.Status.IsTerminal() {
			return s.emitCompleted(txCtx, updated, "")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// HandleCallback applies a verified provider webhook. Payments already
// in a terminal status are left untouched, so redelivered webhooks are
// harmless.
func (s *PaymentService) HandleCallback(ctx context.Context, providerName string, rawBody []byte) error {
	provider, err := s.providers.Get(providerName)
	if err != nil {
		return err
	}
	callback, err := provider.VerifyCallback(ctx, rawBody)
	if err != nil {
		return errors.Wrap(err, "verify provider callback")
	}
	paymentID, err := uuid.Parse(callback.PaymentID)
	if err != nil {
		return errors.Wrap(err, "parse callback payment id")
	}

	unlock := s.locks.Lock(callback.PaymentID)
	defer unlock()

	return composables.InTx(ctx, func(txCtx context.Context) error {
		p, err := s.repo.GetByID(txCtx, paymentID)
		if err != nil {
			return err
		}
		if p.Status().IsTerminal() {
			return nil
		}

		p = p.WithStatus(callback.Status).WithRawCallbackPayload(string(rawBody))
		if callback.ExternalRef != "" {
			p = p.WithExternalRef(callback.ExternalRef)
		}
		if callback.Status == payment.StatusFailed && callback.Reason != "" {
			p = p.WithFailureReason(callback.Reason)
		}
		if err := s.repo.Update(txCtx, p); err != nil {
			return err
		}
		return s.emitCompleted(txCtx, p, callback.Reason)
	})
}

// Refund compensates a payment after the other side of the saga fails.
// A still-Processing payment is voided without a provider call; a
// settled one transitions to Refunded. Failed and Refunded payments
// need no compensation.
func (s *PaymentService) Refund(ctx context.Context, orderNo, reason string) error {
	unlock := s.locks.Lock(orderNo)
	defer unlock()

	return composables.InTx(ctx, func(txCtx context.Context) error {
		p, err := s.repo.GetByOrderNo(txCtx, orderNo)
		if err != nil {
			if stderrors.Is(err, payment.ErrPaymentNotFound) {
				return nil
			}
			return err
		}

		switch p.Status() {
		case payment.StatusProcessing:
			p = p.WithStatus(payment.StatusFailed).WithFailureReason(reason)
			if err := s.repo.Update(txCtx, p); err != nil {
				return err
			}
			return s.emitCompleted(txCtx, p, reason)
		case payment.StatusSucceeded:
			p = p.WithStatus(payment.StatusRefunded).WithFailureReason(reason)
			if err := s.repo.Update(txCtx, p); err != nil {
				return err
			}
			return s.emitRefunded(txCtx, p, reason)
		default:
			return nil
		}
	})
}

// ExpireStale fails payments stuck in Processing longer than maxAge.
func (s *PaymentService) ExpireStale(ctx context.Context, maxAge time.Duration) (int, error) {
	deadline := time.Now().Add(-maxAge)
	expired := 0
	err := composables.InTx(ctx, func(txCtx context.Context) error {
		stale, err := s.repo.ListProcessingBefore(txCtx, deadline)
		if err != nil {
			return err
		}
		for _, p := range stale {
			p = p.WithStatus(payment.StatusFailed).WithFailureReason("expired")
			if err := s.repo.Update(txCtx, p); err != nil {
				return err
			}
			if err := s.emitCompleted(txCtx, p, "expired"); err != nil {
				return err
			}
			expired++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return expired, nil
}

func (s *PaymentService) GetByIdempotencyKey(ctx context.Context, key string) (payment.Payment, error) {
	var found payment.Payment
	err := composables.InTx(ctx, func(txCtx context.Context) error {
		p, err := s.repo.GetByIdempotencyKey(txCtx, key)
		if err != nil {
			return err
		}
		found = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return found, nil
}

func (s *PaymentService) GetByOrderNo(ctx context.Context, orderNo string) (payment.Payment, error) {
	var found payment.Payment
	err := composables.InTx(ctx, func(txCtx context.Context) error {
		p, err := s.repo.GetByOrderNo(txCtx, orderNo)
		if err != nil {
			return err
		}
		found = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return found, nil
}

func (s *PaymentService) emitCompleted(ctx context.Context, p payment.Payment, reason string) error {
	status := events.PaymentStatusSucceeded
	if p.Status() != payment.StatusSucceeded {
		status = events.PaymentStatusFailed
	}
	ev := events.PaymentCompletedV1{
		EventID:      uuid.New(),
		EventVersion: events.EventVersionV1,
		OrderNo:      p.OrderNo(),
		PaymentID:    p.ID(),
		Status:       status,
		PaidAmount:   p.Amount(),
		Reason:       reason,
		OccurredAt:   time.Now(),
	}
	if err := s.events.Append(ctx, events.TopicPaymentCompletedV1, ev.EventID, &ev); err != nil {
		return errors.Wrap(err, "enqueue payment completed event")
	}
	return nil
}

func (s *PaymentService) emitRefunded(ctx context.Context, p payment.Payment, reason string) error {
	ev := events.PaymentRefundedV1{
		EventID:      uuid.New(),
		EventVersion: events.EventVersionV1,
		OrderNo:      p.OrderNo(),
		PaymentID:    p.ID(),
		Amount:       p.Amount(),
		Reason:       reason,
		OccurredAt:   time.Now(),
	}
	if err := s.events.Append(ctx, events.TopicPaymentRefundedV1, ev.EventID, &ev); err != nil {
		return errors.Wrap(err, "enqueue payment refunded event")
	}
	return nil
}
