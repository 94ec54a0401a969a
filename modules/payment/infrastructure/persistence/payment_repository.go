package persistence

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/iota-uz/commerce-sdk/modules/payment/domain/aggregates/payment"
	"github.com/iota-uz/commerce-sdk/pkg/composables"
)

const (
	paymentColumns = `id, order_no, idempotency_key, amount, method, status,
		external_ref, raw_callback_payload, failure_reason, created_at, updated_at`

	selectPaymentByIDQuery = `
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE id = $1
		FOR UPDATE`
	selectPaymentByKeyQuery = `
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE idempotency_key = $1`
	selectPaymentByOrderQuery = `
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE order_no = $1
		ORDER BY created_at
		LIMIT 1
		FOR UPDATE`
	selectProcessingQuery = `
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE status = 'Processing' AND created_at < $1
		ORDER BY created_at`
	insertPaymentQuery = `
		INSERT INTO payments (` + paymentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	updatePaymentQuery = `
		UPDATE payments
		SET status = $2,
		    external_ref = $3,
		    raw_callback_payload = $4,
		    failure_reason = $5,
		    updated_at = $6
		WHERE id = $1`
)

type PaymentRepository struct{}

func NewPaymentRepository() payment.Repository {
	return &PaymentRepository{}
}

func (r *PaymentRepository) GetByID(ctx context.Context, id uuid.UUID) (payment.Payment, error) {
	return r.queryOne(ctx, selectPaymentByIDQuery, id.String())
}

func (r *PaymentRepository) GetByIdempotencyKey(ctx context.Context, key string) (payment.Payment, error) {
	return r.queryOne(ctx, selectPaymentByKeyQuery, key)
}

func (r *PaymentRepository) GetByOrderNo(ctx context.Context, orderNo string) (payment.Payment, error) {
	return r.queryOne(ctx, selectPaymentByOrderQuery, orderNo)
}

func (r *PaymentRepository) Save(ctx context.Context, p payment.Payment) (payment.Payment, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := tx.Exec(ctx, insertPaymentQuery,
		p.ID().String(),
		p.OrderNo(),
		p.IdempotencyKey(),
		p.Amount().String(),
		p.Method(),
		string(p.Status()),
		p.ExternalRef(),
		p.RawCallbackPayload(),
		p.FailureReason(),
		p.CreatedAt(),
		p.UpdatedAt(),
	); err != nil {
		var pgErr *pgconn.PgError
		if stderrors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, payment.ErrDuplicateKey
		}
		return nil, errors.Wrap(err, "insert payment")
	}
	return p, nil
}

func (r *PaymentRepository) Update(ctx context.Context, p payment.Payment) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	tag, err := tx.Exec(ctx, updatePaymentQuery,
		p.ID().String(),
		string(p.Status()),
		p.ExternalRef(),
		p.RawCallbackPayload(),
		p.FailureReason(),
		p.UpdatedAt(),
	)
	if err != nil {
		return errors.Wrap(err, "update payment")
	}
	if tag.RowsAffected() == 0 {
		return payment.ErrPaymentNotFound
	}
	return nil
}

func (r *PaymentRepository) ListProcessingBefore(ctx context.Context, deadline time.Time) ([]payment.Payment, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx, selectProcessingQuery, deadline)
	if err != nil {
		return nil, errors.Wrap(err, "query processing payments")
	}
	defer rows.Close()

	var payments []payment.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate processing payments")
	}
	return payments, nil
}

func (r *PaymentRepository) queryOne(ctx context.Context, query string, arg any) (payment.Payment, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx, query, arg)
	if err != nil {
		return nil, errors.Wrap(err, "query payment")
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, errors.Wrap(err, "query payment")
		}
		return nil, payment.ErrPaymentNotFound
	}
	return scanPayment(rows)
}

func scanPayment(row pgx.Row) (payment.Payment, error) {
	var (
		id                 string
		orderNo            string
		idempotencyKey     string
		amount             string
		method             string
		status             string
		externalRef        *string
		rawCallbackPayload *string
		failureReason      *string
		createdAt          time.Time
		updatedAt          time.Time
	)
	if err := row.Scan(
		&id,
		&orderNo,
		&idempotencyKey,
		&amount,
		&method,
		&status,
		&externalRef,
		&rawCallbackPayload,
		&failureReason,
		&createdAt,
		&updatedAt,
	); err != nil {
		return nil, errors.Wrap(err, "scan payment")
	}

	parsedID, err := uuid.Parse(id)
	if err != nil {
		return nil, errors.Wrap(err, "parse payment id")
	}
	parsedAmount, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, errors.Wrap(err, "parse payment amount")
	}
	return payment.New(
		orderNo,
		parsedAmount,
		method,
		idempotencyKey,
		payment.WithID(parsedID),
		payment.WithStatus(payment.Status(status)),
		payment.WithExternalRef(externalRef),
		payment.WithRawCallbackPayload(rawCallbackPayload),
		payment.WithFailureReason(failureReason),
		payment.WithCreatedAt(createdAt),
		payment.WithUpdatedAt(updatedAt),
	)
}
