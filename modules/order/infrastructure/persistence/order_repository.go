package persistence

import (
	"context"
	stderrors "errors"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/iota-uz/commerce-sdk/modules/order/domain/aggregates/order"
	"github.com/iota-uz/commerce-sdk/modules/order/infrastructure/persistence/models"
	"github.com/iota-uz/commerce-sdk/pkg/composables"
)

const (
	selectOrderQuery = `
		SELECT id, order_no, customer_id, total, status, created_at, updated_at
		FROM orders
		WHERE order_no = $1`
	selectOrderItemsQuery = `
		SELECT order_id, sku, quantity, unit_price
		FROM order_items
		WHERE order_id = $1
		ORDER BY sku`
	insertOrderQuery = `
		INSERT INTO orders (id, order_no, customer_id, total, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	insertOrderItemQuery = `
		INSERT INTO order_items (order_id, sku, quantity, unit_price)
		VALUES ($1, $2, $3, $4)`
	updateOrderStatusQuery = `
		UPDATE orders
		SET status = $2, updated_at = now()
		WHERE order_no = $1`
)

type OrderRepository struct{}

func NewOrderRepository() order.Repository {
	return &OrderRepository{}
}

func (r *OrderRepository) GetByOrderNo(ctx context.Context, orderNo string) (order.Order, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}

	var dbOrder models.Order
	row := tx.QueryRow(ctx, selectOrderQuery, orderNo)
	if err := row.Scan(
		&dbOrder.ID,
		&dbOrder.OrderNo,
		&dbOrder.CustomerID,
		&dbOrder.Total,
		&dbOrder.Status,
		&dbOrder.CreatedAt,
		&dbOrder.UpdatedAt,
	); err != nil {
		if stderrors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrOrderNotFound
		}
		return nil, errors.Wrap(err, "query order")
	}

	rows, err := tx.Query(ctx, selectOrderItemsQuery, dbOrder.ID)
	if err != nil {
		return nil, errors.Wrap(err, "query order items")
	}
	defer rows.Close()

	var dbItems []*models.OrderItem
	for rows.Next() {
		var dbItem models.OrderItem
		if err := rows.Scan(&dbItem.OrderID, &dbItem.SKU, &dbItem.Quantity, &dbItem.UnitPrice); err != nil {
			return nil, errors.Wrap(err, "scan order item")
		}
		dbItems = append(dbItems, &dbItem)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate order items")
	}

	return toDomainOrder(&dbOrder, dbItems)
}

func (r *OrderRepository) Save(ctx context.Context, o order.Order) (order.Order, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}

	dbOrder, dbItems := toDBOrder(o)
	if _, err := tx.Exec(ctx, insertOrderQuery,
		dbOrder.ID,
		dbOrder.OrderNo,
		dbOrder.CustomerID,
		dbOrder.Total,
		dbOrder.Status,
		dbOrder.CreatedAt,
		dbOrder.UpdatedAt,
	); err != nil {
		var pgErr *pgconn.PgError
		if stderrors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, order.ErrOrderExists
		}
		return nil, errors.Wrap(err, "insert order")
	}
	for _, dbItem := range dbItems {
		if _, err := tx.Exec(ctx, insertOrderItemQuery,
			dbItem.OrderID,
			dbItem.SKU,
			dbItem.Quantity,
			dbItem.UnitPrice,
		); err != nil {
			return nil, errors.Wrap(err, "insert order item")
		}
	}
	return o, nil
}

func (r *OrderRepository) UpdateStatus(ctx context.Context, orderNo string, status order.Status) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	tag, err := tx.Exec(ctx, updateOrderStatusQuery, orderNo, string(status))
	if err != nil {
		return errors.Wrap(err, "update order status")
	}
	if tag.RowsAffected() == 0 {
		return order.ErrOrderNotFound
	}
	return nil
}
