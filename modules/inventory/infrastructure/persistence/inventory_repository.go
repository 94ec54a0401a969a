package persistence

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/iota-uz/commerce-sdk/modules/inventory/domain/aggregates/inventory"
	"github.com/iota-uz/commerce-sdk/pkg/composables"
)

const (
	selectItemQuery = `
		SELECT sku, on_hand, reserved, updated_at
		FROM inventory_items
		WHERE sku = $1
		FOR UPDATE`
	upsertItemQuery = `
		INSERT INTO inventory_items (sku, on_hand, reserved, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (sku) DO UPDATE
		SET on_hand = EXCLUDED.on_hand,
		    reserved = EXCLUDED.reserved,
		    updated_at = EXCLUDED.updated_at`
	selectReservationQuery = `
		SELECT order_no, lines, confirmed, created_at
		FROM reservations
		WHERE order_no = $1
		FOR UPDATE`
	insertReservationQuery = `
		INSERT INTO reservations (order_no, lines, confirmed, created_at)
		VALUES ($1, $2, $3, $4)`
	updateReservationQuery = `
		UPDATE reservations
		SET lines = $2,
		    confirmed = $3
		WHERE order_no = $1`
	deleteReservationQuery = `
		DELETE FROM reservations
		WHERE order_no = $1`
)

type reservationLine struct {
	SKU      string `json:"sku"`
	Quantity int    `json:"quantity"`
}

type InventoryRepository struct{}

func NewInventoryRepository() inventory.Repository {
	return &InventoryRepository{}
}

func (r *InventoryRepository) GetItem(ctx context.Context, sku string) (inventory.Item, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}

	var (
		dbSKU     string
		onHand    int
		reserved  int
		updatedAt time.Time
	)
	row := tx.QueryRow(ctx, selectItemQuery, sku)
	if err := row.Scan(&dbSKU, &onHand, &reserved, &updatedAt); err != nil {
		if stderrors.Is(err, pgx.ErrNoRows) {
			return nil, inventory.ErrItemNotFound
		}
		return nil, errors.Wrap(err, "query inventory item")
	}
	return inventory.NewItem(dbSKU, onHand,
		inventory.WithReserved(reserved),
		inventory.WithItemUpdatedAt(updatedAt),
	), nil
}

func (r *InventoryRepository) SaveItem(ctx context.Context, item inventory.Item) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, upsertItemQuery,
		item.SKU(),
		item.OnHand(),
		item.Reserved(),
		item.UpdatedAt(),
	); err != nil {
		return errors.Wrap(err, "upsert inventory item")
	}
	return nil
}

func (r *InventoryRepository) GetReservation(ctx context.Context, orderNo string) (inventory.Reservation, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}

	var (
		dbOrderNo string
		rawLines  []byte
		confirmed bool
		createdAt time.Time
	)
	row := tx.QueryRow(ctx, selectReservationQuery, orderNo)
	if err := row.Scan(&dbOrderNo, &rawLines, &confirmed, &createdAt); err != nil {
		if stderrors.Is(err, pgx.ErrNoRows) {
			return nil, inventory.ErrReservationNotFound
		}
		return nil, errors.Wrap(err, "query reservation")
	}

	var dbLines []reservationLine
	if err := json.Unmarshal(rawLines, &dbLines); err != nil {
		return nil, errors.Wrap(err, "decode reservation lines")
	}
	lines := make([]inventory.Line, 0, len(dbLines))
	for _, l := range dbLines {
		lines = append(lines, inventory.Line{SKU: l.SKU, Quantity: l.Quantity})
	}
	return inventory.NewReservation(dbOrderNo, lines,
		inventory.WithConfirmed(confirmed),
		inventory.WithReservationCreatedAt(createdAt),
	), nil
}

func (r *InventoryRepository) SaveReservation(ctx context.Context, reservation inventory.Reservation) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}

	dbLines := make([]reservationLine, 0, len(reservation.Lines()))
	for _, l := range reservation.Lines() {
		dbLines = append(dbLines, reservationLine{SKU: l.SKU, Quantity: l.Quantity})
	}
	rawLines, err := json.Marshal(dbLines)
	if err != nil {
		return errors.Wrap(err, "encode reservation lines")
	}

	if _, err := tx.Exec(ctx, insertReservationQuery,
		reservation.OrderNo(),
		rawLines,
		reservation.Confirmed(),
		reservation.CreatedAt(),
	); err != nil {
		var pgErr *pgconn.PgError
		if stderrors.As(err, &pgErr) && pgErr.Code == "23505" {
			return inventory.ErrReservationExists
		}
		return errors.Wrap(err, "insert reservation")
	}
	return nil
}

func (r *InventoryRepository) UpdateReservation(ctx context.Context, reservation inventory.Reservation) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}

	dbLines := make([]reservationLine, 0, len(reservation.Lines()))
	for _, l := range reservation.Lines() {
		dbLines = append(dbLines, reservationLine{SKU: l.SKU, Quantity: l.Quantity})
	}
	rawLines, err := json.Marshal(dbLines)
	if err != nil {
		return errors.Wrap(err, "encode reservation lines")
	}

	res, err := tx.Exec(ctx, updateReservationQuery,
		reservation.OrderNo(),
		rawLines,
		reservation.Confirmed(),
	)
	if err != nil {
		return errors.Wrap(err, "update reservation")
	}
	if res.RowsAffected() == 0 {
		return inventory.ErrReservationNotFound
	}
	return nil
}

func (r *InventoryRepository) DeleteReservation(ctx context.Context, orderNo string) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, deleteReservationQuery, orderNo); err != nil {
		return errors.Wrap(err, "delete reservation")
	}
	return nil
}
