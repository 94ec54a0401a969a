package services_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iota-uz/commerce-sdk/modules/order/domain/aggregates/order"
	"github.com/iota-uz/commerce-sdk/modules/order/domain/events"
	"github.com/iota-uz/commerce-sdk/modules/order/infrastructure/persistence"
	"github.com/iota-uz/commerce-sdk/modules/order/services"
	"github.com/iota-uz/commerce-sdk/pkg/outbox/outboxtest"
)

func setupOrderTest(t *testing.T) (*services.OrderService, *persistence.InmemOrderRepository, *outboxtest.Memory) {
	t.Helper()
	repo := persistence.NewInmemOrderRepository()
	outboxMem := outboxtest.NewMemory()
	return services.NewOrderService(repo, outboxMem), repo, outboxMem
}

func placeCmd(orderNo string) services.PlaceOrderCommand {
	return services.PlaceOrderCommand{
		OrderNo:        orderNo,
		Items:          []order.Item{{SKU: "A", Quantity: 2, UnitPrice: decimal.NewFromInt(10)}},
		IdempotencyKey: "K1",
	}
}

func TestPlaceOrder_EmitsOrderPlaced(t *testing.T) {
	t.Parallel()
	svc, _, outboxMem := setupOrderTest(t)

	placed, err := svc.PlaceOrder(context.Background(), placeCmd("ORD-1"))
	require.NoError(t, err)
	assert.Equal(t, order.StatusAwaitingPayment, placed.Status())
	assert.True(t, placed.Total().Equal(decimal.NewFromInt(20)), "total is derived from the lines")

	require.Equal(t, []string{events.TopicOrderPlacedV1}, outboxMem.Topics())
	var ev events.OrderPlacedV1
	require.NoError(t, json.Unmarshal(outboxMem.Messages[0].Payload, &ev))
	assert.Equal(t, "ORD-1", ev.OrderNo)
	assert.Equal(t, "K1", ev.IdempotencyKey)
	require.Len(t, ev.Items, 1)
	assert.Equal(t, "A", ev.Items[0].SKU)
}

func TestPlaceOrder_DuplicateOrderNoReturnsExisting(t *testing.T) {
	t.Parallel()
	svc, _, outboxMem := setupOrderTest(t)
	ctx := context.Background()

	first, err := svc.PlaceOrder(ctx, placeCmd("ORD-2"))
	require.NoError(t, err)

	second, err := svc.PlaceOrder(ctx, placeCmd("ORD-2"))
	require.NoError(t, err)

	assert.Equal(t, first.ID(), second.ID())
	assert.Len(t, outboxMem.Messages, 1, "resubmission must not emit a second event")
}

func TestPlaceOrder_Validation(t *testing.T) {
	t.Parallel()
	svc, _, _ := setupOrderTest(t)
	ctx := context.Background()

	_, err := svc.PlaceOrder(ctx, services.PlaceOrderCommand{OrderNo: "", Items: placeCmd("x").Items})
	assert.ErrorIs(t, err, order.ErrEmptyOrderNo)

	_, err = svc.PlaceOrder(ctx, services.PlaceOrderCommand{OrderNo: "ORD-3"})
	assert.ErrorIs(t, err, order.ErrNoItems)
}

func TestTransitions_TerminalStatusIsSticky(t *testing.T) {
	t.Parallel()
	svc, repo, _ := setupOrderTest(t)
	ctx := context.Background()

	_, err := svc.PlaceOrder(ctx, placeCmd("ORD-4"))
	require.NoError(t, err)

	require.NoError(t, svc.MarkPaid(ctx, "ORD-4"))
	o, err := repo.GetByOrderNo(ctx, "ORD-4")
	require.NoError(t, err)
	assert.Equal(t, order.StatusPaid, o.Status())

	require.NoError(t, svc.MarkCancelled(ctx, "ORD-4"), "late failure event after payment must not cancel a paid order")
	o, err = repo.GetByOrderNo(ctx, "ORD-4")
	require.NoError(t, err)
	assert.Equal(t, order.StatusPaid, o.Status())
}

func TestTransitions_UnknownOrderIsTolerated(t *testing.T) {
	t.Parallel()
	svc, _, _ := setupOrderTest(t)
	require.NoError(t, svc.MarkCancelled(context.Background(), "ORD-NONE"))
}
