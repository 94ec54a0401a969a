package modules_test

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	inventoryaggregate "github.com/iota-uz/commerce-sdk/modules/inventory/domain/aggregates/inventory"
	inventoryhandlers "github.com/iota-uz/commerce-sdk/modules/inventory/handlers"
	inventorypersistence "github.com/iota-uz/commerce-sdk/modules/inventory/infrastructure/persistence"
	inventoryoutbox "github.com/iota-uz/commerce-sdk/modules/inventory/infrastructure/outbox"
	inventoryservices "github.com/iota-uz/commerce-sdk/modules/inventory/services"
	notificationhandlers "github.com/iota-uz/commerce-sdk/modules/notification/handlers"
	notificationinfra "github.com/iota-uz/commerce-sdk/modules/notification/infrastructure"
	notificationservices "github.com/iota-uz/commerce-sdk/modules/notification/services"
	orderaggregate "github.com/iota-uz/commerce-sdk/modules/order/domain/aggregates/order"
	orderhandlers "github.com/iota-uz/commerce-sdk/modules/order/handlers"
	orderpersistence "github.com/iota-uz/commerce-sdk/modules/order/infrastructure/persistence"
	orderoutbox "github.com/iota-uz/commerce-sdk/modules/order/infrastructure/outbox"
	orderservices "github.com/iota-uz/commerce-sdk/modules/order/services"
	paymentaggregate "github.com/iota-uz/commerce-sdk/modules/payment/domain/aggregates/payment"
	paymenthandlers "github.com/iota-uz/commerce-sdk/modules/payment/handlers"
	paymentpersistence "github.com/iota-uz/commerce-sdk/modules/payment/infrastructure/persistence"
	paymentoutbox "github.com/iota-uz/commerce-sdk/modules/payment/infrastructure/outbox"
	paymentproviders "github.com/iota-uz/commerce-sdk/modules/payment/infrastructure/providers"
	paymentservices "github.com/iota-uz/commerce-sdk/modules/payment/services"
	"github.com/iota-uz/commerce-sdk/pkg/application"
	"github.com/iota-uz/commerce-sdk/pkg/eventbus"
	"github.com/iota-uz/commerce-sdk/pkg/outbox"
	"github.com/iota-uz/commerce-sdk/pkg/outbox/outboxtest"
)

// saga wires every module against in-memory repositories and routes
// each module's outbox straight into its dispatcher, so a placed
// order runs the whole choreography synchronously inside the test.
type saga struct {
	app application.Application

	orders    *orderservices.OrderService
	inventory *inventoryservices.InventoryService
	payments  *paymentservices.PaymentService

	orderRepo     *orderpersistence.InmemOrderRepository
	inventoryRepo *inventorypersistence.InmemInventoryRepository
	paymentRepo   *paymentpersistence.InmemPaymentRepository

	orderOutbox *outboxtest.Memory

	// every message the order outbox dispatched, kept for redelivery
	placed []outbox.DispatchedMessage
}

func setupSaga(t *testing.T, stock map[string]int, provider ...paymentaggregate.Provider) *saga {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	bus := eventbus.NewEventPublisher(logger)
	eb, ok := bus.(eventbus.EventBusWithError)
	require.True(t, ok)

	app := application.New(&application.ApplicationOptions{
		EventBus: bus,
		Logger:   logger,
	})

	s := &saga{
		app:           app,
		orderRepo:     orderpersistence.NewInmemOrderRepository(),
		inventoryRepo: inventorypersistence.NewInmemInventoryRepository(),
		paymentRepo:   paymentpersistence.NewInmemPaymentRepository(),
	}

	for sku, onHand := range stock {
		require.NoError(t, s.inventoryRepo.SaveItem(context.Background(), inventoryaggregate.NewItem(sku, onHand)))
	}

	orderMem := outboxtest.NewMemory()
	orderDispatcher := orderoutbox.NewDispatcher(eb)
	orderMem.Dispatch = func(ctx context.Context, msg outbox.DispatchedMessage) error {
		s.placed = append(s.placed, msg)
		return orderDispatcher.Dispatch(ctx, msg)
	}
	s.orderOutbox = orderMem

	inventoryMem := outboxtest.NewMemory()
	inventoryMem.Dispatch = inventoryoutbox.NewDispatcher(eb).Dispatch

	paymentMem := outboxtest.NewMemory()
	paymentMem.Dispatch = paymentoutbox.NewDispatcher(eb).Dispatch

	var p paymentaggregate.Provider = paymentproviders.NewFakeProvider()
	if len(provider) > 0 {
		p = provider[0]
	}

	s.orders = orderservices.NewOrderService(s.orderRepo, orderMem)
	s.inventory = inventoryservices.NewInventoryService(s.inventoryRepo, inventoryMem)
	s.payments = paymentservices.NewPaymentService(
		s.paymentRepo,
		paymentaggregate.NewProviderRegistry(p),
		paymentMem,
	)
	notifications := notificationservices.NewNotificationService(
		notificationinfra.NewLogSender(logger),
		logger,
	)

	app.RegisterServices(s.orders, s.inventory, s.payments, notifications)

	// same order as modules.Load: inventory reacts to a placed order
	// before the payment attempt opens
	orderhandlers.RegisterOutboxEventHandlers(app)
	inventoryhandlers.RegisterOutboxEventHandlers(app)
	paymenthandlers.RegisterOutboxEventHandlers(app)
	notificationhandlers.RegisterOutboxEventHandlers(app)

	return s
}

func (s *saga) item(t *testing.T, sku string) inventoryaggregate.Item {
	t.Helper()
	item, err := s.inventoryRepo.GetItem(context.Background(), sku)
	require.NoError(t, err)
	return item
}

func (s *saga) order(t *testing.T, orderNo string) orderaggregate.Order {
	t.Helper()
	o, err := s.orderRepo.GetByOrderNo(context.Background(), orderNo)
	require.NoError(t, err)
	return o
}

func TestChoreography_HappyPathSettlesOrder(t *testing.T) {
	t.Parallel()
	s := setupSaga(t, map[string]int{"A": 5})
	ctx := context.Background()

	_, err := s.orders.PlaceOrder(ctx, orderservices.PlaceOrderCommand{
		OrderNo:        "ORD-100",
		Items:          []orderaggregate.Item{{SKU: "A", Quantity: 2, UnitPrice: decimal.NewFromInt(10)}},
		IdempotencyKey: "K1",
	})
	require.NoError(t, err)

	assert.Equal(t, orderaggregate.StatusPaid, s.order(t, "ORD-100").Status())

	item := s.item(t, "A")
	assert.Equal(t, 3, item.OnHand(), "confirmed reservation ships the stock")
	assert.Equal(t, 0, item.Reserved())

	res, err := s.inventoryRepo.GetReservation(ctx, "ORD-100")
	require.NoError(t, err)
	assert.True(t, res.Confirmed())

	pay, err := s.paymentRepo.GetByIdempotencyKey(ctx, "K1")
	require.NoError(t, err)
	assert.Equal(t, paymentaggregate.StatusSucceeded, pay.Status())
	assert.True(t, pay.Amount().Equal(decimal.NewFromInt(20)))
}

func TestChoreography_RedeliveredOrderPlacedIsIdempotent(t *testing.T) {
	t.Parallel()
	s := setupSaga(t, map[string]int{"A": 5})
	ctx := context.Background()

	_, err := s.orders.PlaceOrder(ctx, orderservices.PlaceOrderCommand{
		OrderNo:        "ORD-100",
		Items:          []orderaggregate.Item{{SKU: "A", Quantity: 2, UnitPrice: decimal.NewFromInt(10)}},
		IdempotencyKey: "K1",
	})
	require.NoError(t, err)
	require.Len(t, s.placed, 1)

	// the relay redelivers the same OrderPlaced after a crash
	redelivered := s.placed[0]
	redelivered.Meta.Attempts = 2
	require.NoError(t, s.orderOutbox.Dispatch(ctx, redelivered))

	item := s.item(t, "A")
	assert.Equal(t, 3, item.OnHand(), "redelivery must not reserve again")
	assert.Equal(t, 0, item.Reserved())
	assert.Equal(t, orderaggregate.StatusPaid, s.order(t, "ORD-100").Status())

	payments := s.paymentRepo.All()
	require.Len(t, payments, 1, "idempotency key K1 must open a single payment")
	assert.Equal(t, paymentaggregate.StatusSucceeded, payments[0].Status())
}

func TestChoreography_InsufficientStockCancelsOrder(t *testing.T) {
	t.Parallel()
	s := setupSaga(t, map[string]int{"A": 5})
	ctx := context.Background()

	_, err := s.orders.PlaceOrder(ctx, orderservices.PlaceOrderCommand{
		OrderNo:        "ORD-200",
		Items:          []orderaggregate.Item{{SKU: "A", Quantity: 6, UnitPrice: decimal.NewFromInt(10)}},
		IdempotencyKey: "K2",
	})
	require.NoError(t, err)

	assert.Equal(t, orderaggregate.StatusCancelled, s.order(t, "ORD-200").Status())

	item := s.item(t, "A")
	assert.Equal(t, 5, item.OnHand())
	assert.Equal(t, 0, item.Reserved(), "failed reservation must not hold stock")

	// the reservation failure arrived before a payment attempt could
	// open, so no payment exists to compensate
	_, err = s.paymentRepo.GetByIdempotencyKey(ctx, "K2")
	require.ErrorIs(t, err, paymentaggregate.ErrPaymentNotFound)
}

func TestChoreography_LateReservationFailureRefundsPayment(t *testing.T) {
	t.Parallel()
	s := setupSaga(t, map[string]int{"A": 5})
	ctx := context.Background()

	// the payment settles first, then the reservation failure arrives,
	// mirroring the reversed interleaving of an asynchronous relay
	_, err := s.payments.Create(ctx, paymentservices.CreatePaymentCommand{
		OrderNo:        "ORD-300",
		Amount:         decimal.NewFromInt(60),
		IdempotencyKey: "K3",
	})
	require.NoError(t, err)

	_, err = s.inventory.TryReserve(ctx, "ORD-300", []inventoryaggregate.Line{{SKU: "A", Quantity: 6}})
	require.NoError(t, err)

	pay, err := s.paymentRepo.GetByIdempotencyKey(ctx, "K3")
	require.NoError(t, err)
	assert.Equal(t, paymentaggregate.StatusRefunded, pay.Status(), "settled payment is refunded when the reservation fails")
}

func TestChoreography_ReservationFailureVoidsPendingPayment(t *testing.T) {
	t.Parallel()
	// a provider that leaves payments in Processing, so the failure
	// event voids the payment and the resulting PaymentCompleted(Failed)
	// calls back into inventory.Cancel for the same order mid-dispatch
	pending := &paymentproviders.FakeProvider{SettleWith: paymentaggregate.StatusProcessing}
	s := setupSaga(t, map[string]int{"A": 5}, pending)
	ctx := context.Background()

	_, err := s.payments.Create(ctx, paymentservices.CreatePaymentCommand{
		OrderNo:        "ORD-400",
		Amount:         decimal.NewFromInt(60),
		IdempotencyKey: "K4",
	})
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := s.inventory.TryReserve(ctx, "ORD-400", []inventoryaggregate.Line{{SKU: "A", Quantity: 6}})
		done <- err
	}()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("TryReserve did not return; reservation failure dispatch re-entered the per-order lock")
	}

	pay, err := s.paymentRepo.GetByIdempotencyKey(ctx, "K4")
	require.NoError(t, err)
	assert.Equal(t, paymentaggregate.StatusFailed, pay.Status(), "pending payment is voided when the reservation fails")

	_, err = s.inventoryRepo.GetReservation(ctx, "ORD-400")
	require.ErrorIs(t, err, inventoryaggregate.ErrReservationNotFound)
	item := s.item(t, "A")
	assert.Equal(t, 5, item.OnHand())
	assert.Equal(t, 0, item.Reserved())
}
