package main

import (
	"context"
	"log"
	"os"
	"runtime/debug"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/commerce-sdk/internal/server"
	"github.com/iota-uz/commerce-sdk/modules"
	inventoryoutbox "github.com/iota-uz/commerce-sdk/modules/inventory/infrastructure/outbox"
	orderoutbox "github.com/iota-uz/commerce-sdk/modules/order/infrastructure/outbox"
	paymentoutbox "github.com/iota-uz/commerce-sdk/modules/payment/infrastructure/outbox"
	paymentservices "github.com/iota-uz/commerce-sdk/modules/payment/services"
	"github.com/iota-uz/commerce-sdk/pkg/application"
	"github.com/iota-uz/commerce-sdk/pkg/composables"
	"github.com/iota-uz/commerce-sdk/pkg/configuration"
	"github.com/iota-uz/commerce-sdk/pkg/eventbus"
	"github.com/iota-uz/commerce-sdk/pkg/logging"
	"github.com/iota-uz/commerce-sdk/pkg/metrics"
	"github.com/iota-uz/commerce-sdk/pkg/outbox"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			configuration.Use().Unload()
			log.Println(r)
			debug.PrintStack()
			os.Exit(1)
		}
	}()

	conf := configuration.Use()
	logger := conf.Logger()

	if conf.OpenTelemetry.Enabled {
		tracingCleanup := logging.SetupTracing(
			context.Background(),
			conf.OpenTelemetry.ServiceName,
			conf.OpenTelemetry.TempoURL,
		)
		defer tracingCleanup()
		logger.Info("OpenTelemetry tracing enabled, exporting to " + conf.OpenTelemetry.TempoURL)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()
	pool, err := pgxpool.New(ctx, conf.Database.Opts)
	if err != nil {
		panic(err)
	}

	app := application.New(&application.ApplicationOptions{
		Pool:     pool,
		EventBus: eventbus.NewEventPublisher(logger),
		Logger:   logger,
	})
	if err := modules.Load(app, modules.BuiltInModules...); err != nil {
		log.Fatalf("failed to load modules: %v", err)
	}
	if err := app.Migrations().Apply(ctx); err != nil {
		log.Fatalf("failed to apply schema: %v", err)
	}

	startOutboxBackground(conf, pool, logger, app.EventPublisher())
	startPaymentReconciler(conf, pool, logger, app)

	if conf.Prometheus.Enabled {
		app.RegisterControllers(metrics.NewPrometheusController(conf.Prometheus.Path))
	}

	serverInstance, err := server.Default(&server.DefaultOptions{
		Logger:        logger,
		Configuration: conf,
		Application:   app,
		Pool:          pool,
	})
	if err != nil {
		log.Fatalf("failed to create server: %v", err)
	}
	log.Printf("Listening on: %s\n", conf.Origin)
	if err := serverInstance.Start(conf.SocketAddress); err != nil {
		log.Fatalf("failed to start server: %v", err)
	}
}

func startOutboxBackground(
	conf *configuration.Configuration,
	pool *pgxpool.Pool,
	logger *logrus.Logger,
	bus eventbus.EventBus,
) {
	outboxLog := logger.WithField("component", "outbox")

	eb, ok := bus.(eventbus.EventBusWithError)
	if !ok {
		outboxLog.Warn("outbox: eventbus does not support PublishE; relay not started")
		return
	}

	dispatchers := map[string]struct {
		table      pgx.Identifier
		dispatcher outbox.Dispatcher
	}{
		"order":     {orderoutbox.Table, orderoutbox.NewDispatcher(eb)},
		"inventory": {inventoryoutbox.Table, inventoryoutbox.NewDispatcher(eb)},
		"payment":   {paymentoutbox.Table, paymentoutbox.NewDispatcher(eb)},
	}

	if conf.Outbox.RelayEnabled {
		for name, d := range dispatchers {
			relay, err := outbox.NewRelay(pool, d.table, d.dispatcher, outbox.RelayOptions{
				PollInterval:    conf.Outbox.RelayPollInterval,
				BatchSize:       conf.Outbox.RelayBatchSize,
				LockTTL:         conf.Outbox.RelayLockTTL,
				MaxAttempts:     conf.Outbox.RelayMaxAttempts,
				SingleActive:    conf.Outbox.RelaySingleActive,
				LastErrorMaxLen: conf.Outbox.LastErrorMaxBytes,
				DispatchTimeout: conf.Outbox.RelayDispatchTimeout,
				Logger:          outboxLog.WithField("table", outbox.TableLabel(d.table)),
			})
			if err != nil {
				outboxLog.WithError(err).WithField("module", name).Warn("outbox: failed to create relay")
				continue
			}
			go func(r *outbox.Relay) {
				if err := r.Run(context.Background()); err != nil {
					outboxLog.WithError(err).Error("outbox: relay stopped")
				}
			}(relay)
		}
	}

	if conf.Outbox.CleanerEnabled {
		for name, d := range dispatchers {
			cleaner, err := outbox.NewCleaner(pool, d.table, outbox.CleanerOptions{
				Enabled:               true,
				Interval:              conf.Outbox.CleanerInterval,
				Retention:             conf.Outbox.CleanerRetention,
				DeadRetention:         conf.Outbox.CleanerDeadRetention,
				DeadAttemptsThreshold: conf.Outbox.RelayMaxAttempts,
				Logger:                outboxLog.WithField("table", outbox.TableLabel(d.table)),
			})
			if err != nil {
				outboxLog.WithError(err).WithField("module", name).Warn("outbox: failed to create cleaner")
				continue
			}
			go func(c *outbox.Cleaner) {
				if err := c.Run(context.Background()); err != nil {
					outboxLog.WithError(err).Error("outbox: cleaner stopped")
				}
			}(cleaner)
		}
	}
}

func startPaymentReconciler(
	conf *configuration.Configuration,
	pool *pgxpool.Pool,
	logger *logrus.Logger,
	app application.Application,
) {
	if !conf.Payment.ReconcileEnabled {
		return
	}
	payments := app.Service(paymentservices.PaymentService{}).(*paymentservices.PaymentService)
	reconciler := paymentservices.NewReconciler(payments, paymentservices.ReconcilerOptions{
		Enabled:  true,
		Interval: conf.Payment.ReconcileInterval,
		MaxAge:   conf.Payment.ReconcileTTL,
		Logger:   logger,
	})
	go func() {
		ctx := composablesContext(pool)
		if err := reconciler.Run(ctx); err != nil {
			logger.WithError(err).Error("payment reconciler stopped")
		}
	}()
}

func composablesContext(pool *pgxpool.Pool) context.Context {
	return composables.WithPool(context.Background(), pool)
}
