package payment

import (
	"embed"

	"github.com/iota-uz/commerce-sdk/modules/payment/domain/aggregates/payment"
	"github.com/iota-uz/commerce-sdk/modules/payment/handlers"
	moduleoutbox "github.com/iota-uz/commerce-sdk/modules/payment/infrastructure/outbox"
	"github.com/iota-uz/commerce-sdk/modules/payment/infrastructure/persistence"
	"github.com/iota-uz/commerce-sdk/modules/payment/infrastructure/providers"
	"github.com/iota-uz/commerce-sdk/modules/payment/presentation/controllers"
	"github.com/iota-uz/commerce-sdk/modules/payment/services"
	"github.com/iota-uz/commerce-sdk/pkg/application"
	"github.com/iota-uz/commerce-sdk/pkg/configuration"
)

//go:embed infrastructure/persistence/schema/payment-schema.sql
var migrationFiles embed.FS

func NewModule() application.Module {
	return &Module{}
}

type Module struct{}

func (m *Module) Register(app application.Application) error {
	app.Migrations().RegisterSchema(&migrationFiles)

	conf := configuration.Use()
	registry := payment.NewProviderRegistry(
		providers.NewFakeProvider(),
	)

	app.RegisterServices(
		services.NewPaymentService(
			persistence.NewPaymentRepository(),
			registry,
			moduleoutbox.NewWriter(),
			services.WithDefaultMethod(conf.Payment.DefaultProvider),
			services.WithProviderTimeout(conf.Payment.ProviderTimeout),
		),
	)

	app.RegisterControllers(
		controllers.NewPaymentWebhookController(app),
	)

	handlers.RegisterOutboxEventHandlers(app)

	return nil
}

func (m *Module) Name() string {
	return "payment"
}
