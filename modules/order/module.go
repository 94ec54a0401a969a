package order

import (
	"embed"

	"github.com/iota-uz/commerce-sdk/modules/order/handlers"
	moduleoutbox "github.com/iota-uz/commerce-sdk/modules/order/infrastructure/outbox"
	"github.com/iota-uz/commerce-sdk/modules/order/infrastructure/persistence"
	"github.com/iota-uz/commerce-sdk/modules/order/presentation/controllers"
	"github.com/iota-uz/commerce-sdk/modules/order/services"
	"github.com/iota-uz/commerce-sdk/pkg/application"
)

//go:embed infrastructure/persistence/schema/order-schema.sql
var migrationFiles embed.FS

func NewModule() application.Module {
	return &Module{}
}

type Module struct{}

func (m *Module) Register(app application.Application) error {
	app.Migrations().RegisterSchema(&migrationFiles)

	app.RegisterServices(
		services.NewOrderService(
			persistence.NewOrderRepository(),
			moduleoutbox.NewWriter(),
		),
	)

	app.RegisterControllers(
		controllers.NewOrderAPIController(app),
	)

	handlers.RegisterOutboxEventHandlers(app)

	return nil
}

func (m *Module) Name() string {
	return "order"
}
