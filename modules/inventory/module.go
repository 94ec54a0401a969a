package inventory

import (
	"embed"

	"github.com/iota-uz/commerce-sdk/modules/inventory/handlers"
	moduleoutbox "github.com/iota-uz/commerce-sdk/modules/inventory/infrastructure/outbox"
	"github.com/iota-uz/commerce-sdk/modules/inventory/infrastructure/persistence"
	"github.com/iota-uz/commerce-sdk/modules/inventory/services"
	"github.com/iota-uz/commerce-sdk/pkg/application"
)

//go:embed infrastructure/persistence/schema/inventory-schema.sql
var migrationFiles embed.FS

func NewModule() application.Module {
	return &Module{}
}

type Module struct{}

func (m *Module) Register(app application.Application) error {
	app.Migrations().RegisterSchema(&migrationFiles)

	app.RegisterServices(
		services.NewInventoryService(
			persistence.NewInventoryRepository(),
			moduleoutbox.NewWriter(),
		),
	)

	handlers.RegisterOutboxEventHandlers(app)

	return nil
}

func (m *Module) Name() string {
	return "inventory"
}
