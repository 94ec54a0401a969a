package notification

import (
	"github.com/iota-uz/commerce-sdk/modules/notification/handlers"
	"github.com/iota-uz/commerce-sdk/modules/notification/infrastructure"
	"github.com/iota-uz/commerce-sdk/modules/notification/services"
	"github.com/iota-uz/commerce-sdk/pkg/application"
)

func NewModule() application.Module {
	return &Module{}
}

type Module struct{}

func (m *Module) Register(app application.Application) error {
	app.RegisterServices(
		services.NewNotificationService(
			infrastructure.NewLogSender(app.Logger()),
			app.Logger(),
		),
	)

	handlers.RegisterOutboxEventHandlers(app)

	return nil
}

func (m *Module) Name() string {
	return "notification"
}
