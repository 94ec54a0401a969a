package modules

import (
	"github.com/iota-uz/commerce-sdk/modules/inventory"
	"github.com/iota-uz/commerce-sdk/modules/notification"
	"github.com/iota-uz/commerce-sdk/modules/order"
	"github.com/iota-uz/commerce-sdk/modules/payment"
	"github.com/iota-uz/commerce-sdk/pkg/application"
)

var BuiltInModules = []application.Module{
	order.NewModule(),
	inventory.NewModule(),
	payment.NewModule(),
	notification.NewModule(),
}

func Load(app application.Application, externalModules ...application.Module) error {
	for _, module := range externalModules {
		if err := module.Register(app); err != nil {
			return err
		}
	}
	return nil
}
