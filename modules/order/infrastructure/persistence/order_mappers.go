package persistence

import (
	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/iota-uz/commerce-sdk/modules/order/domain/aggregates/order"
	"github.com/iota-uz/commerce-sdk/modules/order/infrastructure/persistence/models"
)

func toDBOrder(o order.Order) (*models.Order, []*models.OrderItem) {
	dbOrder := &models.Order{
		ID:         o.ID().String(),
		OrderNo:    o.OrderNo(),
		CustomerID: o.CustomerID(),
		Total:      o.Total().String(),
		Status:     string(o.Status()),
		CreatedAt:  o.CreatedAt(),
		UpdatedAt:  o.UpdatedAt(),
	}
	items := make([]*models.OrderItem, 0, len(o.Items()))
	for _, item := range o.Items() {
		items = append(items, &models.OrderItem{
			OrderID:   dbOrder.ID,
			SKU:       item.SKU,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice.String(),
		})
	}
	return dbOrder, items
}

func toDomainOrder(dbOrder *models.Order, dbItems []*models.OrderItem) (order.Order, error) {
	id, err := uuid.Parse(dbOrder.ID)
	if err != nil {
		return nil, errors.Wrap(err, "parse order id")
	}
	total, err := decimal.NewFromString(dbOrder.Total)
	if err != nil {
		return nil, errors.Wrap(err, "parse order total")
	}
	items := make([]order.Item, 0, len(dbItems))
	for _, dbItem := range dbItems {
		unitPrice, err := decimal.NewFromString(dbItem.UnitPrice)
		if err != nil {
			return nil, errors.Wrap(err, "parse item unit price")
		}
		items = append(items, order.Item{
			SKU:       dbItem.SKU,
			Quantity:  dbItem.Quantity,
			UnitPrice: unitPrice,
		})
	}
	return order.New(
		dbOrder.OrderNo,
		total,
		items,
		order.WithID(id),
		order.WithCustomerID(dbOrder.CustomerID),
		order.WithStatus(order.Status(dbOrder.Status)),
		order.WithCreatedAt(dbOrder.CreatedAt),
		order.WithUpdatedAt(dbOrder.UpdatedAt),
	)
}
