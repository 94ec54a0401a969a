package controllers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/iota-uz/commerce-sdk/modules/order/domain/aggregates/order"
	"github.com/iota-uz/commerce-sdk/modules/order/presentation/controllers/dtos"
	"github.com/iota-uz/commerce-sdk/modules/order/services"
	"github.com/iota-uz/commerce-sdk/pkg/application"
	"github.com/iota-uz/commerce-sdk/pkg/composables"
	"github.com/iota-uz/commerce-sdk/pkg/httpapi"
)

type OrderAPIController struct {
	basePath string
	orders   *services.OrderService
}

func NewOrderAPIController(app application.Application) application.Controller {
	return &OrderAPIController{
		basePath: "/orders",
		orders:   app.Service(services.OrderService{}).(*services.OrderService),
	}
}

func (c *OrderAPIController) Key() string {
	return "OrderAPIController"
}

func (c *OrderAPIController) Register(r *mux.Router) {
	router := r.PathPrefix(c.basePath).Subrouter()
	router.HandleFunc("", c.placeOrder).Methods(http.MethodPost)
	router.HandleFunc("/{order_no}", c.getOrder).Methods(http.MethodGet)
}

// placeOrder acknowledges order acceptance immediately. Reservation and
// payment outcomes arrive asynchronously; clients poll getOrder.
func (c *OrderAPIController) placeOrder(w http.ResponseWriter, r *http.Request) {
	logger := composables.UseLogger(r.Context())

	var req dtos.PlaceOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WithError(err).Error("failed to decode request body")
		_ = httpapi.WriteError(w, http.StatusBadRequest, dtos.ErrorCodeInvalidRequest, "invalid request body", nil)
		return
	}

	items := make([]order.Item, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, order.Item{
			SKU:       item.SKU,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
	}

	placed, err := c.orders.PlaceOrder(r.Context(), services.PlaceOrderCommand{
		OrderNo:        req.OrderNo,
		CustomerID:     req.CustomerID,
		Items:          items,
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		if errors.Is(err, order.ErrEmptyOrderNo) || errors.Is(err, order.ErrNoItems) {
			_ = httpapi.WriteError(w, http.StatusBadRequest, dtos.ErrorCodeInvalidRequest, err.Error(), nil)
			return
		}
		logger.WithError(err).Error("failed to place order")
		_ = httpapi.WriteError(w, http.StatusInternalServerError, dtos.ErrorCodeInternal, "failed to place order", nil)
		return
	}

	_ = httpapi.WriteJSON(w, http.StatusAccepted, toOrderResponse(placed))
}

func (c *OrderAPIController) getOrder(w http.ResponseWriter, r *http.Request) {
	orderNo := mux.Vars(r)["order_no"]

	found, err := c.orders.GetByOrderNo(r.Context(), orderNo)
	if err != nil {
		if errors.Is(err, order.ErrOrderNotFound) {
			_ = httpapi.WriteError(w, http.StatusNotFound, dtos.ErrorCodeOrderNotFound, "order not found", nil)
			return
		}
		composables.UseLogger(r.Context()).WithError(err).Error("failed to load order")
		_ = httpapi.WriteError(w, http.StatusInternalServerError, dtos.ErrorCodeInternal, "failed to load order", nil)
		return
	}

	_ = httpapi.WriteJSON(w, http.StatusOK, toOrderResponse(found))
}

func toOrderResponse(o order.Order) *dtos.OrderResponse {
	items := make([]dtos.OrderItemDTO, 0, len(o.Items()))
	for _, item := range o.Items() {
		items = append(items, dtos.OrderItemDTO{
			SKU:       item.SKU,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
	}
	return &dtos.OrderResponse{
		OrderNo:    o.OrderNo(),
		CustomerID: o.CustomerID(),
		Total:      o.Total(),
		Status:     string(o.Status()),
		Items:      items,
		CreatedAt:  o.CreatedAt(),
		UpdatedAt:  o.UpdatedAt(),
	}
}
