package controllers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/iota-uz/commerce-sdk/modules/payment/domain/aggregates/payment"
	"github.com/iota-uz/commerce-sdk/modules/payment/services"
	"github.com/iota-uz/commerce-sdk/pkg/application"
	"github.com/iota-uz/commerce-sdk/pkg/composables"
	"github.com/iota-uz/commerce-sdk/pkg/configuration"
	"github.com/iota-uz/commerce-sdk/pkg/httpapi"
	"github.com/iota-uz/commerce-sdk/pkg/webhooks"
)

// PaymentWebhookController receives provider callbacks. The webhooks
// middleware rejects bad signatures and replays before the handler
// runs; a replayed body therefore never reaches HandleCallback twice.
type PaymentWebhookController struct {
	basePath string
	payments *services.PaymentService
}

func NewPaymentWebhookController(app application.Application) application.Controller {
	return &PaymentWebhookController{
		basePath: "/webhooks/payments",
		payments: app.Service(services.PaymentService{}).(*services.PaymentService),
	}
}

func (c *PaymentWebhookController) Key() string {
	return "PaymentWebhookController"
}

func (c *PaymentWebhookController) Register(r *mux.Router) {
	conf := configuration.Use()
	verifier := webhooks.NewHMACVerifier(conf.Payment.WebhookSecret, "")
	protector := webhooks.NewMemoryReplayProtector(0)

	router := webhooks.Bind(r, c.basePath, verifier, protector)
	router.HandleFunc("/{provider}", c.handleCallback).Methods(http.MethodPost)
}

func (c *PaymentWebhookController) handleCallback(w http.ResponseWriter, r *http.Request) {
	providerName := mux.Vars(r)["provider"]
	logger := composables.UseLogger(r.Context())

	body, err := io.ReadAll(r.Body)
	if err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, "WEBHOOK_BAD_REQUEST", "failed to read callback body", nil)
		return
	}

	if err := c.payments.HandleCallback(r.Context(), providerName, body); err != nil {
		switch {
		case errors.Is(err, payment.ErrUnknownProvider):
			_ = httpapi.WriteError(w, http.StatusNotFound, "UNKNOWN_PROVIDER", "unknown payment provider", nil)
		case errors.Is(err, payment.ErrPaymentNotFound):
			_ = httpapi.WriteError(w, http.StatusNotFound, "PAYMENT_NOT_FOUND", "payment not found", nil)
		default:
			logger.WithError(err).WithField("provider", providerName).Error("failed to handle payment callback")
			_ = httpapi.WriteError(w, http.StatusBadRequest, "WEBHOOK_BAD_REQUEST", "failed to process callback", nil)
		}
		return
	}

	_ = httpapi.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
