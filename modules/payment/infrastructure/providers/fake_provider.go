package providers

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/iota-uz/commerce-sdk/modules/payment/domain/aggregates/payment"
)

const FakeProviderName = "fake"

// FakeCallbackPayload is the wire shape the fake provider posts back to
// the payment webhook endpoint.
type FakeCallbackPayload struct {
	PaymentID   string `json:"payment_id"`
	Status      string `json:"status"`
	ExternalRef string `json:"external_ref"`
	Reason      string `json:"reason,omitempty"`
}

// FakeProvider settles synchronously. SettleWith controls the outcome
// of Create; the zero value succeeds every payment.
type FakeProvider struct {
	SettleWith    payment.Status
	FailureReason string
}

func NewFakeProvider() *FakeProvider {
	return &FakeProvider{SettleWith: payment.StatusSucceeded}
}

func (p *FakeProvider) Name() string {
	return FakeProviderName
}

func (p *FakeProvider) Create(_ context.Context, pay payment.Payment) (payment.CreateResult, error) {
	status := p.SettleWith
	if status == "" {
		status = payment.StatusSucceeded
	}
	ref := "fake-" + pay.ID().String()
	return payment.CreateResult{
		ProviderRef: ref,
		RedirectURL: "https://pay.example.test/checkout/" + pay.ID().String(),
		Status:      status,
	}, nil
}

func (p *FakeProvider) VerifyCallback(_ context.Context, rawBody []byte) (payment.CallbackResult, error) {
	var body FakeCallbackPayload
	if err := json.Unmarshal(rawBody, &body); err != nil {
		return payment.CallbackResult{}, fmt.Errorf("fake provider: decode callback: %w", err)
	}
	if _, err := uuid.Parse(body.PaymentID); err != nil {
		return payment.CallbackResult{}, fmt.Errorf("fake provider: invalid payment id: %w", err)
	}
	var status payment.Status
	switch body.Status {
	case string(payment.StatusSucceeded):
		status = payment.StatusSucceeded
	case string(payment.StatusFailed):
		status = payment.StatusFailed
	default:
		return payment.CallbackResult{}, fmt.Errorf("fake provider: unknown callback status %q", body.Status)
	}
	return payment.CallbackResult{
		PaymentID:   body.PaymentID,
		Status:      status,
		ExternalRef: body.ExternalRef,
		Reason:      body.Reason,
	}, nil
}
