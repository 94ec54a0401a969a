package payment

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

var ErrUnknownProvider = errors.New("unknown payment provider")

// CreateResult is the provider's answer to a payment creation request.
// A terminal Status means the provider settled synchronously (fakes and
// simulations); otherwise the payment stays Processing until the
// provider's webhook arrives.
type CreateResult struct {
	ProviderRef string
	RedirectURL string
	Status      Status
}

// CallbackResult is the parsed, verified body of a provider webhook.
type CallbackResult struct {
	PaymentID   string
	Status      Status
	ExternalRef string
	Reason      string
}

// Provider adapts one external payment method. Selection is data
// driven by the payment's method field.
type Provider interface {
	Name() string
	Create(ctx context.Context, p Payment) (CreateResult, error)
	VerifyCallback(ctx context.Context, rawBody []byte) (CallbackResult, error)
}

// ProviderRegistry maps method names to providers.
type ProviderRegistry struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

func NewProviderRegistry(providers ...Provider) *ProviderRegistry {
	r := &ProviderRegistry{providers: make(map[string]Provider)}
	for _, p := range providers {
		r.Register(p)
	}
	return r
}

func (r *ProviderRegistry) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.Name()] = p
}

func (r *ProviderRegistry) Get(method string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[method]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, method)
	}
	return p, nil
}
