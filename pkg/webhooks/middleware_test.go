package webhooks

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"
)

// providerSignatureVerifier stands in for a payment provider's HMAC check.
type providerSignatureVerifier struct{}

func (providerSignatureVerifier) Verify(_ context.Context, r *http.Request, _ []byte) error {
	if r.Header.Get("X-Provider-Signature") != "ok" {
		return errors.New("bad signature")
	}
	return nil
}

type eventIDReplayProtector struct {
	seen map[string]struct{}
}

func (p *eventIDReplayProtector) Check(_ context.Context, r *http.Request, _ []byte) error {
	id := r.Header.Get("X-Provider-Event")
	if id == "" {
		return errors.New("missing provider event id")
	}
	if _, ok := p.seen[id]; ok {
		return ErrReplayDetected
	}
	p.seen[id] = struct{}{}
	return nil
}

func TestMiddleware_AllowsAndRestoresBody(t *testing.T) {
	router := mux.NewRouter()
	sub := Bind(router, "/webhooks/payments/fake", providerSignatureVerifier{}, &eventIDReplayProtector{seen: map[string]struct{}{}})
	require.NotNil(t, sub)
	sub.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(body)
	}).Methods(http.MethodPost)

	payload := `{"provider_ref":"fake-1","status":"succeeded"}`
	req := httptest.NewRequest(http.MethodPost, "http://example.com/webhooks/payments/fake/callback", bytes.NewBufferString(payload))
	req.Header.Set("X-Provider-Signature", "ok")
	req.Header.Set("X-Provider-Event", "evt-1")
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, payload, rr.Body.String())
}

func TestMiddleware_DeniesInvalidSignature(t *testing.T) {
	router := mux.NewRouter()
	sub := Bind(router, "/webhooks/payments/fake", providerSignatureVerifier{}, &eventIDReplayProtector{seen: map[string]struct{}{}})
	require.NotNil(t, sub)
	sub.HandleFunc("/callback", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}).Methods(http.MethodPost)

	req := httptest.NewRequest(http.MethodPost, "http://example.com/webhooks/payments/fake/callback", nil)
	req.Header.Set("X-Provider-Event", "evt-1")
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusUnauthorized, rr.Code)
	require.Equal(t, "application/json", rr.Header().Get("Content-Type"))
}

func TestMiddleware_DeniesReplayedProviderEvent(t *testing.T) {
	router := mux.NewRouter()
	sub := Bind(router, "/webhooks/payments/fake", providerSignatureVerifier{}, &eventIDReplayProtector{seen: map[string]struct{}{}})
	require.NotNil(t, sub)
	sub.HandleFunc("/callback", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}).Methods(http.MethodPost)

	first := httptest.NewRequest(http.MethodPost, "http://example.com/webhooks/payments/fake/callback", nil)
	first.Header.Set("X-Provider-Signature", "ok")
	first.Header.Set("X-Provider-Event", "evt-1")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, first)
	require.Equal(t, http.StatusOK, rr.Code)

	// providers redeliver callbacks; the second delivery of evt-1 must not reach the handler
	second := httptest.NewRequest(http.MethodPost, "http://example.com/webhooks/payments/fake/callback", nil)
	second.Header.Set("X-Provider-Signature", "ok")
	second.Header.Set("X-Provider-Event", "evt-1")
	rr2 := httptest.NewRecorder()
	router.ServeHTTP(rr2, second)

	require.Equal(t, http.StatusConflict, rr2.Code)
	require.Equal(t, "application/json", rr2.Header().Get("Content-Type"))
}

func TestMiddleware_BadPayloadIfReplayProtectorCannotCheck(t *testing.T) {
	router := mux.NewRouter()
	sub := Bind(router, "/webhooks/payments/fake", providerSignatureVerifier{}, &eventIDReplayProtector{seen: map[string]struct{}{}})
	require.NotNil(t, sub)
	sub.HandleFunc("/callback", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}).Methods(http.MethodPost)

	req := httptest.NewRequest(http.MethodPost, "http://example.com/webhooks/payments/fake/callback", nil)
	req.Header.Set("X-Provider-Signature", "ok")
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Equal(t, "application/json", rr.Header().Get("Content-Type"))
}

func TestMiddleware_DeniesWhenMisconfigured(t *testing.T) {
	router := mux.NewRouter()
	router.Use(Middleware(nil, nil))
	router.HandleFunc("/webhooks/payments/fake/callback", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}).Methods(http.MethodPost)

	req := httptest.NewRequest(http.MethodPost, "http://example.com/webhooks/payments/fake/callback", nil)
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusInternalServerError, rr.Code)
	require.Equal(t, "application/json", rr.Header().Get("Content-Type"))
}
