package webhooks

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func signedRequest(t *testing.T, secret, body string) *http.Request {
	t.Helper()
	r := httptest.NewRequest(http.MethodPost, "/webhooks/payments/fake", strings.NewReader(body))
	r.Header.Set(DefaultSignatureHeader, Sign(secret, []byte(body)))
	return r
}

func TestHMACVerifier(t *testing.T) {
	t.Parallel()
	v := NewHMACVerifier("s3cret", "")
	body := `{"payment_id":"p1"}`

	r := signedRequest(t, "s3cret", body)
	require.NoError(t, v.Verify(context.Background(), r, []byte(body)))

	t.Run("wrong secret", func(t *testing.T) {
		r := signedRequest(t, "other", body)
		require.ErrorIs(t, v.Verify(context.Background(), r, []byte(body)), ErrInvalidSignature)
	})

	t.Run("tampered body", func(t *testing.T) {
		r := signedRequest(t, "s3cret", body)
		require.ErrorIs(t, v.Verify(context.Background(), r, []byte(`{"payment_id":"p2"}`)), ErrInvalidSignature)
	})

	t.Run("missing header", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/webhooks/payments/fake", strings.NewReader(body))
		require.ErrorIs(t, v.Verify(context.Background(), r, []byte(body)), ErrInvalidSignature)
	})

	t.Run("uppercase hex accepted", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/webhooks/payments/fake", strings.NewReader(body))
		r.Header.Set(DefaultSignatureHeader, strings.ToUpper(Sign("s3cret", []byte(body))))
		require.NoError(t, v.Verify(context.Background(), r, []byte(body)))
	})
}

func TestHMACVerifier_EmptySecretRefusesEverything(t *testing.T) {
	t.Parallel()
	v := NewHMACVerifier("", "")
	body := "{}"
	r := signedRequest(t, "", body)
	require.Error(t, v.Verify(context.Background(), r, []byte(body)))
}

func TestMemoryReplayProtector(t *testing.T) {
	t.Parallel()
	p := NewMemoryReplayProtector(time.Minute)
	body := []byte(`{"payment_id":"p1"}`)
	r := httptest.NewRequest(http.MethodPost, "/webhooks/payments/fake", nil)

	require.NoError(t, p.Check(context.Background(), r, body))
	require.ErrorIs(t, p.Check(context.Background(), r, body), ErrReplayDetected)

	other := httptest.NewRequest(http.MethodPost, "/webhooks/payments/other", nil)
	require.NoError(t, p.Check(context.Background(), other, body), "same body on another path is not a replay")
}

func TestMemoryReplayProtector_TTLExpiry(t *testing.T) {
	t.Parallel()
	p := NewMemoryReplayProtector(time.Minute)
	now := time.Now()
	p.now = func() time.Time { return now }

	body := []byte("{}")
	r := httptest.NewRequest(http.MethodPost, "/webhooks/payments/fake", nil)

	require.NoError(t, p.Check(context.Background(), r, body))
	require.ErrorIs(t, p.Check(context.Background(), r, body), ErrReplayDetected)

	now = now.Add(2 * time.Minute)
	require.NoError(t, p.Check(context.Background(), r, body), "digest is forgotten after the TTL")
}
