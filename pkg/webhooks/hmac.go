package webhooks

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"
)

// DefaultSignatureHeader carries the hex-encoded HMAC-SHA256 of the raw body.
const DefaultSignatureHeader = "X-Webhook-Signature"

var ErrInvalidSignature = errors.New("invalid webhook signature")

// HMACVerifier verifies provider callbacks signed with a shared secret.
type HMACVerifier struct {
	secret []byte
	header string
}

func NewHMACVerifier(secret string, header string) *HMACVerifier {
	if strings.TrimSpace(header) == "" {
		header = DefaultSignatureHeader
	}
	return &HMACVerifier{secret: []byte(secret), header: header}
}

func (v *HMACVerifier) Verify(_ context.Context, r *http.Request, body []byte) error {
	if len(v.secret) == 0 {
		return errors.New("webhook secret is not configured")
	}
	if r == nil {
		return ErrInvalidSignature
	}
	got := strings.TrimSpace(r.Header.Get(v.header))
	if got == "" {
		return ErrInvalidSignature
	}
	mac := hmac.New(sha256.New, v.secret)
	mac.Write(body)
	want := hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(strings.ToLower(got)), []byte(want)) {
		return ErrInvalidSignature
	}
	return nil
}

// Sign computes the signature value a caller would place in the header.
// Exposed for tests and for the fake provider.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
