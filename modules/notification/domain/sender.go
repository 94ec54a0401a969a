package domain

import "context"

// Sender delivers customer-facing notifications. Callers treat it as
// fire-and-forget; delivery failures are logged, never propagated into
// the saga.
type Sender interface {
	SendEmail(ctx context.Context, to, subject, body string) error
	SendSMS(ctx context.Context, to, message string) error
}
