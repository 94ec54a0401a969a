package outbox

import "context"

// Dispatcher hands a claimed message to the consuming side. A non-nil
// error leaves the row pending for retry; handlers behind a Dispatcher
// must therefore tolerate duplicate delivery.
type Dispatcher interface {
	Dispatch(ctx context.Context, msg DispatchedMessage) error
}
