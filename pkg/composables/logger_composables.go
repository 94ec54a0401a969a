package composables

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/iota-uz/commerce-sdk/pkg/configuration"
	"github.com/iota-uz/commerce-sdk/pkg/constants"
)

// UseLogger returns the request-scoped logger entry, falling back to the
// process logger when the context carries none.
func UseLogger(ctx context.Context) *logrus.Entry {
	if entry, ok := ctx.Value(constants.LoggerKey).(*logrus.Entry); ok {
		return entry
	}
	return logrus.NewEntry(configuration.Use().Logger())
}
