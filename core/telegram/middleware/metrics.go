package middleware

import (
	"context"

	tghelpers "github.com/m3rciful/goalbot/core/telegram/helpers"
	"github.com/m3rciful/goalbot/core/telegram/update"
)

// Metrics installs the per-update tracker read by the handler summary.
func Metrics(next update.HandlerFunc) update.HandlerFunc {
	return func(ctx context.Context, in update.Inbound) error {
		return next(tghelpers.WithTracking(ctx), in)
	}
}
