package telegram

import (
	"github.com/m3rciful/goalbot/core/telegram/middleware"
	"github.com/m3rciful/goalbot/core/telegram/update"
)

// DefaultMiddlewares builds the shared chain applied to every inbound
// message: receipt log, per-update tracking, handler summary, panic recovery.
func DefaultMiddlewares(handlerName string) []update.Middleware {
	return []update.Middleware{
		middleware.Logging,
		middleware.Metrics,
		middleware.Summary(handlerName),
		middleware.Recover,
	}
}
