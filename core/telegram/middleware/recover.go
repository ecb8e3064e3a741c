package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/m3rciful/goalbot/core/logger"
	"github.com/m3rciful/goalbot/core/telegram/update"
)

// PanicError wraps a value recovered from a handler panic.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// Code implements the handler summary error-code contract.
func (e *PanicError) Code() string { return "PANIC" }

// Recover turns a handler panic into a *PanicError so one bad update never
// stops the update loop.
func Recover(next update.HandlerFunc) update.HandlerFunc {
	return func(ctx context.Context, in update.Inbound) (err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error(ctx, "tg", "tg.panic",
					slog.Any("err", r),
					slog.String("stack", string(debug.Stack())),
				)
				err = &PanicError{Value: r}
			}
		}()
		return next(ctx, in)
	}
}
