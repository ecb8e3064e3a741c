package helpers

import (
	"context"

	"github.com/m3rciful/goalbot/core/logger"
	"github.com/m3rciful/goalbot/core/telegram/update"
)

// BuildContext derives a per-message context from parent, enriching it with
// RID and update/user/chat metadata for consistent service logging.
// The component logger is set to "tg" unless parent already carries one.
func BuildContext(parent context.Context, in update.Inbound) context.Context {
	if parent == nil {
		parent = context.Background()
	}
	rid := logger.RIDFrom(parent)
	if rid == "" || logger.UpdateIDFrom(parent) != in.UpdateID {
		rid = logger.BuildRID(in.UpdateID, in.ChatID, in.SenderID)
	}
	ctx := logger.WithRID(parent, rid)
	ctx = logger.WithUpdateMeta(ctx, in.UpdateID, in.SenderID, in.ChatID)
	if logger.FromContext(parent) == logger.L {
		ctx = logger.WithLogger(ctx, logger.Component("tg"))
	}
	return ctx
}

// WithHandler enriches ctx with handler metadata for downstream logs.
func WithHandler(ctx context.Context, handler string) context.Context {
	return logger.WithHandler(ctx, handler)
}
