package helpers

import (
	"context"
	"errors"
	"log/slog"

	"github.com/m3rciful/goalbot/core/logger"
	"github.com/m3rciful/goalbot/core/telegram/sender"
)

// TextSender is the transport capability replies go through.
type TextSender interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
}

// Messenger delivers plain-text replies best effort: failures are logged and
// never returned to the caller.
type Messenger struct {
	client TextSender
	disp   *sender.Dispatcher
}

// NewMessenger wires client behind the asynchronous dispatcher. A nil
// dispatcher makes every send synchronous.
func NewMessenger(client TextSender, disp *sender.Dispatcher) *Messenger {
	return &Messenger{client: client, disp: disp}
}

// Send queues text for chatID.
func (m *Messenger) Send(ctx context.Context, chatID int64, text string) {
	if m == nil || m.client == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	CountMessage(ctx)

	run := func(runCtx context.Context) error {
		return m.client.SendMessage(runCtx, chatID, text)
	}

	if m.disp == nil {
		m.sendNow(ctx, chatID, run)
		return
	}
	if err := m.disp.Enqueue(ctx, "send.text", "sendMessage", run); err != nil {
		if errors.Is(err, sender.ErrQueueFull) || errors.Is(err, sender.ErrQueueClosed) {
			logger.Warn(ctx, "tg.sender", "queue.fallback",
				slog.String("action", "send.text"),
				slog.String("endpoint", "sendMessage"),
				slog.String("err", err.Error()),
			)
		}
		m.sendNow(ctx, chatID, run)
	}
}

func (m *Messenger) sendNow(ctx context.Context, chatID int64, run func(context.Context) error) {
	if err := run(context.WithoutCancel(ctx)); err != nil {
		logger.Error(ctx, "tg.sender", "send.fail",
			slog.String("action", "send.text"),
			slog.Int64("chat_id", chatID),
			slog.String("err", sender.SanitizeErrorMessage(err)),
			slog.String("err_code", sender.ClassifyError(err)),
		)
	}
}
