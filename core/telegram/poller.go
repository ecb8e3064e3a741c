package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/goalbot/core/logger"
	tghelpers "github.com/m3rciful/goalbot/core/telegram/helpers"
	"github.com/m3rciful/goalbot/core/telegram/netutil"
	"github.com/m3rciful/goalbot/core/telegram/sender"
	"github.com/m3rciful/goalbot/core/telegram/update"
)

// UpdateSource yields batches of updates starting at cursor.
type UpdateSource interface {
	FetchUpdates(ctx context.Context, cursor int) ([]tele.Update, int, error)
}

// PollerOptions configures NewPoller.
type PollerOptions struct {
	// ErrorBackoff is the first delay after a failed fetch; it doubles up to MaxErrorBackoff.
	ErrorBackoff    time.Duration
	MaxErrorBackoff time.Duration
}

// Poller drives the update loop: fetch a batch, acknowledge and handle each
// update in order, repeat until the context is cancelled.
type Poller struct {
	source  UpdateSource
	handler update.HandlerFunc
	opts    PollerOptions
	cursor  atomic.Int64
}

// NewPoller returns a Poller whose cursor starts at 0.
func NewPoller(source UpdateSource, handler update.HandlerFunc, opts PollerOptions) *Poller {
	if opts.ErrorBackoff <= 0 {
		opts.ErrorBackoff = time.Second
	}
	if opts.MaxErrorBackoff < opts.ErrorBackoff {
		opts.MaxErrorBackoff = 30 * time.Second
	}
	return &Poller{source: source, handler: handler, opts: opts}
}

// Cursor returns the offset the next fetch will use.
func (p *Poller) Cursor() int {
	return int(p.cursor.Load())
}

// Run polls until ctx is cancelled. Fetch failures, including replies that
// cannot be decoded, are logged and retried with backoff; handler failures
// and panics are logged per update.
func (p *Poller) Run(ctx context.Context) error {
	if p.source == nil || p.handler == nil {
		return fmt.Errorf("telegram: poller requires a source and a handler")
	}

	failures := 0
	for ctx.Err() == nil {
		cycleCtx := logger.WithTrace(ctx, uuid.NewString())
		start := time.Now()
		cursor := p.Cursor()

		batch, _, err := p.source.FetchUpdates(cycleCtx, cursor)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			// Undecodable replies back off like transport errors.
			failures++
			delay := netutil.Backoff(failures, p.opts.ErrorBackoff, p.opts.MaxErrorBackoff)
			code := sender.ClassifyError(err)
			if errors.Is(err, ErrMalformedResponse) {
				code = "malformed"
			}
			logger.Warn(cycleCtx, "tg", "poll.fail",
				slog.String("status", "fail"),
				slog.Int("cursor", cursor),
				slog.String("err", sender.SanitizeErrorMessage(err)),
				slog.String("err_code", code),
				slog.Int("attempt", failures),
				slog.Duration("backoff", delay),
			)
			if netutil.Sleep(ctx, delay) != nil {
				break
			}
			continue
		}
		failures = 0

		if len(batch) > 0 {
			logger.Debug(cycleCtx, "tg", "poll.batch",
				slog.String("status", "ok"),
				slog.Int("cursor", cursor),
				slog.Int("count", len(batch)),
				slog.Duration("duration", logger.RoundMS(time.Since(start))),
			)
		}

		for _, u := range batch {
			if ctx.Err() != nil {
				break
			}
			// Acknowledge before handling so a failing update is never redelivered.
			p.cursor.Store(int64(u.ID) + 1)

			in, ok := update.FromTele(u)
			if !ok {
				logger.Debug(cycleCtx, "tg", "update.skipped",
					slog.Int("update_id", u.ID),
					slog.String("reason", "no_message"),
				)
				continue
			}
			p.dispatch(tghelpers.BuildContext(cycleCtx, in), in)
		}
	}

	logger.Info(ctx, "tg", "poll.stop", slog.Int("cursor", p.Cursor()))
	return nil
}

func (p *Poller) dispatch(ctx context.Context, in update.Inbound) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error(ctx, "tg", "update.panic",
				slog.String("status", "fail"),
				slog.Any("err", r),
				slog.String("stack", string(debug.Stack())),
			)
		}
	}()
	if err := p.handler(ctx, in); err != nil {
		logger.Warn(ctx, "tg", "update.fail",
			slog.String("status", "fail"),
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
		)
	}
}
