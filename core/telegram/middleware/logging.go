package middleware

import (
	"context"
	"log/slog"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/m3rciful/goalbot/core/logger"
	tghelpers "github.com/m3rciful/goalbot/core/telegram/helpers"
	"github.com/m3rciful/goalbot/core/telegram/update"
)

// recentUpdates keeps a short-lived set of processed update IDs to avoid double logging.
var (
	recentMu     sync.Mutex
	recentUpdate = make(map[int]time.Time)
	keepFor      = 10 * time.Second
)

func alreadyLogged(updateID int) bool {
	now := time.Now()
	recentMu.Lock()
	defer recentMu.Unlock()
	for id, ts := range recentUpdate {
		if now.Sub(ts) > keepFor {
			delete(recentUpdate, id)
		}
	}
	if _, ok := recentUpdate[updateID]; ok {
		return true
	}
	recentUpdate[updateID] = now
	return false
}

// Logging emits one sampled receipt line per update.
func Logging(next update.HandlerFunc) update.HandlerFunc {
	return func(ctx context.Context, in update.Inbound) error {
		ctx = tghelpers.BuildContext(ctx, in)

		if logger.ShouldSampleDebug() && !alreadyLogged(in.UpdateID) {
			attrs := []slog.Attr{
				slog.String("status", "ok"),
				slog.Int("update_id", in.UpdateID),
				slog.Int64("chat_id", in.ChatID),
			}
			if in.ChatType != "" {
				attrs = append(attrs, slog.String("chat_type", in.ChatType))
			}
			if in.SenderID != 0 {
				attrs = append(attrs, slog.Int64("user_id", in.SenderID))
			}
			if in.Username != "" {
				attrs = append(attrs, slog.String("username", logger.SanitizeLimit(in.Username, 64)))
			}
			if in.Text != "" {
				attrs = append(attrs, slog.String("payload", logger.SanitizeLimit(in.Text, 256)))
			}
			logger.LogEvent(ctx, logger.Component("tg"), slog.LevelDebug, "update.received", attrs...)
		}

		return next(ctx, in)
	}
}

// Summary logs one handler.handled line per update with its outcome,
// reply count and duration.
func Summary(handlerName string) update.Middleware {
	name := normalizeHandlerName(handlerName)
	return func(next update.HandlerFunc) update.HandlerFunc {
		return func(ctx context.Context, in update.Inbound) error {
			ctx = tghelpers.WithHandler(ctx, name)
			start := time.Now()
			err := next(ctx, in)
			logHandlerSummary(ctx, name, start, err)
			return err
		}
	}
}

func logHandlerSummary(ctx context.Context, handlerName string, start time.Time, err error) {
	msgs, outcome := tghelpers.Tracked(ctx)

	status := logger.Status(err)
	if outcome == "" {
		outcome = status
	}

	attrs := []slog.Attr{
		slog.String("status", status),
		slog.String("handler", handlerName),
		slog.String("outcome", outcome),
		slog.Int("messages", msgs),
		slog.Duration("duration", logger.RoundMS(time.Since(start))),
	}
	if err != nil {
		attrs = append(attrs,
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
			slog.String("err_code", deriveErrorCode(err)),
			slog.String("cause", handlerName),
		)
	}
	logger.LogEvent(ctx, logger.Component("tg"), slog.LevelInfo, "handler.handled", attrs...)
}

func normalizeHandlerName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "unknown"
	}
	name = strings.TrimPrefix(name, "/")
	name = strings.ReplaceAll(name, " ", "_")
	return strings.ToLower(name)
}

func deriveErrorCode(err error) string {
	if err == nil {
		return ""
	}
	type coder interface{ Code() string }
	if c, ok := err.(coder); ok {
		code := strings.TrimSpace(c.Code())
		if code != "" {
			return strings.ToUpper(strings.ReplaceAll(code, " ", "_"))
		}
	}
	t := reflect.TypeOf(err)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t != nil && t.Name() != "" {
		return strings.ToUpper(strings.ReplaceAll(t.Name(), " ", "_"))
	}
	return "UNKNOWN_ERROR"
}
