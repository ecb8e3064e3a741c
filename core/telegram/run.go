package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	coreconfig "github.com/m3rciful/goalbot/core/config"
	"github.com/m3rciful/goalbot/core/logger"
	tghelpers "github.com/m3rciful/goalbot/core/telegram/helpers"
	tgsender "github.com/m3rciful/goalbot/core/telegram/sender"
	"github.com/m3rciful/goalbot/core/telegram/update"
)

// defaultEnqueueWait bounds how long a reply waits for queue room.
const defaultEnqueueWait = 2 * time.Second

// RunOptions controls the behaviour of RunTelegram.
type RunOptions struct {
	Config   *coreconfig.Config
	Registry *Registry

	// Client overrides the transport built from Config.
	Client *Client

	DispatcherOptions tgsender.Options
	PollerOptions     PollerOptions

	// BuildHandler receives the runtime so handlers can reply through its Messenger.
	BuildHandler func(rt Runtime) (update.HandlerFunc, error)
	// Middlewares wrap the built handler; nil selects DefaultMiddlewares.
	Middlewares []update.Middleware

	OnStart func(ctx context.Context, rt Runtime) error
	OnStop  func(ctx context.Context, rt Runtime) error
}

// Runtime exposes runtime components to lifecycle hooks.
type Runtime struct {
	Client     *Client
	Dispatcher *tgsender.Dispatcher
	Messenger  *tghelpers.Messenger
	Registry   *Registry
}

// RunTelegram composes the transport, outbound queue and update loop, and
// polls until ctx is done.
func RunTelegram(ctx context.Context, opts RunOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.Config == nil {
		return fmt.Errorf("telegram: nil config provided")
	}
	if opts.BuildHandler == nil {
		return fmt.Errorf("telegram: no handler builder provided")
	}

	cfg := opts.Config
	reg := opts.Registry
	if reg == nil {
		reg = NewRegistry()
	}
	timeout := time.Duration(cfg.Telegram.LongPollTimeoutSeconds) * time.Second

	buildStart := time.Now()
	client := opts.Client
	if client == nil {
		var err error
		client, err = NewClient(ClientOptions{
			Token:           cfg.Telegram.Token,
			APIURL:          cfg.Telegram.APIURL,
			LongPollTimeout: timeout,
		})
		if err != nil {
			return err
		}
	}
	buildTook := time.Since(buildStart)

	dispOpts := opts.DispatcherOptions
	if dispOpts.QueueSize == 0 {
		dispOpts.QueueSize = cfg.Sender.QueueSize
	}
	if dispOpts.MaxDuration == 0 && cfg.Sender.MaxDurationMS > 0 {
		dispOpts.MaxDuration = time.Duration(cfg.Sender.MaxDurationMS) * time.Millisecond
	}
	if dispOpts.EnqueueWait == 0 {
		dispOpts.EnqueueWait = defaultEnqueueWait
	}
	dispatcher := tgsender.NewDispatcher(dispOpts)

	rt := Runtime{
		Client:     client,
		Dispatcher: dispatcher,
		Messenger:  tghelpers.NewMessenger(client, dispatcher),
		Registry:   reg,
	}

	handler, err := opts.BuildHandler(rt)
	if err != nil {
		dispatcher.Close()
		return fmt.Errorf("telegram: build handler: %w", err)
	}
	mws := opts.Middlewares
	if mws == nil {
		mws = DefaultMiddlewares("message")
	}
	poller := NewPoller(client, update.Chain(handler, mws...), opts.PollerOptions)

	logger.TG.Info("polling mode",
		slog.String("event", "mode"),
		slog.String("mode", "polling"),
		slog.Int("timeout_seconds", cfg.Telegram.LongPollTimeoutSeconds),
		slog.Duration("duration", logger.RoundMS(buildTook)),
	)

	if !cfg.Telegram.KeepWebhook {
		if err := client.DeleteWebhook(ctx, false); err != nil {
			logger.TG.Warn("failed to delete webhook",
				slog.String("event", "delete_webhook"),
				slog.String("mode", "polling"),
				slog.String("err", tgsender.SanitizeErrorMessage(err)),
			)
		} else {
			logger.TG.Info("webhook deleted",
				slog.String("event", "delete_webhook"),
				slog.String("mode", "polling"),
			)
		}
	}

	if reg.Len() > 0 {
		InitBotCommands(client, reg)
	}

	if opts.OnStart != nil {
		if err := opts.OnStart(ctx, rt); err != nil {
			dispatcher.Close()
			return err
		}
	}

	runErr := poller.Run(ctx)

	var stopErr error
	if opts.OnStop != nil {
		stopErr = opts.OnStop(context.WithoutCancel(ctx), rt)
	}

	dispatcher.Close()

	if stopErr != nil {
		return stopErr
	}
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	return nil
}
