// Package app wires goalbot's stores and services into the Telegram runtime.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/m3rciful/goalbot/core/logger"
	coretelegram "github.com/m3rciful/goalbot/core/telegram"
	tghelpers "github.com/m3rciful/goalbot/core/telegram/helpers"
	"github.com/m3rciful/goalbot/core/telegram/state"
	"github.com/m3rciful/goalbot/core/telegram/update"
	"github.com/m3rciful/goalbot/internal/bot"
	"github.com/m3rciful/goalbot/internal/conversation"
	"github.com/m3rciful/goalbot/internal/domain"
	"github.com/m3rciful/goalbot/internal/linking"
	"github.com/m3rciful/goalbot/internal/storage"
)

// App owns goalbot's long-lived dependencies.
type App struct {
	cfg        *Config
	db         *sqlx.DB
	rdb        *redis.Client
	sessions   state.Store
	goals      *storage.GoalRepository
	identities *storage.IdentityRepository
}

// New builds the repositories and the conversation store selected by cfg.
func New(ctx context.Context, cfg *Config, db *sqlx.DB) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("app: nil config")
	}
	goals, err := storage.NewGoalRepository(db)
	if err != nil {
		return nil, err
	}
	identities, err := storage.NewIdentityRepository(db)
	if err != nil {
		return nil, err
	}

	a := &App{cfg: cfg, db: db, goals: goals, identities: identities}
	if err := a.openSessions(ctx); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *App) openSessions(ctx context.Context) error {
	if a.cfg.Conversation.Backend != BackendRedis {
		a.sessions = state.NewMemoryStore()
		logger.Info(ctx, "app", "conversation.store", slog.String("backend", BackendMemory))
		return nil
	}

	a.rdb = redis.NewClient(&redis.Options{
		Addr:     a.cfg.Redis.Addr,
		Password: a.cfg.Redis.Password,
		DB:       a.cfg.Redis.DB,
	})
	if err := a.rdb.Ping(ctx).Err(); err != nil {
		_ = a.rdb.Close()
		a.rdb = nil
		return fmt.Errorf("app: redis ping: %w", err)
	}
	a.sessions = state.NewRedisStore(a.rdb, state.RedisOptions{
		KeyPrefix: a.cfg.Conversation.KeyPrefix,
		TTL:       a.cfg.Conversation.TTL(),
	})
	logger.Info(ctx, "app", "conversation.store",
		slog.String("backend", BackendRedis),
		slog.String("addr", a.cfg.Redis.Addr),
		slog.Duration("ttl", a.cfg.Conversation.TTL()),
	)
	return nil
}

// Sessions returns the conversation store.
func (a *App) Sessions() state.Store {
	return a.sessions
}

// TelegramRunOptions builds the runtime options for coretelegram.RunTelegram.
func (a *App) TelegramRunOptions() (coretelegram.RunOptions, error) {
	reg := coretelegram.NewRegistry()
	for name, cmd := range bot.Commands() {
		if err := reg.RegisterCommand(name, cmd); err != nil {
			return coretelegram.RunOptions{}, err
		}
	}

	return coretelegram.RunOptions{
		Config:   a.cfg.CoreConfig(),
		Registry: reg,
		BuildHandler: func(rt coretelegram.Runtime) (update.HandlerFunc, error) {
			return a.Handler(rt.Messenger).Handle, nil
		},
	}, nil
}

// Handler assembles the update handler on top of notify.
func (a *App) Handler(notify *tghelpers.Messenger) *bot.Bot {
	linker := linking.New(a.identities, notify)
	machine := conversation.NewMachine(a.sessions, a.goals, notify)
	return bot.New(linker, machine)
}

// CompleteLink redeems a verification code outside the update loop and
// confirms it to the chat with a direct send.
func (a *App) CompleteLink(ctx context.Context, code string, accountID int64) (domain.ChatIdentity, error) {
	core := a.cfg.CoreConfig()
	client, err := coretelegram.NewClient(coretelegram.ClientOptions{
		Token:  core.Telegram.Token,
		APIURL: core.Telegram.APIURL,
	})
	if err != nil {
		return domain.ChatIdentity{}, err
	}
	linker := linking.New(a.identities, tghelpers.NewMessenger(client, nil))
	return linker.CompleteLink(ctx, code, accountID)
}

// Close releases the Redis client and the database handle.
func (a *App) Close() error {
	var errs []error
	if a.rdb != nil {
		errs = append(errs, a.rdb.Close())
	}
	if a.db != nil {
		errs = append(errs, a.db.Close())
	}
	return errors.Join(errs...)
}
