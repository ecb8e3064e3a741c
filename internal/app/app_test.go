package app

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	coreconfig "github.com/m3rciful/goalbot/core/config"
	coredatabase "github.com/m3rciful/goalbot/core/database"
	coretelegram "github.com/m3rciful/goalbot/core/telegram"
	tghelpers "github.com/m3rciful/goalbot/core/telegram/helpers"
	"github.com/m3rciful/goalbot/core/telegram/update"
	"github.com/m3rciful/goalbot/internal/conversation"
	"github.com/m3rciful/goalbot/internal/linking"
	"github.com/m3rciful/goalbot/internal/storage/storagetest"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

const baseConfig = `
telegram:
  token: "123:abc"
database:
  host: localhost
  name: goalbot
`

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, baseConfig))
	require.NoError(t, err)
	require.Equal(t, "123:abc", cfg.Telegram.Token)
	require.Equal(t, coreconfig.DefaultLongPollTimeoutSeconds, cfg.Telegram.LongPollTimeoutSeconds)
	require.Equal(t, "5432", cfg.Database.Port)
	require.Equal(t, BackendMemory, cfg.Conversation.Backend)
	require.Equal(t, "goalbot:conv:", cfg.Conversation.KeyPrefix)
	require.Equal(t, int64(DefaultConversationTTLSeconds), int64(cfg.Conversation.TTL().Seconds()))
	require.Same(t, &cfg.Config, cfg.CoreConfig())
}

func TestLoadConfigEnvironmentOverrides(t *testing.T) {
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("CONVERSATION_BACKEND", "Redis")
	t.Setenv("REDIS_ADDR", "cache:6379")
	t.Setenv("CONVERSATION_TTL_SECONDS", "0")

	cfg, err := LoadConfig(writeConfig(t, baseConfig))
	require.NoError(t, err)
	require.Equal(t, "db.internal", cfg.Database.Host)
	require.Equal(t, BackendRedis, cfg.Conversation.Backend)
	require.Equal(t, "cache:6379", cfg.Redis.Addr)
	require.Zero(t, cfg.Conversation.TTL())
}

func TestNormalizeRejectsInvalidSections(t *testing.T) {
	valid := func() Config {
		return Config{
			Config:   coreconfig.Config{Telegram: coreconfig.TelegramConfig{Token: "t"}},
			Database: coredatabase.Config{Host: "h", Name: "n"},
		}
	}
	negative := -1

	cases := map[string]func(*Config){
		"unknown backend":    func(c *Config) { c.Conversation.Backend = "etcd" },
		"redis without addr": func(c *Config) { c.Conversation.Backend = BackendRedis },
		"negative ttl":       func(c *Config) { c.Conversation.TTLSeconds = &negative },
		"missing database":   func(c *Config) { c.Database.Host = "" },
		"missing bot token":  func(c *Config) { c.Telegram.Token = "" },
		"negative redis db":  func(c *Config) { c.Redis.DB = -2 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := valid()
			mutate(&cfg)
			require.Error(t, cfg.Normalize())
		})
	}
}

type outbox struct {
	mu   sync.Mutex
	sent []string
}

func (o *outbox) SendMessage(_ context.Context, _ int64, text string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sent = append(o.sent, text)
	return nil
}

func (o *outbox) take() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := o.sent
	o.sent = nil
	return out
}

func newTestApp(t *testing.T, cfg *Config) *App {
	t.Helper()
	a, err := New(context.Background(), cfg, storagetest.Open(t))
	require.NoError(t, err)
	return a
}

func testConfig(t *testing.T) *Config {
	t.Helper()
	cfg := &Config{
		Config:   coreconfig.Config{Telegram: coreconfig.TelegramConfig{Token: "123:abc"}},
		Database: coredatabase.Config{Host: "h", Name: "n"},
	}
	require.NoError(t, cfg.Normalize())
	return cfg
}

func TestHandlerLinksAndCreatesGoal(t *testing.T) {
	for _, backend := range []string{BackendMemory, BackendRedis} {
		t.Run(backend, func(t *testing.T) {
			cfg := testConfig(t)
			if backend == BackendRedis {
				mr := miniredis.RunT(t)
				cfg.Conversation.Backend = BackendRedis
				cfg.Redis.Addr = mr.Addr()
			}
			a := newTestApp(t, cfg)
			t.Cleanup(func() { _ = a.Close() })

			box := &outbox{}
			h := a.Handler(tghelpers.NewMessenger(box, nil))
			ctx := context.Background()
			msg := func(text string) update.Inbound {
				return update.Inbound{ChatID: 900, Username: "ann", Text: text}
			}

			require.NoError(t, h.Handle(ctx, msg("hello")))
			sent := box.take()
			require.Len(t, sent, 2)
			require.Equal(t, "Hello ann", sent[0])
			code := strings.TrimPrefix(sent[1], linking.CodeText(""))

			linker := linking.New(a.identities, tghelpers.NewMessenger(box, nil))
			_, err := linker.CompleteLink(ctx, code, 1)
			require.NoError(t, err)
			require.Equal(t, []string{linking.MsgLinked}, box.take())

			require.NoError(t, h.Handle(ctx, msg("/create")))
			require.Equal(t, []string{conversation.MsgChooseCategory, "#100 Work\n#101 Shopping"}, box.take())
			require.NoError(t, h.Handle(ctx, msg("shopping")))
			require.Equal(t, []string{conversation.MsgEnterGoalName}, box.take())
			require.NoError(t, h.Handle(ctx, msg("Buy milk")))
			require.Equal(t, []string{conversation.MsgGoalCreated}, box.take())

			require.NoError(t, h.Handle(ctx, msg("/goals")))
			require.Equal(t, []string{"#1000 Ship release\n#1001 Buy bread\n#1005 Buy milk"}, box.take())
		})
	}
}

func TestNewFailsWhenRedisUnreachable(t *testing.T) {
	cfg := testConfig(t)
	mr := miniredis.RunT(t)
	cfg.Conversation.Backend = BackendRedis
	cfg.Redis.Addr = mr.Addr()
	mr.Close()

	_, err := New(context.Background(), cfg, storagetest.Open(t))
	require.Error(t, err)
}

func TestTelegramRunOptionsRegistersMenu(t *testing.T) {
	a := newTestApp(t, testConfig(t))
	opts, err := a.TelegramRunOptions()
	require.NoError(t, err)
	require.NotNil(t, opts.BuildHandler)
	require.Len(t, opts.Registry.ListCommands(true), 3)

	h, err := opts.BuildHandler(coretelegram.Runtime{Messenger: tghelpers.NewMessenger(&outbox{}, nil)})
	require.NoError(t, err)
	require.NotNil(t, h)
}

func TestCompleteLinkSendsConfirmation(t *testing.T) {
	var mu sync.Mutex
	var texts []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var payload map[string]any
		_ = json.Unmarshal(body, &payload)
		mu.Lock()
		texts = append(texts, payload["text"].(string))
		mu.Unlock()
		_, _ = io.WriteString(w, `{"ok":true,"result":{"message_id":1,"date":0,"chat":{"id":900,"type":"private"}}}`)
	}))
	defer srv.Close()

	cfg := testConfig(t)
	cfg.Telegram.APIURL = srv.URL
	a := newTestApp(t, cfg)
	ctx := context.Background()

	ident, err := a.identities.GetOrCreate(ctx, 900, "ann")
	require.NoError(t, err)
	require.NoError(t, a.identities.SetVerificationCode(ctx, ident.ID, "feedface"))

	linked, err := a.CompleteLink(ctx, "feedface", 2)
	require.NoError(t, err)
	require.Equal(t, int64(2), *linked.AccountID)
	mu.Lock()
	require.Equal(t, []string{linking.MsgLinked}, texts)
	mu.Unlock()

	_, err = a.CompleteLink(ctx, "feedface", 2)
	require.ErrorIs(t, err, linking.ErrInvalidCode)
}
