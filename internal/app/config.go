package app

import (
	"fmt"
	"strings"
	"time"

	coreconfig "github.com/m3rciful/goalbot/core/config"
	coredatabase "github.com/m3rciful/goalbot/core/database"
	"github.com/m3rciful/goalbot/core/telegram/state"
)

// Conversation store backends.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// DefaultConversationTTLSeconds expires abandoned dialogs after a day.
const DefaultConversationTTLSeconds = 86400

// ConversationConfig selects where per-chat dialog state lives.
type ConversationConfig struct {
	Backend    string `yaml:"backend" envconfig:"CONVERSATION_BACKEND"`
	TTLSeconds *int   `yaml:"ttl_seconds" envconfig:"CONVERSATION_TTL_SECONDS"`
	KeyPrefix  string `yaml:"key_prefix" envconfig:"CONVERSATION_KEY_PREFIX"`
}

// TTL returns the record expiry; zero disables it.
func (c ConversationConfig) TTL() time.Duration {
	if c.TTLSeconds == nil {
		return DefaultConversationTTLSeconds * time.Second
	}
	return time.Duration(*c.TTLSeconds) * time.Second
}

// RedisConfig holds the Redis connection used by the redis backend.
type RedisConfig struct {
	Addr     string `yaml:"addr" envconfig:"REDIS_ADDR"`
	Password string `yaml:"password" envconfig:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" envconfig:"REDIS_DB"`
}

// Config is the goalbot configuration file.
type Config struct {
	coreconfig.Config `yaml:",inline"`

	Database     coredatabase.Config `yaml:"database"`
	Conversation ConversationConfig  `yaml:"conversation"`
	Redis        RedisConfig         `yaml:"redis"`
}

// CoreConfig exposes the embedded core configuration.
func (c *Config) CoreConfig() *coreconfig.Config {
	return &c.Config
}

// LoadConfig reads path, overlays the environment and validates the result.
func LoadConfig(path string) (*Config, error) {
	var cfg Config
	if err := coreconfig.Decode(path, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize validates every section and applies defaults.
func (c *Config) Normalize() error {
	if err := coreconfig.Normalize(&c.Config); err != nil {
		return err
	}
	if err := c.Database.Normalize(); err != nil {
		return err
	}

	c.Conversation.Backend = strings.ToLower(strings.TrimSpace(c.Conversation.Backend))
	switch c.Conversation.Backend {
	case "":
		c.Conversation.Backend = BackendMemory
	case BackendMemory, BackendRedis:
	default:
		return fmt.Errorf("conversation.backend must be %q or %q, got %q", BackendMemory, BackendRedis, c.Conversation.Backend)
	}
	if c.Conversation.TTLSeconds != nil && *c.Conversation.TTLSeconds < 0 {
		return fmt.Errorf("conversation.ttl_seconds must be >= 0")
	}
	if c.Conversation.KeyPrefix == "" {
		c.Conversation.KeyPrefix = state.DefaultKeyPrefix
	}

	if c.Conversation.Backend == BackendRedis && strings.TrimSpace(c.Redis.Addr) == "" {
		return fmt.Errorf("redis.addr is required for the redis conversation backend")
	}
	if c.Redis.DB < 0 {
		return fmt.Errorf("redis.db must be >= 0")
	}
	return nil
}
