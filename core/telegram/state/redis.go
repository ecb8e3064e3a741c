package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultKeyPrefix namespaces conversation records in a shared Redis.
const DefaultKeyPrefix = "goalbot:conv:"

// RedisOptions configures NewRedisStore.
type RedisOptions struct {
	KeyPrefix string
	// TTL expires idle conversations; zero keeps records until cleared.
	TTL time.Duration
}

type redisStore struct {
	rdb    redis.Cmdable
	prefix string
	ttl    time.Duration
}

// NewRedisStore returns a Store that keeps one JSON value per chat.
func NewRedisStore(rdb redis.Cmdable, opts RedisOptions) Store {
	prefix := opts.KeyPrefix
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	ttl := opts.TTL
	if ttl < 0 {
		ttl = 0
	}
	return &redisStore{rdb: rdb, prefix: prefix, ttl: ttl}
}

func (r *redisStore) key(chatID int64) string {
	return r.prefix + strconv.FormatInt(chatID, 10)
}

func (r *redisStore) Get(ctx context.Context, chatID int64) (Session, error) {
	raw, err := r.rdb.Get(ctx, r.key(chatID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Idle(), nil
	}
	if err != nil {
		return Session{}, fmt.Errorf("state: redis get: %w", err)
	}

	var s Session
	if err := json.Unmarshal(raw, &s); err != nil || !s.State.Valid() {
		return Session{}, fmt.Errorf("%w: chat %d", ErrCorruptSession, chatID)
	}
	return s, nil
}

func (r *redisStore) Set(ctx context.Context, chatID int64, s Session) error {
	if s.IsIdle() {
		return r.Clear(ctx, chatID)
	}
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("state: encode session: %w", err)
	}
	if err := r.rdb.Set(ctx, r.key(chatID), raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("state: redis set: %w", err)
	}
	return nil
}

func (r *redisStore) Clear(ctx context.Context, chatID int64) error {
	if err := r.rdb.Del(ctx, r.key(chatID)).Err(); err != nil {
		return fmt.Errorf("state: redis del: %w", err)
	}
	return nil
}
