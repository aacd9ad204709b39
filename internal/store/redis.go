package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisKey is the hash holding the poll state.
const DefaultRedisKey = "homeworkbot:state"

const (
	fieldCursor      = "cursor"
	fieldLastMessage = "last_message"
	fieldLastFailure = "last_failure"
)

// RedisConfig holds Redis connection settings for [RedisState].
type RedisConfig struct {
	// Addr is the server address in "host:port" form.
	Addr string

	// Password is the AUTH password (empty if no auth).
	Password string

	// DB is the database number.
	DB int

	// Key is the hash key. Defaults to [DefaultRedisKey].
	Key string

	// DialTimeout bounds connection establishment. Defaults to 5s.
	DialTimeout time.Duration
}

// RedisState is a [StateStore] persisting state in a Redis hash, so the
// cursor and last delivered message survive restarts.
type RedisState struct {
	client *redis.Client
	key    string
}

// NewRedisState connects to Redis and verifies the connection with PING.
func NewRedisState(ctx context.Context, cfg RedisConfig) (*RedisState, error) {
	if cfg.Addr == "" {
		return nil, errors.New("redis address is required")
	}
	if cfg.Key == "" {
		cfg.Key = DefaultRedisKey
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 5 * time.Second
	}

	client := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: cfg.DialTimeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, cfg.DialTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}

	return &RedisState{client: client, key: cfg.Key}, nil
}

// Load reads the state hash. A missing key reports false without error.
func (r *RedisState) Load(ctx context.Context) (State, bool, error) {
	fields, err := r.client.HGetAll(ctx, r.key).Result()
	if err != nil {
		return State{}, false, fmt.Errorf("failed to load state: %w", err)
	}
	if len(fields) == 0 {
		return State{}, false, nil
	}

	var st State
	if raw, ok := fields[fieldCursor]; ok && raw != "" {
		cursor, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return State{}, false, fmt.Errorf("invalid stored cursor %q: %w", raw, err)
		}
		st.Cursor = cursor
	}
	st.LastMessage = fields[fieldLastMessage]
	st.LastFailure = fields[fieldLastFailure]
	return st, true, nil
}

// Save writes all state fields in a single HSET.
func (r *RedisState) Save(ctx context.Context, st State) error {
	err := r.client.HSet(ctx, r.key,
		fieldCursor, strconv.FormatInt(st.Cursor, 10),
		fieldLastMessage, st.LastMessage,
		fieldLastFailure, st.LastFailure,
	).Err()
	if err != nil {
		return fmt.Errorf("failed to save state: %w", err)
	}
	return nil
}

// Close closes the Redis connection pool.
func (r *RedisState) Close() error {
	return r.client.Close()
}
