package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisOptions configures the shared Redis backend.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Key      string
}

type redisCommander interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Ping(ctx context.Context) *redis.StatusCmd
}

// RedisBackend stores the queue document under one Redis key.
type RedisBackend struct {
	client redisCommander
	closer func() error
	key    string
	addr   string
}

// OpenRedis connects to Redis and verifies the server answers.
func OpenRedis(ctx context.Context, opts RedisOptions) (*RedisBackend, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	pingCtx, cancel := context.WithTimeout(ensureContext(ctx), 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", opts.Addr, err)
	}
	backend := NewRedisBackend(client, opts.Key)
	backend.closer = client.Close
	backend.addr = opts.Addr
	return backend, nil
}

// NewRedisBackend wraps an existing client. The caller keeps ownership of the
// client's lifecycle.
func NewRedisBackend(client redisCommander, key string) *RedisBackend {
	if key == "" {
		key = RecordKey
	}
	return &RedisBackend{client: client, key: key}
}

func (r *RedisBackend) Load(ctx context.Context) ([]byte, error) {
	data, err := r.client.Get(ensureContext(ctx), r.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", r.key, err)
	}
	return data, nil
}

func (r *RedisBackend) Save(ctx context.Context, data []byte) error {
	if err := r.client.Set(ensureContext(ctx), r.key, data, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", r.key, err)
	}
	return nil
}

func (r *RedisBackend) Close() error {
	if r == nil || r.closer == nil {
		return nil
	}
	return r.closer()
}

func (r *RedisBackend) CheckHealth(ctx context.Context) (Health, error) {
	health := Health{Backend: "redis", Location: r.addr + "/" + r.key}
	pingCtx, cancel := context.WithTimeout(ensureContext(ctx), 2*time.Second)
	defer cancel()
	if err := r.client.Ping(pingCtx).Err(); err != nil {
		health.Detail = err.Error()
		return health, fmt.Errorf("redis ping: %w", err)
	}
	health.Ready = true
	return health, nil
}
