package locker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the key only when it still holds our token, so an
// expired lock re-acquired by another instance is never released by us.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisClient is the subset of the go-redis client used by Redis.
type RedisClient interface {
	redis.Scripter
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
}

// Redis is a lock shared by every instance pointed at the same Redis server.
// Locks expire after TTL so a crashed holder cannot wedge a session.
type Redis struct {
	client        RedisClient
	prefix        string
	ttl           time.Duration
	retryInterval time.Duration
	logger        *slog.Logger
}

// RedisOption configures a Redis locker.
type RedisOption func(*Redis)

// WithPrefix namespaces lock keys.
func WithPrefix(prefix string) RedisOption {
	return func(r *Redis) {
		r.prefix = prefix
	}
}

// WithTTL sets how long a lock survives without release.
func WithTTL(ttl time.Duration) RedisOption {
	return func(r *Redis) {
		r.ttl = ttl
	}
}

// WithRetryInterval sets the polling delay while waiting for a held lock.
func WithRetryInterval(d time.Duration) RedisOption {
	return func(r *Redis) {
		r.retryInterval = d
	}
}

// WithLogger sets where failed releases are reported.
func WithLogger(logger *slog.Logger) RedisOption {
	return func(r *Redis) {
		r.logger = logger
	}
}

// NewRedis creates a Redis-backed locker.
func NewRedis(client RedisClient, opts ...RedisOption) *Redis {
	r := &Redis{
		client:        client,
		prefix:        "shopfront:lock:",
		ttl:           10 * time.Second,
		retryInterval: 25 * time.Millisecond,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	return r
}

// NewRedisClient builds a go-redis client from a redis:// URL.
func NewRedisClient(url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	return redis.NewClient(opts), nil
}

// Lock polls SET NX until the key is acquired or ctx is done.
func (r *Redis) Lock(ctx context.Context, key string) (func(), error) {
	fullKey := r.prefix + key
	token := uuid.NewString()

	for {
		ok, err := r.client.SetNX(ctx, fullKey, token, r.ttl).Result()
		if err != nil {
			if ctx.Err() != nil {
				return nil, errors.Join(ErrLockTimeout, ctx.Err())
			}
			return nil, fmt.Errorf("locker: failed to acquire %s: %w", fullKey, err)
		}
		if ok {
			break
		}

		select {
		case <-ctx.Done():
			return nil, errors.Join(ErrLockTimeout, ctx.Err())
		case <-time.After(r.retryInterval):
		}
	}

	acquired := time.Now()
	return func() { r.release(fullKey, token, acquired) }, nil
}

// release runs even when the request context is already cancelled. A failed
// release leaves the key held until its TTL runs out.
func (r *Redis) release(key, token string, acquired time.Time) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	deleted, err := releaseScript.Run(ctx, r.client, []string{key}, token).Int64()
	switch {
	case err != nil:
		r.logger.Error("failed to release lock",
			"key", key,
			"held_for", time.Since(acquired),
			"expires_in", r.ttl-time.Since(acquired),
			"error", err,
		)
	case deleted == 0:
		r.logger.Warn("lock expired before release",
			"key", key,
			"held_for", time.Since(acquired),
			"ttl", r.ttl,
		)
	}
}
