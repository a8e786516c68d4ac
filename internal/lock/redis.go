package lock

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/agentstation/legisync/pkg/constants"
	"github.com/agentstation/legisync/pkg/errors"
	"github.com/agentstation/legisync/pkg/logging"
)

// releaseScript deletes the key only while it still carries our token, so
// a lease that outlived its TTL cannot drop another importer's lock.
var releaseScript = redis.NewScript(`
	if redis.call("GET", KEYS[1]) == ARGV[1] then
		return redis.call("DEL", KEYS[1])
	else
		return 0
	end
`)

// Redis is a Locker shared by every importer using the same Redis.
type Redis struct {
	client redis.UniversalClient
	ttl    time.Duration
}

var _ Locker = (*Redis)(nil)

// RedisOption configures a Redis locker.
type RedisOption func(*Redis)

// WithTTL bounds how long a crashed importer can hold a lock.
func WithTTL(ttl time.Duration) RedisOption {
	return func(r *Redis) {
		if ttl > 0 {
			r.ttl = ttl
		}
	}
}

// NewRedis creates a locker backed by client.
func NewRedis(client redis.UniversalClient, opts ...RedisOption) *Redis {
	r := &Redis{client: client, ttl: constants.LockTTL}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// NewRedisFromURL connects to the Redis at url, e.g. redis://localhost:6379/0.
func NewRedisFromURL(url string, opts ...RedisOption) (*Redis, error) {
	options, err := redis.ParseURL(url)
	if err != nil {
		return nil, errors.NewConfigError("redis", "invalid url", err)
	}
	return NewRedis(redis.NewClient(options), opts...), nil
}

// Acquire implements Locker.
func (r *Redis) Acquire(ctx context.Context, key string) (*Lease, error) {
	token := newToken()
	ok, err := r.client.SetNX(ctx, key, token, r.ttl).Result()
	if err != nil {
		return nil, &errors.LockError{Key: key, Err: errors.WrapResource("acquire", "lock", key, err)}
	}
	if !ok {
		return nil, &errors.LockError{Key: key}
	}
	logging.FromContext(ctx).Debug().Str("key", key).Dur("ttl", r.ttl).Msg("Acquired lock")
	return &Lease{key: key, token: token, release: r.release}, nil
}

func (r *Redis) release(ctx context.Context, key, token string) error {
	n, err := releaseScript.Run(ctx, r.client, []string{key}, token).Int64()
	if err != nil {
		return &errors.LockError{Key: key, Err: errors.WrapResource("release", "lock", key, err)}
	}
	if n == 0 {
		logging.FromContext(ctx).Warn().Str("key", key).Msg("Lock expired before release")
		return &errors.LockError{Key: key, Err: errNotHeld}
	}
	return nil
}

// Close closes the Redis client.
func (r *Redis) Close() error {
	return r.client.Close()
}
