package keylock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	defaultRedisPrefix = "ironlock:verify:"
	defaultLockTTL     = 10 * time.Second
	defaultRetryDelay  = 25 * time.Millisecond
	releaseTimeout     = 2 * time.Second
)

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type RedisConfig struct {
	Prefix string
	// TTL bounds how long a crashed holder can block a key.
	TTL   time.Duration
	Wait  time.Duration
	Retry time.Duration
}

func (c RedisConfig) withDefaults() RedisConfig {
	if c.Prefix == "" {
		c.Prefix = defaultRedisPrefix
	}
	if c.TTL <= 0 {
		c.TTL = defaultLockTTL
	}
	if c.Retry <= 0 {
		c.Retry = defaultRetryDelay
	}
	return c
}

// RedisLocker implements the single-instance redis lock pattern: SET NX PX
// with a random token, released by compare-and-delete.
type RedisLocker struct {
	client redis.UniversalClient
	cfg    RedisConfig
}

var _ Locker = (*RedisLocker)(nil)

func NewRedisLocker(client redis.UniversalClient, cfg RedisConfig) *RedisLocker {
	return &RedisLocker{client: client, cfg: cfg.withDefaults()}
}

func NewRedisClient(url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("keylock: parse redis url: %w", err)
	}
	return redis.NewClient(opts), nil
}

func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	if l.cfg.Wait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.cfg.Wait)
		defer cancel()
	}

	name := l.cfg.Prefix + key
	token := uuid.NewString()

	for {
		ok, err := l.client.SetNX(ctx, name, token, l.cfg.TTL).Result()
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("%w: %w", ErrLockTimeout, ctx.Err())
			}
			return nil, fmt.Errorf("keylock: acquire: %w", err)
		}
		if ok {
			break
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %w", ErrLockTimeout, ctx.Err())
		case <-time.After(l.cfg.Retry):
		}
	}

	return func() {
		// the caller's context may already be cancelled
		releaseCtx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
		defer cancel()
		if err := releaseScript.Run(releaseCtx, l.client, []string{name}, token).Err(); err != nil {
			log.Warn().Err(err).Str("lock", name).Msg("failed to release verification lock")
		}
	}, nil
}
