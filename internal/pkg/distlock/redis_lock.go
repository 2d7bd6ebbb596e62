package distlock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// renewScript extends our key, or retakes it if it expired while we could
// not reach Redis. It returns 0 only when another token holds the key.
var renewScript = redis.NewScript(`
	local cur = redis.call("get", KEYS[1])
	if cur == ARGV[1] then
		return redis.call("pexpire", KEYS[1], ARGV[2])
	end
	if not cur then
		redis.call("set", KEYS[1], ARGV[1], "PX", ARGV[2])
		return 1
	end
	return 0
`)

var releaseScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	end
	return 0
`)

// RedisLease is a SET NX key holding a per-process token. Renew and Release
// only touch the key while it still holds our token.
type RedisLease struct {
	client *redis.Client
	key    string
	token  string
	ttl    time.Duration
}

// NewRedisLease stores the lease under "lease:"+key with a random token.
func NewRedisLease(client *redis.Client, key string, ttl time.Duration) *RedisLease {
	return &RedisLease{
		client: client,
		key:    "lease:" + key,
		token:  uuid.NewString(),
		ttl:    ttl,
	}
}

func (l *RedisLease) Acquire(ctx context.Context) error {
	ok, err := l.client.SetNX(ctx, l.key, l.token, l.ttl).Result()
	if err != nil {
		return fmt.Errorf("distlock: acquire %s: %w", l.key, err)
	}
	if !ok {
		return ErrHeld
	}
	return nil
}

// Renew returns ErrLost only when another instance owns the key. Redis
// errors are returned as they are and leave the lease in place.
func (l *RedisLease) Renew(ctx context.Context) error {
	n, err := renewScript.Run(ctx, l.client, []string{l.key}, l.token, l.ttl.Milliseconds()).Int64()
	if err != nil {
		return fmt.Errorf("distlock: renew %s: %w", l.key, err)
	}
	if n == 0 {
		return ErrLost
	}
	return nil
}

func (l *RedisLease) Release(ctx context.Context) error {
	return releaseScript.Run(ctx, l.client, []string{l.key}, l.token).Err()
}
