package runlock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"vendorwatch/pkg/platform/sentinel"
)

const defaultKey = "vendorwatch:compliance:run-lock"

// releaseScript deletes the key only if it still holds our token, so a run
// that outlived its TTL cannot free a lock taken by the next run.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Redis is a lock shared by every replica pointing at the same Redis.
type Redis struct {
	client redis.UniversalClient
	key    string
}

type RedisOption func(*Redis)

func WithKey(key string) RedisOption {
	return func(r *Redis) {
		r.key = key
	}
}

func NewRedis(client redis.UniversalClient, opts ...RedisOption) *Redis {
	r := &Redis{client: client, key: defaultKey}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Acquire takes the lock with SET NX PX. The TTL bounds how long a crashed
// holder can block later runs.
func (r *Redis) Acquire(ctx context.Context, ttl time.Duration) (func(context.Context) error, error) {
	token := uuid.NewString()
	ok, err := r.client.SetNX(ctx, r.key, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire redis run lock: %w", err)
	}
	if !ok {
		return nil, sentinel.ErrLocked
	}
	return func(ctx context.Context) error {
		if err := releaseScript.Run(ctx, r.client, []string{r.key}, token).Err(); err != nil {
			return fmt.Errorf("release redis run lock: %w", err)
		}
		return nil
	}, nil
}
