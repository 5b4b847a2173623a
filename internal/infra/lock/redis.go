package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/xid"

	"labelprint/internal/domain"
	"labelprint/internal/infra/logging"
)

// releaseScript deletes the key only while it still holds our token, so a
// lock that expired and was taken by another process is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Redis is a lock shared by every process using the same key, including
// prefork children.
type Redis struct {
	client *redis.Client
	key    string
	ttl    time.Duration
	poll   time.Duration
}

// NewRedis returns a lock on key. ttl bounds how long a crashed holder can
// block others; poll is the retry interval while waiting.
func NewRedis(client *redis.Client, key string, ttl, poll time.Duration) *Redis {
	return &Redis{client: client, key: key, ttl: ttl, poll: poll}
}

// Lock polls SET NX until the lock is taken or ctx ends.
func (r *Redis) Lock(ctx context.Context) (func(), error) {
	token := xid.New().String()

	ticker := time.NewTicker(r.poll)
	defer ticker.Stop()

	for {
		ok, err := r.client.SetNX(ctx, r.key, token, r.ttl).Result()
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("%w: %v", domain.ErrJobBusy, ctx.Err())
			}
			return nil, fmt.Errorf("acquire job lock: %w", err)
		}
		if ok {
			return r.releaser(token), nil
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", domain.ErrJobBusy, ctx.Err())
		}
	}
}

func (r *Redis) releaser(token string) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := releaseScript.Run(ctx, r.client, []string{r.key}, token).Err(); err != nil {
				logging.Warn("Failed to release job lock", "key", r.key, "error", err)
			}
		})
	}
}
