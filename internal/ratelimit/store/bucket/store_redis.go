package bucket

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"waypoint/internal/ratelimit/models"
)

// incrWindow bumps the counter and arms its expiry on the first hit of a
// window, in one round trip. The PTTL guard repairs a key that somehow lost
// its expiry so it cannot block a client forever.
var incrWindow = redis.NewScript(`
local count = redis.call("INCR", KEYS[1])
if count == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
if ttl < 0 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
  ttl = tonumber(ARGV[1])
end
return {count, ttl}
`)

// RedisStore keeps fixed-window counters in Redis so every replica shares them.
type RedisStore struct {
	client redis.Cmdable
	now    func() time.Time
}

func NewRedis(client redis.Cmdable) *RedisStore {
	return &RedisStore{client: client, now: time.Now}
}

func (s *RedisStore) Increment(ctx context.Context, key string, window time.Duration) (models.Window, error) {
	now := s.now()
	vals, err := incrWindow.Run(ctx, s.client, []string{key}, window.Milliseconds()).Int64Slice()
	if err != nil {
		return models.Window{}, fmt.Errorf("increment rate limit window: %w", err)
	}
	if len(vals) != 2 {
		return models.Window{}, fmt.Errorf("increment rate limit window: unexpected reply %v", vals)
	}
	return models.Window{
		Count:   int(vals[0]),
		ResetAt: now.Add(time.Duration(vals[1]) * time.Millisecond),
	}, nil
}

func (s *RedisStore) Reset(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("reset rate limit window: %w", err)
	}
	return nil
}
