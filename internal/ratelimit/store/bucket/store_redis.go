package bucket

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"verigate/internal/ratelimit/models"
)

// RedisBucketStore implements the sliding window on a Redis sorted set so
// multiple instances share one view of a principal's request history.
//
// Scores are unix-nano timestamps; one transaction trims expired members,
// counts the remainder, and conditionally appends the new request, which
// keeps the read-filter-append-write sequence atomic across instances.
type RedisBucketStore struct {
	client *redis.Client
}

// NewRedisBucketStore constructs a Redis-backed bucket store.
func NewRedisBucketStore(client *redis.Client) *RedisBucketStore {
	return &RedisBucketStore{client: client}
}

// allowScript trims, counts and conditionally appends in one atomic step.
// KEYS[1] bucket key; ARGV: now-nanos, window-nanos, limit.
// Returns {allowed, count, oldest-score}.
var allowScript = redis.NewScript(`
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
redis.call('ZREMRANGEBYSCORE', KEYS[1], '-inf', now - window)
local count = redis.call('ZCARD', KEYS[1])
local allowed = 0
if count < limit then
  redis.call('ZADD', KEYS[1], now, now .. '-' .. redis.call('INCR', KEYS[1] .. ':seq'))
  count = count + 1
  allowed = 1
end
redis.call('PEXPIRE', KEYS[1], math.ceil(window / 1000000))
redis.call('PEXPIRE', KEYS[1] .. ':seq', math.ceil(window / 1000000))
local oldest = redis.call('ZRANGE', KEYS[1], 0, 0, 'WITHSCORES')
local oldestScore = now
if oldest[2] then oldestScore = tonumber(oldest[2]) end
return {allowed, count, tostring(oldestScore)}
`)

func (s *RedisBucketStore) Allow(ctx context.Context, key string, limit int, window time.Duration) (*models.Result, error) {
	now := time.Now()
	res, err := allowScript.Run(ctx, s.client, []string{key},
		now.UnixNano(), window.Nanoseconds(), limit).Slice()
	if err != nil {
		return nil, fmt.Errorf("redis rate limit check: %w", err)
	}

	allowed, count, oldestScore, err := parseAllowReply(res)
	if err != nil {
		return nil, fmt.Errorf("redis rate limit check: %w", err)
	}
	oldestNanos, err := strconv.ParseFloat(oldestScore, 64)
	if err != nil {
		oldestNanos = float64(now.UnixNano())
	}
	resetAt := time.Unix(0, int64(oldestNanos)).Add(window)

	remaining := limit - count
	if remaining < 0 {
		remaining = 0
	}
	return &models.Result{
		Allowed:   allowed,
		Remaining: remaining,
		Limit:     limit,
		ResetAt:   resetAt,
	}, nil
}

// parseAllowReply validates the script's {allowed, count, oldest-score}
// reply. Lua numbers arrive as int64 and the score as a bulk string; any
// other shape is an error, never a panic, so the service can fail open.
func parseAllowReply(res []any) (allowed bool, count int, oldestScore string, err error) {
	if len(res) != 3 {
		return false, 0, "", fmt.Errorf("unexpected reply length %d", len(res))
	}
	allowedN, ok := res[0].(int64)
	if !ok {
		return false, 0, "", fmt.Errorf("unexpected allowed type %T", res[0])
	}
	countN, ok := res[1].(int64)
	if !ok {
		return false, 0, "", fmt.Errorf("unexpected count type %T", res[1])
	}
	score, ok := res[2].(string)
	if !ok {
		return false, 0, "", fmt.Errorf("unexpected oldest-score type %T", res[2])
	}
	return allowedN == 1, int(countN), score, nil
}

// Reset clears the window for a key.
func (s *RedisBucketStore) Reset(ctx context.Context, key string) error {
	return s.client.Del(ctx, key, key+":seq").Err()
}
