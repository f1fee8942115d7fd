package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// luaSlidingWindow records one hit in a sorted set scored by time and trims
// hits older than the window. A denied hit is removed again so that clients
// hammering a closed window do not keep it closed.
//
// KEYS[1] key; ARGV now_ms, window_ms, limit, member.
// Returns {allowed, hits, retry_ms}.
const luaSlidingWindow = `
local key    = KEYS[1]
local now    = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit  = tonumber(ARGV[3])

redis.call('ZREMRANGEBYSCORE', key, 0, now - window)
redis.call('ZADD', key, 'NX', now, ARGV[4])
redis.call('PEXPIRE', key, window)

local hits = redis.call('ZCARD', key)
if hits <= limit then
  return {1, hits, 0}
end

redis.call('ZREM', key, ARGV[4])

local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
local retry = window
if oldest[2] then
  retry = math.max(window - (now - tonumber(oldest[2])), 0)
end
return {0, hits - 1, retry}
`

// Decision is the outcome of one rate limit check.
type Decision struct {
	Allowed bool
	// Remaining is how many more hits the window accepts.
	Remaining int64
	// RetryAfter is set on denial: the time until the oldest hit expires.
	RetryAfter time.Duration
}

// SlidingWindowLimiter allows at most limit hits per key within a rolling
// window. State lives in Redis so every API instance shares it.
type SlidingWindowLimiter struct {
	rdb    *redis.Client
	prefix string
	limit  int
	window time.Duration
	script *redis.Script
	now    func() time.Time
	member func() string
}

func NewSlidingWindowLimiter(rdb *redis.Client, prefix string, limit int, window time.Duration) *SlidingWindowLimiter {
	return &SlidingWindowLimiter{
		rdb:    rdb,
		prefix: prefix,
		limit:  limit,
		window: window,
		script: redis.NewScript(luaSlidingWindow),
		now:    time.Now,
		member: func() string { return uuid.NewString() },
	}
}

func (l *SlidingWindowLimiter) Limit() int { return l.limit }

func (l *SlidingWindowLimiter) key(subject string) string {
	return l.prefix + ":" + subject
}

// Allow records a hit for subject, e.g. "login:203.0.113.7".
func (l *SlidingWindowLimiter) Allow(ctx context.Context, subject string) (Decision, error) {
	const op = "redis.SlidingWindowLimiter.Allow"

	vals, err := l.script.Run(ctx, l.rdb,
		[]string{l.key(subject)},
		l.now().UnixMilli(), l.window.Milliseconds(), l.limit, l.member(),
	).Int64Slice()
	if err != nil {
		return Decision{}, fmt.Errorf("%s: %w", op, err)
	}
	if len(vals) != 3 {
		return Decision{}, fmt.Errorf("%s: unexpected script reply %v", op, vals)
	}

	return Decision{
		Allowed:    vals[0] == 1,
		Remaining:  max(int64(l.limit)-vals[1], 0),
		RetryAfter: time.Duration(vals[2]) * time.Millisecond,
	}, nil
}
