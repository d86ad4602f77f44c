package limiter

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrRateLimitExceeded = errors.New("rate limit exceeded")

// luaScript implements an atomic token bucket. The bucket holds one token
// per allowed request and refills continuously, so the ceiling applies to
// any window-sized span, not to aligned windows. State is kept in
// milli-tokens to stay in integer math inside Lua.
// KEYS[1] = rate limit key
// ARGV[1] = capacity in milli-tokens
// ARGV[2] = window length in milliseconds
// ARGV[3] = current timestamp in milliseconds
// Returns: [allowed (1/0), remaining milli-tokens]
const luaScript = `
local key = KEYS[1]
local capacity = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local now = tonumber(ARGV[3])
local cost = 1000

local state = redis.call("HMGET", key, "tokens", "refilled_at")
local tokens = tonumber(state[1])
local refilled_at = tonumber(state[2])

if not tokens then
	tokens = capacity
	refilled_at = now
end

local delta = math.max(0, now - refilled_at)
local filled = math.min(capacity, tokens + math.floor(delta * capacity / window))

local allowed = 0
if filled >= cost then
	allowed = 1
	filled = filled - cost
end

redis.call("HMSET", key, "tokens", filled, "refilled_at", now)
redis.call("EXPIRE", key, math.ceil(window / 1000))

return {allowed, filled}
`

// TokenBucketLimiter enforces a per-key ceiling over a rolling window,
// backed by Redis so replicas share state. An idle key expires after one
// window.
type TokenBucketLimiter struct {
	client  *redis.Client
	ceiling int
	window  time.Duration
}

func NewTokenBucketLimiter(client *redis.Client, ceiling int, window time.Duration) *TokenBucketLimiter {
	return &TokenBucketLimiter{client: client, ceiling: ceiling, window: window}
}

// Allow reports whether another request under key fits the ceiling, and
// how many whole requests remain right now.
func (l *TokenBucketLimiter) Allow(ctx context.Context, key string) (bool, int, error) {
	capacity := int64(l.ceiling) * 1000
	windowMS := l.window.Milliseconds()
	if windowMS < 1 {
		windowMS = 1
	}

	result, err := l.client.Eval(ctx, luaScript, []string{key}, capacity, windowMS, time.Now().UnixMilli()).Result()
	if err != nil {
		return false, 0, err
	}

	res, ok := result.([]interface{})
	if !ok || len(res) != 2 {
		return false, 0, errors.New("unexpected limiter script result")
	}

	allowed, _ := res[0].(int64)
	remaining, _ := res[1].(int64)

	if allowed != 1 {
		return false, int(remaining / 1000), ErrRateLimitExceeded
	}
	return true, int(remaining / 1000), nil
}

func (l *TokenBucketLimiter) Ceiling() int { return l.ceiling }
