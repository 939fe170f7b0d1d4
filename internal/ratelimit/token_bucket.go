package ratelimit

import (
	"context"
	"errors"
	"math"
	"strconv"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// Tokens come back as a string: Lua numbers are truncated to integers in
// redis replies and the fraction matters for Retry-After.
const tokenBucketScript = `
local rate = tonumber(ARGV[1])
local burst = tonumber(ARGV[2])
local ttl = tonumber(ARGV[3])

local clock = redis.call("TIME")
local now = (clock[1] * 1000) + math.floor(clock[2] / 1000)

local state = redis.call("HMGET", KEYS[1], "tokens", "ts")
local tokens = tonumber(state[1])
local ts = tonumber(state[2])

if tokens == nil then
  tokens = burst
else
  local elapsed = math.max(0, now - ts)
  tokens = math.min(burst, tokens + (elapsed / 1000) * rate)
end

local allowed = 0
if tokens >= 1 then
  allowed = 1
  tokens = tokens - 1
end

redis.call("HSET", KEYS[1], "tokens", tostring(tokens), "ts", now)
redis.call("PEXPIRE", KEYS[1], ttl)

return {allowed, tostring(tokens), now}
`

var (
	ErrLimiterNotConfigured = errors.New("rate limiter not configured")
	errEmptyKey             = errors.New("rate limiter key is empty")
	errInvalidBucket        = errors.New("rate limiter rate and burst must be positive")
	errInvalidReply         = errors.New("invalid rate limit script response")
)

// Bucket refills Rate tokens per second up to Burst.
type Bucket struct {
	Rate  float64
	Burst int
}

func (b Bucket) validate() error {
	if b.Rate <= 0 || b.Burst <= 0 {
		return errInvalidBucket
	}
	return nil
}

// ttl keeps idle keys for twice the time a full refill takes.
func (b Bucket) ttl() time.Duration {
	if b.validate() != nil {
		return time.Second
	}
	seconds := math.Max(1, math.Ceil(float64(b.Burst)/b.Rate*2))
	return time.Duration(seconds) * time.Second
}

// TokenBucket is a redis-backed limiter shared by every replica.
type TokenBucket struct {
	client redis.Scripter
	script *redis.Script
}

type RateLimitResult struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetTime  time.Time
	RetryAfter time.Duration
}

func NewTokenBucket(client redis.Scripter) *TokenBucket {
	if client == nil {
		return nil
	}
	return &TokenBucket{
		client: client,
		script: redis.NewScript(tokenBucketScript),
	}
}

// Allow takes one token from key. A denied result always comes with a nil
// error; errors mean the limiter itself could not answer.
func (t *TokenBucket) Allow(ctx context.Context, key string, bucket Bucket) (*RateLimitResult, error) {
	if t == nil || t.client == nil {
		return &RateLimitResult{}, ErrLimiterNotConfigured
	}
	if key == "" {
		return &RateLimitResult{}, errEmptyKey
	}
	if err := bucket.validate(); err != nil {
		return &RateLimitResult{}, err
	}

	reply, err := t.script.Run(ctx, t.client, []string{key},
		bucket.Rate,
		bucket.Burst,
		bucket.ttl().Milliseconds(),
	).Slice()
	if err != nil {
		return &RateLimitResult{}, err
	}
	return parseReply(reply, bucket)
}

func parseReply(reply []any, bucket Bucket) (*RateLimitResult, error) {
	if len(reply) < 3 {
		return &RateLimitResult{}, errInvalidReply
	}

	allowed := castToInt(reply[0]) == 1
	remaining := castToFloat(reply[1])
	at := time.UnixMilli(castToInt(reply[2]))

	var retryAfter time.Duration
	if !allowed && remaining < 1 {
		retryAfter = time.Duration((1 - remaining) / bucket.Rate * float64(time.Second))
	}

	return &RateLimitResult{
		Allowed:    allowed,
		Limit:      bucket.Burst,
		Remaining:  int(remaining),
		ResetTime:  at.Add(retryAfter),
		RetryAfter: retryAfter,
	}, nil
}

func castToInt(v any) int64 {
	switch val := v.(type) {
	case int64:
		return val
	case int:
		return int64(val)
	case float64:
		return int64(val)
	case string:
		parsed, _ := strconv.ParseInt(val, 10, 64)
		return parsed
	default:
		return 0
	}
}

func castToFloat(v any) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case int64:
		return float64(val)
	case string:
		parsed, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return 0
		}
		return parsed
	default:
		return 0
	}
}
