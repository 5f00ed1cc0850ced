package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// TokenBucket is a per-user, per-action token bucket backed by Redis. State
// lives in a Redis hash so multiple service instances share one bucket.
type TokenBucket struct {
	redis    *redis.Client
	capacity int64
	refill   int64 // tokens added per window
	window   time.Duration
}

// NewTokenBucket creates a bucket with the given capacity that refills
// refillRate tokens per minute.
func NewTokenBucket(redisClient *redis.Client, capacity, refillRate int64) *TokenBucket {
	return &TokenBucket{
		redis:    redisClient,
		capacity: capacity,
		refill:   refillRate,
		window:   time.Minute,
	}
}

// refillScript updates the bucket's token count based on elapsed time and,
// when ARGV[5] is 1, consumes one token. Runs atomically in Redis.
const refillScript = `
	local key = KEYS[1]
	local capacity = tonumber(ARGV[1])
	local refill_rate = tonumber(ARGV[2])
	local window = tonumber(ARGV[3])
	local now = tonumber(ARGV[4])
	local consume = tonumber(ARGV[5])

	local bucket = redis.call('HMGET', key, 'tokens', 'last_refill')
	local tokens = tonumber(bucket[1]) or capacity
	local last_refill = tonumber(bucket[2]) or now

	local time_passed = now - last_refill
	local tokens_to_add = math.floor((time_passed / window) * refill_rate)
	if tokens_to_add > 0 then
		tokens = math.min(capacity, tokens + tokens_to_add)
		last_refill = now
	end

	local allowed = 0
	if consume == 1 and tokens > 0 then
		tokens = tokens - 1
		allowed = 1
	end

	redis.call('HMSET', key, 'tokens', tokens, 'last_refill', last_refill)
	redis.call('EXPIRE', key, window * 2)

	if consume == 1 then
		return allowed
	end
	return tokens
`

func (tb *TokenBucket) run(ctx context.Context, userID, action string, consume int) (int64, error) {
	key := fmt.Sprintf("rate_limit:%s:%s", userID, action)

	result, err := tb.redis.Eval(ctx, refillScript, []string{key},
		tb.capacity, tb.refill, int64(tb.window.Seconds()), time.Now().Unix(), consume).Result()
	if err != nil {
		return 0, fmt.Errorf("rate limit check failed: %w", err)
	}

	value, ok := result.(int64)
	if !ok {
		return 0, fmt.Errorf("unexpected result type from rate limit script")
	}
	return value, nil
}

// Allow consumes one token for the user's action if any remain. Returns
// true when the action may proceed.
func (tb *TokenBucket) Allow(ctx context.Context, userID, action string) (bool, error) {
	allowed, err := tb.run(ctx, userID, action, 1)
	if err != nil {
		return false, err
	}
	return allowed == 1, nil
}

// GetRemaining returns the tokens currently left for the user's action
// without consuming one.
func (tb *TokenBucket) GetRemaining(ctx context.Context, userID, action string) (int64, error) {
	return tb.run(ctx, userID, action, 0)
}
