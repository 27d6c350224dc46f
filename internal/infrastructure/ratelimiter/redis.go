package ratelimiter

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Sliding window over a sorted set: members are request timestamps.
var slidingWindowScript = redis.NewScript(`
local key = KEYS[1]
local blockKey = KEYS[2]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
local expiry = tonumber(ARGV[4])
local block = tonumber(ARGV[5])

local blockTtl = redis.call('PTTL', blockKey)
if blockTtl > 0 then
    return {0, 0, blockTtl}
end

-- Remove old entries outside the window
redis.call('ZREMRANGEBYSCORE', key, 0, now - window)

local currentCount = redis.call('ZCARD', key)
if currentCount >= limit then
    redis.call('SET', blockKey, '1', 'PX', block)
    return {0, 0, block}
end

redis.call('ZADD', key, now, now .. '-' .. currentCount)
redis.call('EXPIRE', key, expiry)

return {1, limit - currentCount - 1, 0}
`)

type Redis struct {
	client redis.Scripter
	opts   Options
	now    func() time.Time
}

func NewRedis(client redis.Scripter, opts Options) *Redis {
	return &Redis{
		client: client,
		opts:   opts.withDefaults(),
		now:    time.Now,
	}
}

func (rl *Redis) Allow(ctx context.Context, key string) (Decision, error) {
	windowKey := fmt.Sprintf("ratelimit:%s:%s", rl.opts.Name, key)
	blockKey := fmt.Sprintf("ratelimit:block:%s:%s", rl.opts.Name, key)

	result, err := slidingWindowScript.Run(ctx, rl.client,
		[]string{windowKey, blockKey},
		rl.now().UnixMilli(),
		rl.opts.Window.Milliseconds(),
		rl.opts.Limit,
		int(rl.opts.Window.Seconds())+60, // expiry buffer
		rl.opts.BlockDuration.Milliseconds(),
	).Result()
	if err != nil {
		return Decision{}, fmt.Errorf("rate limit script failed: %w", err)
	}

	return parseScriptResult(result, rl.opts.Limit)
}

func parseScriptResult(result any, limit int) (Decision, error) {
	values, ok := result.([]any)
	if !ok || len(values) != 3 {
		return Decision{}, fmt.Errorf("unexpected rate limit result %v", result)
	}

	nums := make([]int64, 3)
	for i, v := range values {
		n, ok := v.(int64)
		if !ok {
			return Decision{}, fmt.Errorf("unexpected rate limit value %v", v)
		}
		nums[i] = n
	}

	return Decision{
		Allowed:    nums[0] == 1,
		Limit:      limit,
		Remaining:  int(nums[1]),
		RetryAfter: time.Duration(nums[2]) * time.Millisecond,
	}, nil
}
