package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	redis "github.com/redis/go-redis/v9"
)

const tokenBucketScript = `
local rate = tonumber(ARGV[1])
local burst = tonumber(ARGV[2])
local ttl = tonumber(ARGV[3])

local nowData = redis.call("TIME")
local now = (nowData[1] * 1000) + math.floor(nowData[2] / 1000)

local data = redis.call("HMGET", KEYS[1], "tokens", "ts")
local tokens = tonumber(data[1])
local ts = tonumber(data[2])

if tokens == nil then
  tokens = burst
else
  local delta = math.max(0, now - ts)
  tokens = math.min(burst, tokens + (delta / 1000) * rate)
end

local allowed = 0
if tokens >= 1 then
  allowed = 1
  tokens = tokens - 1
end

redis.call("HSET", KEYS[1], "tokens", tokens, "ts", now)
redis.call("PEXPIRE", KEYS[1], ttl)

return {allowed, math.floor(tokens)}
`

// RedisLimiter shares token buckets across instances through Redis.
type RedisLimiter struct {
	client *redis.Client
	script *redis.Script
	prefix string
	rps    float64
	burst  int
}

func NewRedisLimiter(client *redis.Client, prefix string, rps float64, burst int) (*RedisLimiter, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	if rps <= 0 || burst <= 0 {
		return nil, fmt.Errorf("rate limiter needs positive rate and burst, got %v/%d", rps, burst)
	}
	return &RedisLimiter{
		client: client,
		script: redis.NewScript(tokenBucketScript),
		prefix: prefix,
		rps:    rps,
		burst:  burst,
	}, nil
}

func (r *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	if key == "" {
		return false, errors.New("rate limiter key is empty")
	}
	res, err := r.script.Run(ctx, r.client, []string{r.prefix + key}, r.rps, r.burst, bucketTTL(r.rps, r.burst).Milliseconds()).Int64Slice()
	if err != nil {
		return false, err
	}
	if len(res) < 1 {
		return false, errors.New("invalid rate limit script response")
	}
	return res[0] == 1, nil
}

// bucketTTL is how long a bucket takes to refill completely, with a floor.
func bucketTTL(rps float64, burst int) time.Duration {
	ttl := time.Duration(math.Ceil(float64(burst)/rps)) * time.Second * 2
	if ttl < time.Minute {
		ttl = time.Minute
	}
	return ttl
}
