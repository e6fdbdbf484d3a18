package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// minWaitStep bounds how often Wait polls when Redis reports no useful retry hint
const minWaitStep = 10 * time.Millisecond

// RateLimiter is a sliding-window limiter shared by every process on the same Redis,
// so a collector and a server never exceed a market data source's quota together
// ⭐ SSOT: 레이트 리밋은 여기서만
type RateLimiter struct {
	client *Client
	prefix string
}

// RateLimitConfig is a request budget per window for one upstream
type RateLimitConfig struct {
	Key    string // upstream identifier, e.g. "yahoo" or a request host
	Limit  int
	Window time.Duration
}

// ForKey returns the same budget under another key
func (c RateLimitConfig) ForKey(key string) RateLimitConfig {
	c.Key = key
	return c
}

// Decision is the outcome of one Allow call
type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration // until the oldest request leaves the window; 0 when allowed
}

// slidingWindowScript trims the window, then either records the request or reports
// when the oldest recorded request expires
var slidingWindowScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window_ms = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
local member = ARGV[4]

redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window_ms)

local count = redis.call('ZCARD', key)
if count < limit then
	redis.call('ZADD', key, now, member)
	redis.call('PEXPIRE', key, window_ms)
	return {1, limit - count - 1, 0}
end

local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
local retry = window_ms
if oldest[2] then
	retry = tonumber(oldest[2]) + window_ms - now
end
return {0, 0, retry}
`)

// NewRateLimiter creates a limiter whose keys live under prefix
func NewRateLimiter(client *Client, prefix string) *RateLimiter {
	return &RateLimiter{
		client: client,
		prefix: prefix,
	}
}

// Key returns the Redis key holding the window for cfg
func (r *RateLimiter) Key(cfg RateLimitConfig) string {
	return fmt.Sprintf("%s:ratelimit:%s", r.prefix, cfg.Key)
}

// Allow records one request if the window has room
// Redis 비활성 시 항상 허용
func (r *RateLimiter) Allow(ctx context.Context, cfg RateLimitConfig) (Decision, error) {
	if !r.client.Enabled() {
		return Decision{Allowed: true, Remaining: cfg.Limit}, nil
	}

	// 같은 ms 요청도 별도 멤버로 집계
	member := uuid.NewString()
	result, err := slidingWindowScript.Run(ctx, r.client.Redis(), []string{r.Key(cfg)},
		time.Now().UnixMilli(),
		cfg.Window.Milliseconds(),
		cfg.Limit,
		member,
	).Int64Slice()
	if err != nil {
		return Decision{}, fmt.Errorf("rate limit %s: %w", cfg.Key, err)
	}
	if len(result) != 3 {
		return Decision{}, fmt.Errorf("rate limit %s: unexpected reply %v", cfg.Key, result)
	}

	return Decision{
		Allowed:    result[0] == 1,
		Remaining:  int(result[1]),
		RetryAfter: time.Duration(result[2]) * time.Millisecond,
	}, nil
}

// Wait blocks until a request is allowed or ctx is done
func (r *RateLimiter) Wait(ctx context.Context, cfg RateLimitConfig) error {
	for {
		d, err := r.Allow(ctx, cfg)
		if err != nil {
			return err
		}
		if d.Allowed {
			return nil
		}

		wait := d.RetryAfter
		if wait < minWaitStep {
			wait = minWaitStep
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Default budgets for the chart sources
var (
	// Yahoo chart API: 초당 5회 (보수적)
	YahooRateLimit = RateLimitConfig{Key: "yahoo", Limit: 5, Window: time.Second}

	// Naver Finance: 초당 10회 (보수적)
	NaverRateLimit = RateLimitConfig{Key: "naver", Limit: 10, Window: time.Second}
)

// HostRateLimit picks the budget for a request host; unknown hosts get perSecond
func HostRateLimit(host string, perSecond float64) RateLimitConfig {
	switch {
	case strings.Contains(host, "yahoo"):
		return YahooRateLimit
	case strings.Contains(host, "naver"):
		return NaverRateLimit
	}
	limit := int(perSecond)
	if limit < 1 {
		limit = 1
	}
	return RateLimitConfig{Key: host, Limit: limit, Window: time.Second}
}
