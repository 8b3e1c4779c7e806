package redis

import (
	"context"
	"fmt"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// UploadLimiter bounds submissions per client address per window.
type UploadLimiter interface {
	AllowUpload(ctx context.Context, ip string) (*RateLimitResult, error)
}

// RateLimitResult contains the result of a rate limit check
type RateLimitResult struct {
	Allowed   bool          // Whether the action is allowed
	Remaining int           // Remaining actions in the window
	ResetIn   time.Duration // Time until the window resets
	Limit     int           // The limit for this action
}

// RateLimiter handles rate limiting using Redis with a fixed window
// per client IP. Key pattern: ratelimit:{ip}:upload.
type RateLimiter struct {
	client *goredis.Client
	limit  int
	window time.Duration
}

func NewRateLimiter(client *goredis.Client, limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		client: client,
		limit:  limit,
		window: window,
	}
}

// AllowUpload checks if an IP may submit another upload.
func (r *RateLimiter) AllowUpload(ctx context.Context, ip string) (*RateLimitResult, error) {
	key := fmt.Sprintf("ratelimit:%s:upload", ip)
	return r.checkLimit(ctx, key, r.limit, r.window)
}

// checkLimit runs the increment-and-expire check atomically so
// concurrent requests from one address cannot race past the limit.
func (r *RateLimiter) checkLimit(ctx context.Context, key string, limit int, window time.Duration) (*RateLimitResult, error) {
	script := goredis.NewScript(`
		local key = KEYS[1]
		local limit = tonumber(ARGV[1])
		local window = tonumber(ARGV[2])

		local current = redis.call('GET', key)
		if current == false then
			current = 0
		else
			current = tonumber(current)
		end

		local ttl = redis.call('TTL', key)
		if ttl < 0 then
			ttl = window
		end

		if current < limit then
			redis.call('INCR', key)
			if ttl == window then
				redis.call('EXPIRE', key, window)
			end
			return {1, limit - current - 1, ttl}
		else
			return {0, 0, ttl}
		end
	`)

	result, err := script.Run(ctx, r.client, []string{key}, limit, int(window.Seconds())).Result()
	if err != nil {
		return nil, fmt.Errorf("rate limit check failed: %w", err)
	}

	resultSlice, ok := result.([]interface{})
	if !ok || len(resultSlice) < 3 {
		return nil, fmt.Errorf("unexpected rate limit result format")
	}

	allowed := resultSlice[0].(int64) == 1
	remaining := int(resultSlice[1].(int64))
	resetIn := time.Duration(resultSlice[2].(int64)) * time.Second

	return &RateLimitResult{
		Allowed:   allowed,
		Remaining: remaining,
		ResetIn:   resetIn,
		Limit:     limit,
	}, nil
}

// LocalRateLimiter is the in-process fallback used when Redis is not
// configured. Same fixed-window semantics, scoped to one process.
type LocalRateLimiter struct {
	limit  int
	window time.Duration

	mu        sync.Mutex
	counts    map[string]int
	resetAt   map[string]time.Time
	nextSweep time.Time
}

func NewLocalRateLimiter(limit int, window time.Duration) *LocalRateLimiter {
	return &LocalRateLimiter{
		limit:   limit,
		window:  window,
		counts:  make(map[string]int),
		resetAt: make(map[string]time.Time),
	}
}

func (l *LocalRateLimiter) AllowUpload(_ context.Context, ip string) (*RateLimitResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if now.After(l.nextSweep) {
		l.sweep(now)
		l.nextSweep = now.Add(l.window)
	}

	if reset, ok := l.resetAt[ip]; !ok || now.After(reset) {
		l.counts[ip] = 0
		l.resetAt[ip] = now.Add(l.window)
	}

	if l.counts[ip] >= l.limit {
		return &RateLimitResult{
			Allowed:   false,
			Remaining: 0,
			ResetIn:   time.Until(l.resetAt[ip]),
			Limit:     l.limit,
		}, nil
	}

	l.counts[ip]++
	return &RateLimitResult{
		Allowed:   true,
		Remaining: l.limit - l.counts[ip],
		ResetIn:   time.Until(l.resetAt[ip]),
		Limit:     l.limit,
	}, nil
}

// sweep drops windows that have already expired, so the maps do not
// grow with every distinct client address seen over the process
// lifetime. Runs at most once per window while requests arrive.
func (l *LocalRateLimiter) sweep(now time.Time) {
	for ip, reset := range l.resetAt {
		if now.After(reset) {
			delete(l.counts, ip)
			delete(l.resetAt, ip)
		}
	}
}
