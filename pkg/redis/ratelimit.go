package redis

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// maxLocalKeys bounds the in-process limiter map
const maxLocalKeys = 10000

// RateLimiter implements sliding window rate limiting using Redis. When Redis
// is disabled it falls back to an in-process token bucket per key.
// ⭐ SSOT: 레이트 리밋은 여기서만
type RateLimiter struct {
	client *Client
	prefix string

	mu        sync.Mutex
	local     map[string]*localBucket
	maxKeys   int
	lastSweep time.Time
	now       func() time.Time
}

// localBucket is one client's token bucket and when it was last used
type localBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimitConfig defines rate limit parameters
type RateLimitConfig struct {
	Key    string        // Unique identifier (e.g., "api:127.0.0.1")
	Limit  int           // Maximum requests allowed
	Window time.Duration // Time window
}

// WithKey returns a copy of cfg scoped to key
func (cfg RateLimitConfig) WithKey(key string) RateLimitConfig {
	cfg.Key = key
	return cfg
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(client *Client) *RateLimiter {
	return &RateLimiter{
		client:  client,
		prefix:  client.Prefix(),
		local:   make(map[string]*localBucket),
		maxKeys: maxLocalKeys,
		now:     time.Now,
	}
}

// 같은 밀리초 요청도 각각 세도록 member는 호출마다 고유
var slidingWindowScript = redis.NewScript(`
	local key = KEYS[1]
	local now = tonumber(ARGV[1])
	local window_start = tonumber(ARGV[2])
	local limit = tonumber(ARGV[3])
	local window_ms = tonumber(ARGV[4])
	local member = ARGV[5]

	redis.call('ZREMRANGEBYSCORE', key, '-inf', window_start)

	local count = redis.call('ZCARD', key)

	if count < limit then
		redis.call('ZADD', key, now, member)
		redis.call('PEXPIRE', key, window_ms)
		return {1, limit - count - 1}
	else
		return {0, 0}
	end
`)

// Allow checks if a request is allowed under the rate limit
// Returns (allowed, remaining, error)
func (r *RateLimiter) Allow(ctx context.Context, cfg RateLimitConfig) (bool, int, error) {
	if cfg.Limit <= 0 {
		return true, 0, nil
	}
	if cfg.Window <= 0 {
		return false, 0, fmt.Errorf("rate limit window must be positive, got %v", cfg.Window)
	}

	if !r.client.Enabled() {
		allowed, remaining := r.allowLocal(cfg)
		return allowed, remaining, nil
	}

	key := fmt.Sprintf("%s:ratelimit:%s", r.prefix, cfg.Key)
	now := r.now().UnixMilli()
	windowStart := now - cfg.Window.Milliseconds()

	result, err := slidingWindowScript.Run(ctx, r.client.Redis(), []string{key},
		now,
		windowStart,
		cfg.Limit,
		cfg.Window.Milliseconds(),
		fmt.Sprintf("%d-%s", now, uuid.NewString()),
	).Slice()
	if err != nil {
		return false, 0, fmt.Errorf("rate limit script failed: %w", err)
	}

	allowed := result[0].(int64) == 1
	remaining := int(result[1].(int64))

	return allowed, remaining, nil
}

// allowLocal applies an in-process token bucket: burst = Limit, refill = Limit per Window
func (r *RateLimiter) allowLocal(cfg RateLimitConfig) (bool, int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	bucket, ok := r.local[cfg.Key]
	if !ok {
		r.evictLocked(now, cfg.Window)
		perSecond := rate.Limit(float64(cfg.Limit) / cfg.Window.Seconds())
		bucket = &localBucket{limiter: rate.NewLimiter(perSecond, cfg.Limit)}
		r.local[cfg.Key] = bucket
	}
	bucket.lastSeen = now

	allowed := bucket.limiter.AllowN(now, 1)
	remaining := int(bucket.limiter.TokensAt(now))
	if remaining < 0 {
		remaining = 0
	}

	return allowed, remaining
}

// evictLocked drops buckets idle for a full window (they would be refilled
// anyway). Runs at most once per window unless the map is full; a full map
// after the sweep loses its least recently used bucket.
func (r *RateLimiter) evictLocked(now time.Time, window time.Duration) {
	full := len(r.local) >= r.maxKeys
	if !full && now.Sub(r.lastSweep) < window {
		return
	}
	r.lastSweep = now

	for key, b := range r.local {
		if now.Sub(b.lastSeen) >= window {
			delete(r.local, key)
		}
	}

	for len(r.local) > 0 && len(r.local) >= r.maxKeys {
		var (
			oldestKey string
			oldest    time.Time
			found     bool
		)
		for key, b := range r.local {
			if !found || b.lastSeen.Before(oldest) {
				oldestKey, oldest, found = key, b.lastSeen, true
			}
		}
		delete(r.local, oldestKey)
	}
}

// APIRateLimit builds the per-client limit for the HTTP API
func APIRateLimit(limit int, window time.Duration) RateLimitConfig {
	return RateLimitConfig{
		Key:    "api",
		Limit:  limit,
		Window: window,
	}
}
