// Package ratelimit counts requests per key in fixed windows, in Redis when
// one is configured and in process memory otherwise.
package ratelimit

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// Atomic increment with TTL on first hit.
// KEYS[1] = counter key, ARGV[1] = TTL seconds. Returns {count, ttl}.
const incrScript = `
local count = redis.call('INCR', KEYS[1])
if count == 1 then
    redis.call('EXPIRE', KEYS[1], ARGV[1])
end
local ttl = redis.call('TTL', KEYS[1])
return {count, ttl}
`

const sweepThreshold = 4096

type Config struct {
	Limit  int
	Window time.Duration
	Prefix string
	// Redis is optional. When set, a Redis failure falls back to memory
	// unless FailClosed is true.
	Redis      *goredis.Client
	FailClosed bool
}

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

type entry struct {
	count   int
	resetAt time.Time
}

type Limiter struct {
	cfg    Config
	script *goredis.Script
	now    func() time.Time

	mu      sync.Mutex
	entries map[string]*entry
}

func New(cfg Config) *Limiter {
	if cfg.Prefix == "" {
		cfg.Prefix = "rl:"
	}
	return &Limiter{
		cfg:     cfg,
		script:  goredis.NewScript(incrScript),
		now:     time.Now,
		entries: make(map[string]*entry),
	}
}

// Allow counts one request for key.
func (l *Limiter) Allow(ctx context.Context, key string) (Decision, error) {
	fullKey := l.cfg.Prefix + key

	var (
		count   int
		resetAt time.Time
	)
	if l.cfg.Redis != nil {
		var err error
		count, resetAt, err = l.allowRedis(ctx, fullKey)
		if err != nil {
			if l.cfg.FailClosed {
				return Decision{Limit: l.cfg.Limit}, err
			}
			count, resetAt = l.allowMemory(fullKey)
		}
	} else {
		count, resetAt = l.allowMemory(fullKey)
	}

	remaining := l.cfg.Limit - count
	if remaining < 0 {
		remaining = 0
	}
	return Decision{
		Allowed:   count <= l.cfg.Limit,
		Limit:     l.cfg.Limit,
		Remaining: remaining,
		ResetAt:   resetAt,
	}, nil
}

func (l *Limiter) allowRedis(ctx context.Context, key string) (int, time.Time, error) {
	ttlSeconds := int(l.cfg.Window.Seconds())
	if ttlSeconds < 1 {
		ttlSeconds = 1
	}
	res, err := l.script.Run(ctx, l.cfg.Redis, []string{key}, ttlSeconds).Result()
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("ratelimit: redis eval: %w", err)
	}
	arr, ok := res.([]interface{})
	if !ok || len(arr) < 2 {
		return 0, time.Time{}, fmt.Errorf("ratelimit: unexpected redis result %T", res)
	}
	count, _ := arr[0].(int64)
	ttl, _ := arr[1].(int64)
	return int(count), l.now().Add(time.Duration(ttl) * time.Second), nil
}

func (l *Limiter) allowMemory(key string) (int, time.Time) {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.entries) > sweepThreshold {
		for k, e := range l.entries {
			if now.After(e.resetAt) {
				delete(l.entries, k)
			}
		}
	}

	e, ok := l.entries[key]
	if !ok || now.After(e.resetAt) {
		e = &entry{resetAt: now.Add(l.cfg.Window)}
		l.entries[key] = e
	}
	e.count++
	return e.count, e.resetAt
}

// NewRedisClient builds a client from a redis:// or rediss:// URL. A
// separate password overrides one embedded in the URL.
func NewRedisClient(rawURL, password string) (*goredis.Client, error) {
	if rawURL == "" {
		return nil, fmt.Errorf("ratelimit: redis url is empty")
	}
	if _, err := url.Parse(rawURL); err != nil {
		return nil, fmt.Errorf("ratelimit: invalid redis url: %w", err)
	}
	opts, err := goredis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("ratelimit: invalid redis url: %w", err)
	}
	if password != "" {
		opts.Password = password
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second
	opts.PoolSize = 10
	opts.MinIdleConns = 2
	return goredis.NewClient(opts), nil
}
