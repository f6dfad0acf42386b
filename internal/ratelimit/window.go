package ratelimit

import (
	"context"
	"errors"
	"time"

	redis "github.com/redis/go-redis/v9"
)

const fixedWindowScript = `
local limit = tonumber(ARGV[1])
local ttl = tonumber(ARGV[2])

local count = redis.call("INCR", KEYS[1])
if count == 1 then
  redis.call("PEXPIRE", KEYS[1], ttl)
end

local remaining = redis.call("PTTL", KEYS[1])
if remaining < 0 then
  redis.call("PEXPIRE", KEYS[1], ttl)
  remaining = ttl
end

return {count, remaining}
`

// FixedWindow counts admissions per key inside a rolling-start fixed window.
// The counter key is created with the window expiry on first increment, so a
// window resets when its key expires.
type FixedWindow struct {
	client *redis.Client
	script *redis.Script
}

// Decision is the admission outcome plus the quota snapshot surfaced to
// rate-limited callers.
type Decision struct {
	Allowed    bool
	Limit      int64
	Remaining  int64
	ResetAfter time.Duration
}

func NewFixedWindow(client *redis.Client) *FixedWindow {
	if client == nil {
		return nil
	}
	return &FixedWindow{
		client: client,
		script: redis.NewScript(fixedWindowScript),
	}
}

func (w *FixedWindow) Allow(ctx context.Context, key string, limit int64, window time.Duration) (*Decision, error) {
	if w == nil || w.client == nil {
		return nil, errors.New("rate limiter not configured")
	}
	if key == "" {
		return nil, errors.New("rate limiter key is empty")
	}
	if limit <= 0 || window <= 0 {
		return nil, errors.New("rate limiter limit and window must be positive")
	}

	res, err := w.script.Run(ctx, w.client, []string{key}, limit, window.Milliseconds()).Int64Slice()
	if err != nil {
		return nil, err
	}
	if len(res) < 2 {
		return nil, errors.New("invalid rate limit script response")
	}

	count, ttlMs := res[0], res[1]
	remaining := limit - count
	if remaining < 0 {
		remaining = 0
	}

	return &Decision{
		Allowed:    count <= limit,
		Limit:      limit,
		Remaining:  remaining,
		ResetAfter: time.Duration(ttlMs) * time.Millisecond,
	}, nil
}
