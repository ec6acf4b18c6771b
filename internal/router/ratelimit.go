package router

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"affiliate-link-resolver/internal/pkg/render"
)

// Sliding window over a sorted set scored by request time in ms.
const slidingWindowLua = `
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
local member = ARGV[4]

redis.call("ZREMRANGEBYSCORE", key, 0, now - window)
redis.call("ZADD", key, now, member)
local count = redis.call("ZCARD", key)
redis.call("PEXPIRE", key, window)

if count <= limit then
  return {1, 0}
end

redis.call("ZREM", key, member)

local oldest = redis.call("ZRANGE", key, 0, 0, "WITHSCORES")
if oldest[2] ~= nil then
  local retryAfter = (tonumber(oldest[2]) + window) - now
  if retryAfter < 0 then retryAfter = 0 end
  return {0, retryAfter}
end
return {0, window}
`

var memberSeq uint64

type RateLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
	logger *zap.SugaredLogger
}

// NewRateLimiter returns nil when client is nil or limit is not positive.
func NewRateLimiter(client *redis.Client, limit int, window time.Duration, logger *zap.SugaredLogger) *RateLimiter {
	if client == nil || limit <= 0 || window <= 0 {
		return nil
	}
	return &RateLimiter{client: client, limit: limit, window: window, logger: logger}
}

// Allow reports whether key may proceed; retryAfter is set only when denied.
func (l *RateLimiter) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	now := time.Now()
	member := strconv.FormatInt(now.UnixNano(), 10) + "-" + strconv.FormatUint(atomic.AddUint64(&memberSeq, 1), 10)

	res, err := l.client.Eval(ctx, slidingWindowLua, []string{key}, now.UnixMilli(), l.window.Milliseconds(), l.limit, member).Result()
	if err != nil {
		return false, 0, err
	}

	arr, ok := res.([]any)
	if !ok || len(arr) < 2 {
		return false, 0, fmt.Errorf("unexpected redis eval result: %T %v", res, res)
	}

	allowed, _ := arr[0].(int64)
	retryMS, _ := arr[1].(int64)
	return allowed == 1, time.Duration(retryMS) * time.Millisecond, nil
}

// Middleware keys on the client IP. It fails open when Redis errors.
func (l *RateLimiter) Middleware(prefix string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if l == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := "rl:" + prefix + ":" + clientIP(r)

			ctx, cancel := context.WithTimeout(r.Context(), 50*time.Millisecond)
			allowed, retryAfter, err := l.Allow(ctx, key)
			cancel()
			if err != nil {
				l.logger.Warnw("rate_limit_check_failed", "key", key, "err", err)
				next.ServeHTTP(w, r)
				return
			}
			if !allowed {
				if retryAfter > 0 {
					secs := int64((retryAfter + time.Second - 1) / time.Second)
					w.Header().Set("Retry-After", strconv.FormatInt(secs, 10))
				}
				render.ChiFail(w, r, http.StatusTooManyRequests, "rate_limited")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientIP relies on middleware.RealIP having rewritten RemoteAddr.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
