package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimiter is a fixed-window request counter kept in Redis, keyed by
// scope and client IP. It guards the public credential routes.
//
// FIXED WINDOW:
// INCR creates the key at 1 on the first request, and EXPIRE gives it the
// window's lifetime. Every later request in the window only increments.
// When the key expires the count starts over. Bursts at a window edge can
// reach twice the limit, which is acceptable for login throttling.
//
// When Redis is unreachable the request is let through: losing the limiter
// must not lock everyone out of login.
type RateLimiter struct {
	client redis.Cmdable
	limit  int64
	window time.Duration
	logger *slog.Logger
}

func NewRateLimiter(client redis.Cmdable, limit int, window time.Duration, logger *slog.Logger) *RateLimiter {
	return &RateLimiter{client: client, limit: int64(limit), window: window, logger: logger}
}

// Limit returns middleware counting requests under scope. A nil limiter
// or a non-positive limit disables it.
func (rl *RateLimiter) Limit(scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if rl == nil || rl.client == nil || rl.limit <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := fmt.Sprintf("rate_limit:%s:%s", scope, clientIP(r))

			count, err := rl.client.Incr(r.Context(), key).Result()
			if err != nil {
				rl.logger.Warn("rate limiter unavailable", slog.String("error", err.Error()))
				next.ServeHTTP(w, r)
				return
			}
			// The first hit opens the window.
			if count == 1 {
				rl.arm(r.Context(), key)
			}

			if count > rl.limit {
				ttl, err := rl.client.TTL(r.Context(), key).Result()
				if err != nil {
					ttl = rl.window
				} else if ttl < 0 {
					// The first hit's EXPIRE was lost; the key has no TTL.
					rl.arm(r.Context(), key)
					ttl = rl.window
				}
				retry := int(math.Ceil(ttl.Seconds()))

				w.Header().Set("Retry-After", strconv.Itoa(retry))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_ = json.NewEncoder(w).Encode(map[string]string{
					"error":   "rate_limited",
					"message": fmt.Sprintf("too many requests, retry in %d seconds", retry),
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// arm starts the window on key.
func (rl *RateLimiter) arm(ctx context.Context, key string) {
	if err := rl.client.Expire(ctx, key, rl.window).Err(); err != nil {
		rl.logger.Warn("rate limiter could not set window",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}
}

// clientIP strips the port from RemoteAddr. chi's RealIP middleware has
// already replaced it with the forwarded address when one was sent.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
