package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/AnshRaj112/flags-survey-backend/internal/logger"
)

const (
	// RateLimitWindow is 120 seconds
	RateLimitWindow = 120 * time.Second
	// RateLimitMaxRequests is the maximum number of requests allowed in the window
	RateLimitMaxRequests = 60
	// RateLimitKeyPrefix is the Redis key prefix for rate limiting
	RateLimitKeyPrefix = "ratelimit:"
	// BlockedIPKeyPrefix is the Redis key prefix for blocked IPs
	BlockedIPKeyPrefix = "blocked_ip:"
	// BlockedIPDuration is how long an IP stays blocked
	BlockedIPDuration = time.Hour
)

// RedisRateLimit counts requests per IP in a fixed Redis window and blocks IPs
// that exceed it. Redis errors fail open.
func RedisRateLimit(client *redis.Client, clientIP func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			ip := clientIP(r)

			blockedKey := BlockedIPKeyPrefix + ip
			blocked, err := client.Exists(ctx, blockedKey).Result()
			if err == nil && blocked > 0 {
				tooManyRequests(w, "Your IP has been temporarily blocked due to excessive requests. Please try again later.")
				return
			}

			rateLimitKey := RateLimitKeyPrefix + ip
			count, err := client.Incr(ctx, rateLimitKey).Result()
			if err == nil && count == 1 {
				err = client.Expire(ctx, rateLimitKey, RateLimitWindow).Err()
			}
			if err != nil {
				logger.WithError(err).Warn("rate limit: redis unavailable, allowing request")
				next.ServeHTTP(w, r)
				return
			}

			if count > RateLimitMaxRequests {
				if err := client.Set(ctx, blockedKey, "1", BlockedIPDuration).Err(); err != nil {
					logger.WithError(err).Warn("rate limit: block ip")
				}
				logger.WithFields(logger.Fields{"ip": ip, "count": count}).Warn("rate limit exceeded, ip blocked")
				w.Header().Set("Retry-After", strconv.Itoa(int(RateLimitWindow.Seconds())))
				tooManyRequests(w, fmt.Sprintf("Rate limit exceeded. Please try again in %d seconds.", int(RateLimitWindow.Seconds())))
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(RateLimitMaxRequests))
			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(RateLimitMaxRequests-count, 10))
			next.ServeHTTP(w, r)
		})
	}
}
