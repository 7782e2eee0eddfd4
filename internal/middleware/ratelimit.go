package middleware

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/zentra/linkpreview/internal/utils"
	"github.com/zentra/linkpreview/pkg/database"
)

const rateLimitWindow = time.Second

// RateLimitMiddleware caps preview requests per account, or per client IP when the
// request is anonymous. Every preview may cost two outbound fetches.
func RateLimitMiddleware(redisClient *redis.Client, rps int) func(http.Handler) http.Handler {
	limit := strconv.Itoa(rps)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			count, err := database.IncrementRateLimit(ctx, redisClient, rateLimitKey(r), rateLimitWindow)
			if err != nil {
				// Fail open when redis is unavailable.
				zerolog.Ctx(ctx).Warn().Err(err).Msg("Rate limit check failed")
				next.ServeHTTP(w, r)
				return
			}

			remaining := int64(rps) - count
			w.Header().Set("X-RateLimit-Limit", limit)
			if remaining < 0 {
				w.Header().Set("X-RateLimit-Remaining", "0")
				w.Header().Set("Retry-After", strconv.Itoa(int(rateLimitWindow/time.Second)))
				utils.RespondError(w, http.StatusTooManyRequests, "RATE_LIMITED", "Rate limit exceeded")
				return
			}
			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

			next.ServeHTTP(w, r)
		})
	}
}

func rateLimitKey(r *http.Request) string {
	if userID, ok := GetUserID(r.Context()); ok {
		return "preview:user:" + userID.String()
	}
	return "preview:ip:" + clientIP(r)
}

// clientIP reads RemoteAddr, which chi's RealIP middleware has already rewritten from
// the proxy headers.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// TimeoutMiddleware bounds the request context. Handlers observe the deadline through
// their context and write the response themselves.
func TimeoutMiddleware(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
