package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/streamgate/gate-server-go/internal/config"
	"github.com/streamgate/gate-server-go/internal/service"
)

const rateLimitWindow = 60 * time.Second

// RedisRateLimitMiddleware applies a per-user sliding window limit to
// authenticated API routes. Unauthenticated requests pass through; the auth
// middleware already rejected those that matter.
type RedisRateLimitMiddleware struct {
	limiter *service.RateLimiter
	limit   int
}

func NewRedisRateLimitMiddleware(limiter *service.RateLimiter, limit int) *RedisRateLimitMiddleware {
	if limit <= 0 {
		limit = config.DefaultRateLimitPerMin
	}
	return &RedisRateLimitMiddleware{limiter: limiter, limit: limit}
}

func (m *RedisRateLimitMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := GetUser(r.Context())
		if user == nil {
			next.ServeHTTP(w, r)
			return
		}

		allowed, resetAt := m.limiter.CheckLimit(r.Context(), "user:"+user.ID, m.limit, rateLimitWindow)

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(m.limit))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))

		if !allowed {
			log.Warn().Str("userId", user.ID).Msg("rate limit exceeded")
			w.Header().Set("Retry-After", "60")
			writeJSON(w, http.StatusTooManyRequests, map[string]string{
				"error": "Rate limit exceeded",
			})
			return
		}

		next.ServeHTTP(w, r)
	})
}
