package middleware

import (
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	loginRatePerMinute = 5
	loginBurst         = 5
	loginEntryTTL      = 10 * time.Minute
	loginCleanupEvery  = 5 * time.Minute
)

type loginLimiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// LoginRateLimiter throttles credential-less login endpoints per client IP
// with an in-process token bucket. It is intentionally local: a node restart
// resetting the buckets is acceptable for login abuse.
type LoginRateLimiter struct {
	mu          sync.Mutex
	entries     map[string]*loginLimiterEntry
	lastCleanup time.Time
}

func NewLoginRateLimiter() *LoginRateLimiter {
	return &LoginRateLimiter{
		entries:     make(map[string]*loginLimiterEntry),
		lastCleanup: time.Now(),
	}
}

func (l *LoginRateLimiter) allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.cleanup()

	entry, ok := l.entries[ip]
	if !ok {
		entry = &loginLimiterEntry{
			limiter: rate.NewLimiter(rate.Every(time.Minute/loginRatePerMinute), loginBurst),
		}
		l.entries[ip] = entry
	}
	entry.lastSeen = time.Now()

	return entry.limiter.Allow()
}

func (l *LoginRateLimiter) cleanup() {
	now := time.Now()
	if now.Sub(l.lastCleanup) < loginCleanupEvery {
		return
	}
	l.lastCleanup = now

	for ip, entry := range l.entries {
		if now.Sub(entry.lastSeen) > loginEntryTTL {
			delete(l.entries, ip)
		}
	}
}

func (l *LoginRateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := r.RemoteAddr
		if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
			ip = forwarded
		}

		if !l.allow(ip) {
			w.Header().Set("Retry-After", "60")
			writeJSON(w, http.StatusTooManyRequests, map[string]string{
				"error": "Too many login attempts. Please try again later.",
			})
			return
		}

		next.ServeHTTP(w, r)
	})
}
