package middleware

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/parley-chat/parley/internal/metrics"
)

// RateLimit defines limits for an endpoint pattern.
type RateLimit struct {
	Requests int
	Window   time.Duration
	KeyFunc  func(r *http.Request) string
}

// RateLimiter implements fixed-window rate limiting on Redis counters.
// A nil client disables limiting entirely (memory-backed development runs).
type RateLimiter struct {
	client       *redis.Client
	limits       map[string]RateLimit
	logger       zerolog.Logger
	whitelist    []*net.IPNet
	whitelistIPs map[string]bool
}

// NewRateLimiter creates a new rate limiter. whitelist entries may be
// single IPs or CIDRs.
func NewRateLimiter(client *redis.Client, logger zerolog.Logger, whitelist []string) *RateLimiter {
	rl := &RateLimiter{
		client:       client,
		logger:       logger,
		whitelistIPs: make(map[string]bool),
		limits: map[string]RateLimit{
			"POST /register":  {10, time.Hour, ipKey},
			"GET /users/":     {100, time.Minute, ipKey},
			"POST /chats":     {10, time.Minute, userKey},
			"POST /chats/":    {30, time.Minute, userKey},
			"GET /chats":      {120, time.Minute, userKey},
			"GET /chats/":     {120, time.Minute, userKey},
			"GET /find":       {30, time.Minute, userKey},
		},
	}

	for _, entry := range whitelist {
		if strings.Contains(entry, "/") {
			_, ipNet, err := net.ParseCIDR(entry)
			if err != nil {
				logger.Warn().Str("entry", entry).Err(err).Msg("invalid CIDR in whitelist")
				continue
			}
			rl.whitelist = append(rl.whitelist, ipNet)
		} else {
			rl.whitelistIPs[entry] = true
		}
	}

	return rl
}

// Middleware enforces the limit matching the request's method and path.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rl.client == nil {
			next.ServeHTTP(w, r)
			return
		}

		limit, pattern, ok := rl.match(r)
		if !ok || rl.isWhitelisted(RealIP(r)) {
			next.ServeHTTP(w, r)
			return
		}

		allowed, err := rl.checkAndIncrement(r.Context(), limit.KeyFunc(r)+":"+pattern, limit.Requests, limit.Window)
		if err != nil {
			// Storage trouble must not take the API down with it.
			rl.logger.Warn().Err(err).Msg("rate limit check failed")
			next.ServeHTTP(w, r)
			return
		}
		if !allowed {
			metrics.RateLimitHits.WithLabelValues(pattern).Inc()
			w.Header().Set("Retry-After", fmt.Sprintf("%d", int(limit.Window.Seconds())))
			jsonError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// match finds the most specific configured limit for the request. Longest
// matching prefix wins so "POST /chats/" beats "POST /chats".
func (rl *RateLimiter) match(r *http.Request) (RateLimit, string, bool) {
	var (
		best    RateLimit
		pattern string
		found   bool
	)
	for key, limit := range rl.limits {
		parts := strings.SplitN(key, " ", 2)
		if parts[0] != r.Method {
			continue
		}
		prefix := parts[1]
		matches := r.URL.Path == prefix ||
			(strings.HasSuffix(prefix, "/") && strings.HasPrefix(r.URL.Path, prefix))
		if matches && (!found || len(prefix) > len(pattern)) {
			best, pattern, found = limit, prefix, true
		}
	}
	return best, pattern, found
}

// checkAndIncrement bumps the fixed-window counter and reports whether the
// request is still inside the limit.
func (rl *RateLimiter) checkAndIncrement(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	windowKey := fmt.Sprintf("ratelimit:%s:%d", key, time.Now().Unix()/int64(window.Seconds()))

	pipe := rl.client.Pipeline()
	countCmd := pipe.Incr(ctx, windowKey)
	pipe.Expire(ctx, windowKey, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}

	return countCmd.Val() <= int64(limit), nil
}

// isWhitelisted checks if an IP is in the whitelist.
func (rl *RateLimiter) isWhitelisted(ipStr string) bool {
	if rl.whitelistIPs[ipStr] {
		return true
	}

	ip := net.ParseIP(ipStr)
	if ip == nil {
		return false
	}
	for _, ipNet := range rl.whitelist {
		if ipNet.Contains(ip) {
			return true
		}
	}
	return false
}

// ipKey returns a rate limit key based on client IP.
func ipKey(r *http.Request) string {
	return "ip:" + RealIP(r)
}

// userKey returns a rate limit key based on the caller's uid, falling back
// to IP for unidentified requests.
func userKey(r *http.Request) string {
	if uid := r.Header.Get("X-Parley-UID"); uid != "" {
		return "uid:" + uid
	}
	return "ip:" + RealIP(r)
}

// RealIP extracts the real client IP from headers or connection.
func RealIP(r *http.Request) string {
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		return strings.TrimSpace(strings.Split(ip, ",")[0])
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
