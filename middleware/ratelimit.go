// ABOUTME: Rate limiting middleware with fixed-window counters
// ABOUTME: Provides per-route-group rate limits keyed by IP, browser session, or user

package middleware

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/markalston/artfolio-web/models"
	"github.com/markalston/artfolio-web/services"
	"github.com/markalston/artfolio-web/store"
)

// window counts the requests one key made since start.
type window struct {
	hits  int
	reset time.Time
}

// RateLimiter enforces a maximum number of requests per time window.
// Each unique key (IP, user, session) gets an independent window.
type RateLimiter struct {
	mu        sync.Mutex
	windows   map[string]*window
	limit     int
	period    time.Duration
	nextSweep time.Time
}

// NewRateLimiter creates a rate limiter that allows limit requests per period.
func NewRateLimiter(limit int, period time.Duration) *RateLimiter {
	return &RateLimiter{
		windows:   make(map[string]*window),
		limit:     limit,
		period:    period,
		nextSweep: time.Now().Add(period),
	}
}

// Allow reports whether a request for key is permitted. When it is not, the
// duration is the time left until the key's window resets.
func (rl *RateLimiter) Allow(key string) (bool, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	if !now.Before(rl.nextSweep) {
		rl.sweep(now)
	}

	w, ok := rl.windows[key]
	// The reset instant itself opens a new window, so a denial never
	// carries a zero Retry-After.
	if !ok || !now.Before(w.reset) {
		rl.windows[key] = &window{hits: 1, reset: now.Add(rl.period)}
		return true, 0
	}
	if w.hits < rl.limit {
		w.hits++
		return true, 0
	}
	return false, w.reset.Sub(now)
}

// sweep drops every window that has reset, at most once per period, so the
// map holds only keys seen in the last two periods. Caller holds rl.mu.
func (rl *RateLimiter) sweep(now time.Time) {
	for k, w := range rl.windows {
		if !now.Before(w.reset) {
			delete(rl.windows, k)
		}
	}
	rl.nextSweep = now.Add(rl.period)
}

// ClientIP extracts the client IP from X-Forwarded-For (leftmost) or RemoteAddr.
// X-Forwarded-For is trusted, so the server must sit behind a proxy that sets it;
// exposed directly, clients could spoof it to dodge IP limits.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		// Leftmost is the client. Reject values that are not IPs.
		parts := strings.SplitN(xff, ",", 2)
		ip := strings.TrimSpace(parts[0])
		if ip != "" && net.ParseIP(ip) != nil {
			return "ip:" + ip
		}
	}

	// Fall back to RemoteAddr, stripping port
	host := r.RemoteAddr
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	return "ip:" + host
}

// sessionCookies identify one browser across the supported secret stores.
var sessionCookies = []string{
	store.SessionIDCookieName,
	store.SealedCookieName,
	services.RefreshTokenKey,
}

// SessionKey keys on whichever credential cookie the browser carries.
// Falls back to ClientIP if none is present.
func SessionKey(r *http.Request) string {
	for _, name := range sessionCookies {
		cookie, err := r.Cookie(name)
		if err == nil && cookie.Value != "" {
			return "session:" + hashKey(cookie.Value)
		}
	}
	return ClientIP(r)
}

// UserOrIP keys on the username of the resolved session.
// Falls back to ClientIP for anonymous requests.
func UserOrIP(r *http.Request) string {
	if sess := GetSession(r); sess.Authenticated() {
		return "user:" + sess.Username
	}
	return ClientIP(r)
}

// hashKey keeps raw credentials out of the limiter map and its logs.
func hashKey(v string) string {
	sum := sha256.Sum256([]byte(v))
	return hex.EncodeToString(sum[:8])
}

// RateLimit returns middleware that enforces rate limits using the given limiter and key function.
// If limiter is nil, the middleware is a no-op (disabled mode).
// If keyFunc returns an empty string, the request passes through (unidentifiable client).
func RateLimit(limiter *RateLimiter, keyFunc func(*http.Request) string) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			// Disabled mode: nil limiter or nil keyFunc
			if limiter == nil || keyFunc == nil {
				next(w, r)
				return
			}

			key := keyFunc(r)
			if key == "" {
				next(w, r)
				return
			}

			allowed, retryAfter := limiter.Allow(key)
			if allowed {
				next(w, r)
				return
			}

			retrySeconds := int(math.Ceil(retryAfter.Seconds()))
			slog.Warn("Rate limit exceeded", "key", key, "path", r.URL.Path, "retry_after", retrySeconds)

			w.Header().Set("Retry-After", strconv.Itoa(retrySeconds))
			if !wantsJSON(r) {
				http.Error(w, "Too many requests. Please wait a moment and try again.", http.StatusTooManyRequests)
				return
			}
			writeJSON(w, http.StatusTooManyRequests, rateLimited{
				ErrorResponse: models.ErrorResponse{Error: "Rate limit exceeded", Code: http.StatusTooManyRequests},
				RetryAfter:    retrySeconds,
			})
		}
	}
}

// rateLimited is the JSON body of a 429.
type rateLimited struct {
	models.ErrorResponse
	RetryAfter int `json:"retry_after"`
}
