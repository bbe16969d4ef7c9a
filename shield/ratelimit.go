package shield

import (
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// gcThreshold is the bucket count above which expired buckets are swept.
const gcThreshold = 1024

type bucket struct {
	count   int
	resetAt time.Time
}

// RateLimiter is a fixed-window, per-client request limiter. A capture
// holds the browser for seconds to minutes, so the API limits how often
// one client may start one.
type RateLimiter struct {
	max     int
	window  time.Duration
	mu      sync.Mutex
	buckets map[string]*bucket
	now     func() time.Time
	logger  *slog.Logger
}

// NewRateLimiter allows limit requests per client per window. A non-positive
// limit disables limiting.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	if window <= 0 {
		window = time.Minute
	}
	return &RateLimiter{
		max:     limit,
		window:  window,
		buckets: make(map[string]*bucket),
		now:     time.Now,
		logger:  slog.Default(),
	}
}

// SetLogger replaces the logger used for blocked requests.
func (rl *RateLimiter) SetLogger(l *slog.Logger) {
	if l != nil {
		rl.logger = l
	}
}

// Allow records one request from client and reports whether it is within
// the limit.
func (rl *RateLimiter) Allow(client string) bool {
	if rl.max <= 0 {
		return true
	}
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	if len(rl.buckets) > gcThreshold {
		for k, b := range rl.buckets {
			if now.After(b.resetAt) {
				delete(rl.buckets, k)
			}
		}
	}

	b, ok := rl.buckets[client]
	if !ok || now.After(b.resetAt) {
		rl.buckets[client] = &bucket{count: 1, resetAt: now.Add(rl.window)}
		return true
	}
	b.count++
	return b.count <= rl.max
}

// Middleware answers 429 with a JSON error once a client exceeds the limit.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := ExtractIP(r)
		if rl.Allow(ip) {
			next.ServeHTTP(w, r)
			return
		}

		rl.logger.Warn("ratelimit: request blocked", "ip", ip, "method", r.Method, "path", r.URL.Path)
		w.Header().Set("Retry-After", strconv.Itoa(int(rl.window.Seconds())))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]string{"error": "rate limit exceeded"})
	})
}

// ExtractIP returns the client IP from X-Forwarded-For or RemoteAddr.
func ExtractIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
