package middleware

import (
	"encoding/json"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/hopon/hopon-api/internal/metrics"
)

// ipLimiter is the token bucket of one client IP and when it was last used.
type ipLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// RateLimiter throttles requests per client IP with a token bucket.
//
// There is no background goroutine: entries idle for longer than ttl are
// swept on access, at most once per ttl.
type RateLimiter struct {
	limit rate.Limit
	burst int
	ttl   time.Duration
	rec   metrics.Recorder

	mu        sync.Mutex
	limiters  map[string]*ipLimiter
	lastSweep time.Time
	now       func() time.Time
}

// NewRateLimiter allows perMinute requests per minute per IP, with bursts
// of up to perMinute requests.
func NewRateLimiter(perMinute int, rec metrics.Recorder) *RateLimiter {
	if perMinute < 1 {
		perMinute = 1
	}
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &RateLimiter{
		limit:    rate.Limit(float64(perMinute) / 60.0),
		burst:    perMinute,
		ttl:      10 * time.Minute,
		rec:      rec,
		limiters: make(map[string]*ipLimiter),
		now:      time.Now,
	}
}

// Middleware rejects requests over the limit with 429 and a Retry-After
// header. Place it after chimiddleware.RealIP so RemoteAddr is the client.
// The key is only as trustworthy as the proxy that sets the forwarding
// headers RealIP reads.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		if !rl.limiterFor(ip).Allow() {
			rl.rec.RecordRateLimited()
			slog.Warn("rate limit exceeded",
				slog.String("ip", ip),
				slog.String("path", r.URL.Path),
			)
			writeRateLimitResponse(w, rl.limit)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Len returns the number of tracked IPs.
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.limiters)
}

func (rl *RateLimiter) limiterFor(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if now.Sub(rl.lastSweep) > rl.ttl {
		for key, l := range rl.limiters {
			if now.Sub(l.lastAccess) > rl.ttl {
				delete(rl.limiters, key)
			}
		}
		rl.lastSweep = now
	}

	l, ok := rl.limiters[ip]
	if !ok {
		l = &ipLimiter{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.limiters[ip] = l
	}
	l.lastAccess = now
	return l.limiter
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// writeRateLimitResponse writes a 429 in the API's error shape. Retry-After
// is the time until one token is refilled.
func writeRateLimitResponse(w http.ResponseWriter, limit rate.Limit) {
	retryAfterSec := int(math.Ceil(1.0 / float64(limit)))
	if retryAfterSec < 1 {
		retryAfterSec = 1
	}

	w.Header().Set("Retry-After", strconv.Itoa(retryAfterSec))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error": "Too many requests. Please try again later.",
		"code":  "rate_limited",
	})
}
