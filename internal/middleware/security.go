package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	headerXContentTypeOptions     = "X-Content-Type-Options"
	headerXFrameOptions           = "X-Frame-Options"
	headerContentSecurityPolicy   = "Content-Security-Policy"
	headerStrictTransportSecurity = "Strict-Transport-Security"
	headerReferrerPolicy          = "Referrer-Policy"
)

// SecurityHeaders sets security-related response headers.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(headerXContentTypeOptions, "nosniff")
		w.Header().Set(headerXFrameOptions, "DENY")
		w.Header().Set(headerContentSecurityPolicy, "default-src 'none'; frame-ancestors 'none'")
		w.Header().Set(headerStrictTransportSecurity, "max-age=31536000; includeSubDomains")
		w.Header().Set(headerReferrerPolicy, "no-referrer")
		next.ServeHTTP(w, r)
	})
}

const (
	limiterCleanupInterval = 5 * time.Minute
	limiterTTL             = 30 * time.Minute
)

type limiterEntry struct {
	limiter *rate.Limiter
	lastUse time.Time
}

// IPRateLimiter keeps one token bucket per client IP.
type IPRateLimiter struct {
	limit    rate.Limit
	burst    int
	message  string
	clientIP func(*http.Request) string
	paths    map[string]bool // nil means every path

	mu      sync.Mutex
	entries map[string]*limiterEntry
}

// NewIPRateLimiter limits every request to limit per second with burst.
func NewIPRateLimiter(limit rate.Limit, burst int, clientIP func(*http.Request) string, message string) *IPRateLimiter {
	return &IPRateLimiter{
		limit:    limit,
		burst:    burst,
		message:  message,
		clientIP: clientIP,
		entries:  make(map[string]*limiterEntry),
	}
}

// ForPaths restricts the limiter to the given request paths.
func (l *IPRateLimiter) ForPaths(paths ...string) *IPRateLimiter {
	l.paths = make(map[string]bool, len(paths))
	for _, p := range paths {
		l.paths[p] = true
	}
	return l
}

func (l *IPRateLimiter) get(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.entries[ip]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.entries[ip] = e
	}
	e.lastUse = time.Now()
	return e.limiter
}

// Cleanup forgets idle IPs until ctx is done.
func (l *IPRateLimiter) Cleanup(ctx context.Context) {
	ticker := time.NewTicker(limiterCleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			l.prune(now)
		}
	}
}

func (l *IPRateLimiter) prune(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for ip, e := range l.entries {
		if now.Sub(e.lastUse) > limiterTTL {
			delete(l.entries, ip)
		}
	}
}

// Handler returns 429 once an IP runs out of tokens.
func (l *IPRateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if l.paths != nil && !l.paths[r.URL.Path] {
			next.ServeHTTP(w, r)
			return
		}
		if !l.get(l.clientIP(r)).Allow() {
			tooManyRequests(w, l.message)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func tooManyRequests(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)
	w.Write([]byte(`{"success":false,"message":"` + message + `"}`))
}

// ProductionSecurity returns middlewares for production: SecurityHeaders →
// per-IP limit (1/s, burst 10) → auth and submit limit (1 per 5s, burst 3).
// The limiters' cleanup goroutines stop with ctx.
func ProductionSecurity(ctx context.Context, clientIP func(*http.Request) string) []func(http.Handler) http.Handler {
	global := NewIPRateLimiter(rate.Limit(1), 10, clientIP, "Too many requests. Please slow down.")
	sensitive := NewIPRateLimiter(rate.Every(5*time.Second), 3, clientIP, "Too many attempts. Please try again later.").
		ForPaths("/login", "/callback", "/submit")

	go global.Cleanup(ctx)
	go sensitive.Cleanup(ctx)

	return []func(http.Handler) http.Handler{
		SecurityHeaders,
		global.Handler,
		sensitive.Handler,
	}
}
