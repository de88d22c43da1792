package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/AnshRaj112/flags-survey-backend/internal/logger"
	"github.com/AnshRaj112/flags-survey-backend/pkg/clientip"
)

func init() {
	logger.SetOutput(io.Discard)
}

var ok = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func request(h http.Handler, method, path, ip string) *httptest.ResponseRecorder {
	r := httptest.NewRequest(method, path, nil)
	r.RemoteAddr = ip + ":1234"
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func TestSecurityHeaders(t *testing.T) {
	w := request(SecurityHeaders(ok), "GET", "/", "1.1.1.1")
	assert.Equal(t, "nosniff", w.Header().Get(headerXContentTypeOptions))
	assert.Equal(t, "DENY", w.Header().Get(headerXFrameOptions))
	assert.NotEmpty(t, w.Header().Get(headerStrictTransportSecurity))
}

func TestIPRateLimiter(t *testing.T) {
	l := NewIPRateLimiter(rate.Every(time.Hour), 2, clientip.RealClientIP, "slow down")
	h := l.Handler(ok)

	assert.Equal(t, http.StatusOK, request(h, "GET", "/", "1.1.1.1").Code)
	assert.Equal(t, http.StatusOK, request(h, "GET", "/", "1.1.1.1").Code)
	w := request(h, "GET", "/", "1.1.1.1")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.JSONEq(t, `{"success":false,"message":"slow down"}`, w.Body.String())

	assert.Equal(t, http.StatusOK, request(h, "GET", "/", "2.2.2.2").Code, "limits are per IP")

	l.prune(time.Now().Add(2 * limiterTTL))
	assert.Empty(t, l.entries)
}

func TestIPRateLimiterForPaths(t *testing.T) {
	h := NewIPRateLimiter(rate.Every(time.Hour), 1, clientip.RealClientIP, "slow down").ForPaths("/submit").Handler(ok)

	assert.Equal(t, http.StatusOK, request(h, "POST", "/submit", "1.1.1.1").Code)
	assert.Equal(t, http.StatusTooManyRequests, request(h, "POST", "/submit", "1.1.1.1").Code)
	assert.Equal(t, http.StatusOK, request(h, "GET", "/user", "1.1.1.1").Code)
}

func TestRedisRateLimit(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	h := RedisRateLimit(client, clientip.RealClientIP)(ok)
	for i := 0; i < RateLimitMaxRequests; i++ {
		require.Equal(t, http.StatusOK, request(h, "GET", "/", "1.1.1.1").Code)
	}
	assert.Equal(t, RateLimitWindow, mr.TTL(RateLimitKeyPrefix+"1.1.1.1"))

	w := request(h, "GET", "/", "1.1.1.1")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.True(t, mr.Exists(BlockedIPKeyPrefix+"1.1.1.1"))

	mr.FastForward(RateLimitWindow + time.Second)
	assert.Equal(t, http.StatusTooManyRequests, request(h, "GET", "/", "1.1.1.1").Code, "blocked after the window resets")
	assert.Equal(t, http.StatusOK, request(h, "GET", "/", "2.2.2.2").Code)
}

func TestRedisRateLimitFailsOpen(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer client.Close()
	mr.Close()

	assert.Equal(t, http.StatusOK, request(RedisRateLimit(client, clientip.RealClientIP)(ok), "GET", "/", "1.1.1.1").Code)
}

func TestCORS(t *testing.T) {
	h := CORS([]string{"http://localhost:5173"})(ok)

	r := httptest.NewRequest(http.MethodOptions, "/submit", nil)
	r.Header.Set("Origin", "http://localhost:5173")
	r.Header.Set("Access-Control-Request-Method", "POST")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))

	r = httptest.NewRequest(http.MethodGet, "/user", nil)
	r.Header.Set("Origin", "https://evil.example")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, r)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRequestLoggerPassesThrough(t *testing.T) {
	h := chimw.RequestID(RequestLogger(clientip.RealClientIP)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, chimw.GetReqID(r.Context()))
		w.WriteHeader(http.StatusTeapot)
	})))
	assert.Equal(t, http.StatusTeapot, request(h, "GET", "/", "1.1.1.1").Code)
}
