package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte("ok"))
})

// ===== LOGGING =====

func TestLogger_RecordsStatusAndPath(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	h := Logger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/events/abc", nil))

	out := buf.String()
	assert.Contains(t, out, "path=/events/abc")
	assert.Contains(t, out, "status=418")
	assert.Contains(t, out, "level=WARN")
}

// ===== METRICS =====

type fakeRecorder struct {
	statuses    []int
	rateLimited int
}

func (f *fakeRecorder) RecordHTTPRequest(_ string, status int, _ time.Duration) {
	f.statuses = append(f.statuses, status)
}
func (f *fakeRecorder) RecordLogin(string) {}
func (f *fakeRecorder) RecordJoin(string)  {}
func (f *fakeRecorder) RecordFollow(bool)  {}
func (f *fakeRecorder) RecordRateLimited() { f.rateLimited++ }

func TestMetrics_RecordsImplicitAndExplicitStatus(t *testing.T) {
	rec := &fakeRecorder{}

	Metrics(rec)(okHandler).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	Metrics(rec)(http.NotFoundHandler()).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, []int{200, 404}, rec.statuses)
}

// ===== CORS =====

type staticOrigins map[string]bool

func (s staticOrigins) Allowed(origin string) bool { return s[origin] }

func TestCORS_Preflight(t *testing.T) {
	h := CORS(staticOrigins{"http://localhost:3000": true})(okHandler)

	req := httptest.NewRequest(http.MethodOptions, "/events", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPatch)
	// Browsers send the header list lowercased and comma-separated.
	req.Header.Set("Access-Control-Request-Headers", "authorization,content-type")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), http.MethodPatch)
	allowHeaders := strings.ToLower(rec.Header().Get("Access-Control-Allow-Headers"))
	assert.Contains(t, allowHeaders, "authorization")
	assert.Contains(t, allowHeaders, "content-type")
}

func TestCORS_PreflightRejectsUnlistedHeader(t *testing.T) {
	h := CORS(staticOrigins{"http://localhost:3000": true})(okHandler)

	req := httptest.NewRequest(http.MethodOptions, "/events", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "x-unknown")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORS_RejectsUnknownOrigin(t *testing.T) {
	h := CORS(staticOrigins{"http://localhost:3000": true})(okHandler)

	req := httptest.NewRequest(http.MethodGet, "/events", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

// ===== RATE LIMIT =====

func TestRateLimiter_BlocksAfterBurst(t *testing.T) {
	rec := &fakeRecorder{}
	rl := NewRateLimiter(2, rec)
	h := rl.Middleware(okHandler)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
		req.RemoteAddr = "203.0.113.7:5555"
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		codes = append(codes, w.Code)

		if w.Code == http.StatusTooManyRequests {
			assert.Equal(t, "30", w.Header().Get("Retry-After"))
			assert.True(t, strings.Contains(w.Body.String(), `"code":"rate_limited"`))
		}
	}

	assert.Equal(t, []int{200, 200, 429}, codes)
	assert.Equal(t, 1, rec.rateLimited)
}

func TestRateLimiter_SeparateBucketsPerIP(t *testing.T) {
	rl := NewRateLimiter(1, nil)
	h := rl.Middleware(okHandler)

	for _, addr := range []string{"198.51.100.1:1", "198.51.100.2:1"} {
		req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
		req.RemoteAddr = addr
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code, "first request from %s", addr)
	}
	assert.Equal(t, 2, rl.Len())
}

func TestRateLimiter_IgnoresForwardingHeadersItself(t *testing.T) {
	rl := NewRateLimiter(1, nil)
	h := rl.Middleware(okHandler)

	codes := make([]int, 0, 2)
	for _, forwarded := range []string{"192.0.2.10", "192.0.2.11"} {
		req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
		req.RemoteAddr = "203.0.113.9:4000"
		req.Header.Set("X-Forwarded-For", forwarded)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}

	assert.Equal(t, []int{200, 429}, codes, "only RemoteAddr picks the bucket")
	assert.Equal(t, 1, rl.Len())
}

func TestRateLimiter_SweepsIdleEntries(t *testing.T) {
	rl := NewRateLimiter(5, nil)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	rl.limiterFor("10.0.0.1")
	rl.limiterFor("10.0.0.2")
	require.Equal(t, 2, rl.Len())

	now = now.Add(rl.ttl + time.Second)
	rl.limiterFor("10.0.0.3")

	assert.Equal(t, 1, rl.Len(), "idle entries should be swept on access")
}
