package middleware

import (
	"net/http"
	"time"

	"github.com/hopon/hopon-api/internal/metrics"
)

// Metrics records the status and latency of every response.
func Metrics(rec metrics.Recorder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := wrapResponseWriter(w)

			next.ServeHTTP(wrapped, r)

			rec.RecordHTTPRequest(r.Method, wrapped.statusCode, time.Since(start))
		})
	}
}
