package middleware

import (
	"net/http"
	"strconv"
	"time"

	"guardline-hq/bastion/pkg/telemetry/metrics"
)

// Metrics records request counts and latencies per path, method, and status
// code. Paths are the fixed route set, so label cardinality stays bounded.
func Metrics(hm *metrics.HTTPMetrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if hm == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := newResponseWriter(w)

			next.ServeHTTP(rw, r)

			hm.RecordRequest(
				r.URL.Path,
				r.Method,
				strconv.Itoa(rw.statusCode),
				time.Since(start),
			)
		})
	}
}
