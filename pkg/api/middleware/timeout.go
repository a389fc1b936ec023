package middleware

import (
	"context"
	"net/http"
	"time"
)

// Timeout attaches a deadline to each request context. Handlers that honor
// their context stop work when the deadline passes; the scan engine adds its
// own per-rule and per-scan bounds below this.
func Timeout(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if timeout <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
