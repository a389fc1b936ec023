package api

import (
	"net/http"
	"time"

	"guardline-hq/bastion/pkg/api/middleware"
	"guardline-hq/bastion/pkg/telemetry/metrics"
)

// Routes collects the endpoint handlers the server mounts. Metrics may be nil
// to leave the exposition endpoint unmounted.
type Routes struct {
	Execute http.Handler
	Scan    http.Handler
	Health  http.Handler
	Ready   http.Handler

	Metrics     http.Handler
	MetricsPath string

	HTTPMetrics    *metrics.HTTPMetrics
	RequestTimeout time.Duration
}

// NewHandler builds the route table and wraps it in the middleware chain:
// recovery, request ID, logging, metrics, timeout.
func NewHandler(routes Routes) http.Handler {
	mux := http.NewServeMux()

	mux.Handle("/rule/execute", routes.Execute)
	mux.Handle("/scan", routes.Scan)
	mux.Handle("/status/healthz", routes.Health)
	mux.Handle("/status/readyz", routes.Ready)

	if routes.Metrics != nil {
		path := routes.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		mux.Handle(path, routes.Metrics)
	}

	var handler http.Handler = mux
	handler = middleware.Timeout(routes.RequestTimeout)(handler)
	handler = middleware.Metrics(routes.HTTPMetrics)(handler)
	handler = middleware.Logging(handler)
	handler = middleware.RequestID(handler)
	handler = middleware.Recovery(handler)

	return handler
}
