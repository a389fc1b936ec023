// Package telemetry groups the observability subsystems: structured
// logging (logging), Prometheus metrics (metrics), and OpenTelemetry
// tracing (tracing).
package telemetry
