package rules

import "time"

// MetricsRecorder receives engine events for metric export. The telemetry
// package provides the Prometheus implementation; the engine itself only
// emits events through this interface.
type MetricsRecorder interface {
	// RecordRuleEvaluation records one rule reaching a terminal status.
	RecordRuleEvaluation(pluginKey, status string, duration time.Duration)

	// RecordDetectorFailure records a fail-closed conversion with its cause
	// ("not_found", "execution", "timeout", "malformed", "relation").
	RecordDetectorFailure(pluginKey, reason string)

	// RecordScan records a completed scan.
	RecordScan(blocked bool, ruleCount int, duration time.Duration)
}

// nopMetrics discards all events.
type nopMetrics struct{}

func (nopMetrics) RecordRuleEvaluation(string, string, time.Duration) {}
func (nopMetrics) RecordDetectorFailure(string, string)              {}
func (nopMetrics) RecordScan(bool, int, time.Duration)               {}

// NopMetrics returns a recorder that discards all events.
func NopMetrics() MetricsRecorder {
	return nopMetrics{}
}
