package rules

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"guardline-hq/bastion/pkg/detector"
)

// Executor evaluates a single (text, rule) pair. It resolves the rule's
// plugin, invokes it under a per-rule timeout, validates the result shape,
// and applies the threshold relation.
//
// Execute never lets a failure escape: every error is contained in the
// returned outcome as a fail-closed match. An unavailable or crashing
// detector must not silently let unsafe content through.
type Executor struct {
	registry *detector.Registry
	timeout  time.Duration
	metrics  MetricsRecorder
	logger   *slog.Logger
}

// NewExecutor creates a rule executor. timeout bounds each detector call;
// zero or negative disables the bound. metrics may be nil.
func NewExecutor(registry *detector.Registry, timeout time.Duration, metrics MetricsRecorder) *Executor {
	if metrics == nil {
		metrics = NopMetrics()
	}
	return &Executor{
		registry: registry,
		timeout:  timeout,
		metrics:  metrics,
		logger:   slog.Default().With("component", "rules.executor"),
	}
}

// detectReply carries a detector's return values across the invocation
// goroutine boundary.
type detectReply struct {
	result *detector.Result
	err    error
}

// Execute evaluates one rule against the input text and returns its outcome.
// Disabled rules are skipped without resolving or invoking their detector.
func (e *Executor) Execute(ctx context.Context, text string, rule Rule) Outcome {
	start := time.Now()

	if !rule.Enabled {
		e.logger.DebugContext(ctx, "rule disabled, skipping",
			"rule", rule.Name,
			"plugin", rule.PluginKey,
		)
		out := Outcome{
			RuleName:  rule.Name,
			PluginKey: rule.PluginKey,
			Status:    StatusSkipped,
			Duration:  time.Since(start),
		}
		e.metrics.RecordRuleEvaluation(rule.PluginKey, string(StatusSkipped), out.Duration)
		return out
	}

	// Resolve the plugin. Not found fails closed.
	d, err := e.registry.Resolve(rule.PluginKey)
	if err != nil {
		return e.failClosed(rule, start, "not_found", err)
	}
	e.logger.DebugContext(ctx, "resolved plugin",
		"rule", rule.Name,
		"plugin", rule.PluginKey,
	)

	// Invoke the detector under the per-rule timeout.
	result, err := e.invoke(ctx, d, text, rule)
	if err != nil {
		reason := "execution"
		var te *TimeoutError
		if errors.As(err, &te) {
			reason = "timeout"
		}
		return e.failClosed(rule, start, reason, err)
	}

	// Validate the result shape before touching the score.
	if result == nil {
		return e.failClosed(rule, start, "malformed",
			&MalformedResultError{PluginKey: rule.PluginKey, Reason: "nil result"})
	}
	e.logger.DebugContext(ctx, "detector completed",
		"rule", rule.Name,
		"plugin", rule.PluginKey,
		"score", result.Score,
	)

	// Evaluate the threshold expression. The relation arrives as typed
	// values; an unsupported operator fails closed rather than being
	// silently ignored.
	matched, err := Evaluate(result.Score, rule.Threshold, rule.Relation)
	if err != nil {
		out := e.failClosed(rule, start, "relation", err)
		out.Inspection = result
		return out
	}
	e.logger.DebugContext(ctx, "threshold evaluated",
		"rule", rule.Name,
		"plugin", rule.PluginKey,
		"score", result.Score,
		"threshold", rule.Threshold,
		"matched", matched,
	)

	status := StatusPassed
	if matched && rule.Action.Blocks() {
		status = StatusMatched
	}

	out := Outcome{
		RuleName:   rule.Name,
		PluginKey:  rule.PluginKey,
		Matched:    matched,
		Status:     status,
		Inspection: result,
		Duration:   time.Since(start),
	}
	e.metrics.RecordRuleEvaluation(rule.PluginKey, string(status), out.Duration)
	return out
}

// invoke runs the detector in its own goroutine so the per-rule timeout
// holds even against detectors that ignore context cancellation, and so a
// panicking detector is contained instead of taking down the request.
func (e *Executor) invoke(ctx context.Context, d detector.Detector, text string, rule Rule) (*detector.Result, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	replyCh := make(chan detectReply, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				replyCh <- detectReply{err: fmt.Errorf("detector panicked: %v", r)}
			}
		}()
		result, err := d.Detect(ctx, text, rule.Threshold, rule.Config)
		replyCh <- detectReply{result: result, err: err}
	}()

	select {
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, &TimeoutError{PluginKey: rule.PluginKey, Timeout: e.timeout}
		}
		return nil, &ExecutionError{PluginKey: rule.PluginKey, Cause: ctx.Err()}
	case reply := <-replyCh:
		if reply.err != nil {
			return nil, &ExecutionError{PluginKey: rule.PluginKey, Cause: reply.err}
		}
		return reply.result, nil
	}
}

// failClosed converts a rule failure into a matched outcome. The uncertain
// check is treated as a detected violation, biasing toward over-blocking
// rather than passing unsafe content.
func (e *Executor) failClosed(rule Rule, start time.Time, reason string, err error) Outcome {
	e.logger.Warn("rule failed, closing as matched",
		"rule", rule.Name,
		"plugin", rule.PluginKey,
		"reason", reason,
		"error", err,
	)
	e.metrics.RecordDetectorFailure(rule.PluginKey, reason)

	out := Outcome{
		RuleName:  rule.Name,
		PluginKey: rule.PluginKey,
		Matched:   true,
		Status:    StatusMatched,
		Err:       err,
		Duration:  time.Since(start),
	}
	e.metrics.RecordRuleEvaluation(rule.PluginKey, string(StatusMatched), out.Duration)
	return out
}
