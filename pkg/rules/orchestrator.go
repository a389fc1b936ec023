package rules

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/sync/semaphore"
)

// Orchestrator runs an ordered list of rules against one input text and
// aggregates a single blocked/allowed verdict.
//
// Rules are stable-sorted by Order before evaluation; two rules sharing an
// order number keep their relative input position, so output is
// deterministic and reproducible. Every rule is always evaluated; the scan
// never short-circuits on the first block, because callers need the full
// per-rule inspection detail (anonymized PII text, per-category scores) for
// audit even when an earlier rule already decided the verdict.
type Orchestrator struct {
	executor    *Executor
	concurrency int
	scanTimeout time.Duration
	metrics     MetricsRecorder
	tracer      trace.Tracer
	logger      *slog.Logger
}

// OrchestratorOption customizes an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithConcurrency enables bounded-concurrent rule evaluation. Values <= 1
// keep the default sequential mode. Concurrency never changes output
// ordering: results are restored to the sorted rule order before return.
func WithConcurrency(n int) OrchestratorOption {
	return func(o *Orchestrator) {
		o.concurrency = n
	}
}

// WithScanTimeout bounds the total scan duration. Rules still pending when
// it expires fail closed. Zero disables the bound.
func WithScanTimeout(d time.Duration) OrchestratorOption {
	return func(o *Orchestrator) {
		o.scanTimeout = d
	}
}

// WithTracer installs an OpenTelemetry tracer for scan and rule spans.
func WithTracer(tracer trace.Tracer) OrchestratorOption {
	return func(o *Orchestrator) {
		if tracer != nil {
			o.tracer = tracer
		}
	}
}

// WithMetrics installs a metrics recorder for scan events.
func WithMetrics(m MetricsRecorder) OrchestratorOption {
	return func(o *Orchestrator) {
		if m != nil {
			o.metrics = m
		}
	}
}

// NewOrchestrator creates a scan orchestrator around the given executor.
func NewOrchestrator(executor *Executor, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		executor:    executor,
		concurrency: 1,
		metrics:     NopMetrics(),
		tracer:      noop.NewTracerProvider().Tracer("bastion/rules"),
		logger:      slog.Default().With("component", "rules.orchestrator"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Scan evaluates all rules against the input text and returns the aggregate
// verdict. The verdict's Results slice always has exactly one entry per
// input rule, in sorted order.
func (o *Orchestrator) Scan(ctx context.Context, text string, ruleList []Rule) *Verdict {
	start := time.Now()
	scanID := uuid.NewString()

	ctx, span := o.tracer.Start(ctx, "rules.scan", trace.WithAttributes(
		attribute.String("bastion.scan_id", scanID),
		attribute.Int("bastion.rule_count", len(ruleList)),
	))
	defer span.End()

	if o.scanTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.scanTimeout)
		defer cancel()
	}

	// Stable sort on a copy: the caller's slice is never reordered, and
	// equal-order rules keep their relative input position.
	sorted := make([]Rule, len(ruleList))
	copy(sorted, ruleList)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Order < sorted[j].Order
	})

	results := make([]Outcome, len(sorted))
	if o.concurrency > 1 && len(sorted) > 1 {
		o.runConcurrent(ctx, text, sorted, results)
	} else {
		for i, rule := range sorted {
			results[i] = o.executeRule(ctx, text, rule)
		}
	}

	// Aggregate: blocked when any enabled blocking rule reached "matched",
	// whether by a real detection or by fail-closed conversion.
	blocked := false
	for i, out := range results {
		if out.Status == StatusMatched && sorted[i].Action.Blocks() {
			blocked = true
		}
	}

	verdict := &Verdict{
		ScanID:   scanID,
		Blocked:  blocked,
		Results:  results,
		Duration: time.Since(start),
	}

	span.SetAttributes(attribute.Bool("bastion.blocked", blocked))
	o.metrics.RecordScan(blocked, len(ruleList), verdict.Duration)
	o.logger.InfoContext(ctx, "scan completed",
		"scan_id", scanID,
		"rule_count", len(ruleList),
		"blocked", blocked,
		"duration_ms", verdict.Duration.Milliseconds(),
	)

	return verdict
}

// runConcurrent evaluates rules in parallel, bounded by the configured
// concurrency. Each goroutine writes to its own slot in results, so the
// output order is the sorted order regardless of completion order.
func (o *Orchestrator) runConcurrent(ctx context.Context, text string, sorted []Rule, results []Outcome) {
	sem := semaphore.NewWeighted(int64(o.concurrency))
	var wg sync.WaitGroup

	for i, rule := range sorted {
		if err := sem.Acquire(ctx, 1); err != nil {
			// Scan deadline hit while waiting for a slot: the remaining
			// rules fail closed.
			results[i] = o.executor.failClosed(rule, time.Now(), "timeout",
				&TimeoutError{PluginKey: rule.PluginKey, Timeout: o.scanTimeout})
			continue
		}

		wg.Add(1)
		go func(i int, rule Rule) {
			defer wg.Done()
			defer sem.Release(1)
			results[i] = o.executeRule(ctx, text, rule)
		}(i, rule)
	}

	wg.Wait()
}

// executeRule runs one rule inside its own span.
func (o *Orchestrator) executeRule(ctx context.Context, text string, rule Rule) Outcome {
	ctx, span := o.tracer.Start(ctx, "rules.execute", trace.WithAttributes(
		attribute.String("bastion.rule", rule.Name),
		attribute.String("bastion.plugin", rule.PluginKey),
	))
	defer span.End()

	out := o.executor.Execute(ctx, text, rule)

	span.SetAttributes(attribute.String("bastion.status", string(out.Status)))
	return out
}
