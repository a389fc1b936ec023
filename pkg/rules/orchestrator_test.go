package rules

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"guardline-hq/bastion/pkg/detector"
)

func newTestOrchestrator(t *testing.T, detectors map[string]detector.Detector, opts ...OrchestratorOption) *Orchestrator {
	t.Helper()
	return NewOrchestrator(newTestExecutor(t, detectors), opts...)
}

func TestScanStableOrder(t *testing.T) {
	var mu sync.Mutex
	var callOrder []string
	recording := func(name string) detector.Detector {
		return detector.Func(func(context.Context, string, float64, detector.Config) (*detector.Result, error) {
			mu.Lock()
			callOrder = append(callOrder, name)
			mu.Unlock()
			return &detector.Result{Score: 0}, nil
		})
	}

	o := newTestOrchestrator(t, map[string]detector.Detector{
		"a": recording("a"),
		"b": recording("b"),
		"c": recording("c"),
		"d": recording("d"),
	})

	// Orders 2, 1, 1, 3 in input order. The two order-1 rules must keep
	// their relative input position: b before c.
	ruleList := []Rule{
		func() Rule { r := blockRule("rule a", "a", 0.5, ">"); r.Order = 2; return r }(),
		func() Rule { r := blockRule("rule b", "b", 0.5, ">"); r.Order = 1; return r }(),
		func() Rule { r := blockRule("rule c", "c", 0.5, ">"); r.Order = 1; return r }(),
		func() Rule { r := blockRule("rule d", "d", 0.5, ">"); r.Order = 3; return r }(),
	}

	verdict := o.Scan(context.Background(), "text", ruleList)

	wantCalls := []string{"b", "c", "a", "d"}
	mu.Lock()
	defer mu.Unlock()
	if len(callOrder) != len(wantCalls) {
		t.Fatalf("invoked %d detectors, want %d", len(callOrder), len(wantCalls))
	}
	for i, want := range wantCalls {
		if callOrder[i] != want {
			t.Errorf("call %d = %q, want %q", i, callOrder[i], want)
		}
	}

	wantResults := []string{"rule b", "rule c", "rule a", "rule d"}
	for i, want := range wantResults {
		if verdict.Results[i].RuleName != want {
			t.Errorf("result %d = %q, want %q", i, verdict.Results[i].RuleName, want)
		}
	}
}

func TestScanDoesNotReorderCallerSlice(t *testing.T) {
	o := newTestOrchestrator(t, map[string]detector.Detector{
		"a": scoringDetector(0),
	})

	ruleList := []Rule{
		func() Rule { r := blockRule("second", "a", 0.5, ">"); r.Order = 2; return r }(),
		func() Rule { r := blockRule("first", "a", 0.5, ">"); r.Order = 1; return r }(),
	}

	o.Scan(context.Background(), "text", ruleList)

	if ruleList[0].Name != "second" || ruleList[1].Name != "first" {
		t.Errorf("caller slice was reordered: %q, %q", ruleList[0].Name, ruleList[1].Name)
	}
}

func TestScanBlockedAggregation(t *testing.T) {
	detectors := map[string]detector.Detector{
		"high": scoringDetector(0.9),
		"low":  scoringDetector(0.1),
	}

	tests := []struct {
		name        string
		ruleList    []Rule
		wantBlocked bool
	}{
		{
			name:        "no rules",
			ruleList:    nil,
			wantBlocked: false,
		},
		{
			name: "all pass",
			ruleList: []Rule{
				blockRule("r1", "low", 0.5, ">"),
				blockRule("r2", "low", 0.5, ">="),
			},
			wantBlocked: false,
		},
		{
			name: "one blocking match",
			ruleList: []Rule{
				blockRule("r1", "low", 0.5, ">"),
				blockRule("r2", "high", 0.5, ">="),
			},
			wantBlocked: true,
		},
		{
			name: "flag match alone does not block",
			ruleList: []Rule{
				func() Rule {
					r := blockRule("r1", "high", 0.5, ">=")
					r.Action = Action{Type: ActionFlag}
					return r
				}(),
			},
			wantBlocked: false,
		},
		{
			name: "monitoring match alone does not block",
			ruleList: []Rule{
				func() Rule {
					r := blockRule("r1", "high", 0.5, ">=")
					r.Action = Action{Type: ActionMonitor}
					return r
				}(),
			},
			wantBlocked: false,
		},
		{
			name: "disabled blocking rule does not block",
			ruleList: []Rule{
				func() Rule {
					r := blockRule("r1", "high", 0.5, ">=")
					r.Enabled = false
					return r
				}(),
			},
			wantBlocked: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := newTestOrchestrator(t, detectors)
			verdict := o.Scan(context.Background(), "text", tt.ruleList)
			if verdict.Blocked != tt.wantBlocked {
				t.Errorf("blocked = %v, want %v", verdict.Blocked, tt.wantBlocked)
			}
			if len(verdict.Results) != len(tt.ruleList) {
				t.Errorf("got %d results, want %d", len(verdict.Results), len(tt.ruleList))
			}
		})
	}
}

func TestScanFailedRuleForcesBlocked(t *testing.T) {
	o := newTestOrchestrator(t, map[string]detector.Detector{
		"low":    scoringDetector(0.1),
		"broken": failingDetector(errors.New("backend down")),
	})

	ruleList := []Rule{
		blockRule("fine", "low", 0.5, ">"),
		blockRule("failing", "broken", 0.5, ">"),
	}

	verdict := o.Scan(context.Background(), "text", ruleList)
	if !verdict.Blocked {
		t.Error("a failed blocking rule must force blocked=true")
	}
}

func TestScanFailedFlagRuleDoesNotBlock(t *testing.T) {
	// Fail-closed marks the rule matched, but a non-blocking action still
	// cannot reject the input.
	o := newTestOrchestrator(t, map[string]detector.Detector{
		"broken": failingDetector(errors.New("backend down")),
	})

	rule := blockRule("failing flag", "broken", 0.5, ">")
	rule.Action = Action{Type: ActionFlag}

	verdict := o.Scan(context.Background(), "text", []Rule{rule})
	if verdict.Blocked {
		t.Error("failed flag rule must not block")
	}
	if verdict.Results[0].Status != StatusMatched {
		t.Errorf("status = %q, want %q", verdict.Results[0].Status, StatusMatched)
	}
}

func TestScanNeverShortCircuits(t *testing.T) {
	var calls atomic.Int64
	counting := detector.Func(func(context.Context, string, float64, detector.Config) (*detector.Result, error) {
		calls.Add(1)
		return &detector.Result{Score: 1}, nil
	})

	o := newTestOrchestrator(t, map[string]detector.Detector{"match": counting})

	ruleList := make([]Rule, 5)
	for i := range ruleList {
		r := blockRule("r", "match", 0.5, ">=")
		r.Order = i
		ruleList[i] = r
	}

	verdict := o.Scan(context.Background(), "text", ruleList)
	if !verdict.Blocked {
		t.Error("all-matching scan must be blocked")
	}
	if got := calls.Load(); got != 5 {
		t.Errorf("invoked %d detectors, want all 5 despite the first match", got)
	}
}

func TestScanAssignsScanIDs(t *testing.T) {
	o := newTestOrchestrator(t, map[string]detector.Detector{"low": scoringDetector(0)})
	ruleList := []Rule{blockRule("r", "low", 0.5, ">")}

	first := o.Scan(context.Background(), "text", ruleList)
	second := o.Scan(context.Background(), "text", ruleList)

	if first.ScanID == "" || second.ScanID == "" {
		t.Fatal("scan IDs must be non-empty")
	}
	if first.ScanID == second.ScanID {
		t.Error("scan IDs must be unique per scan")
	}
}

func TestScanIdempotentVerdict(t *testing.T) {
	o := newTestOrchestrator(t, map[string]detector.Detector{
		"high": scoringDetector(0.8),
		"low":  scoringDetector(0.3),
	})
	ruleList := []Rule{
		blockRule("r1", "low", 0.5, ">="),
		blockRule("r2", "high", 0.5, ">="),
	}

	first := o.Scan(context.Background(), "same input", ruleList)
	for i := 0; i < 10; i++ {
		got := o.Scan(context.Background(), "same input", ruleList)
		if got.Blocked != first.Blocked {
			t.Fatalf("run %d: blocked = %v, first = %v", i, got.Blocked, first.Blocked)
		}
		for j := range got.Results {
			if got.Results[j].Status != first.Results[j].Status {
				t.Fatalf("run %d result %d: status = %q, first = %q",
					i, j, got.Results[j].Status, first.Results[j].Status)
			}
		}
	}
}

func TestScanConcurrentKeepsOrder(t *testing.T) {
	// Later rules finish first under concurrency; results must still come
	// back in sorted rule order.
	mkDelayed := func(score float64, delay time.Duration) detector.Detector {
		return detector.Func(func(ctx context.Context, _ string, _ float64, _ detector.Config) (*detector.Result, error) {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			return &detector.Result{Score: score}, nil
		})
	}

	o := newTestOrchestrator(t, map[string]detector.Detector{
		"slow": mkDelayed(0.9, 50*time.Millisecond),
		"fast": mkDelayed(0.1, 0),
	},
		WithConcurrency(4),
	)

	ruleList := []Rule{
		func() Rule { r := blockRule("slow rule", "slow", 0.5, ">="); r.Order = 0; return r }(),
		func() Rule { r := blockRule("fast rule", "fast", 0.5, ">="); r.Order = 1; return r }(),
	}

	verdict := o.Scan(context.Background(), "text", ruleList)
	if verdict.Results[0].RuleName != "slow rule" || verdict.Results[1].RuleName != "fast rule" {
		t.Errorf("concurrent results out of order: %q, %q",
			verdict.Results[0].RuleName, verdict.Results[1].RuleName)
	}
	if !verdict.Blocked {
		t.Error("slow rule matched, scan must block")
	}
}

func TestScanTimeoutFailsClosed(t *testing.T) {
	stuck := detector.Func(func(ctx context.Context, _ string, _ float64, _ detector.Config) (*detector.Result, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})

	reg := detector.NewRegistry()
	if err := reg.Register("stuck", stuck); err != nil {
		t.Fatal(err)
	}
	// Per-rule timeout far above the scan timeout so the scan bound is the
	// one that fires.
	o := NewOrchestrator(NewExecutor(reg, time.Minute, nil),
		WithScanTimeout(30*time.Millisecond),
	)

	start := time.Now()
	verdict := o.Scan(context.Background(), "text", []Rule{blockRule("stuck rule", "stuck", 0.5, ">")})
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("scan timeout did not bound the scan, took %v", elapsed)
	}

	if !verdict.Blocked {
		t.Error("scan timeout must fail closed")
	}
	if !verdict.Results[0].Failed() {
		t.Error("timed-out rule must carry its failure")
	}
}

func TestScanRecordsMetrics(t *testing.T) {
	rec := &captureMetrics{}
	reg := detector.NewRegistry()
	if err := reg.Register("low", scoringDetector(0)); err != nil {
		t.Fatal(err)
	}
	o := NewOrchestrator(NewExecutor(reg, time.Second, rec), WithMetrics(rec))

	o.Scan(context.Background(), "text", []Rule{blockRule("r", "low", 0.5, ">")})
	o.Scan(context.Background(), "text", []Rule{blockRule("r", "low", 0.5, ">")})

	if got := rec.scanCount(); got != 2 {
		t.Errorf("recorded %d scans, want 2", got)
	}
}
