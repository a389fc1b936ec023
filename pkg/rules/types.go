package rules

import (
	"time"

	"guardline-hq/bastion/pkg/detector"
)

// ActionType describes what a matching rule does to the request.
type ActionType string

const (
	// ActionBlock rejects the input when the rule matches.
	ActionBlock ActionType = "block"

	// ActionFlag records the match without affecting the verdict.
	ActionFlag ActionType = "flag"

	// ActionMonitor is a legacy alias for flag-style observation.
	ActionMonitor ActionType = "monitoring"
)

// Action is a rule's declared consequence.
type Action struct {
	Type ActionType `json:"type" yaml:"type"`
}

// Blocks reports whether the action rejects matching input.
func (a Action) Blocks() bool {
	return a.Type == ActionBlock
}

// Rule binds one detector (by plugin key) to a threshold, a relational
// operator, and an action.
type Rule struct {
	// Name is the display name; it may differ from the plugin key.
	Name string `json:"name" yaml:"name"`

	// PluginKey names the detector in the registry. Lookup is
	// case-insensitive.
	PluginKey string `json:"plugin_key" yaml:"plugin_key"`

	// Threshold is the score boundary the relation compares against.
	Threshold float64 `json:"threshold" yaml:"threshold"`

	// Relation is the relational operator applied as (score Relation
	// Threshold). Empty defaults to ">" at evaluation time.
	Relation string `json:"relation,omitempty" yaml:"relation,omitempty"`

	// Config is the opaque plugin-specific configuration passed to the
	// detector verbatim. Extra keys are always permitted.
	Config detector.Config `json:"config,omitempty" yaml:"config,omitempty"`

	// Enabled gates evaluation; disabled rules are skipped without
	// invoking their detector.
	Enabled bool `json:"enabled" yaml:"enabled"`

	// Order is the evaluation order, ascending. Orders need not be
	// unique; ties keep their relative input order.
	Order int `json:"order" yaml:"order"`

	// Action is what a match does.
	Action Action `json:"action" yaml:"action"`
}

// Status is the terminal state of one rule evaluation. A rule passes through
// pending -> {skipped | passed | matched} with no transition back.
type Status string

const (
	// StatusSkipped means the rule was disabled and its detector never ran.
	StatusSkipped Status = "skipped"

	// StatusPassed means the rule ran and did not produce a blocking match.
	StatusPassed Status = "passed"

	// StatusMatched means a blocking rule matched, or the rule failed and
	// was closed as matched.
	StatusMatched Status = "matched"
)

// Outcome is the result of evaluating one rule against one input. It is
// created fresh per scan, never persisted by the engine, and immutable after
// construction.
type Outcome struct {
	// RuleName is the rule's display name.
	RuleName string `json:"rule_name"`

	// PluginKey is the detector the rule resolved to.
	PluginKey string `json:"plugin_key"`

	// Matched is the threshold expression result. Failed rules report
	// true: an uncertain check is treated as a detected violation.
	Matched bool `json:"matched"`

	// Status is the rule's terminal state.
	Status Status `json:"status"`

	// Inspection is the detector's raw result, when one was obtained.
	Inspection *detector.Result `json:"inspection,omitempty"`

	// Err is the failure that closed this rule, if any.
	Err error `json:"-"`

	// Duration is the rule's evaluation time, including the detector call.
	Duration time.Duration `json:"-"`
}

// Failed reports whether the outcome was produced by fail-closed handling
// rather than a real detector verdict.
func (o Outcome) Failed() bool {
	return o.Err != nil
}

// Verdict aggregates all rule outcomes for one input.
type Verdict struct {
	// ScanID uniquely identifies this scan for logs and audit records.
	ScanID string `json:"scan_id"`

	// Blocked is true when any enabled blocking rule matched or failed.
	Blocked bool `json:"blocked"`

	// Results holds one outcome per input rule, ordered by the rules'
	// sorted evaluation order.
	Results []Outcome `json:"results"`

	// Duration is the total scan time.
	Duration time.Duration `json:"-"`
}
