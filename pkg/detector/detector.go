package detector

import "context"

// Result is the outcome of a single detector invocation.
type Result struct {
	// Score is the detector's numeric finding. Required: a detector that
	// cannot produce a score must return an error instead.
	Score float64 `json:"score"`

	// CheckResult is the detector's own score-vs-threshold opinion. It is
	// reported in inspection output but the rule executor always re-derives
	// the authoritative match from the score and the rule's relation.
	CheckResult bool `json:"check_result"`

	// Details carries detector-specific findings: matched entities,
	// anonymized text, per-category sub-scores. Opaque to the executor.
	Details map[string]interface{} `json:"details,omitempty"`
}

// Config is the opaque per-rule configuration passed to a detector.
// Detectors decode the keys they understand and ignore the rest; extra keys
// are always permitted.
type Config map[string]interface{}

// Detector scores a text for some property (invisible characters, PII
// density, injection likelihood, and so on). Implementations may block on
// I/O or model inference and must honor ctx cancellation.
//
// Detect must be safe for concurrent use: one registered detector serves
// all requests.
type Detector interface {
	Detect(ctx context.Context, text string, threshold float64, cfg Config) (*Result, error)
}

// Func adapts a plain function to the Detector interface.
type Func func(ctx context.Context, text string, threshold float64, cfg Config) (*Result, error)

// Detect implements Detector.
func (f Func) Detect(ctx context.Context, text string, threshold float64, cfg Config) (*Result, error) {
	return f(ctx, text, threshold, cfg)
}
