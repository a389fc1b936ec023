package builtin

import (
	"context"
	"log/slog"
	"math"
	"regexp"
	"strings"

	"guardline-hq/bastion/pkg/detector"
)

// defaultInjectionPatterns are phrases characteristic of instruction-override
// attempts. Rules may extend or replace them via the "patterns" config key.
var defaultInjectionPatterns = []string{
	"ignore previous instructions",
	"ignore all previous instructions",
	"disregard your instructions",
	"you are now",
	"pretend you are",
	"act as if",
	"system prompt",
	"reveal your instructions",
	"developer mode",
	"jailbreak",
}

// PromptInjection detects instruction-override phrasing with case-insensitive
// pattern matching.
//
// Score grows with the number of distinct patterns matched: one match scores
// 0.5, each further match halves the remaining distance to 1.
type PromptInjection struct {
	patterns []*regexp.Regexp
	sources  []string
	logger   *slog.Logger
}

// NewPromptInjection creates a prompt injection detector. An empty pattern
// list selects the default set.
func NewPromptInjection(patterns []string) *PromptInjection {
	if len(patterns) == 0 {
		patterns = defaultInjectionPatterns
	}
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		compiled = append(compiled, regexp.MustCompile(`(?i)`+regexp.QuoteMeta(p)))
	}
	return &PromptInjection{
		patterns: compiled,
		sources:  patterns,
		logger:   slog.Default().With("component", "detector.prompt_injection"),
	}
}

// Detect implements detector.Detector.
func (d *PromptInjection) Detect(_ context.Context, text string, threshold float64, cfg detector.Config) (*detector.Result, error) {
	patterns, sources := d.patterns, d.sources
	if extra := stringSlice(cfg, "patterns"); len(extra) > 0 {
		patterns = make([]*regexp.Regexp, 0, len(extra))
		for _, p := range extra {
			patterns = append(patterns, regexp.MustCompile(`(?i)`+regexp.QuoteMeta(p)))
		}
		sources = extra
	}

	var matched []string
	for i, pattern := range patterns {
		if pattern.MatchString(text) {
			matched = append(matched, strings.ToLower(sources[i]))
		}
	}

	// 0 matches -> 0; n matches -> 1 - 0.5^n, so a single hit already
	// crosses a 0.5 threshold and further hits approach 1.
	score := 1.0 - math.Pow(0.5, float64(len(matched)))

	res := &detector.Result{
		Score:       score,
		CheckResult: score > threshold,
	}
	if len(matched) > 0 {
		d.logger.Debug("injection patterns matched", "count", len(matched))
		res.Details = map[string]interface{}{
			"matched_patterns": matched,
		}
	}
	return res, nil
}
