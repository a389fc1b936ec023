package builtin

import (
	"context"
	"strings"

	"guardline-hq/bastion/pkg/detector"
)

// DetectCode flags inputs that contain code: fenced blocks, inline backtick
// runs, or blocks of consistently indented lines. A crude but cheap signal
// for prompts that should stay natural-language only.
//
// Score is 1 when code is detected, 0 otherwise.
type DetectCode struct{}

// NewDetectCode creates a code detector.
func NewDetectCode() *DetectCode {
	return &DetectCode{}
}

// Detect implements detector.Detector.
func (d *DetectCode) Detect(_ context.Context, text string, threshold float64, _ detector.Config) (*detector.Result, error) {
	found, kind := containsCode(text)

	score := 0.0
	if found {
		score = 1.0
	}

	res := &detector.Result{
		Score:       score,
		CheckResult: score > threshold,
	}
	if found {
		res.Details = map[string]interface{}{
			"kind": kind,
		}
	}
	return res, nil
}

// containsCode reports whether text looks like it contains code and, if so,
// what signal tripped.
func containsCode(text string) (bool, string) {
	if strings.Count(text, "```") >= 2 {
		return true, "fenced_block"
	}

	lines := strings.Split(text, "\n")
	indented := 0
	for _, line := range lines {
		trimmed := strings.TrimRight(line, " \t")
		if trimmed == "" {
			continue
		}
		if strings.HasPrefix(line, "    ") || strings.HasPrefix(line, "\t") {
			indented++
		}
	}
	// Three or more indented lines reads as an indented code block.
	if indented >= 3 {
		return true, "indented_block"
	}

	return false, ""
}
