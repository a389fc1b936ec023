package builtin

import (
	"context"
	"fmt"
	"log/slog"
	"unicode"

	"guardline-hq/bastion/pkg/detector"
)

// invisibleCategories are the Unicode categories treated as invisible or
// non-printable: format characters, private use, and unassigned code points.
var invisibleCategories = []*unicode.RangeTable{unicode.Cf, unicode.Co}

// InvisibleChars detects invisible Unicode characters in text. Zero-width
// spaces, direction overrides, and similar format characters are a common
// smuggling vector for hidden instructions.
//
// Score is 1 when any invisible character is present, 0 otherwise.
type InvisibleChars struct {
	logger *slog.Logger
}

// NewInvisibleChars creates an invisible character detector.
func NewInvisibleChars() *InvisibleChars {
	return &InvisibleChars{
		logger: slog.Default().With("component", "detector.invisible_chars"),
	}
}

// Detect implements detector.Detector.
func (d *InvisibleChars) Detect(_ context.Context, text string, threshold float64, _ detector.Config) (*detector.Result, error) {
	var found []string
	for _, r := range text {
		if r <= 127 {
			continue
		}
		if unicode.In(r, invisibleCategories...) || !unicode.IsGraphic(r) && !unicode.IsSpace(r) {
			found = append(found, fmt.Sprintf("U+%04X", r))
		}
	}

	score := 0.0
	if len(found) > 0 {
		score = 1.0
		d.logger.Warn("invisible characters found in input",
			"count", len(found),
			"code_points", found,
		)
	}

	res := &detector.Result{
		Score:       score,
		CheckResult: score > threshold,
	}
	if len(found) > 0 {
		res.Details = map[string]interface{}{
			"code_points": found,
		}
	}
	return res, nil
}
