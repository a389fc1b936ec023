package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"guardline-hq/bastion/pkg/rules"
)

// maxHashBytes bounds how much of a large input is hashed. The prefix hash
// is still enough to correlate repeated inputs without holding the whole
// body in memory twice.
const maxHashBytes = 1 << 20

// Entry is one recorded scan verdict.
type Entry struct {
	// ScanID is the verdict's unique scan identifier.
	ScanID string

	// RulesetName identifies the ruleset that was applied ("inline" for
	// request-supplied rules).
	RulesetName string

	// InputHash is the hex SHA-256 of the scanned text. The text itself is
	// never stored.
	InputHash string

	// InputLength is the scanned text length in bytes.
	InputLength int

	// Blocked is the aggregate verdict.
	Blocked bool

	// Outcomes are the per-rule results.
	Outcomes []OutcomeRecord

	// Duration is the total scan time.
	Duration time.Duration

	// CreatedAt is when the entry was recorded.
	CreatedAt time.Time
}

// OutcomeRecord is the persisted shape of one rule outcome.
type OutcomeRecord struct {
	RuleName   string   `json:"rule_name"`
	PluginKey  string   `json:"plugin_key"`
	Matched    bool     `json:"matched"`
	Status     string   `json:"status"`
	Score      *float64 `json:"score,omitempty"`
	Error      string   `json:"error,omitempty"`
	DurationMS int64    `json:"duration_ms"`
}

// NewEntry builds an audit entry from a scan verdict.
func NewEntry(verdict *rules.Verdict, input, rulesetName string) *Entry {
	outcomes := make([]OutcomeRecord, len(verdict.Results))
	for i, out := range verdict.Results {
		rec := OutcomeRecord{
			RuleName:   out.RuleName,
			PluginKey:  out.PluginKey,
			Matched:    out.Matched,
			Status:     string(out.Status),
			DurationMS: out.Duration.Milliseconds(),
		}
		if out.Inspection != nil {
			score := out.Inspection.Score
			rec.Score = &score
		}
		if out.Err != nil {
			rec.Error = out.Err.Error()
		}
		outcomes[i] = rec
	}

	return &Entry{
		ScanID:      verdict.ScanID,
		RulesetName: rulesetName,
		InputHash:   HashInput(input),
		InputLength: len(input),
		Blocked:     verdict.Blocked,
		Outcomes:    outcomes,
		Duration:    verdict.Duration,
		CreatedAt:   time.Now().UTC(),
	}
}

// HashInput returns the hex SHA-256 of the input, hashing at most the first
// megabyte. Empty input hashes to the empty string.
func HashInput(input string) string {
	if input == "" {
		return ""
	}
	data := []byte(input)
	if len(data) > maxHashBytes {
		data = data[:maxHashBytes]
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
