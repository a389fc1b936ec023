package rules

import (
	"log/slog"
	"math"
	"strings"
)

// Relation is a relational operator applied as (score Relation threshold).
type Relation string

// Supported relational operators.
const (
	RelationGT Relation = ">"
	RelationGE Relation = ">="
	RelationLT Relation = "<"
	RelationLE Relation = "<="
	RelationEQ Relation = "=="
	RelationNE Relation = "!="
)

// DefaultRelation is applied when a rule specifies no operator.
const DefaultRelation = RelationGT

// ParseRelation normalizes a relation token. An empty or all-whitespace
// token yields DefaultRelation with defaulted=true so the caller can emit
// the fallback notice. An unsupported token yields *InvalidRelationError.
func ParseRelation(token string) (rel Relation, defaulted bool, err error) {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return DefaultRelation, true, nil
	}

	switch Relation(trimmed) {
	case RelationGT, RelationGE, RelationLT, RelationLE, RelationEQ, RelationNE:
		return Relation(trimmed), false, nil
	default:
		return "", false, &InvalidRelationError{Token: trimmed}
	}
}

// Compare evaluates (score r threshold) with IEEE-754 double semantics.
// A NaN score always compares false, for every operator: NaN must never
// slip through as "not matched is fine" on inverted relations like "!=".
func (r Relation) Compare(score, threshold float64) bool {
	if math.IsNaN(score) || math.IsNaN(threshold) {
		return false
	}

	switch r {
	case RelationGT:
		return score > threshold
	case RelationGE:
		return score >= threshold
	case RelationLT:
		return score < threshold
	case RelationLE:
		return score <= threshold
	case RelationEQ:
		return score == threshold
	case RelationNE:
		return score != threshold
	default:
		return false
	}
}

// Evaluate interprets a detector score against a threshold using the given
// relation token. The primitives arrive as typed values; no expression
// string is ever assembled or re-parsed. An empty relation falls back to
// DefaultRelation with a warning-level notice.
func Evaluate(score, threshold float64, relation string) (bool, error) {
	rel, defaulted, err := ParseRelation(relation)
	if err != nil {
		return false, err
	}
	if defaulted {
		slog.Warn("no relation specified, defaulting",
			"default", string(DefaultRelation),
			"score", score,
			"threshold", threshold,
		)
	}
	return rel.Compare(score, threshold), nil
}
