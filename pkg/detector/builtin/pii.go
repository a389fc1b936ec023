package builtin

import (
	"context"
	"log/slog"
	"regexp"
	"sort"
	"strings"

	"guardline-hq/bastion/pkg/detector"
)

// piiPatterns maps entity types to their detection patterns.
var piiPatterns = map[string]*regexp.Regexp{
	"email":       regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Z|a-z]{2,}\b`),
	"phone":       regexp.MustCompile(`\b(\+?1?[-.\s]?)?\(?\d{3}\)?[-.\s]?\d{3}[-.\s]?\d{4}\b`),
	"ssn":         regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`),
	"credit_card": regexp.MustCompile(`\b\d{4}[\s-]?\d{4}[\s-]?\d{4}[\s-]?\d{4}\b`),
	"ip_address":  regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}\b`),
}

// piiMatch is one detected entity with its span in the input.
type piiMatch struct {
	entity string
	start  int
	end    int
}

// PII detects personally identifiable information with rule-based patterns
// and produces an anonymized copy of the input with each entity replaced by
// a typed placeholder (e.g., "<EMAIL>").
//
// Score is 1 when any configured entity type is found, 0 otherwise.
type PII struct {
	entities []string
	logger   *slog.Logger
}

// NewPII creates a PII detector limited to the given entity types.
// An empty list enables every known type.
func NewPII(entities []string) *PII {
	if len(entities) == 0 {
		for entity := range piiPatterns {
			entities = append(entities, entity)
		}
		sort.Strings(entities)
	}
	return &PII{
		entities: entities,
		logger:   slog.Default().With("component", "detector.pii"),
	}
}

// Detect implements detector.Detector.
func (d *PII) Detect(_ context.Context, text string, threshold float64, cfg detector.Config) (*detector.Result, error) {
	entities := d.entities
	// Rule config may narrow the entity list per request.
	if requested := stringSlice(cfg, "entities"); len(requested) > 0 {
		entities = requested
	}

	var matches []piiMatch
	for _, entity := range entities {
		pattern, ok := piiPatterns[entity]
		if !ok {
			continue
		}
		for _, span := range pattern.FindAllStringIndex(text, -1) {
			matches = append(matches, piiMatch{entity: entity, start: span[0], end: span[1]})
		}
	}

	score := 0.0
	if len(matches) > 0 {
		score = 1.0
		d.logger.Debug("PII entities found", "count", len(matches))
	}

	res := &detector.Result{
		Score:       score,
		CheckResult: score > threshold,
	}
	if len(matches) > 0 {
		found := make([][2]string, 0, len(matches))
		for _, m := range matches {
			found = append(found, [2]string{m.entity, text[m.start:m.end]})
		}
		res.Details = map[string]interface{}{
			"pii_found":          found,
			"anonymized_content": anonymize(text, matches),
		}
	}
	return res, nil
}

// anonymize replaces each matched span with a typed placeholder. Overlapping
// matches are resolved in favor of the earlier, longer one.
func anonymize(text string, matches []piiMatch) string {
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].start != matches[j].start {
			return matches[i].start < matches[j].start
		}
		return matches[i].end > matches[j].end
	})

	var b strings.Builder
	last := 0
	for _, m := range matches {
		if m.start < last {
			continue
		}
		b.WriteString(text[last:m.start])
		b.WriteString("<" + strings.ToUpper(m.entity) + ">")
		last = m.end
	}
	b.WriteString(text[last:])
	return b.String()
}

// stringSlice reads a []string-ish value out of an opaque config map.
func stringSlice(cfg detector.Config, key string) []string {
	raw, ok := cfg[key]
	if !ok {
		return nil
	}
	switch v := raw.(type) {
	case []string:
		return v
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
