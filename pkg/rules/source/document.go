package source

import (
	"fmt"
	"strings"

	"guardline-hq/bastion/pkg/detector"
	"guardline-hq/bastion/pkg/rules"
)

// Document is the on-disk ruleset format. The same shape is accepted inline
// by the scan endpoint, so a document's rules list can be authored once and
// served either way.
type Document struct {
	// Version is the document format version. Currently always 1.
	Version int `yaml:"version" json:"version"`

	// Name identifies the ruleset in logs and audit records.
	Name string `yaml:"name" json:"name"`

	// Rules is the ordered rule list.
	Rules []RuleSpec `yaml:"rules" json:"rules"`
}

// RuleSpec is one rule entry in a ruleset document.
type RuleSpec struct {
	// Name is the rule's display name.
	Name string `yaml:"name" json:"name"`

	// Type names the detector when the config carries no plugin_name.
	Type string `yaml:"type" json:"type"`

	// Enabled gates evaluation. Defaults to true when omitted.
	Enabled *bool `yaml:"enabled" json:"enabled"`

	// OrderNumber is the evaluation order, ascending. Ties keep their
	// relative document position.
	OrderNumber int `yaml:"order_number" json:"order_number"`

	// Threshold overrides the config-level threshold when set.
	Threshold *float64 `yaml:"threshold" json:"threshold"`

	// Config is the detector configuration. Recognized keys: plugin_name
	// selects the detector, threshold and relation tune the match test.
	// Everything is passed to the detector verbatim; extra keys are always
	// permitted.
	Config map[string]interface{} `yaml:"config" json:"config"`

	// Action is the rule's consequence on match. A missing or non-"block"
	// type never contributes to blocking.
	Action ActionSpec `yaml:"action" json:"action"`
}

// ActionSpec is a rule's declared action.
type ActionSpec struct {
	Type string `yaml:"type,omitempty" json:"type,omitempty"`
}

// Defaults supplies the scan-layer fallbacks applied to rules that omit a
// threshold or relation.
type Defaults struct {
	Threshold float64
	Relation  string
}

// PluginKey returns the detector key for this rule: the config's
// plugin_name when present, otherwise the rule's type, otherwise its name.
func (r RuleSpec) PluginKey() string {
	if key, ok := stringValue(r.Config, "plugin_name"); ok && key != "" {
		return key
	}
	if r.Type != "" {
		return r.Type
	}
	return r.Name
}

// DisplayType returns the label reported for this rule in scan responses:
// the config's plugin_name when present, otherwise the rule's name.
func (r RuleSpec) DisplayType() string {
	if key, ok := stringValue(r.Config, "plugin_name"); ok && key != "" {
		return key
	}
	return r.Name
}

// IsEnabled reports the rule's enabled state, defaulting to true.
func (r RuleSpec) IsEnabled() bool {
	if r.Enabled == nil {
		return true
	}
	return *r.Enabled
}

// ToRule converts the spec into an engine rule, applying the given
// fallbacks for a missing threshold and relation.
func (r RuleSpec) ToRule(defaults Defaults) rules.Rule {
	threshold := defaults.Threshold
	if v, ok := floatValue(r.Config, "threshold"); ok {
		threshold = v
	}
	// Rule-level threshold wins over the config-level one.
	if r.Threshold != nil {
		threshold = *r.Threshold
	}

	relation := defaults.Relation
	if v, ok := stringValue(r.Config, "relation"); ok && strings.TrimSpace(v) != "" {
		relation = v
	}

	// Copy the config so later document reloads cannot mutate a rule
	// already handed to the engine.
	var cfg detector.Config
	if len(r.Config) > 0 {
		cfg = make(detector.Config, len(r.Config))
		for k, v := range r.Config {
			cfg[k] = v
		}
	}

	return rules.Rule{
		Name:      r.Name,
		PluginKey: r.PluginKey(),
		Threshold: threshold,
		Relation:  relation,
		Config:    cfg,
		Enabled:   r.IsEnabled(),
		Order:     r.OrderNumber,
		Action:    rules.Action{Type: rules.ActionType(r.Action.Type)},
	}
}

// ToRules converts all rule specs in the document, preserving document
// order. The engine's stable sort handles order numbers.
func (d *Document) ToRules(defaults Defaults) []rules.Rule {
	out := make([]rules.Rule, len(d.Rules))
	for i, spec := range d.Rules {
		out[i] = spec.ToRule(defaults)
	}
	return out
}

// Validate applies semantic checks beyond the JSON schema: every rule needs
// a resolvable plugin key and a known relation token when one is given.
func (d *Document) Validate() error {
	var issues []string

	if len(d.Rules) == 0 {
		issues = append(issues, "document contains no rules")
	}

	for i, spec := range d.Rules {
		if spec.PluginKey() == "" {
			issues = append(issues, fmt.Sprintf("rules[%d]: no plugin key (set config.plugin_name, type, or name)", i))
		}
		if rel, ok := stringValue(spec.Config, "relation"); ok && strings.TrimSpace(rel) != "" {
			if _, _, err := rules.ParseRelation(rel); err != nil {
				issues = append(issues, fmt.Sprintf("rules[%d]: %v", i, err))
			}
		}
	}

	if len(issues) > 0 {
		return &ValidationError{Path: d.Name, Issues: issues}
	}
	return nil
}

func stringValue(m map[string]interface{}, key string) (string, bool) {
	if m == nil {
		return "", false
	}
	v, ok := m[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func floatValue(m map[string]interface{}, key string) (float64, bool) {
	if m == nil {
		return 0, false
	}
	switch v := m[key].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}
