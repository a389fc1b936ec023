package source

import (
	"testing"

	"guardline-hq/bastion/pkg/rules"
)

func boolPtr(b bool) *bool       { return &b }
func floatPtr(f float64) *float64 { return &f }

func testDefaults() Defaults {
	return Defaults{Threshold: 0.5, Relation: ">="}
}

func TestRuleSpecPluginKey(t *testing.T) {
	tests := []struct {
		name string
		spec RuleSpec
		want string
	}{
		{
			name: "config plugin_name wins",
			spec: RuleSpec{Name: "n", Type: "t", Config: map[string]interface{}{"plugin_name": "pii"}},
			want: "pii",
		},
		{
			name: "type when no plugin_name",
			spec: RuleSpec{Name: "n", Type: "prompt_injection"},
			want: "prompt_injection",
		},
		{
			name: "name as last resort",
			spec: RuleSpec{Name: "detect_code"},
			want: "detect_code",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.spec.PluginKey(); got != tt.want {
				t.Errorf("PluginKey() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRuleSpecDisplayType(t *testing.T) {
	spec := RuleSpec{Name: "my rule", Type: "pii", Config: map[string]interface{}{"plugin_name": "pii_v2"}}
	if got := spec.DisplayType(); got != "pii_v2" {
		t.Errorf("DisplayType() = %q, want %q", got, "pii_v2")
	}

	spec = RuleSpec{Name: "my rule", Type: "pii"}
	if got := spec.DisplayType(); got != "my rule" {
		t.Errorf("DisplayType() without plugin_name = %q, want rule name", got)
	}
}

func TestRuleSpecToRule(t *testing.T) {
	t.Run("defaults applied", func(t *testing.T) {
		spec := RuleSpec{Name: "r", Type: "pii"}
		rule := spec.ToRule(testDefaults())

		if rule.Threshold != 0.5 {
			t.Errorf("threshold = %v, want default 0.5", rule.Threshold)
		}
		if rule.Relation != ">=" {
			t.Errorf("relation = %q, want default >=", rule.Relation)
		}
		if !rule.Enabled {
			t.Error("omitted enabled must default to true")
		}
	})

	t.Run("config values win over defaults", func(t *testing.T) {
		spec := RuleSpec{
			Name: "r",
			Type: "pii",
			Config: map[string]interface{}{
				"threshold": 0.8,
				"relation":  "<",
			},
		}
		rule := spec.ToRule(testDefaults())

		if rule.Threshold != 0.8 {
			t.Errorf("threshold = %v, want 0.8 from config", rule.Threshold)
		}
		if rule.Relation != "<" {
			t.Errorf("relation = %q, want < from config", rule.Relation)
		}
	})

	t.Run("rule level threshold wins over config", func(t *testing.T) {
		spec := RuleSpec{
			Name:      "r",
			Type:      "pii",
			Threshold: floatPtr(0.9),
			Config:    map[string]interface{}{"threshold": 0.3},
		}
		rule := spec.ToRule(testDefaults())

		if rule.Threshold != 0.9 {
			t.Errorf("threshold = %v, want rule-level 0.9", rule.Threshold)
		}
	})

	t.Run("explicit disabled honored", func(t *testing.T) {
		spec := RuleSpec{Name: "r", Type: "pii", Enabled: boolPtr(false)}
		if rule := spec.ToRule(testDefaults()); rule.Enabled {
			t.Error("enabled=false must carry through")
		}
	})

	t.Run("action type carried", func(t *testing.T) {
		spec := RuleSpec{Name: "r", Type: "pii", Action: ActionSpec{Type: "block"}}
		rule := spec.ToRule(testDefaults())
		if rule.Action.Type != rules.ActionBlock {
			t.Errorf("action = %q, want block", rule.Action.Type)
		}
	})

	t.Run("config copy is independent", func(t *testing.T) {
		cfg := map[string]interface{}{"plugin_name": "pii"}
		spec := RuleSpec{Name: "r", Config: cfg}
		rule := spec.ToRule(testDefaults())

		cfg["plugin_name"] = "mutated"
		if rule.Config["plugin_name"] != "pii" {
			t.Error("rule config must not alias the document map")
		}
	})

	t.Run("integer threshold in config", func(t *testing.T) {
		spec := RuleSpec{Name: "r", Type: "pii", Config: map[string]interface{}{"threshold": 1}}
		if rule := spec.ToRule(testDefaults()); rule.Threshold != 1.0 {
			t.Errorf("threshold = %v, want 1.0 from integer config value", rule.Threshold)
		}
	})
}

func TestDocumentValidate(t *testing.T) {
	tests := []struct {
		name    string
		doc     Document
		wantErr bool
	}{
		{
			name: "valid",
			doc: Document{Rules: []RuleSpec{
				{Name: "r", Type: "pii", Config: map[string]interface{}{"relation": ">="}},
			}},
		},
		{
			name:    "empty rules",
			doc:     Document{},
			wantErr: true,
		},
		{
			name: "no plugin key",
			doc: Document{Rules: []RuleSpec{
				{Config: map[string]interface{}{"threshold": 0.5}},
			}},
			wantErr: true,
		},
		{
			name: "bad relation",
			doc: Document{Rules: []RuleSpec{
				{Name: "r", Type: "pii", Config: map[string]interface{}{"relation": "=>"}},
			}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.doc.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
