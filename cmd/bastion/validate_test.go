package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
)

func writeRuleset(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rulesets.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write ruleset: %v", err)
	}
	return path
}

func runValidate(t *testing.T, file string, strict bool) error {
	t.Helper()

	prev := validateFlags
	t.Cleanup(func() { validateFlags = prev })

	validateFlags.file = file
	validateFlags.strict = strict
	validateFlags.format = "text"

	cmd := &cobra.Command{}
	cmd.SetContext(context.Background())
	return validateRulesets(cmd, nil)
}

func TestValidateValidRuleset(t *testing.T) {
	path := writeRuleset(t, `
name: test
rules:
  - name: pii_check
    order_number: 1
    config:
      plugin_name: pii
    action:
      type: block
`)

	if err := runValidate(t, path, false); err != nil {
		t.Errorf("valid ruleset rejected: %v", err)
	}
}

func TestValidateRejectsBadActionType(t *testing.T) {
	path := writeRuleset(t, `
rules:
  - name: pii_check
    config:
      plugin_name: pii
    action:
      type: explode
`)

	if err := runValidate(t, path, false); err == nil {
		t.Error("invalid action type accepted")
	}
}

func TestValidateRejectsMissingFile(t *testing.T) {
	if err := runValidate(t, filepath.Join(t.TempDir(), "missing.yaml"), false); err == nil {
		t.Error("missing file accepted")
	}
}

func TestValidateRequiresFileFlag(t *testing.T) {
	if err := runValidate(t, "", false); err == nil {
		t.Error("empty --file accepted")
	}
}
