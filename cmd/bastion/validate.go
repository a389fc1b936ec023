package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"guardline-hq/bastion/pkg/rules/source"
)

var validateFlags struct {
	file   string
	strict bool
	format string
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate ruleset files",
	Long: `Validate ruleset files for syntax and semantic errors.

The validate command loads ruleset files and performs comprehensive checks:
  - YAML syntax validation
  - Schema validation (required fields, action types)
  - Semantic validation (plugin keys, relational operators)

Examples:
  # Validate a single file
  bastion validate --file rulesets.yaml

  # Validate a directory of rulesets
  bastion validate --file rulesets/

  # Strict mode (reject unknown fields)
  bastion validate --file rulesets.yaml --strict

  # JSON output for CI/CD
  bastion validate --file rulesets.yaml --format json`,
	RunE: validateRulesets,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringVarP(&validateFlags.file, "file", "f", "", "ruleset file or directory to validate")
	validateCmd.Flags().BoolVar(&validateFlags.strict, "strict", false, "reject unknown fields")
	validateCmd.Flags().StringVar(&validateFlags.format, "format", "text", "output format: text, json")
}

type validateReport struct {
	Path  string `json:"path"`
	Valid bool   `json:"valid"`
	Rules int    `json:"rules,omitempty"`
	Error string `json:"error,omitempty"`
}

func validateRulesets(cmd *cobra.Command, args []string) error {
	if validateFlags.file == "" {
		return fmt.Errorf("--file must be specified")
	}

	validator, err := source.NewValidator()
	if err != nil {
		return fmt.Errorf("failed to build validator: %w", err)
	}

	defaults := source.Defaults{Threshold: 0.5, Relation: ">="}
	fileSource := source.NewFileSource(validateFlags.file, defaults, validator, validateFlags.strict)

	report := validateReport{Path: validateFlags.file}
	rs, loadErr := fileSource.Load(cmd.Context())
	if loadErr != nil {
		report.Error = loadErr.Error()
	} else {
		report.Valid = true
		report.Rules = len(rs.Rules)
	}

	if validateFlags.format == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return err
		}
	} else if report.Valid {
		fmt.Printf("✓ %s: %d rules valid\n", report.Path, report.Rules)
	} else {
		fmt.Printf("✗ %s: %s\n", report.Path, report.Error)
	}

	if loadErr != nil {
		return fmt.Errorf("validation failed")
	}
	return nil
}
