package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "bastion",
	Short: "Bastion - guardrail scan service for LLM prompts",
	Long: `Bastion is a guardrail scan service that evaluates ordered rulesets of
named detectors against input text.

It exposes an HTTP API providing:
  - Single-rule execution against a prompt's user messages
  - Full ruleset scans with fail-closed error handling
  - File- and git-backed rulesets with live reload
  - SQLite-backed scan audit records with retention pruning`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
