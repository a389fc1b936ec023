// Bastion is a guardrail scan service for LLM prompts.
//
// It evaluates ordered rulesets of named detectors (PII, prompt injection,
// invisible characters, code, remote checks) against input text and returns
// an aggregate blocked/allowed verdict with per-rule diagnostics.
//
// Usage:
//
//	# Start server with default configuration
//	bastion run
//
//	# Start with custom configuration file
//	bastion run --config /path/to/config.yaml
//
//	# Show version information
//	bastion version
//
//	# Validate ruleset files
//	bastion validate --file rulesets.yaml
package main

func main() {
	Execute()
}
