// Package rules implements the policy execution engine: threshold relation
// evaluation, single-rule execution with fail-closed error handling, and the
// scan orchestrator that aggregates per-rule outcomes into one verdict.
//
// The engine is deliberately small and deterministic. Detectors live behind
// the detector.Registry, rulesets are loaded elsewhere; this package only
// decides, for a given text and rule list, which rules matched and whether
// the input is blocked.
package rules
