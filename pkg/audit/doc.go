// Package audit persists scan verdicts to SQLite. Every recorded entry
// carries the scan ID, a hash of the scanned input, the per-rule outcomes
// as JSON, and the aggregate verdict, so a blocked request can be explained
// after the fact without re-running detectors.
//
// Recording is strictly best-effort: storage failures are logged and never
// block or fail a scan. Retention is enforced by a cron-driven pruner.
package audit
