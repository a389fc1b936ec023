// Package handlers implements the HTTP endpoints of the scan service:
// single-rule execution, full ruleset scans, and health and readiness probes.
package handlers
