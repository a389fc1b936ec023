// Package source loads rulesets for the scan engine from declarative YAML
// documents. It provides a file source (single file or directory), a Git
// source with poll-based refresh, and an in-memory source for tests.
//
// Loaded documents are validated against an embedded JSON Schema before they
// are converted to engine rules. The Store holds the currently active
// ruleset and swaps it atomically on reload; a failed load or validation
// keeps the previous ruleset active.
package source
