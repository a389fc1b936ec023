package source

import "fmt"

// LoadError indicates a ruleset document could not be read or parsed.
type LoadError struct {
	Path  string
	Cause error
}

// Error returns the error message.
func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to load ruleset from %q: %v", e.Path, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *LoadError) Unwrap() error {
	return e.Cause
}

// ValidationError indicates a ruleset document failed schema or semantic
// validation. The previous ruleset stays active when one is returned.
type ValidationError struct {
	Path   string
	Issues []string
}

// Error returns the error message.
func (e *ValidationError) Error() string {
	if len(e.Issues) == 1 {
		return fmt.Sprintf("ruleset %q is invalid: %s", e.Path, e.Issues[0])
	}
	return fmt.Sprintf("ruleset %q is invalid: %d issues, first: %s", e.Path, len(e.Issues), e.Issues[0])
}
