package detector

import "fmt"

// NotFoundError indicates a plugin key that resolves to no registered
// detector. The HTTP layer converts it into a 404 response.
type NotFoundError struct {
	Key string
}

// Error returns the error message.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("plugin %q not found", e.Key)
}
