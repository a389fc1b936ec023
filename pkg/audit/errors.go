package audit

import "fmt"

// StorageError indicates a failed audit store operation.
type StorageError struct {
	Op    string
	Cause error
}

// Error returns the error message.
func (e *StorageError) Error() string {
	return fmt.Sprintf("audit storage %s failed: %v", e.Op, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *StorageError) Unwrap() error {
	return e.Cause
}

func storageErr(op string, cause error) error {
	return &StorageError{Op: op, Cause: cause}
}
