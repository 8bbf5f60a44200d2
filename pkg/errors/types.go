package errors

import (
	"fmt"
)

// ErrNotConfigured is returned when no local paths are configured. Syncing is
// silently skipped in this state.
var ErrNotConfigured = New("sync not configured")

// ErrNoMatchingMapping is returned when a file is outside every configured
// local root.
var ErrNoMatchingMapping = New("no mapping matches path")

// MissingFieldError represents a missing required field.
type MissingFieldError struct {
	Field string
}

func (err MissingFieldError) Error() string {
	return fmt.Sprintf("missing required field: %s", err.Field)
}

// FileNotFound represents when we were unable to access a file
// because the path didn't exist.
type FileNotFound struct {
	Path string
}

func (err FileNotFound) Error() string {
	return fmt.Sprintf("%q does not exist", err.Path)
}
