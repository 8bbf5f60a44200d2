package errors

import (
	goErrors "errors"
	"fmt"
)

// New returns an error with the given message.
func New(msg string, args ...interface{}) error {
	if len(args) == 0 {
		return goErrors.New(msg)
	}
	return fmt.Errorf(msg, args...)
}

// contextError adds a short description of what was being attempted when
// `err` occurred. Chains of contextErrors print like
// "sync file: copy: exit status 1".
type contextError struct {
	context string
	err     error
}

// WithContext wraps `err` with `context`. Returns nil if `err` is nil so that
// callers can wrap unconditionally.
func WithContext(err error, context string) error {
	if err == nil {
		return nil
	}
	return contextError{context, err}
}

func (err contextError) Error() string {
	return fmt.Sprintf("%s: %s", err.context, err.err)
}

func (err contextError) Unwrap() error {
	return err.err
}

// RootCause returns the innermost error wrapped by WithContext.
func RootCause(err error) error {
	for {
		ctxErr, ok := err.(contextError)
		if !ok {
			return err
		}
		err = ctxErr.err
	}
}

// FriendlyError is an error whose message is meant to be shown directly to
// the user, without any of the context that was added while it propagated.
type FriendlyError interface {
	error
	FriendlyMessage() string
}

type friendlyError struct {
	msg string
}

// NewFriendlyError creates an error that's printed to the user verbatim.
func NewFriendlyError(msg string, args ...interface{}) error {
	return friendlyError{fmt.Sprintf(msg, args...)}
}

func (err friendlyError) Error() string {
	return err.msg
}

func (err friendlyError) FriendlyMessage() string {
	return err.msg
}

// GetPrintableMessage returns the message that should be displayed to the
// user for `err`. Friendly errors anywhere in the chain take precedence over
// the full contextual message.
func GetPrintableMessage(err error) string {
	var friendly FriendlyError
	if goErrors.As(err, &friendly) {
		return friendly.FriendlyMessage()
	}
	return err.Error()
}

// Is is a passthrough to the standard library so that callers don't need
// to import both packages.
func Is(err, target error) bool {
	return goErrors.Is(err, target)
}

// As is a passthrough to the standard library.
func As(err error, target interface{}) bool {
	return goErrors.As(err, target)
}
