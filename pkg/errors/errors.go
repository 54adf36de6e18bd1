package errors

import (
	goerrors "errors"
	"fmt"
)

// New returns an error with the given message. It's formatted according to
// the same rules as fmt.Sprintf.
func New(format string, a ...interface{}) error {
	return fmt.Errorf(format, a...)
}

// WithContext returns an error that wraps `err` with the given context. The
// context is prepended to the error message, so callers should describe what
// they were doing when the error occurred, e.g. "list remote dir".
func WithContext(err error, context string) error {
	if err == nil {
		return nil
	}
	return withContext{err, context}
}

type withContext struct {
	error   error
	context string
}

func (err withContext) Error() string {
	return fmt.Sprintf("%s: %s", err.context, err.error)
}

func (err withContext) Unwrap() error {
	return err.error
}

// RootCause returns the innermost error that was wrapped by WithContext.
func RootCause(err error) error {
	for {
		ctxErr, ok := err.(withContext)
		if !ok {
			return err
		}
		err = ctxErr.error
	}
}

// FriendlyError is an error whose message is meant to be shown directly to
// the operator, without any additional context.
type FriendlyError struct {
	msg string
}

// NewFriendlyError creates a new FriendlyError.
func NewFriendlyError(template string, a ...interface{}) error {
	return FriendlyError{fmt.Sprintf(template, a...)}
}

func (err FriendlyError) Error() string {
	return err.msg
}

// FriendlyMessage returns the message that should be shown to the operator.
func (err FriendlyError) FriendlyMessage() string {
	return err.msg
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return goerrors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return goerrors.As(err, target)
}
