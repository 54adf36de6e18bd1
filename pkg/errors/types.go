package errors

import (
	"fmt"
)

// ErrNotFound is returned by remote clients when the requested file doesn't
// exist in remote storage.
var ErrNotFound = New("not found")

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

// NetworkError represents a failure to reach remote storage at all, such as a
// connection reset, DNS failure, or exhausted retries. It's always transient.
type NetworkError struct {
	Err error
}

func (err NetworkError) Error() string {
	return fmt.Sprintf("network error: %s", err.Err)
}

func (err NetworkError) Unwrap() error {
	return err.Err
}

// RemoteAPIError represents an error response from remote storage.
type RemoteAPIError struct {
	Op   string
	Path string
	Err  error
}

func (err RemoteAPIError) Error() string {
	return fmt.Sprintf("remote %s %q: %s", err.Op, err.Path, err.Err)
}

func (err RemoteAPIError) Unwrap() error {
	return err.Err
}

// FatalError marks an error that the slideshow can't recover from. The run
// loop exits when it sees one.
type FatalError struct {
	Err error
}

func (err FatalError) Error() string {
	return err.Err.Error()
}

func (err FatalError) Unwrap() error {
	return err.Err
}

// Fatal marks `err` as unrecoverable.
func Fatal(err error) error {
	if err == nil {
		return nil
	}
	return FatalError{err}
}

// IsFatal returns whether any error in the chain was marked with Fatal.
func IsFatal(err error) bool {
	var fatalErr FatalError
	return As(err, &fatalErr)
}

// IsNetwork returns whether any error in the chain is a NetworkError.
func IsNetwork(err error) bool {
	var netErr NetworkError
	return As(err, &netErr)
}

// IsRemoteAPI returns whether any error in the chain is a RemoteAPIError.
func IsRemoteAPI(err error) bool {
	var apiErr RemoteAPIError
	return As(err, &apiErr)
}
