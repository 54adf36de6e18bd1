package util

import (
	"fmt"
	"io"
	"os"
	"runtime/debug"

	log "github.com/sirupsen/logrus"

	"github.com/sidkik/pishow/pkg/errors"
)

// These will be overridden in mock tests.
var (
	exit   = os.Exit
	stderr = io.Writer(os.Stderr)
)

type friendlyError interface {
	FriendlyMessage() string
}

// HandleFatalError prints `err` and exits. Errors meant for the operator are
// printed as is, and other errors are logged with their full context.
func HandleFatalError(err error) {
	var friendly friendlyError
	if errors.As(err, &friendly) {
		fmt.Fprintln(stderr, friendly.FriendlyMessage())
		log.WithError(err).Debug("Fatal error")
	} else {
		log.WithError(err).Error("Fatal error")
	}
	exit(1)
}

// HandlePanic logs the stack trace of a panic and exits. It must be deferred
// directly, i.e. `defer util.HandlePanic()`.
func HandlePanic() {
	if r := recover(); r != nil {
		log.WithField("stack", string(debug.Stack())).Errorf("Panic: %v", r)
		exit(1)
	}
}
