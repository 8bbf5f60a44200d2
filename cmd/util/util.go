package util

import (
	"fmt"
	"io"
	"os"
	"runtime/debug"

	log "github.com/sirupsen/logrus"

	"github.com/sidkik/sync-remote/pkg/errors"
)

// Mocked for unit testing.
var (
	exit             = os.Exit
	stderr io.Writer = os.Stderr
)

// HandleFatalError prints the error and exits. Friendly errors are printed
// as-is, everything else is logged with its full context.
func HandleFatalError(err error) {
	var friendly errors.FriendlyError
	if errors.As(err, &friendly) {
		fmt.Fprintln(stderr, friendly.FriendlyMessage())
	} else {
		log.WithError(err).Error("Fatal error")
	}
	exit(1)
}

// HandlePanic logs panics and exits. It should be deferred at the top of
// every goroutine.
func HandlePanic() {
	if r := recover(); r != nil {
		log.WithField("stack", string(debug.Stack())).Errorf("Unexpected panic: %v", r)
		exit(1)
	}
}
