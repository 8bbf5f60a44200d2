package transfer

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/sidkik/sync-remote/pkg/errors"
)

// Result is the output of a command run by a Runner.
type Result struct {
	Stdout string
	Stderr string

	// Err is nil if the command exited successfully. A command that was
	// killed for running too long returns a *KilledError.
	Err error
}

// Runner executes shell commands on behalf of the engine.
type Runner interface {
	Run(ctx context.Context, command string) Result
}

// KilledError is returned when a command was terminated because it exceeded
// its timeout.
type KilledError struct {
	Command string
	After   time.Duration
}

func (err *KilledError) Error() string {
	return fmt.Sprintf("killed after %s: %s", err.After, err.Command)
}

// Killed returns whether `err` was caused by a command being killed for
// taking too long.
func Killed(err error) bool {
	var killed *KilledError
	return errors.As(err, &killed)
}

// ShellRunner runs commands with `sh -c`.
type ShellRunner struct {
	// Shell defaults to /bin/sh.
	Shell string

	// Timeout kills commands that are still running after the given
	// duration. Zero disables the timeout.
	Timeout time.Duration
}

// How long to wait for the output pipes to close after the command is killed.
// Without this, a killed shell's children can keep Wait blocked.
const killWaitDelay = 500 * time.Millisecond

// Mocked out for unit testing.
var runCommand = func(cmd *exec.Cmd) error {
	return cmd.Run()
}

// Run implements the Runner interface.
func (r ShellRunner) Run(ctx context.Context, command string) Result {
	shell := r.Shell
	if shell == "" {
		shell = "/bin/sh"
	}

	runCtx := ctx
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(runCtx, shell, "-c", command)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = killWaitDelay

	err := runCommand(cmd)
	res := Result{Stdout: stdout.String(), Stderr: stderr.String()}
	switch {
	case err == nil:
	case r.Timeout > 0 && runCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil:
		res.Err = &KilledError{Command: command, After: r.Timeout}
	default:
		res.Err = errors.WithContext(err, trimOutput(res.Stderr))
	}
	return res
}

// trimOutput shortens command output so that it fits in a log line.
func trimOutput(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "command failed"
	}
	const maxLen = 256
	if len(s) > maxLen {
		s = s[:maxLen] + "..."
	}
	return s
}
