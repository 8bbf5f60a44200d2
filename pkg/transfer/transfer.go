// Package transfer copies single files to a remote host using external
// secure-copy and remote-shell commands. If the first copy fails for any
// reason other than a connection timeout, the remote directory is created and
// the copy is attempted exactly once more.
package transfer

import (
	"fmt"
)

// Request describes a single copy attempt.
type Request struct {
	LocalPath  string
	RemoteHost string
	RemotePath string

	// AllowRetry is true for the first attempt and false for the retry, so
	// that a file is copied at most twice.
	AllowRetry bool
}

// Reason classifies why a transfer failed.
type Reason int

const (
	// ReasonNone is the reason of a successful transfer.
	ReasonNone Reason = iota

	// ConnectionTimeout means the command was killed because it ran for too
	// long. It is never retried.
	ConnectionTimeout

	// TransferError is any other copy failure.
	TransferError

	// DirectoryCreateError means the remote directory couldn't be created
	// before the retry.
	DirectoryCreateError
)

func (r Reason) String() string {
	switch r {
	case ReasonNone:
		return "None"
	case ConnectionTimeout:
		return "ConnectionTimeout"
	case TransferError:
		return "TransferError"
	case DirectoryCreateError:
		return "DirectoryCreateError"
	default:
		return fmt.Sprintf("Reason(%d)", int(r))
	}
}

// Outcome is the terminal result of Engine.Copy.
type Outcome struct {
	Success bool
	Reason  Reason
	Err     error

	LocalPath  string
	RemoteHost string
	RemotePath string

	// Attempts is the number of copy commands that were run.
	Attempts int
}

func (o Outcome) String() string {
	dst := o.RemotePath
	if o.RemoteHost != "" {
		dst = o.RemoteHost + ":" + o.RemotePath
	}
	if o.Success {
		return fmt.Sprintf("copied %s to %s", o.LocalPath, dst)
	}
	return fmt.Sprintf("failed to copy %s to %s (%s): %s", o.LocalPath, dst, o.Reason, o.Err)
}
