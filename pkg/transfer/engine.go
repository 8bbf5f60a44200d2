package transfer

import (
	"context"
	"path"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sidkik/sync-remote/pkg/errors"
)

// Engine copies files to remote hosts.
type Engine struct {
	runner   Runner
	commands commands
	log      logrus.FieldLogger
}

// Option configures an Engine.
type Option func(*Engine)

// WithConnectTimeout sets the connection timeout passed to scp and ssh.
func WithConnectTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.commands.connectTimeout = d
		}
	}
}

// WithCopyProgram overrides the path to scp.
func WithCopyProgram(program string) Option {
	return func(e *Engine) {
		e.commands.copyProgram = program
	}
}

// WithLogger sets the logger used for transfer progress.
func WithLogger(log logrus.FieldLogger) Option {
	return func(e *Engine) {
		e.log = log
	}
}

// NewEngine creates an engine that runs its commands with `runner`.
func NewEngine(runner Runner, opts ...Option) *Engine {
	e := &Engine{
		runner: runner,
		commands: commands{
			copyProgram:    defaultCopyProgram,
			shellProgram:   defaultShellProgram,
			connectTimeout: DefaultConnectTimeout,
		},
		log: logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

type copyState int

const (
	stateAttempt copyState = iota
	stateCreateDir
)

// Copy copies `req.LocalPath` to `req.RemoteHost:req.RemotePath`. When the
// first attempt fails and `req.AllowRetry` is set, the remote parent
// directory is created and the copy is run one more time. A copy that was
// killed for timing out is never retried.
func (e *Engine) Copy(ctx context.Context, req Request) Outcome {
	out := Outcome{
		LocalPath:  req.LocalPath,
		RemoteHost: req.RemoteHost,
		RemotePath: req.RemotePath,
	}
	log := e.log.WithFields(logrus.Fields{
		"local":  req.LocalPath,
		"host":   req.RemoteHost,
		"remote": req.RemotePath,
	})

	state := stateAttempt
	for {
		switch state {
		case stateAttempt:
			out.Attempts++
			log.WithField("attempt", out.Attempts).Debug("Copying file")
			res := e.runner.Run(ctx, e.commands.copy(req.LocalPath, req.RemoteHost, req.RemotePath))
			switch {
			case res.Err == nil:
				out.Success = true
				return out
			case Killed(res.Err):
				out.Reason = ConnectionTimeout
				out.Err = errors.WithContext(res.Err, "copy")
				return out
			case !req.AllowRetry:
				out.Reason = TransferError
				out.Err = errors.WithContext(res.Err, "copy")
				return out
			}
			log.WithError(res.Err).Debug("Copy failed. Creating remote directory before retrying")
			state = stateCreateDir

		case stateCreateDir:
			if err := e.CreateRemoteDir(ctx, req.RemoteHost, path.Dir(req.RemotePath)); err != nil {
				out.Reason = DirectoryCreateError
				out.Err = err
				return out
			}
			req.AllowRetry = false
			state = stateAttempt
		}
	}
}

// CreateRemoteDir creates `dir` on `host` if it doesn't already exist.
func (e *Engine) CreateRemoteDir(ctx context.Context, host, dir string) error {
	res := e.runner.Run(ctx, e.commands.mkdir(host, dir))
	if res.Err != nil {
		return errors.WithContext(res.Err, "create remote directory "+dir)
	}
	return nil
}
