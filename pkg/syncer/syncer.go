// Package syncer ties together mapping resolution, file transfer and status
// reporting. Its Coordinator is invoked whenever a file is saved.
package syncer

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/sidkik/sync-remote/pkg/config"
	"github.com/sidkik/sync-remote/pkg/errors"
	"github.com/sidkik/sync-remote/pkg/status"
	"github.com/sidkik/sync-remote/pkg/transfer"
)

// ConfigSource loads the current configuration. It's called on every sync so
// that edits to the config take effect immediately.
type ConfigSource func() (config.User, error)

// Copier performs a single file transfer.
type Copier interface {
	Copy(context.Context, transfer.Request) transfer.Outcome
}

// Coordinator syncs saved files to their remote destinations.
type Coordinator struct {
	loadConfig ConfigSource
	display    *status.Display
	runner     transfer.Runner
	log        logrus.FieldLogger
	newCopier  func(config.User) Copier
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithRunner overrides how transfer commands are executed.
func WithRunner(runner transfer.Runner) Option {
	return func(c *Coordinator) {
		c.runner = runner
	}
}

// WithLogger sets the logger.
func WithLogger(log logrus.FieldLogger) Option {
	return func(c *Coordinator) {
		c.log = log
	}
}

// New creates a Coordinator. `display` may be nil if there's nowhere to show
// progress.
func New(loadConfig ConfigSource, display *status.Display, opts ...Option) *Coordinator {
	if display == nil {
		display = status.NewDisplay(nil, nil, 0)
	}
	c := &Coordinator{
		loadConfig: loadConfig,
		display:    display,
		log:        logrus.StandardLogger(),
	}
	c.newCopier = c.engineFor
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Coordinator) engineFor(cfg config.User) Copier {
	runner := c.runner
	if runner == nil {
		runner = transfer.ShellRunner{Timeout: cfg.CommandTimeout.Duration()}
	}
	return transfer.NewEngine(runner,
		transfer.WithConnectTimeout(cfg.GetConnectTimeout()),
		transfer.WithLogger(c.log))
}

// SyncPath copies `localPath` to the remote host of the first mapping that
// contains it. It returns errors.ErrNotConfigured or
// errors.ErrNoMatchingMapping if there's nothing to do; callers are expected
// to ignore those. Transfer failures are reported through the display and
// the returned Outcome, never as an error.
func (c *Coordinator) SyncPath(ctx context.Context, localPath string) (transfer.Outcome, error) {
	cfg, err := c.loadConfig()
	if err != nil {
		c.log.WithError(err).WithField("local", localPath).Error("Failed to load sync config")
		c.display.Failed()
		return transfer.Outcome{}, errors.WithContext(err, "load config")
	}
	return c.SyncWithConfig(ctx, cfg, localPath)
}

// SyncWithConfig is SyncPath for a caller that already loaded the config.
func (c *Coordinator) SyncWithConfig(ctx context.Context, cfg config.User, localPath string) (
	transfer.Outcome, error) {

	mappings := cfg.Mappings()
	if mappings.Empty() {
		return transfer.Outcome{}, errors.ErrNotConfigured
	}

	rule, ok := mappings.Resolve(localPath)
	if !ok {
		c.log.WithField("local", localPath).Debug("File is outside of the synced paths")
		return transfer.Outcome{}, errors.ErrNoMatchingMapping
	}

	req := transfer.Request{
		LocalPath:  localPath,
		RemoteHost: remoteHost(rule.RemoteHost, cfg.RemoteUser),
		RemotePath: rule.Destination(localPath),
		AllowRetry: true,
	}
	log := c.log.WithFields(logrus.Fields{
		"sync_id": uuid.New().String(),
		"local":   req.LocalPath,
		"host":    req.RemoteHost,
		"remote":  req.RemotePath,
	})

	c.display.Syncing()
	log.Debug("Syncing file")
	out := c.newCopier(cfg).Copy(ctx, req)
	if out.Success {
		log.WithField("attempts", out.Attempts).Info("Synced file")
		c.display.Succeeded(out.RemotePath)
	} else {
		log.WithError(out.Err).WithField("reason", out.Reason.String()).Warn("Sync failed")
		c.display.Failed()
	}
	return out, nil
}

// Result is sent by SyncAsync once a sync completes.
type Result struct {
	Outcome transfer.Outcome
	Err     error
}

// SyncAsync runs SyncPath in the background. Syncs started by separate calls
// are independent: if two of them write the same remote file, whichever
// finishes last wins.
func (c *Coordinator) SyncAsync(ctx context.Context, localPath string) <-chan Result {
	return c.async(localPath, func() (transfer.Outcome, error) {
		return c.SyncPath(ctx, localPath)
	})
}

// SyncAsyncWithConfig runs SyncWithConfig in the background.
func (c *Coordinator) SyncAsyncWithConfig(ctx context.Context, cfg config.User, localPath string) <-chan Result {
	return c.async(localPath, func() (transfer.Outcome, error) {
		return c.SyncWithConfig(ctx, cfg, localPath)
	})
}

func (c *Coordinator) async(localPath string, sync func() (transfer.Outcome, error)) <-chan Result {
	done := make(chan Result, 1)
	go func() {
		defer close(done)
		defer func() {
			if r := recover(); r != nil {
				c.log.WithField("local", localPath).Errorf("Sync panicked: %v", r)
				done <- Result{Err: errors.New("panic: %v", r)}
			}
		}()

		out, err := sync()
		done <- Result{out, err}
	}()
	return done
}

// Ignorable returns whether `err` only means that there was nothing to sync.
func Ignorable(err error) bool {
	return errors.Is(err, errors.ErrNotConfigured) || errors.Is(err, errors.ErrNoMatchingMapping)
}

func remoteHost(host, user string) string {
	if host == "" || user == "" || strings.Contains(host, "@") {
		return host
	}
	return transfer.HostString(host, user, "")
}
