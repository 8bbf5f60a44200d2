package sync

import (
	"context"
	"fmt"
	"path/filepath"

	multierror "github.com/hashicorp/go-multierror"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sidkik/sync-remote/cmd/util"
	"github.com/sidkik/sync-remote/pkg/config"
	"github.com/sidkik/sync-remote/pkg/errors"
	"github.com/sidkik/sync-remote/pkg/status"
	"github.com/sidkik/sync-remote/pkg/syncer"
)

// Mocked for unit testing.
var (
	absPath        = filepath.Abs
	newCoordinator = func(load syncer.ConfigSource, display *status.Display) coordinator {
		return syncer.New(load, display)
	}
)

type coordinator interface {
	SyncAsync(ctx context.Context, localPath string) <-chan syncer.Result
}

// New creates a new `sync` command.
func New() *cobra.Command {
	var flags util.ConfigFlags
	cmd := &cobra.Command{
		Use:   "sync FILE...",
		Short: "Copy files to their remote destinations",
		Long: "Copy the given files to the remote hosts configured for their\n" +
			"directories. Files are synced even if syncOnSave is disabled.",
		Args: cobra.MinimumNArgs(1),
		Run: func(_ *cobra.Command, args []string) {
			if err := run(flags, args); err != nil {
				util.HandleFatalError(err)
			}
		},
	}
	flags.Bind(cmd)
	return cmd
}

func run(flags util.ConfigFlags, paths []string) error {
	cfg, err := flags.Load()
	if err != nil {
		return err
	}
	if !cfg.Configured() {
		return util.ErrNotConfigured
	}

	display := status.NewDisplay(status.LogSink{Log: log.StandardLogger()}, nil, cfg.GetStatusDuration())
	c := newCoordinator(func() (config.User, error) { return cfg, nil }, display)
	return syncAll(context.Background(), c, paths)
}

// syncAll starts every sync at once and waits for all of them to finish.
func syncAll(ctx context.Context, c coordinator, paths []string) error {
	var result *multierror.Error
	var pending []<-chan syncer.Result
	var started []string
	for _, path := range paths {
		abs, err := absPath(path)
		if err != nil {
			result = multierror.Append(result, errors.WithContext(err, path))
			continue
		}
		pending = append(pending, c.SyncAsync(ctx, abs))
		started = append(started, abs)
	}

	for i, ch := range pending {
		res := <-ch
		switch {
		case errors.Is(res.Err, errors.ErrNoMatchingMapping):
			result = multierror.Append(result,
				fmt.Errorf("%s is not within any configured local path", started[i]))
		case res.Err != nil:
			result = multierror.Append(result, errors.WithContext(res.Err, started[i]))
		case !res.Outcome.Success:
			result = multierror.Append(result, errors.WithContext(res.Outcome.Err, started[i]))
		}
	}

	if err := result.ErrorOrNil(); err != nil {
		return errors.NewFriendlyError("Failed to sync:\n%s", err)
	}
	return nil
}
