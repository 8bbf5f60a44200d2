package watch

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/ssh/terminal"

	"github.com/sidkik/sync-remote/cmd/util"
	"github.com/sidkik/sync-remote/pkg/config"
	"github.com/sidkik/sync-remote/pkg/errors"
	"github.com/sidkik/sync-remote/pkg/fswatch"
	"github.com/sidkik/sync-remote/pkg/mapping"
	"github.com/sidkik/sync-remote/pkg/status"
	"github.com/sidkik/sync-remote/pkg/syncer"
)

// Mocked for unit testing.
var isTerminal = func() bool {
	return terminal.IsTerminal(int(os.Stdout.Fd()))
}

type coordinator interface {
	SyncAsyncWithConfig(ctx context.Context, cfg config.User, localPath string) <-chan syncer.Result
}

// New creates a new `watch` command.
func New() *cobra.Command {
	var flags util.ConfigFlags
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Sync files to the remote host whenever they're saved",
		Long: "Watch the configured local directories and copy each file to\n" +
			"its remote destination after it's saved. The config file is\n" +
			"re-read before every sync, so changes take effect immediately.",
		Args: cobra.NoArgs,
		Run: func(_ *cobra.Command, _ []string) {
			if err := run(flags); err != nil {
				util.HandleFatalError(err)
			}
		},
	}
	flags.Bind(cmd)
	return cmd
}

func run(flags util.ConfigFlags) error {
	cfg, err := flags.Load()
	if err != nil {
		return err
	}
	if !cfg.Configured() {
		return util.ErrNotConfigured
	}

	var sink status.Sink = status.LogSink{Log: log.StandardLogger()}
	if isTerminal() {
		sink = status.NewTerminalSink(os.Stdout)
	}
	display := status.NewDisplay(sink, nil, cfg.GetStatusDuration())
	defer display.Detach()

	roots := watchRoots(cfg.Mappings())
	ignored := []func(string) bool{cfg.Ignored}
	if cfg.RespectGitignore {
		for _, root := range roots {
			fn, err := fswatch.GitIgnored(root)
			if err != nil {
				log.WithError(err).WithField("path", root).Warn("Failed to read .gitignore")
				continue
			}
			ignored = append(ignored, fn)
		}
	}

	watcher, err := fswatch.Watch(roots, fswatch.AnyIgnored(ignored...))
	if err != nil {
		if fnf, ok := errors.RootCause(err).(errors.FileNotFound); ok {
			return errors.NewFriendlyError("Local path %q doesn't exist. "+
				"Run `sync-remote config` to fix it.", fnf.Path)
		}
		return errors.WithContext(err, "watch local paths")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	handler := &saveHandler{
		coordinator: syncer.New(flags.Load, display),
		load:        flags.Load,
		display:     display,
	}
	log.WithField("paths", roots).Info("Watching for saved files")
	err = watcher.Run(ctx, handler.handle)

	// Transfers aren't cancelled once started, so let them finish.
	handler.wait()
	return err
}

// saveHandler starts a sync for every saved file. Syncs that were started
// run to completion even after the watcher stops.
type saveHandler struct {
	coordinator coordinator
	load        syncer.ConfigSource
	display     *status.Display

	inFlight sync.WaitGroup
}

// handle starts a sync of `path` unless syncing on save is disabled or the
// file is ignored. The config is loaded once and handed to the sync.
func (h *saveHandler) handle(path string) {
	cfg, err := h.load()
	if err != nil {
		log.WithError(err).WithField("local", path).Warn("Failed to load config")
		h.display.Failed()
		return
	}
	if !cfg.ShouldSyncOnSave() || cfg.Ignored(path) {
		log.WithField("local", path).Debug("Skipping saved file")
		return
	}

	h.inFlight.Add(1)
	done := h.coordinator.SyncAsyncWithConfig(context.Background(), cfg, path)
	go func() {
		defer h.inFlight.Done()
		res := <-done
		if syncer.Ignorable(res.Err) {
			log.WithField("local", path).Debug("No mapping for saved file")
		}
	}()
}

// wait blocks until every started sync has finished.
func (h *saveHandler) wait() {
	h.inFlight.Wait()
}

// watchRoots returns the local directories to watch, without duplicates.
func watchRoots(set mapping.Set) []string {
	seen := map[string]struct{}{}
	var roots []string
	for _, rule := range set {
		root := mapping.Expand(rule.LocalRoot)
		if _, ok := seen[root]; ok {
			continue
		}
		seen[root] = struct{}{}
		roots = append(roots, root)
	}
	return roots
}
