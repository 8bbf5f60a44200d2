package fswatch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/jonboulle/clockwork"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/sidkik/sync-remote/pkg/errors"
)

var fs = afero.NewOsFs()

// Directories that are never watched.
var alwaysIgnored = []string{".git", ".hg", ".svn"}

// DefaultSettle is how long a file must go without changes before it's
// reported. Editors often write a file in several steps when saving it.
const DefaultSettle = 100 * time.Millisecond

// Watcher reports files that are saved within a set of directory trees.
type Watcher struct {
	watcher *fsnotify.Watcher
	ignored func(path string) bool
	clock   clockwork.Clock
	settle  time.Duration

	lock    sync.Mutex
	pending map[string]clockwork.Timer
}

// Watch starts watching `roots` recursively. Paths for which `ignored`
// returns true are skipped; it may be nil.
func Watch(roots []string, ignored func(string) bool) (*Watcher, error) {
	if ignored == nil {
		ignored = func(string) bool { return false }
	}

	pathsToWatch, err := getPathsToWatch(roots, ignored)
	if err != nil {
		return nil, errors.WithContext(err, "get paths")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.WithContext(err, "create watcher")
	}

	for _, path := range pathsToWatch {
		if err := watcher.Add(path); err != nil {
			// Close the watcher so that we release the file handlers for the
			// previously added paths.
			if err := watcher.Close(); err != nil {
				log.WithError(err).Warn("Failed to close file watcher")
			}

			return nil, errors.WithContext(err, fmt.Sprintf("watch %q", path))
		}
	}

	return &Watcher{
		watcher: watcher,
		ignored: ignored,
		clock:   clockwork.NewRealClock(),
		settle:  DefaultSettle,
		pending: map[string]clockwork.Timer{},
	}, nil
}

// Run calls `onSave` for every file that's written or created until `ctx` is
// cancelled. `onSave` is called from its own goroutine and must not block
// for long.
func (w *Watcher) Run(ctx context.Context, onSave func(path string)) error {
	defer func() {
		if err := w.watcher.Close(); err != nil {
			log.WithError(err).Warn("Failed to close file watcher")
		}
	}()

	for {
		select {
		case <-ctx.Done():
			w.cancelPending()
			return nil
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.handle(event, onSave)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			log.WithError(err).Warn("File watcher error")
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event, onSave func(string)) {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return
	}
	if w.ignored(event.Name) {
		return
	}

	fi, err := fs.Stat(event.Name)
	if err != nil {
		// The file was removed before we got to it, as happens with editors'
		// temporary files.
		log.WithError(err).WithField("path", event.Name).Debug("Failed to stat changed file")
		return
	}

	if fi.IsDir() {
		if event.Has(fsnotify.Create) {
			w.addTree(event.Name, onSave)
		}
		return
	}

	if fi.Mode().IsRegular() {
		w.schedule(event.Name, onSave)
	}
}

// addTree watches a newly created directory. Files that were created in it
// before the watch was added are reported as saved.
func (w *Watcher) addTree(dir string, onSave func(string)) {
	paths, err := getPathsToWatch([]string{dir}, w.ignored)
	if err != nil {
		log.WithError(err).WithField("path", dir).Warn("Failed to list new directory")
		return
	}

	for _, path := range paths {
		if err := w.watcher.Add(path); err != nil {
			log.WithError(err).WithField("path", path).Warn("Failed to watch new directory")
		}

		files, err := afero.ReadDir(fs, path)
		if err != nil {
			continue
		}
		for _, fi := range files {
			child := filepath.Join(path, fi.Name())
			if fi.Mode().IsRegular() && !w.ignored(child) {
				w.schedule(child, onSave)
			}
		}
	}
}

// schedule reports `path` once it hasn't changed for the settle duration.
func (w *Watcher) schedule(path string, onSave func(string)) {
	w.lock.Lock()
	defer w.lock.Unlock()

	if timer, ok := w.pending[path]; ok {
		timer.Stop()
	}

	var timer clockwork.Timer
	timer = w.clock.AfterFunc(w.settle, func() {
		w.lock.Lock()
		current, ok := w.pending[path]
		if ok && current == timer {
			delete(w.pending, path)
		}
		w.lock.Unlock()

		if ok && current == timer {
			onSave(path)
		}
	})
	w.pending[path] = timer
}

func (w *Watcher) cancelPending() {
	w.lock.Lock()
	defer w.lock.Unlock()

	for path, timer := range w.pending {
		timer.Stop()
		delete(w.pending, path)
	}
}

// getPathsToWatch returns every directory within `roots`. Watching a
// directory reports events for the files directly inside it, and fsnotify
// doesn't watch recursively.
func getPathsToWatch(roots []string, ignored func(string) bool) (paths []string, err error) {
	for _, root := range roots {
		fi, err := fs.Stat(root)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, errors.FileNotFound{Path: root}
			}
			return nil, errors.WithContext(err, "stat")
		}

		if !fi.IsDir() {
			return nil, errors.New("%q is not a directory", root)
		}

		err = afero.Walk(fs, root, func(path string, fi os.FileInfo, err error) error {
			if err != nil {
				return errors.WithContext(err, "walk error")
			}

			if !fi.IsDir() {
				return nil
			}

			if path != root && (isAlwaysIgnored(fi.Name()) || ignored(path)) {
				return filepath.SkipDir
			}

			paths = append(paths, path)
			return nil
		})
		if err != nil {
			return nil, errors.WithContext(err, "get subdirs")
		}
	}
	return paths, nil
}

func isAlwaysIgnored(name string) bool {
	for _, ignored := range alwaysIgnored {
		if name == ignored {
			return true
		}
	}
	return false
}
