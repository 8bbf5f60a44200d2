package watch

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/sidkik/sync-remote/pkg/config"
	"github.com/sidkik/sync-remote/pkg/errors"
	"github.com/sidkik/sync-remote/pkg/mapping"
	"github.com/sidkik/sync-remote/pkg/status"
	"github.com/sidkik/sync-remote/pkg/syncer"
)

type mockCoordinator struct {
	mock.Mock
	release chan struct{}
}

func (m *mockCoordinator) SyncAsyncWithConfig(ctx context.Context, cfg config.User,
	path string) <-chan syncer.Result {

	m.Called(ctx, cfg, path)
	ch := make(chan syncer.Result, 1)
	go func() {
		if m.release != nil {
			<-m.release
		}
		ch <- syncer.Result{}
		close(ch)
	}()
	return ch
}

func TestHandleSave(t *testing.T) {
	disabled := false
	base := config.User{
		LocalPath:  "/proj",
		RemotePath: "/srv/proj",
		RemoteHost: "web",
	}
	withSyncOnSave := base
	withSyncOnSave.SyncOnSave = &disabled
	withIgnore := base
	withIgnore.Ignore = []string{"*.swp"}

	tests := []struct {
		name      string
		cfg       config.User
		cfgErr    error
		path      string
		expSync   bool
		expFailed bool
	}{
		{
			name:    "Sync on save by default",
			cfg:     base,
			path:    "/proj/main.go",
			expSync: true,
		},
		{
			name: "Sync on save disabled",
			cfg:  withSyncOnSave,
			path: "/proj/main.go",
		},
		{
			name: "Ignored file",
			cfg:  withIgnore,
			path: "/proj/.main.go.swp",
		},
		{
			name:      "Config error",
			cfgErr:    errors.New("bad yaml"),
			path:      "/proj/main.go",
			expFailed: true,
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			c := &mockCoordinator{}
			if test.expSync {
				// The loaded config is passed on, and the transfer isn't
				// tied to the watcher's lifetime.
				c.On("SyncAsyncWithConfig", context.Background(), test.cfg, test.path).Once()
			}

			var statuses []string
			sink := status.SinkFunc(func(text string, _ status.Class) {
				statuses = append(statuses, text)
			})

			loads := 0
			h := &saveHandler{
				coordinator: c,
				load: func() (config.User, error) {
					loads++
					return test.cfg, test.cfgErr
				},
				display: status.NewDisplay(sink, clockwork.NewFakeClock(), time.Second),
			}
			h.handle(test.path)
			h.wait()

			c.AssertExpectations(t)
			assert.Equal(t, 1, loads)
			if test.expFailed {
				assert.Equal(t, []string{status.FailedLabel}, statuses)
			} else {
				assert.Empty(t, statuses)
			}
		})
	}
}

func TestHandleSaveWaitsForTransfers(t *testing.T) {
	c := &mockCoordinator{release: make(chan struct{})}
	c.On("SyncAsyncWithConfig", mock.Anything, mock.Anything, "/proj/main.go")

	h := &saveHandler{
		coordinator: c,
		load: func() (config.User, error) {
			return config.User{LocalPath: "/proj", RemotePath: "/srv"}, nil
		},
		display: status.NewDisplay(nil, clockwork.NewFakeClock(), time.Second),
	}
	h.handle("/proj/main.go")

	var waited int32
	go func() {
		h.wait()
		atomic.StoreInt32(&waited, 1)
	}()

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(0), atomic.LoadInt32(&waited))

	close(c.release)
	assert.Eventually(t, func() bool {
		return atomic.LoadInt32(&waited) == 1
	}, time.Second, time.Millisecond)
}

func TestWatchRoots(t *testing.T) {
	set := mapping.Parse("/a,/b,/a", "/x,/y,/z", "web")
	assert.Equal(t, []string{"/a", "/b"}, watchRoots(set))
	assert.Empty(t, watchRoots(nil))
}
