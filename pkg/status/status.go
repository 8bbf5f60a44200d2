// Package status reports sync progress to a display surface, such as a
// terminal status line.
package status

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	log "github.com/sirupsen/logrus"
)

// Class hints at how a status should be styled.
type Class int

const (
	// None is used when clearing the status.
	None Class = iota
	Subtle
	Success
	Error
)

func (c Class) String() string {
	switch c {
	case Subtle:
		return "subtle"
	case Success:
		return "success"
	case Error:
		return "error"
	default:
		return "none"
	}
}

// Labels shown while syncing.
const (
	SyncingLabel = "Syncing..."
	FailedLabel  = "Sync failed :("
	remotePrefix = "Remote: "
)

// DefaultDuration is how long a terminal status stays on screen.
const DefaultDuration = 3 * time.Second

// Sink displays a single line of status text.
type Sink interface {
	SetStatus(text string, class Class)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(text string, class Class)

// SetStatus implements Sink.
func (f SinkFunc) SetStatus(text string, class Class) {
	f(text, class)
}

// Display shows sync progress on a Sink. Successes and failures are cleared
// after a fixed duration. Only one clear is pending at a time: every update
// cancels the previous one, so the most recent status always wins.
type Display struct {
	clock    clockwork.Clock
	duration time.Duration

	lock  sync.Mutex
	sink  Sink
	timer clockwork.Timer
	// gen is incremented on every update so that a clear that was already
	// firing when it got cancelled doesn't erase a newer status.
	gen uint64
}

// NewDisplay creates a Display. A nil sink makes every update a no-op.
func NewDisplay(sink Sink, clock clockwork.Clock, duration time.Duration) *Display {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if duration <= 0 {
		duration = DefaultDuration
	}
	return &Display{sink: sink, clock: clock, duration: duration}
}

// Syncing shows that a transfer is in progress.
func (d *Display) Syncing() {
	d.show(SyncingLabel, Subtle, false)
}

// Succeeded shows the remote path the file was copied to.
func (d *Display) Succeeded(remotePath string) {
	d.show(remotePrefix+remotePath, Success, true)
}

// Failed shows that the transfer failed.
func (d *Display) Failed() {
	d.show(FailedLabel, Error, true)
}

// Detach disconnects the sink, for example when the UI is torn down. Later
// updates are silently dropped.
func (d *Display) Detach() {
	d.lock.Lock()
	defer d.lock.Unlock()

	d.stopTimer()
	d.sink = nil
	d.gen++
}

func (d *Display) show(text string, class Class, clearLater bool) {
	d.lock.Lock()
	defer d.lock.Unlock()

	d.stopTimer()
	d.gen++
	d.emit(text, class)

	if clearLater && d.sink != nil {
		gen := d.gen
		d.timer = d.clock.AfterFunc(d.duration, func() {
			d.clear(gen)
		})
	}
}

func (d *Display) clear(gen uint64) {
	d.lock.Lock()
	defer d.lock.Unlock()

	if gen != d.gen {
		return
	}
	d.timer = nil
	d.emit("", None)
}

func (d *Display) stopTimer() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

// emit must be called with the lock held.
func (d *Display) emit(text string, class Class) {
	if d.sink == nil {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			log.WithField("panic", r).Warn("Status display failed. Detaching it")
			d.sink = nil
		}
	}()
	d.sink.SetStatus(text, class)
}
