package status

import (
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
)

// LogSink writes statuses as log entries. Cleared statuses aren't logged.
type LogSink struct {
	Log logrus.FieldLogger
}

// SetStatus implements Sink.
func (s LogSink) SetStatus(text string, class Class) {
	if text == "" {
		return
	}

	entry := s.Log.WithField("status", class.String())
	switch class {
	case Error:
		entry.Warn(text)
	case Subtle:
		entry.Debug(text)
	default:
		entry.Info(text)
	}
}

// eraseLine moves the cursor to the start of the line and clears it.
const eraseLine = "\r\x1b[K"

// TerminalSink rewrites a single status line in a terminal.
type TerminalSink struct {
	out    io.Writer
	lock   sync.Mutex
	styles map[Class]*color.Color
}

// NewTerminalSink creates a sink that writes to `out`.
func NewTerminalSink(out io.Writer) *TerminalSink {
	return &TerminalSink{
		out: out,
		styles: map[Class]*color.Color{
			Subtle:  color.New(color.Faint),
			Success: color.New(color.FgGreen),
			Error:   color.New(color.FgRed, color.Bold),
		},
	}
}

// SetStatus implements Sink.
func (s *TerminalSink) SetStatus(text string, class Class) {
	s.lock.Lock()
	defer s.lock.Unlock()

	if style, ok := s.styles[class]; ok {
		text = style.Sprint(text)
	}
	fmt.Fprint(s.out, eraseLine+text)
}
