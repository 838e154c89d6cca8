//go:build !tinygo

package hal

import (
	"fmt"
	"io"
	"os"
	"sync"
)

type hostHAL struct {
	logger *hostLogger
	timer  *hostTimer
}

// New returns a host HAL implementation logging to stdout.
func New() HAL {
	return NewWithOutput(os.Stdout)
}

// NewWithOutput returns a host HAL logging to w.
func NewWithOutput(w io.Writer) HAL {
	return &hostHAL{
		logger: &hostLogger{w: w},
		timer:  newHostTimer(),
	}
}

func (h *hostHAL) Logger() Logger { return h.logger }
func (h *hostHAL) Timer() Timer   { return h.timer }

type hostLogger struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *hostLogger) WriteLineString(s string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintln(l.w, s)
}

func (l *hostLogger) WriteLineBytes(b []byte) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.w.Write(b)
	l.w.Write([]byte{'\n'})
}
