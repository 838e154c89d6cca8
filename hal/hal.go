package hal

import (
	"errors"
	"fmt"
)

// Logger writes newline-delimited log lines.
type Logger interface {
	WriteLineString(s string)
	WriteLineBytes(b []byte)
}

// ErrTimerRunning is returned when programming a timer that already runs.
var ErrTimerRunning = errors.New("timer already programmed")

// Timer is a periodic interrupt source.
//
// Program starts raising irq hz times per second. The handler is called from
// the timer's own goroutine and must not block.
type Timer interface {
	Program(hz int, irq func()) error
	Stop()
}

// HAL provides the only contact point between the kernel and the outside world.
type HAL interface {
	Logger() Logger
	Timer() Timer
}

// PIT input clock in Hz.
const pitClockHz = 1193180

// PIT frequency bounds. Below 19 Hz the 16-bit divisor overflows.
const (
	MinTimerHz = 19
	MaxTimerHz = 1000
)

// Divisor returns the 8254 counter-0 divisor for hz, rounded to nearest.
func Divisor(hz int) (uint16, error) {
	if hz < MinTimerHz || hz > MaxTimerHz {
		return 0, fmt.Errorf("timer %d Hz outside [%d, %d]", hz, MinTimerHz, MaxTimerHz)
	}
	return uint16((pitClockHz + hz/2) / hz), nil
}

type discard struct{}

func (discard) WriteLineString(string) {}
func (discard) WriteLineBytes([]byte)  {}

// Discard is a Logger that drops everything.
var Discard Logger = discard{}
