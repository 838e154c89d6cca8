//go:build !tinygo

package hal

import (
	"sync"
	"time"
)

// hostTimer stands in for the 8254 PIT with a time.Ticker.
type hostTimer struct {
	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
	div  uint16
}

func newHostTimer() *hostTimer {
	return &hostTimer{}
}

func (t *hostTimer) Program(hz int, irq func()) error {
	div, err := Divisor(hz)
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stop != nil {
		return ErrTimerRunning
	}
	t.div = div
	t.stop = make(chan struct{})
	t.done = make(chan struct{})

	// The real counter runs at pitClockHz / div.
	period := time.Second * time.Duration(div) / pitClockHz
	go t.loop(period, irq, t.stop, t.done)
	return nil
}

func (t *hostTimer) loop(period time.Duration, irq func(), stop, done chan struct{}) {
	defer close(done)
	tk := time.NewTicker(period)
	defer tk.Stop()
	for {
		select {
		case <-stop:
			return
		case <-tk.C:
			irq()
		}
	}
}

func (t *hostTimer) Stop() {
	t.mu.Lock()
	stop, done := t.stop, t.done
	t.stop, t.done = nil, nil
	t.mu.Unlock()
	if stop == nil {
		return
	}
	close(stop)
	<-done
}
