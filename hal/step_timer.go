package hal

import "sync"

// StepTimer is a Timer that fires only when stepped. Tests and the window
// runner use it to drive ticks explicitly.
type StepTimer struct {
	mu  sync.Mutex
	hz  int
	irq func()
	seq uint64
}

// NewStepTimer returns an unprogrammed StepTimer.
func NewStepTimer() *StepTimer { return &StepTimer{} }

func (t *StepTimer) Program(hz int, irq func()) error {
	if _, err := Divisor(hz); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.irq != nil {
		return ErrTimerRunning
	}
	t.hz = hz
	t.irq = irq
	return nil
}

func (t *StepTimer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.irq = nil
}

// Hz returns the programmed frequency, or 0.
func (t *StepTimer) Hz() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.hz
}

// Step fires n interrupts and returns the total fired so far.
func (t *StepTimer) Step(n int) uint64 {
	t.mu.Lock()
	irq := t.irq
	if irq != nil {
		t.seq += uint64(n)
	}
	seq := t.seq
	t.mu.Unlock()
	if irq == nil {
		return seq
	}
	for i := 0; i < n; i++ {
		irq()
	}
	return seq
}
