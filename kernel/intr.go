package kernel

// Level is the interrupt-enable state of the CPU.
type Level uint8

const (
	LevelOff Level = iota
	LevelOn
)

func (l Level) String() string {
	if l == LevelOn {
		return "on"
	}
	return "off"
}

// Interrupt raises the timer interrupt line. It is safe to call from any
// goroutine; the handler runs on the CPU the next time the running thread has
// interrupts enabled and passes through the kernel, or immediately when the
// CPU is idle.
func (k *Kernel) Interrupt() {
	k.pending.Add(1)
	select {
	case k.irq <- struct{}{}:
	default:
	}
}

// IntrLevel returns the current interrupt level.
func (k *Kernel) IntrLevel() Level { return k.level }

// InInterrupt reports whether an interrupt handler is running.
func (k *Kernel) InInterrupt() bool { return k.inIntr }

// AssertLevel halts the kernel unless interrupts are at level l.
func (k *Kernel) AssertLevel(l Level) {
	k.assert(k.level == l, "interrupts must be "+l.String())
}

// IntrDisable turns interrupts off and returns the previous level.
func (k *Kernel) IntrDisable() Level {
	if k.halted() {
		// The machine is powered off; nothing may touch scheduler state.
		select {}
	}
	old := k.level
	k.level = LevelOff
	return old
}

// IntrEnable turns interrupts on and returns the previous level. Pending
// interrupts are delivered and a preemption requested while they were off
// takes effect before it returns.
func (k *Kernel) IntrEnable() Level {
	k.assert(!k.inIntr, "interrupts enabled inside an interrupt handler")
	old := k.level
	k.level = LevelOn
	k.deliver()
	return old
}

// IntrSetLevel sets the interrupt level and returns the previous one.
func (k *Kernel) IntrSetLevel(l Level) Level {
	if l == LevelOn {
		return k.IntrEnable()
	}
	return k.IntrDisable()
}

// CriticalSection is a scope with interrupts disabled.
//
//	defer k.Enter().Leave()
type CriticalSection struct {
	k    *Kernel
	prev Level
}

// Enter disables interrupts until the returned section is left.
func (k *Kernel) Enter() CriticalSection {
	return CriticalSection{k: k, prev: k.IntrDisable()}
}

// Leave restores the interrupt level saved by Enter.
func (cs CriticalSection) Leave() {
	cs.k.IntrSetLevel(cs.prev)
}

// deliver runs pending interrupt handlers and honors a pending reschedule.
// It only acts while interrupts are on outside of a handler.
func (k *Kernel) deliver() {
	for k.level == LevelOn && !k.inIntr {
		switch {
		case k.pending.Load() > 0:
			k.pending.Add(-1)
			k.level = LevelOff
			k.inIntr = true
			k.timerInterrupt()
			k.inIntr = false
			k.level = LevelOn
		case k.resched:
			k.resched = false
			k.Yield()
		default:
			return
		}
	}
}

// poll delivers interrupts that arrived while the running thread spins.
func (k *Kernel) poll() {
	if k.pending.Load() > 0 || k.resched {
		k.deliver()
	}
}
