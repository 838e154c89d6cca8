package kernel

import (
	"fmt"
	"runtime"
)

// exitSignal unwinds a thread's stack on Exit so its deferred calls run while
// it still holds the CPU.
type exitSignal struct{}

// Create starts a thread running fn(arg) at priority pri and returns its id.
// The new thread is Ready; if it outranks the caller it runs before Create
// returns.
func (k *Kernel) Create(name string, pri int, fn func(arg any), arg any) (TID, error) {
	if pri < PriMin || pri > PriMax {
		return TIDError, fmt.Errorf("create %q at %d: %w", name, pri, ErrBadPriority)
	}
	old := k.IntrDisable()
	t, err := k.alloc(name, pri, fn, arg)
	if err != nil {
		k.IntrSetLevel(old)
		return TIDError, fmt.Errorf("create %q: %w", name, err)
	}
	k.policy.Fork(k, k.current, t)
	k.trace(EvCreate, t, 0)
	go k.start(t)
	k.makeReady(t)
	k.IntrSetLevel(old)
	return t.id, nil
}

// start is the body of every thread goroutine.
func (k *Kernel) start(t *Thread) {
	if !k.park(t) {
		return
	}
	k.tail()
	k.IntrEnable()
	if !k.call(t) || k.halted() {
		return
	}
	if t == k.initial {
		k.log.WriteLineString("kernel: power off")
		k.halt(nil, nil)
		return
	}
	k.exit(t)
}

func (k *Kernel) call(t *Thread) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			if _, exit := r.(exitSignal); exit {
				ok = true
				return
			}
			k.fail(t, r)
		}
	}()
	t.fn(t.arg)
	return true
}

// Exit terminates the calling thread. Deferred calls run first.
func (k *Kernel) Exit() {
	k.assert(!k.inIntr, "thread exit in interrupt context")
	panic(exitSignal{})
}

func (k *Kernel) exit(t *Thread) {
	k.IntrDisable()
	t.status = StatusDying
	k.trace(EvExit, t, 0)
	k.schedule()
}

// Current returns the running thread.
func (k *Kernel) Current() *Thread { return k.current }

// CurrentID returns the running thread's id.
func (k *Kernel) CurrentID() TID { return k.current.id }

// Lookup returns the live thread with the given id.
func (k *Kernel) Lookup(id TID) (*Thread, bool) {
	defer k.Enter().Leave()
	t := k.thread(id)
	return t, t != nil
}

// Block puts the running thread to sleep until Unblock. Interrupts must be
// off; callers normally use a synchronization primitive instead.
func (k *Kernel) Block() {
	k.assert(!k.inIntr, "block in interrupt context")
	k.AssertLevel(LevelOff)
	k.current.status = StatusBlocked
	k.trace(EvBlock, k.current, 0)
	k.schedule()
}

// Unblock makes a blocked thread ready. It does not preempt the caller while
// interrupts are off; the switch happens when they are turned back on.
func (k *Kernel) Unblock(id TID) error {
	defer k.Enter().Leave()
	t := k.thread(id)
	if t == nil {
		return fmt.Errorf("unblock %d: %w", id, ErrNoSuchThread)
	}
	k.unblock(t)
	return nil
}

func (k *Kernel) unblock(t *Thread) {
	k.assert(t.status == StatusBlocked, "unblock of a thread that is not blocked")
	k.makeReady(t)
	k.trace(EvUnblock, t, 0)
}

func (k *Kernel) makeReady(t *Thread) {
	t.status = StatusReady
	k.insertByPriority(&k.ready, t)
	if cur := k.current; cur != nil && (cur == k.idle || t.priority > cur.priority) {
		k.resched = true
	}
}

// Yield gives the CPU to the highest-priority ready thread. The caller keeps
// running if nothing else is ready at its priority or above.
func (k *Kernel) Yield() {
	k.assert(!k.inIntr, "yield in interrupt context")
	old := k.IntrDisable()
	cur := k.current
	if cur == k.idle {
		// The idle thread is never queued.
		cur.status = StatusBlocked
	} else {
		cur.status = StatusReady
		k.insertByPriority(&k.ready, cur)
	}
	k.trace(EvYield, cur, 0)
	k.schedule()
	k.IntrSetLevel(old)
}

// checkPreempt requests a reschedule when a ready thread outranks the
// running one.
func (k *Kernel) checkPreempt() {
	cur := k.current
	if id, ok := k.ready.front(); ok && (cur == k.idle || k.priorityOf(id) > cur.priority) {
		k.resched = true
	}
}

func (k *Kernel) nextToRun() *Thread {
	if id, ok := k.ready.pop(); ok {
		return k.thread(id)
	}
	return k.idle
}

// schedule switches to the next thread. The running thread must already have
// left the Running state. It returns when the caller is dispatched again, or
// right after the hand-off when the caller is dying.
func (k *Kernel) schedule() {
	k.AssertLevel(LevelOff)
	cur := k.current
	k.assert(cur.status != StatusRunning, "schedule from a running thread")

	next := k.nextToRun()
	next.status = StatusRunning
	k.sliceTicks = 0
	k.resched = false
	if next == cur {
		return
	}
	k.prev = cur
	k.current = next
	k.trace(EvDispatch, next, cur.id)

	dying := cur.status == StatusDying
	next.run <- struct{}{}
	if dying {
		return
	}
	if !k.park(cur) {
		runtime.Goexit()
	}
	k.tail()
}

// park waits until t is dispatched. It reports false after power-off.
func (k *Kernel) park(t *Thread) bool {
	select {
	case <-t.run:
		return true
	case <-k.done:
		return false
	}
}

// tail runs on the newly dispatched thread and reclaims the previous one if
// it was dying.
func (k *Kernel) tail() {
	prev := k.prev
	k.prev = nil
	if prev != nil && prev.status == StatusDying {
		k.reap(prev)
	}
}

// idleLoop runs when nothing else is ready. It halts the CPU until an
// interrupt arrives, then lets the handler's wakeups take over.
func (k *Kernel) idleLoop() {
	for {
		k.IntrDisable()
		k.current.status = StatusBlocked
		k.schedule()

		if k.pending.Load() == 0 {
			select {
			case <-k.irq:
			case <-k.done:
				return
			}
		}
		k.IntrEnable()
	}
}
