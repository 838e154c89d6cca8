package kernel

// Cond is a condition variable. Each waiter blocks on a semaphore of its own,
// so a signal reaches exactly the thread it was meant for.
type Cond struct {
	k       *Kernel
	waiters []*condWaiter
}

type condWaiter struct {
	id   TID
	sema Semaphore
}

// NewCond returns a condition variable with no waiters.
func (k *Kernel) NewCond() *Cond {
	return &Cond{k: k}
}

// Wait atomically releases l and waits for a signal, then reacquires l.
// The caller must hold l and should recheck its predicate on return.
func (c *Cond) Wait(l *Lock) {
	k := c.k
	k.assert(!k.inIntr, "cond wait in interrupt context")
	k.assert(l.Held(), "cond wait without holding the lock")

	w := &condWaiter{id: k.current.id, sema: Semaphore{k: k}}
	c.waiters = append(c.waiters, w)
	l.Release()
	w.sema.Down()
	l.Acquire()
}

// Signal wakes the highest-priority waiter, if any. The caller must hold l.
func (c *Cond) Signal(l *Lock) {
	k := c.k
	k.assert(!k.inIntr, "cond signal in interrupt context")
	k.assert(l.Held(), "cond signal without holding the lock")

	if len(c.waiters) == 0 {
		return
	}
	best := 0
	for i, w := range c.waiters {
		if k.priorityOf(w.id) > k.priorityOf(c.waiters[best].id) {
			best = i
		}
	}
	w := c.waiters[best]
	c.waiters = append(c.waiters[:best], c.waiters[best+1:]...)
	w.sema.Up()
}

// Broadcast wakes all waiters. The caller must hold l.
func (c *Cond) Broadcast(l *Lock) {
	for len(c.waiters) > 0 {
		c.Signal(l)
	}
}

// Len returns the number of waiters.
func (c *Cond) Len() int { return len(c.waiters) }
