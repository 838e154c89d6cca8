package kernel

// Lock is a non-recursive mutual exclusion lock with priority donation.
//
// A thread that blocks on a held lock donates its effective priority to the
// holder and, transitively, to whoever the holder waits behind.
type Lock struct {
	k      *Kernel
	holder *Thread
	sema   Semaphore
}

// NewLock returns an unlocked lock.
func (k *Kernel) NewLock() *Lock {
	return &Lock{k: k, sema: Semaphore{k: k, value: 1}}
}

// Acquire waits until the lock is free and takes it.
// It must not be called from an interrupt handler, with interrupts off, or by
// the current holder.
func (l *Lock) Acquire() {
	k := l.k
	k.assert(!k.inIntr, "lock acquire in interrupt context")
	k.AssertLevel(LevelOn)
	k.assert(l.holder != k.current, "recursive lock acquire")

	old := k.IntrDisable()
	cur := k.current
	for l.sema.value == 0 {
		if l.holder != nil && !k.policy.Feedback() {
			cur.waitOn = l
			l.holder.donations = append(l.holder.donations, donation{donor: cur.id, lock: l})
			k.trace(EvDonate, cur, l.holder.id)
			k.refresh(l.holder)
		}
		l.sema.wait()
	}
	l.sema.value--
	cur.waitOn = nil
	l.holder = cur
	l.inherit()
	k.IntrSetLevel(old)
}

// TryAcquire takes the lock if it is free, without waiting. Threads still
// queued on the lock donate to the caller as they would after Acquire.
func (l *Lock) TryAcquire() bool {
	k := l.k
	k.assert(l.holder != k.current, "recursive lock acquire")
	defer k.Enter().Leave()
	if l.sema.value == 0 {
		return false
	}
	l.sema.value--
	l.holder = k.current
	l.inherit()
	return true
}

// Release frees the lock and wakes its highest-priority waiter. Donations
// received through the lock are dropped. Only the holder may release.
func (l *Lock) Release() {
	k := l.k
	old := k.IntrDisable()
	cur := k.current
	k.assert(l.holder == cur, "lock release by a thread that does not hold it")

	l.holder = nil
	cur.dropDonations(l)
	k.refresh(cur)
	l.sema.up()
	k.checkPreempt()
	k.IntrSetLevel(old)
}

// Held reports whether the running thread holds the lock.
func (l *Lock) Held() bool {
	defer l.k.Enter().Leave()
	return l.holder != nil && l.holder == l.k.current
}

// Holder returns the holder's id, or false if the lock is free.
func (l *Lock) Holder() (TID, bool) {
	defer l.k.Enter().Leave()
	if l.holder == nil {
		return 0, false
	}
	return l.holder.id, true
}

// inherit makes the threads still queued on the lock donate to its new
// holder.
func (l *Lock) inherit() {
	k := l.k
	if k.policy.Feedback() || len(l.sema.waiters) == 0 {
		return
	}
	h := l.holder
	for _, id := range l.sema.waiters {
		h.donations = append(h.donations, donation{donor: id, lock: l})
	}
	k.refresh(h)
}

// refresh recomputes t's effective priority as the maximum of its base
// priority and its donors', then follows the chain of locks the changed
// thread is waiting on. The walk stops when a priority does not change or at
// a thread that waits on no lock.
func (k *Kernel) refresh(t *Thread) {
	for depth := 0; t != nil; depth++ {
		k.assert(depth < k.cfg.MaxDonationDepth, "priority donation chain too deep")

		p := t.base
		for _, d := range t.donations {
			if dt := k.thread(d.donor); dt != nil && dt.priority > p {
				p = dt.priority
			}
		}
		if p == t.priority {
			return
		}
		t.priority = p
		if t.status == StatusReady {
			k.sortByPriority(k.ready)
		}
		if t.waitOn == nil {
			return
		}
		t = t.waitOn.holder
	}
}
