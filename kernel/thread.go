package kernel

import (
	"sort"

	"kthread/kernel/fixed"
)

// Thread priorities.
const (
	PriMin     = 0
	PriDefault = 31
	PriMax     = 63
)

// TID identifies a thread. Identifiers are never reused.
type TID int32

// TIDError is returned by Create on failure.
const TIDError TID = -1

// Status is a thread's lifecycle state.
type Status uint8

const (
	StatusRunning Status = iota
	StatusReady
	StatusBlocked
	StatusDying
)

func (s Status) String() string {
	switch s {
	case StatusRunning:
		return "running"
	case StatusReady:
		return "ready"
	case StatusBlocked:
		return "blocked"
	case StatusDying:
		return "dying"
	default:
		return "unknown"
	}
}

// donation records that donor is blocked on lock, which the receiving thread
// holds.
type donation struct {
	donor TID
	lock  *Lock
}

// Thread is a thread control block.
//
// Accessors read scheduler-owned fields and must be called from a kernel
// thread or with interrupts off.
type Thread struct {
	id     TID
	name   string
	status Status

	base     int
	priority int // effective
	wakeAt   int64

	waitOn    *Lock
	donations []donation

	nice      int
	recentCPU fixed.Q
	ticks     int64

	fn  func(arg any)
	arg any
	run chan struct{}
}

func (t *Thread) ID() TID           { return t.id }
func (t *Thread) Name() string      { return t.name }
func (t *Thread) Status() Status    { return t.status }
func (t *Thread) Priority() int     { return t.priority }
func (t *Thread) BasePriority() int { return t.base }

// WakeAt returns the tick a sleeping thread waits for, or 0.
func (t *Thread) WakeAt() int64 { return t.wakeAt }

// Ticks returns the number of timer ticks the thread was running for.
func (t *Thread) Ticks() int64 { return t.ticks }

func (t *Thread) dropDonations(l *Lock) {
	kept := t.donations[:0]
	for _, d := range t.donations {
		if d.lock != l {
			kept = append(kept, d)
		}
	}
	t.donations = kept
}

// alloc takes a control block from the arena.
func (k *Kernel) alloc(name string, pri int, fn func(any), arg any) (*Thread, error) {
	if len(k.threads) >= k.cfg.MaxThreads {
		return nil, ErrResourceExhausted
	}
	k.nextTID++
	t := &Thread{
		id:       k.nextTID,
		name:     name,
		status:   StatusBlocked,
		base:     pri,
		priority: pri,
		fn:       fn,
		arg:      arg,
		run:      make(chan struct{}, 1),
	}
	k.threads[t.id] = t
	return t, nil
}

func (k *Kernel) thread(id TID) *Thread {
	return k.threads[id]
}

func (k *Kernel) reap(t *Thread) {
	delete(k.threads, t.id)
	k.trace(EvReap, t, 0)
}

// tidQueue is an ordered collection of thread identifiers. Control blocks
// live in the arena; queues only hold their ids.
type tidQueue []TID

func (q tidQueue) Len() int { return len(q) }

// insertBefore inserts id ahead of the first element for which before
// returns true, or at the back.
func (q *tidQueue) insertBefore(id TID, before func(TID) bool) {
	s := *q
	i := 0
	for ; i < len(s); i++ {
		if before(s[i]) {
			break
		}
	}
	s = append(s, 0)
	copy(s[i+1:], s[i:])
	s[i] = id
	*q = s
}

func (q *tidQueue) pop() (TID, bool) {
	s := *q
	if len(s) == 0 {
		return 0, false
	}
	id := s[0]
	*q = s[1:]
	return id, true
}

func (q *tidQueue) remove(id TID) bool {
	s := *q
	for i, v := range s {
		if v == id {
			*q = append(s[:i], s[i+1:]...)
			return true
		}
	}
	return false
}

func (q tidQueue) front() (TID, bool) {
	if len(q) == 0 {
		return 0, false
	}
	return q[0], true
}

// insertByPriority keeps q ordered by non-increasing effective priority,
// FIFO among equals.
func (k *Kernel) insertByPriority(q *tidQueue, t *Thread) {
	q.insertBefore(t.id, func(id TID) bool {
		return k.priorityOf(id) < t.priority
	})
}

// sortByPriority restores priority order after priorities changed in place.
// The sort is stable, so equal priorities keep their arrival order.
func (k *Kernel) sortByPriority(q tidQueue) {
	sort.SliceStable(q, func(i, j int) bool {
		return k.priorityOf(q[i]) > k.priorityOf(q[j])
	})
}

func (k *Kernel) priorityOf(id TID) int {
	if t := k.thread(id); t != nil {
		return t.priority
	}
	return PriMin - 1
}
