package kernel

import (
	"fmt"

	"kthread/kernel/fixed"
)

// Policy decides how thread priorities evolve. Its methods run with
// interrupts off.
type Policy interface {
	// Feedback reports whether the policy computes priorities itself. Lock
	// donation and explicit priority changes are disabled when it does.
	Feedback() bool
	// Fork initializes a new thread from its creator.
	Fork(k *Kernel, parent, child *Thread)
	// Tick runs once per timer interrupt.
	Tick(k *Kernel)
	// Renice applies a changed nice value to t.
	Renice(k *Kernel, t *Thread)
	// LoadAvg returns the system load average.
	LoadAvg() fixed.Q
}

// PriorityPolicy is strict priority scheduling with priority donation.
type PriorityPolicy struct{}

func (PriorityPolicy) Feedback() bool                 { return false }
func (PriorityPolicy) Fork(*Kernel, *Thread, *Thread) {}
func (PriorityPolicy) Tick(*Kernel)                   {}
func (PriorityPolicy) Renice(*Kernel, *Thread)        {}
func (PriorityPolicy) LoadAvg() fixed.Q               { return 0 }

// Nice bounds.
const (
	NiceMin = -20
	NiceMax = 20
)

// FeedbackPolicy is the 4.4BSD-style multi-level feedback scheduler:
// priorities fall with recent CPU use and rise with niceness going down.
type FeedbackPolicy struct {
	load fixed.Q
}

// NewFeedbackPolicy returns a feedback policy with a zero load average.
func NewFeedbackPolicy() *FeedbackPolicy { return &FeedbackPolicy{} }

func (p *FeedbackPolicy) Feedback() bool   { return true }
func (p *FeedbackPolicy) LoadAvg() fixed.Q { return p.load }

func (p *FeedbackPolicy) Fork(k *Kernel, parent, child *Thread) {
	if parent != nil {
		child.nice = parent.nice
		child.recentCPU = parent.recentCPU
	}
	p.recompute(child)
}

func (p *FeedbackPolicy) Tick(k *Kernel) {
	cur := k.current
	if cur != k.idle {
		cur.recentCPU = cur.recentCPU.AddInt(1)
	}

	if k.ticks%int64(k.cfg.TimerHz) == 0 {
		ready := len(k.ready)
		if cur != k.idle {
			ready++
		}
		p.load = fixed.Frac(59, 60).Mul(p.load).Add(fixed.Frac(1, 60).MulInt(ready))

		twice := p.load.MulInt(2)
		coeff := twice.Div(twice.AddInt(1))
		for _, t := range k.threads {
			if t == k.idle {
				continue
			}
			t.recentCPU = coeff.Mul(t.recentCPU).AddInt(t.nice)
		}
	}

	if k.ticks%4 == 0 {
		for _, t := range k.threads {
			if t != k.idle {
				p.recompute(t)
			}
		}
		k.sortByPriority(k.ready)
		k.checkPreempt()
	}
}

func (p *FeedbackPolicy) Renice(k *Kernel, t *Thread) {
	p.recompute(t)
	k.sortByPriority(k.ready)
	k.checkPreempt()
}

// recompute sets priority = PRI_MAX - recent_cpu/4 - 2*nice, clamped.
func (p *FeedbackPolicy) recompute(t *Thread) {
	pri := fixed.Int(PriMax).Sub(t.recentCPU.DivInt(4)).SubInt(t.nice * 2).Trunc()
	if pri < PriMin {
		pri = PriMin
	}
	if pri > PriMax {
		pri = PriMax
	}
	t.base = pri
	t.priority = pri
}

// SetPriority sets the running thread's base priority.
func (k *Kernel) SetPriority(pri int) error {
	return k.SetThreadPriority(k.CurrentID(), pri)
}

// GetPriority returns the running thread's effective priority.
func (k *Kernel) GetPriority() int {
	defer k.Enter().Leave()
	return k.current.priority
}

// SetThreadPriority sets a thread's base priority. An active donation above
// pri keeps the effective priority where it is until the donation ends. If
// the change leaves a ready thread above the running one, the caller is
// preempted.
func (k *Kernel) SetThreadPriority(id TID, pri int) error {
	if pri < PriMin || pri > PriMax {
		return fmt.Errorf("set priority %d: %w", pri, ErrBadPriority)
	}
	if k.policy.Feedback() {
		return ErrPolicyManaged
	}
	defer k.Enter().Leave()
	t := k.thread(id)
	if t == nil {
		return fmt.Errorf("set priority of %d: %w", id, ErrNoSuchThread)
	}
	t.base = pri
	k.refresh(t)
	k.checkPreempt()
	return nil
}

// ThreadPriority returns a thread's effective priority.
func (k *Kernel) ThreadPriority(id TID) (int, error) {
	defer k.Enter().Leave()
	t := k.thread(id)
	if t == nil {
		return 0, fmt.Errorf("priority of %d: %w", id, ErrNoSuchThread)
	}
	return t.priority, nil
}

// SetNice sets the running thread's nice value, clamped to [NiceMin, NiceMax].
func (k *Kernel) SetNice(nice int) {
	if nice < NiceMin {
		nice = NiceMin
	}
	if nice > NiceMax {
		nice = NiceMax
	}
	defer k.Enter().Leave()
	k.current.nice = nice
	k.policy.Renice(k, k.current)
}

// Nice returns the running thread's nice value.
func (k *Kernel) Nice() int {
	defer k.Enter().Leave()
	return k.current.nice
}

// RecentCPU returns 100 times the running thread's recent CPU, rounded.
func (k *Kernel) RecentCPU() int {
	defer k.Enter().Leave()
	return k.current.recentCPU.MulInt(100).Round()
}

// LoadAvg returns 100 times the system load average, rounded.
func (k *Kernel) LoadAvg() int {
	defer k.Enter().Leave()
	return k.policy.LoadAvg().MulInt(100).Round()
}
