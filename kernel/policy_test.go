package kernel

import (
	"errors"
	"testing"
)

func TestSetPriorityYields(t *testing.T) {
	var order []string
	boot(t, Config{}, func(k *Kernel) {
		k.Create("other", 20, func(any) { order = append(order, "other") }, nil)
		order = append(order, "before")
		if err := k.SetPriority(10); err != nil {
			t.Errorf("SetPriority: %v", err)
		}
		order = append(order, "after")
	})
	if want := []string{"before", "other", "after"}; !equal(order, want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
}

func TestSetPriorityBounds(t *testing.T) {
	boot(t, Config{}, func(k *Kernel) {
		for _, pri := range []int{-1, 64} {
			if err := k.SetPriority(pri); !errors.Is(err, ErrBadPriority) {
				t.Errorf("SetPriority(%d) = %v, want ErrBadPriority", pri, err)
			}
		}
		if _, err := k.ThreadPriority(999); !errors.Is(err, ErrNoSuchThread) {
			t.Errorf("ThreadPriority(999) = %v, want ErrNoSuchThread", err)
		}
		if err := k.SetThreadPriority(999, 10); !errors.Is(err, ErrNoSuchThread) {
			t.Errorf("SetThreadPriority(999) = %v, want ErrNoSuchThread", err)
		}
	})
}

func TestFeedbackNice(t *testing.T) {
	var setErr error
	var pri, clamped, nice int
	boot(t, Config{Policy: NewFeedbackPolicy()}, func(k *Kernel) {
		setErr = k.SetPriority(40)
		k.SetNice(5)
		pri = k.GetPriority()
		k.SetNice(100)
		nice = k.Nice()
		clamped = k.GetPriority()
	})
	if !errors.Is(setErr, ErrPolicyManaged) {
		t.Fatalf("SetPriority = %v, want ErrPolicyManaged", setErr)
	}
	if pri != PriMax-2*5 {
		t.Fatalf("priority at nice 5 = %d, want %d", pri, PriMax-10)
	}
	if nice != NiceMax || clamped != PriMax-2*NiceMax {
		t.Fatalf("nice %d priority %d; want %d, %d", nice, clamped, NiceMax, PriMax-2*NiceMax)
	}
}

func TestFeedbackChildInheritsNice(t *testing.T) {
	var childNice int
	boot(t, Config{Policy: NewFeedbackPolicy()}, func(k *Kernel) {
		k.SetNice(-3)
		k.Create("child", PriDefault, func(any) { childNice = k.Nice() }, nil)
		k.SetNice(NiceMax)
	})
	if childNice != -3 {
		t.Fatalf("child nice = %d, want -3", childNice)
	}
}

func TestFeedbackLoadAvg(t *testing.T) {
	var load, rc int
	boot(t, Config{Policy: NewFeedbackPolicy(), TimerHz: 100}, func(k *Kernel) {
		tick(k, 100)
		load = k.LoadAvg()
		rc = k.RecentCPU()
	})
	// One runnable thread for one second: load 1/60, and recent_cpu decays
	// from 100 by 2*load/(2*load+1).
	if load != 2 {
		t.Fatalf("LoadAvg() = %d, want 2", load)
	}
	if rc < 300 || rc > 340 {
		t.Fatalf("RecentCPU() = %d, want about 323", rc)
	}
}

func TestFeedbackCPUHogLosesPriority(t *testing.T) {
	var start, end int
	boot(t, Config{Policy: NewFeedbackPolicy()}, func(k *Kernel) {
		k.SetNice(0)
		start = k.GetPriority()
		tick(k, 40)
		end = k.GetPriority()
	})
	if start != PriMax || end >= start {
		t.Fatalf("priority %d after 40 busy ticks, started at %d", end, start)
	}
}

func TestFeedbackDisablesDonation(t *testing.T) {
	var pri, waiter int
	boot(t, Config{Policy: NewFeedbackPolicy()}, func(k *Kernel) {
		l := k.NewLock()
		l.Acquire()
		id, _ := k.Create("waiter", PriDefault, func(any) {
			l.Acquire()
			l.Release()
		}, nil)
		waiter, _ = k.ThreadPriority(id)
		pri = k.GetPriority()
		l.Release()
	})
	if waiter != PriMax {
		t.Fatalf("waiter priority = %d, want %d", waiter, PriMax)
	}
	if pri != PriDefault {
		t.Fatalf("holder priority = %d, want %d", pri, PriDefault)
	}
}
