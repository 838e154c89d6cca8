package kernel

import (
	"strings"
	"testing"
)

func TestCondSignalPriorityOrder(t *testing.T) {
	var order []string
	boot(t, Config{}, func(k *Kernel) {
		l := k.NewLock()
		c := k.NewCond()
		for _, w := range []struct {
			name string
			pri  int
		}{{"a", 41}, {"b", 43}, {"c", 42}, {"d", 41}} {
			name := w.name
			k.Create(name, w.pri, func(any) {
				l.Acquire()
				c.Wait(l)
				order = append(order, name)
				l.Release()
			}, nil)
		}
		if c.Len() != 4 {
			t.Errorf("Len() = %d, want 4", c.Len())
		}

		l.Acquire()
		c.Signal(l)
		l.Release()
		if len(order) != 1 || order[0] != "b" {
			t.Errorf("after Signal, woke %v; want [b]", order)
		}

		l.Acquire()
		c.Broadcast(l)
		l.Release()
		if c.Len() != 0 {
			t.Errorf("Len() = %d after Broadcast", c.Len())
		}
	})
	if want := []string{"b", "c", "a", "d"}; !equal(order, want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
}

func TestCondSignalNoWaiters(t *testing.T) {
	boot(t, Config{}, func(k *Kernel) {
		l := k.NewLock()
		c := k.NewCond()
		l.Acquire()
		c.Signal(l)
		c.Broadcast(l)
		l.Release()
	})
}

func TestCondWaitWithoutLock(t *testing.T) {
	pe := bootPanic(t, Config{}, func(k *Kernel) {
		k.NewCond().Wait(k.NewLock())
	})
	if v, ok := pe.Violation(); !ok || !strings.Contains(string(v), "without holding") {
		t.Fatalf("panic = %v", pe)
	}
}
