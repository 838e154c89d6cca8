package kernel

import "fmt"

// Semaphore is a counting semaphore.
type Semaphore struct {
	k       *Kernel
	value   uint
	waiters tidQueue
}

// NewSemaphore returns a semaphore with the given initial value.
func (k *Kernel) NewSemaphore(value uint) *Semaphore {
	return &Semaphore{k: k, value: value}
}

// Down waits for the value to become positive and decrements it.
// It must not be called from an interrupt handler or with interrupts off.
func (s *Semaphore) Down() {
	k := s.k
	k.assert(!k.inIntr, "sema down in interrupt context")
	k.AssertLevel(LevelOn)

	old := k.IntrDisable()
	s.down()
	k.IntrSetLevel(old)
}

func (s *Semaphore) down() {
	for s.value == 0 {
		s.wait()
	}
	s.value--
}

// wait queues the running thread by priority and blocks it.
func (s *Semaphore) wait() {
	k := s.k
	k.insertByPriority(&s.waiters, k.current)
	k.Block()
}

// TryDown decrements the value if it is positive, without waiting.
// It may be called from an interrupt handler.
func (s *Semaphore) TryDown() bool {
	defer s.k.Enter().Leave()
	if s.value == 0 {
		return false
	}
	s.value--
	return true
}

// Up increments the value and wakes the highest-priority waiter, if any.
// It may be called from an interrupt handler.
func (s *Semaphore) Up() {
	defer s.k.Enter().Leave()
	s.up()
}

func (s *Semaphore) up() {
	if len(s.waiters) > 0 {
		// Waiter priorities may have changed while they were queued.
		s.k.sortByPriority(s.waiters)
		id, _ := s.waiters.pop()
		s.k.unblock(s.k.thread(id))
	}
	s.value++
}

// Value returns the current value.
func (s *Semaphore) Value() uint {
	defer s.k.Enter().Leave()
	return s.value
}

// Waiters returns the ids of the blocked waiters in wake order.
func (s *Semaphore) Waiters() []TID {
	defer s.k.Enter().Leave()
	s.k.sortByPriority(s.waiters)
	return append([]TID(nil), s.waiters...)
}

// SemaSelfTest ping-pongs control between the caller and a new thread ten
// times through a pair of semaphores.
func (k *Kernel) SemaSelfTest() error {
	ping := k.NewSemaphore(0)
	pong := k.NewSemaphore(0)
	_, err := k.Create("sema-test", PriDefault, func(any) {
		for i := 0; i < 10; i++ {
			ping.Down()
			pong.Up()
		}
	}, nil)
	if err != nil {
		return fmt.Errorf("sema self-test: %w", err)
	}
	for i := 0; i < 10; i++ {
		ping.Up()
		pong.Down()
	}
	return nil
}
