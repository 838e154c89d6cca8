package kernel

import (
	"fmt"
	"math"
	"math/bits"
	"time"

	"kthread/hal"
)

// sleeper is a sleep queue entry.
type sleeper struct {
	id TID
	at int64
}

// sleepQueue is ordered by wake tick ascending, FIFO among equal ticks.
type sleepQueue []sleeper

func (q *sleepQueue) insert(id TID, at int64) {
	s := *q
	i := len(s)
	for j, e := range s {
		if e.at > at {
			i = j
			break
		}
	}
	s = append(s, sleeper{})
	copy(s[i+1:], s[i:])
	s[i] = sleeper{id: id, at: at}
	*q = s
}

// popDue removes and returns the first entry if it is due at now.
func (q *sleepQueue) popDue(now int64) (TID, bool) {
	s := *q
	if len(s) == 0 || s[0].at > now {
		return 0, false
	}
	id := s[0].id
	*q = s[1:]
	return id, true
}

// AttachTimer programs t at the configured frequency with Interrupt as its
// handler.
func (k *Kernel) AttachTimer(t hal.Timer) error {
	if err := t.Program(k.cfg.TimerHz, k.Interrupt); err != nil {
		return fmt.Errorf("attach timer: %w", err)
	}
	div, _ := hal.Divisor(k.cfg.TimerHz)
	k.log.WriteLineString(fmt.Sprintf("timer: %d Hz, PIT divisor %d", k.cfg.TimerHz, div))
	return nil
}

// timerInterrupt is the timer interrupt handler.
func (k *Kernel) timerInterrupt() {
	k.ticks++
	k.wakeSleepers()
	k.threadTick()
	if k.cfg.PublishSnapshots {
		snap := k.snapshot()
		k.published.Store(&snap)
	}
}

func (k *Kernel) wakeSleepers() {
	for {
		id, ok := k.sleepers.popDue(k.ticks)
		if !ok {
			return
		}
		t := k.thread(id)
		t.wakeAt = 0
		k.trace(EvWake, t, 0)
		k.unblock(t)
	}
}

// threadTick does per-tick accounting for the running thread.
func (k *Kernel) threadTick() {
	cur := k.current
	if cur == k.idle {
		k.idleTicks++
	} else {
		k.kernelTicks++
		cur.ticks++
	}
	k.policy.Tick(k)

	k.sliceTicks++
	if k.sliceTicks >= k.cfg.TimeSlice {
		k.resched = true
	}
}

// Ticks returns the number of timer ticks since boot. Interrupts already
// raised are serviced first.
func (k *Kernel) Ticks() int64 {
	k.poll()
	defer k.Enter().Leave()
	return k.ticks
}

// Elapsed returns the ticks elapsed since then, a value returned by Ticks.
func (k *Kernel) Elapsed(then int64) int64 {
	return k.Ticks() - then
}

// Sleep suspends the running thread for about n ticks. It returns at once
// for n <= 0.
func (k *Kernel) Sleep(n int64) {
	if n <= 0 {
		return
	}
	now := k.Ticks()
	if n > math.MaxInt64-now {
		k.SleepUntil(math.MaxInt64)
		return
	}
	k.SleepUntil(now + n)
}

// SleepUntil suspends the running thread until the tick counter reaches at.
// It returns at once if at has already passed.
func (k *Kernel) SleepUntil(at int64) {
	k.assert(!k.inIntr, "sleep in interrupt context")
	k.AssertLevel(LevelOn)

	old := k.IntrDisable()
	if at > k.ticks {
		cur := k.current
		cur.wakeAt = at
		k.sleepers.insert(cur.id, at)
		k.trace(EvSleep, cur, 0)
		k.Block()
	}
	k.IntrSetLevel(old)
}

// MSleep suspends the running thread for about ms milliseconds.
func (k *Kernel) MSleep(ms int64) { k.realTimeSleep(ms, 1000) }

// USleep suspends the running thread for about us microseconds.
func (k *Kernel) USleep(us int64) { k.realTimeSleep(us, 1000*1000) }

// NSleep suspends the running thread for about ns nanoseconds.
func (k *Kernel) NSleep(ns int64) { k.realTimeSleep(ns, 1000*1000*1000) }

// SleepFor suspends the running thread for about d.
func (k *Kernel) SleepFor(d time.Duration) { k.NSleep(int64(d)) }

// realTimeSleep sleeps for num/denom seconds. Waits of a tick or more go
// through the sleep queue; shorter ones busy-wait.
func (k *Kernel) realTimeSleep(num, denom int64) {
	if num <= 0 {
		return
	}
	hz := int64(k.cfg.TimerHz)
	ticks := scale(num, hz, denom)

	k.AssertLevel(LevelOn)
	if ticks > 0 {
		k.Sleep(ticks)
		return
	}
	// Scale down by 1000 to avoid overflow.
	k.assert(denom%1000 == 0, "sleep denominator not a multiple of 1000")
	k.busyWait(int64(k.loopsPerTick) * num / 1000 * hz / (denom / 1000))
}

// scale returns num*mul/div for positive arguments, saturating at
// math.MaxInt64.
func scale(num, mul, div int64) int64 {
	hi, lo := bits.Mul64(uint64(num), uint64(mul))
	if hi >= uint64(div) {
		return math.MaxInt64
	}
	q, _ := bits.Div64(hi, lo, uint64(div))
	if q > math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(q)
}

// LoopsPerTick returns the busy-wait calibration.
func (k *Kernel) LoopsPerTick() uint64 { return k.loopsPerTick }

// Calibrate measures busy-wait loops per timer tick. Interrupts must be on
// and a timer must be raising interrupts.
func (k *Kernel) Calibrate() uint64 {
	k.AssertLevel(LevelOn)
	k.log.WriteLineString("Calibrating timer...")

	// Largest power of two still less than one tick.
	lpt := uint64(1) << 10
	for !k.tooManyLoops(lpt << 1) {
		lpt <<= 1
		k.assert(lpt != 0, "loops per tick overflow")
	}

	// Refine the next 8 bits.
	high := lpt
	for bit := high >> 1; bit != high>>10; bit >>= 1 {
		if !k.tooManyLoops(high | bit) {
			lpt |= bit
		}
	}
	k.loopsPerTick = lpt
	k.log.WriteLineString(fmt.Sprintf("%d loops/s.", lpt*uint64(k.cfg.TimerHz)))
	return lpt
}

// tooManyLoops reports whether loops iterations take longer than a tick.
func (k *Kernel) tooManyLoops(loops uint64) bool {
	start := k.ticks
	for k.ticks == start {
		k.poll()
	}

	start = k.ticks
	k.busyWait(int64(loops))
	return start != k.ticks
}

// busyWait spins for loops iterations. Interrupts are serviced while it
// spins, as they would preempt a real loop.
//
//go:noinline
func (k *Kernel) busyWait(loops int64) {
	for ; loops > 0; loops-- {
		if k.pending.Load() > 0 {
			k.poll()
		}
	}
}

// PrintStats logs timer and thread statistics.
func (k *Kernel) PrintStats() {
	old := k.IntrDisable()
	ticks, idle, kern := k.ticks, k.idleTicks, k.kernelTicks
	k.IntrSetLevel(old)
	k.log.WriteLineString(fmt.Sprintf("Timer: %d ticks", ticks))
	k.log.WriteLineString(fmt.Sprintf("Thread: %d idle ticks, %d kernel ticks", idle, kern))
}
