// Package kernel is a single-CPU preemptible thread scheduler with priority
// donation, semaphores, locks, condition variables and a tick-driven sleep
// queue.
//
// Every kernel thread is backed by a goroutine, but only the thread holding
// the CPU runs: the dispatcher hands the CPU over through the thread's run
// channel and the previous holder parks on its own. All scheduler state is
// owned by whichever thread holds the CPU, so turning interrupts off is the
// only mutual exclusion it needs.
package kernel

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"kthread/hal"
)

const (
	defaultMaxThreads    = 64
	defaultTimerHz       = 100
	defaultTimeSlice     = 4
	defaultDonationDepth = 8
)

// Config controls a kernel instance. The zero value is usable.
type Config struct {
	// MaxThreads is the number of thread control blocks, idle and main included.
	MaxThreads int
	// TimerHz is the timer interrupt frequency.
	TimerHz int
	// TimeSlice is the number of ticks a thread runs before it is asked to yield.
	TimeSlice int
	// MaxDonationDepth bounds the lock-holder chain followed by a donation.
	MaxDonationDepth int
	// LoopsPerTick seeds the busy-wait calibration; Calibrate overwrites it.
	LoopsPerTick uint64
	// Policy selects priority scheduling with donation (default) or the
	// multi-level feedback policy.
	Policy Policy
	// Logger receives kernel messages.
	Logger hal.Logger
	// Trace, when set, receives every scheduling event. It runs with
	// interrupts off and must not call into the kernel.
	Trace func(Event)
	// PublishSnapshots makes every timer tick store a snapshot readable from
	// any goroutine through Published.
	PublishSnapshots bool
}

func (c *Config) fill() error {
	if c.MaxThreads <= 0 {
		c.MaxThreads = defaultMaxThreads
	}
	if c.MaxThreads < 2 {
		return fmt.Errorf("kernel: max threads %d leaves no room for idle and main", c.MaxThreads)
	}
	if c.TimerHz == 0 {
		c.TimerHz = defaultTimerHz
	}
	if c.TimerHz < hal.MinTimerHz || c.TimerHz > hal.MaxTimerHz {
		return fmt.Errorf("timer %d Hz: %w", c.TimerHz, ErrBadFrequency)
	}
	if c.TimeSlice <= 0 {
		c.TimeSlice = defaultTimeSlice
	}
	if c.MaxDonationDepth <= 0 {
		c.MaxDonationDepth = defaultDonationDepth
	}
	if c.Policy == nil {
		c.Policy = PriorityPolicy{}
	}
	if c.Logger == nil {
		c.Logger = hal.Discard
	}
	return nil
}

// Kernel is the scheduler context: the thread arena, the ready and sleep
// queues, the running thread and the tick counter.
type Kernel struct {
	cfg    Config
	log    hal.Logger
	policy Policy

	threads map[TID]*Thread
	nextTID TID

	ready    tidQueue
	sleepers sleepQueue

	current *Thread
	prev    *Thread
	idle    *Thread
	initial *Thread

	level   Level
	inIntr  bool
	resched bool

	pending atomic.Int64
	irq     chan struct{}

	ticks        int64
	sliceTicks   int
	idleTicks    int64
	kernelTicks  int64
	loopsPerTick uint64

	published atomic.Pointer[Snapshot]

	started  bool
	done     chan struct{}
	haltOnce sync.Once
	err      error
}

// New creates a kernel. Nothing runs until Run.
func New(cfg Config) (*Kernel, error) {
	if err := cfg.fill(); err != nil {
		return nil, err
	}
	return &Kernel{
		cfg:          cfg,
		log:          cfg.Logger,
		policy:       cfg.Policy,
		threads:      make(map[TID]*Thread, cfg.MaxThreads),
		irq:          make(chan struct{}, 1),
		done:         make(chan struct{}),
		loopsPerTick: cfg.LoopsPerTick,
	}, nil
}

// TimerHz returns the configured timer frequency.
func (k *Kernel) TimerHz() int { return k.cfg.TimerHz }

// Run boots the kernel: it creates the idle thread and a "main" thread at
// PriDefault running fn, and dispatches. It returns nil when fn returns, a
// *PanicError after a kernel panic, or ctx.Err() when ctx is cancelled.
//
// Threads still alive at power-off are discarded the next time they would
// run.
func (k *Kernel) Run(ctx context.Context, fn func()) error {
	if k.started {
		return ErrStarted
	}
	k.started = true
	k.level = LevelOff

	idle, err := k.alloc("idle", PriMin, func(any) { k.idleLoop() }, nil)
	if err != nil {
		return err
	}
	k.idle = idle
	m, err := k.alloc("main", PriDefault, func(any) { fn() }, nil)
	if err != nil {
		return err
	}
	k.initial = m
	k.makeReady(m)
	go k.start(idle)
	go k.start(m)

	k.log.WriteLineString(fmt.Sprintf("kernel: boot, timer %d Hz, %d thread slots", k.cfg.TimerHz, k.cfg.MaxThreads))

	next := k.nextToRun()
	next.status = StatusRunning
	k.current = next
	k.trace(EvDispatch, next, 0)
	next.run <- struct{}{}

	select {
	case <-k.done:
	case <-ctx.Done():
		k.halt(ctx.Err(), nil)
	}
	return k.err
}

// halt powers the machine off once. onHalt runs before waiters are released.
func (k *Kernel) halt(err error, onHalt func()) {
	k.haltOnce.Do(func() {
		k.err = err
		if onHalt != nil {
			onHalt()
		}
		close(k.done)
	})
}

func (k *Kernel) halted() bool {
	select {
	case <-k.done:
		return true
	default:
		return false
	}
}

// Done is closed when the kernel powers off.
func (k *Kernel) Done() <-chan struct{} { return k.done }
