// Package app boots a kernel on the host and runs a workload script on it.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"kthread/hal"
	"kthread/internal/buildinfo"
	"kthread/kernel"
	"kthread/script"
)

// Config selects the workload and the kernel configuration.
type Config struct {
	// Hz is the timer frequency.
	Hz int
	// Ticks stops the machine after N timer ticks (0 = until the script ends).
	Ticks uint64
	// Script is the workload file; empty runs the built-in demo.
	Script string
	// Feedback selects the multi-level feedback scheduler.
	Feedback bool
	// Trace logs every scheduling event.
	Trace bool
	// Calibrate measures busy-wait loops per tick at boot.
	Calibrate bool
	// SelfTest runs the semaphore ping-pong test at boot.
	SelfTest bool
}

var errTickLimit = errors.New("tick limit reached")

// LoadScript reads and parses the configured workload.
func (c Config) LoadScript() (*script.Script, error) {
	if c.Script == "" {
		return script.ParseString(Demo)
	}
	f, err := os.Open(c.Script)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	s, err := script.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", c.Script, err)
	}
	return s, nil
}

func newKernel(log hal.Logger, cfg Config, publish bool) (*kernel.Kernel, error) {
	kc := kernel.Config{
		TimerHz:          cfg.Hz,
		Logger:           log,
		PublishSnapshots: publish,
	}
	if cfg.Feedback {
		kc.Policy = kernel.NewFeedbackPolicy()
	}
	if cfg.Trace {
		kc.Trace = func(e kernel.Event) { log.WriteLineString(e.String()) }
	}
	return kernel.New(kc)
}

// boot returns the main thread body: it attaches the timer, runs the
// optional boot checks, then the workload, and records the first error.
func boot(k *kernel.Kernel, h hal.HAL, cfg Config, s *script.Script, errp *error) func() {
	log := h.Logger()
	return func() {
		log.WriteLineString("kthread " + buildinfo.Line())
		if err := k.AttachTimer(h.Timer()); err != nil {
			*errp = err
			return
		}
		if cfg.Calibrate {
			k.Calibrate()
		}
		if cfg.SelfTest {
			if err := k.SemaSelfTest(); err != nil {
				*errp = err
				return
			}
			log.WriteLineString("sema self-test: ok")
		}
		if _, err := script.Run(k, s, log); err != nil {
			*errp = err
			return
		}
		k.PrintStats()
	}
}

// RunHeadless runs the workload against the host timer and logs to h.
func RunHeadless(ctx context.Context, h hal.HAL, cfg Config) error {
	s, err := cfg.LoadScript()
	if err != nil {
		return err
	}
	installPanicHandler(h.Logger())
	k, err := newKernel(h.Logger(), cfg, cfg.Ticks > 0)
	if err != nil {
		return err
	}
	defer h.Timer().Stop()

	var runErr error
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := k.Run(gctx, boot(k, h, cfg, s, &runErr)); err != nil {
			return err
		}
		return runErr
	})
	if cfg.Ticks > 0 {
		g.Go(func() error { return watchTicks(gctx, k, cfg.Ticks) })
	}

	err = g.Wait()
	if errors.Is(err, errTickLimit) {
		h.Logger().WriteLineString(fmt.Sprintf("kernel: stopped after %d ticks", cfg.Ticks))
		return nil
	}
	return err
}

// watchTicks fails with errTickLimit once the kernel's published tick count
// reaches limit.
func watchTicks(ctx context.Context, k *kernel.Kernel, limit uint64) error {
	t := time.NewTicker(time.Millisecond)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-k.Done():
			return nil
		case <-t.C:
			if snap, ok := k.Published(); ok && uint64(snap.Tick) >= limit {
				return errTickLimit
			}
		}
	}
}

// RunWindow runs the workload in a monitor window. The window's frame loop
// is the timer, so the kernel ticks once per frame and the display shows the
// scheduler state as of the latest tick.
func RunWindow(h hal.HAL, cfg Config) error {
	s, err := cfg.LoadScript()
	if err != nil {
		return err
	}
	installPanicHandler(h.Logger())
	k, err := newKernel(h.Logger(), cfg, true)
	if err != nil {
		return err
	}

	step := hal.NewStepTimer()
	wh := &windowHAL{HAL: h, timer: step}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var runErr error
	var g errgroup.Group
	g.Go(func() error {
		if err := k.Run(ctx, boot(k, wh, cfg, s, &runErr)); err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		return runErr
	})

	status := func() []string {
		snap, ok := k.Published()
		if !ok {
			return []string{"booting..."}
		}
		return snap.Lines()
	}
	winErr := hal.RunWindow(hal.WindowConfig{
		Title: "kthread " + buildinfo.Short(),
		Hz:    k.TimerHz(),
	}, step, status, k.Done())
	cancel()
	if err := g.Wait(); err != nil {
		return err
	}
	return winErr
}

// windowHAL swaps the host timer for the window's frame clock.
type windowHAL struct {
	hal.HAL
	timer hal.Timer
}

func (h *windowHAL) Timer() hal.Timer { return h.timer }
