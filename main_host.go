//go:build !tinygo

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"kthread/app"
	"kthread/hal"
)

func main() {
	var cfg app.Config
	var headless bool
	flag.BoolVar(&headless, "headless", false, "Run without a window.")
	flag.IntVar(&cfg.Hz, "hz", 100, "Timer interrupt frequency (19-1000).")
	flag.Uint64Var(&cfg.Ticks, "ticks", 0, "Stop after N ticks in headless mode (0 = until the script ends).")
	flag.StringVar(&cfg.Script, "script", "", "Workload script to run (default: built-in demo).")
	flag.BoolVar(&cfg.Feedback, "mlfqs", false, "Use the multi-level feedback scheduler.")
	flag.BoolVar(&cfg.Trace, "trace", false, "Log every scheduling event.")
	flag.BoolVar(&cfg.Calibrate, "calibrate", false, "Calibrate the busy-wait loop at boot.")
	flag.BoolVar(&cfg.SelfTest, "selftest", false, "Run the semaphore self-test at boot.")
	flag.Parse()

	h := hal.New()
	if headless {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		if err := app.RunHeadless(ctx, h, cfg); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	if err := app.RunWindow(h, cfg); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
