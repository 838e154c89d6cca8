package app

import (
	"fmt"
	"strings"

	"kthread/hal"
	"kthread/kernel"
)

func installPanicHandler(l hal.Logger) {
	kernel.SetPanicHandler(func(info kernel.PanicInfo) {
		for _, line := range panicLines(info) {
			l.WriteLineString(line)
		}
	})
}

func panicLines(info kernel.PanicInfo) []string {
	lines := []string{
		"Kernel Panic:",
		fmt.Sprintf("thread: %s (%d)", info.Name, info.Thread),
		fmt.Sprintf("panic: %v", info.Value),
	}
	if len(info.Stack) == 0 {
		return append(lines, "stack: unavailable")
	}
	lines = append(lines, "stack:")
	for _, line := range strings.Split(string(info.Stack), "\n") {
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}
