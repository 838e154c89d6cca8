package app

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"kthread/hal"
	"kthread/kernel"
)

func TestDemoParses(t *testing.T) {
	s, err := Config{}.LoadScript()
	if err != nil {
		t.Fatalf("LoadScript: %v", err)
	}
	if len(s.Threads) == 0 || len(s.Objects) == 0 {
		t.Fatalf("demo = %+v", s)
	}
}

func TestLoadScriptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.kts")
	if err := os.WriteFile(path, []byte("lock m\nbogus\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := Config{Script: path}.LoadScript()
	if err == nil || !strings.Contains(err.Error(), "line 2:") {
		t.Fatalf("LoadScript = %v, want a line 2 error", err)
	}
	if _, err := (Config{Script: filepath.Join(t.TempDir(), "missing")}).LoadScript(); err == nil {
		t.Fatal("LoadScript of a missing file succeeded")
	}
}

func TestRunHeadlessDemo(t *testing.T) {
	var buf bytes.Buffer
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := RunHeadless(ctx, hal.NewWithOutput(&buf), Config{Hz: 1000}); err != nil {
		t.Fatalf("RunHeadless: %v\n%s", err, buf.String())
	}
	out := buf.String()
	for _, want := range []string{"high got m", "consumer took item", "a awake", "Timer:", "kernel: power off"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRunHeadlessTickLimit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "long.kts")
	if err := os.WriteFile(path, []byte("thread nap 10\n  sleep 100000\nend\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := RunHeadless(ctx, hal.NewWithOutput(&buf), Config{Hz: 1000, Ticks: 5, Script: path})
	if err != nil {
		t.Fatalf("RunHeadless: %v", err)
	}
	if !strings.Contains(buf.String(), "stopped after 5 ticks") {
		t.Fatalf("output:\n%s", buf.String())
	}
}

func TestPanicLines(t *testing.T) {
	lines := panicLines(kernel.PanicInfo{Thread: 3, Name: "worker", Value: "boom", Stack: []byte("a\n\nb\n")})
	want := []string{"Kernel Panic:", "thread: worker (3)", "panic: boom", "stack:", "a", "b"}
	if strings.Join(lines, "|") != strings.Join(want, "|") {
		t.Fatalf("lines = %q", lines)
	}
	lines = panicLines(kernel.PanicInfo{Name: "x", Value: "y"})
	if lines[len(lines)-1] != "stack: unavailable" {
		t.Fatalf("lines = %q", lines)
	}
}
