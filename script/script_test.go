package script

import (
	"context"
	"errors"
	"strings"
	"testing"

	"kthread/kernel"
)

func TestParse(t *testing.T) {
	s, err := ParseString(`
# objects
lock m
sema items 2
cond c

thread "producer one" 20 after=3
  acquire m
  signal c m   # wake one
  release m
  log "made item" 1
end
`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(s.Objects) != 3 || s.Objects[1].Kind != ObjSema || s.Objects[1].Value != 2 {
		t.Fatalf("objects = %+v", s.Objects)
	}
	if len(s.Threads) != 1 {
		t.Fatalf("threads = %+v", s.Threads)
	}
	th := s.Threads[0]
	if th.Name != "producer one" || th.Priority != 20 || th.After != 3 || th.Line != 7 {
		t.Fatalf("thread = %+v", th)
	}
	if len(th.Ops) != 4 {
		t.Fatalf("ops = %+v", th.Ops)
	}
	if op := th.Ops[1]; op.Kind != OpSignal || op.Obj != "c" || op.Lock != "m" || op.Line != 9 {
		t.Fatalf("signal op = %+v", op)
	}
	if op := th.Ops[3]; op.Kind != OpLog || op.Text != "made item 1" {
		t.Fatalf("log op = %+v", op)
	}
}

func TestParseErrors(t *testing.T) {
	tcs := []struct {
		name string
		src  string
		line int
	}{
		{"unknown directive", "mutex m", 1},
		{"duplicate object", "lock m\nsema m 1", 2},
		{"bad sema value", "sema s -1", 1},
		{"bad priority", "thread t 64\nend", 1},
		{"bad option", "thread t 1 before=2\nend", 1},
		{"missing end", "lock m\nthread t 1\n  yield", 2},
		{"unknown op", "thread t 1\n  jump\nend", 2},
		{"arg count", "lock m\nthread t 1\n  acquire\nend", 3},
		{"bad number", "thread t 1\n  sleep soon\nend", 2},
		{"undeclared lock", "thread t 1\n  acquire m\nend", 2},
		{"wrong kind", "sema s 0\nthread t 1\n  acquire s\nend", 3},
		{"cond needs lock", "cond c\nsema s 0\nthread t 1\n  wait c s\nend", 4},
		{"duplicate thread", "thread t 1\nend\nthread t 2\nend", 3},
		{"unterminated quote", "thread \"t 1", 1},
	}
	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseString(tc.src)
			var perr *Error
			if !errors.As(err, &perr) {
				t.Fatalf("Parse = %v, want *Error", err)
			}
			if perr.Line != tc.line {
				t.Fatalf("error %q on line %d, want %d", err, perr.Line, tc.line)
			}
		})
	}
}

type lineLog struct {
	lines []string
}

func (l *lineLog) WriteLineString(s string) { l.lines = append(l.lines, s) }
func (l *lineLog) WriteLineBytes(b []byte)  { l.lines = append(l.lines, string(b)) }

func runScript(t *testing.T, cfg kernel.Config, src string) ([]string, error) {
	t.Helper()
	s, err := ParseString(src)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	k, err := kernel.New(cfg)
	if err != nil {
		t.Fatalf("kernel.New: %v", err)
	}
	log := &lineLog{}
	var runErr error
	if err := k.Run(context.Background(), func() { _, runErr = Run(k, s, log) }); err != nil {
		t.Fatalf("kernel.Run: %v", err)
	}
	return log.lines, runErr
}

// The low thread is boosted by the high thread's donation, so the medium
// thread it wakes does not preempt it.
func TestRunDonation(t *testing.T) {
	lines, err := runScript(t, kernel.Config{}, `
lock m
sema go 0
thread hi 25
  down go
  acquire m
  log "hi has m"
  release m
end
thread med 15
  down go
  log med
end
thread lo 10
  acquire m
  up go
  up go
  log "lo release"
  release m
  log "lo done"
end
`)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := []string{"[0] lo: lo release", "[0] hi: hi has m", "[0] med: med", "[0] lo: lo done"}
	if strings.Join(lines, "\n") != strings.Join(want, "\n") {
		t.Fatalf("log:\n%s\nwant:\n%s", strings.Join(lines, "\n"), strings.Join(want, "\n"))
	}
}

func TestRunCond(t *testing.T) {
	lines, err := runScript(t, kernel.Config{}, `
lock m
cond c
thread waiter 20
  acquire m
  wait c m
  log woke
  release m
end
thread signaller 10
  acquire m
  log signalling
  broadcast c m
  release m
end
`)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if want := "[0] signaller: signalling,[0] waiter: woke"; strings.Join(lines, ",") != want {
		t.Fatalf("log = %v", lines)
	}
}

func TestRunTooManyThreads(t *testing.T) {
	_, err := runScript(t, kernel.Config{MaxThreads: 3}, `
thread a 1
end
thread b 1
end
`)
	if !errors.Is(err, kernel.ErrResourceExhausted) || !strings.HasPrefix(err.Error(), "line 4:") {
		t.Fatalf("Run = %v, want line 4 resource exhausted", err)
	}
}

func TestRunPriorityOp(t *testing.T) {
	lines, err := runScript(t, kernel.Config{Policy: kernel.NewFeedbackPolicy()}, `
thread t 10
  priority 20
end
`)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(lines) != 1 || !strings.Contains(lines[0], "line 3:") {
		t.Fatalf("log = %v", lines)
	}
}
