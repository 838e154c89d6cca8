package hal

import (
	"bytes"
	"errors"
	"testing"
	"time"
)

func TestDivisor(t *testing.T) {
	tcs := []struct {
		hz   int
		want uint16
	}{
		{19, 62799},
		{100, 11932},
		{1000, 1193},
	}
	for _, tc := range tcs {
		got, err := Divisor(tc.hz)
		if err != nil {
			t.Fatalf("Divisor(%d): %v", tc.hz, err)
		}
		if got != tc.want {
			t.Fatalf("Divisor(%d) = %d, want %d", tc.hz, got, tc.want)
		}
	}
	for _, hz := range []int{0, 18, 1001} {
		if _, err := Divisor(hz); err == nil {
			t.Fatalf("Divisor(%d) succeeded", hz)
		}
	}
}

func TestStepTimer(t *testing.T) {
	st := NewStepTimer()
	if got := st.Step(3); got != 0 {
		t.Fatalf("Step before Program = %d, want 0", got)
	}

	fired := 0
	if err := st.Program(100, func() { fired++ }); err != nil {
		t.Fatalf("Program: %v", err)
	}
	if err := st.Program(100, func() {}); !errors.Is(err, ErrTimerRunning) {
		t.Fatalf("second Program = %v, want ErrTimerRunning", err)
	}
	if got := st.Step(3); got != 3 || fired != 3 {
		t.Fatalf("Step(3) = %d, fired %d; want 3, 3", got, fired)
	}

	st.Stop()
	if got := st.Step(2); got != 3 || fired != 3 {
		t.Fatalf("Step after Stop = %d, fired %d; want 3, 3", got, fired)
	}
	if err := st.Program(5, func() {}); err == nil {
		t.Fatal("Program(5 Hz) succeeded")
	}
}

func TestHostTimer(t *testing.T) {
	h := NewWithOutput(&bytes.Buffer{})
	tm := h.Timer()
	ch := make(chan struct{}, 16)
	if err := tm.Program(1000, func() {
		select {
		case ch <- struct{}{}:
		default:
		}
	}); err != nil {
		t.Fatalf("Program: %v", err)
	}
	defer tm.Stop()

	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("no interrupt within 2s")
	}
	tm.Stop()
	tm.Stop()
}

func TestHostLogger(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithOutput(&buf).Logger()
	l.WriteLineString("one")
	l.WriteLineBytes([]byte("two"))
	if got := buf.String(); got != "one\ntwo\n" {
		t.Fatalf("log = %q", got)
	}
}
