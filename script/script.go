// Package script parses and runs scheduling workloads.
//
// A script declares synchronization objects and threads. Each thread block
// lists the operations the thread performs, in order:
//
//	# priority inversion
//	lock m
//	thread L 1
//	  acquire m
//	  spin 8
//	  release m
//	end
//	thread H 9 after=2
//	  acquire m
//	  release m
//	end
//
// Lines are split with shell rules, so names and log text may be quoted and
// '#' starts a comment.
package script

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/google/shlex"

	"kthread/kernel"
)

// ObjectKind is the kind of a declared synchronization object.
type ObjectKind uint8

const (
	ObjLock ObjectKind = iota + 1
	ObjSema
	ObjCond
)

func (k ObjectKind) String() string {
	switch k {
	case ObjLock:
		return "lock"
	case ObjSema:
		return "sema"
	case ObjCond:
		return "cond"
	default:
		return "unknown"
	}
}

// Object is a declared lock, semaphore or condition variable.
type Object struct {
	Kind  ObjectKind
	Name  string
	Value uint // initial semaphore value
	Line  int
}

// OpKind is a thread operation.
type OpKind uint8

const (
	OpAcquire OpKind = iota + 1
	OpRelease
	OpDown
	OpUp
	OpWait
	OpSignal
	OpBroadcast
	OpSleep
	OpSpin
	OpYield
	OpPriority
	OpNice
	OpLog
)

var opNames = map[string]OpKind{
	"acquire":   OpAcquire,
	"release":   OpRelease,
	"down":      OpDown,
	"up":        OpUp,
	"wait":      OpWait,
	"signal":    OpSignal,
	"broadcast": OpBroadcast,
	"sleep":     OpSleep,
	"spin":      OpSpin,
	"yield":     OpYield,
	"priority":  OpPriority,
	"nice":      OpNice,
	"log":       OpLog,
}

func (k OpKind) String() string {
	for name, op := range opNames {
		if op == k {
			return name
		}
	}
	return "unknown"
}

// Op is one step of a thread.
type Op struct {
	Kind OpKind
	Obj  string // lock, semaphore or condition
	Lock string // lock for wait/signal/broadcast
	N    int64
	Text string
	Line int
}

// Thread is a thread declaration.
type Thread struct {
	Name     string
	Priority int
	After    int64
	Ops      []Op
	Line     int
}

// Script is a parsed workload.
type Script struct {
	Objects []Object
	Threads []Thread
}

// Error is a parse error.
type Error struct {
	Line int
	Msg  string
}

func (e *Error) Error() string { return fmt.Sprintf("line %d: %s", e.Line, e.Msg) }

func errorf(line int, format string, args ...any) error {
	return &Error{Line: line, Msg: fmt.Sprintf(format, args...)}
}

// ParseString parses a script held in a string.
func ParseString(src string) (*Script, error) {
	return Parse(strings.NewReader(src))
}

// Parse reads a script.
func Parse(r io.Reader) (*Script, error) {
	p := &parser{s: &Script{}, objects: map[string]ObjectKind{}, threads: map[string]bool{}}
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		args, err := shlex.Split(sc.Text())
		if err != nil {
			return nil, errorf(line, "%v", err)
		}
		if len(args) == 0 {
			continue
		}
		if err := p.line(line, args); err != nil {
			return nil, err
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read script: %w", err)
	}
	if p.cur != nil {
		return nil, errorf(p.cur.Line, "thread %q has no end", p.cur.Name)
	}
	if err := p.check(); err != nil {
		return nil, err
	}
	return p.s, nil
}

type parser struct {
	s       *Script
	cur     *Thread
	objects map[string]ObjectKind
	threads map[string]bool
}

func (p *parser) line(n int, args []string) error {
	if p.cur != nil {
		if args[0] == "end" {
			if len(args) != 1 {
				return errorf(n, "end takes no arguments")
			}
			p.s.Threads = append(p.s.Threads, *p.cur)
			p.cur = nil
			return nil
		}
		op, err := parseOp(n, args)
		if err != nil {
			return err
		}
		p.cur.Ops = append(p.cur.Ops, op)
		return nil
	}

	switch args[0] {
	case "lock", "cond":
		if len(args) != 2 {
			return errorf(n, "usage: %s NAME", args[0])
		}
		kind := ObjLock
		if args[0] == "cond" {
			kind = ObjCond
		}
		return p.declare(Object{Kind: kind, Name: args[1], Line: n})
	case "sema":
		if len(args) != 3 {
			return errorf(n, "usage: sema NAME VALUE")
		}
		v, err := strconv.ParseUint(args[2], 10, 32)
		if err != nil {
			return errorf(n, "bad semaphore value %q", args[2])
		}
		return p.declare(Object{Kind: ObjSema, Name: args[1], Value: uint(v), Line: n})
	case "thread":
		return p.thread(n, args)
	default:
		return errorf(n, "unknown directive %q", args[0])
	}
}

func (p *parser) declare(o Object) error {
	if _, dup := p.objects[o.Name]; dup {
		return errorf(o.Line, "%q already declared", o.Name)
	}
	p.objects[o.Name] = o.Kind
	p.s.Objects = append(p.s.Objects, o)
	return nil
}

func (p *parser) thread(n int, args []string) error {
	if len(args) < 3 || len(args) > 4 {
		return errorf(n, "usage: thread NAME PRIORITY [after=TICKS]")
	}
	name := args[1]
	if p.threads[name] {
		return errorf(n, "thread %q already declared", name)
	}
	pri, err := strconv.Atoi(args[2])
	if err != nil || pri < kernel.PriMin || pri > kernel.PriMax {
		return errorf(n, "bad priority %q", args[2])
	}
	t := &Thread{Name: name, Priority: pri, Line: n}
	if len(args) == 4 {
		v, ok := strings.CutPrefix(args[3], "after=")
		if !ok {
			return errorf(n, "unknown thread option %q", args[3])
		}
		after, err := strconv.ParseInt(v, 10, 64)
		if err != nil || after < 0 {
			return errorf(n, "bad start delay %q", v)
		}
		t.After = after
	}
	p.threads[name] = true
	p.cur = t
	return nil
}

func parseOp(n int, args []string) (Op, error) {
	kind, ok := opNames[args[0]]
	if !ok {
		return Op{}, errorf(n, "unknown operation %q", args[0])
	}
	op := Op{Kind: kind, Line: n}
	want := 1
	switch kind {
	case OpAcquire, OpRelease, OpDown, OpUp:
		want = 2
		if len(args) == want {
			op.Obj = args[1]
		}
	case OpWait, OpSignal, OpBroadcast:
		want = 3
		if len(args) == want {
			op.Obj, op.Lock = args[1], args[2]
		}
	case OpSleep, OpSpin, OpPriority, OpNice:
		want = 2
		if len(args) == want {
			v, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return Op{}, errorf(n, "%s: bad number %q", args[0], args[1])
			}
			op.N = v
		}
	case OpLog:
		op.Text = strings.Join(args[1:], " ")
		return op, nil
	}
	if len(args) != want {
		return Op{}, errorf(n, "%s takes %d argument(s)", args[0], want-1)
	}
	if kind == OpPriority && (op.N < kernel.PriMin || op.N > kernel.PriMax) {
		return Op{}, errorf(n, "bad priority %d", op.N)
	}
	return op, nil
}

// check resolves object references.
func (p *parser) check() error {
	for _, t := range p.s.Threads {
		for _, op := range t.Ops {
			var want ObjectKind
			switch op.Kind {
			case OpAcquire, OpRelease:
				want = ObjLock
			case OpDown, OpUp:
				want = ObjSema
			case OpWait, OpSignal, OpBroadcast:
				want = ObjCond
				if kind, ok := p.objects[op.Lock]; !ok || kind != ObjLock {
					return errorf(op.Line, "%q is not a declared lock", op.Lock)
				}
			default:
				continue
			}
			if kind, ok := p.objects[op.Obj]; !ok || kind != want {
				return errorf(op.Line, "%q is not a declared %s", op.Obj, want)
			}
		}
	}
	return nil
}
