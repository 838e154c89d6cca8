package script

import (
	"fmt"

	"kthread/hal"
	"kthread/kernel"
)

// Objects holds the kernel objects created for a script's declarations.
type Objects struct {
	Locks map[string]*kernel.Lock
	Semas map[string]*kernel.Semaphore
	Conds map[string]*kernel.Cond
}

// Run executes s on k and returns once every script thread has finished.
// It must be called from a kernel thread, normally main. Log operations
// write to log, prefixed with the tick and the thread name.
func Run(k *kernel.Kernel, s *Script, log hal.Logger) (*Objects, error) {
	if log == nil {
		log = hal.Discard
	}
	objs := &Objects{
		Locks: map[string]*kernel.Lock{},
		Semas: map[string]*kernel.Semaphore{},
		Conds: map[string]*kernel.Cond{},
	}
	for _, o := range s.Objects {
		switch o.Kind {
		case ObjLock:
			objs.Locks[o.Name] = k.NewLock()
		case ObjSema:
			objs.Semas[o.Name] = k.NewSemaphore(o.Value)
		case ObjCond:
			objs.Conds[o.Name] = k.NewCond()
		}
	}

	done := k.NewSemaphore(0)
	started := 0
	for i := range s.Threads {
		x := &executor{k: k, objs: objs, log: log, t: &s.Threads[i], done: done}
		if _, err := k.Create(x.t.Name, x.t.Priority, x.run, nil); err != nil {
			for ; started > 0; started-- {
				done.Down()
			}
			return objs, fmt.Errorf("line %d: %w", x.t.Line, err)
		}
		started++
	}
	for ; started > 0; started-- {
		done.Down()
	}
	return objs, nil
}

type executor struct {
	k    *kernel.Kernel
	objs *Objects
	log  hal.Logger
	t    *Thread
	done *kernel.Semaphore
}

func (x *executor) run(any) {
	x.k.Sleep(x.t.After)
	for _, op := range x.t.Ops {
		x.step(op)
	}
	x.done.Up()
}

func (x *executor) step(op Op) {
	k := x.k
	switch op.Kind {
	case OpAcquire:
		x.objs.Locks[op.Obj].Acquire()
	case OpRelease:
		x.objs.Locks[op.Obj].Release()
	case OpDown:
		x.objs.Semas[op.Obj].Down()
	case OpUp:
		x.objs.Semas[op.Obj].Up()
	case OpWait:
		x.objs.Conds[op.Obj].Wait(x.objs.Locks[op.Lock])
	case OpSignal:
		x.objs.Conds[op.Obj].Signal(x.objs.Locks[op.Lock])
	case OpBroadcast:
		x.objs.Conds[op.Obj].Broadcast(x.objs.Locks[op.Lock])
	case OpSleep:
		k.Sleep(op.N)
	case OpSpin:
		start := k.Ticks()
		for k.Elapsed(start) < op.N {
		}
	case OpYield:
		k.Yield()
	case OpPriority:
		if err := k.SetPriority(int(op.N)); err != nil {
			x.logf("line %d: %v", op.Line, err)
		}
	case OpNice:
		k.SetNice(int(op.N))
	case OpLog:
		x.logf("%s", op.Text)
	}
}

func (x *executor) logf(format string, args ...any) {
	prefix := fmt.Sprintf("[%d] %s: ", x.k.Ticks(), x.t.Name)
	x.log.WriteLineString(prefix + fmt.Sprintf(format, args...))
}
