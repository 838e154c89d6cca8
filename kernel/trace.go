package kernel

import "fmt"

// EventKind identifies a scheduling event.
type EventKind uint8

const (
	EvCreate EventKind = iota + 1
	EvDispatch
	EvYield
	EvBlock
	EvUnblock
	EvSleep
	EvWake
	EvDonate
	EvExit
	EvReap
)

func (e EventKind) String() string {
	switch e {
	case EvCreate:
		return "create"
	case EvDispatch:
		return "dispatch"
	case EvYield:
		return "yield"
	case EvBlock:
		return "block"
	case EvUnblock:
		return "unblock"
	case EvSleep:
		return "sleep"
	case EvWake:
		return "wake"
	case EvDonate:
		return "donate"
	case EvExit:
		return "exit"
	case EvReap:
		return "reap"
	default:
		return "unknown"
	}
}

// Event is a scheduling event delivered to Config.Trace.
//
// Other is the previous thread for EvDispatch and the receiving holder for
// EvDonate; it is zero otherwise.
type Event struct {
	Tick     int64
	Kind     EventKind
	Thread   TID
	Name     string
	Priority int
	Other    TID
}

func (e Event) String() string {
	s := fmt.Sprintf("%6d %-8s %s(%d) pri=%d", e.Tick, e.Kind, e.Name, e.Thread, e.Priority)
	if e.Other != 0 {
		s += fmt.Sprintf(" other=%d", e.Other)
	}
	return s
}

func (k *Kernel) trace(kind EventKind, t *Thread, other TID) {
	if k.cfg.Trace == nil {
		return
	}
	k.cfg.Trace(Event{
		Tick:     k.ticks,
		Kind:     kind,
		Thread:   t.id,
		Name:     t.name,
		Priority: t.priority,
		Other:    other,
	})
}
