package kernel

import (
	"fmt"
	"sort"
	"strings"
)

// ThreadInfo describes one thread in a Snapshot.
type ThreadInfo struct {
	ID        TID
	Name      string
	Status    Status
	Priority  int
	Base      int
	WakeAt    int64
	Donors    int
	Nice      int
	RecentCPU int
	Ticks     int64
}

// Snapshot is a copy of the scheduler state at one instant.
type Snapshot struct {
	Tick        int64
	Running     TID
	Ready       []TID
	Sleeping    []TID
	Threads     []ThreadInfo // ordered by id
	IdleTicks   int64
	KernelTicks int64
	LoadAvg     int
}

// Snapshot copies the scheduler state.
func (k *Kernel) Snapshot() Snapshot {
	defer k.Enter().Leave()
	return k.snapshot()
}

// Published returns the snapshot stored by the latest timer tick. It is safe
// to call from any goroutine; it reports false until the first tick when
// Config.PublishSnapshots is set.
func (k *Kernel) Published() (Snapshot, bool) {
	s := k.published.Load()
	if s == nil {
		return Snapshot{}, false
	}
	return *s, true
}

func (k *Kernel) snapshot() Snapshot {
	s := Snapshot{
		Tick:        k.ticks,
		Ready:       append([]TID(nil), k.ready...),
		IdleTicks:   k.idleTicks,
		KernelTicks: k.kernelTicks,
		LoadAvg:     k.policy.LoadAvg().MulInt(100).Round(),
	}
	if k.current != nil {
		s.Running = k.current.id
	}
	for _, e := range k.sleepers {
		s.Sleeping = append(s.Sleeping, e.id)
	}
	for _, t := range k.threads {
		s.Threads = append(s.Threads, ThreadInfo{
			ID:        t.id,
			Name:      t.name,
			Status:    t.status,
			Priority:  t.priority,
			Base:      t.base,
			WakeAt:    t.wakeAt,
			Donors:    len(t.donations),
			Nice:      t.nice,
			RecentCPU: t.recentCPU.MulInt(100).Round(),
			Ticks:     t.ticks,
		})
	}
	sort.Slice(s.Threads, func(i, j int) bool { return s.Threads[i].ID < s.Threads[j].ID })
	return s
}

// Thread returns the info for id.
func (s Snapshot) Thread(id TID) (ThreadInfo, bool) {
	for _, t := range s.Threads {
		if t.ID == id {
			return t, true
		}
	}
	return ThreadInfo{}, false
}

// Lines renders the snapshot as text, one thread per line.
func (s Snapshot) Lines() []string {
	lines := []string{
		fmt.Sprintf("tick %d  idle %d  kernel %d  load %d.%02d", s.Tick, s.IdleTicks, s.KernelTicks, s.LoadAvg/100, s.LoadAvg%100),
		fmt.Sprintf("ready %v  sleeping %v", s.Ready, s.Sleeping),
	}
	for _, t := range s.Threads {
		mark := ' '
		if t.ID == s.Running {
			mark = '*'
		}
		line := fmt.Sprintf("%c %3d %-12s %-8s pri %2d/%2d", mark, t.ID, t.Name, t.Status, t.Priority, t.Base)
		if t.WakeAt != 0 {
			line += fmt.Sprintf(" wake@%d", t.WakeAt)
		}
		if t.Donors > 0 {
			line += fmt.Sprintf(" donors %d", t.Donors)
		}
		lines = append(lines, line)
	}
	return lines
}

// String renders the snapshot as text.
func (s Snapshot) String() string {
	return strings.Join(s.Lines(), "\n")
}
