// Package rt implements the executor and waker described in spec
// component C: a single-threaded cooperative task scheduler indexed by
// symbolic time rather than wall-clock, so a simulation can advance
// time deterministically without ever calling time.Sleep.
//
// The ready-queue/timer-heap split is grounded on eventloop/loop.go's
// own Loop: a FIFO of immediately-runnable tasks plus a min-heap of
// delayed ones, generalized here to order by symbolic time
// (time.Duration since the simulation epoch) instead of time.Time, and
// stripped of the epoll/wake-pipe machinery an executor this package
// has no need for, since there is exactly one goroutine driving it.
package rt

import (
	"container/heap"
	"errors"
	"fmt"
)

// ErrReentrantPoll is returned when PollAll is called again from within
// a task it is currently running - the executor is single-threaded and
// cooperative (spec.md §5), so re-entry always indicates a caller bug
// rather than a condition to recover from.
var ErrReentrantPoll = errors.New("rt: PollAll called re-entrantly")

// TaskID identifies a spawned task for the lifetime of its JoinHandle.
type TaskID uint64

// Task is a unit of deferred work. Returning an error does not stop the
// executor; it is only recorded on the task's JoinHandle.
type Task func() error

// JoinHandle reports whether, and how, a spawned Task completed.
type JoinHandle struct {
	id   TaskID
	done *bool
	err  *error
}

// Done reports whether the task has run to completion.
func (h JoinHandle) Done() bool { return *h.done }

// Err returns the task's result once Done reports true; nil beforehand.
func (h JoinHandle) Err() error { return *h.err }

// timerEntry is one pending delayed task, ordered by When.
type timerEntry struct {
	when  int64 // symbolic nanoseconds since epoch
	seq   uint64
	id    TaskID
	task  Task
	done  *bool
	err   *error
}

// timerHeap is a min-heap of timerEntry, ordered by (when, seq) so ties
// resolve in insertion order - mirroring eventloop's timerHeap shape
// (container/heap.Interface over a plain slice of timer records).
type timerHeap []*timerEntry

func (h timerHeap) Len() int { return len(h) }
func (h timerHeap) Less(i, j int) bool {
	if h[i].when != h[j].when {
		return h[i].when < h[j].when
	}
	return h[i].seq < h[j].seq
}
func (h timerHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *timerHeap) Push(x any)   { *h = append(*h, x.(*timerEntry)) }
func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// Executor is a FIFO ready queue plus a symbolic-time-ordered timer
// heap. It is not safe for concurrent use - spec.md §5 requires the
// entire CORE to run cooperatively on one goroutine.
type Executor struct {
	ready   []func()
	timers  timerHeap
	nextID  TaskID
	seq     uint64
	running bool
}

// New returns an empty Executor.
func New() *Executor {
	return &Executor{}
}

// Spawn enqueues fn to run on the next PollAll call, FIFO relative to
// other ready tasks.
func (e *Executor) Spawn(fn Task) JoinHandle {
	e.nextID++
	id := e.nextID
	done := new(bool)
	errp := new(error)
	e.ready = append(e.ready, func() {
		*errp = fn()
		*done = true
	})
	return JoinHandle{id: id, done: done, err: errp}
}

// SpawnAt schedules fn to become ready once the executor's notion of
// "now" (driven externally via AdvanceTo) reaches when.
func (e *Executor) SpawnAt(when int64, fn Task) JoinHandle {
	e.nextID++
	id := e.nextID
	e.seq++
	done := new(bool)
	errp := new(error)
	heap.Push(&e.timers, &timerEntry{when: when, seq: e.seq, id: id, task: fn, done: done, err: errp})
	return JoinHandle{id: id, done: done, err: errp}
}

// AdvanceTo moves any timer entries due at or before now into the ready
// queue, in time order. Timer entries become ready only through this
// call; neither sim.Driver nor the real backend calls it.
func (e *Executor) AdvanceTo(now int64) {
	for e.timers.Len() > 0 && e.timers[0].when <= now {
		ent := heap.Pop(&e.timers).(*timerEntry)
		fn, done, errp := ent.task, ent.done, ent.err
		e.ready = append(e.ready, func() {
			*errp = fn()
			*done = true
		})
	}
}

// NextTimerAt returns the symbolic time of the earliest pending timer
// and true, or (0, false) if no timers are pending - how far AdvanceTo
// would need to jump to make the next timer ready.
func (e *Executor) NextTimerAt() (int64, bool) {
	if e.timers.Len() == 0 {
		return 0, false
	}
	return e.timers[0].when, true
}

// PollAll drains the ready queue once, running every task present at
// the time of the call (including any newly spawned by those tasks,
// consistent with eventloop's own drain-until-empty semantics). Returns
// ErrReentrantPoll if called from within a task it is already running.
func (e *Executor) PollAll() error {
	if e.running {
		return ErrReentrantPoll
	}
	e.running = true
	defer func() { e.running = false }()

	for len(e.ready) > 0 {
		batch := e.ready
		e.ready = nil
		for _, fn := range batch {
			fn()
		}
	}
	return nil
}

// Pending reports whether any task is ready to run or any timer is
// still outstanding, i.e. whether the executor is not yet quiescent.
func (e *Executor) Pending() bool {
	return len(e.ready) > 0 || e.timers.Len() > 0
}

func (h *JoinHandle) String() string {
	return fmt.Sprintf("JoinHandle(id=%d done=%v)", h.id, *h.done)
}
