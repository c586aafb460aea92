// Package real implements detsim.Runtime over OS primitives - time.Timer
// for timers, net.ListenUDP/net.DialUDP for UDP, net.Listen("tcp", ...)
// for TCP, os.* for the file system, and a go-inprocgrpc Channel for
// RPC - so process code written against detsim.Runtime runs unmodified
// against real wall-clock time and real network sockets, not just the
// deterministic simulator.
package real

import "sync"

// loop is the minimal task queue go-inprocgrpc's Channel needs from its
// Loop dependency: submit a func(), have it run. It is grounded on
// eventloop/loop.go's external/internal ChunkedIngress split, stripped
// of the epoll/wake-pipe machinery that package needs for I/O readiness
// polling - a Channel only ever submits completion callbacks, never
// waits on a file descriptor, so one worker goroutine draining two
// plain slices (internal tasks ahead of external ones, matching
// go-inprocgrpc's documented priority) is sufficient.
type loop struct {
	mu       sync.Mutex
	cond     *sync.Cond
	internal []func()
	external []func()
	closed   bool
}

func newLoop() *loop {
	l := &loop{}
	l.cond = sync.NewCond(&l.mu)
	go l.run()
	return l
}

// Submit satisfies go-inprocgrpc.Loop: queues fn for external-priority
// execution.
func (l *loop) Submit(fn func()) error {
	return l.enqueue(&l.external, fn)
}

// SubmitInternal satisfies go-inprocgrpc.Loop: queues fn ahead of every
// pending external task.
func (l *loop) SubmitInternal(fn func()) error {
	return l.enqueue(&l.internal, fn)
}

func (l *loop) enqueue(q *[]func(), fn func()) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return ErrLoopClosed
	}
	*q = append(*q, fn)
	l.cond.Signal()
	return nil
}

func (l *loop) run() {
	for {
		l.mu.Lock()
		for !l.closed && len(l.internal) == 0 && len(l.external) == 0 {
			l.cond.Wait()
		}
		if l.closed && len(l.internal) == 0 && len(l.external) == 0 {
			l.mu.Unlock()
			return
		}
		var fn func()
		if len(l.internal) > 0 {
			fn, l.internal = l.internal[0], l.internal[1:]
		} else {
			fn, l.external = l.external[0], l.external[1:]
		}
		l.mu.Unlock()
		fn()
	}
}

// close stops the worker goroutine once the queues drain.
func (l *loop) close() {
	l.mu.Lock()
	l.closed = true
	l.cond.Broadcast()
	l.mu.Unlock()
}
