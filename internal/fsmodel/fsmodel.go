// Package fsmodel implements the per-node file-system model described
// in spec component E: a file table pipelined through the event
// manager with a fixed [min,max] delay, a byte capacity, and a
// shutdown/raise availability switch.
package fsmodel

import (
	"errors"
	"time"

	"github.com/joeycumines/detsim/internal/event"
	"github.com/joeycumines/detsim/internal/evmgr"
	"github.com/joeycumines/detsim/internal/tracker"
)

// Error taxonomy per spec.md §4.E.
var (
	ErrFileNotFound        = errors.New("fsmodel: file not found")
	ErrFileAlreadyExists   = errors.New("fsmodel: file already exists")
	ErrStorageLimitReached = errors.New("fsmodel: storage limit reached")
	ErrStorageNotAvailable = errors.New("fsmodel: storage not available")
	ErrFileNotAvailable    = errors.New("fsmodel: file not available")
)

// Manager is one node's file table. Not safe for concurrent use,
// consistent with the rest of the CORE's single-threaded-cooperative
// invariant (spec.md §5).
type Manager struct {
	evm         *evmgr.Manager
	min, max    time.Duration
	capacity    int64
	available   bool
	files       map[string][]byte
	used        Counter
	results     map[event.ID]event.FsOutcome
	onDone      map[event.ID]func(event.FsOutcome)
}

// New returns a Manager pipelining every op through evm with delay
// [min,max] and refusing writes that would push total bytes stored
// above capacity.
func New(evm *evmgr.Manager, min, max time.Duration, capacity int64) *Manager {
	return &Manager{
		evm:       evm,
		min:       min,
		max:       max,
		capacity:  capacity,
		available: true,
		files:     make(map[string][]byte),
		results:   make(map[event.ID]event.FsOutcome),
		onDone:    make(map[event.ID]func(event.FsOutcome)),
	}
}

// OnDone registers fn to be called with id's realized outcome the
// moment it fires, in addition to it being recorded for Result - used
// by callers (the root systemRuntime) that need a continuation rather
// than a poll. Must be called before the driver fires id.
func (m *Manager) OnDone(id event.ID, fn func(event.FsOutcome)) {
	m.onDone[id] = fn
}

// Shutdown flips availability to false. Every op already pipelined
// resolves with ErrStorageNotAvailable when it fires (checked in
// submit's trigger, not here, since the flip must affect results
// computed later); every new op submitted after this call fails
// immediately.
func (m *Manager) Shutdown() {
	m.available = false
}

// Raise flips availability back to true. Persisted bytes and the
// capacity counter survive the shutdown/raise cycle unchanged.
func (m *Manager) Raise() {
	m.available = true
}

// Available reports the current availability flag.
func (m *Manager) Available() bool {
	return m.available
}

// Result returns the realized outcome of a previously fired FS event,
// if any - called by the driver/System after evmgr.Manager.Fire.
func (m *Manager) Result(id event.ID) (event.FsOutcome, bool) {
	r, ok := m.results[id]
	return r, ok
}

func (m *Manager) submit(op event.FsOp, name string, apply func() event.FsOutcome) (event.ID, error) {
	if !m.available {
		return 0, ErrStorageNotAvailable
	}
	var id event.ID
	id = m.evm.Register(tracker.Anchor, m.min, m.max, event.Info{Kind: event.KindFsEvent, File: name, Op: op}, func(event.Outcome) {
		var res event.FsOutcome
		if !m.available {
			res = event.FsOutcome{Err: ErrStorageNotAvailable}
		} else {
			res = apply()
		}
		m.results[id] = res
		if fn, ok := m.onDone[id]; ok {
			delete(m.onDone, id)
			fn(res)
		}
	})
	return id, nil
}

// Create pipelines creation of an empty file named name.
func (m *Manager) Create(name string) (event.ID, error) {
	return m.submit(event.FsOpCreate, name, func() event.FsOutcome {
		if _, exists := m.files[name]; exists {
			return event.FsOutcome{Err: ErrFileAlreadyExists}
		}
		m.files[name] = nil
		return event.FsOutcome{}
	})
}

// Open pipelines an existence check for name.
func (m *Manager) Open(name string) (event.ID, error) {
	return m.submit(event.FsOpOpen, name, func() event.FsOutcome {
		if _, exists := m.files[name]; !exists {
			return event.FsOutcome{Err: ErrFileNotFound}
		}
		return event.FsOutcome{}
	})
}

// Write pipelines writing data at offset into name, extending the file
// and the capacity counter as needed. Concurrent writes to the same
// file are applied in the order their events fire, not submission
// order, per spec.md §4.E.
func (m *Manager) Write(name string, offset int, data []byte) (event.ID, error) {
	return m.submit(event.FsOpWrite, name, func() event.FsOutcome {
		content, exists := m.files[name]
		if !exists {
			return event.FsOutcome{Err: ErrFileNotFound}
		}
		end := offset + len(data)
		if end > len(content) {
			grown := int64(end) - int64(len(content))
			if m.used.Load()+uint64(grown) > uint64(m.capacity) {
				return event.FsOutcome{Err: ErrStorageLimitReached}
			}
			extended := make([]byte, end)
			copy(extended, content)
			content = extended
			m.used.Store(m.used.Load() + uint64(grown))
		}
		copy(content[offset:end], data)
		m.files[name] = content
		return event.FsOutcome{N: len(data)}
	})
}

// Read pipelines reading up to length bytes at offset from name;
// reading past EOF returns fewer bytes than requested, never an error.
func (m *Manager) Read(name string, offset, length int) (event.ID, error) {
	return m.submit(event.FsOpRead, name, func() event.FsOutcome {
		content, exists := m.files[name]
		if !exists {
			return event.FsOutcome{Err: ErrFileNotFound}
		}
		if offset >= len(content) {
			return event.FsOutcome{Data: nil, N: 0}
		}
		end := offset + length
		if end > len(content) {
			end = len(content)
		}
		data := append([]byte(nil), content[offset:end]...)
		return event.FsOutcome{Data: data, N: len(data)}
	})
}

// Remove pipelines deleting name and reclaiming its bytes from the
// capacity counter.
func (m *Manager) Remove(name string) (event.ID, error) {
	return m.submit(event.FsOpRemove, name, func() event.FsOutcome {
		content, exists := m.files[name]
		if !exists {
			return event.FsOutcome{Err: ErrFileNotFound}
		}
		m.used.Store(m.used.Load() - uint64(len(content)))
		delete(m.files, name)
		return event.FsOutcome{}
	})
}
