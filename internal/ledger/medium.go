package ledger

import (
	"maps"
	"sync"
	"sync/atomic"
)

// Listener receives one write to a Medium. hadOld is false when key was
// absent before the write.
type Listener func(key, old string, hadOld bool, value string)

// Medium is the shared mutable store both peers read, write and watch.
//
// Every Set is reported to every listener, in write order, with no
// coalescing or drops, before Set returns. Listeners may read the medium
// but must not write to it; they hand work to a loop instead.
type Medium interface {
	Get(key string) (value string, ok bool)
	Set(key, value string)
	Subscribe(l Listener) (cancel func())
}

type listenerEntry struct {
	id uint64
	fn Listener
}

// MemoryMedium is an in-process Medium. A write and its notifications form
// one atomic step, so all listeners observe a single global write order.
type MemoryMedium struct {
	writeMu sync.Mutex // serializes Set, including notification

	mu        sync.RWMutex
	data      map[string]string
	listeners []listenerEntry
	nextID    uint64

	writes atomic.Uint64
}

// NewMemoryMedium returns an empty medium.
func NewMemoryMedium() *MemoryMedium {
	return &MemoryMedium{data: make(map[string]string)}
}

// Get returns the raw value stored under key.
func (m *MemoryMedium) Get(key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return v, ok
}

// Set stores value under key and notifies every listener before returning.
func (m *MemoryMedium) Set(key, value string) {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	m.mu.Lock()
	old, hadOld := m.data[key]
	m.data[key] = value
	listeners := make([]listenerEntry, len(m.listeners))
	copy(listeners, m.listeners)
	m.mu.Unlock()

	m.writes.Add(1)
	for _, l := range listeners {
		l.fn(key, old, hadOld, value)
	}
}

// Subscribe registers l for all future writes. The returned function
// removes it; calling it more than once is harmless.
func (m *MemoryMedium) Subscribe(l Listener) func() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	id := m.nextID
	m.listeners = append(m.listeners, listenerEntry{id: id, fn: l})

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		for i, e := range m.listeners {
			if e.id == id {
				m.listeners = append(m.listeners[:i:i], m.listeners[i+1:]...)
				return
			}
		}
	}
}

// Writes returns the number of Set calls so far.
func (m *MemoryMedium) Writes() uint64 {
	return m.writes.Load()
}

// Snapshot returns a copy of every key and raw value.
func (m *MemoryMedium) Snapshot() map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return maps.Clone(m.data)
}

// ListenerCount returns the number of active listeners.
func (m *MemoryMedium) ListenerCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.listeners)
}
