package settings

import (
	"maps"
	"sync"
)

// Backend is the durable store behind the primary side.
type Backend interface {
	Snapshot() map[string]any
	Set(key string, value any)
	Merge(key string, value any)
}

// MemoryBackend is a Backend held in memory, seeded from defaults.
type MemoryBackend struct {
	mu     sync.RWMutex
	values map[string]any
}

// NewMemoryBackend returns a backend holding a copy of defaults.
func NewMemoryBackend(defaults map[string]any) *MemoryBackend {
	values := make(map[string]any, len(defaults))
	for k, v := range defaults {
		values[k] = clone(v)
	}
	return &MemoryBackend{values: values}
}

// Snapshot returns a deep copy of every stored value.
func (b *MemoryBackend) Snapshot() map[string]any {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := maps.Clone(b.values)
	for k, v := range out {
		out[k] = clone(v)
	}
	return out
}

// Get returns the stored value for key.
func (b *MemoryBackend) Get(key string) (any, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	v, ok := b.values[key]
	return clone(v), ok
}

// Set replaces key.
func (b *MemoryBackend) Set(key string, value any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.values[key] = clone(value)
}

// Merge deep-merges value into key.
func (b *MemoryBackend) Merge(key string, value any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.values[key] = DeepMerge(b.values[key], value)
}
