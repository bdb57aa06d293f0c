package settings

import (
	"maps"
	"slices"
	"sync"

	"github.com/Geggles/Japanese-Memrise-Enhancements/internal/channel"
	"github.com/Geggles/Japanese-Memrise-Enhancements/internal/logging"
)

// Role says which side of the settings handshake a Manager is on.
type Role string

const (
	// RolePrimary owns the backend and starts the handshake.
	RolePrimary Role = "primary"
	// RoleReplica mirrors the primary.
	RoleReplica Role = "replica"
)

// Manager is one side's cached view of the settings. Changes made through
// it are applied locally and sent to the other side.
type Manager struct {
	role    Role
	ch      *channel.Channel
	backend Backend // primary only
	logger  *logging.Logger

	mu    sync.RWMutex
	cache map[string]any
}

func newManager(role Role, ch *channel.Channel, backend Backend, logger *logging.Logger) *Manager {
	return &Manager{
		role:    role,
		ch:      ch,
		backend: backend,
		logger:  logger,
		cache:   make(map[string]any),
	}
}

// Role returns the side this manager is on.
func (m *Manager) Role() Role {
	return m.role
}

// Get returns the cached value for key.
func (m *Manager) Get(key string) (any, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.cache[key]
	return clone(v), ok
}

// Keys returns the cached keys, sorted.
func (m *Manager) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Sorted(maps.Keys(m.cache))
}

// Snapshot returns a deep copy of the cache.
func (m *Manager) Snapshot() map[string]any {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]any, len(m.cache))
	for k, v := range m.cache {
		out[k] = clone(v)
	}
	return out
}

// Set replaces key and tells the other side. Both sides store the value
// as it decodes from JSON, so a struct becomes a map on this side too.
func (m *Manager) Set(key string, value any) error {
	env, decoded, err := m.envelope(TypeSetValue, key, value)
	if err != nil {
		return err
	}
	m.applySet(key, decoded)
	return m.ch.Send(env)
}

// Merge deep-merges value into key and sends only value to the other side,
// which is cheaper than resending a large setting.
func (m *Manager) Merge(key string, value any) error {
	env, decoded, err := m.envelope(TypeMergeValue, key, value)
	if err != nil {
		return err
	}
	m.applyMerge(key, decoded)
	return m.ch.Send(env)
}

func (m *Manager) envelope(t MessageType, key string, value any) (Envelope, any, error) {
	env, err := newEnvelope(t, key, value)
	if err != nil {
		return Envelope{}, nil, err
	}
	decoded, err := env.decodeValue()
	if err != nil {
		return Envelope{}, nil, err
	}
	return env, decoded, nil
}

func (m *Manager) applySet(key string, value any) {
	m.mu.Lock()
	m.cache[key] = clone(value)
	m.mu.Unlock()
	if m.backend != nil {
		m.backend.Set(key, value)
	}
}

func (m *Manager) applyMerge(key string, value any) {
	m.mu.Lock()
	m.cache[key] = DeepMerge(m.cache[key], value)
	m.mu.Unlock()
	if m.backend != nil {
		m.backend.Merge(key, value)
	}
}

func (m *Manager) fill(values map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, v := range values {
		m.cache[k] = clone(v)
	}
}

// apply handles setValue and mergeValue envelopes from the other side.
// It reports whether env was one of them.
func (m *Manager) apply(env Envelope) bool {
	switch env.Type {
	case TypeSetValue, TypeMergeValue:
	default:
		return false
	}
	value, err := env.decodeValue()
	if err != nil {
		m.logger.Warn("dropping settings update", "type", string(env.Type), "key", env.Key, "error", err.Error())
		return true
	}
	if env.Type == TypeSetValue {
		m.applySet(env.Key, value)
	} else {
		m.applyMerge(env.Key, value)
	}
	m.logger.Debug("settings updated by other side", "type", string(env.Type), "key", env.Key)
	return true
}
