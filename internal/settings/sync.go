// Package settings keeps a settings map in sync between the two peers.
//
// The primary side owns a Backend. On start it sends its full snapshot to
// the replica on the "settings" channel, and both sides become ready once
// the replica confirms. After that either side may Set or Merge a key; the
// change is applied locally and mirrored on the other side.
//
// Readiness is a deferred.Value. The replica resolves it from inside the
// delivery of the initial snapshot, so its continuations run before any
// later message in the same drain is delivered.
package settings

import (
	"github.com/Geggles/Japanese-Memrise-Enhancements/internal/channel"
	"github.com/Geggles/Japanese-Memrise-Enhancements/internal/deferred"
	"github.com/Geggles/Japanese-Memrise-Enhancements/internal/event"
	"github.com/Geggles/Japanese-Memrise-Enhancements/internal/logging"
)

type options struct {
	logger *logging.Logger
	bus    *event.Bus
	peer   string
}

// Option configures StartPrimary and StartReplica.
type Option func(*options)

// WithLogger sets the logger.
func WithLogger(logger *logging.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithBus publishes a SettingsReadyEvent for peer once the handshake
// completes.
func WithBus(bus *event.Bus, peer string) Option {
	return func(o *options) {
		o.bus = bus
		o.peer = peer
	}
}

func buildOptions(role Role, opts []Option) options {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logging.NopLogger()
	}
	o.logger = o.logger.WithComponent("settings").With("role", string(role))
	return o
}

func announce(ready *deferred.Value[*Manager], o options) {
	ready.OnFulfilled(func(m *Manager) {
		m.logger.Info("settings ready", "keys", len(m.Keys()))
		if o.bus != nil {
			o.bus.Publish(event.NewSettingsReadyEvent(o.peer, Frequency, string(m.role), len(m.Keys())))
		}
	})
}

func decodeEnvelope(logger *logging.Logger, msg channel.Message) (Envelope, bool) {
	var env Envelope
	if err := msg.Decode(&env); err != nil {
		logger.Warn("ignoring malformed settings message", "error", err.Error())
		return Envelope{}, false
	}
	return env, true
}

// StartPrimary seeds a Manager from backend, sends it to the replica on ch
// and returns a value that resolves once the replica confirms.
func StartPrimary(ch *channel.Channel, backend Backend, opts ...Option) (*deferred.Value[*Manager], error) {
	o := buildOptions(RolePrimary, opts)
	m := newManager(RolePrimary, ch, backend, o.logger)
	snapshot := backend.Snapshot()
	m.fill(snapshot)

	init, err := newEnvelope(TypeInitialize, "", snapshot)
	if err != nil {
		return nil, err
	}

	ready := deferred.New[*Manager]()
	announce(ready, o)

	ch.RegisterReceiver(func(msg channel.Message) {
		if env, ok := decodeEnvelope(o.logger, msg); ok {
			m.apply(env)
		}
	})

	handshake := ch.RegisterReceiver(func(msg channel.Message) {
		if env, ok := decodeEnvelope(o.logger, msg); ok && env.Type == TypeInitializationDone {
			ready.Resolve(m)
		}
	})
	ready.OnFulfilled(func(*Manager) { ch.UnregisterReceiver(handshake) })

	if err := ch.Send(init); err != nil {
		return nil, err
	}
	o.logger.Debug("settings offered", "keys", len(snapshot))
	return ready, nil
}

// StartReplica waits on ch for the primary's snapshot. The returned value
// resolves inside the delivery of that snapshot, right after the
// confirmation has been sent.
func StartReplica(ch *channel.Channel, opts ...Option) *deferred.Value[*Manager] {
	o := buildOptions(RoleReplica, opts)
	m := newManager(RoleReplica, ch, nil, o.logger)

	ready := deferred.New[*Manager]()
	announce(ready, o)

	ch.RegisterReceiver(func(msg channel.Message) {
		env, ok := decodeEnvelope(o.logger, msg)
		if !ok {
			return
		}
		if env.Type != TypeInitialize {
			m.apply(env)
			return
		}

		value, err := env.decodeValue()
		if err != nil {
			ready.Reject(err)
			return
		}
		values, _ := value.(map[string]any)
		m.fill(values)

		done, _ := newEnvelope(TypeInitializationDone, "", nil)
		if err := ch.Send(done); err != nil {
			ready.Reject(err)
			return
		}
		ready.Resolve(m)
	})
	return ready
}
