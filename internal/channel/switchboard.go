package channel

import (
	"slices"
	"sync"

	"github.com/Geggles/Japanese-Memrise-Enhancements/internal/errors"
	"github.com/Geggles/Japanese-Memrise-Enhancements/internal/event"
	"github.com/Geggles/Japanese-Memrise-Enhancements/internal/ledger"
	"github.com/Geggles/Japanese-Memrise-Enhancements/internal/logging"
	"github.com/Geggles/Japanese-Memrise-Enhancements/internal/loop"
	"github.com/Geggles/Japanese-Memrise-Enhancements/internal/peer"
)

// Switchboard runs the mailbox protocol for one peer and owns that peer's
// channels. Every protocol step runs as a task on the peer's loop.
type Switchboard struct {
	self   peer.Peer
	ledger *ledger.Ledger
	loop   *loop.Loop
	bus    *event.Bus
	logger *logging.Logger

	mu       sync.Mutex
	channels map[string]*Channel
	cancel   func()
	closed   bool
}

// Option configures a Switchboard.
type Option func(*Switchboard)

// WithBus publishes protocol events to bus.
func WithBus(bus *event.Bus) Option {
	return func(s *Switchboard) {
		s.bus = bus
	}
}

// WithLogger sets the logger.
func WithLogger(logger *logging.Logger) Option {
	return func(s *Switchboard) {
		s.logger = logger
	}
}

// NewSwitchboard starts watching l for lock changes on behalf of self.
// Reactions are posted to lp; nothing runs until lp does.
func NewSwitchboard(self peer.Peer, l *ledger.Ledger, lp *loop.Loop, opts ...Option) *Switchboard {
	s := &Switchboard{
		self:     self,
		ledger:   l,
		loop:     lp,
		channels: make(map[string]*Channel),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.bus == nil {
		s.bus = event.NewBus(nil)
	}
	if s.logger == nil {
		s.logger = logging.NopLogger()
	}
	s.logger = s.logger.WithPeer(self.String()).WithComponent("switchboard")

	s.cancel = l.Subscribe(func(c ledger.Change) {
		if !c.IsSlot || c.Key.Kind != ledger.KindLock {
			return
		}
		// A stopped loop means this peer is gone; its reactions go with it.
		_ = lp.Post(func() { s.onLockChange(c) })
	})
	return s
}

// Self returns the peer this switchboard acts for.
func (s *Switchboard) Self() peer.Peer {
	return s.self
}

// Bus returns the bus protocol events are published to.
func (s *Switchboard) Bus() *event.Bus {
	return s.bus
}

// Channel returns the channel for frequency, creating it on first use.
// Creation enqueues the startup drain; it does not wait for it.
func (s *Switchboard) Channel(frequency string) (*Channel, error) {
	if frequency == "" {
		return nil, errors.NewChannelError("open channel", errors.ErrEmptyFrequency).WithPeer(s.self.String())
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, errors.NewChannelError("open channel", errors.ErrSwitchboardClosed).
			WithFrequency(frequency).WithPeer(s.self.String())
	}
	if c, ok := s.channels[frequency]; ok {
		s.mu.Unlock()
		return c, nil
	}
	c := newChannel(s, frequency)
	if err := s.loop.Post(func() { s.startup(c) }); err != nil {
		s.mu.Unlock()
		return nil, errors.NewChannelError("open channel", err).
			WithFrequency(frequency).WithPeer(s.self.String())
	}
	s.channels[frequency] = c
	s.mu.Unlock()

	c.logger.Debug("channel opened")
	s.bus.Publish(event.NewChannelOpenedEvent(s.self.String(), frequency))
	return c, nil
}

// Frequencies returns the frequencies opened so far, sorted.
func (s *Switchboard) Frequencies() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.channels))
	for f := range s.channels {
		out = append(out, f)
	}
	slices.Sort(out)
	return out
}

// Close stops reacting to ledger changes and refuses new channels.
// Existing channels keep their receivers but no longer drain or flush.
func (s *Switchboard) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.cancel()
}

func (s *Switchboard) lookup(frequency string) *Channel {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.channels[frequency]
}

// startup claims and drains this peer's mailbox unless the other peer
// holds it, in which case its release will trigger the drain.
func (s *Switchboard) startup(c *Channel) {
	switch lock := s.ledger.Lock(c.frequency, s.self); {
	case lock.IsHeldBy(s.self.Other()):
		c.logger.Debug("mailbox held by other peer, drain deferred")
		return
	case lock.IsHeldBy(s.self):
		c.logger.Warn("mailbox lock left held by this peer, treating as free")
	}
	s.drain(c, event.TriggerStartup)
}

// drain claims this peer's mailbox, dispatches every queued message in
// order, clears the queue and releases the lock.
func (s *Switchboard) drain(c *Channel, trigger string) {
	f := c.frequency
	s.ledger.SetLock(f, s.self, ledger.HeldBy(s.self))
	queue := s.ledger.Queue(f, s.self)
	for _, raw := range queue {
		c.dispatch(s.decode(f, raw))
	}
	s.ledger.SetQueue(f, s.self, nil)
	s.ledger.SetLock(f, s.self, ledger.Free)

	c.logger.Debug("mailbox drained", "trigger", trigger, "messages", len(queue))
	s.bus.Publish(event.NewMailboxDrainedEvent(s.self.String(), f, trigger, len(queue)))
}

// send appends payload to the other peer's mailbox, or buffers it when the
// owner is reading. A non-empty outbox also buffers, so a direct append can
// never overtake messages still waiting for a flush.
func (s *Switchboard) send(c *Channel, payload string) {
	f, to := c.frequency, s.self.Other()
	if s.ledger.Lock(f, to).IsHeldBy(to) || c.PendingLen() > 0 {
		n := c.buffer(payload)
		c.logger.Debug("message buffered", "pending", n)
		s.bus.Publish(event.NewMessageBufferedEvent(s.self.String(), f, n))
		return
	}

	s.ledger.SetLock(f, to, ledger.HeldBy(s.self))
	queue := s.ledger.Queue(f, to)
	s.ledger.SetQueue(f, to, append(queue, payload))
	s.ledger.SetLock(f, to, ledger.Free)

	s.bus.Publish(event.NewMessageSentEvent(s.self.String(), f, len(payload)))
}

// flush appends the whole outbox to the other peer's mailbox as one block.
func (s *Switchboard) flush(c *Channel) {
	f, to := c.frequency, s.self.Other()
	s.ledger.SetLock(f, to, ledger.HeldBy(s.self))
	queue := s.ledger.Queue(f, to)
	pending := c.takeOutbox()
	s.ledger.SetQueue(f, to, append(queue, pending...))
	s.ledger.SetLock(f, to, ledger.Free)

	c.logger.Debug("outbox flushed", "messages", len(pending))
	s.bus.Publish(event.NewOutboxFlushedEvent(s.self.String(), f, len(pending)))
}

// onLockChange reacts to a lock the other peer just released. Releases by
// this peer are never acted on.
func (s *Switchboard) onLockChange(change ledger.Change) {
	c := s.lookup(change.Key.Frequency)
	if c == nil {
		return
	}
	old, cur := change.LockTransition()
	if !old.IsHeldBy(s.self.Other()) || cur != ledger.Free {
		return
	}

	owner := change.Key.Owner
	if now := s.ledger.Lock(c.frequency, owner); now != ledger.Free {
		c.logger.Debug("stale release ignored", "owner", owner.String(), "lock", now.String())
		return
	}

	if owner == s.self {
		s.drain(c, event.TriggerRelease)
		return
	}
	if c.PendingLen() > 0 {
		s.flush(c)
	}
}

// decode validates one queued payload. Entries that are not JSON mean the
// ledger was corrupted.
func (s *Switchboard) decode(frequency, raw string) Message {
	if !validPayload(raw) {
		key := ledger.QueueKey(frequency, s.self).String()
		panic(errors.NewContractError(key, raw, errors.ErrMalformedQueue))
	}
	return NewMessage(raw)
}
