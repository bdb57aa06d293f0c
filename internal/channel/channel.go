package channel

import (
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc/panics"

	"github.com/Geggles/Japanese-Memrise-Enhancements/internal/errors"
	"github.com/Geggles/Japanese-Memrise-Enhancements/internal/event"
	"github.com/Geggles/Japanese-Memrise-Enhancements/internal/logging"
)

// Channel is one peer's end of one frequency.
//
// Send and RegisterReceiver may be called from any goroutine. Receivers
// are called on the peer's loop for live messages, and on the registering
// goroutine for the backlog replay. A receiver is never called
// concurrently with itself.
type Channel struct {
	sb        *Switchboard
	frequency string
	logger    *logging.Logger

	mu             sync.Mutex
	outbox         []string
	receivers      []*subscription
	backlog        []Message
	everRegistered bool
}

type subscription struct {
	handle Handle
	fn     Receiver
	logger *logging.Logger

	mu        sync.Mutex
	active    bool
	replaying bool
	held      []Message
}

func newChannel(sb *Switchboard, frequency string) *Channel {
	return &Channel{
		sb:        sb,
		frequency: frequency,
		logger:    sb.logger.WithFrequency(frequency),
	}
}

// Frequency returns the channel name.
func (c *Channel) Frequency() string {
	return c.frequency
}

// Send encodes message as JSON and queues it for delivery to the other
// peer. It never blocks and never fails for protocol reasons; the error is
// for payloads that cannot be encoded or a stopped peer.
func (c *Channel) Send(message any) error {
	payload, err := encodePayload(message)
	if err != nil {
		return errors.NewChannelError("send", fmt.Errorf("%w: %v", errors.ErrEncodePayload, err)).
			WithFrequency(c.frequency).WithPeer(c.sb.self.String())
	}
	if err := c.sb.loop.Post(func() { c.sb.send(c, payload) }); err != nil {
		return errors.NewChannelError("send", err).
			WithFrequency(c.frequency).WithPeer(c.sb.self.String())
	}
	return nil
}

// RegisterReceiver subscribes fn to future messages. The first receiver
// ever registered on this channel is first handed the backlog, in arrival
// order, before RegisterReceiver returns; later receivers get none of it.
func (c *Channel) RegisterReceiver(fn Receiver) Handle {
	handle := Handle(uuid.NewString())
	sub := &subscription{
		handle: handle,
		fn:     fn,
		logger: c.logger.With("handle", string(handle)),
		active: true,
	}

	c.mu.Lock()
	var replay []Message
	if !c.everRegistered {
		c.everRegistered = true
		replay, c.backlog = c.backlog, nil
		sub.replaying = len(replay) > 0
	}
	c.receivers = append(c.receivers, sub)
	n := len(c.receivers)
	c.mu.Unlock()

	self := c.sb.self.String()
	c.sb.bus.Publish(event.NewReceiverRegisteredEvent(self, c.frequency, string(sub.handle), n))

	if len(replay) > 0 {
		sub.replay(replay)
		c.logger.Debug("backlog replayed", "messages", len(replay))
		c.sb.bus.Publish(event.NewBacklogReplayedEvent(self, c.frequency, len(replay)))
	}
	return sub.handle
}

// UnregisterReceiver removes the receiver registered under h. It reports
// whether h was registered.
func (c *Channel) UnregisterReceiver(h Handle) bool {
	c.mu.Lock()
	idx := -1
	for i, s := range c.receivers {
		if s.handle == h {
			idx = i
			break
		}
	}
	if idx < 0 {
		c.mu.Unlock()
		return false
	}
	sub := c.receivers[idx]
	c.receivers = append(c.receivers[:idx:idx], c.receivers[idx+1:]...)
	n := len(c.receivers)
	c.mu.Unlock()

	sub.mu.Lock()
	sub.active = false
	sub.held = nil
	sub.mu.Unlock()

	c.sb.bus.Publish(event.NewReceiverUnregisteredEvent(c.sb.self.String(), c.frequency, string(h), n))
	return true
}

// PendingLen returns the number of messages waiting in the outbox.
func (c *Channel) PendingLen() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.outbox)
}

// BacklogLen returns the number of messages kept for a future receiver.
func (c *Channel) BacklogLen() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.backlog)
}

// ReceiverCount returns the number of registered receivers.
func (c *Channel) ReceiverCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.receivers)
}

// dispatch hands m to every receiver in registration order, or keeps it
// in the backlog when there are none. Runs on the loop.
func (c *Channel) dispatch(m Message) {
	c.mu.Lock()
	if len(c.receivers) == 0 {
		c.backlog = append(c.backlog, m)
		n := len(c.backlog)
		c.mu.Unlock()
		c.sb.bus.Publish(event.NewMessageBackloggedEvent(c.sb.self.String(), c.frequency, n))
		return
	}
	subs := slices.Clone(c.receivers)
	c.mu.Unlock()

	for _, s := range subs {
		s.deliver(m)
	}
	c.sb.bus.Publish(event.NewMessageDispatchedEvent(c.sb.self.String(), c.frequency, len(subs)))
}

func (c *Channel) buffer(payload string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.outbox = append(c.outbox, payload)
	return len(c.outbox)
}

func (c *Channel) takeOutbox() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.outbox
	c.outbox = nil
	return out
}

func (s *subscription) deliver(m Message) {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return
	}
	if s.replaying {
		s.held = append(s.held, m)
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()
	s.call(m)
}

// call runs the receiver. A panicking receiver is logged and skipped; the
// drain that is delivering m still clears the queue and releases the lock.
func (s *subscription) call(m Message) {
	var pc panics.Catcher
	pc.Try(func() { s.fn(m) })
	if r := pc.Recovered(); r != nil {
		s.logger.Error("receiver panicked",
			"error", errors.FromPanic(r.Value).Error(),
			"stack", string(r.Stack),
		)
	}
}

// replay delivers the backlog, then anything that arrived live meanwhile,
// and only then lets live delivery call fn directly.
func (s *subscription) replay(backlog []Message) {
	batch := backlog
	for {
		for _, m := range batch {
			s.mu.Lock()
			active := s.active
			s.mu.Unlock()
			if !active {
				return
			}
			s.call(m)
		}

		s.mu.Lock()
		if len(s.held) == 0 {
			s.replaying = false
			s.mu.Unlock()
			return
		}
		batch, s.held = s.held, nil
		s.mu.Unlock()
	}
}
