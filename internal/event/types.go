package event

import "time"

// Event is the interface that all events must implement.
type Event interface {
	// EventType returns a string identifier for this event type.
	// Convention: "category.action" (e.g., "mailbox.drained").
	EventType() string

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// ChannelEvent is an Event raised by one peer for one frequency.
type ChannelEvent interface {
	Event
	PeerSide() string
	ChannelFrequency() string
}

// Event type identifiers.
const (
	TypeChannelOpened        = "channel.opened"
	TypeMessageSent          = "message.sent"
	TypeMessageBuffered      = "message.buffered"
	TypeOutboxFlushed        = "outbox.flushed"
	TypeMailboxDrained       = "mailbox.drained"
	TypeMessageDispatched    = "message.dispatched"
	TypeMessageBacklogged    = "message.backlogged"
	TypeBacklogReplayed      = "backlog.replayed"
	TypeReceiverRegistered   = "receiver.registered"
	TypeReceiverUnregistered = "receiver.unregistered"
	TypeSettingsReady        = "settings.ready"
)

// Drain triggers reported by MailboxDrainedEvent.
const (
	TriggerStartup = "startup"
	TriggerRelease = "release"
)

// baseEvent provides common fields for all events.
type baseEvent struct {
	eventType string
	timestamp time.Time
}

func (e baseEvent) EventType() string    { return e.eventType }
func (e baseEvent) Timestamp() time.Time { return e.timestamp }

func newBaseEvent(eventType string) baseEvent {
	return baseEvent{
		eventType: eventType,
		timestamp: time.Now(),
	}
}

// scope carries the peer and frequency every channel event is about.
type scope struct {
	baseEvent
	Peer      string // side name of the peer that raised the event
	Frequency string
}

func (s scope) PeerSide() string         { return s.Peer }
func (s scope) ChannelFrequency() string { return s.Frequency }

func newScope(eventType, peer, frequency string) scope {
	return scope{baseEvent: newBaseEvent(eventType), Peer: peer, Frequency: frequency}
}

// -----------------------------------------------------------------------------
// Channel Lifecycle Events
// -----------------------------------------------------------------------------

// ChannelOpenedEvent is emitted the first time a peer constructs a channel.
type ChannelOpenedEvent struct {
	scope
}

// NewChannelOpenedEvent creates a ChannelOpenedEvent.
func NewChannelOpenedEvent(peer, frequency string) ChannelOpenedEvent {
	return ChannelOpenedEvent{scope: newScope(TypeChannelOpened, peer, frequency)}
}

// ReceiverRegisteredEvent is emitted when a receiver subscribes.
type ReceiverRegisteredEvent struct {
	scope
	Handle    string
	Receivers int // receivers after registration
}

// NewReceiverRegisteredEvent creates a ReceiverRegisteredEvent.
func NewReceiverRegisteredEvent(peer, frequency, handle string, receivers int) ReceiverRegisteredEvent {
	return ReceiverRegisteredEvent{
		scope:     newScope(TypeReceiverRegistered, peer, frequency),
		Handle:    handle,
		Receivers: receivers,
	}
}

// ReceiverUnregisteredEvent is emitted when a receiver is removed.
type ReceiverUnregisteredEvent struct {
	scope
	Handle    string
	Receivers int // receivers after removal
}

// NewReceiverUnregisteredEvent creates a ReceiverUnregisteredEvent.
func NewReceiverUnregisteredEvent(peer, frequency, handle string, receivers int) ReceiverUnregisteredEvent {
	return ReceiverUnregisteredEvent{
		scope:     newScope(TypeReceiverUnregistered, peer, frequency),
		Handle:    handle,
		Receivers: receivers,
	}
}

// -----------------------------------------------------------------------------
// Protocol Events
// -----------------------------------------------------------------------------

// MessageSentEvent is emitted when a message is appended directly to the
// other peer's mailbox.
type MessageSentEvent struct {
	scope
	Bytes int
}

// NewMessageSentEvent creates a MessageSentEvent.
func NewMessageSentEvent(peer, frequency string, bytes int) MessageSentEvent {
	return MessageSentEvent{scope: newScope(TypeMessageSent, peer, frequency), Bytes: bytes}
}

// MessageBufferedEvent is emitted when a send finds the target mailbox held
// by its owner and the message goes to the pending outbox instead.
type MessageBufferedEvent struct {
	scope
	Pending int // outbox length after buffering
}

// NewMessageBufferedEvent creates a MessageBufferedEvent.
func NewMessageBufferedEvent(peer, frequency string, pending int) MessageBufferedEvent {
	return MessageBufferedEvent{scope: newScope(TypeMessageBuffered, peer, frequency), Pending: pending}
}

// OutboxFlushedEvent is emitted when buffered messages are appended to the
// other peer's mailbox as one block.
type OutboxFlushedEvent struct {
	scope
	Count int
}

// NewOutboxFlushedEvent creates an OutboxFlushedEvent.
func NewOutboxFlushedEvent(peer, frequency string, count int) OutboxFlushedEvent {
	return OutboxFlushedEvent{scope: newScope(TypeOutboxFlushed, peer, frequency), Count: count}
}

// MailboxDrainedEvent is emitted after a peer claimed, emptied and released
// its own mailbox.
type MailboxDrainedEvent struct {
	scope
	Trigger string // TriggerStartup or TriggerRelease
	Count   int    // messages dequeued
}

// NewMailboxDrainedEvent creates a MailboxDrainedEvent.
func NewMailboxDrainedEvent(peer, frequency, trigger string, count int) MailboxDrainedEvent {
	return MailboxDrainedEvent{
		scope:   newScope(TypeMailboxDrained, peer, frequency),
		Trigger: trigger,
		Count:   count,
	}
}

// MessageDispatchedEvent is emitted when a dequeued message is handed to
// the registered receivers.
type MessageDispatchedEvent struct {
	scope
	Receivers int
}

// NewMessageDispatchedEvent creates a MessageDispatchedEvent.
func NewMessageDispatchedEvent(peer, frequency string, receivers int) MessageDispatchedEvent {
	return MessageDispatchedEvent{scope: newScope(TypeMessageDispatched, peer, frequency), Receivers: receivers}
}

// MessageBackloggedEvent is emitted when a dequeued message is kept because
// no receiver is registered yet.
type MessageBackloggedEvent struct {
	scope
	Backlog int // backlog length after appending
}

// NewMessageBackloggedEvent creates a MessageBackloggedEvent.
func NewMessageBackloggedEvent(peer, frequency string, backlog int) MessageBackloggedEvent {
	return MessageBackloggedEvent{scope: newScope(TypeMessageBacklogged, peer, frequency), Backlog: backlog}
}

// BacklogReplayedEvent is emitted when the first receiver is handed the
// backlog.
type BacklogReplayedEvent struct {
	scope
	Count int
}

// NewBacklogReplayedEvent creates a BacklogReplayedEvent.
func NewBacklogReplayedEvent(peer, frequency string, count int) BacklogReplayedEvent {
	return BacklogReplayedEvent{scope: newScope(TypeBacklogReplayed, peer, frequency), Count: count}
}

// -----------------------------------------------------------------------------
// Settings Events
// -----------------------------------------------------------------------------

// SettingsReadyEvent is emitted when a peer's settings handshake completes.
type SettingsReadyEvent struct {
	scope
	Role string // "primary" or "replica"
	Keys int
}

// NewSettingsReadyEvent creates a SettingsReadyEvent.
func NewSettingsReadyEvent(peer, frequency, role string, keys int) SettingsReadyEvent {
	return SettingsReadyEvent{
		scope: newScope(TypeSettingsReady, peer, frequency),
		Role:  role,
		Keys:  keys,
	}
}
