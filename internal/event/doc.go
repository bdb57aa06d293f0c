// Package event provides a pub-sub event bus that reports what the channel
// protocol does.
//
// The protocol itself never depends on anyone listening. The bus exists so
// that metrics, tests and the CLI can observe drains, sends and replays
// without reaching into a peer's state.
//
// # Main Types
//
//   - [Event]: Interface that all events must implement, providing EventType() and Timestamp()
//   - [ChannelEvent]: An Event that also names the peer and frequency it concerns
//   - [Bus]: Synchronous pub-sub event dispatcher with thread-safe operations
//   - [Handler]: Function type for event handlers (func(Event))
//
// # Event Categories
//
// Channel lifecycle:
//   - [ChannelOpenedEvent], [ReceiverRegisteredEvent], [ReceiverUnregisteredEvent]
//
// Protocol:
//   - [MessageSentEvent]: appended directly to the other peer's mailbox
//   - [MessageBufferedEvent]: held in the pending outbox because the mailbox was busy
//   - [OutboxFlushedEvent]: pending outbox appended as one block
//   - [MailboxDrainedEvent]: own mailbox claimed, emptied and released
//   - [MessageDispatchedEvent], [MessageBackloggedEvent], [BacklogReplayedEvent]
//
// Settings:
//   - [SettingsReadyEvent]: the settings handshake completed on one side
//
// # Thread Safety
//
// The [Bus] type is safe for concurrent use. Handlers run synchronously on
// the publisher's goroutine, which for protocol events is a peer loop. A
// handler must therefore not block, and must not post work that waits for
// the loop that published the event. A panicking handler is logged and does
// not prevent other handlers from being called.
//
// # Basic Usage
//
//	bus := event.NewBus(logger)
//
//	bus.Subscribe(event.TypeMailboxDrained, func(e event.Event) {
//	    drained := e.(event.MailboxDrainedEvent)
//	    fmt.Println(drained.Peer, drained.Frequency, drained.Count)
//	})
//
//	bus.SubscribeAll(func(e event.Event) {
//	    log.Printf("event: %s", e.EventType())
//	})
package event
