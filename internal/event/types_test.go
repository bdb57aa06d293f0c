package event

import "testing"

func TestChannelEvents(t *testing.T) {
	tests := []struct {
		name      string
		event     ChannelEvent
		eventType string
	}{
		{"opened", NewChannelOpenedEvent("inject", "demo"), TypeChannelOpened},
		{"registered", NewReceiverRegisteredEvent("inject", "demo", "h", 1), TypeReceiverRegistered},
		{"unregistered", NewReceiverUnregisteredEvent("inject", "demo", "h", 0), TypeReceiverUnregistered},
		{"sent", NewMessageSentEvent("inject", "demo", 11), TypeMessageSent},
		{"buffered", NewMessageBufferedEvent("inject", "demo", 1), TypeMessageBuffered},
		{"flushed", NewOutboxFlushedEvent("inject", "demo", 2), TypeOutboxFlushed},
		{"drained", NewMailboxDrainedEvent("inject", "demo", TriggerStartup, 0), TypeMailboxDrained},
		{"dispatched", NewMessageDispatchedEvent("inject", "demo", 3), TypeMessageDispatched},
		{"backlogged", NewMessageBackloggedEvent("inject", "demo", 1), TypeMessageBacklogged},
		{"replayed", NewBacklogReplayedEvent("inject", "demo", 3), TypeBacklogReplayed},
		{"settings", NewSettingsReadyEvent("inject", "settings", "replica", 4), TypeSettingsReady},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.event.EventType() != tt.eventType {
				t.Errorf("EventType() = %q, want %q", tt.event.EventType(), tt.eventType)
			}
			if tt.event.PeerSide() != "inject" {
				t.Errorf("PeerSide() = %q, want inject", tt.event.PeerSide())
			}
			if tt.event.ChannelFrequency() == "" {
				t.Error("ChannelFrequency() should not be empty")
			}
			if tt.event.Timestamp().IsZero() {
				t.Error("Timestamp() should be set")
			}
		})
	}
}

func TestMailboxDrainedEvent_Fields(t *testing.T) {
	e := NewMailboxDrainedEvent("content", "demo", TriggerRelease, 5)
	if e.Trigger != TriggerRelease || e.Count != 5 {
		t.Errorf("unexpected fields %+v", e)
	}
}
