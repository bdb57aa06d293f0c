// Package internal contains integration tests that run the bridge packages
// together: both peers on one ledger, with the event bus feeding metrics
// and the inspector watching the ledger.
package internal

import (
	"bytes"
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	promtest "github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/Geggles/Japanese-Memrise-Enhancements/internal/channel"
	"github.com/Geggles/Japanese-Memrise-Enhancements/internal/event"
	"github.com/Geggles/Japanese-Memrise-Enhancements/internal/host"
	"github.com/Geggles/Japanese-Memrise-Enhancements/internal/inspect"
	"github.com/Geggles/Japanese-Memrise-Enhancements/internal/logging"
	"github.com/Geggles/Japanese-Memrise-Enhancements/internal/metrics"
	"github.com/Geggles/Japanese-Memrise-Enhancements/internal/settings"
	"github.com/Geggles/Japanese-Memrise-Enhancements/internal/testutil"
)

// TestEventBusIntegration checks that one round trip raises the expected
// events on the shared bus, tagged with the right peer.
func TestEventBusIntegration(t *testing.T) {
	bus := event.NewBus(logging.NopLogger())

	var mu sync.Mutex
	received := make(map[string][]string)
	bus.SubscribeAll(func(e event.Event) {
		ce, ok := e.(event.ChannelEvent)
		if !ok {
			return
		}
		mu.Lock()
		received[e.EventType()] = append(received[e.EventType()], ce.PeerSide())
		mu.Unlock()
	})

	h, _ := testutil.StartHost(t, host.WithBus(bus))
	inject, content := testutil.OpenPair(t, h, "demo")

	content.RegisterReceiver(func(m channel.Message) {
		_ = content.Send("pong")
	})
	pongs := testutil.Collect(inject)
	testutil.Settle(t, h)

	if err := inject.Send("ping"); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	testutil.Settle(t, h)

	if got := pongs(); len(got) != 1 || got[0] != `"pong"` {
		t.Fatalf("inject received %v, want one pong", got)
	}

	mu.Lock()
	defer mu.Unlock()

	want := map[string][]string{
		event.TypeChannelOpened:     {"inject", "content"},
		event.TypeMessageSent:       {"inject", "content"},
		event.TypeMessageDispatched: {"content", "inject"},
	}
	for eventType, peers := range want {
		got := received[eventType]
		if len(got) != len(peers) {
			t.Errorf("%s: got peers %v, want %v", eventType, got, peers)
			continue
		}
		for _, p := range peers {
			if !slices.Contains(got, p) {
				t.Errorf("%s: missing peer %s in %v", eventType, p, got)
			}
		}
	}
}

// TestBridgeEndToEnd drives traffic both ways on two frequencies plus the
// settings handshake, then checks the ledger, metrics and trace agree.
func TestBridgeEndToEnd(t *testing.T) {
	collector := metrics.NewCollector()
	bus := event.NewBus(logging.NopLogger())
	collector.Attach(bus)
	t.Cleanup(collector.Detach)

	h, medium := testutil.StartHost(t, host.WithBus(bus))

	var trace bytes.Buffer
	tracer, err := inspect.NewTracer(&trace, "l?*")
	if err != nil {
		t.Fatalf("NewTracer failed: %v", err)
	}
	t.Cleanup(tracer.Attach(h.Content().Ledger))

	const n = 20
	frequencies := []string{"alpha", "beta"}
	var collectors []func() []string
	for _, f := range frequencies {
		inject, content := testutil.OpenPair(t, h, f)
		toContent := testutil.Collect(content)
		toInject := testutil.Collect(inject)
		collectors = append(collectors, toContent, toInject)

		for i := range n {
			if err := inject.Send(fmt.Sprintf("%s-in-%d", f, i)); err != nil {
				t.Fatalf("inject Send failed: %v", err)
			}
			if err := content.Send(fmt.Sprintf("%s-out-%d", f, i)); err != nil {
				t.Fatalf("content Send failed: %v", err)
			}
			testutil.Settle(t, h)
		}
	}

	for i, f := range frequencies {
		assertSequence(t, collectors[2*i](), f+"-in-", n)
		assertSequence(t, collectors[2*i+1](), f+"-out-", n)
	}

	replicaCh, primaryCh := testutil.OpenPair(t, h, settings.Frequency)
	replicaReady := settings.StartReplica(replicaCh, settings.WithBus(bus, "inject"))
	primaryReady, err := settings.StartPrimary(primaryCh, settings.NewMemoryBackend(map[string]any{"volume": 3.0}),
		settings.WithBus(bus, "content"))
	if err != nil {
		t.Fatalf("StartPrimary failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	replica, err := replicaReady.Wait(ctx)
	if err != nil {
		t.Fatalf("replica not ready: %v", err)
	}
	primary, err := primaryReady.Wait(ctx)
	if err != nil {
		t.Fatalf("primary not ready: %v", err)
	}
	if err := replica.Set("volume", 7.0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	testutil.Settle(t, h)
	if v, _ := primary.Get("volume"); v != 7.0 {
		t.Errorf("primary volume = %v, want 7", v)
	}

	if pending := inspect.Take(medium).Pending(); pending != 0 {
		t.Errorf("ledger still holds %d messages", pending)
	}

	for _, f := range frequencies {
		for _, side := range []string{"inject", "content"} {
			if got := promtest.ToFloat64(collector.MessagesSent.WithLabelValues(side, f)); got != n {
				t.Errorf("messages sent by %s on %s = %v, want %d", side, f, got, n)
			}
			if got := promtest.ToFloat64(collector.MessagesDispatched.WithLabelValues(side, f)); got != n {
				t.Errorf("messages dispatched to %s on %s = %v, want %d", side, f, got, n)
			}
		}
	}
	if got := promtest.ToFloat64(collector.SettingsReady.WithLabelValues("content", "primary")); got != 1 {
		t.Errorf("primary ready = %v, want 1", got)
	}

	for _, key := range []string{"lialpha", "lcalpha", "libeta", "lcbeta"} {
		if !strings.Contains(trace.String(), key) {
			t.Errorf("trace is missing %s", key)
		}
	}
	if strings.Contains(trace.String(), "mialpha") {
		t.Error("trace should only show lock keys")
	}
}

func assertSequence(t *testing.T, got []string, prefix string, n int) {
	t.Helper()
	if len(got) != n {
		t.Fatalf("%s: got %d messages, want %d: %v", prefix, len(got), n, got)
	}
	for i, raw := range got {
		if want := fmt.Sprintf("%q", fmt.Sprintf("%s%d", prefix, i)); raw != want {
			t.Errorf("%s: message %d = %s, want %s", prefix, i, raw, want)
		}
	}
}
