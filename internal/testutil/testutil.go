// Package testutil provides fixtures for tests that run both peers.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/Geggles/Japanese-Memrise-Enhancements/internal/channel"
	"github.com/Geggles/Japanese-Memrise-Enhancements/internal/host"
	"github.com/Geggles/Japanese-Memrise-Enhancements/internal/ledger"
)

// SettleTimeout bounds every Settle call made through this package.
const SettleTimeout = 5 * time.Second

// StartHost creates a host over a fresh in-memory ledger and runs both
// loops on their own goroutines. The host is stopped when the test ends.
func StartHost(t *testing.T, opts ...host.Option) (*host.Host, *ledger.MemoryMedium) {
	t.Helper()

	medium := ledger.NewMemoryMedium()
	h := host.New(medium, opts...)

	ctx, cancel := context.WithCancel(context.Background())
	h.Start(ctx)
	t.Cleanup(func() {
		cancel()
		h.Stop()
		h.Wait()
	})
	return h, medium
}

// Settle waits for h to go quiet and fails the test if it does not within
// SettleTimeout.
func Settle(t *testing.T, h *host.Host) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), SettleTimeout)
	defer cancel()
	if err := h.Settle(ctx); err != nil {
		t.Fatalf("host did not settle: %v", err)
	}
}

// OpenPair opens frequency on both sides and settles, so the first send
// from either side finds both startups finished.
func OpenPair(t *testing.T, h *host.Host, frequency string) (inject, content *channel.Channel) {
	t.Helper()

	var err error
	if inject, err = h.Inject().Channel(frequency); err != nil {
		t.Fatalf("failed to open %q on inject: %v", frequency, err)
	}
	if content, err = h.Content().Channel(frequency); err != nil {
		t.Fatalf("failed to open %q on content: %v", frequency, err)
	}
	Settle(t, h)
	return inject, content
}

// Collect registers a receiver on ch that records every message, and
// returns a function reporting what arrived so far.
func Collect(ch *channel.Channel) func() []string {
	got := make(chan string, 1024)
	ch.RegisterReceiver(func(m channel.Message) {
		got <- m.String()
	})

	var seen []string
	return func() []string {
		for {
			select {
			case s := <-got:
				seen = append(seen, s)
			default:
				return append([]string(nil), seen...)
			}
		}
	}
}
