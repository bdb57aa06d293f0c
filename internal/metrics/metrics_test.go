package metrics

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Geggles/Japanese-Memrise-Enhancements/internal/channel"
	"github.com/Geggles/Japanese-Memrise-Enhancements/internal/event"
	"github.com/Geggles/Japanese-Memrise-Enhancements/internal/host"
	"github.com/Geggles/Japanese-Memrise-Enhancements/internal/ledger"
)

func setup(t *testing.T) (*Collector, *host.Host) {
	t.Helper()
	h := host.New(ledger.NewMemoryMedium())
	c := NewCollector()
	c.Attach(h.Bus())
	t.Cleanup(c.Detach)
	return c, h
}

func TestCollector_RoundTrip(t *testing.T) {
	c, h := setup(t)

	a, err := h.Inject().Channel("demo")
	require.NoError(t, err)
	b, err := h.Content().Channel("demo")
	require.NoError(t, err)
	b.RegisterReceiver(func(channel.Message) {})
	h.Pump()

	require.NoError(t, a.Send("one"))
	require.NoError(t, a.Send("two"))
	h.Pump()

	assert.Equal(t, 1.0, testutil.ToFloat64(c.ChannelsOpen.WithLabelValues("inject")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.ChannelsOpen.WithLabelValues("content")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.MessagesSent.WithLabelValues("inject", "demo")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.MessagesDrained.WithLabelValues("content", "demo")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.MessagesDispatched.WithLabelValues("content", "demo")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Receivers.WithLabelValues("content", "demo")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Drains.WithLabelValues("content", "demo", event.TriggerStartup)))
	assert.Equal(t, 1, testutil.CollectAndCount(c.PayloadBytes))
}

func TestCollector_Backlog(t *testing.T) {
	c, h := setup(t)

	a, _ := h.Inject().Channel("demo")
	b, _ := h.Content().Channel("demo")
	require.NoError(t, a.Send(1))
	h.Pump()

	backlog := c.BacklogLength.WithLabelValues("content", "demo")
	assert.Equal(t, 1.0, testutil.ToFloat64(backlog))

	b.RegisterReceiver(func(channel.Message) {})
	assert.Equal(t, 0.0, testutil.ToFloat64(backlog))
}

func TestCollector_Outbox(t *testing.T) {
	c := NewCollector()
	bus := event.NewBus(nil)
	c.Attach(bus)

	bus.Publish(event.NewMessageBufferedEvent("inject", "demo", 1))
	bus.Publish(event.NewMessageBufferedEvent("inject", "demo", 2))
	pending := c.OutboxPending.WithLabelValues("inject", "demo")
	assert.Equal(t, 2.0, testutil.ToFloat64(pending))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.MessagesBuffered.WithLabelValues("inject", "demo")))

	bus.Publish(event.NewOutboxFlushedEvent("inject", "demo", 2))
	assert.Equal(t, 0.0, testutil.ToFloat64(pending))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.OutboxFlushes.WithLabelValues("inject", "demo")))
}

func TestCollector_Detach(t *testing.T) {
	c := NewCollector()
	bus := event.NewBus(nil)
	c.Attach(bus)
	require.Equal(t, 1, bus.SubscriptionCount())

	c.Detach()
	assert.Equal(t, 0, bus.SubscriptionCount())
	bus.Publish(event.NewChannelOpenedEvent("inject", "demo"))
	assert.Equal(t, 0, testutil.CollectAndCount(c.ChannelsOpen))

	c.Detach()
}

func TestCollector_SettingsReady(t *testing.T) {
	c := NewCollector()
	bus := event.NewBus(nil)
	c.Attach(bus)

	bus.Publish(event.NewSettingsReadyEvent("content", "settings", "primary", 3))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.SettingsReady.WithLabelValues("content", "primary")))
}

func TestCollector_Handler(t *testing.T) {
	c := NewCollector()
	bus := event.NewBus(nil)
	c.Attach(bus)
	bus.Publish(event.NewMessageSentEvent("inject", "demo", 12))

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Result().Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `bridge_messages_sent_total{frequency="demo",peer="inject"} 1`)
}

func TestNewCollector_Independent(t *testing.T) {
	assert.NotPanics(t, func() {
		NewCollector()
		NewCollector()
	})
}
