// Package metrics exposes channel activity as Prometheus metrics. A
// Collector subscribes to the event bus shared by both peers and keeps its
// own registry so several hosts in one process never collide.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Geggles/Japanese-Memrise-Enhancements/internal/event"
)

const namespace = "bridge"

// Collector holds all channel metrics.
type Collector struct {
	registry *prometheus.Registry

	ChannelsOpen       *prometheus.GaugeVec
	MessagesSent       *prometheus.CounterVec
	PayloadBytes       *prometheus.HistogramVec
	MessagesBuffered   *prometheus.CounterVec
	OutboxPending      *prometheus.GaugeVec
	OutboxFlushes      *prometheus.CounterVec
	Drains             *prometheus.CounterVec
	MessagesDrained    *prometheus.CounterVec
	MessagesDispatched *prometheus.CounterVec
	BacklogLength      *prometheus.GaugeVec
	Receivers          *prometheus.GaugeVec
	SettingsReady      *prometheus.CounterVec

	mu   sync.Mutex
	subs []string
	bus  *event.Bus
}

// NewCollector creates a Collector with a fresh registry.
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	scope := []string{"peer", "frequency"}

	return &Collector{
		registry: reg,

		ChannelsOpen: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "channels_open",
			Help:      "Number of channels opened by each peer",
		}, []string{"peer"}),
		MessagesSent: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_sent_total",
			Help:      "Messages appended directly to the other peer's mailbox",
		}, scope),
		PayloadBytes: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "payload_bytes",
			Help:      "Size of directly sent payloads in bytes",
			Buckets:   []float64{16, 64, 256, 1024, 4096, 16384, 65536},
		}, []string{"peer"}),
		MessagesBuffered: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_buffered_total",
			Help:      "Messages held in the pending outbox because the target mailbox was busy",
		}, scope),
		OutboxPending: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "outbox_pending",
			Help:      "Messages currently waiting in the pending outbox",
		}, scope),
		OutboxFlushes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbox_flushes_total",
			Help:      "Times the pending outbox was flushed to the other peer",
		}, scope),
		Drains: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mailbox_drains_total",
			Help:      "Times a peer claimed and emptied its own mailbox",
		}, []string{"peer", "frequency", "trigger"}),
		MessagesDrained: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_drained_total",
			Help:      "Messages dequeued from a peer's own mailbox",
		}, scope),
		MessagesDispatched: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_dispatched_total",
			Help:      "Messages handed to registered receivers",
		}, scope),
		BacklogLength: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "backlog_length",
			Help:      "Messages kept for the first receiver",
		}, scope),
		Receivers: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "receivers",
			Help:      "Registered receivers per channel",
		}, scope),
		SettingsReady: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "settings_ready_total",
			Help:      "Completed settings handshakes",
		}, []string{"peer", "role"}),
	}
}

// Registry returns the registry the collector's metrics live in.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// Attach subscribes the collector to bus. Attaching again moves it to the
// new bus.
func (c *Collector) Attach(bus *event.Bus) {
	c.Detach()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bus = bus
	c.subs = append(c.subs, bus.SubscribeAll(c.observe))
}

// Detach removes the collector's subscriptions.
func (c *Collector) Detach() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range c.subs {
		c.bus.Unsubscribe(id)
	}
	c.subs = nil
	c.bus = nil
}

func (c *Collector) observe(e event.Event) {
	switch ev := e.(type) {
	case event.ChannelOpenedEvent:
		c.ChannelsOpen.WithLabelValues(ev.Peer).Inc()
	case event.MessageSentEvent:
		c.MessagesSent.WithLabelValues(ev.Peer, ev.Frequency).Inc()
		c.PayloadBytes.WithLabelValues(ev.Peer).Observe(float64(ev.Bytes))
	case event.MessageBufferedEvent:
		c.MessagesBuffered.WithLabelValues(ev.Peer, ev.Frequency).Inc()
		c.OutboxPending.WithLabelValues(ev.Peer, ev.Frequency).Set(float64(ev.Pending))
	case event.OutboxFlushedEvent:
		c.OutboxFlushes.WithLabelValues(ev.Peer, ev.Frequency).Inc()
		c.OutboxPending.WithLabelValues(ev.Peer, ev.Frequency).Set(0)
	case event.MailboxDrainedEvent:
		c.Drains.WithLabelValues(ev.Peer, ev.Frequency, ev.Trigger).Inc()
		c.MessagesDrained.WithLabelValues(ev.Peer, ev.Frequency).Add(float64(ev.Count))
	case event.MessageDispatchedEvent:
		c.MessagesDispatched.WithLabelValues(ev.Peer, ev.Frequency).Inc()
	case event.MessageBackloggedEvent:
		c.BacklogLength.WithLabelValues(ev.Peer, ev.Frequency).Set(float64(ev.Backlog))
	case event.BacklogReplayedEvent:
		c.BacklogLength.WithLabelValues(ev.Peer, ev.Frequency).Set(0)
	case event.ReceiverRegisteredEvent:
		c.Receivers.WithLabelValues(ev.Peer, ev.Frequency).Set(float64(ev.Receivers))
	case event.ReceiverUnregisteredEvent:
		c.Receivers.WithLabelValues(ev.Peer, ev.Frequency).Set(float64(ev.Receivers))
	case event.SettingsReadyEvent:
		c.SettingsReady.WithLabelValues(ev.Peer, ev.Role).Inc()
	}
}
