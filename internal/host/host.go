// Package host runs both peers in one process over a shared medium.
//
// A Host stands in for the environment that would normally supply the two
// isolated execution contexts. Each Context has its own loop, ledger view
// and switchboard; the peers share nothing but the medium, the event bus
// and the logger.
package host

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc"

	"github.com/Geggles/Japanese-Memrise-Enhancements/internal/channel"
	"github.com/Geggles/Japanese-Memrise-Enhancements/internal/event"
	"github.com/Geggles/Japanese-Memrise-Enhancements/internal/ledger"
	"github.com/Geggles/Japanese-Memrise-Enhancements/internal/logging"
	"github.com/Geggles/Japanese-Memrise-Enhancements/internal/loop"
	"github.com/Geggles/Japanese-Memrise-Enhancements/internal/peer"
)

// settlePoll is how often Settle re-checks for quiescence.
const settlePoll = time.Millisecond

// Context is one peer's execution context.
type Context struct {
	Peer        peer.Peer
	Loop        *loop.Loop
	Ledger      *ledger.Ledger
	Switchboard *channel.Switchboard
	Logger      *logging.Logger
}

// Channel is shorthand for c.Switchboard.Channel.
func (c *Context) Channel(frequency string) (*channel.Channel, error) {
	return c.Switchboard.Channel(frequency)
}

// Host owns a medium and the two peer contexts using it.
type Host struct {
	id      string
	medium  ledger.Medium
	bus     *event.Bus
	logger  *logging.Logger
	inject  *Context
	content *Context

	mu       sync.Mutex
	started  bool
	stopped  bool
	stopCh   chan struct{}
	watchers conc.WaitGroup
}

type options struct {
	bus    *event.Bus
	logger *logging.Logger
}

// Option configures a Host.
type Option func(*options)

// WithBus shares bus between both peers. By default the host creates one.
func WithBus(bus *event.Bus) Option {
	return func(o *options) { o.bus = bus }
}

// WithLogger sets the root logger; each peer logs through a child of it.
func WithLogger(logger *logging.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// New builds both peer contexts on medium. Nothing runs until Start or
// Pump.
func New(medium ledger.Medium, opts ...Option) *Host {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logging.NopLogger()
	}
	if o.bus == nil {
		o.bus = event.NewBus(o.logger)
	}

	h := &Host{
		id:     uuid.NewString(),
		medium: medium,
		bus:    o.bus,
		stopCh: make(chan struct{}),
	}
	h.logger = o.logger.With("session", h.id)
	h.inject = h.newContext(peer.A)
	h.content = h.newContext(peer.B)
	return h
}

func (h *Host) newContext(self peer.Peer) *Context {
	logger := h.logger.WithPeer(self.String())
	lp := loop.New(self.String(), logger)
	l := ledger.New(h.medium)
	return &Context{
		Peer:        self,
		Loop:        lp,
		Ledger:      l,
		Switchboard: channel.NewSwitchboard(self, l, lp, channel.WithBus(h.bus), channel.WithLogger(h.logger)),
		Logger:      logger,
	}
}

// ID returns the session identifier attached to every log entry.
func (h *Host) ID() string { return h.id }

// Medium returns the shared medium.
func (h *Host) Medium() ledger.Medium { return h.medium }

// Bus returns the event bus both peers publish to.
func (h *Host) Bus() *event.Bus { return h.bus }

// Logger returns the session logger.
func (h *Host) Logger() *logging.Logger { return h.logger }

// Inject returns the context of peer.A.
func (h *Host) Inject() *Context { return h.inject }

// Content returns the context of peer.B.
func (h *Host) Content() *Context { return h.content }

// Context returns the context of p.
func (h *Host) Context(p peer.Peer) *Context {
	if p == peer.B {
		return h.content
	}
	return h.inject
}

// Start runs both loops on their own goroutines. The host stops when ctx
// is done or Stop is called.
func (h *Host) Start(ctx context.Context) {
	h.mu.Lock()
	if h.started || h.stopped {
		h.mu.Unlock()
		return
	}
	h.started = true
	h.mu.Unlock()

	h.inject.Loop.Start()
	h.content.Loop.Start()
	h.logger.Info("host started")

	h.watchers.Go(func() {
		select {
		case <-ctx.Done():
			h.Stop()
		case <-h.stopCh:
		}
	})
}

// Stop detaches both switchboards from the medium and stops the loops
// after their queued tasks. It is safe to call more than once.
func (h *Host) Stop() {
	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		return
	}
	h.stopped = true
	close(h.stopCh)
	h.mu.Unlock()

	h.inject.Switchboard.Close()
	h.content.Switchboard.Close()
	h.inject.Loop.Stop()
	h.content.Loop.Stop()
	h.logger.Info("host stopped",
		"inject_tasks", h.inject.Loop.Processed(),
		"content_tasks", h.content.Loop.Processed(),
	)
}

// Wait blocks until the goroutine watching Start's context exits.
func (h *Host) Wait() {
	h.watchers.Wait()
}

// Pump runs both loops on the calling goroutine until neither has work
// left, and returns how many tasks ran. Use it instead of Start for
// deterministic interleaving.
func (h *Host) Pump() int {
	total := 0
	for {
		n := h.inject.Loop.RunPending() + h.content.Loop.RunPending()
		if n == 0 {
			return total
		}
		total += n
	}
}

type writeCounter interface {
	Writes() uint64
}

// Settle waits until both loops are idle and the medium has seen no new
// write while checking. Sends made by other goroutines during Settle may
// extend the wait.
func (h *Host) Settle(ctx context.Context) error {
	counter, _ := h.medium.(writeCounter)
	writes := func() uint64 {
		if counter == nil {
			return 0
		}
		return counter.Writes()
	}

	ticker := time.NewTicker(settlePoll)
	defer ticker.Stop()
	for {
		before := writes()
		if h.inject.Loop.Idle() && h.content.Loop.Idle() && writes() == before {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
