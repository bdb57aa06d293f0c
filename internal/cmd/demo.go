package cmd

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/Geggles/Japanese-Memrise-Enhancements/internal/channel"
	"github.com/Geggles/Japanese-Memrise-Enhancements/internal/config"
	"github.com/Geggles/Japanese-Memrise-Enhancements/internal/errors"
	"github.com/Geggles/Japanese-Memrise-Enhancements/internal/host"
	"github.com/Geggles/Japanese-Memrise-Enhancements/internal/inspect"
	"github.com/Geggles/Japanese-Memrise-Enhancements/internal/ledger"
	"github.com/Geggles/Japanese-Memrise-Enhancements/internal/logging"
	"github.com/Geggles/Japanese-Memrise-Enhancements/internal/peer"
	"github.com/Geggles/Japanese-Memrise-Enhancements/internal/settings"
)

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Run both peers in-process and exchange messages",
	Long: `Start the inject and content peers on one in-memory ledger, send a
numbered sequence from inject to content, and check that every message is
acknowledged in order. Unless disabled, the settings handshake runs too.

Examples:
  # Ten messages, tracing every lock write
  bridge demo -n 10 --trace 'l*'

  # Print what is left on the ledger afterwards
  bridge demo --snapshot`,
	RunE: runDemo,
}

var (
	demoMessages  int
	demoFrequency string
	demoTrace     string
	demoSnapshot  bool
	demoTimeout   time.Duration
)

func init() {
	rootCmd.AddCommand(demoCmd)

	demoCmd.Flags().IntVarP(&demoMessages, "messages", "n", 0, "number of messages (default from demo.messages)")
	demoCmd.Flags().StringVarP(&demoFrequency, "frequency", "f", "", "channel to use (default from demo.frequency)")
	demoCmd.Flags().StringVar(&demoTrace, "trace", "", "glob of ledger keys to trace (default from trace.pattern)")
	demoCmd.Flags().BoolVar(&demoSnapshot, "snapshot", false, "print the ledger as YAML when done")
	demoCmd.Flags().DurationVar(&demoTimeout, "timeout", 30*time.Second, "give up after this long")
}

type demoPayload struct {
	Seq  int    `json:"seq"`
	Text string `json:"text"`
}

type demoAck struct {
	Ack int `json:"ack"`
}

func runDemo(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("messages") {
		cfg.Demo.Messages = demoMessages
	}
	if cmd.Flags().Changed("frequency") {
		cfg.Demo.Frequency = demoFrequency
	}
	if cmd.Flags().Changed("trace") {
		cfg.Trace.Pattern = demoTrace
	}
	if errs := cfg.Validate(); len(errs) > 0 {
		return config.ValidationErrors(errs)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Close() }()

	out := newPrinter(cmd.OutOrStdout())
	medium := ledger.NewMemoryMedium()
	h := host.New(medium, host.WithLogger(logger))

	if cfg.Trace.Pattern != "" {
		tracer, err := inspect.NewTracer(out, cfg.Trace.Pattern, inspect.WithStyle(out.styled))
		if err != nil {
			return err
		}
		defer tracer.Attach(h.Inject().Ledger)()
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), demoTimeout)
	defer cancel()
	h.Start(ctx)
	defer h.Stop()

	out.line(out.paint(titleStyle, fmt.Sprintf("Session %s", h.ID())))

	acked, err := exchange(ctx, h, cfg.Demo.Frequency, cfg.Demo.Messages)
	if err != nil {
		return err
	}
	if !inOrder(acked, cfg.Demo.Messages) {
		out.line(out.paint(failStyle, fmt.Sprintf("✗ acknowledgements out of order: %v", acked)))
		return fmt.Errorf("demo failed: got %d of %d acknowledgements in order", len(acked), cfg.Demo.Messages)
	}
	out.line(out.paint(okStyle, fmt.Sprintf("✓ %d/%d messages acknowledged in order on %q", len(acked), cfg.Demo.Messages, cfg.Demo.Frequency)))

	if cfg.Settings.Enabled {
		values, err := cfg.Settings.Values()
		if err != nil {
			return err
		}
		keys, err := syncSettings(ctx, h, values, logger)
		if err != nil {
			return err
		}
		out.line(out.paint(okStyle, fmt.Sprintf("✓ settings in sync (%d keys)", keys)))
	}

	if demoSnapshot {
		doc, err := inspect.Take(medium).YAML()
		if err != nil {
			return errors.Wrap(err, "failed to render snapshot")
		}
		out.line(out.paint(mutedStyle, "ledger:"))
		_, _ = out.Write(doc)
	}
	return nil
}

// exchange sends n numbered messages from inject to content, which
// acknowledges each one. It returns the acknowledged sequence numbers in
// arrival order. Each send waits for the ledger to settle.
func exchange(ctx context.Context, h *host.Host, frequency string, n int) ([]int, error) {
	inject, err := h.Inject().Channel(frequency)
	if err != nil {
		return nil, err
	}
	content, err := h.Content().Channel(frequency)
	if err != nil {
		return nil, err
	}

	content.RegisterReceiver(func(m channel.Message) {
		var p demoPayload
		if err := m.Decode(&p); err != nil {
			return
		}
		_ = content.Send(demoAck{Ack: p.Seq})
	})

	var mu sync.Mutex
	var acked []int
	inject.RegisterReceiver(func(m channel.Message) {
		var a demoAck
		if err := m.Decode(&a); err != nil {
			return
		}
		mu.Lock()
		acked = append(acked, a.Ack)
		mu.Unlock()
	})

	// Let both startups finish before the first send.
	if err := h.Settle(ctx); err != nil {
		return nil, err
	}
	for i := 1; i <= n; i++ {
		if err := inject.Send(demoPayload{Seq: i, Text: fmt.Sprintf("message %d", i)}); err != nil {
			return nil, err
		}
		if err := h.Settle(ctx); err != nil {
			return nil, errors.Wrapf(err, "waiting for message %d", i)
		}
	}

	mu.Lock()
	defer mu.Unlock()
	return append([]int(nil), acked...), nil
}

func inOrder(acked []int, n int) bool {
	if len(acked) != n {
		return false
	}
	for i, seq := range acked {
		if seq != i+1 {
			return false
		}
	}
	return true
}

// syncSettings runs the handshake with content as primary, then flips one
// value on the replica and checks the primary saw it.
func syncSettings(ctx context.Context, h *host.Host, values map[string]any, logger *logging.Logger) (int, error) {
	replicaCh, err := h.Inject().Channel(settings.Frequency)
	if err != nil {
		return 0, err
	}
	primaryCh, err := h.Content().Channel(settings.Frequency)
	if err != nil {
		return 0, err
	}
	if err := h.Settle(ctx); err != nil {
		return 0, err
	}

	replicaReady := settings.StartReplica(replicaCh,
		settings.WithLogger(logger.WithPeer(peer.SideInject)),
		settings.WithBus(h.Bus(), peer.SideInject))
	primaryReady, err := settings.StartPrimary(primaryCh, settings.NewMemoryBackend(values),
		settings.WithLogger(logger.WithPeer(peer.SideContent)),
		settings.WithBus(h.Bus(), peer.SideContent))
	if err != nil {
		return 0, err
	}

	primary, err := primaryReady.Wait(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "settings handshake")
	}
	replica, err := replicaReady.Wait(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "settings handshake")
	}

	const toggleKey = "useWanakana"
	want := true
	if v, ok := replica.Get(toggleKey); ok && v == true {
		want = false
	}
	if err := replica.Set(toggleKey, want); err != nil {
		return 0, err
	}
	if err := h.Settle(ctx); err != nil {
		return 0, err
	}
	if got, _ := primary.Get(toggleKey); got != want {
		return 0, fmt.Errorf("settings out of sync: primary has %s=%v, want %v", toggleKey, got, want)
	}
	return len(primary.Keys()), nil
}
