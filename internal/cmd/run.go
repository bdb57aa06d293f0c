package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sourcegraph/conc"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Geggles/Japanese-Memrise-Enhancements/internal/channel"
	"github.com/Geggles/Japanese-Memrise-Enhancements/internal/config"
	"github.com/Geggles/Japanese-Memrise-Enhancements/internal/host"
	"github.com/Geggles/Japanese-Memrise-Enhancements/internal/inspect"
	"github.com/Geggles/Japanese-Memrise-Enhancements/internal/ledger"
	"github.com/Geggles/Japanese-Memrise-Enhancements/internal/logging"
	"github.com/Geggles/Japanese-Memrise-Enhancements/internal/metrics"
	"github.com/Geggles/Japanese-Memrise-Enhancements/internal/peer"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Relay lines from stdin through a channel and print the echoes",
	Long: `Start both peers and speak for one of them (peer.side). Every line read
from stdin is sent to the other peer, which echoes it back. JSON lines are
sent as-is, anything else as a JSON string.

Runs until stdin is closed or the process is interrupted. When a config
file is in use, edits to logging.level apply without a restart. With
metrics.enabled, Prometheus metrics are served on metrics.addr.`,
	RunE: runRun,
}

var (
	runSide      string
	runFrequency string
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runSide, "side", "s", "", "peer to speak for: inject or content (default from peer.side)")
	runCmd.Flags().StringVarP(&runFrequency, "frequency", "f", "", "channel to use (default: first of channel.frequencies)")
}

type echo struct {
	Echo json.RawMessage `json:"echo"`
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("side") {
		cfg.Peer.Side = runSide
	}
	side, err := peer.Parse(cfg.Peer.Side)
	if err != nil {
		return err
	}
	frequency := cfg.Channel.Frequencies[0]
	if runFrequency != "" {
		frequency = runFrequency
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Close() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var background conc.WaitGroup
	defer background.Wait()
	bgCtx, cancelBackground := context.WithCancel(ctx)
	defer cancelBackground()

	medium := ledger.NewMemoryMedium()
	h := host.New(medium, host.WithLogger(logger))

	if cfg.Metrics.Enabled {
		collector := metrics.NewCollector()
		collector.Attach(h.Bus())
		defer collector.Detach()
		serveMetrics(bgCtx, &background, cfg.Metrics.Addr, collector, logger)
	}

	if path := viper.ConfigFileUsed(); path != "" {
		w, err := config.NewWatcher(path, func(c *config.Config) {
			logger.SetLevel(c.Logging.Level)
			logger.Info("config reloaded", "level", c.Logging.Level)
		}, func(err error) {
			logger.Warn("config reload failed", "error", err.Error())
		})
		if err != nil {
			logger.Warn("config watch unavailable", "path", path, "error", err.Error())
		} else {
			background.Go(func() { w.Run(bgCtx) })
		}
	}

	h.Start(ctx)
	defer h.Stop()

	mine, err := h.Context(side).Channel(frequency)
	if err != nil {
		return err
	}
	theirs, err := h.Context(side.Other()).Channel(frequency)
	if err != nil {
		return err
	}

	out := newPrinter(cmd.OutOrStdout())
	theirs.RegisterReceiver(func(m channel.Message) {
		_ = theirs.Send(echo{Echo: m.Raw()})
	})
	mine.RegisterReceiver(func(m channel.Message) {
		out.line(fmt.Sprintf("%s %s", out.paint(peerStyle, side.Other().String()+">"), m.String()))
	})
	if err := h.Settle(ctx); err != nil {
		return err
	}

	if inspect.IsTerminal(os.Stdin) {
		out.line(out.paint(mutedStyle, fmt.Sprintf("speaking as %s on %q, Ctrl+D to quit", side, frequency)))
	}

	scanner := bufio.NewScanner(cmd.InOrStdin())
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var payload any = string(line)
		if json.Valid(line) {
			payload = json.RawMessage(append([]byte(nil), line...))
		}
		if err := mine.Send(payload); err != nil {
			out.line(out.paint(failStyle, err.Error()))
			continue
		}
		if err := h.Settle(ctx); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}

	snap := inspect.Take(medium)
	if n := snap.Pending(); n > 0 {
		out.line(out.paint(warningStyle, fmt.Sprintf("%d message(s) still queued on the ledger", n)))
	}
	return nil
}

// serveMetrics runs the Prometheus endpoint until ctx is done.
func serveMetrics(ctx context.Context, wg *conc.WaitGroup, addr string, collector *metrics.Collector, logger *logging.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	wg.Go(func() {
		logger.Info("serving metrics", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "error", err.Error())
		}
	})
	wg.Go(func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	})
}
