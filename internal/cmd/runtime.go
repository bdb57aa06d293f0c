package cmd

import (
	"io"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/Geggles/Japanese-Memrise-Enhancements/internal/config"
	"github.com/Geggles/Japanese-Memrise-Enhancements/internal/inspect"
	"github.com/Geggles/Japanese-Memrise-Enhancements/internal/logging"
)

// newLogger builds the root logger described by cfg.
func newLogger(cfg *config.Config) (*logging.Logger, error) {
	if !cfg.Logging.Enabled {
		return logging.NopLogger(), nil
	}
	return logging.NewLoggerWithRotation(cfg.Logging.Dir, cfg.Logging.Level, logging.RotationConfig{
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		Compress:   cfg.Logging.Compress,
	})
}

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#A78BFA"))
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))
	failStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#F87171"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#9CA3AF"))
	peerStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#60A5FA"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B"))
)

// printer serializes output from the command goroutine and from loop
// callbacks, and styles it only on a terminal.
type printer struct {
	mu     sync.Mutex
	w      io.Writer
	styled bool
}

func newPrinter(w io.Writer) *printer {
	return &printer{w: w, styled: inspect.IsTerminal(w)}
}

// Write lets the printer back an inspect.Tracer.
func (p *printer) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.w.Write(b)
}

func (p *printer) paint(style lipgloss.Style, s string) string {
	if !p.styled {
		return s
	}
	return style.Render(s)
}

func (p *printer) line(s string) {
	_, _ = p.Write([]byte(s + "\n"))
}
