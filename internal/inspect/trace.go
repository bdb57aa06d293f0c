package inspect

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/gobwas/glob"
	"golang.org/x/term"

	"github.com/Geggles/Japanese-Memrise-Enhancements/internal/errors"
	"github.com/Geggles/Japanese-Memrise-Enhancements/internal/ledger"
)

var (
	lockColor  = lipgloss.Color("#A78BFA")
	queueColor = lipgloss.Color("#10B981")
	mutedColor = lipgloss.Color("#9CA3AF")
	errorColor = lipgloss.Color("#F87171")

	keyStyle   = lipgloss.NewStyle().Bold(true)
	lockStyle  = lipgloss.NewStyle().Foreground(lockColor)
	queueStyle = lipgloss.NewStyle().Foreground(queueColor)
	mutedStyle = lipgloss.NewStyle().Foreground(mutedColor)
	errorStyle = lipgloss.NewStyle().Foreground(errorColor)
)

// Tracer writes one line per medium write whose raw key matches a glob
// pattern, e.g. "l?demo" for both locks of the demo channel.
type Tracer struct {
	mu      sync.Mutex
	w       io.Writer
	pattern glob.Glob
	styled  bool
	lines   int
}

// TracerOption configures a Tracer.
type TracerOption func(*Tracer)

// WithStyle forces styling on or off instead of detecting a terminal.
func WithStyle(styled bool) TracerOption {
	return func(t *Tracer) { t.styled = styled }
}

// NewTracer compiles pattern (empty means everything) and writes to w.
// Output is styled when w is a terminal.
func NewTracer(w io.Writer, pattern string, opts ...TracerOption) (*Tracer, error) {
	if pattern == "" {
		pattern = "*"
	}
	g, err := glob.Compile(pattern)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid trace pattern %q", pattern)
	}
	t := &Tracer{w: w, pattern: g, styled: IsTerminal(w)}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// IsTerminal reports whether w is a file attached to a terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Attach starts tracing l and returns the cancel func.
func (t *Tracer) Attach(l *ledger.Ledger) (cancel func()) {
	return l.Subscribe(t.Observe)
}

// Observe writes c if it matches. It never panics on corrupt values.
func (t *Tracer) Observe(c ledger.Change) {
	if !t.pattern.Match(c.Raw) {
		return
	}
	line := t.format(c)

	t.mu.Lock()
	defer t.mu.Unlock()
	t.lines++
	_, _ = fmt.Fprintln(t.w, line)
}

// Lines returns how many changes have been written.
func (t *Tracer) Lines() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lines
}

func (t *Tracer) format(c ledger.Change) string {
	key := t.paint(keyStyle, c.Raw)
	if !c.IsSlot {
		return fmt.Sprintf("%s %s", key, t.paint(mutedStyle, describeRaw(c)))
	}

	label := fmt.Sprintf("%-5s %-7s", c.Key.Kind, c.Key.Owner)
	switch c.Key.Kind {
	case ledger.KindLock:
		from, to := lockName(c.Old, c.HadOld), lockName(c.New, true)
		return fmt.Sprintf("%s %s %s -> %s", key, t.paint(lockStyle, label), t.paintState(from), t.paintState(to))
	default:
		from, to := queueSize(c.Old, c.HadOld), queueSize(c.New, true)
		return fmt.Sprintf("%s %s %s -> %s", key, t.paint(queueStyle, label), t.paintState(from), t.paintState(to))
	}
}

func (t *Tracer) paint(style lipgloss.Style, s string) string {
	if !t.styled {
		return s
	}
	return style.Render(s)
}

func (t *Tracer) paintState(s string) string {
	if strings.HasPrefix(s, "invalid") {
		return t.paint(errorStyle, s)
	}
	return s
}

func describeRaw(c ledger.Change) string {
	if !c.HadOld {
		return fmt.Sprintf("(unset) -> %q", c.New)
	}
	return fmt.Sprintf("%q -> %q", c.Old, c.New)
}

func lockName(raw string, present bool) string {
	if !present {
		return ledger.Free.String()
	}
	s, err := ledger.DecodeLock(raw)
	if err != nil {
		return fmt.Sprintf("invalid(%s)", raw)
	}
	return s.String()
}

func queueSize(raw string, present bool) string {
	if !present {
		return "unset"
	}
	q, err := ledger.DecodeQueue(raw)
	if err != nil {
		return "invalid"
	}
	return fmt.Sprintf("%d queued", len(q))
}
