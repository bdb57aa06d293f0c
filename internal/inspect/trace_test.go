package inspect

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Geggles/Japanese-Memrise-Enhancements/internal/ledger"
	"github.com/Geggles/Japanese-Memrise-Enhancements/internal/peer"
)

func newTraced(t *testing.T, pattern string) (*Tracer, *bytes.Buffer, *ledger.MemoryMedium, *ledger.Ledger) {
	t.Helper()
	var buf bytes.Buffer
	tr, err := NewTracer(&buf, pattern, WithStyle(false))
	require.NoError(t, err)
	m := ledger.NewMemoryMedium()
	l := ledger.New(m)
	cancel := tr.Attach(l)
	t.Cleanup(cancel)
	return tr, &buf, m, l
}

func TestTracer_Filter(t *testing.T) {
	tr, buf, m, l := newTraced(t, "l?demo")

	l.SetLock("demo", peer.A, ledger.HeldBy(peer.A))
	l.SetQueue("demo", peer.A, []string{`1`})
	l.SetLock("other", peer.A, ledger.Free)
	m.Set("unrelated", "x")
	l.SetLock("demo", peer.B, ledger.Free)

	assert.Equal(t, 2, tr.Lines())
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "lidemo "), lines[0])
	assert.Contains(t, lines[0], "free -> held-by-inject")
	assert.True(t, strings.HasPrefix(lines[1], "lcdemo "), lines[1])
	assert.Contains(t, lines[1], "free -> free")
}

func TestTracer_AllKeys(t *testing.T) {
	tr, buf, m, l := newTraced(t, "")

	l.SetQueue("demo", peer.B, []string{`1`, `2`})
	l.SetQueue("demo", peer.B, nil)
	m.Set("unrelated", "x")

	assert.Equal(t, 3, tr.Lines())
	out := buf.String()
	assert.Contains(t, out, "unset -> 2 queued")
	assert.Contains(t, out, "2 queued -> 0 queued")
	assert.Contains(t, out, `unrelated (unset) -> "x"`)
}

func TestTracer_CorruptValues(t *testing.T) {
	_, buf, m, _ := newTraced(t, "*demo")

	assert.NotPanics(t, func() {
		m.Set("lidemo", "9")
		m.Set("midemo", "{}")
	})
	assert.Contains(t, buf.String(), "invalid(9)")
	assert.Contains(t, buf.String(), "-> invalid")
}

func TestNewTracer_InvalidPattern(t *testing.T) {
	_, err := NewTracer(&bytes.Buffer{}, "[")
	assert.Error(t, err)
}

func TestIsTerminal(t *testing.T) {
	assert.False(t, IsTerminal(&bytes.Buffer{}))
}
