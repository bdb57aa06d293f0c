package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Geggles/Japanese-Memrise-Enhancements/internal/errors"
	"github.com/Geggles/Japanese-Memrise-Enhancements/internal/peer"
)

func TestLockState(t *testing.T) {
	assert.Equal(t, HeldByInject, HeldBy(peer.A))
	assert.Equal(t, HeldByContent, HeldBy(peer.B))

	h, ok := HeldByContent.Holder()
	assert.True(t, ok)
	assert.Equal(t, peer.B, h)

	_, ok = Free.Holder()
	assert.False(t, ok)

	assert.True(t, HeldByInject.IsHeldBy(peer.A))
	assert.False(t, HeldByInject.IsHeldBy(peer.B))
	assert.False(t, Free.IsHeldBy(peer.A))

	assert.Equal(t, "free", Free.String())
	assert.Equal(t, "held-by-inject", HeldByInject.String())
	assert.Equal(t, "held-by-content", HeldByContent.String())
}

func TestDecodeLock(t *testing.T) {
	tests := []struct {
		raw     string
		want    LockState
		wantErr bool
	}{
		{"0", HeldByInject, false},
		{"1", HeldByContent, false},
		{"2", Free, false},
		{" 2 ", Free, false},
		{"3", 0, true},
		{"-1", 0, true},
		{"1.5", 0, true},
		{`"free"`, 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := DecodeLock(tt.raw)
			if tt.wantErr {
				assert.ErrorIs(t, err, errors.ErrInvalidLock)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEncodeLock(t *testing.T) {
	assert.Equal(t, "0", EncodeLock(HeldByInject))
	assert.Equal(t, "1", EncodeLock(HeldByContent))
	assert.Equal(t, "2", EncodeLock(Free))
}

func TestQueueCodec(t *testing.T) {
	assert.Equal(t, "[]", EncodeQueue(nil))
	assert.Equal(t, `["{\"hello\":1}","2"]`, EncodeQueue([]string{`{"hello":1}`, "2"}))

	q, err := DecodeQueue(`["a","b"]`)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, q)

	q, err = DecodeQueue(`[]`)
	require.NoError(t, err)
	assert.Empty(t, q)
	assert.NotNil(t, q)
}

func TestDecodeQueue_Malformed(t *testing.T) {
	for _, raw := range []string{`{}`, `"x"`, `[1,2]`, `["a",null,3]`, `null`, `[`, ``} {
		t.Run(raw, func(t *testing.T) {
			_, err := DecodeQueue(raw)
			assert.ErrorIs(t, err, errors.ErrMalformedQueue)
		})
	}
}
