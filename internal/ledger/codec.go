package ledger

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Geggles/Japanese-Memrise-Enhancements/internal/errors"
	"github.com/Geggles/Japanese-Memrise-Enhancements/internal/peer"
)

// LockState is the tri-state value of a mailbox lock. The numeric values
// are the sentinels stored on the ledger.
type LockState int

const (
	// HeldByInject means peer.A holds the lock.
	HeldByInject LockState = iota
	// HeldByContent means peer.B holds the lock.
	HeldByContent
	// Free means nobody holds the lock.
	Free
)

// HeldBy returns the state for a lock held by p.
func HeldBy(p peer.Peer) LockState {
	if p == peer.B {
		return HeldByContent
	}
	return HeldByInject
}

// Holder returns the peer holding the lock, or false when it is free.
func (s LockState) Holder() (peer.Peer, bool) {
	switch s {
	case HeldByInject:
		return peer.A, true
	case HeldByContent:
		return peer.B, true
	}
	return 0, false
}

// IsHeldBy reports whether p holds the lock.
func (s LockState) IsHeldBy(p peer.Peer) bool {
	h, ok := s.Holder()
	return ok && h == p
}

func (s LockState) String() string {
	switch s {
	case Free:
		return "free"
	case HeldByInject, HeldByContent:
		h, _ := s.Holder()
		return "held-by-" + h.String()
	default:
		return fmt.Sprintf("lock(%d)", int(s))
	}
}

// EncodeLock returns the ledger representation of s.
func EncodeLock(s LockState) string {
	return fmt.Sprintf("%d", int(s))
}

// DecodeLock parses a ledger lock value. Anything but the three sentinels
// is ErrInvalidLock.
func DecodeLock(raw string) (LockState, error) {
	var n int
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &n); err != nil {
		return 0, errors.Wrapf(errors.ErrInvalidLock, "decode lock %q", raw)
	}
	s := LockState(n)
	if s < HeldByInject || s > Free {
		return 0, errors.Wrapf(errors.ErrInvalidLock, "decode lock %q", raw)
	}
	return s, nil
}

// EncodeQueue serializes a queue of payloads. A nil queue encodes as [].
func EncodeQueue(q []string) string {
	if q == nil {
		q = []string{}
	}
	b, err := json.Marshal(q)
	if err != nil {
		// []string always marshals
		panic(err)
	}
	return string(b)
}

// DecodeQueue parses a ledger queue value. It must be a JSON array of
// strings; anything else is ErrMalformedQueue.
func DecodeQueue(raw string) ([]string, error) {
	var q []string
	if err := json.Unmarshal([]byte(raw), &q); err != nil {
		return nil, fmt.Errorf("decode queue: %w: %v", errors.ErrMalformedQueue, err)
	}
	if q == nil {
		return nil, fmt.Errorf("decode queue: %w: not an array", errors.ErrMalformedQueue)
	}
	return q, nil
}
