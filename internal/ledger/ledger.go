// Package ledger gives the peers typed access to the shared medium.
//
// The medium itself only stores strings. This package owns the key scheme
// and the lock and queue encodings, and turns raw writes into Change values
// the protocol can reason about. Values outside the encoding are contract
// violations and panic with *errors.ContractError.
package ledger

import (
	"github.com/Geggles/Japanese-Memrise-Enhancements/internal/errors"
	"github.com/Geggles/Japanese-Memrise-Enhancements/internal/peer"
)

// Change is one write observed on the medium.
type Change struct {
	Raw    string
	Key    Key
	IsSlot bool // Raw decodes to a mailbox slot
	Old    string
	HadOld bool
	New    string
}

// LockTransition decodes a lock write. An absent previous value reads as
// Free. It panics with a ContractError on invalid sentinels.
func (c Change) LockTransition() (old, new LockState) {
	old = Free
	if c.HadOld {
		old = mustLock(c.Raw, c.Old)
	}
	return old, mustLock(c.Raw, c.New)
}

// Ledger is the typed view of a Medium used by one peer.
type Ledger struct {
	medium Medium
}

// New wraps medium.
func New(medium Medium) *Ledger {
	return &Ledger{medium: medium}
}

// Medium returns the underlying store.
func (l *Ledger) Medium() Medium {
	return l.medium
}

// Queue returns owner's queue on frequency. An absent queue is written back
// as [] so later notifications compare against a concrete value.
func (l *Ledger) Queue(frequency string, owner peer.Peer) []string {
	key := QueueKey(frequency, owner).String()
	raw, ok := l.medium.Get(key)
	if !ok {
		l.medium.Set(key, EncodeQueue(nil))
		return []string{}
	}
	q, err := DecodeQueue(raw)
	if err != nil {
		panic(errors.NewContractError(key, raw, err))
	}
	return q
}

// SetQueue replaces owner's queue on frequency.
func (l *Ledger) SetQueue(frequency string, owner peer.Peer, q []string) {
	l.medium.Set(QueueKey(frequency, owner).String(), EncodeQueue(q))
}

// Lock returns owner's lock on frequency. An absent lock reads as Free; the
// caller must claim it before trusting that.
func (l *Ledger) Lock(frequency string, owner peer.Peer) LockState {
	key := LockKey(frequency, owner).String()
	raw, ok := l.medium.Get(key)
	if !ok {
		return Free
	}
	return mustLock(key, raw)
}

// SetLock writes owner's lock on frequency.
func (l *Ledger) SetLock(frequency string, owner peer.Peer, s LockState) {
	l.medium.Set(LockKey(frequency, owner).String(), EncodeLock(s))
}

// Subscribe calls fn for every write to the medium, including writes that
// are not mailbox slots. fn runs on the writer's goroutine and must not
// write to the medium.
func (l *Ledger) Subscribe(fn func(Change)) (cancel func()) {
	return l.medium.Subscribe(func(key, old string, hadOld bool, value string) {
		k, ok := ParseKey(key)
		fn(Change{Raw: key, Key: k, IsSlot: ok, Old: old, HadOld: hadOld, New: value})
	})
}

func mustLock(key, raw string) LockState {
	s, err := DecodeLock(raw)
	if err != nil {
		panic(errors.NewContractError(key, raw, err))
	}
	return s
}
