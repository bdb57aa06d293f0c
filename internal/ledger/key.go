package ledger

import (
	"fmt"

	"github.com/Geggles/Japanese-Memrise-Enhancements/internal/peer"
)

// Kind distinguishes the two slots a mailbox owns on the ledger.
type Kind byte

const (
	// KindQueue holds the JSON array of pending payloads.
	KindQueue Kind = 'm'
	// KindLock holds the lock sentinel.
	KindLock Kind = 'l'
)

func (k Kind) String() string {
	switch k {
	case KindQueue:
		return "queue"
	case KindLock:
		return "lock"
	default:
		return fmt.Sprintf("kind(%q)", byte(k))
	}
}

// Key addresses one slot of one mailbox.
type Key struct {
	Frequency string
	Owner     peer.Peer
	Kind      Kind
}

// QueueKey returns the key of owner's queue on frequency.
func QueueKey(frequency string, owner peer.Peer) Key {
	return Key{Frequency: frequency, Owner: owner, Kind: KindQueue}
}

// LockKey returns the key of owner's lock on frequency.
func LockKey(frequency string, owner peer.Peer) Key {
	return Key{Frequency: frequency, Owner: owner, Kind: KindLock}
}

// String encodes the key as <kind letter><owner letter><frequency>,
// e.g. "lcdemo" for the content side's lock on "demo".
func (k Key) String() string {
	return string([]byte{byte(k.Kind), k.Owner.Letter()}) + k.Frequency
}

// ParseKey decodes a raw ledger key. ok is false for keys that do not
// name a mailbox slot; the medium may hold unrelated keys.
func ParseKey(raw string) (k Key, ok bool) {
	if len(raw) < 3 {
		return Key{}, false
	}
	kind := Kind(raw[0])
	if kind != KindQueue && kind != KindLock {
		return Key{}, false
	}
	owner, ok := peer.FromLetter(raw[1])
	if !ok {
		return Key{}, false
	}
	return Key{Frequency: raw[2:], Owner: owner, Kind: kind}, true
}
