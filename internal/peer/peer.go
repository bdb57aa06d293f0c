// Package peer identifies the two execution contexts that share a ledger.
//
// There are exactly two peers. Each context learns which side it is once at
// startup and never renegotiates it.
package peer

import (
	"fmt"
	"strings"

	"github.com/Geggles/Japanese-Memrise-Enhancements/internal/errors"
)

// Peer is one of the two fixed communicating contexts.
type Peer int

const (
	// A is the page-injected side ("inject").
	A Peer = iota
	// B is the extension content side ("content").
	B
)

// Side names as used in configuration and logs.
const (
	SideInject  = "inject"
	SideContent = "content"
)

// Other returns the peer that is not p.
func (p Peer) Other() Peer {
	if p == A {
		return B
	}
	return A
}

// Valid reports whether p is one of the two known peers.
func (p Peer) Valid() bool {
	return p == A || p == B
}

// String returns the side name of the peer.
func (p Peer) String() string {
	switch p {
	case A:
		return SideInject
	case B:
		return SideContent
	default:
		return fmt.Sprintf("peer(%d)", int(p))
	}
}

// Letter returns the single character used for p in ledger keys.
func (p Peer) Letter() byte {
	if p == B {
		return 'c'
	}
	return 'i'
}

// FromLetter is the inverse of Letter.
func FromLetter(c byte) (Peer, bool) {
	switch c {
	case 'i':
		return A, true
	case 'c':
		return B, true
	}
	return 0, false
}

// Parse accepts a side name ("inject"/"content") or a short alias ("a"/"b").
func Parse(s string) (Peer, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case SideInject, "a", "peer-a":
		return A, nil
	case SideContent, "b", "peer-b":
		return B, nil
	}
	return 0, fmt.Errorf("%w side %q (want %q or %q)", errors.ErrUnknownPeer, s, SideInject, SideContent)
}

// ValidSides returns the accepted side names.
func ValidSides() []string {
	return []string{SideInject, SideContent}
}
