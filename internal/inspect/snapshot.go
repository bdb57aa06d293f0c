// Package inspect renders the contents of a ledger medium for humans:
// a point-in-time YAML snapshot and a live, filtered trace of writes.
package inspect

import (
	"encoding/json"
	"maps"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/Geggles/Japanese-Memrise-Enhancements/internal/ledger"
	"github.com/Geggles/Japanese-Memrise-Enhancements/internal/peer"
)

// Source is anything that can hand out a copy of its raw entries.
// ledger.MemoryMedium satisfies it.
type Source interface {
	Snapshot() map[string]string
}

// Snapshot is the decoded state of every channel on a medium.
type Snapshot struct {
	Channels []ChannelState    `yaml:"channels"`
	Other    map[string]string `yaml:"other,omitempty"`
}

// ChannelState holds both peers' mailboxes for one frequency.
type ChannelState struct {
	Frequency string         `yaml:"frequency"`
	Mailboxes []MailboxState `yaml:"mailboxes"`
}

// MailboxState is one peer's lock and queue. Values that fail to decode
// are reported in Corrupt instead of being dropped.
type MailboxState struct {
	Owner   string   `yaml:"owner"`
	Lock    string   `yaml:"lock"`
	Queue   []any    `yaml:"queue"`
	Corrupt []string `yaml:"corrupt,omitempty"`
}

// Take decodes every entry in src. Keys that are not mailbox slots end up
// in Other verbatim.
func Take(src Source) Snapshot {
	raw := src.Snapshot()
	byFreq := make(map[string]map[peer.Peer]*MailboxState)
	snap := Snapshot{}

	mailbox := func(k ledger.Key) *MailboxState {
		owners, ok := byFreq[k.Frequency]
		if !ok {
			owners = make(map[peer.Peer]*MailboxState)
			byFreq[k.Frequency] = owners
		}
		mb, ok := owners[k.Owner]
		if !ok {
			mb = &MailboxState{Owner: k.Owner.String(), Lock: ledger.Free.String(), Queue: []any{}}
			owners[k.Owner] = mb
		}
		return mb
	}

	for key, value := range raw {
		k, ok := ledger.ParseKey(key)
		if !ok {
			if snap.Other == nil {
				snap.Other = make(map[string]string)
			}
			snap.Other[key] = value
			continue
		}
		mb := mailbox(k)
		switch k.Kind {
		case ledger.KindLock:
			s, err := ledger.DecodeLock(value)
			if err != nil {
				mb.Corrupt = append(mb.Corrupt, err.Error())
				mb.Lock = "invalid"
				continue
			}
			mb.Lock = s.String()
		case ledger.KindQueue:
			q, err := ledger.DecodeQueue(value)
			if err != nil {
				mb.Corrupt = append(mb.Corrupt, err.Error())
				continue
			}
			mb.Queue = decodePayloads(q)
		}
	}

	for _, freq := range slices.Sorted(maps.Keys(byFreq)) {
		owners := byFreq[freq]
		cs := ChannelState{Frequency: freq}
		for _, p := range []peer.Peer{peer.A, peer.B} {
			if mb, ok := owners[p]; ok {
				cs.Mailboxes = append(cs.Mailboxes, *mb)
			}
		}
		snap.Channels = append(snap.Channels, cs)
	}
	return snap
}

// YAML renders the snapshot as a YAML document.
func (s Snapshot) YAML() ([]byte, error) {
	return yaml.Marshal(s)
}

// Pending returns the total number of queued payloads across all channels.
func (s Snapshot) Pending() int {
	n := 0
	for _, c := range s.Channels {
		for _, mb := range c.Mailboxes {
			n += len(mb.Queue)
		}
	}
	return n
}

// decodePayloads turns queue entries back into values. An entry that is
// not JSON is kept as its raw string.
func decodePayloads(q []string) []any {
	out := make([]any, 0, len(q))
	for _, entry := range q {
		var v any
		if err := json.Unmarshal([]byte(entry), &v); err != nil {
			out = append(out, entry)
			continue
		}
		out = append(out, v)
	}
	return out
}
