package settings

import (
	"encoding/json"

	"github.com/Geggles/Japanese-Memrise-Enhancements/internal/errors"
)

// Frequency is the channel both sides exchange settings on.
const Frequency = "settings"

// MessageType names what an Envelope asks the receiver to do.
type MessageType string

const (
	// TypeInitialize carries the primary's full settings to the replica.
	TypeInitialize MessageType = "initializeSettings"
	// TypeInitializationDone tells the primary the replica has its cache.
	TypeInitializationDone MessageType = "initializationDone"
	// TypeSetValue replaces one key.
	TypeSetValue MessageType = "setValue"
	// TypeMergeValue deep-merges a partial value into one key.
	TypeMergeValue MessageType = "mergeValue"
)

// Envelope is the message exchanged on Frequency.
type Envelope struct {
	Type  MessageType     `json:"type"`
	Key   string          `json:"key,omitempty"`
	Value json.RawMessage `json:"value,omitempty"`
}

func newEnvelope(t MessageType, key string, value any) (Envelope, error) {
	env := Envelope{Type: t, Key: key}
	if value != nil {
		raw, err := json.Marshal(value)
		if err != nil {
			return Envelope{}, errors.Wrapf(err, "encode %s value for %q", t, key)
		}
		env.Value = raw
	}
	return env, nil
}

// decodeValue returns the envelope's value as decoded JSON.
func (e Envelope) decodeValue() (any, error) {
	if len(e.Value) == 0 {
		return nil, nil
	}
	var v any
	if err := json.Unmarshal(e.Value, &v); err != nil {
		return nil, errors.Wrapf(err, "decode %s value for %q", e.Type, e.Key)
	}
	return v, nil
}
