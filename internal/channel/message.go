package channel

import (
	"encoding/json"
)

// Message is one payload as it arrived: raw JSON, decoded on demand.
type Message struct {
	raw json.RawMessage
}

// Receiver is called with every message delivered on a channel.
type Receiver func(Message)

// Handle identifies a registered Receiver.
type Handle string

// NewMessage wraps an already-encoded JSON payload.
func NewMessage(raw string) Message {
	return Message{raw: json.RawMessage(raw)}
}

// Decode unmarshals the payload into v.
func (m Message) Decode(v any) error {
	return json.Unmarshal(m.raw, v)
}

// Raw returns the encoded payload.
func (m Message) Raw() json.RawMessage {
	return m.raw
}

// String returns the encoded payload.
func (m Message) String() string {
	return string(m.raw)
}

func encodePayload(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func validPayload(raw string) bool {
	return json.Valid([]byte(raw))
}
