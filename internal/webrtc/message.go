package webrtc

import "github.com/vmihailenco/msgpack/v5"

// Control channel message types.
const (
	MessageTypePeerInfo = "peer_info"
)

// Message is the envelope for everything sent on the control data channel.
type Message struct {
	Type    string             `msgpack:"type"`
	Payload msgpack.RawMessage `msgpack:"payload"`
}

// PeerInfoPayload introduces a participant once the control channel opens.
type PeerInfoPayload struct {
	Name    string `msgpack:"name"`
	Version string `msgpack:"version"`
}

// DecodePayload decodes the message payload into the provided struct
func (m Message) DecodePayload(v any) error {
	return msgpack.Unmarshal(m.Payload, v)
}

// NewMessage creates a new Message with the given type and payload
func NewMessage(t string, payload any) (Message, error) {
	b, err := msgpack.Marshal(payload)
	if err != nil {
		return Message{}, err
	}

	return Message{
		Type:    t,
		Payload: b,
	}, nil
}

// Marshal encodes a message for the wire.
func (m Message) Marshal() ([]byte, error) {
	return msgpack.Marshal(m)
}

// UnmarshalMessage decodes one control channel frame.
func UnmarshalMessage(data []byte) (Message, error) {
	var m Message
	err := msgpack.Unmarshal(data, &m)
	return m, err
}
