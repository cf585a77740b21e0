package signaling

import (
	"encoding/json"
	"errors"
	"fmt"

	pion "github.com/pion/webrtc/v4"
)

// Message type constants.
const (
	MessageTypeJoin             = "join"
	MessageTypeOffer            = "offer"
	MessageTypeAnswer           = "answer"
	MessageTypeICECandidate     = "iceCandidate"
	MessageTypeLeave            = "leave"
	MessageTypeParticipantsList = "participants_list"
)

var ErrInvalidMessage = errors.New("invalid signaling message")

// Message is a decoded signaling message. Exactly one of SDP, Candidate or
// Participants is set, depending on Type.
type Message struct {
	Type      string
	From      string
	To        string
	Timestamp int64

	SDP          *pion.SessionDescription
	Candidate    *pion.ICECandidateInit
	Participants []string
}

// wireMessage is the JSON shape exchanged with the room relay.
type wireMessage struct {
	Type         string          `json:"type"`
	From         string          `json:"from,omitempty"`
	To           string          `json:"to,omitempty"`
	UserID       string          `json:"userId,omitempty"`
	Payload      json.RawMessage `json:"payload,omitempty"`
	Participants []string        `json:"participants,omitempty"`
	Timestamp    int64           `json:"timestamp,omitempty"`
}

// Decode parses and validates one relay frame.
func Decode(data []byte) (*Message, error) {
	var w wireMessage
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}

	msg := &Message{
		Type:      w.Type,
		From:      w.From,
		To:        w.To,
		Timestamp: w.Timestamp,
	}
	if msg.From == "" {
		msg.From = w.UserID
	}

	switch w.Type {
	case MessageTypeJoin, MessageTypeLeave:

	case MessageTypeOffer, MessageTypeAnswer:
		var sdp pion.SessionDescription
		if err := decodePayload(w.Payload, &sdp); err != nil {
			return nil, err
		}
		if sdp.SDP == "" {
			return nil, fmt.Errorf("%w: %s without sdp", ErrInvalidMessage, w.Type)
		}
		if sdp.Type.String() != w.Type {
			return nil, fmt.Errorf("%w: %s carries %s description", ErrInvalidMessage, w.Type, sdp.Type)
		}
		msg.SDP = &sdp

	case MessageTypeICECandidate:
		var c pion.ICECandidateInit
		if err := decodePayload(w.Payload, &c); err != nil {
			return nil, err
		}
		if c.Candidate == "" {
			return nil, fmt.Errorf("%w: empty candidate", ErrInvalidMessage)
		}
		msg.Candidate = &c

	case MessageTypeParticipantsList:
		msg.Participants = w.Participants

	default:
		return nil, fmt.Errorf("%w: unknown type %q", ErrInvalidMessage, w.Type)
	}

	return msg, nil
}

func decodePayload(raw json.RawMessage, v any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return fmt.Errorf("%w: missing payload", ErrInvalidMessage)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	return nil
}

// Encode renders msg in the relay's JSON shape.
func Encode(msg *Message) ([]byte, error) {
	w := wireMessage{
		Type:         msg.Type,
		From:         msg.From,
		To:           msg.To,
		Participants: msg.Participants,
		Timestamp:    msg.Timestamp,
	}
	if msg.Type == MessageTypeJoin {
		w.UserID = msg.From
	}

	var payload any
	switch {
	case msg.SDP != nil:
		payload = msg.SDP
	case msg.Candidate != nil:
		payload = msg.Candidate
	}
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		w.Payload = b
	}

	return json.Marshal(w)
}

// IsAddressedTo reports whether a message should be handled by id.
// Messages without a recipient are broadcasts.
func (m *Message) IsAddressedTo(id string) bool {
	return m.To == "" || m.To == id
}
