package signaling

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

type MessageType string

const (
	// Client -> server.
	MessageTypeJoinRoom     MessageType = "join-room"
	MessageTypeOffer        MessageType = "offer"
	MessageTypeAnswer       MessageType = "answer"
	MessageTypeICECandidate MessageType = "ice-candidate"

	// Server -> client.
	MessageTypeRoomUsers  MessageType = "room-users"
	MessageTypeUserJoined MessageType = "user-joined"
	MessageTypeUserLeft   MessageType = "user-left"
)

// Message is the wire envelope for all signaling traffic.
//
// SDP and Candidate are opaque to the relay: they are captured as raw JSON and
// re-emitted byte-for-byte when forwarded.
type Message struct {
	Type MessageType `json:"type"`

	// join-room.
	RoomID string `json:"roomId,omitempty"`

	// Peer-directed forwarding. Target is set by the sender; From is stamped
	// by the relay on the forwarded copy.
	Target string `json:"target,omitempty"`
	From   string `json:"from,omitempty"`

	SDP       json.RawMessage `json:"sdp,omitempty"`
	Candidate json.RawMessage `json:"candidate,omitempty"`

	// room-users / user-joined / user-left. room-users responses are encoded
	// via roomUsersMessage so an empty snapshot still serializes as `[]`.
	Users        []string `json:"users,omitempty"`
	ConnectionID string   `json:"connectionId,omitempty"`
}

// roomUsersMessage exists so the existing-member snapshot encodes as `[]`
// rather than being dropped by omitempty when the room was empty.
type roomUsersMessage struct {
	Type  MessageType `json:"type"`
	Users []string    `json:"users"`
}

// ParseMessage decodes and validates a single client signaling message.
//
// Parsing is strict: unknown fields, trailing data, and fields that do not
// belong to the message kind are all rejected. Server-emitted kinds are not
// accepted from clients.
func ParseMessage(data []byte) (Message, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var msg Message
	if err := dec.Decode(&msg); err != nil {
		return Message{}, err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return Message{}, fmt.Errorf("unexpected trailing data")
	}
	if err := msg.validate(); err != nil {
		return Message{}, err
	}
	return msg, nil
}

func (m Message) validate() error {
	if m.From != "" || len(m.Users) != 0 || m.ConnectionID != "" {
		return fmt.Errorf("%s message has server-assigned fields", m.Type)
	}

	switch m.Type {
	case MessageTypeJoinRoom:
		if m.RoomID == "" {
			return fmt.Errorf("join-room message missing roomId")
		}
		if m.Target != "" || m.SDP != nil || m.Candidate != nil {
			return fmt.Errorf("join-room message has unexpected fields")
		}
	case MessageTypeOffer, MessageTypeAnswer:
		if m.Target == "" {
			return fmt.Errorf("%s message missing target", m.Type)
		}
		if m.SDP == nil {
			return fmt.Errorf("%s message missing sdp", m.Type)
		}
		if m.RoomID != "" || m.Candidate != nil {
			return fmt.Errorf("%s message has unexpected fields", m.Type)
		}
	case MessageTypeICECandidate:
		if m.Target == "" {
			return fmt.Errorf("ice-candidate message missing target")
		}
		if m.Candidate == nil {
			return fmt.Errorf("ice-candidate message missing candidate")
		}
		if m.RoomID != "" || m.SDP != nil {
			return fmt.Errorf("ice-candidate message has unexpected fields")
		}
	default:
		return fmt.Errorf("unsupported message type %q", m.Type)
	}
	return nil
}
