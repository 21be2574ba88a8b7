package signaling

import (
	"encoding/json"
	"fmt"
)

// Type discriminates signaling messages on the wire.
type Type string

const (
	TypeNewUser          Type = "new-user"
	TypeOffer            Type = "offer"
	TypeAnswer           Type = "answer"
	TypeIceCandidate     Type = "ice-candidate"
	TypeChatMessage      Type = "chat-message"
	TypeChatHistory      Type = "chat-history"
	TypeUserDisconnected Type = "user-disconnected"
)

// Message is the envelope exchanged with the signaling server. Exactly the
// fields for its Type are populated; SDP and ICE payloads stay opaque blobs
// handed through to the peer transport.
type Message struct {
	Type      Type            `json:"type"`
	From      string          `json:"from,omitempty"`
	To        string          `json:"to,omitempty"`
	Offer     json.RawMessage `json:"offer,omitempty"`
	Answer    json.RawMessage `json:"answer,omitempty"`
	Candidate json.RawMessage `json:"candidate,omitempty"`
	Message   string          `json:"message,omitempty"`
	Timestamp string          `json:"timestamp,omitempty"`
	Messages  []ChatEntry     `json:"messages,omitempty"`
}

// ChatEntry is one prior chat message replayed in a chat-history message.
type ChatEntry struct {
	From      string `json:"from"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// NewUser announces local presence to the room.
func NewUser(from string) *Message {
	return &Message{Type: TypeNewUser, From: from}
}

// NewOffer carries a session description offer to one remote participant.
func NewOffer(from, to string, offer json.RawMessage) *Message {
	return &Message{Type: TypeOffer, From: from, To: to, Offer: offer}
}

// NewAnswer carries a session description answer to one remote participant.
func NewAnswer(from, to string, answer json.RawMessage) *Message {
	return &Message{Type: TypeAnswer, From: from, To: to, Answer: answer}
}

// NewIceCandidate carries one ICE candidate to one remote participant.
func NewIceCandidate(from, to string, candidate json.RawMessage) *Message {
	return &Message{Type: TypeIceCandidate, From: from, To: to, Candidate: candidate}
}

// NewChatMessage carries one chat line to the whole room.
func NewChatMessage(from, text, timestamp string) *Message {
	return &Message{Type: TypeChatMessage, From: from, Message: text, Timestamp: timestamp}
}

// NewUserDisconnected announces that the local participant is leaving.
func NewUserDisconnected(from string) *Message {
	return &Message{Type: TypeUserDisconnected, From: from}
}

// Parse decodes and validates an inbound wire payload. Unknown types and
// envelopes missing their type-specific fields are rejected so a malformed
// message never reaches the coordinator.
func Parse(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("decode signaling message: %w", err)
	}
	if err := msg.validate(); err != nil {
		return nil, err
	}
	return &msg, nil
}

func (m *Message) validate() error {
	switch m.Type {
	case TypeNewUser, TypeUserDisconnected:
		if m.From == "" {
			return fmt.Errorf("%s message without sender", m.Type)
		}
	case TypeOffer:
		if m.From == "" || len(m.Offer) == 0 {
			return fmt.Errorf("offer message missing sender or payload")
		}
	case TypeAnswer:
		if m.From == "" || len(m.Answer) == 0 {
			return fmt.Errorf("answer message missing sender or payload")
		}
	case TypeIceCandidate:
		if m.From == "" || len(m.Candidate) == 0 {
			return fmt.Errorf("ice-candidate message missing sender or payload")
		}
	case TypeChatMessage:
		if m.From == "" {
			return fmt.Errorf("chat message without sender")
		}
	case TypeChatHistory:
		// History carries no top-level sender.
	default:
		return fmt.Errorf("unknown signaling message type %q", m.Type)
	}
	return nil
}
