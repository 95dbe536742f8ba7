/*
Package message defines the chat message entity and the JSON frames exchanged
over the chat socket. It is shared by the server, the store and the client.
*/
package message

import (
	"time"
)

// Type is the kind of payload a message carries.
type Type string

const (
	TypeText  Type = "text"
	TypeVoice Type = "voice"
	TypeFile  Type = "file"
)

// Valid reports whether t is one of the known message types.
func (t Type) Valid() bool {
	switch t {
	case TypeText, TypeVoice, TypeFile:
		return true
	}
	return false
}

// OrDefault returns TypeText for an empty type.
func (t Type) OrDefault() Type {
	if t == "" {
		return TypeText
	}
	return t
}

// Sender is the display data joined onto history rows.
type Sender struct {
	FirstName       string `json:"firstName,omitempty"`
	LastName        string `json:"lastName,omitempty"`
	ProfileImageURL string `json:"profileImageUrl,omitempty"`
}

// ChatMessage is a persisted chat message. ID is assigned by the store and is
// the dedup key; CreatedAt is assigned at persistence time and orders messages.
type ChatMessage struct {
	ID          int64     `json:"id"`
	Content     string    `json:"content"`
	SenderID    string    `json:"senderId"`
	MessageType Type      `json:"messageType"`
	CreatedAt   time.Time `json:"createdAt"`
	Sender      *Sender   `json:"sender,omitempty"`
}

// Before orders messages by CreatedAt, then ID for equal timestamps.
func (m ChatMessage) Before(o ChatMessage) bool {
	if !m.CreatedAt.Equal(o.CreatedAt) {
		return m.CreatedAt.Before(o.CreatedAt)
	}
	return m.ID < o.ID
}

// NewChatMessage is the input to the store's create call.
type NewChatMessage struct {
	Content     string
	SenderID    string
	MessageType Type
}
