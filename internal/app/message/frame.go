package message

import (
	"encoding/json"
	"fmt"
)

// FrameType is the "type" discriminator of a socket frame.
type FrameType string

const (
	// FrameAuth binds the sending socket to a user id.
	FrameAuth FrameType = "auth"

	// FrameChat asks the server to persist and broadcast a message.
	FrameChat FrameType = "chat_message"

	// FrameNewMessage carries a persisted message to every socket.
	FrameNewMessage FrameType = "new_message"
)

// CloseManual is the close code a client sends on deliberate disconnect.
// Any other close code makes the client reconnect.
const CloseManual = 1000

// InboundFrame is any client to server frame. Fields not used by Type are empty.
type InboundFrame struct {
	Type        FrameType `json:"type"`
	UserID      string    `json:"userId,omitempty"`
	Content     string    `json:"content,omitempty"`
	MessageType Type      `json:"messageType,omitempty"`
}

// AuthFrame builds the frame sent right after a socket opens.
func AuthFrame(userID string) InboundFrame {
	return InboundFrame{Type: FrameAuth, UserID: userID}
}

// ChatFrame builds a chat send frame.
func ChatFrame(content string, t Type) InboundFrame {
	return InboundFrame{Type: FrameChat, Content: content, MessageType: t}
}

// DecodeInbound parses a raw client frame. Only JSON syntax is checked here.
func DecodeInbound(raw []byte) (InboundFrame, error) {
	var f InboundFrame
	if err := json.Unmarshal(raw, &f); err != nil {
		return InboundFrame{}, fmt.Errorf("decode inbound frame: %w", err)
	}
	return f, nil
}

// Event is a server to client frame.
type Event struct {
	Type    FrameType    `json:"type"`
	Message *ChatMessage `json:"message,omitempty"`
}

// NewMessageEvent wraps a persisted message for broadcast.
func NewMessageEvent(m ChatMessage) Event {
	return Event{Type: FrameNewMessage, Message: &m}
}
