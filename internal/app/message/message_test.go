package message

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestType(t *testing.T) {
	assert.True(t, TypeVoice.Valid())
	assert.False(t, Type("video").Valid())
	assert.Equal(t, TypeText, Type("").OrDefault())
	assert.Equal(t, TypeFile, TypeFile.OrDefault())
}

func TestChatMessage_Before(t *testing.T) {
	t0 := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

	a := ChatMessage{ID: 2, CreatedAt: t0}
	b := ChatMessage{ID: 1, CreatedAt: t0.Add(time.Millisecond)}
	c := ChatMessage{ID: 3, CreatedAt: t0}

	assert.True(t, a.Before(b))
	assert.False(t, b.Before(a))
	assert.True(t, a.Before(c), "equal timestamps fall back to id")
	assert.False(t, c.Before(a))
}

func TestNewMessageEvent_WireShape(t *testing.T) {
	created := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	ev := NewMessageEvent(ChatMessage{ID: 1, Content: "hello", SenderID: "u1", MessageType: TypeText, CreatedAt: created})

	raw, err := json.Marshal(ev)
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"type":"new_message","message":{"id":1,"content":"hello","senderId":"u1","messageType":"text","createdAt":"2024-05-01T09:00:00Z"}}`,
		string(raw))
}

func TestDecodeInbound(t *testing.T) {
	f, err := DecodeInbound([]byte(`{"type":"chat_message","content":"hi","messageType":"voice"}`))
	require.NoError(t, err)
	assert.Equal(t, ChatFrame("hi", TypeVoice), f)

	f, err = DecodeInbound([]byte(`{"type":"auth","userId":"u1"}`))
	require.NoError(t, err)
	assert.Equal(t, AuthFrame("u1"), f)

	_, err = DecodeInbound([]byte(`{not json`))
	assert.Error(t, err)
}
