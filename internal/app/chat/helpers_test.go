package chat

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"moodchat/internal/app/message"
)

// fakeTransport records what the dispatcher sends.
type fakeTransport struct {
	mu       sync.Mutex
	received [][]byte
	closed   bool
	sendErr  error
	onSend   func()
}

func (f *fakeTransport) Send(data []byte) error {
	if f.onSend != nil {
		f.onSend()
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.received = append(f.received, data)
	return nil
}

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeTransport) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// events decodes every received frame.
func (f *fakeTransport) events(t *testing.T) []message.Event {
	t.Helper()

	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]message.Event, 0, len(f.received))
	for _, raw := range f.received {
		var ev message.Event
		require.NoError(t, json.Unmarshal(raw, &ev))
		out = append(out, ev)
	}
	return out
}

func (f *fakeTransport) messageIDs(t *testing.T) []int64 {
	t.Helper()

	var ids []int64
	for _, ev := range f.events(t) {
		require.Equal(t, message.FrameNewMessage, ev.Type)
		require.NotNil(t, ev.Message)
		ids = append(ids, ev.Message.ID)
	}
	return ids
}

// memStore assigns sequential ids and timestamps, like the database does.
type memStore struct {
	mu     sync.Mutex
	nextID int64
	base   time.Time
	saved  []message.ChatMessage
}

func newMemStore() *memStore {
	return &memStore{base: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}
}

func (s *memStore) CreateChatMessage(_ context.Context, arg message.NewChatMessage) (message.ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	m := message.ChatMessage{
		ID:          s.nextID,
		Content:     arg.Content,
		SenderID:    arg.SenderID,
		MessageType: arg.MessageType,
		CreatedAt:   s.base.Add(time.Duration(s.nextID) * time.Millisecond),
	}
	s.saved = append(s.saved, m)
	return m, nil
}

func (s *memStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.saved)
}
