package client

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moodchat/internal/app/message"
)

func TestSession_ConnectWithoutIdentityIsSkipped(t *testing.T) {
	srv := newEchoServer(t)
	s := newTestSession(t, srv.url, &fakeScheduler{}, SessionConfig{})

	err := s.Connect(context.Background())
	assert.ErrorIs(t, err, ErrNoIdentity)
	assert.False(t, s.IsConnected())
	assert.Zero(t, srv.requestCount())
}

func TestSession_SettleDelayBeforeFirstConnect(t *testing.T) {
	srv := newEchoServer(t)
	sched := &fakeScheduler{}
	s := newTestSession(t, srv.url, sched, SessionConfig{})

	s.SetIdentity("u1")
	assert.Equal(t, []time.Duration{DefaultSettleDelay}, sched.delays())
	assert.Zero(t, srv.requestCount(), "nothing dialed before the settle delay")

	sched.fire(t)
	require.True(t, s.IsConnected())

	f := srv.conn(t, 0).next(t)
	assert.Equal(t, message.AuthFrame("u1"), f)
}

func TestSession_AuthThenChat(t *testing.T) {
	srv := newEchoServer(t)
	s := newTestSession(t, srv.url, &fakeScheduler{}, SessionConfig{})
	s.SetIdentity("u1")

	require.NoError(t, s.Connect(context.Background()))
	require.NoError(t, s.Connect(context.Background()), "second connect is a no-op")

	require.NoError(t, s.Send("hello", ""))
	require.NoError(t, s.Send("note.webm", message.TypeVoice))

	sc := srv.conn(t, 0)
	assert.Equal(t, message.AuthFrame("u1"), sc.next(t))
	assert.Equal(t, message.ChatFrame("hello", message.TypeText), sc.next(t))
	assert.Equal(t, message.ChatFrame("note.webm", message.TypeVoice), sc.next(t))
	assert.Equal(t, 1, srv.requestCount())
}

func TestSession_SendWhileDisconnected(t *testing.T) {
	s := NewSession(SessionConfig{URL: "ws://127.0.0.1:1/ws", Schedule: (&fakeScheduler{}).Schedule})

	assert.ErrorIs(t, s.Send("hello", message.TypeText), ErrNotConnected)
}

func TestSession_LiveBuffer(t *testing.T) {
	srv := newEchoServer(t)

	var (
		mu       sync.Mutex
		received []int64
	)
	s := newTestSession(t, srv.url, &fakeScheduler{}, SessionConfig{
		OnMessage: func(m message.ChatMessage) {
			mu.Lock()
			received = append(received, m.ID)
			mu.Unlock()
		},
	})
	s.SetIdentity("u1")
	require.NoError(t, s.Connect(context.Background()))

	sc := srv.conn(t, 0)
	sc.next(t)

	now := time.Now().UTC()
	sc.push(t, message.NewMessageEvent(msg(1, now)))
	require.NoError(t, sc.conn.WriteMessage(websocket.TextMessage, []byte("{oops")))
	sc.push(t, message.Event{Type: "typing"})
	sc.push(t, message.NewMessageEvent(msg(2, now.Add(time.Second))))

	require.Eventually(t, func() bool { return len(s.Live()) == 2 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, []int64{1, 2}, ids(s.Live()))
	assert.True(t, s.IsConnected(), "bad frames do not drop the socket")

	mu.Lock()
	assert.Equal(t, []int64{1, 2}, received)
	mu.Unlock()
}

func TestSession_DisconnectClosesWithManualCode(t *testing.T) {
	srv := newEchoServer(t)

	var (
		mu     sync.Mutex
		states []bool
	)
	sched := &fakeScheduler{}
	s := newTestSession(t, srv.url, sched, SessionConfig{
		OnStateChange: func(connected bool) {
			mu.Lock()
			states = append(states, connected)
			mu.Unlock()
		},
	})
	s.SetIdentity("u1")
	require.NoError(t, s.Connect(context.Background()))

	sc := srv.conn(t, 0)
	sc.next(t)
	sc.push(t, message.NewMessageEvent(msg(1, time.Now())))
	require.Eventually(t, func() bool { return len(s.Live()) == 1 }, 2*time.Second, 5*time.Millisecond)

	s.Disconnect()

	assert.Equal(t, message.CloseManual, sc.closeCode(t))
	assert.False(t, s.IsConnected())
	assert.Empty(t, s.Live(), "disconnect clears the live buffer")
	assert.Zero(t, sched.pending(), "manual close schedules no reconnect")

	mu.Lock()
	assert.Equal(t, []bool{true, false}, states)
	mu.Unlock()
}

func TestSession_ReconnectsAfterAbnormalClose(t *testing.T) {
	srv := newEchoServer(t)
	sched := &fakeScheduler{}
	s := newTestSession(t, srv.url, sched, SessionConfig{})
	s.SetIdentity("u1")
	sched.fire(t)
	srv.conn(t, 0).next(t)

	// Drop the TCP connection without a close frame.
	require.NoError(t, srv.conn(t, 0).conn.Close())

	require.Eventually(t, func() bool { return sched.pending() == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.False(t, s.IsConnected())
	assert.Equal(t, 1, s.Reconnector().Attempts())

	assert.Equal(t, 6*time.Second, sched.fire(t))
	require.True(t, s.IsConnected())
	assert.Equal(t, message.AuthFrame("u1"), srv.conn(t, 1).next(t), "auth is resent on every open")
	assert.Zero(t, s.Reconnector().Attempts(), "open resets the counter")

	// A second drop starts the backoff from the beginning.
	require.NoError(t, srv.conn(t, 1).conn.Close())
	require.Eventually(t, func() bool { return sched.pending() == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, 6*time.Second, sched.fire(t))
}

func TestSession_GoingAwayReconnects(t *testing.T) {
	srv := newEchoServer(t)
	sched := &fakeScheduler{}
	s := newTestSession(t, srv.url, sched, SessionConfig{})
	s.SetIdentity("u1")
	sched.fire(t)
	require.True(t, s.IsConnected())

	sc := srv.conn(t, 0)
	sc.next(t)
	require.NoError(t, sc.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseGoingAway, "restart"), time.Now().Add(time.Second)))

	require.Eventually(t, func() bool { return sched.pending() == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, 6*time.Second, sched.fire(t))
	assert.True(t, s.IsConnected())
}

func TestSession_ServerManualCloseDoesNotReconnect(t *testing.T) {
	srv := newEchoServer(t)
	sched := &fakeScheduler{}
	s := newTestSession(t, srv.url, sched, SessionConfig{})
	s.SetIdentity("u1")
	sched.fire(t)

	sc := srv.conn(t, 0)
	sc.next(t)
	require.NoError(t, sc.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(message.CloseManual, ""), time.Now().Add(time.Second)))

	require.Eventually(t, func() bool { return !s.IsConnected() }, 2*time.Second, 5*time.Millisecond)
	assert.Zero(t, sched.pending())
	assert.Zero(t, s.Reconnector().Attempts())
}

func TestSession_GivesUpAfterFiveFailedAttempts(t *testing.T) {
	srv := newEchoServer(t)
	srv.setReject(true)

	sched := &fakeScheduler{}
	s := newTestSession(t, srv.url, sched, SessionConfig{})
	s.SetIdentity("u1")

	sched.fire(t) // settle delay, first dial fails
	for i := 0; i < 5; i++ {
		sched.fire(t)
	}

	assert.Equal(t, []time.Duration{
		DefaultSettleDelay,
		6 * time.Second, 12 * time.Second, 24 * time.Second, 48 * time.Second, 96 * time.Second,
	}, sched.delays())
	assert.Zero(t, sched.pending(), "no attempt after the ceiling")
	assert.Equal(t, 6, srv.requestCount())
	assert.False(t, s.IsConnected())

	// Something external may still connect once the server is back.
	srv.setReject(false)
	require.NoError(t, s.Connect(context.Background()))
	assert.True(t, s.IsConnected())
	assert.Zero(t, s.Reconnector().Attempts())
}

func TestSession_DisconnectAfterGiveUpRestoresBackoff(t *testing.T) {
	srv := newEchoServer(t)
	srv.setReject(true)

	sched := &fakeScheduler{}
	s := newTestSession(t, srv.url, sched, SessionConfig{})
	s.SetIdentity("u1")

	sched.fire(t)
	for i := 0; i < 5; i++ {
		sched.fire(t)
	}
	require.Zero(t, sched.pending())
	require.Equal(t, 5, s.Reconnector().Attempts())

	s.Disconnect()
	assert.Zero(t, s.Reconnector().Attempts())

	// The server is still down: the fresh connect starts the backoff over.
	assert.Error(t, s.Connect(context.Background()))
	assert.Equal(t, 1, s.Reconnector().Attempts())
	assert.Equal(t, 1, sched.pending())

	delays := sched.delays()
	assert.Equal(t, 6*time.Second, delays[len(delays)-1])
}

func TestSession_DisconnectCancelsPendingReconnect(t *testing.T) {
	srv := newEchoServer(t)
	sched := &fakeScheduler{}
	s := newTestSession(t, srv.url, sched, SessionConfig{})
	s.SetIdentity("u1")
	sched.fire(t)
	srv.conn(t, 0).next(t)

	require.NoError(t, srv.conn(t, 0).conn.Close())
	require.Eventually(t, func() bool { return sched.pending() == 1 }, 2*time.Second, 5*time.Millisecond)

	s.Disconnect()
	assert.True(t, sched.isStopped(1), "pending reconnect timer is stopped")
	assert.False(t, s.Reconnector().Pending())

	// Even a callback already in flight must not reopen the socket.
	sched.runAnyway(1)
	assert.False(t, s.IsConnected())
	assert.Equal(t, 1, srv.requestCount())
}

func TestSession_DisconnectDuringSettleDelay(t *testing.T) {
	srv := newEchoServer(t)
	sched := &fakeScheduler{}
	s := newTestSession(t, srv.url, sched, SessionConfig{})
	s.SetIdentity("u1")

	s.Disconnect()
	assert.True(t, sched.isStopped(0))

	sched.runAnyway(0)
	assert.False(t, s.IsConnected())
	assert.Zero(t, srv.requestCount())
}
