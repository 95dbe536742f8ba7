package client

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"moodchat/internal/app/message"
)

// fakeScheduler records timers instead of running them; tests fire them by hand.
type fakeScheduler struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

type fakeTimer struct {
	delay   time.Duration
	fn      func()
	stopped bool
	fired   bool
}

func (f *fakeScheduler) Schedule(d time.Duration, fn func()) func() bool {
	t := &fakeTimer{delay: d, fn: fn}

	f.mu.Lock()
	f.timers = append(f.timers, t)
	f.mu.Unlock()

	return func() bool {
		f.mu.Lock()
		defer f.mu.Unlock()
		if t.stopped || t.fired {
			return false
		}
		t.stopped = true
		return true
	}
}

func (f *fakeScheduler) delays() []time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]time.Duration, 0, len(f.timers))
	for _, t := range f.timers {
		out = append(out, t.delay)
	}
	return out
}

func (f *fakeScheduler) pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	n := 0
	for _, t := range f.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

func (f *fakeScheduler) timer(i int) *fakeTimer {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.timers[i]
}

func (f *fakeScheduler) isStopped(i int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.timers[i].stopped
}

// fire runs the oldest pending timer on the calling goroutine.
func (f *fakeScheduler) fire(t *testing.T) time.Duration {
	t.Helper()

	f.mu.Lock()
	var next *fakeTimer
	for _, tm := range f.timers {
		if !tm.stopped && !tm.fired {
			next = tm
			break
		}
	}
	if next != nil {
		next.fired = true
	}
	f.mu.Unlock()

	require.NotNil(t, next, "no pending timer")
	next.fn()
	return next.delay
}

// runAnyway calls timer i's callback even if it was stopped, as a timer
// that had already started firing would.
func (f *fakeScheduler) runAnyway(i int) {
	f.timer(i).fn()
}

type serverConn struct {
	conn   *websocket.Conn
	frames chan message.InboundFrame
	closed chan int
}

// echoServer is a scripted socket endpoint.
type echoServer struct {
	srv      *httptest.Server
	url      string
	upgrader websocket.Upgrader

	mu       sync.Mutex
	reject   bool
	requests int
	conns    []*serverConn
}

func newEchoServer(t *testing.T) *echoServer {
	t.Helper()

	s := &echoServer{}
	s.srv = httptest.NewServer(http.HandlerFunc(s.serve))
	s.url = "ws" + strings.TrimPrefix(s.srv.URL, "http") + "/ws"

	t.Cleanup(func() {
		s.mu.Lock()
		for _, c := range s.conns {
			_ = c.conn.Close()
		}
		s.mu.Unlock()
		s.srv.Close()
	})
	return s
}

func (s *echoServer) serve(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.requests++
	reject := s.reject
	s.mu.Unlock()

	if reject {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	sc := &serverConn{
		conn:   conn,
		frames: make(chan message.InboundFrame, 16),
		closed: make(chan int, 1),
	}
	s.mu.Lock()
	s.conns = append(s.conns, sc)
	s.mu.Unlock()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			var ce *websocket.CloseError
			if errors.As(err, &ce) {
				sc.closed <- ce.Code
			} else {
				sc.closed <- websocket.CloseAbnormalClosure
			}
			return
		}

		var f message.InboundFrame
		if err := json.Unmarshal(data, &f); err == nil {
			sc.frames <- f
		}
	}
}

func (s *echoServer) setReject(v bool) {
	s.mu.Lock()
	s.reject = v
	s.mu.Unlock()
}

func (s *echoServer) requestCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests
}

func (s *echoServer) connCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

func (s *echoServer) conn(t *testing.T, i int) *serverConn {
	t.Helper()
	require.Eventually(t, func() bool { return s.connCount() > i }, 2*time.Second, 5*time.Millisecond)

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conns[i]
}

func (c *serverConn) next(t *testing.T) message.InboundFrame {
	t.Helper()
	select {
	case f := <-c.frames:
		return f
	case <-time.After(2 * time.Second):
		t.Fatal("no frame received")
		return message.InboundFrame{}
	}
}

func (c *serverConn) closeCode(t *testing.T) int {
	t.Helper()
	select {
	case code := <-c.closed:
		return code
	case <-time.After(2 * time.Second):
		t.Fatal("socket not closed")
		return 0
	}
}

func (c *serverConn) push(t *testing.T, v any) {
	t.Helper()
	require.NoError(t, c.conn.WriteJSON(v))
}

func newTestSession(t *testing.T, url string, sched *fakeScheduler, cfg SessionConfig) *Session {
	t.Helper()

	cfg.URL = url
	cfg.Schedule = sched.Schedule
	s := NewSession(cfg)
	t.Cleanup(s.Disconnect)
	return s
}

func msg(id int64, at time.Time) message.ChatMessage {
	return message.ChatMessage{
		ID:          id,
		Content:     "m",
		SenderID:    "u1",
		MessageType: message.TypeText,
		CreatedAt:   at,
	}
}

func ids(msgs []message.ChatMessage) []int64 {
	out := make([]int64, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.ID)
	}
	return out
}
