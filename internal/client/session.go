/*
Package client is the chat client: a socket session that authenticates and
reconnects on its own, the REST calls for history and identity, and the merge
of fetched history with live messages into one ordered view.
*/
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"moodchat/internal/app/message"
	"moodchat/internal/pkg/logx"
)

var (
	// ErrNoIdentity is returned by Connect before SetIdentity was given a user id.
	ErrNoIdentity = errors.New("client: no identity")

	// ErrNotConnected is returned by Send while no socket is open.
	ErrNotConnected = errors.New("client: not connected")
)

const (
	// DefaultSettleDelay is the wait between learning the identity and the first connect.
	DefaultSettleDelay = time.Second

	writeWait = 10 * time.Second
)

// SessionConfig configures a Session. Only URL is required.
type SessionConfig struct {
	// URL is the socket endpoint, see WebSocketURL.
	URL string

	// Header is sent with the upgrade request.
	Header http.Header

	Dialer      *websocket.Dialer
	SettleDelay time.Duration
	Reconnect   ReconnectPolicy

	// Schedule runs the settle and reconnect timers. Defaults to AfterFunc.
	Schedule Scheduler

	// OnMessage is called on the reader goroutine for every new_message event.
	// It must not call Disconnect.
	OnMessage func(message.ChatMessage)

	// OnStateChange is called whenever the connected state flips.
	OnStateChange func(connected bool)
}

// Session owns at most one open socket. It sends the auth frame on every
// open, keeps the live buffer of messages received since, and redials
// through its Reconnector when the socket closes with anything but 1000.
type Session struct {
	cfg         SessionConfig
	reconnector *Reconnector

	mu     sync.Mutex
	userID string
	conn   *websocket.Conn
	// dialing is set while a Connect is between dial and publishing conn.
	dialing bool
	// epoch is bumped by Disconnect; timers and dials started in an older
	// epoch do nothing.
	epoch        uint64
	live         []message.ChatMessage
	cancelSettle func() bool

	writeMu sync.Mutex
	readers sync.WaitGroup

	logger zerolog.Logger
}

// NewSession returns a disconnected session.
func NewSession(cfg SessionConfig) *Session {
	if cfg.Dialer == nil {
		d := *websocket.DefaultDialer
		cfg.Dialer = &d
	}
	if cfg.SettleDelay <= 0 {
		cfg.SettleDelay = DefaultSettleDelay
	}
	if cfg.Schedule == nil {
		cfg.Schedule = AfterFunc
	}
	if cfg.Reconnect == (ReconnectPolicy{}) {
		cfg.Reconnect = DefaultReconnectPolicy
	}

	return &Session{
		cfg:         cfg,
		reconnector: NewReconnector(cfg.Reconnect, cfg.Schedule),
		logger:      logx.Component("session").With().Str("url", cfg.URL).Logger(),
	}
}

// SetIdentity sets the user id announced in the auth frame. A non-empty id
// schedules a Connect after the settle delay unless a socket is open or
// being dialed.
func (s *Session) SetIdentity(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.userID = userID
	if userID == "" || s.conn != nil || s.dialing || s.cancelSettle != nil {
		return
	}

	epoch := s.epoch
	s.cancelSettle = s.cfg.Schedule(s.cfg.SettleDelay, func() {
		s.mu.Lock()
		if s.epoch == epoch {
			s.cancelSettle = nil
		}
		s.mu.Unlock()

		if err := s.connect(context.Background(), epoch); err != nil {
			s.logger.Debug().Err(err).Msg("initial connect failed")
		}
	})
}

// Connect opens the socket and sends the auth frame. It does nothing when a
// socket is already open or being dialed, and returns ErrNoIdentity without
// dialing when no identity is set. A failed dial counts as an abnormal close.
func (s *Session) Connect(ctx context.Context) error {
	s.mu.Lock()
	epoch := s.epoch
	s.mu.Unlock()

	return s.connect(ctx, epoch)
}

func (s *Session) connect(ctx context.Context, epoch uint64) error {
	s.mu.Lock()
	if s.epoch != epoch {
		s.mu.Unlock()
		return nil
	}
	if s.userID == "" {
		s.mu.Unlock()
		s.logger.Debug().Msg("connect skipped, no identity")
		return ErrNoIdentity
	}
	if s.conn != nil || s.dialing {
		s.mu.Unlock()
		return nil
	}
	s.dialing = true
	userID := s.userID
	s.mu.Unlock()

	conn, _, err := s.cfg.Dialer.DialContext(ctx, s.cfg.URL, s.cfg.Header)
	if err == nil {
		// Auth goes out before conn is published so no chat frame can precede it.
		err = s.write(conn, message.AuthFrame(userID))
		if err != nil {
			_ = conn.Close()
			conn = nil
		}
	}

	s.mu.Lock()
	s.dialing = false

	if s.epoch != epoch {
		s.mu.Unlock()
		if conn != nil {
			s.closeManual(conn)
		}
		return nil
	}

	if err != nil {
		s.reconnectLocked(websocket.CloseAbnormalClosure)
		s.mu.Unlock()
		s.logger.Warn().Err(err).Msg("connect failed")
		return fmt.Errorf("connect %s: %w", s.cfg.URL, err)
	}

	s.conn = conn
	s.readers.Add(1)
	s.mu.Unlock()

	s.reconnector.Reset()
	s.logger.Info().Str("user_id", userID).Msg("connected")
	s.notify(true)

	go s.readLoop(conn)
	return nil
}

// Send writes a chat frame. An empty type is sent as text.
func (s *Session) Send(content string, t message.Type) error {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()

	if conn == nil {
		return ErrNotConnected
	}
	return s.write(conn, message.ChatFrame(content, t.OrDefault()))
}

// Disconnect closes the socket with 1000, cancels any pending settle or
// reconnect timer, resets the reconnect attempts and clears the live buffer.
// It waits for the reader goroutine to exit.
func (s *Session) Disconnect() {
	s.mu.Lock()
	s.epoch++
	conn := s.conn
	s.conn = nil
	s.live = nil
	if s.cancelSettle != nil {
		s.cancelSettle()
		s.cancelSettle = nil
	}
	s.reconnector.Cancel()
	s.reconnector.Reset()
	s.mu.Unlock()

	if conn != nil {
		s.closeManual(conn)
		s.logger.Info().Msg("disconnected by user")
		s.notify(false)
	}

	s.readers.Wait()
}

// IsConnected reports whether a socket is open.
func (s *Session) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn != nil
}

// Live returns a copy of the messages received since the last Disconnect.
func (s *Session) Live() []message.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]message.ChatMessage(nil), s.live...)
}

// Reconnector exposes the session's reconnect state.
func (s *Session) Reconnector() *Reconnector { return s.reconnector }

func (s *Session) readLoop(conn *websocket.Conn) {
	defer s.readers.Done()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			s.handleClose(conn, closeCode(err))
			return
		}

		var ev message.Event
		if err := json.Unmarshal(data, &ev); err != nil {
			s.logger.Warn().Err(err).Msg("undecodable event")
			continue
		}
		if ev.Type != message.FrameNewMessage || ev.Message == nil {
			s.logger.Debug().Str("type", string(ev.Type)).Msg("ignoring event")
			continue
		}

		s.mu.Lock()
		current := s.conn == conn
		if current {
			s.live = append(s.live, *ev.Message)
		}
		s.mu.Unlock()

		if current && s.cfg.OnMessage != nil {
			s.cfg.OnMessage(*ev.Message)
		}
	}
}

func (s *Session) handleClose(conn *websocket.Conn, code int) {
	s.mu.Lock()
	if s.conn != conn {
		// Disconnect already took this socket.
		s.mu.Unlock()
		return
	}
	s.conn = nil
	s.reconnectLocked(code)
	s.mu.Unlock()

	_ = conn.Close()
	s.logger.Info().Int("code", code).Msg("socket closed")
	s.notify(false)
}

// reconnectLocked hands a close to the reconnector. s.mu must be held so a
// concurrent Disconnect either runs first or cancels what this schedules.
func (s *Session) reconnectLocked(code int) {
	epoch := s.epoch
	s.reconnector.OnClose(code, func() {
		if err := s.connect(context.Background(), epoch); err != nil {
			s.logger.Debug().Err(err).Msg("reconnect failed")
		}
	})
}

func (s *Session) write(conn *websocket.Conn, v any) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(v)
}

func (s *Session) closeManual(conn *websocket.Conn) {
	msg := websocket.FormatCloseMessage(message.CloseManual, "Manual disconnect")
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
	_ = conn.Close()
}

func (s *Session) notify(connected bool) {
	if s.cfg.OnStateChange != nil {
		s.cfg.OnStateChange(connected)
	}
}

// closeCode extracts the peer's close code; transport errors count as 1006.
func closeCode(err error) int {
	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return websocket.CloseAbnormalClosure
}
