package chat

import (
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	// timeout for a single write to the peer.
	writeWait = 10 * time.Second

	// how long the peer may stay silent (no frame, no pong).
	pongWait = 60 * time.Second

	// ping interval, shorter than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// largest inbound frame accepted, in bytes.
	maxFrameSize = 32 << 10
)

var (
	// ErrConnClosed is returned by Send after the socket was closed.
	ErrConnClosed = errors.New("connection closed")

	// ErrSendQueueFull is returned by Send when the peer is not keeping up.
	ErrSendQueueFull = errors.New("send queue full")
)

// Socket is the Transport over a gorilla WebSocket connection. Outbound
// frames go through a bounded queue drained by WritePump.
type Socket struct {
	conn *websocket.Conn
	send chan []byte

	done      chan struct{}
	closeOnce sync.Once

	// closeCode is written to the peer when the socket is closed locally.
	closeCode int

	logger zerolog.Logger
}

// NewSocket wraps conn with an outbound queue of queueSize frames.
func NewSocket(conn *websocket.Conn, queueSize int, logger zerolog.Logger) *Socket {
	return &Socket{
		conn:      conn,
		send:      make(chan []byte, queueSize),
		done:      make(chan struct{}),
		closeCode: websocket.CloseGoingAway,
		logger:    logger,
	}
}

// Send queues data without blocking.
func (s *Socket) Send(data []byte) error {
	select {
	case <-s.done:
		return ErrConnClosed
	default:
	}

	select {
	case s.send <- data:
		return nil
	case <-s.done:
		return ErrConnClosed
	default:
		return ErrSendQueueFull
	}
}

// Close stops WritePump, which says goodbye to the peer and closes the
// underlying connection. Safe to call more than once.
func (s *Socket) Close() error {
	s.closeOnce.Do(func() { close(s.done) })
	return nil
}

// ReadPump reads frames until the connection fails or closes, passing each
// one to onFrame. It returns when reading stops.
func (s *Socket) ReadPump(onFrame func(raw []byte)) {
	s.conn.SetReadLimit(maxFrameSize)

	if err := s.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		s.logger.Error().Err(err).Msg("failed to set read deadline")
		return
	}

	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		msgType, raw, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Info().Err(err).Msg("connection closed unexpectedly")
			}
			return
		}

		if msgType != websocket.TextMessage {
			s.logger.Debug().Int("ws_message_type", msgType).Msg("ignoring non-text frame")
			continue
		}

		onFrame(raw)
	}
}

// WritePump drains the send queue to the peer and keeps the connection alive
// with pings. It closes the connection when it returns.
func (s *Socket) WritePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		if err := s.conn.Close(); err != nil {
			s.logger.Debug().Err(err).Msg("connection close error in WritePump")
		}
	}()

	for {
		select {
		case data := <-s.send:
			if !s.write(websocket.TextMessage, data) {
				s.Close()
				return
			}

		case <-ticker.C:
			if !s.write(websocket.PingMessage, nil) {
				s.Close()
				return
			}

		case <-s.done:
			s.flush()
			s.write(websocket.CloseMessage, websocket.FormatCloseMessage(s.closeCode, ""))
			return
		}
	}
}

// flush writes whatever is still queued, best effort.
func (s *Socket) flush() {
	for {
		select {
		case data := <-s.send:
			if !s.write(websocket.TextMessage, data) {
				return
			}
		default:
			return
		}
	}
}

func (s *Socket) write(msgType int, data []byte) bool {
	if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		s.logger.Error().Err(err).Msg("failed to set write deadline")
		return false
	}

	if err := s.conn.WriteMessage(msgType, data); err != nil {
		s.logger.Debug().Err(err).Int("ws_message_type", msgType).Msg("write failed")
		return false
	}
	return true
}
