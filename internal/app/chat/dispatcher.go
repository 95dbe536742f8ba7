package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"moodchat/internal/app/message"
	"moodchat/internal/pkg/logx"
)

//go:generate mockgen -destination=mocks/mock_store.go -package=mocks moodchat/internal/app/chat MessageStore

// MessageStore persists chat messages and assigns their id and timestamp.
type MessageStore interface {
	CreateChatMessage(ctx context.Context, arg message.NewChatMessage) (message.ChatMessage, error)
}

// MaxContentLength bounds the content of a single chat message, in characters.
const MaxContentLength = 5000

// chatInput is the validated part of a chat_message frame. Content length is
// checked separately against MaxContentLength.
type chatInput struct {
	Content     string       `validate:"required"`
	MessageType message.Type `validate:"oneof=text voice file"`
}

var (
	validate    = validator.New()
	contentRule = fmt.Sprintf("max=%d", MaxContentLength)
)

// inbound is one raw frame waiting in the dispatch queue.
type inbound struct {
	conn *Connection
	raw  []byte
}

// DispatchStats counts dispatcher outcomes since start.
type DispatchStats struct {
	Persisted  int64
	Dropped    int64
	Deliveries int64
	Evictions  int64
}

// Dispatcher interprets inbound frames. Chat frames are persisted and then
// fanned out to every registered connection; persist and broadcast of one
// frame never interleave with another frame's.
type Dispatcher struct {
	registry       *Registry
	store          MessageStore
	persistTimeout time.Duration

	// mu makes Dispatch the single serialization point.
	mu    sync.Mutex
	queue chan inbound

	persisted  atomic.Int64
	dropped    atomic.Int64
	deliveries atomic.Int64
	evictions  atomic.Int64

	logger zerolog.Logger
}

// NewDispatcher returns a dispatcher writing to store and broadcasting over
// registry. queueSize bounds frames waiting for Run.
func NewDispatcher(registry *Registry, store MessageStore, persistTimeout time.Duration, queueSize int) *Dispatcher {
	return &Dispatcher{
		registry:       registry,
		store:          store,
		persistTimeout: persistTimeout,
		queue:          make(chan inbound, queueSize),
		logger:         logx.Component("dispatcher"),
	}
}

// Submit queues a raw frame from conn for Run. It blocks while the queue is
// full, which applies back-pressure to that connection's reader only, and
// gives up when ctx ends.
func (d *Dispatcher) Submit(ctx context.Context, conn *Connection, raw []byte) bool {
	select {
	case d.queue <- inbound{conn: conn, raw: raw}:
		return true
	case <-ctx.Done():
		return false
	}
}

// Run drains the queue until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) {
	d.logger.Info().Msg("dispatch loop started")
	defer d.logger.Info().Msg("dispatch loop stopped")

	for {
		select {
		case <-ctx.Done():
			return
		case in := <-d.queue:
			d.HandleRaw(ctx, in.conn, in.raw)
		}
	}
}

// HandleRaw decodes raw and dispatches it. Malformed frames are logged and
// discarded; the connection stays open.
func (d *Dispatcher) HandleRaw(ctx context.Context, conn *Connection, raw []byte) {
	frame, err := message.DecodeInbound(raw)
	if err != nil {
		logger := conn.Logger()
		logger.Warn().Err(err).Int("bytes", len(raw)).Msg("client sent invalid JSON")
		return
	}

	d.Dispatch(ctx, conn, frame)
}

// Dispatch applies one frame from conn:
//   - auth binds conn to frame.UserID;
//   - chat_message persists a message from conn's bound user and broadcasts
//     it to every connection, the sender included;
//   - anything else is ignored.
//
// Nothing is ever reported back to the sender.
func (d *Dispatcher) Dispatch(ctx context.Context, conn *Connection, frame message.InboundFrame) {
	d.mu.Lock()
	defer d.mu.Unlock()

	switch frame.Type {
	case message.FrameAuth:
		d.registry.Bind(conn, frame.UserID)

	case message.FrameChat:
		d.handleChat(ctx, conn, frame)

	default:
		logger := conn.Logger()
		logger.Debug().Str("frame_type", string(frame.Type)).Msg("ignoring unsupported frame type")
	}
}

func (d *Dispatcher) handleChat(ctx context.Context, conn *Connection, frame message.InboundFrame) {
	logger := conn.Logger()

	input := chatInput{Content: frame.Content, MessageType: frame.MessageType.OrDefault()}
	err := validate.Struct(input)
	if err == nil {
		err = validate.Var(input.Content, contentRule)
	}
	if err != nil {
		d.dropped.Add(1)
		logger.Warn().Err(err).Str("message_type", string(input.MessageType)).Msg("dropping invalid chat frame")
		return
	}

	// Unauthenticated connections send with an empty sender; the store rejects it.
	senderID, _ := conn.Identity()

	persistCtx, cancel := context.WithTimeout(ctx, d.persistTimeout)
	defer cancel()

	stored, err := d.store.CreateChatMessage(persistCtx, message.NewChatMessage{
		Content:     input.Content,
		SenderID:    senderID,
		MessageType: input.MessageType,
	})
	if err != nil {
		d.dropped.Add(1)
		logger.Error().Err(err).Msg("failed to persist chat message, dropping it")
		return
	}
	d.persisted.Add(1)

	d.broadcast(stored)
}

// broadcast sends a new_message event to every registered connection. A
// connection whose transport refuses the event is evicted so a slow reader
// cannot hold up the others.
func (d *Dispatcher) broadcast(m message.ChatMessage) {
	payload, err := json.Marshal(message.NewMessageEvent(m))
	if err != nil {
		d.logger.Error().Err(err).Int64("message_id", m.ID).Msg("failed to encode new_message event")
		return
	}

	delivered := 0
	d.registry.ForEach(func(c *Connection) {
		if err := c.transport.Send(payload); err != nil {
			d.evict(c, err)
			return
		}
		delivered++
	})

	d.deliveries.Add(int64(delivered))
	d.logger.Debug().Int64("message_id", m.ID).Int("recipients", delivered).Msg("message broadcast")
}

func (d *Dispatcher) evict(c *Connection, cause error) {
	if !d.registry.Remove(c) {
		return
	}
	d.evictions.Add(1)

	logger := c.Logger()
	if errors.Is(cause, ErrSendQueueFull) {
		logger.Warn().Msg("send queue full, evicting slow connection")
	} else {
		logger.Info().Err(cause).Msg("send failed, evicting connection")
	}

	if err := c.transport.Close(); err != nil {
		logger.Debug().Err(err).Msg("close after eviction failed")
	}
}

// Stats returns the dispatcher counters.
func (d *Dispatcher) Stats() DispatchStats {
	return DispatchStats{
		Persisted:  d.persisted.Load(),
		Dropped:    d.dropped.Load(),
		Deliveries: d.deliveries.Load(),
		Evictions:  d.evictions.Load(),
	}
}
