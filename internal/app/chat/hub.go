package chat

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"moodchat/internal/pkg/logx"
)

// HubConfig tunes a Hub.
type HubConfig struct {
	// PersistTimeout bounds one store write.
	PersistTimeout time.Duration

	// SendBuffer is the per-socket outbound queue length.
	SendBuffer int

	// DispatchQueue is the number of inbound frames that may wait for dispatch.
	DispatchQueue int
}

// Stats is a point-in-time view of the hub.
type Stats struct {
	Connections   int           `json:"connections"`
	Authenticated int           `json:"authenticated"`
	Dispatch      DispatchStats `json:"dispatch"`
}

// Hub owns the connection registry and the dispatch loop, and runs the
// lifecycle of every accepted socket.
type Hub struct {
	registry   *Registry
	dispatcher *Dispatcher
	sendBuffer int

	ctx    context.Context
	cancel context.CancelFunc

	// mu guards closed so no socket is added to wg once Shutdown waits on it.
	mu     sync.Mutex
	closed bool

	// wg tracks the dispatch loop and every served socket.
	wg sync.WaitGroup

	logger zerolog.Logger
}

// NewHub builds a hub over store and starts its dispatch loop.
func NewHub(store MessageStore, cfg HubConfig) *Hub {
	ctx, cancel := context.WithCancel(context.Background())

	registry := NewRegistry()
	h := &Hub{
		registry:   registry,
		dispatcher: NewDispatcher(registry, store, cfg.PersistTimeout, cfg.DispatchQueue),
		sendBuffer: cfg.SendBuffer,
		ctx:        ctx,
		cancel:     cancel,
		logger:     logx.Component("hub"),
	}

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		h.dispatcher.Run(ctx)
	}()

	return h
}

// Serve admits conn and blocks until it closes. The socket is removed from
// the registry before Serve returns.
func (h *Hub) Serve(conn *websocket.Conn) {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		h.logger.Debug().Msg("rejecting socket, hub is shut down")
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, ""), time.Now().Add(writeWait))
		_ = conn.Close()
		return
	}
	h.wg.Add(1)
	h.mu.Unlock()
	defer h.wg.Done()

	socket := NewSocket(conn, h.sendBuffer, h.logger)
	c := h.registry.Admit(socket)
	socket.logger = c.Logger()

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		socket.WritePump()
	}()

	stop := context.AfterFunc(h.ctx, func() { socket.Close() })
	defer stop()

	socket.ReadPump(func(raw []byte) {
		h.dispatcher.Submit(h.ctx, c, raw)
	})

	h.registry.Remove(c)
	socket.Close()
	<-writerDone
}

// Stats returns current connection and dispatch counters.
func (h *Hub) Stats() Stats {
	return Stats{
		Connections:   h.registry.Len(),
		Authenticated: h.registry.Authenticated(),
		Dispatch:      h.dispatcher.Stats(),
	}
}

// Shutdown stops the dispatch loop, closes every socket with 1001 (going
// away) so clients reconnect elsewhere, and waits until all of them are gone
// or ctx ends.
func (h *Hub) Shutdown(ctx context.Context) error {
	h.logger.Info().Int("connections", h.registry.Len()).Msg("shutting down hub")

	h.mu.Lock()
	h.closed = true
	h.mu.Unlock()
	h.cancel()

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		h.logger.Info().Msg("hub shutdown complete")
		return nil
	case <-ctx.Done():
		h.logger.Warn().Int("connections", h.registry.Len()).Msg("hub shutdown timed out")
		return ctx.Err()
	}
}
