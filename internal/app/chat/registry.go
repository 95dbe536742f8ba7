/*
Package chat is the server side of the real-time chat: the registry of live
sockets, the dispatcher that persists and broadcasts messages, and the
WebSocket pumps that connect the two.
*/
package chat

import (
	"sync"

	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"moodchat/internal/pkg/logx"
	"moodchat/internal/pkg/randx"
)

// Transport is the outbound side of one live socket.
type Transport interface {
	// Send queues data for delivery. It must not block; a transport that
	// cannot accept data returns an error instead.
	Send(data []byte) error

	// Close tears the socket down. Safe to call more than once.
	Close() error
}

// Connection is the registry's handle for one socket. It starts
// unauthenticated and becomes bound to a user by an auth frame.
type Connection struct {
	id        string
	transport Transport

	mu     sync.RWMutex
	userID string
	authed bool

	logger zerolog.Logger
}

// ID returns the connection id assigned at admission.
func (c *Connection) ID() string { return c.id }

// Identity returns the bound user id and whether an auth frame was seen.
func (c *Connection) Identity() (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.userID, c.authed
}

// Logger returns the connection-scoped logger.
func (c *Connection) Logger() zerolog.Logger {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.logger
}

// Registry tracks every live connection. All methods are safe for
// concurrent use.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]*Connection

	logger zerolog.Logger
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		conns:  make(map[string]*Connection),
		logger: logx.Component("registry"),
	}
}

// Admit registers transport as a new unauthenticated connection.
func (r *Registry) Admit(t Transport) *Connection {
	id := randx.ConnectionID()
	c := &Connection{
		id:        id,
		transport: t,
		logger:    r.logger.With().Str("conn_id", id).Logger(),
	}

	r.mu.Lock()
	r.conns[id] = c
	total := len(r.conns)
	r.mu.Unlock()

	r.logger.Debug().Str("conn_id", id).Int("connections", total).Msg("connection admitted")
	return c
}

// Bind marks c as authenticated as userID. Binding again overwrites the
// previous identity.
func (r *Registry) Bind(c *Connection, userID string) {
	c.mu.Lock()
	previous := c.userID
	c.userID = userID
	c.authed = true
	c.logger = c.logger.With().Str("user_id", userID).Logger()
	logger := c.logger
	c.mu.Unlock()

	if previous != "" && previous != userID {
		logger.Warn().Str("previous_user_id", previous).Msg("connection re-bound to a different user")
		return
	}
	logger.Debug().Msg("connection authenticated")
}

// Remove drops c from the registry and reports whether it was present.
// Removing an unknown or already removed connection is a no-op.
func (r *Registry) Remove(c *Connection) bool {
	r.mu.Lock()
	current, ok := r.conns[c.id]
	if ok && current == c {
		delete(r.conns, c.id)
	}
	total := len(r.conns)
	r.mu.Unlock()

	if ok {
		l := c.Logger()
		l.Debug().Int("connections", total).Msg("connection removed")
	}
	return ok
}

// Contains reports whether c is still registered.
func (r *Registry) Contains(c *Connection) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.conns[c.id] == c
}

// ForEach calls fn for every registered connection, authenticated or not.
// fn runs without the registry lock held, so it may Remove connections;
// a connection removed before its turn is skipped.
func (r *Registry) ForEach(fn func(c *Connection)) {
	r.mu.RLock()
	snapshot := lo.Values(r.conns)
	r.mu.RUnlock()

	for _, c := range snapshot {
		if !r.Contains(c) {
			continue
		}
		fn(c)
	}
}

// Len returns the number of registered connections.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// Authenticated returns how many registered connections are bound to a user.
func (r *Registry) Authenticated() int {
	r.mu.RLock()
	snapshot := lo.Values(r.conns)
	r.mu.RUnlock()

	return lo.CountBy(snapshot, func(c *Connection) bool {
		_, ok := c.Identity()
		return ok
	})
}
