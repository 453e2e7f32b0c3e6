// Package channel delivers outbound activities to webchat clients. A Hub
// keyed by conversation id holds one websocket writer per conversation and
// buffers activities sent before the client attaches.
package channel

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/thamiris-ramos/BotServer/internal/bot"
)

// pendingCap bounds how many activities a conversation may accumulate before
// a client attaches. Beyond it the oldest are dropped.
const pendingCap = 32

// jsonWriter is the subset of *websocket.Conn the hub needs.
type jsonWriter interface {
	WriteJSON(v any) error
}

type Hub struct {
	logger *log.Logger

	mu      sync.Mutex
	conns   map[string]*client
	pending map[string][]bot.Activity
}

// client pairs a writer with the mutex that serializes writes to it. The
// websocket package allows only one concurrent writer per connection, so
// every WriteJSON happens under wmu.
type client struct {
	wmu  sync.Mutex
	conn jsonWriter
}

func NewHub(logger *log.Logger) *Hub {
	if logger == nil {
		logger = log.Default()
	}
	return &Hub{
		logger:  logger,
		conns:   make(map[string]*client),
		pending: make(map[string][]bot.Activity),
	}
}

// Attach binds a writer to a conversation and flushes anything buffered for
// it. A second attach for the same conversation replaces the first.
func (h *Hub) Attach(conversationID string, conn jsonWriter) error {
	if strings.TrimSpace(conversationID) == "" {
		return errors.New("conversation id is required")
	}
	if conn == nil {
		return errors.New("connection is required")
	}

	c := &client{conn: conn}
	h.mu.Lock()
	h.conns[conversationID] = c
	buffered := h.pending[conversationID]
	delete(h.pending, conversationID)
	h.mu.Unlock()

	c.wmu.Lock()
	defer c.wmu.Unlock()
	for _, activity := range buffered {
		if err := c.conn.WriteJSON(activity); err != nil {
			h.detach(conversationID, c)
			return fmt.Errorf("flush buffered activity: %w", err)
		}
	}
	return nil
}

func (h *Hub) Detach(conversationID string) {
	h.mu.Lock()
	delete(h.conns, conversationID)
	h.mu.Unlock()
}

// detach removes the conversation's client only if it is still c, so a stale
// writer's failure never detaches a replacement attach.
func (h *Hub) detach(conversationID string, c *client) {
	h.mu.Lock()
	if h.conns[conversationID] == c {
		delete(h.conns, conversationID)
	}
	h.mu.Unlock()
}

// SendActivity writes the activity to the conversation's client, or buffers
// it when no client is attached yet.
func (h *Hub) SendActivity(_ context.Context, conversationID string, activity bot.Activity) error {
	h.mu.Lock()
	c, attached := h.conns[conversationID]
	if !attached {
		buf := h.pending[conversationID]
		if len(buf) >= pendingCap {
			buf = buf[1:]
			h.logger.Printf("pending buffer full conversation_id=%s dropping oldest", conversationID)
		}
		h.pending[conversationID] = append(buf, activity)
		h.mu.Unlock()
		return nil
	}
	h.mu.Unlock()

	c.wmu.Lock()
	err := c.conn.WriteJSON(activity)
	c.wmu.Unlock()
	if err != nil {
		h.detach(conversationID, c)
		return fmt.Errorf("write activity: %w", err)
	}
	return nil
}
