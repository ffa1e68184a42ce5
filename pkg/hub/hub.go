package hub

import (
	"context"
	"log/slog"
	"sync"

	"github.com/teslashibe/automatar/internal/log"
	"github.com/teslashibe/automatar/pkg/protocol"
)

// Hub maintains the set of active clients and broadcasts messages to them
type Hub struct {
	// Name for logging
	name string

	// Registered clients
	clients map[*Client]bool

	// Inbound messages to broadcast
	broadcast chan Message

	// Register requests from clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	// Client command handler, may be nil
	handler Handler

	// Mutex for client count (read-only access from outside)
	mu sync.RWMutex

	running bool
	done    chan struct{}

	log *slog.Logger
}

// New creates a new Hub
func New(name string) *Hub {
	return &Hub{
		name:       name,
		clients:    make(map[*Client]bool),
		broadcast:  make(chan Message, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		log:        log.With("component", "hub", "hub", name),
	}
}

// SetHandler installs the client command handler. Call before Run.
func (h *Hub) SetHandler(fn Handler) {
	h.handler = fn
}

// Run starts the hub's main loop and returns when ctx is cancelled.
// All remaining clients are disconnected on return.
func (h *Hub) Run(ctx context.Context) {
	h.mu.Lock()
	h.running = true
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		for client := range h.clients {
			delete(h.clients, client)
			client.close()
		}
		h.running = false
		h.mu.Unlock()
		close(h.done)
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			count := len(h.clients)
			h.mu.Unlock()
			h.log.Info("client connected", "clients", count)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.close()
			}
			count := len(h.clients)
			h.mu.Unlock()
			h.log.Info("client disconnected", "clients", count)

		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				if !client.trySend(message) {
					// slow client, drop it
					client.close()
					delete(h.clients, client)
					h.log.Warn("dropped slow client")
				}
			}
			h.mu.Unlock()
		}
	}
}

// Done is closed when Run returns
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

// Broadcast sends a message to all connected clients
func (h *Hub) Broadcast(msg Message) {
	select {
	case h.broadcast <- msg:
	default:
		h.log.Warn("broadcast channel full, dropping message")
	}
}

// BroadcastProtocol encodes and broadcasts a protocol message
func (h *Hub) BroadcastProtocol(msg *protocol.Message) error {
	data, err := msg.Bytes()
	if err != nil {
		return err
	}
	h.Broadcast(NewJSONMessage(data))
	return nil
}

// Publish builds a protocol message and broadcasts it, logging failures
func (h *Hub) Publish(t protocol.MessageType, data any) {
	msg, err := protocol.NewMessage(t, data)
	if err != nil {
		h.log.Error("encode message", "type", t, "error", err)
		return
	}
	if err := h.BroadcastProtocol(msg); err != nil {
		h.log.Error("broadcast message", "type", t, "error", err)
	}
}

// BroadcastBinary broadcasts binary data (e.g., camera frames)
func (h *Hub) BroadcastBinary(data []byte) {
	h.Broadcast(NewBinaryMessage(data))
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// IsRunning returns whether the hub is running
func (h *Hub) IsRunning() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.running
}

// handle dispatches one inbound frame to the command handler
func (h *Hub) handle(c *Client, data []byte) {
	msg, err := protocol.ParseMessage(data)
	if err != nil {
		h.log.Debug("ignoring malformed client message", "error", err)
		return
	}

	var reply *protocol.Message
	if msg.Type == protocol.TypePing {
		reply = pong(msg)
	} else if h.handler != nil {
		reply = h.handler(msg)
	}
	if reply == nil {
		return
	}

	raw, err := reply.Bytes()
	if err != nil {
		h.log.Error("encode reply", "error", err)
		return
	}
	c.trySend(NewJSONMessage(raw))
}

func pong(ping *protocol.Message) *protocol.Message {
	data, err := ping.GetPingData()
	if err != nil {
		return nil
	}
	ts := data.Timestamp
	if ts == 0 {
		ts = ping.Timestamp
	}
	reply, err := protocol.NewPongMessage(data.ID, ts, nowMillis())
	if err != nil {
		return nil
	}
	return reply
}
