// Package websocket carries the realtime interview stream: one client per
// connected candidate, a hub tracking live connections, and the read/write
// pumps around a gorilla/websocket connection.
package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// ErrClientClosed is returned by SendJSON once the client has been
// unregistered from the hub.
var ErrClientClosed = errors.New("websocket: client closed")

type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte
	mu         sync.RWMutex
}

type Client struct {
	Hub            *Hub
	Conn           *websocket.Conn
	Send           chan []byte
	UserID         string
	SessionID      string
	MessageHandler func(*Client, []byte)

	// mu guards closed so an action goroutine still emitting events cannot
	// write to Send after the hub has closed it.
	mu     sync.Mutex
	closed bool
	ctx    context.Context
	cancel context.CancelFunc
}

// Context is canceled when the client is unregistered, so work started on
// behalf of this connection stops when the candidate disconnects.
func (c *Client) Context() context.Context {
	return c.ctx
}

// shutdown marks the client closed, cancels its context, and closes the send
// channel. Safe to call more than once.
func (c *Client) shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.cancel()
	close(c.Send)
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			slog.Info("Client registered", "user_id", client.UserID, "session_id", client.SessionID)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.shutdown()
			}
			h.mu.Unlock()
			slog.Info("Client unregistered", "user_id", client.UserID, "session_id", client.SessionID)

		case message := <-h.broadcast:
			h.mu.RLock()
			for client := range h.clients {
				select {
				case client.Send <- message:
				default:
					client.shutdown()
					delete(h.clients, client)
				}
			}
			h.mu.RUnlock()
		}
	}
}

// RegisterClient attaches a connection to the hub for one interview session.
func (h *Hub) RegisterClient(conn *websocket.Conn, userID, sessionID string) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	client := &Client{
		Hub:       h,
		Conn:      conn,
		Send:      make(chan []byte, 256),
		UserID:    userID,
		SessionID: sessionID,
		ctx:       ctx,
		cancel:    cancel,
	}

	h.register <- client
	return client
}

// SendJSON queues a JSON-encoded payload for the write pump. A full send
// buffer drops the message rather than blocking the caller. Once the client
// has been unregistered it returns ErrClientClosed instead of writing.
func (c *Client) SendJSON(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClientClosed
	}
	select {
	case c.Send <- data:
	default:
		slog.Warn("Dropping message, send buffer full", "session_id", c.SessionID)
	}
	return nil
}

func (c *Client) ReadPump() {
	defer func() {
		c.Hub.unregister <- c
		c.Conn.Close()
	}()

	// Answers are text; 64KB is generous for a single action payload.
	c.Conn.SetReadLimit(64 * 1024)
	c.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, messageBytes, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Error("WebSocket error", "error", err)
			}
			break
		}

		if c.MessageHandler != nil {
			go c.MessageHandler(c, messageBytes)
		} else {
			slog.Warn("No message handler configured", "session_id", c.SessionID)
		}
	}
}

func (c *Client) WritePump() {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
