package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxMessageSize = 1024
	sendBuffer     = 256
)

type Message struct {
	Type    string      `json:"type"`
	Content interface{} `json:"content"`
}

type Client struct {
	hub       *Hub
	conn      *websocket.Conn
	send      chan []byte
	adminID   uint
	username  string
	mu        sync.Mutex
	isClosing bool
}

// Hub fans events out to connected admin clients. Every client is
// authenticated before it is registered.
type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
	}
}

func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			log.Debug().Uint("admin_id", client.adminID).Str("username", client.username).Msg("websocket client connected")

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				log.Debug().Uint("admin_id", client.adminID).Str("username", client.username).Msg("websocket client disconnected")
			}
			h.mu.Unlock()
		}
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// BroadcastToAdmins never blocks; slow clients miss messages.
func (h *Hub) BroadcastToAdmins(messageType string, content interface{}) {
	data, err := json.Marshal(Message{Type: messageType, Content: content})
	if err != nil {
		log.Error().Err(err).Str("type", messageType).Msg("encode websocket message")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients {
		select {
		case client.send <- data:
		default:
			log.Warn().Str("username", client.username).Msg("websocket client too slow, message dropped")
		}
	}
}

func (client *Client) HandleClientConnection(ctx context.Context) {
	select {
	case client.hub.register <- client:
	case <-ctx.Done():
		client.conn.Close()
		return
	}

	go client.writePump()
	client.readPump(ctx)
}

func (client *Client) readPump(ctx context.Context) {
	defer func() {
		client.mu.Lock()
		client.isClosing = true
		client.mu.Unlock()
		select {
		case client.hub.unregister <- client:
		case <-ctx.Done():
		}
		client.conn.Close()
	}()

	client.conn.SetReadLimit(maxMessageSize)
	client.conn.SetReadDeadline(time.Now().Add(pongWait))
	client.conn.SetPongHandler(func(string) error {
		client.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Warn().Err(err).Str("username", client.username).Msg("websocket read")
			}
			return
		}
	}
}

func (client *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		client.mu.Lock()
		if !client.isClosing {
			client.conn.Close()
		}
		client.mu.Unlock()
	}()

	for {
		select {
		case message, ok := <-client.send:
			client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				client.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := client.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
