package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	maxMsgSize = 4 * 1024
	sendBuffer = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Message is the envelope pushed to subscribers.
type Message struct {
	Type    string `json:"type"`
	Channel string `json:"channel"`
	Event   string `json:"event"`
	Payload any    `json:"payload,omitempty"`
}

func Encode(channel, event string, payload any) ([]byte, error) {
	return json.Marshal(Message{
		Type:    "broadcast",
		Channel: channel,
		Event:   event,
		Payload: payload,
	})
}

type connection struct {
	profileID string
	conn      *websocket.Conn
	send      chan []byte
	channels  map[string]bool
	canJoin   func(channel string) bool
}

// Hub fans channel messages out to the websocket subscribers of this
// process. It also serves as the in-process broadcaster when no Redis is
// configured.
type Hub struct {
	mu          sync.RWMutex
	connections map[*connection]struct{}
}

func NewHub() *Hub {
	return &Hub{
		connections: make(map[*connection]struct{}),
	}
}

func (h *Hub) register(c *connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.connections[c] = struct{}{}
}

func (h *Hub) unregister(c *connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.connections[c]; ok {
		delete(h.connections, c)
		close(c.send)
	}
}

// Publish delivers an event to the local subscribers of channel.
func (h *Hub) Publish(_ context.Context, channel, event string, payload any) error {
	data, err := Encode(channel, event, payload)
	if err != nil {
		return err
	}
	h.Deliver(channel, data)
	return nil
}

// Deliver sends an encoded message to every subscriber of channel. Slow
// clients whose buffer is full miss the message.
func (h *Hub) Deliver(channel string, data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.connections {
		if !c.channels[channel] {
			continue
		}
		select {
		case c.send <- data:
		default:
		}
	}
}

// Subscribers counts local connections listening on channel.
func (h *Hub) Subscribers(channel string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for c := range h.connections {
		if c.channels[channel] {
			n++
		}
	}
	return n
}

// ServeWS subscribes conn to the initial channels and runs its read and
// write loops. It blocks until the client disconnects. canJoin guards
// later subscribe requests.
func (h *Hub) ServeWS(conn *websocket.Conn, profileID string, initial []string, canJoin func(string) bool) {
	c := &connection{
		profileID: profileID,
		conn:      conn,
		send:      make(chan []byte, sendBuffer),
		channels:  make(map[string]bool),
		canJoin:   canJoin,
	}
	for _, ch := range initial {
		c.channels[ch] = true
	}

	h.register(c)

	go h.writePump(c)
	h.readPump(c)
}

func (h *Hub) readPump(c *connection) {
	defer func() {
		h.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMsgSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			break
		}

		var req struct {
			Type    string `json:"type"`
			Channel string `json:"channel"`
		}
		if err := json.Unmarshal(msg, &req); err != nil {
			continue
		}

		switch req.Type {
		case "subscribe":
			if c.canJoin != nil && !c.canJoin(req.Channel) {
				continue
			}
			h.mu.Lock()
			c.channels[req.Channel] = true
			h.mu.Unlock()
		case "unsubscribe":
			h.mu.Lock()
			delete(c.channels, req.Channel)
			h.mu.Unlock()
		}
	}
}

func (h *Hub) writePump(c *connection) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Close drops every connection.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.connections {
		delete(h.connections, c)
		close(c.send)
	}
}
