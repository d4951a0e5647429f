package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 1024 * 1024 // 1MB

	// Outgoing messages buffered per connection
	sendBuffer = 256
)

// Message types the mirror sends to its own viewers
const (
	MirrorState = "STATE"
	MirrorToast = "TOAST"
	MirrorPong  = "pong"
)

// Client is one viewer connected to the local mirror
type Client struct {
	Hub  *Hub
	Conn *websocket.Conn
	Send chan []byte
	Name string
}

func NewClient(hub *Hub, conn *websocket.Conn, name string) *Client {
	return &Client{Hub: hub, Conn: conn, Send: make(chan []byte, sendBuffer), Name: name}
}

// ReadPump keeps the connection alive and answers pings until the viewer leaves.
// The mirror is read only so anything else is ignored.
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.Unregister(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Hub.log.WithError(err).WithField("client", c.Name).Warn("mirror websocket error")
			}
			break
		}

		var msg WebSocketMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			c.Hub.log.WithError(err).Debug("ignoring malformed mirror message")
			continue
		}
		if msg.Type != "ping" {
			continue
		}

		pong, err := encodeMessage(MirrorPong, map[string]string{"timestamp": time.Now().Format(time.RFC3339)})
		if err == nil {
			c.Hub.reply(c, pong)
		}
	}
}

// WritePump pumps messages from the hub to the WebSocket connection
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

type directMessage struct {
	client  *Client
	message []byte
}

// Hub fans mirror messages out to every connected viewer
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	count      chan chan int
	direct     chan directMessage
	done       chan struct{}
	log        *logrus.Entry
}

func NewHub(log *logrus.Entry) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		count:      make(chan chan int),
		direct:     make(chan directMessage),
		done:       make(chan struct{}),
		log:        log,
	}
}

func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		close(client.Send)
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Clients returns how many viewers are connected
func (h *Hub) Clients() int {
	reply := make(chan int, 1)
	select {
	case h.count <- reply:
		return <-reply
	case <-h.done:
		return 0
	}
}

// reply queues a message for a single viewer
func (h *Hub) reply(c *Client, message []byte) {
	select {
	case h.direct <- directMessage{client: c, message: message}:
	case <-h.done:
	}
}

// Broadcast sends a typed message to every viewer
func (h *Hub) Broadcast(msgType string, data any) {
	message, err := encodeMessage(msgType, data)
	if err != nil {
		h.log.WithError(err).WithField("type", msgType).Error("failed to encode mirror message")
		return
	}
	select {
	case h.broadcast <- message:
	case <-h.done:
	}
}

// Run starts the hub's main loop and closes every viewer when ctx ends
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			for client := range h.clients {
				close(client.Send)
				delete(h.clients, client)
			}
			mirrorClients.Set(0)
			return
		case client := <-h.register:
			h.clients[client] = true
			mirrorClients.Set(float64(len(h.clients)))
			h.log.WithField("client", client.Name).Info("mirror viewer connected")
		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.Send)
				mirrorClients.Set(float64(len(h.clients)))
				h.log.WithField("client", client.Name).Info("mirror viewer disconnected")
			}
		case reply := <-h.count:
			reply <- len(h.clients)
		case d := <-h.direct:
			if _, ok := h.clients[d.client]; ok {
				select {
				case d.client.Send <- d.message:
				default:
				}
			}
		case message := <-h.broadcast:
			for client := range h.clients {
				select {
				case client.Send <- message:
				default:
					// Client's send buffer is full, assume disconnected
					h.log.WithField("client", client.Name).Warn("mirror viewer too slow, dropping")
					close(client.Send)
					delete(h.clients, client)
				}
			}
		}
	}
}

func encodeMessage(msgType string, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(WebSocketMessage{Type: msgType, Data: raw})
}
