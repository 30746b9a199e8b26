package broadcast

import (
	"context"
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 16
)

// ErrHubStopped is returned by Publish after Stop
var ErrHubStopped = errors.New("broadcast hub stopped")

// Client is one websocket subscriber of a trip
type Client struct {
	Conn   *websocket.Conn
	Send   chan []byte
	TripID string
}

type roomMessage struct {
	TripID string
	Data   []byte
}

// Hub keeps websocket clients grouped by trip id
type Hub struct {
	rooms      map[string]map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan roomMessage
	done       chan struct{}
	stopOnce   sync.Once
	mu         sync.Mutex
}

func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan roomMessage),
		done:       make(chan struct{}),
	}
}

// Run processes registrations and broadcasts until Stop
func (h *Hub) Run() {
	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			if h.rooms[c.TripID] == nil {
				h.rooms[c.TripID] = make(map[*Client]bool)
			}
			h.rooms[c.TripID][c] = true
			h.mu.Unlock()

		case c := <-h.unregister:
			h.mu.Lock()
			h.removeLocked(c)
			h.mu.Unlock()

		case m := <-h.broadcast:
			h.mu.Lock()
			for c := range h.rooms[m.TripID] {
				select {
				case c.Send <- m.Data:
				default:
					// slow client, drop it
					log.Printf("[BROADCAST] Dropping slow client: trip=%s", c.TripID)
					h.removeLocked(c)
				}
			}
			h.mu.Unlock()

		case <-h.done:
			h.mu.Lock()
			for _, clients := range h.rooms {
				for c := range clients {
					h.removeLocked(c)
				}
			}
			h.mu.Unlock()
			return
		}
	}
}

func (h *Hub) removeLocked(c *Client) {
	clients := h.rooms[c.TripID]
	if clients == nil || !clients[c] {
		return
	}
	delete(clients, c)
	close(c.Send)
	if len(clients) == 0 {
		delete(h.rooms, c.TripID)
	}
}

// Stop ends Run and closes every client's send channel
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

func (h *Hub) Close() error {
	h.Stop()
	return nil
}

// ClientCount returns the number of subscribers for a trip
func (h *Hub) ClientCount(tripID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rooms[tripID])
}

// Publish queues ev for every client watching ev.TripID
func (h *Hub) Publish(ctx context.Context, ev TripEvent) error {
	data, err := encodeEvent(ev)
	if err != nil {
		return err
	}
	select {
	case h.broadcast <- roomMessage{TripID: ev.TripID, Data: data}:
		return nil
	case <-h.done:
		return ErrHubStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// ServeWS upgrades the request and subscribes it to the trip named by the :id param
func ServeWS(hub *Hub) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		tripID := ps.ByName("id")
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("[BROADCAST] Upgrade failed: trip=%s err=%v", tripID, err)
			return
		}

		client := &Client{
			Conn:   conn,
			Send:   make(chan []byte, sendBuffer),
			TripID: tripID,
		}

		select {
		case hub.register <- client:
		case <-hub.done:
			conn.Close()
			return
		}
		log.Printf("[BROADCAST] Client subscribed: trip=%s remote=%s", tripID, r.RemoteAddr)

		go writePump(client)
		go readPump(client, hub)
	}
}

func writePump(c *Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, msg); err != nil {
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

// readPump only services control frames; subscribers never send data
func readPump(c *Client, hub *Hub) {
	defer func() {
		select {
		case hub.unregister <- c:
		case <-hub.done:
		}
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			return
		}
	}
}
