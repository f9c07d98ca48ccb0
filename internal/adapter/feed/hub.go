package feed

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/Jamarblack/Degen-Arena/internal/adapter/http/dto"
	"github.com/Jamarblack/Degen-Arena/internal/core/domain"
	"github.com/Jamarblack/Degen-Arena/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBufferSize = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The UI is served from a different origin than the API.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Message is the frame pushed to feed subscribers.
type Message struct {
	Type       domain.WagerEventType `json:"type"`
	Wager      dto.WagerResponse     `json:"wager"`
	OccurredAt string                `json:"occurred_at"`
}

type client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	bettor string
}

func (c *client) wants(ev domain.WagerEvent) bool {
	return c.bettor == "" || c.bettor == ev.Wager.BettorAddress
}

// Hub relays wager events from the event bus to websocket clients.
type Hub struct {
	bus        ports.EventBus
	clients    map[*client]bool
	register   chan *client
	unregister chan *client
	done       chan struct{}
	mu         sync.RWMutex
	log        zerolog.Logger
}

// NewHub creates a hub. Run must be started before clients connect.
func NewHub(bus ports.EventBus, log zerolog.Logger) *Hub {
	return &Hub{
		bus:        bus,
		clients:    make(map[*client]bool),
		register:   make(chan *client),
		unregister: make(chan *client),
		done:       make(chan struct{}),
		log:        log.With().Str("component", "feed").Logger(),
	}
}

// Run subscribes to the bus and fans events out until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) error {
	defer close(h.done)

	events, err := h.bus.Subscribe(ctx)
	if err != nil {
		return err
	}
	h.log.Info().Msg("feed hub subscribed to wager events")

	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				close(c.send)
				delete(h.clients, c)
			}
			h.mu.Unlock()
			return nil

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			total := len(h.clients)
			h.mu.Unlock()
			h.log.Debug().Int("total_clients", total).Msg("feed client connected")

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			total := len(h.clients)
			h.mu.Unlock()
			h.log.Debug().Int("total_clients", total).Msg("feed client disconnected")

		case ev, ok := <-events:
			if !ok {
				h.log.Warn().Msg("event subscription closed")
				events = nil
				continue
			}
			h.broadcast(ev)
		}
	}
}

func (h *Hub) broadcast(ev domain.WagerEvent) {
	data, err := json.Marshal(Message{
		Type:       ev.Type,
		Wager:      dto.NewWagerResponse(&ev.Wager),
		OccurredAt: ev.OccurredAt.UTC().Format(time.RFC3339),
	})
	if err != nil {
		h.log.Error().Err(err).Msg("failed to encode feed message")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		if !c.wants(ev) {
			continue
		}
		select {
		case c.send <- data:
		default:
			h.log.Warn().Str("wager_id", ev.Wager.ID.String()).Msg("dropping feed message for slow client")
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Serve handles GET /api/v1/feed. An optional ?bettor= narrows the stream
// to one wallet.
func (h *Hub) Serve(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("feed upgrade failed")
		return
	}

	cl := &client{
		hub:    h,
		conn:   conn,
		send:   make(chan []byte, sendBufferSize),
		bettor: c.Query("bettor"),
	}

	select {
	case h.register <- cl:
	case <-h.done:
		conn.Close()
		return
	}

	go cl.writePump()
	go cl.readPump()
}

// readPump only services control frames; clients do not send data.
func (c *client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.log.Debug().Err(err).Msg("feed client closed unexpectedly")
			}
			return
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
