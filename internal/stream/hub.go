package stream

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/x402labs/x402gate/internal/model"
	"github.com/x402labs/x402gate/internal/pkg/logger"
)

const (
	writeTimeout    = 5 * time.Second
	pingPeriod      = 15 * time.Second
	clientQueueSize = 32
)

// Event is one settlement progress notification pushed to subscribers.
type Event struct {
	Type    string                 `json:"type"` // step or status
	OrderID string                 `json:"order_id"`
	Status  model.SettlementStatus `json:"status,omitempty"`
	Step    *model.SettlementStep  `json:"step,omitempty"`
	At      time.Time              `json:"at"`
}

type client struct {
	conn    *websocket.Conn
	send    chan Event
	orderID string // empty means all orders
}

// Hub fans settlement events out to websocket subscribers. Slow clients
// are dropped rather than allowed to back-pressure the executor.
type Hub struct {
	mu       sync.RWMutex
	clients  map[*client]struct{}
	events   chan Event
	ctx      context.Context
	cancel   context.CancelFunc
	upgrader websocket.Upgrader
}

func NewHub() *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		clients: make(map[*client]struct{}),
		events:  make(chan Event, 256),
		ctx:     ctx,
		cancel:  cancel,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// Start launches the broadcast loop in a background goroutine
func (h *Hub) Start() {
	go h.runLoop()
}

func (h *Hub) Stop() {
	h.cancel()
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		close(c.send)
		_ = c.conn.Close()
	}
	h.clients = make(map[*client]struct{})
}

// PublishStep implements settlement.EventSink.
func (h *Hub) PublishStep(orderID string, step model.SettlementStep) {
	h.publish(Event{Type: "step", OrderID: orderID, Status: step.Status, Step: &step, At: time.Now().UTC()})
}

// PublishStatus implements settlement.EventSink.
func (h *Hub) PublishStatus(orderID string, status model.SettlementStatus) {
	h.publish(Event{Type: "status", OrderID: orderID, Status: status, At: time.Now().UTC()})
}

func (h *Hub) publish(ev Event) {
	select {
	case h.events <- ev:
	default:
		logger.Warn("stream event queue full, dropping event", "order_id", ev.OrderID)
	}
}

func (h *Hub) runLoop() {
	for {
		select {
		case <-h.ctx.Done():
			return
		case ev := <-h.events:
			h.mu.RLock()
			for c := range h.clients {
				if c.orderID != "" && c.orderID != ev.OrderID {
					continue
				}
				select {
				case c.send <- ev:
				default:
					// client too slow, detach it
					go h.detach(c)
				}
			}
			h.mu.RUnlock()
		}
	}
}

// ServeWS upgrades the request and registers the subscriber. An
// optional order_id query filters events to a single order.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	c := &client{
		conn:    conn,
		send:    make(chan Event, clientQueueSize),
		orderID: r.URL.Query().Get("order_id"),
	}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	go h.writeLoop(c)
	go h.readLoop(c)
}

func (h *Hub) writeLoop(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case ev, ok := <-c.send:
			if !ok {
				return
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteJSON(ev); err != nil {
				h.detach(c)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.detach(c)
				return
			}
		}
	}
}

// readLoop drains and discards client frames so pongs and close frames
// are processed.
func (h *Hub) readLoop(c *client) {
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			h.detach(c)
			return
		}
	}
}

func (h *Hub) detach(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
	_ = c.conn.Close()
}
