package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/simaogato/tradejournal-backend/internal/logger"
	"github.com/simaogato/tradejournal-backend/internal/usecase/dashboard"
)

const writeWait = 5 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Hub pushes every dashboard summary to the connected websocket clients
type Hub struct {
	dashboard *dashboard.DashboardService
	clients   map[*websocket.Conn]bool
	broadcast chan []byte
	lock      sync.Mutex
}

// NewHub creates a hub fed by dashboardService
func NewHub(dashboardService *dashboard.DashboardService) *Hub {
	return &Hub{
		dashboard: dashboardService,
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan []byte, 16),
	}
}

// Run forwards summaries to the clients until ctx ends
func (h *Hub) Run(ctx context.Context) {
	cancel := h.dashboard.Subscribe(func(s dashboard.Summary) {
		msg, err := encodeSummary(s)
		if err != nil {
			logger.Error("Failed to encode summary: %v", err)
			return
		}
		h.Broadcast(msg)
	})
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case message := <-h.broadcast:
			h.lock.Lock()
			for client := range h.clients {
				client.SetWriteDeadline(time.Now().Add(writeWait))
				if err := client.WriteMessage(websocket.TextMessage, message); err != nil {
					client.Close()
					delete(h.clients, client)
				}
			}
			h.lock.Unlock()
		}
	}
}

// Broadcast queues msg for every client; when the queue is full the oldest
// message is dropped, since each summary supersedes the previous one.
func (h *Hub) Broadcast(msg []byte) {
	for {
		select {
		case h.broadcast <- msg:
			return
		default:
		}
		select {
		case <-h.broadcast:
		default:
		}
	}
}

// ServeWS upgrades the request and sends the current summary right away
// GET /api/v1/ws
func (h *Hub) ServeWS(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Error("WS upgrade error: %v", err)
		return
	}

	msg, err := encodeSummary(h.dashboard.Summary())
	if err != nil {
		logger.Error("Failed to encode summary: %v", err)
		conn.Close()
		return
	}

	h.lock.Lock()
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
		h.lock.Unlock()
		conn.Close()
		return
	}
	h.clients[conn] = true
	h.lock.Unlock()

	go h.readUntilClosed(conn)
}

// readUntilClosed drains client frames so close messages are noticed
func (h *Hub) readUntilClosed(conn *websocket.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			h.lock.Lock()
			if h.clients[conn] {
				delete(h.clients, conn)
				conn.Close()
			}
			h.lock.Unlock()
			return
		}
	}
}

// Clients returns the number of connected clients
func (h *Hub) Clients() int {
	h.lock.Lock()
	defer h.lock.Unlock()
	return len(h.clients)
}

func (h *Hub) closeAll() {
	h.lock.Lock()
	defer h.lock.Unlock()
	for client := range h.clients {
		client.Close()
		delete(h.clients, client)
	}
}

func encodeSummary(s dashboard.Summary) ([]byte, error) {
	return json.Marshal(summaryView(s))
}
