// Package hub fans queue snapshots out to waiting-room display clients over
// websockets. Delivery is best effort: a client that cannot keep up loses
// messages, never the queue.
package hub

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/Anandtech09/reception-prime-queue/internal/model"
	"github.com/Anandtech09/reception-prime-queue/pkg/messaging"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	sendBufferSize = 16
)

type Client struct {
	ID   string
	Send chan []byte
}

type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
	logger  zerolog.Logger

	upgrader websocket.Upgrader
}

func New(logger zerolog.Logger) *Hub {
	return &Hub{
		clients: make(map[string]*Client),
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// The display runs on the same origin as the API; there is no
			// auth layer to protect, so cross origin is allowed.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client.ID] = client
}

func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client.ID]; !ok {
		return
	}
	delete(h.clients, client.ID)
	close(client.Send)
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// BroadcastState pushes a snapshot to every connected display in the same
// envelope the sync channel uses.
func (h *Hub) BroadcastState(snap *model.Snapshot) {
	payload, err := json.Marshal(messaging.Message{
		Type:  messaging.MessageTypeStateUpdate,
		State: snap,
	})
	if err != nil {
		return
	}
	h.Broadcast(payload)
}

func (h *Hub) Broadcast(payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, client := range h.clients {
		select {
		case client.Send <- payload:
		default:
			h.logger.Debug().Str("client_id", client.ID).Msg("dropping message for slow display client")
		}
	}
}

// ServeWS upgrades the request and keeps the connection fed until the
// client goes away.
func (h *Hub) ServeWS(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := &Client{
		ID:   uuid.NewString(),
		Send: make(chan []byte, sendBufferSize),
	}
	h.Register(client)
	h.logger.Info().Str("client_id", client.ID).Msg("display client connected")

	go h.writePump(client, conn)
	go h.readPump(client, conn)
}

func (h *Hub) writePump(client *Client, conn *websocket.Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case payload, ok := <-client.Send:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump discards inbound frames; displays only listen. It exists to
// notice disconnects and service pongs.
func (h *Hub) readPump(client *Client, conn *websocket.Conn) {
	defer func() {
		h.Unregister(client)
		conn.Close()
		h.logger.Info().Str("client_id", client.ID).Msg("display client disconnected")
	}()

	conn.SetReadLimit(512)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
