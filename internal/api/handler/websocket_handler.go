package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"yard_parking/internal/domain"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	broadcastBuffer = 64
	writeWait       = 10 * time.Second
)

var errBroadcastFull = errors.New("websocket broadcast buffer full")

var upgrader = websocket.Upgrader{
	// dashboards are served from other origins on the yard network
	CheckOrigin: func(r *http.Request) bool { return true },
}

// WebSocketManager fans slot status changes out to every connected dashboard.
type WebSocketManager struct {
	clients    map[*websocket.Conn]bool
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	broadcast  chan []byte
	done       chan struct{}
	mutex      sync.RWMutex
	log        *zap.Logger
}

func NewWebSocketManager(log *zap.Logger) *WebSocketManager {
	return &WebSocketManager{
		clients:    make(map[*websocket.Conn]bool),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		broadcast:  make(chan []byte, broadcastBuffer),
		done:       make(chan struct{}),
		log:        log.Named("ws"),
	}
}

// Start runs the hub until ctx is cancelled, then closes every client.
func (wsm *WebSocketManager) Start(ctx context.Context) {
	defer close(wsm.done)
	for {
		select {
		case <-ctx.Done():
			wsm.mutex.Lock()
			for client := range wsm.clients {
				_ = client.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"), time.Now().Add(time.Second))
				client.Close()
				delete(wsm.clients, client)
			}
			wsm.mutex.Unlock()
			return

		case client := <-wsm.register:
			wsm.mutex.Lock()
			wsm.clients[client] = true
			total := len(wsm.clients)
			wsm.mutex.Unlock()
			wsm.log.Debug("client connected", zap.Int("total", total))

		case client := <-wsm.unregister:
			wsm.mutex.Lock()
			if _, ok := wsm.clients[client]; ok {
				delete(wsm.clients, client)
				client.Close()
			}
			total := len(wsm.clients)
			wsm.mutex.Unlock()
			wsm.log.Debug("client disconnected", zap.Int("total", total))

		case message := <-wsm.broadcast:
			wsm.mutex.Lock()
			for client := range wsm.clients {
				_ = client.SetWriteDeadline(time.Now().Add(writeWait))
				if err := client.WriteMessage(websocket.TextMessage, message); err != nil {
					wsm.log.Warn("write to client failed", zap.Error(err))
					client.Close()
					delete(wsm.clients, client)
				}
			}
			wsm.mutex.Unlock()
		}
	}
}

// SlotStatusChanged queues the change for every client. It never blocks the writer.
func (wsm *WebSocketManager) SlotStatusChanged(_ context.Context, change domain.SlotStatusChange) error {
	message, err := json.Marshal(change)
	if err != nil {
		return err
	}
	select {
	case wsm.broadcast <- message:
		return nil
	default:
		return errBroadcastFull
	}
}

func (wsm *WebSocketManager) ClientCount() int {
	wsm.mutex.RLock()
	defer wsm.mutex.RUnlock()
	return len(wsm.clients)
}

type WebSocketHandler struct {
	wsManager *WebSocketManager
}

func NewWebSocketHandler(wsManager *WebSocketManager) *WebSocketHandler {
	return &WebSocketHandler{wsManager: wsManager}
}

// GET /ws
func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.wsManager.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	select {
	case h.wsManager.register <- conn:
	case <-h.wsManager.done:
		conn.Close()
		return
	}

	// reads only detect the disconnect; dashboards never send anything
	go func() {
		defer func() {
			select {
			case h.wsManager.unregister <- conn:
			case <-h.wsManager.done:
			}
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					h.wsManager.log.Warn("websocket read failed", zap.Error(err))
				}
				return
			}
		}
	}()
}
