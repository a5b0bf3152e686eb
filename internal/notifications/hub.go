package notifications

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 50 * time.Second
)

// connection is one WebSocket client owned by an authenticated user.
type connection struct {
	userID uuid.UUID
	conn   *websocket.Conn
	send   chan WSMessage
}

// Hub fans WSMessages out to the connections of individual users. A user may
// hold several connections (tabs); each gets every message addressed to them.
type Hub struct {
	byUser     map[uuid.UUID]map[*connection]bool
	register   chan *connection
	unregister chan *connection
	logger     *zap.Logger
	upgrader   websocket.Upgrader
	mu         sync.RWMutex
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		byUser:     make(map[uuid.UUID]map[*connection]bool),
		register:   make(chan *connection),
		unregister: make(chan *connection),
		logger:     logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Run owns the registration maps. Call once in a goroutine.
func (h *Hub) Run() {
	for {
		select {
		case conn := <-h.register:
			h.mu.Lock()
			if h.byUser[conn.userID] == nil {
				h.byUser[conn.userID] = make(map[*connection]bool)
			}
			h.byUser[conn.userID][conn] = true
			h.mu.Unlock()
		case conn := <-h.unregister:
			h.mu.Lock()
			if conns, ok := h.byUser[conn.userID]; ok {
				if conns[conn] {
					delete(conns, conn)
					close(conn.send)
				}
				if len(conns) == 0 {
					delete(h.byUser, conn.userID)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Send pushes a message to every live connection of a user. Slow consumers
// are dropped rather than blocking the caller.
func (h *Hub) Send(userID uuid.UUID, msg WSMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for conn := range h.byUser[userID] {
		select {
		case conn.send <- msg:
		default:
			h.logger.Warn("Dropping slow notification consumer",
				zap.String("user_id", userID.String()))
		}
	}
}

// Serve upgrades the request and pumps messages until the client leaves.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, userID uuid.UUID) error {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	conn := &connection{
		userID: userID,
		conn:   ws,
		send:   make(chan WSMessage, 64),
	}
	h.register <- conn

	go h.writePump(conn)
	go h.readPump(conn)
	return nil
}

func (h *Hub) readPump(conn *connection) {
	defer func() {
		h.unregister <- conn
		conn.conn.Close()
	}()

	conn.conn.SetReadLimit(512)
	conn.conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.conn.SetPongHandler(func(string) error {
		conn.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		// Clients only listen; any read error means they left.
		if _, _, err := conn.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(conn *connection) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-conn.send:
			conn.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			conn.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
