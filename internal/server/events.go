package server

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// mediaEvent is pushed to subscribed chat clients when an analysis finishes,
// so attachment previews can refresh without polling.
type mediaEvent struct {
	Kind           string    `json:"kind"`
	FileName       string    `json:"file_name"`
	ConversationID string    `json:"conversation_id"`
	Text           string    `json:"text"`
	Timestamp      time.Time `json:"timestamp"`
}

type eventHub struct {
	logger   *slog.Logger
	upgrader websocket.Upgrader

	mu     sync.Mutex
	conns  map[*websocket.Conn]bool
	closed bool
}

func newEventHub(logger *slog.Logger) *eventHub {
	return &eventHub{
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		conns: make(map[*websocket.Conn]bool),
	}
}

func (s *Server) handleEvents(c *gin.Context) {
	conn, err := s.hub.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}
	s.hub.add(conn)

	// Reader goroutine only detects close; clients never send payloads.
	go func() {
		defer s.hub.remove(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (h *eventHub) add(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		_ = conn.Close()
		return
	}
	h.conns[conn] = true
}

func (h *eventHub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.conns, conn)
	h.mu.Unlock()
	_ = conn.Close()
}

func (h *eventHub) broadcast(ev mediaEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.conns {
		if err := conn.WriteJSON(ev); err != nil {
			h.logger.Debug("dropping event subscriber", slog.String("error", err.Error()))
			delete(h.conns, conn)
			_ = conn.Close()
		}
	}
}

func (h *eventHub) close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for conn := range h.conns {
		_ = conn.Close()
		delete(h.conns, conn)
	}
}
