// internal/handler/websocket_handler.go
package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"serial-service/internal/serialport"
	"serial-service/internal/utils"
)

const (
	// Time allowed to write a message to the peer
	wsWriteWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	wsPongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than wsPongWait.
	wsPingPeriod = 30 * time.Second

	// Clients only send control frames; anything larger is a protocol error
	wsMaxMessageSize = 512
)

// SerialEvent is the JSON frame pushed to WebSocket subscribers. It mirrors
// the SSE representation of the same stream.
type SerialEvent struct {
	Event     string    `json:"event"`
	ID        uint64    `json:"id"`
	Data      string    `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

// WebSocketHandler bridges the broadcast hub onto WebSocket connections
type WebSocketHandler struct {
	upgrader websocket.Upgrader
	manager  *serialport.Manager
	logger   *utils.ServiceLogger
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(manager *serialport.Manager, logger *zap.Logger) *WebSocketHandler {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			// In production, implement proper origin checking
			return true
		},
	}

	return &WebSocketHandler{
		upgrader: upgrader,
		manager:  manager,
		logger:   utils.NewServiceLogger(logger, "websocket-handler"),
	}
}

// HandleSerialStream upgrades the connection and streams framed serial
// messages to the client until it disconnects.
// @Summary Stream framed serial messages over WebSocket
// @Description Upgrade to WebSocket and receive framed messages from every listening port as JSON events
// @Tags Serial
// @Success 101 {string} string "Switching Protocols"
// @Router /ws/serial [get]
func (h *WebSocketHandler) HandleSerialStream(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("WebSocket upgrade failed",
			zap.String("client_ip", c.ClientIP()),
			zap.Error(err),
		)
		return
	}

	clientID := uuid.New().String()
	subID, messages := h.manager.Hub().Subscribe()

	h.logger.Info("WebSocket client connected",
		zap.String("client_id", clientID),
		zap.String("client_ip", c.ClientIP()),
	)

	go h.writePump(conn, messages, clientID)
	go h.readPump(conn, subID, clientID)
}

// readPump drains inbound frames so control messages are processed and
// detects the client going away. The first read error tears the
// subscription down, which in turn ends the write pump.
func (h *WebSocketHandler) readPump(conn *websocket.Conn, subID, clientID string) {
	defer func() {
		h.manager.Hub().Unsubscribe(subID)
		conn.Close()
		h.logger.Info("WebSocket client disconnected", zap.String("client_id", clientID))
	}()

	conn.SetReadLimit(wsMaxMessageSize)
	conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(wsPongWait))
		return nil
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("WebSocket read error",
					zap.String("client_id", clientID),
					zap.Error(err),
				)
			}
			return
		}
	}
}

// writePump forwards hub messages to the peer and keeps the connection
// alive with periodic pings.
func (h *WebSocketHandler) writePump(conn *websocket.Conn, messages <-chan string, clientID string) {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	var eventID uint64
	for {
		select {
		case message, ok := <-messages:
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "hub closed"))
				return
			}

			eventID++
			event := SerialEvent{
				Event:     "serialData",
				ID:        eventID,
				Data:      message,
				Timestamp: time.Now(),
			}
			if err := conn.WriteJSON(event); err != nil {
				h.logger.Debug("WebSocket write failed",
					zap.String("client_id", clientID),
					zap.Error(err),
				)
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
