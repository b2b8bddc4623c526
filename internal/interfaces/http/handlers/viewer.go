// internal/interfaces/http/handlers/viewer.go
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront/internal/viewer"
)

const (
	wsWriteWait      = 10 * time.Second
	wsMaxMessageSize = 16 << 10
)

// ViewerHandler drives headless viewer sessions over HTTP and websockets
type ViewerHandler struct {
	hub      *viewer.Hub
	upgrader websocket.Upgrader
	log      logrus.FieldLogger
}

// NewViewerHandler creates a new viewer handler
func NewViewerHandler(hub *viewer.Hub, checkOrigin func(r *http.Request) bool, log logrus.FieldLogger) *ViewerHandler {
	return &ViewerHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
		log: log,
	}
}

// EmitEvent handles POST /viewer/:session/events
func (h *ViewerHandler) EmitEvent(c *gin.Context) {
	var event viewer.Event
	if err := c.ShouldBindJSON(&event); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	snapshot, err := h.hub.Emit(c.Param("session"), event)
	if err != nil {
		c.JSON(viewerStatusFor(err), gin.H{
			"error": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Event applied successfully",
		"data":    snapshot,
	})
}

// GetSnapshot handles GET /viewer/:session
func (h *ViewerHandler) GetSnapshot(c *gin.Context) {
	snapshot, err := h.hub.Snapshot(c.Param("session"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Viewer session not found",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Viewer state retrieved successfully",
		"data":    snapshot,
	})
}

// CloseSession handles DELETE /viewer/:session
func (h *ViewerHandler) CloseSession(c *gin.Context) {
	if !h.hub.Close(c.Param("session")) {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Viewer session not found",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Viewer session closed successfully",
	})
}

// Stream handles GET /viewer/:session/ws.
// Every session change is pushed as a JSON message; events sent by the client are applied.
func (h *ViewerHandler) Stream(c *gin.Context) {
	sessionID := c.Param("session")
	log := h.log.WithField("viewer_session", sessionID)

	if h.upgrader.CheckOrigin != nil && !h.upgrader.CheckOrigin(c.Request) {
		c.JSON(http.StatusForbidden, gin.H{
			"error": "Origin not allowed",
		})
		return
	}

	updates, cancel, err := h.hub.Subscribe(sessionID)
	if err != nil {
		c.JSON(viewerStatusFor(err), gin.H{
			"error": err.Error(),
		})
		return
	}
	defer cancel()

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// The upgrader has already answered the handshake
		log.WithError(err).Debug("WebSocket upgrade failed")
		return
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		h.readEvents(conn, sessionID, log)
	}()

	defer func() {
		conn.Close()
		<-done
		log.Debug("WebSocket client disconnected")
	}()

	for {
		select {
		case msg, ok := <-updates:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "viewer session closed"))
				return
			}
			if err := conn.WriteJSON(msg); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

// readEvents applies client events until the connection fails
func (h *ViewerHandler) readEvents(conn *websocket.Conn, sessionID string, log logrus.FieldLogger) {
	conn.SetReadLimit(wsMaxMessageSize)
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.WithError(err).Debug("WebSocket read failed")
			}
			return
		}

		var event viewer.Event
		if err := json.Unmarshal(data, &event); err != nil {
			log.WithError(err).Debug("Ignoring malformed viewer event")
			continue
		}
		if _, err := h.hub.Emit(sessionID, event); err != nil && !errors.Is(err, viewer.ErrInvalidEvent) {
			log.WithError(err).Warn("Failed to apply viewer event")
		}
	}
}

func viewerStatusFor(err error) int {
	switch {
	case errors.Is(err, viewer.ErrTooManySessions):
		return http.StatusServiceUnavailable
	case errors.Is(err, viewer.ErrSessionNotFound):
		return http.StatusNotFound
	default:
		return http.StatusBadRequest
	}
}
