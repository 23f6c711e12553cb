package handlers

import (
	"net/http"

	"latidos/middleware"
	"latidos/models"

	"github.com/apex/log"
	"github.com/gin-gonic/gin"
	gorilla "github.com/gorilla/websocket"
)

// WebSocket upgrader
var upgrader = gorilla.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// ListenEvents upgrades to a websocket that receives the session's events, starting
// with the current state. Browsers pass the session as the session query parameter.
func (h *Handlers) ListenEvents(c *gin.Context) {
	sessionID := middleware.SessionID(c)
	ctrl := h.sessions.Open(sessionID)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.WithError(err).Warn("Failed to upgrade connection to WebSocket")
		return
	}
	if !h.hub.Attach(conn, sessionID) {
		return
	}

	view, err := ctrl.View(c.Request.Context())
	if err != nil {
		log.WithError(err).Error("Failed to render state for new listener")
		return
	}
	h.hub.Notify(sessionID, models.EventState, view)
}
