package handlers

import (
	"errors"
	"net/http"

	"latidos/assistant"
	"latidos/controller"
	"latidos/gateway"
	"latidos/middleware"
	"latidos/version"
	ws "latidos/websocket"

	"github.com/apex/log"
	"github.com/gin-gonic/gin"
)

// Handlers contains all HTTP handlers
type Handlers struct {
	sessions *controller.Manager
	hub      *ws.Hub
}

// NewHandlers creates a new handlers instance
func NewHandlers(sessions *controller.Manager, hub *ws.Hub) *Handlers {
	return &Handlers{
		sessions: sessions,
		hub:      hub,
	}
}

// session returns the controller of the request's session.
func (h *Handlers) session(c *gin.Context) *controller.Controller {
	return h.sessions.Open(middleware.SessionID(c))
}

// HealthCheck returns service health status
func (h *Handlers) HealthCheck(c *gin.Context) {
	connected, sent := h.hub.GetStats()
	c.JSON(http.StatusOK, gin.H{
		"status":            "healthy",
		"service":           version.Service,
		"sessions":          h.sessions.Len(),
		"websocket_clients": connected,
		"events_sent":       sent,
	})
}

// Version returns build information
func (h *Handlers) Version(c *gin.Context) {
	c.JSON(http.StatusOK, version.Get())
}

// respondState writes the session's current view.
func (h *Handlers) respondState(c *gin.Context, ctrl *controller.Controller) {
	view, err := ctrl.View(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, controller.ErrNotLoggedIn):
		return http.StatusUnauthorized
	case errors.Is(err, controller.ErrBusy), errors.Is(err, assistant.ErrBusy):
		return http.StatusConflict
	case errors.Is(err, controller.ErrNoSelection),
		errors.Is(err, controller.ErrNotEditing),
		errors.Is(err, controller.ErrNothingToAccept),
		errors.Is(err, controller.ErrNothingToCopy):
		return http.StatusConflict
	case errors.Is(err, controller.ErrValidation), errors.Is(err, assistant.ErrEmptyMessage):
		return http.StatusBadRequest
	case errors.Is(err, controller.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, assistant.ErrUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, gateway.ErrDescription):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// respondError maps controller and gateway errors onto HTTP statuses. A failed photo
// description is returned as an alert for the client to show blocking.
func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	switch {
	case status == http.StatusBadGateway:
		c.JSON(status, gin.H{"error": gateway.UserMessage(err), "alert": true})
	case status == http.StatusInternalServerError:
		log.WithError(err).Error("Request failed")
		c.JSON(status, gin.H{"error": "Internal server error"})
	default:
		c.JSON(status, gin.H{"error": err.Error()})
	}
}
