package handlers

import (
	"net/http"

	"latidos/assistant"
	"latidos/controller"
	"latidos/models"
	"latidos/utils"

	"github.com/apex/log"
	"github.com/gin-gonic/gin"
)

// GetChat returns the assistant conversation of the session.
func (h *Handlers) GetChat(c *gin.Context) {
	a := h.session(c).Assistant()
	c.JSON(http.StatusOK, controller.ChatView{
		Available: a.Available(),
		Sending:   a.Sending(),
		Messages:  a.Messages(),
	})
}

// SendChat streams the assistant's reply as NDJSON chunks. The last chunk has done set
// and carries the apology text as error when the reply failed.
func (h *Handlers) SendChat(c *gin.Context) {
	var req models.ChatRequest
	if err := c.BindJSON(&req); err != nil {
		log.Errorf("Failed to bind request: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	a := h.session(c).Assistant()
	started := false
	start := func() {
		if started {
			return
		}
		started = true
		c.Header("Content-Type", "application/x-ndjson")
		c.Header("Cache-Control", "no-cache")
		c.Header("Connection", "keep-alive")
		c.Status(http.StatusOK)
	}

	err := a.Send(c.Request.Context(), req.Message, func(chunk string) {
		start()
		if err := utils.WriteStreamChunk(c.Writer, models.StreamChunk{Content: chunk}); err != nil {
			log.Errorf("Failed to write stream chunk: %v", err)
		}
	})
	if err != nil {
		respondError(c, err)
		return
	}

	start()
	done := models.StreamChunk{Done: true}
	if msgs := a.Messages(); len(msgs) > 0 && msgs[len(msgs)-1].Text == assistant.Apology {
		done.Error = assistant.Apology
	}
	if err := utils.WriteStreamChunk(c.Writer, done); err != nil {
		log.Errorf("Failed to write stream chunk: %v", err)
	}
}
