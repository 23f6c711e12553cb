package handlers

import (
	"net/http"

	"latidos/controller"

	"github.com/gin-gonic/gin"
)

type promptRequest struct {
	Prompt string `json:"prompt"`
}

type placesRequest struct {
	Category string `json:"category"`
}

// OpenDetail selects a report and opens its modal.
func (h *Handlers) OpenDetail(c *gin.Context) {
	ctrl := h.session(c)
	if _, err := ctrl.OpenDetail(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	h.respondState(c, ctrl)
}

func (h *Handlers) CloseDetail(c *gin.Context) {
	ctrl := h.session(c)
	ctrl.CloseDetail()
	h.respondState(c, ctrl)
}

// detailAction runs a detail transition that takes no input.
func (h *Handlers) detailAction(action func(*controller.Controller) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctrl := h.session(c)
		if err := action(ctrl); err != nil {
			respondError(c, err)
			return
		}
		h.respondState(c, ctrl)
	}
}

func (h *Handlers) StartEdit(c *gin.Context) {
	h.detailAction((*controller.Controller).StartEdit)(c)
}

func (h *Handlers) CancelEdit(c *gin.Context) {
	h.detailAction((*controller.Controller).CancelEdit)(c)
}

func (h *Handlers) RejectEdit(c *gin.Context) {
	h.detailAction((*controller.Controller).RejectEdit)(c)
}

// GenerateEdit asks for an edited photo. Model failures show up as the detail's edit
// error in the returned state.
func (h *Handlers) GenerateEdit(c *gin.Context) {
	var req promptRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}
	ctrl := h.session(c)
	if err := ctrl.GenerateEdit(c.Request.Context(), req.Prompt); err != nil {
		respondError(c, err)
		return
	}
	h.respondState(c, ctrl)
}

// AcceptEdit stores the edited photo on the report.
func (h *Handlers) AcceptEdit(c *gin.Context) {
	ctrl := h.session(c)
	if _, err := ctrl.AcceptEdit(c.Request.Context()); err != nil {
		respondError(c, err)
		return
	}
	h.respondState(c, ctrl)
}

func (h *Handlers) GenerateSocialPost(c *gin.Context) {
	ctrl := h.session(c)
	if err := ctrl.GenerateSocialPost(c.Request.Context()); err != nil {
		respondError(c, err)
		return
	}
	h.respondState(c, ctrl)
}

// CopySocialText returns the generated post for the clipboard.
func (h *Handlers) CopySocialText(c *gin.Context) {
	text, err := h.session(c).CopySocialText()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"text": text})
}

// FindNearbyPlaces looks up places of a category around the selected report.
func (h *Handlers) FindNearbyPlaces(c *gin.Context) {
	var req placesRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}
	ctrl := h.session(c)
	if err := ctrl.FindNearbyPlaces(c.Request.Context(), req.Category); err != nil {
		respondError(c, err)
		return
	}
	h.respondState(c, ctrl)
}

// PlaceCategories lists the categories offered for nearby places.
func (h *Handlers) PlaceCategories(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"categories": controller.PlaceCategories})
}
