package handlers

import (
	"net/http"

	"latidos/controller"
	photo "latidos/image"
	"latidos/utils"

	"github.com/gin-gonic/gin"
)

type loginRequest struct {
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handlers) OpenAuth(c *gin.Context) {
	ctrl := h.session(c)
	ctrl.OpenAuth()
	h.respondState(c, ctrl)
}

func (h *Handlers) CloseAuth(c *gin.Context) {
	ctrl := h.session(c)
	ctrl.CloseAuth()
	h.respondState(c, ctrl)
}

// Login signs the session in. Credentials are not checked.
func (h *Handlers) Login(c *gin.Context) {
	var req loginRequest
	if c.Request.ContentLength > 0 {
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
			return
		}
	}
	ctrl := h.session(c)
	ctrl.Login(req.Email, req.DisplayName)
	h.respondState(c, ctrl)
}

func (h *Handlers) Register(c *gin.Context) {
	var req registerRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}
	ctrl := h.session(c)
	if err := ctrl.Register(req.Email, req.Password); err != nil {
		respondError(c, err)
		return
	}
	h.respondState(c, ctrl)
}

func (h *Handlers) Logout(c *gin.Context) {
	ctrl := h.session(c)
	ctrl.Logout()
	h.respondState(c, ctrl)
}

// UpdateProfilePhoto stores an uploaded avatar, downscaled, as a data URL.
func (h *Handlers) UpdateProfilePhoto(c *gin.Context) {
	ctrl := h.session(c)
	if ctrl.User() == nil {
		respondError(c, controller.ErrNotLoggedIn)
		return
	}
	data, ok := readUpload(c)
	if !ok {
		return
	}
	normalized, mimeType, err := photo.Normalize(data, photo.ProfileMaxDimension)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid image"})
		return
	}
	if err := ctrl.UpdateProfilePhoto(utils.EncodeDataURL(mimeType, normalized)); err != nil {
		respondError(c, err)
		return
	}
	h.respondState(c, ctrl)
}
