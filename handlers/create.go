package handlers

import (
	"fmt"
	"io"
	"net/http"

	"latidos/gateway"
	photo "latidos/image"
	"latidos/models"
	"latidos/utils"

	"github.com/apex/log"
	"github.com/gin-gonic/gin"
)

const (
	uploadField    = "photo"
	maxUploadBytes = 15 << 20
)

// readUpload returns the bytes of the multipart photo field, writing a 400 when it is
// missing or too large.
func readUpload(c *gin.Context) ([]byte, bool) {
	file, header, err := c.Request.FormFile(uploadField)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Missing %q file", uploadField)})
		return nil, false
	}
	defer file.Close()

	if header.Size > maxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Image is too large"})
		return nil, false
	}
	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
	if err != nil || len(data) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Could not read image"})
		return nil, false
	}
	if len(data) > maxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Image is too large"})
		return nil, false
	}
	return data, true
}

// normalizePhotoRef downscales an inline photo. Remote URLs are kept as they are.
func normalizePhotoRef(ref string) (string, error) {
	if !utils.IsDataURL(ref) {
		return ref, nil
	}
	data, _, err := utils.DecodeDataURL(ref)
	if err != nil {
		return "", err
	}
	normalized, mimeType, err := photo.Normalize(data, photo.PhotoMaxDimension)
	if err != nil {
		return "", err
	}
	return utils.EncodeDataURL(mimeType, normalized), nil
}

// Create opens the report form.
func (h *Handlers) Create(c *gin.Context) {
	ctrl := h.session(c)
	if err := ctrl.Create(); err != nil {
		respondError(c, err)
		return
	}
	h.respondState(c, ctrl)
}

func (h *Handlers) CancelCreate(c *gin.Context) {
	ctrl := h.session(c)
	ctrl.CancelCreate()
	h.respondState(c, ctrl)
}

// MapClick opens the report form preset to the clicked point.
func (h *Handlers) MapClick(c *gin.Context) {
	var point models.GeoPoint
	if err := c.BindJSON(&point); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}
	ctrl := h.session(c)
	if err := ctrl.MapClick(point); err != nil {
		respondError(c, err)
		return
	}
	h.respondState(c, ctrl)
}

// DescribePhoto fills the report form from an uploaded photo. The normalized photo is
// returned as a data URL to be submitted with the form.
func (h *Handlers) DescribePhoto(c *gin.Context) {
	data, ok := readUpload(c)
	if !ok {
		return
	}
	normalized, mimeType, err := photo.Normalize(data, photo.PhotoMaxDimension)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid image"})
		return
	}

	img := gateway.Image{Data: normalized, MIMEType: mimeType}
	attrs, err := h.session(c).DescribePhoto(c.Request.Context(), img)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"attributes": attrs,
		"photo_url":  img.DataURL(),
	})
}

// SubmitReport creates a report from the form. Matching for lost pets continues in the
// background and is pushed over the events socket.
func (h *Handlers) SubmitReport(c *gin.Context) {
	var form models.NewReport
	if err := c.BindJSON(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}
	ref, err := normalizePhotoRef(form.ImageRef)
	if err != nil {
		log.WithError(err).Warn("Rejected report photo")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid image"})
		return
	}
	form.ImageRef = ref

	ctrl := h.session(c)
	report, err := ctrl.Submit(c.Request.Context(), form)
	if err != nil {
		respondError(c, err)
		return
	}
	view, err := ctrl.View(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"report": report,
		"state":  view,
	})
}
