package handlers

import (
	"net/http"

	"latidos/filter"
	"latidos/models"

	"github.com/gin-gonic/gin"
	geojson "github.com/paulmach/go.geojson"
)

// GetState returns the full view of the session.
func (h *Handlers) GetState(c *gin.Context) {
	h.respondState(c, h.session(c))
}

// GetReports returns the filtered report list.
func (h *Handlers) GetReports(c *gin.Context) {
	reports, err := h.session(c).Reports(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"reports": reports,
		"count":   len(reports),
	})
}

// GetMap returns the filtered reports as GeoJSON point features.
func (h *Handlers) GetMap(c *gin.Context) {
	reports, err := h.session(c).Reports(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, reportsFeatureCollection(reports))
}

func reportsFeatureCollection(reports []models.Report) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, r := range reports {
		f := geojson.NewPointFeature([]float64{r.Location.Lng, r.Location.Lat})
		f.ID = r.ID
		category := "found"
		if r.Kind == models.KindLost {
			category = "lost"
		}
		f.SetProperty("category", category)
		f.SetProperty("report_id", r.ID)
		f.SetProperty("breed", r.Breed)
		f.SetProperty("photo_url", r.ImageRef)
		fc.AddFeature(f)
	}
	return fc
}

// SetFilter replaces the attribute filter.
func (h *Handlers) SetFilter(c *gin.Context) {
	var cfg filter.Config
	if err := c.BindJSON(&cfg); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}
	ctrl := h.session(c)
	ctrl.SetFilter(cfg)
	h.respondState(c, ctrl)
}

// ClearFilters resets the attribute filter.
func (h *Handlers) ClearFilters(c *gin.Context) {
	ctrl := h.session(c)
	ctrl.ClearFilters()
	h.respondState(c, ctrl)
}

// ToggleOwnedOnly flips the "my reports" filter.
func (h *Handlers) ToggleOwnedOnly(c *gin.Context) {
	ctrl := h.session(c)
	if _, err := ctrl.ToggleOwnedOnly(); err != nil {
		respondError(c, err)
		return
	}
	h.respondState(c, ctrl)
}

// CloseMatches hides the suggested matches modal.
func (h *Handlers) CloseMatches(c *gin.Context) {
	ctrl := h.session(c)
	ctrl.CloseMatches()
	h.respondState(c, ctrl)
}

type dismissRequest struct {
	ID int `json:"id"`
}

// DismissToast closes the toast with the given id, or any toast when id is omitted.
func (h *Handlers) DismissToast(c *gin.Context) {
	var req dismissRequest
	if c.Request.ContentLength > 0 {
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
			return
		}
	}
	ctrl := h.session(c)
	ctrl.DismissToast(req.ID)
	h.respondState(c, ctrl)
}
