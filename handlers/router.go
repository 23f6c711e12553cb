package handlers

import (
	"time"

	"latidos/config"
	"latidos/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRouter registers every route on a new engine.
func SetupRouter(h *Handlers, cfg *config.Config) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.AllowedOrigins
	if len(cfg.AllowedOrigins) == 0 || (len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*") {
		corsConfig.AllowOrigins = nil
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, middleware.SessionHeader)
	corsConfig.ExposeHeaders = []string{middleware.SessionHeader}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Streamed and upgraded responses must not be buffered by gzip.
	router.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{
		"/api/v1/chat",
		"/api/v1/events",
		"/metrics",
	})))

	router.GET("/health", h.HealthCheck)
	router.GET("/version", h.Version)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	limiter := middleware.RateLimitMiddleware(middleware.NewRateLimiter(cfg.RateLimitPerMinute, cfg.RateLimitBurst))
	timeout := middleware.RequestTimeout(cfg.AITimeout)
	// ai chains the guards of routes that call the model.
	ai := func(h gin.HandlerFunc) []gin.HandlerFunc {
		return []gin.HandlerFunc{limiter, timeout, h}
	}

	api := router.Group("/api/v1")
	api.Use(middleware.SessionMiddleware())
	{
		api.GET("/state", h.GetState)
		api.GET("/reports", h.GetReports)
		api.GET("/map", h.GetMap)
		api.GET("/events", h.ListenEvents)

		api.PUT("/filter", h.SetFilter)
		api.DELETE("/filter", h.ClearFilters)
		api.POST("/filter/owned", h.ToggleOwnedOnly)

		api.POST("/auth/open", h.OpenAuth)
		api.POST("/auth/close", h.CloseAuth)
		api.POST("/auth/login", h.Login)
		api.POST("/auth/register", h.Register)
		api.POST("/auth/logout", h.Logout)
		api.POST("/profile/photo", h.UpdateProfilePhoto)

		api.POST("/create", h.Create)
		api.POST("/create/cancel", h.CancelCreate)
		api.POST("/map/click", h.MapClick)
		api.POST("/create/describe", ai(h.DescribePhoto)...)
		api.POST("/reports", ai(h.SubmitReport)...)

		api.POST("/reports/:id/open", h.OpenDetail)
		api.POST("/detail/close", h.CloseDetail)
		api.POST("/detail/edit/start", h.StartEdit)
		api.POST("/detail/edit/cancel", h.CancelEdit)
		api.POST("/detail/edit/reject", h.RejectEdit)
		api.POST("/detail/edit/accept", h.AcceptEdit)
		api.POST("/detail/edit", ai(h.GenerateEdit)...)
		api.POST("/detail/social", ai(h.GenerateSocialPost)...)
		api.GET("/detail/social/copy", h.CopySocialText)
		api.POST("/detail/places", ai(h.FindNearbyPlaces)...)
		api.GET("/places/categories", h.PlaceCategories)

		api.POST("/matches/close", h.CloseMatches)
		api.POST("/toast/dismiss", h.DismissToast)

		api.GET("/chat", h.GetChat)
		api.POST("/chat", ai(h.SendChat)...)
	}

	return router
}
