package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Version is reported by the root endpoint
const Version = "1.0.0"

// NewRouter wires every route onto a fresh engine
func NewRouter(h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(RequestID(), Logger(), Recovery())

	// Admin interface - serve static files from embedded FS
	r.StaticFS("/static", h.GetStaticFS())

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "Shift Compliance API",
			"version": Version,
		})
	})
	r.GET("/health", h.Health)

	r.GET("/admin", h.AdminInterface)
	r.POST("/admin/login", h.Login)

	// Admin Endpoints
	admin := r.Group("/admin")
	admin.Use(h.AuthMiddleware())
	{
		admin.POST("/keys", h.GenerateKey)
		admin.GET("/keys", h.ListKeys)
		admin.PUT("/keys/:id", h.UpdateKeyLimit)
		admin.DELETE("/keys/:id", h.RevokeKey)
		admin.GET("/usage/:id", h.GetUsage)

		admin.GET("/units", h.ListUnits)
		admin.POST("/units", h.SaveUnit)
		admin.DELETE("/units/:id", h.DeleteUnit)
		admin.POST("/posts", h.SavePost)
		admin.DELETE("/posts/:id", h.DeletePost)
		admin.GET("/targets", h.ListTargets)
		admin.POST("/targets", h.SaveTarget)
		admin.DELETE("/targets/:id", h.DeleteTarget)
	}

	// Compliance Endpoints
	api := r.Group("/api")
	api.Use(h.APIKeyMiddleware())
	{
		api.GET("/compliance/units", h.UnitCoverage)
		api.GET("/compliance/zone", h.ZoneCompliance)
		api.GET("/compliance/personnel", h.Personnel)
		api.GET("/compliance/report.xlsx", h.Report)
		api.POST("/reports/validate", h.ValidateReport)
		api.GET("/settings", h.GetSettings)
		api.PUT("/settings", h.PutSettings)
		api.GET("/usage", h.GetMyUsage)
	}

	return r
}
