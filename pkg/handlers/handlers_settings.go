package handlers

import (
	"net/http"

	"github.com/arnavshah/compliance-api-go/pkg/apierror"
	"github.com/arnavshah/compliance-api-go/pkg/database"
	"github.com/arnavshah/compliance-api-go/pkg/models"
	"github.com/gin-gonic/gin"
)

// GetSettings returns the caller's dashboard view settings
func (h *Handler) GetSettings(c *gin.Context) {
	s, err := database.LoadSettings(c.Request.Context(), h.DB, c.GetString("userID"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, apierror.New("Could not load settings"))
		return
	}
	c.JSON(http.StatusOK, s)
}

// PutSettings replaces the caller's view settings. Omitted fields keep
// their current value.
func (h *Handler) PutSettings(c *gin.Context) {
	ctx := c.Request.Context()
	owner := c.GetString("userID")

	current, err := database.LoadSettings(ctx, h.DB, owner)
	if err != nil {
		c.JSON(http.StatusInternalServerError, apierror.New("Could not load settings"))
		return
	}

	var req struct {
		ViewMode   *string `json:"view_mode"`
		ShowPhotos *bool   `json:"show_photos"`
		ChartKind  *string `json:"chart_kind"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid settings body"))
		return
	}

	next := current
	if req.ViewMode != nil {
		next.ViewMode = *req.ViewMode
	}
	if req.ShowPhotos != nil {
		next.ShowPhotos = *req.ShowPhotos
	}
	if req.ChartKind != nil {
		next.ChartKind = *req.ChartKind
	}
	if err := validate.Struct(next); err != nil {
		c.JSON(http.StatusBadRequest, apierror.NewValidation(validationFields(err)))
		return
	}
	if next.ViewMode == "" || next.ChartKind == "" {
		def := models.DefaultViewSettings()
		if next.ViewMode == "" {
			next.ViewMode = def.ViewMode
		}
		if next.ChartKind == "" {
			next.ChartKind = def.ChartKind
		}
	}

	if err := database.SaveSettings(ctx, h.DB, owner, next); err != nil {
		c.JSON(http.StatusInternalServerError, apierror.New("Could not save settings"))
		return
	}
	c.JSON(http.StatusOK, next)
}
