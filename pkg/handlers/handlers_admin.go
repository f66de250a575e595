package handlers

import (
	"net/http"

	"github.com/arnavshah/compliance-api-go/pkg/apierror"
	"github.com/arnavshah/compliance-api-go/pkg/database"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ListUnits returns every business unit with its posts
func (h *Handler) ListUnits(c *gin.Context) {
	var units []database.BusinessUnit
	q := h.DB.Preload("Posts", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).Order("id")
	if zone := c.Query("zone"); zone != "" {
		q = q.Where("zone_id = ?", zone)
	}
	if err := q.Find(&units).Error; err != nil {
		c.JSON(http.StatusInternalServerError, apierror.New("Could not list units"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"units": units})
}

// SaveUnit creates or updates a business unit
func (h *Handler) SaveUnit(c *gin.Context) {
	var req struct {
		ID     string `json:"id" binding:"required"`
		Name   string `json:"name" binding:"required"`
		ZoneID string `json:"zone_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("id and name are required"))
		return
	}

	unit := database.BusinessUnit{ID: req.ID, Name: req.Name, ZoneID: req.ZoneID}
	if err := h.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "zone_id", "updated_at"}),
	}).Create(&unit).Error; err != nil {
		c.JSON(http.StatusInternalServerError, apierror.New("Could not save unit"))
		return
	}
	c.JSON(http.StatusOK, unit)
}

// DeleteUnit removes a business unit and its posts
func (h *Handler) DeleteUnit(c *gin.Context) {
	id := c.Param("id")
	err := h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("business_unit_id = ?", id).Delete(&database.Post{}).Error; err != nil {
			return err
		}
		return tx.Delete(&database.BusinessUnit{}, "id = ?", id).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, apierror.New("Could not delete unit"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Unit deleted"})
}

// SavePost creates or updates a post under an existing unit
func (h *Handler) SavePost(c *gin.Context) {
	var req struct {
		ID             string `json:"id" binding:"required"`
		Name           string `json:"name" binding:"required"`
		BusinessUnitID string `json:"business_unit_id" binding:"required"`
		Active         *bool  `json:"active"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("id, name and business_unit_id are required"))
		return
	}

	var unit database.BusinessUnit
	if err := h.DB.First(&unit, "id = ?", req.BusinessUnitID).Error; err != nil {
		if isNotFound(err) {
			c.JSON(http.StatusNotFound, apierror.New("Business unit not found"))
			return
		}
		c.JSON(http.StatusInternalServerError, apierror.New("Could not load unit"))
		return
	}

	post := database.Post{ID: req.ID, Name: req.Name, BusinessUnitID: req.BusinessUnitID, Active: true}
	if req.Active != nil {
		post.Active = *req.Active
	}
	if err := h.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "business_unit_id", "active", "updated_at"}),
	}).Create(&post).Error; err != nil {
		c.JSON(http.StatusInternalServerError, apierror.New("Could not save post"))
		return
	}
	c.JSON(http.StatusOK, post)
}

// DeletePost removes a post
func (h *Handler) DeletePost(c *gin.Context) {
	if err := h.DB.Delete(&database.Post{}, "id = ?", c.Param("id")).Error; err != nil {
		c.JSON(http.StatusInternalServerError, apierror.New("Could not delete post"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Post deleted"})
}

// ListTargets returns the default target and every per-post override
func (h *Handler) ListTargets(c *gin.Context) {
	var rows []database.TargetOverride
	if err := h.DB.Order("post_name").Find(&rows).Error; err != nil {
		c.JSON(http.StatusInternalServerError, apierror.New("Could not list targets"))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"default":        h.Targets.Default,
		"file_overrides": h.Targets.Overrides,
		"overrides":      rows,
	})
}

// SaveTarget sets the expected shifts per day of a post name
func (h *Handler) SaveTarget(c *gin.Context) {
	var req database.TargetOverride
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("post_name and shifts_expected (1-3) are required"))
		return
	}
	req.ID = 0
	if err := h.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "post_name"}},
		DoUpdates: clause.AssignmentColumns([]string{"shifts_expected"}),
	}).Create(&req).Error; err != nil {
		c.JSON(http.StatusInternalServerError, apierror.New("Could not save target"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"post_name": req.PostName, "shifts_expected": req.ShiftsExpected})
}

// DeleteTarget removes an override, restoring the default for that post
func (h *Handler) DeleteTarget(c *gin.Context) {
	if err := h.DB.Delete(&database.TargetOverride{}, "id = ?", c.Param("id")).Error; err != nil {
		c.JSON(http.StatusInternalServerError, apierror.New("Could not delete target"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Target deleted"})
}
