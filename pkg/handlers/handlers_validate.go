package handlers

import (
	"net/http"
	"sort"
	"time"

	"github.com/arnavshah/compliance-api-go/pkg/models"
	"github.com/arnavshah/compliance-api-go/pkg/normalizer"
	"github.com/gin-gonic/gin"
)

// ValidateReport checks an upstream report payload and returns what the
// normalizer would make of it
func (h *Handler) ValidateReport(c *gin.Context) {
	var report normalizer.RawReport
	if err := c.ShouldBindJSON(&report); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"valid": false,
			"error": err.Error(),
		})
		return
	}

	if len(report) == 0 {
		c.JSON(http.StatusOK, gin.H{
			"valid": false,
			"error": "At least one post is required",
		})
		return
	}

	date := c.DefaultQuery("date", time.Now().Format(models.DateLayout))
	records := normalizer.Normalize(report, date)

	// Posts without a unit cannot be attributed to any business unit
	var missingUnit, unnamed []string
	for id, p := range report {
		if p.UnitID == "" {
			missingUnit = append(missingUnit, id)
		}
		if p.Name == "" {
			unnamed = append(unnamed, id)
		}
	}

	sort.Strings(missingUnit)
	sort.Strings(unnamed)

	assigned := 0
	for _, r := range records {
		if r.IsAssigned {
			assigned++
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"valid": len(missingUnit) == 0,
		"stats": gin.H{
			"post_count":       len(report),
			"record_count":     len(records),
			"assigned_count":   assigned,
			"unassigned_count": len(records) - assigned,
		},
		"missing_unit": missingUnit,
		"unnamed":      unnamed,
	})
}
