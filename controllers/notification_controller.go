package controllers

import (
	"net/http"
	"strconv"

	"renalscan/config"
	"renalscan/middlewares"
	"renalscan/models"

	"github.com/gin-gonic/gin"
)

type toggleReq struct {
	Enabled bool `json:"enabled"`
}

// POST /notifications/toggle
func ToggleNotifications(c *gin.Context) {
	personID := middlewares.PersonID(c)

	var req toggleReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}

	// update all devices for this person
	if err := config.DB.Model(&models.UserDevice{}).
		Where("person_id = ?", personID).
		Update("enabled", req.Enabled).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "notifications updated",
		"enabled": req.Enabled,
	})
}

// GET /alerts?limit=
func ListAlerts(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit <= 0 || limit > 100 {
		limit = 20
	}

	alerts := make([]models.Alert, 0)
	if err := config.DB.WithContext(c.Request.Context()).
		Where("person_id = ?", middlewares.PersonID(c)).
		Order("created_at DESC").
		Limit(limit).
		Find(&alerts).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"alerts": alerts})
}
