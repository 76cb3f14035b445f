package controllers

import (
	"errors"
	"net/http"

	"renalscan/middlewares"
	"renalscan/services"
	"renalscan/utils"

	"github.com/gin-gonic/gin"
)

type ScanController struct {
	Scans *services.ScanService
}

// constructor
func NewScanController(s *services.ScanService) *ScanController {
	return &ScanController{Scans: s}
}

func (sc *ScanController) Scan(c *gin.Context) {
	var req services.ScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := sc.Scans.Scan(c.Request.Context(), middlewares.PersonID(c), req)
	switch {
	case err == nil:
		c.JSON(http.StatusCreated, res)
	case errors.Is(err, utils.ErrInvalidImage):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrNoFoodDetected):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	default:
		_ = c.Error(err)
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	}
}
