package controllers

import (
	"errors"
	"net/http"

	"renalscan/middlewares"
	"renalscan/services"

	"github.com/gin-gonic/gin"
)

type DeviceController struct {
	Push *services.PushService
}

// constructor
func NewDeviceController(ps *services.PushService) *DeviceController {
	return &DeviceController{Push: ps}
}

func (dc *DeviceController) Register(c *gin.Context) {
	var req services.RegisterDeviceReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	dev, err := dc.Push.RegisterDevice(c.Request.Context(), middlewares.PersonID(c), req.Platform, req.Token)
	if err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, services.ErrUnknownPlatform) {
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"device": dev})
}
