package controllers

import (
	"net/http"

	"renalscan/middlewares"
	"renalscan/services"

	"github.com/gin-gonic/gin"
)

// DevController exposes helpers only mounted when APP_ENV=development.
type DevController struct{}

func NewDevController() *DevController {
	return &DevController{}
}

type alertTestReq struct {
	Type    string `json:"type" binding:"omitempty,oneof=warning info"`
	Message string `json:"message"`
}

// AlertTest runs a fake alert through the store, websocket and push fan-out.
func (d *DevController) AlertTest(c *gin.Context) {
	var req alertTestReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// sane defaults for quick tests
	if req.Type == "" {
		req.Type = "info"
	}
	if req.Message == "" {
		req.Message = "This is only a test."
	}

	services.EmitAlert(middlewares.PersonID(c), 0, req.Type, req.Message)
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
