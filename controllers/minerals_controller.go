package controllers

import (
	"net/http"
	"strconv"

	"renalscan/services"
	"renalscan/utils"

	"github.com/gin-gonic/gin"
)

func GetThresholds(c *gin.Context) {
	out := make([]gin.H, 0, len(utils.Minerals))
	for _, m := range utils.Minerals {
		lim := utils.DefaultThresholds[m]
		out = append(out, gin.H{
			"mineral":        m,
			"warning_limit":  lim.WarningLimit,
			"max_limit":      lim.MaxLimit,
			"warning_marker": utils.DefaultThresholds.WarningMarker(m),
		})
	}
	c.JSON(http.StatusOK, gin.H{"thresholds": out})
}

func ClassifyMineral(c *gin.Context) {
	m, ok := utils.ParseMineral(c.Query("mineral"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "mineral must be sodium, potassium or phosphorus"})
		return
	}
	v, err := strconv.ParseFloat(c.Query("value"), 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "value must be a number"})
		return
	}
	c.JSON(http.StatusOK, services.NewMineralRow(m, v))
}
