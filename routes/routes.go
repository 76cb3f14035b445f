package routes

import (
	"net/http"

	"renalscan/controllers"
	"renalscan/middlewares"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Deps struct {
	Log       *zap.Logger
	JWTSecret string
	Analyses  *controllers.AnalysisController
	Scans     *controllers.ScanController
	Devices   *controllers.DeviceController
	Realtime  *controllers.RealtimeController
	// Dev is mounted only when set.
	Dev *controllers.DevController
}

func SetupRouter(d Deps) *gin.Engine {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	r := gin.New()
	r.Use(gin.Recovery(), middlewares.Logger(d.Log))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Public reference data
	minerals := r.Group("/minerals")
	{
		minerals.GET("/thresholds", controllers.GetThresholds)
		minerals.GET("/classify", controllers.ClassifyMineral)
	}

	auth := r.Group("/")
	auth.Use(middlewares.AuthMiddleware(d.JWTSecret))
	{
		auth.GET("/analyses", d.Analyses.List)
		auth.GET("/analyses/:id", d.Analyses.Get)
		auth.POST("/analyses/normalize", d.Analyses.Normalize)
		auth.POST("/analyses/summary", d.Analyses.Summary)
		auth.POST("/analyses/:id/share", d.Analyses.Share)

		auth.POST("/scan", d.Scans.Scan)

		auth.POST("/devices/register", d.Devices.Register)
		auth.POST("/notifications/toggle", controllers.ToggleNotifications)
		auth.GET("/alerts", controllers.ListAlerts)
		auth.GET("/ws/alerts", d.Realtime.AlertsWS)

		if d.Dev != nil {
			auth.POST("/dev/alert-test", d.Dev.AlertTest)
		}
	}

	return r
}
