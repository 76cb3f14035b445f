package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"renalscan/config"
	"renalscan/controllers"
	"renalscan/routes"
	"renalscan/services"
	"renalscan/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	logger, err := config.NewLogger(cfg)
	if err != nil {
		logger = zap.NewExample()
		logger.Warn("zap config failed, using example logger", zap.Error(err))
	}
	defer logger.Sync()

	if !cfg.Development() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx := context.Background()
	if err := config.InitDB(cfg); err != nil {
		logger.Fatal("database init failed", zap.Error(err))
	}
	if err := utils.InitS3(ctx); err != nil {
		logger.Fatal("s3 init failed", zap.Error(err))
	}
	if err := utils.InitMailer(ctx); err != nil {
		logger.Fatal("ses init failed", zap.Error(err))
	}

	rek, err := services.NewRekognitionService(ctx, cfg.AWSRegion)
	if err != nil {
		logger.Fatal("rekognition init failed", zap.Error(err))
	}
	push, err := services.NewPushService(ctx, config.DB, logger)
	if err != nil {
		logger.Fatal("sns init failed", zap.Error(err))
	}
	hub := services.NewRealtimeHub()
	services.InitAlertDeps(config.DB, hub, push, logger)

	var src services.HistorySource
	if cfg.HistoryAPIURL != "" {
		logger.Info("history from upstream API", zap.String("base_url", cfg.HistoryAPIURL))
		src = services.NewUpstreamHistoryClient(cfg.HistoryAPIURL, logger)
	} else {
		src = services.NewStoreHistorySource(config.DB)
	}
	history := services.NewHistoryService(src, utils.ImageURL, logger)

	scans := services.NewScanService(
		config.DB,
		services.ImageStoreFunc(utils.UploadAnalysisImage),
		rek,
		services.NewEdamamService(),
		services.NewRecService(logger),
		logger,
	)

	if cfg.JWTSecret == "" {
		logger.Fatal("JWT_SECRET not set")
	}

	deps := routes.Deps{
		Log:       logger,
		JWTSecret: cfg.JWTSecret,
		Analyses:  controllers.NewAnalysisController(history),
		Scans:     controllers.NewScanController(scans),
		Devices:   controllers.NewDeviceController(push),
		Realtime:  controllers.NewRealtimeController(hub),
	}
	if cfg.Development() {
		deps.Dev = controllers.NewDevController()
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: routes.SetupRouter(deps),
	}

	go func() {
		logger.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("forced shutdown", zap.Error(err))
	}
	logger.Info("server exited")
}
