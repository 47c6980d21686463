package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/houzhh15/meetassist/cmd/server/internal/api"
	"github.com/houzhh15/meetassist/cmd/server/internal/audit"
	"github.com/houzhh15/meetassist/cmd/server/internal/config"
	"github.com/houzhh15/meetassist/cmd/server/internal/inference"
	"github.com/houzhh15/meetassist/cmd/server/internal/inference/degradation"
	"github.com/houzhh15/meetassist/cmd/server/internal/inference/health"
	"github.com/houzhh15/meetassist/cmd/server/internal/limiter"
	"github.com/houzhh15/meetassist/cmd/server/internal/middleware"
	"github.com/houzhh15/meetassist/cmd/server/internal/orchestrator"
	"github.com/houzhh15/meetassist/cmd/server/internal/session"
	"github.com/houzhh15/meetassist/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logEnv := cfg.Server.Env
	if strings.EqualFold(cfg.Log.Format, "json") {
		logEnv = "production"
	}
	logInstance, err := logger.Init(logger.Config{
		Level:       cfg.Log.Level,
		Environment: logEnv,
		WithSource:  !cfg.IsProduction(),
		FilePath:    cfg.Log.File,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	appLogger := logInstance.With("component", "meetassist-server")

	// Validate configuration
	if err := config.ValidateConfig(cfg); err != nil {
		appLogger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	appLogger.Info("configuration loaded", "env", cfg.Server.Env, "port", cfg.Server.Port)
	appLogger.Debug(cfg.PrintConfig())

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	// Inference: primary HTTP adapter, degraded fallback, health checker
	primary := inference.NewHTTPAdapter(cfg.Inference.WhisperURL, cfg.Inference.WhisperModel, cfg.Inference.NLPURL)
	fallback := inference.NewDegradedAdapter(logInstance.With("component", "degraded-adapter"))
	healthChecker := health.NewHealthChecker(primary, cfg.Inference.HealthInterval, cfg.Inference.FailThreshold,
		logInstance.With("component", "health-checker"))
	controller := degradation.NewDegradationController(primary, fallback, healthChecker,
		logInstance.With("component", "degradation"))

	rootCtx, stopBackground := context.WithCancel(context.Background())
	defer stopBackground()
	go healthChecker.Start(rootCtx)

	// Audit log
	var auditLogger audit.AuditLogger = audit.NopAuditLogger{}
	if cfg.Audit.Path != "" {
		fileAudit := audit.NewFileAuditLogger(cfg.Audit.Path)
		defer fileAudit.Close()
		auditLogger = fileAudit
		appLogger.Info("audit log ready", "path", cfg.Audit.Path)
	}

	state := session.New(session.Options{SimhashDistance: cfg.Dedup.SimhashDistance})
	agg := orchestrator.New(state, controller,
		limiter.New(cfg.Limiter.MaxConcurrent, cfg.Limiter.AcquireTimeout),
		orchestrator.Options{
			Timeout:         cfg.Inference.Timeout,
			ContextSegments: cfg.Assistant.ContextSegments,
			Audit:           auditLogger,
		},
		logInstance.With("component", "aggregator"))

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	api.RegisterRoutes(r, api.Deps{
		Aggregator: agg,
		Controller: controller,
		Health:     healthChecker,
		Env:        cfg.Server.Env,
		StartTime:  time.Now(),
	})
	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, api.ErrorBody{Error: "NOT_FOUND", Message: "endpoint not found"})
	})

	// Create HTTP server with graceful shutdown
	srv := &http.Server{
		Addr:              cfg.GetServerAddr(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		appLogger.Info("server starting", "addr", srv.Addr, "env", cfg.Server.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	<-quit
	appLogger.Info("shutdown signal received, shutting down server...")

	healthChecker.Stop()
	stopBackground()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}
	appLogger.Info("server shutdown complete")
}
