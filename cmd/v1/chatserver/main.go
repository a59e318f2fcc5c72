package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Vitya28/simple-chat-server/internal/v1/config"
	"github.com/Vitya28/simple-chat-server/internal/v1/health"
	"github.com/Vitya28/simple-chat-server/internal/v1/logging"
	"github.com/Vitya28/simple-chat-server/internal/v1/registry"
	"github.com/Vitya28/simple-chat-server/internal/v1/session"
)

func main() {
	// Load .env file for local development.
	// Try multiple paths to handle different ways of running the app
	envPaths := []string{".env", "../../../.env", "../../.env"}
	for _, path := range envPaths {
		if err := godotenv.Load(path); err == nil {
			break
		}
	}

	cfg, err := config.Load()
	if err != nil {
		logging.GetLogger().Error("configuration invalid", zap.Error(err))
		os.Exit(1)
	}

	if err := logging.Initialize(cfg.Verbose, cfg.LoggingEnabled); err != nil {
		os.Exit(1)
	}
	logger := logging.GetLogger()

	logger.Info("starting chat server",
		zap.Uint16("port", cfg.Port),
		zap.Uint32("max_connections", cfg.MaxConnections),
		zap.Uint32("max_chatrooms", cfg.MaxChatrooms), // advisory only
		zap.Bool("verbose", cfg.Verbose))

	// The registry is constructed once here and shared by reference with
	// every session.
	reg := registry.New()
	srv := session.NewServer(cfg, logger, reg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return srv.Serve(gctx)
	})

	if cfg.MetricsAddr != "" {
		if !cfg.Verbose {
			gin.SetMode(gin.ReleaseMode)
		}
		router := gin.New()
		router.Use(gin.Recovery())

		// Prometheus metrics endpoint
		router.GET("/metrics", gin.WrapH(promhttp.Handler()))

		// Health check endpoints
		healthHandler := health.NewHandler(srv)
		router.GET("/health/live", healthHandler.Liveness)
		router.GET("/health/ready", healthHandler.Readiness)

		admin := &http.Server{
			Addr:    cfg.MetricsAddr,
			Handler: router,
		}

		g.Go(func() error {
			logger.Info("admin server starting", zap.String("addr", cfg.MetricsAddr))
			if err := admin.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return admin.Shutdown(shutdownCtx)
		})
	}

	if err := g.Wait(); err != nil {
		logger.Error("server error", zap.Error(err))
	}

	logger.Info("shutting down")

	// Give live sessions 30 seconds to drain before forcing the exit.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("forced shutdown", zap.Error(err))
	}

	logger.Info("server exiting")
}
