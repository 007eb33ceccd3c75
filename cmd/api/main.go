package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go-attack-planner/internal/config"
	"go-attack-planner/internal/container"
	"go-attack-planner/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

func main() {
	// Load configuration; a missing API key stops the process here.
	cfg, err := config.LoadFromEnv()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load config")
	}

	gin.SetMode(gin.ReleaseMode)
	if cfg.LogLevel == "debug" {
		gin.SetMode(gin.DebugMode)
	}

	c, err := container.NewContainer(context.Background(), cfg)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize container")
	}

	// Event streams stay open for a whole generation, so the write timeout
	// must outlast the generation timeout.
	writeTimeout := cfg.RequestTimeout
	if cfg.GenerationTimeout+10*time.Second > writeTimeout {
		writeTimeout = cfg.GenerationTimeout + 10*time.Second
	}

	server := &http.Server{
		Addr:         cfg.ServerAddress(),
		Handler:      c.Handler(),
		ReadTimeout:  cfg.RequestTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.WithFields(logrus.Fields{
			"address": cfg.ServerAddress(),
			"timeout": cfg.RequestTimeout,
			"model":   cfg.GeminiModel,
		}).Info("Starting attack planner API")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("Failed to start server")
		}
	}()

	// Sessions live in memory, so a shutdown drops them; running generations
	// still get to finish below.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down attack planner")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}
	c.Close()

	logger.Info("Attack planner stopped")
}
