package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/agenthands/cogniscan/internal/api"
	"github.com/agenthands/cogniscan/internal/config"
	"github.com/agenthands/cogniscan/internal/logging"
	"github.com/agenthands/cogniscan/internal/platform"
	"github.com/agenthands/cogniscan/internal/server"
	"github.com/agenthands/cogniscan/internal/telemetry"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using defaults")
	}

	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger, err := logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format}, os.Stderr)
	if err != nil {
		log.Fatalf("Failed to configure logging: %v", err)
	}

	ctx := context.Background()
	tel, err := telemetry.Init(telemetry.Config{Enabled: cfg.Telemetry.Enabled, ServiceName: cfg.Telemetry.ServiceName})
	if err != nil {
		log.Fatalf("Failed to initialize telemetry: %v", err)
	}

	auth, err := platform.NewAuthenticator(ctx, cfg.Identity, logger)
	if err != nil {
		log.Fatalf("Failed to initialize identity provider: %v", err)
	}
	docs, err := platform.NewDocstore(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("Failed to initialize document store: %v", err)
	}

	srv, err := server.NewServer(server.Deps{
		Config: cfg,
		Auth:   auth,
		Docs:   docs,
		Backend: server.ClientFactory(cfg.API.BaseURL,
			api.WithMetrics(tel.Metrics),
			api.WithLogger(logger),
			api.WithHTTPClient(&http.Client{Timeout: cfg.API.Timeout.Duration}),
		),
		Telemetry: tel,
		Logger:    logger,
	})
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	gin.SetMode(cfg.Server.Mode)
	go srv.Workspaces.Run(time.Minute)

	httpServer := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           srv.SetupRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("starting server", "port", cfg.Server.Port, "api", cfg.API.BaseURL,
			"identity", cfg.Identity.Provider, "docstore", cfg.Docstore.Backend)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown failed", "error", err)
	}
	srv.Close()
	if err := tel.Shutdown(shutdownCtx); err != nil {
		logger.Error("telemetry shutdown failed", "error", err)
	}
	if err := docs.Close(shutdownCtx); err != nil {
		logger.Error("document store close failed", "error", err)
	}
}
