package main

import (
	"context"
	"log"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/chapterly/storefront/internal/pkg/config"
	"github.com/chapterly/storefront/internal/server"
	"github.com/chapterly/storefront/pkg/logger"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Error loading .env file, using environment variables")
	}

	// Initialize logger
	zapLogger, err := logger.Init(zapcore.InfoLevel, zap.String("service", "chapterly-storefront"))
	if err != nil {
		return err
	}
	defer zapLogger.Sync()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Initialize observability
	otelShutdown, err := server.InitObservability("chapterly-storefront", cfg.MetricsAddr, zapLogger)
	if err != nil {
		return err
	}
	defer func() {
		if err := otelShutdown(context.Background()); err != nil {
			zapLogger.Error("Failed to shutdown OpenTelemetry", zap.Error(err))
		}
	}()

	// Create server
	srv, err := server.New(cfg, zapLogger)
	if err != nil {
		return err
	}
	defer srv.Close()

	// Setup router
	router := srv.SetupRouter()

	// Setup templates and assets
	if err := server.SetupTemplates(router, WebFS); err != nil {
		zapLogger.Error("Failed to setup templates", zap.Error(err))
		return err
	}
	if err := server.SetupAssets(router, WebFS); err != nil {
		zapLogger.Error("Failed to setup assets", zap.Error(err))
		return err
	}

	// Set the router on the server
	srv.SetRouter(router)

	// Start pprof server (on separate port, not exposed publicly)
	server.StartPprofServer(cfg.PprofAddr, zapLogger)

	// Create HTTP server
	httpServer := srv.HTTPServer()

	// Setup graceful shutdown
	done := make(chan bool, 1)
	go server.GracefulShutdown(httpServer, zapLogger, done)

	// Start server
	zapLogger.Info("Server starting", zap.String("port", cfg.ServerPort))
	if err := httpServer.ListenAndServe(); err != nil {
		zapLogger.Error("Server error", zap.Error(err))
	}

	// Wait for graceful shutdown to complete
	<-done
	zapLogger.Info("Graceful shutdown complete")

	return nil
}
