// cmd/server/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	_ "serial-service/docs"
	"serial-service/internal/config"
	"serial-service/internal/routes"
	"serial-service/internal/serialport"
	"serial-service/internal/utils"
)

// Application represents the main application
type Application struct {
	config  *config.Config
	logger  *zap.Logger
	server  *http.Server
	manager *serialport.Manager
}

// @title Serial Service API
// @version 1.0.0
// @description Serial port management service with framed message streaming over SSE and WebSocket
// @termsOfService http://swagger.io/terms/

// @contact.name Serial Service API Support

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8090
// @BasePath /api/v1
func main() {
	// Initialize application
	app, err := NewApplication()
	if err != nil {
		fmt.Printf("Failed to initialize application: %v\n", err)
		os.Exit(1)
	}

	// Start the application
	if err := app.Start(); err != nil {
		app.logger.Fatal("Failed to start application", zap.Error(err))
	}
}

// NewApplication creates a new application instance
func NewApplication() (*Application, error) {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	// Initialize logger
	logger, err := utils.NewLogger(&cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	// Create service logger
	serviceLogger := utils.NewServiceLogger(logger, "serial-service")
	serviceLogger.LogServiceStart(cfg.App.Version)

	app := &Application{
		config: cfg,
		logger: logger,
	}

	// Initialize components
	if err := app.initializeSerialManager(); err != nil {
		return nil, fmt.Errorf("failed to initialize serial manager: %w", err)
	}

	if err := app.initializeServer(); err != nil {
		return nil, fmt.Errorf("failed to initialize server: %w", err)
	}

	return app, nil
}

// initializeSerialManager sets up the serial transport, broadcast hub, and
// the port session manager on top of them.
func (app *Application) initializeSerialManager() error {
	serialCfg := serialport.Config{
		ReadTimeout:      app.config.Serial.ReadTimeout,
		ReadBufferSize:   app.config.Serial.ReadBufferSize,
		SubscriberBuffer: app.config.Serial.SubscriberBuffer,
	}

	var transport serialport.Transport
	if app.config.Serial.Mock {
		transport = serialport.NewMockTransport(
			serialport.PortDescriptor{SystemName: "/dev/ttyMOCK0", DescriptiveName: "Mock Serial Port"},
		)
		app.logger.Warn("Using mock serial transport")
	} else {
		transport = serialport.NewSerialTransport(serialCfg)
	}

	hub := serialport.NewHub(app.config.Serial.SubscriberBuffer, app.logger)
	app.manager = serialport.NewManager(transport, hub, serialCfg, app.logger)

	app.logger.Info("Serial manager initialized",
		zap.Duration("read_timeout", serialCfg.ReadTimeout),
		zap.Int("read_buffer_size", serialCfg.ReadBufferSize),
		zap.Int("subscriber_buffer", serialCfg.SubscriberBuffer),
	)
	return nil
}

// initializeServer sets up HTTP server and routes
func (app *Application) initializeServer() error {
	// Create router
	routerManager := routes.NewRouter(app.config, app.logger, app.manager)

	// Setup router with all routes
	router := routerManager.SetupRouter()

	// Create HTTP server
	app.server = &http.Server{
		Addr:         app.config.GetServerAddr(),
		Handler:      router,
		ReadTimeout:  app.config.Server.ReadTimeout,
		WriteTimeout: app.config.Server.WriteTimeout,
		IdleTimeout:  app.config.Server.IdleTimeout,
	}

	app.logger.Info("HTTP server initialized",
		zap.String("address", app.config.GetServerAddr()),
	)

	return nil
}

// waitForShutdown waits for shutdown signal and performs graceful shutdown
func (app *Application) waitForShutdown() {
	// Create channel to receive OS signals
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	// Wait for signal
	sig := <-quit
	app.logger.Info("Received shutdown signal", zap.String("signal", sig.String()))

	// Perform graceful shutdown
	app.shutdown()
}

// shutdown performs graceful shutdown
func (app *Application) shutdown() {
	serviceLogger := utils.NewServiceLogger(app.logger, "serial-service")
	serviceLogger.LogServiceStop("shutdown signal received")

	// Shutdown HTTP server
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("HTTP server shutdown error", zap.Error(err))
	} else {
		app.logger.Info("HTTP server stopped")
	}

	// Stop listeners and release every open port
	if app.manager != nil {
		app.manager.Shutdown()
		app.logger.Info("Serial sessions closed")
	}

	// Flush logger
	if err := utils.CloseLogger(app.logger); err != nil {
		fmt.Printf("Logger close error: %v\n", err)
	}

	app.logger.Info("Application shutdown completed")
}

func (app *Application) Start() error {
	// Start server in goroutine
	go func() {
		app.logger.Info("Starting HTTP server",
			zap.String("address", app.server.Addr),
		)

		if err := app.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			app.logger.Fatal("Failed to start HTTP server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	app.waitForShutdown()

	return nil
}
