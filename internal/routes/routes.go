// internal/routes/routes.go
package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerfiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"serial-service/internal/config"
	"serial-service/internal/handler"
	"serial-service/internal/middleware"
	"serial-service/internal/serialport"
	"serial-service/internal/utils"
)

// Router holds all dependencies for routing
type Router struct {
	config  *config.Config
	logger  *zap.Logger
	manager *serialport.Manager
}

// NewRouter creates a new router instance
func NewRouter(config *config.Config, logger *zap.Logger, manager *serialport.Manager) *Router {
	return &Router{
		config:  config,
		logger:  logger,
		manager: manager,
	}
}

// SetupRouter creates and configures the Gin router
func (r *Router) SetupRouter() *gin.Engine {
	// Set Gin mode
	if r.config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	// Create Gin engine
	router := gin.New()

	// Add middleware
	r.addMiddleware(router)

	// Add routes
	r.addRoutes(router)

	return router
}

// addMiddleware adds middleware to the router
func (r *Router) addMiddleware(router *gin.Engine) {
	// Recovery middleware
	router.Use(middleware.RecoveryMiddleware(r.logger))

	// Request ID middleware
	router.Use(middleware.RequestIDMiddleware())

	// Logging middleware
	serviceLogger := utils.NewServiceLogger(r.logger, "http-server")
	router.Use(middleware.LoggingMiddleware(serviceLogger))

	// CORS middleware
	router.Use(middleware.CORSMiddleware(&r.config.Security))

	r.logger.Info("Middleware configured")
}

// addRoutes sets up all application routes
func (r *Router) addRoutes(router *gin.Engine) {
	// Create handlers
	healthHandler := handler.NewHealthHandler(r.manager, r.config, r.logger)
	serialHandler := handler.NewSerialHandler(r.manager, r.logger)
	wsHandler := handler.NewWebSocketHandler(r.manager, r.logger)

	// Health check routes
	r.addHealthRoutes(router, healthHandler)

	// API v1 routes
	apiV1 := router.Group("/api/v1")
	r.addSerialRoutes(apiV1, serialHandler)

	// WebSocket routes
	r.addWebSocketRoutes(router, wsHandler)

	// Documentation routes
	r.addDocumentationRoutes(router)

	r.logger.Info("All routes configured successfully")
}

// addHealthRoutes sets up health check routes
func (r *Router) addHealthRoutes(router *gin.Engine, handler *handler.HealthHandler) {
	health := router.Group("")
	{
		health.GET("/health", handler.HealthCheck)
		health.GET("/ready", handler.ReadinessCheck)
		health.GET("/live", handler.LivenessCheck)
	}
}

// addSerialRoutes sets up serial port lifecycle and streaming routes
func (r *Router) addSerialRoutes(api *gin.RouterGroup, handler *handler.SerialHandler) {
	serial := api.Group("/serial")
	{
		// Port enumeration and status
		serial.GET("/ports", handler.ListPorts)
		serial.GET("/status", handler.PortStatus)

		// Lifecycle
		serial.POST("/open", handler.OpenPort)
		serial.POST("/close", handler.ClosePort)
		serial.POST("/listen", handler.StartListening)
		serial.POST("/listen/stop", handler.StopListening)

		// Streaming
		serial.POST("/open-and-stream", handler.OpenAndStream)
		serial.GET("/stream", handler.Stream)
	}
}

// addWebSocketRoutes sets up WebSocket routes
func (r *Router) addWebSocketRoutes(router *gin.Engine, handler *handler.WebSocketHandler) {
	ws := router.Group("/ws")
	{
		ws.GET("/serial", handler.HandleSerialStream)
	}
}

// addDocumentationRoutes sets up documentation routes
func (r *Router) addDocumentationRoutes(router *gin.Engine) {
	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerfiles.Handler))

	// Swagger redirect for convenience
	router.GET("/docs", func(c *gin.Context) {
		c.Redirect(http.StatusMovedPermanently, "/swagger/index.html")
	})
}
