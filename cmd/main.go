package main

import (
	"storerate-service/internal/handler"
	"storerate-service/internal/middleware"
	"storerate-service/internal/model"
	"storerate-service/pkg/config"
	"storerate-service/pkg/database"
	"storerate-service/pkg/jwtutil"
	"storerate-service/pkg/logger"
	"storerate-service/prometheus"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

func main() {
	// Load configuration from .env file and environment variables
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger with config
	logger.InitLogger(cfg)
	log := logger.GetLogger()
	log.Info("Starting store rating service...", cfg.LogConfig()...)

	// Initialize database
	if err := database.InitDB(cfg); err != nil {
		log.Fatal("Failed to initialize database", zap.Error(err))
	}
	log.Info("Database connection established")

	// Initialize JWT utility
	jwtutil.Initialize(&cfg.JWT)
	log.Info("JWT utility initialized")

	// Initialize Prometheus metrics
	prometheus.InitMetrics(cfg)
	log.Info("Prometheus metrics initialized")

	// Initialize Echo framework
	e := echo.New()

	// Apply global middleware - order matters
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())
	e.Use(middleware.RequestIDMiddleware)
	e.Use(logger.Middleware(log))
	e.Use(prometheus.MetricsMiddleware())

	// Public routes - no authentication required
	e.GET("/health", handler.HealthCheck)
	e.GET("/metrics", handler.MetricsHandler)

	// Authentication routes
	auth := e.Group("/auth")
	auth.POST("/register", handler.Register)
	auth.POST("/login", handler.Login)
	auth.PUT("/password", handler.ChangePassword, middleware.AuthMiddleware)
	auth.GET("/profile", handler.GetProfile, middleware.AuthMiddleware)

	// Store routes - listing and lookup are public, mutation is admin only
	stores := e.Group("/stores")
	stores.GET("", handler.ListStores)
	stores.GET("/:id", handler.GetStore)
	adminOnly := []echo.MiddlewareFunc{middleware.AuthMiddleware, middleware.RequireRole(model.RoleAdmin)}
	stores.POST("", handler.CreateStore, adminOnly...)
	stores.PUT("/:id", handler.UpdateStore, adminOnly...)
	stores.DELETE("/:id", handler.DeleteStore, adminOnly...)

	// Rating routes - all require authentication
	ratings := e.Group("/ratings", middleware.AuthMiddleware)
	ratings.POST("", handler.SubmitRating)
	ratings.GET("/user/:storeId", handler.GetUserRating)
	ratings.GET("/store/:storeId", handler.GetStoreRatings,
		middleware.RequireRole(model.RoleStoreOwner, model.RoleAdmin))
	ratings.DELETE("/:id", handler.DeleteRating)

	// Admin routes
	admin := e.Group("/admin", adminOnly...)
	admin.GET("/dashboard", handler.Dashboard)
	admin.GET("/users", handler.ListUsers)
	admin.GET("/stores", handler.ListStoresAdmin)
	admin.POST("/users", handler.CreateUser)
	admin.GET("/users/:id", handler.GetUser)
	admin.PUT("/users/:id", handler.UpdateUser)
	admin.DELETE("/users/:id", handler.DeleteUser)

	// Start server
	port := cfg.Server.Port
	log.Info("Starting server", zap.String("port", port))
	if err := e.Start(":" + port); err != nil {
		log.Fatal("Failed to start server", zap.Error(err))
	}
}
