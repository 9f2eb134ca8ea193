package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/hydrosense/analytics/internal/config"
	"github.com/hydrosense/analytics/internal/handlers"
	"github.com/hydrosense/analytics/internal/middleware"
)

// HTTPServer hosts the analytics API.
type HTTPServer struct {
	cfg      config.ServerConfig
	engine   *gin.Engine
	server   *http.Server
	handlers *handlers.AnalyticsHandler
	logger   *zap.Logger
}

// New creates the server with routes and middleware configured.
func New(cfg config.ServerConfig, analyticsHandler *handlers.AnalyticsHandler, logger *zap.Logger) *HTTPServer {
	gin.SetMode(gin.ReleaseMode)

	s := &HTTPServer{
		cfg:      cfg,
		engine:   gin.New(),
		handlers: analyticsHandler,
		logger:   logger,
	}
	s.setupMiddleware()
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         cfg.Addr(),
		Handler:      s.engine,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s
}

func (s *HTTPServer) setupMiddleware() {
	s.engine.Use(gin.Recovery())
	s.engine.Use(middleware.RequestID())
	s.engine.Use(middleware.RequestLogger(s.logger))
	s.engine.Use(cors.New(cors.Config{
		AllowOrigins:     s.cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "X-Request-ID", "X-User-ID"},
		ExposeHeaders:    []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))
}

func (s *HTTPServer) setupRoutes() {
	s.engine.GET("/v1/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := s.engine.Group("/v1/analytics")
	{
		v1.POST("/time-series", s.handlers.GenerateTimeSeries)
		v1.POST("/query", s.handlers.GenerateAnalytics)
		v1.POST("/dashboard", s.handlers.GenerateDashboard)
		v1.DELETE("/dashboard/cache", s.handlers.InvalidateDashboardCache)
		v1.GET("/insights", s.handlers.ListInsights)
		v1.POST("/insights/generate", s.handlers.GenerateInsights)
	}
}

// Start begins serving; blocks until the listener fails or closes.
func (s *HTTPServer) Start() error {
	s.logger.Info("http server listening", zap.String("addr", s.cfg.Addr()))
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server failed: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests within the configured timeout.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.ShutdownTimeout)
	defer cancel()
	return s.server.Shutdown(ctx)
}

// Engine exposes the router for tests.
func (s *HTTPServer) Engine() *gin.Engine {
	return s.engine
}
