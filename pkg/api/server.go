package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rzzdr/swap-aad-risk/internal/websocket"
	"github.com/rzzdr/swap-aad-risk/pkg/metrics"
	"github.com/rzzdr/swap-aad-risk/pkg/utils/backpressure"
	"github.com/rzzdr/swap-aad-risk/pkg/utils/logger"
)

// Config holds the configuration for the API server
type Config struct {
	Host           string
	Port           int
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	AllowedOrigins []string
	RateLimit      float64 // Requests per second per client on /swaps, 0 disables
	RateBurst      int
}

// Server represents the API server
type Server struct {
	config     Config
	router     *gin.Engine
	httpServer *http.Server
	handlers   *Handlers
	hub        *websocket.Hub
	recorder   *metrics.Recorder
	log        *logger.Logger
}

// NewServer creates a new API server. hub and recorder may be nil, which
// leaves out the websocket stream and the metrics endpoint.
func NewServer(config Config, handlers *Handlers, hub *websocket.Hub, recorder *metrics.Recorder) *Server {
	if config.ReadTimeout <= 0 {
		config.ReadTimeout = 10 * time.Second
	}

	if config.WriteTimeout <= 0 {
		config.WriteTimeout = 30 * time.Second
	}

	server := &Server{
		config:   config,
		router:   gin.New(),
		handlers: handlers,
		hub:      hub,
		recorder: recorder,
		log:      logger.GetLogger("api.server"),
	}

	server.setupRoutes()

	return server
}

// Router returns the HTTP handler serving every route
func (s *Server) Router() http.Handler {
	return s.router
}

// Start starts the API server and blocks until it is stopped
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	s.log.Infof("Starting API server on %s", addr)

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop stops the API server gracefully
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer != nil {
		s.log.Info("Stopping API server")
		return s.httpServer.Shutdown(ctx)
	}

	return nil
}

func (s *Server) setupRoutes() {
	s.router.Use(ErrorMiddleware())
	s.router.Use(LoggingMiddleware())
	s.router.Use(CORSMiddleware(s.config.AllowedOrigins))
	if s.recorder != nil {
		s.router.Use(MetricsMiddleware(s.recorder))
		s.router.GET("/metrics", gin.WrapH(s.recorder.Handler()))
	}

	if s.hub != nil {
		s.router.GET("/ws/risk", gin.WrapF(s.hub.HandleWebSocket))
	}

	h := s.handlers
	api := s.router.Group("/api/v1")
	api.GET("/health", h.HealthCheckHandler)

	// Stateless valuation
	swaps := api.Group("/swaps")
	if s.config.RateLimit > 0 {
		swaps.Use(RateLimitMiddleware(backpressure.NewClientLimiter(s.config.RateLimit, s.config.RateBurst, 0)))
	}
	swaps.POST("/price", h.PriceHandler)
	swaps.POST("/tangent", h.TangentHandler)
	swaps.POST("/adjoint", h.AdjointHandler)
	swaps.POST("/report", h.ReportHandler)
	swaps.POST("/batch", h.BatchHandler)

	// Stored swaps
	swaps.POST("", h.CreateSwapHandler)
	swaps.GET("", h.ListSwapsHandler)
	swaps.GET("/:id", h.GetSwapHandler)
	swaps.DELETE("/:id", h.DeleteSwapHandler)
	swaps.GET("/:id/report", h.SwapReportHandler)
	swaps.GET("/:id/reports", h.SwapHistoryHandler)

	s.router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Not found",
		})
	})
}
