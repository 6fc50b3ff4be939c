// File: internal/app/server.go
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"launchpad_backend/internal/auth"
	"launchpad_backend/internal/badge"
	"launchpad_backend/internal/category"
	"launchpad_backend/internal/config"
	"launchpad_backend/internal/email"
	"launchpad_backend/internal/filestorage"
	"launchpad_backend/internal/jobs"
	"launchpad_backend/internal/middleware"
	"launchpad_backend/internal/moderation"
	"launchpad_backend/internal/notification"
	"launchpad_backend/internal/payment"
	"launchpad_backend/internal/platform/metrics"
	"launchpad_backend/internal/platform/ratelimit"
	"launchpad_backend/internal/product"
	"launchpad_backend/internal/search"
	"launchpad_backend/internal/user"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Handlers groups every HTTP handler mounted by the server.
type Handlers struct {
	Auth         *auth.Handler
	User         *user.Handler
	Product      *product.Handler
	Search       *search.Handler
	Moderation   *moderation.Handler
	Category     *category.Handler
	Notification *notification.Handler
	Upload       *filestorage.Handler
	Payment      *payment.Handler
	Badge        *badge.Handler
}

// Server struct holds the dependencies for the HTTP server.
type Server struct {
	httpServer *http.Server
	router     *gin.Engine
	cfg        *config.Config
	logger     *zap.Logger
	relay      *email.Relay

	// Jobs
	uploadGCJob *jobs.UploadGCJob
}

// NewServer creates a new instance of our application server.
func NewServer(
	cfg *config.Config,
	logger *zap.Logger,
	handlers Handlers,
	authenticator *middleware.Authenticator,
	limiter ratelimit.Limiter,
	registry *prometheus.Registry,
	recorder metrics.Recorder,
	relay *email.Relay,
	uploadGCJob *jobs.UploadGCJob,
) (*Server, error) {
	gin.SetMode(cfg.GinMode)
	router := gin.New()

	// --- Global Middleware ---
	router.Use(middleware.ZapLogger(logger, cfg))
	router.Use(middleware.Metrics(recorder))
	router.Use(middleware.ErrorHandler(logger))
	router.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORSOrigins
	if len(corsConfig.AllowOrigins) == 0 || corsConfig.AllowOrigins[0] == "*" {
		corsConfig.AllowOrigins = nil
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", "If-Match", middleware.RequestIDHeader}
	corsConfig.ExposeHeaders = []string{"Content-Length", "ETag", "Retry-After", middleware.RequestIDHeader}
	router.Use(cors.New(corsConfig))

	authMW := authenticator.Required()
	optionalAuthMW := authenticator.Optional()
	adminMW := middleware.AdminOnly()
	limitMW := middleware.RateLimit(limiter, logger.Named("RateLimit"))

	// --- Setup Routes ---
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "UP", "message": "Launchpad API is healthy!"})
	})
	if cfg.MetricsEnabled && registry != nil {
		router.GET("/metrics", gin.WrapH(metrics.Handler(registry)))
	}
	if cfg.StorageBackend == "local" {
		router.Static("/uploads", cfg.StorageLocalPath)
	}

	v1 := router.Group("/api/v1")

	handlers.Auth.RegisterRoutes(v1, authMW, limitMW)
	handlers.User.RegisterRoutes(v1, authMW, adminMW)
	handlers.Search.RegisterRoutes(v1)
	handlers.Product.RegisterRoutes(v1, product.Middlewares{
		Auth:         authMW,
		OptionalAuth: optionalAuthMW,
		Admin:        adminMW,
		WriteLimit:   limitMW,
	})
	handlers.Moderation.RegisterRoutes(v1.Group("/admin", authMW, adminMW))
	handlers.Category.RegisterRoutes(v1)
	handlers.Notification.RegisterRoutes(v1.Group("/notifications", authMW))
	handlers.Upload.RegisterRoutes(v1, authMW, limitMW)
	handlers.Payment.RegisterRoutes(v1, authMW)

	// Badges live outside the versioned API.
	handlers.Badge.RegisterRoutes(router.Group("/api"))

	addr := fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.ServerPort)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return &Server{
		httpServer:  httpServer,
		router:      router,
		cfg:         cfg,
		logger:      logger,
		relay:       relay,
		uploadGCJob: uploadGCJob,
	}, nil
}

// Router exposes the configured engine.
func (s *Server) Router() *gin.Engine {
	return s.router
}

func (s *Server) Start() error {
	if s.uploadGCJob != nil {
		if err := s.uploadGCJob.SetupAndStart(); err != nil {
			s.logger.Error("Failed to setup and start upload GC job", zap.Error(err))
		}
	} else {
		s.logger.Info("Upload GC job is not configured, skipping start.")
	}

	s.logger.Info("HTTP Server starting",
		zap.String("address", s.httpServer.Addr),
		zap.String("gin_mode", s.cfg.GinMode),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		s.logger.Error("Failed to start HTTP server", zap.Error(err))
		return err
	}
	s.logger.Info("HTTP Server stopped")
	return nil
}

// Shutdown stops accepting requests, then drains the cron scheduler and queued email.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Attempting graceful server shutdown...")
	err := s.httpServer.Shutdown(ctx)
	if s.uploadGCJob != nil {
		s.uploadGCJob.Stop()
	}
	if s.relay != nil {
		done := make(chan struct{})
		go func() {
			s.relay.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-ctx.Done():
			s.logger.Warn("Timed out waiting for queued email")
		}
	}
	return err
}
