// Package api exposes the classifier over HTTP with gin.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/vhl-acmg-classifier/internal/domain"
	"github.com/vhl-acmg-classifier/internal/feedback"
	"github.com/vhl-acmg-classifier/internal/middleware"
	"github.com/vhl-acmg-classifier/internal/service"
)

// Version is reported by the health endpoint.
const Version = "1.0.0"

// Server represents the HTTP server
type Server struct {
	config     domain.ServerConfig
	logger     *logrus.Logger
	classifier *service.ClassifierService
	feedback   feedback.Store
	router     *gin.Engine
	server     *http.Server
}

// NewServer creates a new HTTP server instance. A nil feedback store disables
// the feedback routes, which then answer 503.
func NewServer(cfg domain.ServerConfig, logging domain.LoggingConfig, logger *logrus.Logger, classifier *service.ClassifierService, store feedback.Store) *Server {
	if logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.RequestLogger(logger))
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.CORS())
	router.Use(middleware.RequestTimeout(cfg.RequestTimeout))

	s := &Server{
		config:     cfg,
		logger:     logger,
		classifier: classifier,
		feedback:   store,
		router:     router,
	}
	s.setupRoutes()
	return s
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("addr", addr).Info("HTTP server listening")
		var err error
		if s.config.TLSEnabled {
			err = s.server.ListenAndServeTLS(s.config.CertFile, s.config.KeyFile)
		} else {
			err = s.server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	s.logger.Info("Shutting down HTTP server")
	return s.server.Shutdown(shutdownCtx)
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	v1 := s.router.Group("/api/v1")
	{
		v1.POST("/classify", s.handleClassify)
		v1.POST("/evidence/:code", s.handleEvaluate)
		v1.POST("/combine", s.handleCombine)
		v1.GET("/tables", s.handleTables)
		v1.POST("/feedback", s.handleSubmitFeedback)
		v1.GET("/feedback", s.handleGetFeedback)
	}
}
