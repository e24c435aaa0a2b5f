// Package server exposes the media pipeline over HTTP for chat clients.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"mira/internal/config"
	"mira/internal/pipeline"
)

// Server wraps the gin engine and the processing pipeline.
type Server struct {
	pipeline   *pipeline.Pipeline
	logger     *slog.Logger
	engine     *gin.Engine
	httpServer *http.Server
	hub        *eventHub
	startTime  time.Time
}

// New builds the HTTP server around an already-wired pipeline.
func New(cfg config.ServerConfig, p *pipeline.Pipeline, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	if cfg.EnableCORS {
		corsCfg := cors.DefaultConfig()
		if len(cfg.AllowedOrigins) > 0 {
			corsCfg.AllowOrigins = cfg.AllowedOrigins
		} else {
			corsCfg.AllowAllOrigins = true
		}
		corsCfg.AllowHeaders = append(corsCfg.AllowHeaders, "Authorization")
		engine.Use(cors.New(corsCfg))
	}

	s := &Server{
		pipeline:  p,
		logger:    logger,
		engine:    engine,
		hub:       newEventHub(logger),
		startTime: time.Now(),
	}
	s.registerRoutes()

	s.httpServer = &http.Server{
		Addr:         cfg.Addr(),
		Handler:      engine,
		ReadTimeout:  cfg.ReadTimeout.Std(),
		WriteTimeout: cfg.WriteTimeout.Std(),
	}
	return s
}

func (s *Server) registerRoutes() {
	api := s.engine.Group("/api")
	api.POST("/media/process", s.handleProcessMedia)
	api.GET("/media/events", s.handleEvents)
	api.GET("/health", s.handleHealth)

	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// Start serves until Shutdown is called or the listener fails.
func (s *Server) Start() error {
	s.logger.Info("http server listening", slog.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and closes event subscribers.
func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.close()
	return s.httpServer.Shutdown(ctx)
}

// Handler exposes the underlying engine for tests.
func (s *Server) Handler() http.Handler { return s.engine }
