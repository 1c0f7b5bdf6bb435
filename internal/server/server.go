// Package server assembles the gin engine and the HTTP server lifecycle.
package server

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"imagetrans/configs"
	"imagetrans/internal/handler"
	"imagetrans/internal/logger"
	"imagetrans/internal/middleware"
)

// Version is stamped at build time.
var Version = "dev"

// Server wraps the gin engine.
type Server struct {
	engine     *gin.Engine
	config     configs.ServerConfig
	httpServer *http.Server
}

// NewServer creates the HTTP server with all routes registered.
func NewServer(cfg configs.ServerConfig, h *handler.Handler) *Server {
	engine := gin.New()

	engine.Use(middleware.RequestLogger())
	engine.Use(middleware.Recovery())
	engine.Use(middleware.CORS())

	s := &Server{
		engine: engine,
		config: cfg,
	}
	s.registerRoutes(engine, h)
	return s
}

func (s *Server) registerRoutes(engine *gin.Engine, h *handler.Handler) {
	engine.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "Image Translation Gateway %s", Version)
	})
	engine.GET("/status/v1", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"version": Version})
	})
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	mit := engine.Group("/mit")
	{
		mit.GET("/worker_ws", h.WorkerWS)
	}

	task := engine.Group("/task")
	{
		task.PUT("/upload/v1", h.UploadPutV1)
		task.POST("/upload/v1", h.UploadPostV1)
		task.PUT("/twitter/v1", h.TwitterPutV1)
		task.POST("/twitter/v1", h.TwitterPostV1)
		task.PUT("/pixiv/v1", h.PixivPutV1)
		task.POST("/pixiv/v1", h.PixivPostV1)

		task.GET("/:id/status/v1", h.StatusV1)
		task.GET("/:id/event/v1", h.EventV1)
	}
}

// ListenAndServe starts the HTTP server and blocks until it stops.
func (s *Server) ListenAndServe() error {
	s.httpServer = &http.Server{
		Addr:    s.config.Address(),
		Handler: s.engine,
	}

	logger.Get().Info("listening", zap.String("addr", s.config.Address()))
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
