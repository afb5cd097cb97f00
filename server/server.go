// Package server exposes the connection status and the target list over
// HTTP, and streams status updates over a WebSocket.
package server

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/digineo/go-pinger/monitor"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const shutdownTimeout = 5 * time.Second

// Server serves the HTTP API of a Coordinator.
type Server struct {
	coord  *monitor.Coordinator
	logger *zap.Logger
	engine *gin.Engine

	done     chan struct{} // closed on shutdown, ends open streams
	doneOnce sync.Once
}

// New creates a server for coord.
func New(coord *monitor.Coordinator, logger *zap.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		coord:  coord,
		logger: logger,
		engine: gin.New(),
		done:   make(chan struct{}),
	}
	s.engine.Use(gin.Recovery(), s.logRequests)
	s.routes()
	return s
}

func (s *Server) routes() {
	api := s.engine.Group("/api")

	api.GET("/status", s.getStatus)
	api.GET("/stream", s.stream)

	api.GET("/targets", s.listTargets)
	api.POST("/targets", s.createTarget)
	api.PUT("/targets/:id", s.updateTarget)
	api.DELETE("/targets/:id", s.deleteTarget)
	api.POST("/targets/:id/toggle", s.toggleTarget)
	api.GET("/targets/:id/history", s.getHistory)

	api.GET("/settings", s.getSettings)
	api.PUT("/settings", s.putSettings)
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run listens on addr until ctx is done.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("addr", addr))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		s.shutdownStreams()
		return err
	case <-ctx.Done():
	}

	s.shutdownStreams()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) shutdownStreams() {
	s.doneOnce.Do(func() { close(s.done) })
}

func (s *Server) logRequests(c *gin.Context) {
	start := time.Now()
	c.Next()

	s.logger.Info("request",
		zap.String("method", c.Request.Method),
		zap.String("path", c.FullPath()),
		zap.Int("status", c.Writer.Status()),
		zap.Duration("duration", time.Since(start)),
		zap.String("remote", c.ClientIP()),
	)
}

func respondError(c *gin.Context, code int, msg string) {
	c.AbortWithStatusJSON(code, gin.H{"status": "error", "error": msg})
}
