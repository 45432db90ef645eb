package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/kbukum/scribe/logger"
	"github.com/kbukum/scribe/server/middleware"
)

const drainTimeout = 10 * time.Second

// Server serves the gin engine over HTTP/1.1 and cleartext HTTP/2.
type Server struct {
	cfg    Config
	engine *gin.Engine
	http   *http.Server
	addr   atomic.Pointer[string]
	log    *logger.Logger
}

// New installs recovery, request ids, the body limit and request logging
// ahead of any route.
func New(cfg Config, log *logger.Logger) *Server {
	mode := gin.ReleaseMode
	if zerolog.GlobalLevel() <= zerolog.DebugLevel {
		mode = gin.DebugMode
	}
	gin.SetMode(mode)

	slog := log.WithComponent("server")
	engine := gin.New()
	engine.Use(
		middleware.Recovery(slog),
		middleware.RequestID(),
		middleware.BodyLimit(cfg.MaxBodyBytes),
		middleware.RequestLogger(slog),
	)

	s := &Server{cfg: cfg, engine: engine, log: slog}
	s.http = &http.Server{
		Addr:         cfg.Addr(),
		Handler:      h2c.NewHandler(engine, &http2.Server{IdleTimeout: cfg.IdleTimeout}),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return s
}

func (s *Server) Engine() *gin.Engine { return s.engine }

// ServeMedia publishes dir under cfg.MediaPath. It does nothing without both.
// Files are served whole; query parameters such as preview_seconds are
// ignored.
func (s *Server) ServeMedia(dir string) {
	if s.cfg.MediaPath == "" || dir == "" {
		return
	}
	s.engine.Static(s.cfg.MediaPath, dir)
	s.log.Info("Serving local media", logger.Fields("route", s.cfg.MediaPath, "dir", dir))
}

// Start binds synchronously so a taken port fails startup, then serves in
// the background.
func (s *Server) Start(context.Context) error {
	ln, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.http.Addr, err)
	}
	bound := ln.Addr().String()
	s.addr.Store(&bound)

	go func() {
		if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("HTTP server stopped", logger.Fields(logger.FieldError, err.Error()))
		}
	}()
	s.log.Info("HTTP server listening", logger.Fields("addr", bound))
	return nil
}

// Stop waits for in-flight requests, bounded by drainTimeout.
func (s *Server) Stop(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, drainTimeout)
	defer cancel()
	if err := s.http.Shutdown(ctx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	s.addr.Store(nil)
	s.log.Info("HTTP server stopped")
	return nil
}

// Addr is the bound address after Start and the configured one before.
func (s *Server) Addr() string {
	if a := s.addr.Load(); a != nil {
		return *a
	}
	return s.http.Addr
}

// Listening reports whether Start has bound the port.
func (s *Server) Listening() bool { return s.addr.Load() != nil }
