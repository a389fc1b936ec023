package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"guardline-hq/bastion/pkg/config"
)

// Server is the HTTP front of the scan service. It wraps a stdlib http.Server
// with signal handling and graceful shutdown.
type Server struct {
	cfg     config.ServerConfig
	handler http.Handler

	httpServer *http.Server

	mu           sync.Mutex
	isRunning    bool
	stopOnce     sync.Once
	shutdownChan chan struct{}
}

// NewServer creates a server for the given handler. The handler is typically
// built with NewHandler.
func NewServer(cfg config.ServerConfig, handler http.Handler) *Server {
	return &Server{
		cfg:          cfg,
		handler:      handler,
		shutdownChan: make(chan struct{}),
	}
}

// Start runs the server and blocks until the context is cancelled, a
// termination signal arrives, Stop is called, or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return fmt.Errorf("server is already running")
	}

	s.httpServer = &http.Server{
		Addr:           s.cfg.ListenAddress,
		Handler:        s.handler,
		ReadTimeout:    s.cfg.ReadTimeout,
		WriteTimeout:   s.cfg.WriteTimeout,
		IdleTimeout:    s.cfg.IdleTimeout,
		MaxHeaderBytes: s.cfg.MaxHeaderBytes,
	}
	s.isRunning = true
	s.mu.Unlock()

	errChan := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	slog.Info("server listening", "address", s.cfg.ListenAddress)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case <-ctx.Done():
		slog.Info("context cancelled, shutting down")
		return s.Shutdown(context.Background())

	case sig := <-sigChan:
		slog.Info("signal received, shutting down", "signal", sig.String())
		return s.Shutdown(context.Background())

	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)

	case <-s.shutdownChan:
		slog.Info("shutdown requested")
		return s.Shutdown(context.Background())
	}
}

// Stop asks a running Start call to shut the server down. It is safe to call
// from any goroutine and more than once.
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		close(s.shutdownChan)
	})
}

// Shutdown gracefully drains in-flight requests, bounded by the configured
// shutdown timeout.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	server := s.httpServer
	s.mu.Unlock()

	slog.Info("initiating graceful shutdown", "timeout", s.cfg.ShutdownTimeout.String())

	shutdownCtx := ctx
	if s.cfg.ShutdownTimeout > 0 {
		var cancel context.CancelFunc
		shutdownCtx, cancel = context.WithTimeout(ctx, s.cfg.ShutdownTimeout)
		defer cancel()
	}

	if server != nil {
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("error during server shutdown", "error", err)
			return fmt.Errorf("server shutdown error: %w", err)
		}
	}

	slog.Info("server stopped")
	return nil
}
