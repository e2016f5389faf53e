// Package server exposes the state of the pollers over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/IIP-Design/orchestra/internal/poller"
)

// Scheduler is the part of *poller.Scheduler the server uses.
type Scheduler interface {
	Status() []poller.Status
	Trigger(ctx context.Context, name string) (bool, error)
}

// Server holds the dependencies for the status endpoint.
type Server struct {
	sched   Scheduler
	env     string
	logger  *slog.Logger
	started time.Time
	mux     *http.ServeMux
}

// New creates a Server reporting on sched.
func New(sched Scheduler, env string, logger *slog.Logger) *Server {
	s := &Server{
		sched:   sched,
		env:     env,
		logger:  logger,
		started: time.Now(),
		mux:     http.NewServeMux(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("server: listen %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled. It returns only after requests
// in progress have completed or the shutdown timeout expired.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{Handler: s, ReadHeaderTimeout: 10 * time.Second}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("server: listening", "addr", ln.Addr().String())
		errc <- srv.Serve(ln)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
