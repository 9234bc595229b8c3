package http

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/tomek7667/sysmon/internal/stats"
)

const shutdownTimeout = 5 * time.Second

// Provider samples the host for the API handlers.
type Provider interface {
	Collect(ctx context.Context) stats.Response
	SystemInfo(ctx context.Context) (stats.SystemInfo, error)
	TopProcesses(ctx context.Context, limit int) ([]stats.ProcessEntry, error)
}

// Publisher receives every stats collection for telemetry fan-out.
type Publisher interface {
	Publish(stats.Response)
}

type Server struct {
	host      string
	port      int
	provider  Provider
	publisher Publisher

	r   *chi.Mux
	srv *http.Server
}

func New(host string, port int, provider Provider) *Server {
	s := &Server{
		host:     host,
		port:     port,
		provider: provider,
		r:        chi.NewRouter(),
	}
	s.r.Use(middleware.RequestID)
	s.r.Use(middleware.RealIP)
	s.r.Use(newRequestLogger("/api/stats", "/health"))
	s.r.Use(middleware.Recoverer)
	s.r.Use(middleware.Timeout(60 * time.Second))
	return s
}

// AttachPublisher forwards each stats collection to p.
func (s *Server) AttachPublisher(p Publisher) {
	s.publisher = p
}

// Start binds the listener and serves in the background. A bind
// failure is reported here, before any request is taken, so callers
// can fail startup cleanly.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.host, s.port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	s.srv = &http.Server{Handler: s.r}
	go func() {
		if err := s.srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			slog.Error("http server stopped", "error", err)
		}
	}()

	slog.Info("listening", "addr", addr, "dashboard", dashboardURL(s.host, s.port))
	return nil
}

// Stop drains in-flight requests and closes the listener.
func (s *Server) Stop(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

// Serve runs until SIGINT or SIGTERM, then shuts down gracefully.
func (s *Server) Serve() error {
	if err := s.Start(); err != nil {
		return err
	}

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c

	slog.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return s.Stop(ctx)
}
