// Package server exposes the extraction pipeline over HTTP: offline record
// extraction from uploaded screenshots, on-screen target localization, and a
// WebSocket feed streaming live pipeline runs.
package server

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"net/http"
	"time"

	"github.com/chartflow/chartflow/internal/dialect"
	"github.com/chartflow/chartflow/internal/locate"
	"github.com/chartflow/chartflow/internal/patient"
	"github.com/chartflow/chartflow/internal/pipeline"
)

// pipelineInterface defines the methods the server needs from a pipeline.
type pipelineInterface interface {
	ProcessImage(ctx context.Context, img image.Image) (patient.Record, dialect.Detection, pipeline.Validation, error)
	LocateInImage(ctx context.Context, img image.Image, target string) (locate.Result, error)
	RunWithCallback(ctx context.Context, cb pipeline.StageCallback) pipeline.RunResult
}

// Config holds server configuration.
type Config struct {
	Host        string
	Port        int
	CORSOrigin  string
	MaxUploadMB int64
	TimeoutSec  int
}

// DefaultConfig returns server defaults.
func DefaultConfig() Config {
	return Config{
		Host:        "localhost",
		Port:        8080,
		CORSOrigin:  "*",
		MaxUploadMB: 20,
		TimeoutSec:  120,
	}
}

// Validate checks the server configuration.
func (c Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("server: invalid port %d", c.Port)
	}
	if c.MaxUploadMB <= 0 {
		return errors.New("server: max upload must be positive")
	}
	if c.TimeoutSec <= 0 {
		return errors.New("server: timeout must be positive")
	}
	return nil
}

// Server holds the HTTP server state and dependencies.
type Server struct {
	pipeline    pipelineInterface
	corsOrigin  string
	maxUploadMB int64
	timeoutSec  int
}

// NewServer creates a server around an already-built pipeline.
func NewServer(cfg Config, pl pipelineInterface) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if pl == nil {
		return nil, errors.New("server: pipeline is required")
	}
	return &Server{
		pipeline:    pl,
		corsOrigin:  cfg.CORSOrigin,
		maxUploadMB: cfg.MaxUploadMB,
		timeoutSec:  cfg.TimeoutSec,
	}, nil
}

// SetupRoutes configures the HTTP routes.
func (s *Server) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", s.corsMiddleware(s.healthHandler))
	mux.HandleFunc("/extract", s.corsMiddleware(s.extractHandler))
	mux.HandleFunc("/locate", s.corsMiddleware(s.locateHandler))
	mux.HandleFunc("/ws/run", s.runWebSocketHandler)
	mux.Handle("/metrics", metricsHandler())
}

// ListenAndServe runs the server until the context is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, cfg Config) error {
	mux := http.NewServeMux()
	s.SetupRoutes(mux)

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// requestContext derives a per-request context bounded by the configured
// handler timeout.
func (s *Server) requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), time.Duration(s.timeoutSec)*time.Second)
}
