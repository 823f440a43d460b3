// Package httpserver is the built-in candidate exposing the management
// HTTP surface: health, Prometheus metrics, and the boot report as JSON
// and as a websocket stream.
package httpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/c360/semboot/condition"
	"github.com/c360/semboot/engine"
	"github.com/c360/semboot/errors"
	"github.com/c360/semboot/factory"
	"github.com/c360/semboot/metric"
)

const (
	// CandidateName identifies this candidate in the manifest.
	CandidateName = "httpserver"

	// Role is the registry role holding the *Server.
	Role = "http.server"

	// PropertyPrefix is the configuration subtree bound into Config.
	PropertyPrefix = "http"
)

// Config is the property holder for the management server.
type Config struct {
	Bind            string        `yaml:"bind"`
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	StreamInterval  time.Duration `yaml:"stream_interval"`
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		Bind:            "0.0.0.0",
		Port:            8090,
		ReadTimeout:     10 * time.Second,
		WriteTimeout:    10 * time.Second,
		ShutdownTimeout: 5 * time.Second,
		StreamInterval:  5 * time.Second,
	}
}

// Validate checks the configuration is usable.
func (c Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return errors.WrapInvalid(
			fmt.Errorf("%w: http.port must be in 1..65535, got %d", errors.ErrInvalidConfig, c.Port),
			"httpserver", "Validate", "check port")
	}
	if c.ShutdownTimeout <= 0 {
		return errors.WrapInvalid(
			fmt.Errorf("%w: http.shutdown_timeout must be positive", errors.ErrInvalidConfig),
			"httpserver", "Validate", "check shutdown timeout")
	}
	return nil
}

// ReportSource supplies the boot report served on the report endpoints.
// *engine.Engine satisfies it; the source is attached after boot because
// the engine itself is not an object in the registry.
type ReportSource interface {
	Report() *engine.Report
}

// Server is the management HTTP server. It is constructed by the factory
// but starts listening only when Serve is called, after the boot pass has
// finished and a report source is attached.
type Server struct {
	cfg      Config
	logger   *slog.Logger
	srv      *http.Server
	upgrader websocket.Upgrader

	mu     sync.Mutex
	source ReportSource
	ln     net.Listener
	done   chan struct{}
}

// New builds a server over cfg. A nil metrics registry disables the
// /metrics endpoint.
func New(cfg Config, metrics *metric.Registry, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		cfg:    cfg,
		logger: logger,
		done:   make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	if metrics != nil {
		mux.Handle("/metrics", metrics.Handler())
	}
	mux.HandleFunc("/autoconfig", s.handleReport)
	mux.HandleFunc("/autoconfig/ws", s.handleReportStream)

	s.srv = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Bind, cfg.Port),
		Handler:      mux,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s
}

// SetReportSource attaches the boot report source. Safe to call before
// Serve; endpoints answer 503 until a source is present.
func (s *Server) SetReportSource(source ReportSource) {
	s.mu.Lock()
	s.source = source
	s.mu.Unlock()
}

// Addr returns the bound listen address, or the configured address before
// Serve is called.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln != nil {
		return s.ln.Addr().String()
	}
	return s.srv.Addr
}

// Serve binds the listener and serves until Close. It returns once the
// listener is bound; serving continues in the background.
func (s *Server) Serve() error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return errors.Wrap(err, "httpserver", "Serve",
			fmt.Sprintf("listen on %s", s.srv.Addr))
	}
	s.mu.Lock()
	s.ln = ln
	s.mu.Unlock()

	s.logger.Info("Management server listening", "addr", ln.Addr().String())
	go func() {
		if err := s.srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Error("Management server stopped", "error", err)
		}
	}()
	return nil
}

// Close shuts the server down gracefully within the configured timeout.
func (s *Server) Close() error {
	select {
	case <-s.done:
		return nil
	default:
		close(s.done)
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := s.srv.Shutdown(ctx); err != nil {
		return errors.Wrap(err, "httpserver", "Close", "shutdown")
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// report returns the current boot report, or nil when no source is
// attached yet.
func (s *Server) report() *engine.Report {
	s.mu.Lock()
	source := s.source
	s.mu.Unlock()
	if source == nil {
		return nil
	}
	return source.Report()
}

func (s *Server) handleReport(w http.ResponseWriter, _ *http.Request) {
	report := s.report()
	if report == nil {
		http.Error(w, "boot report not available", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(report); err != nil {
		s.logger.Error("Report encode failed", "error", err)
	}
}

// handleReportStream upgrades to a websocket and pushes the report on
// connect, then again at every stream interval until the client leaves or
// the server closes.
func (s *Server) handleReportStream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("Websocket upgrade failed", "error", err)
		return
	}
	defer func() { _ = conn.Close() }()

	ticker := time.NewTicker(s.cfg.StreamInterval)
	defer ticker.Stop()

	for {
		report := s.report()
		if report != nil {
			if err := conn.WriteJSON(report); err != nil {
				return
			}
		}
		select {
		case <-s.done:
			return
		case <-ticker.C:
		}
	}
}

// Set returns the factory set for this candidate.
func Set() factory.Set {
	set := factory.Set{
		Factories: []factory.Factory{
			{
				Name: "httpserver.server",
				Role: Role,
				Conditions: []condition.Condition{
					condition.OnProperty(PropertyPrefix+".enabled", "true", true),
				},
				Build: build,
			},
		},
	}
	set.Candidate.Name = CandidateName
	return set
}

func build(deps factory.Dependencies) (any, error) {
	cfg := DefaultConfig()
	if err := deps.Properties.Bind(PropertyPrefix, &cfg); err != nil {
		return nil, errors.Wrap(err, "httpserver", "build", "bind configuration")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return New(cfg, deps.Metrics, deps.Logger), nil
}
