package heartbeat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/transcribersofreddit/torcore/pkg/storage"
)

// Config describes the bot a heartbeat server reports on and where it
// listens.
type Config struct {
	Name        string
	Version     string
	Environment string
	Host        string
	PortStart   int
	PortEnd     int
}

// Status is the body served on /status.
type Status struct {
	Name          string  `json:"name"`
	Version       string  `json:"version"`
	InstanceID    string  `json:"instance_id"`
	Environment   string  `json:"environment"`
	Port          int     `json:"port"`
	UptimeSeconds float64 `json:"uptime_seconds"`
}

// Server is the heartbeat HTTP server of one bot instance.
type Server struct {
	cfg        Config
	store      storage.Store
	metrics    *Metrics
	logger     *slog.Logger
	instanceID string
	started    time.Time

	mu     sync.Mutex
	port   int
	server *http.Server
	addr   net.Addr
}

// NewServer creates a heartbeat server. metrics may be nil, in which case
// a fresh registry is used.
func NewServer(cfg Config, store storage.Store, metrics *Metrics, logger *slog.Logger) *Server {
	if metrics == nil {
		metrics = NewMetrics()
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	return &Server{
		cfg:        cfg,
		store:      store,
		metrics:    metrics,
		logger:     logger,
		instanceID: uuid.NewString(),
		started:    time.Now(),
	}
}

// InstanceID returns the random id of this bot instance.
func (s *Server) InstanceID() string {
	return s.instanceID
}

// Handler returns the heartbeat routes wrapped in OpenTelemetry
// instrumentation.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.Handle("GET /metrics", s.metrics.Handler())
	return otelhttp.NewHandler(mux, "tor.heartbeat")
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	port := s.port
	s.mu.Unlock()

	status := Status{
		Name:          s.cfg.Name,
		Version:       s.cfg.Version,
		InstanceID:    s.instanceID,
		Environment:   s.cfg.Environment,
		Port:          port,
		UptimeSeconds: time.Since(s.started).Seconds(),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(status); err != nil {
		s.logger.Warn("Failed to encode heartbeat status", "error", err)
	}
}

// Start reserves a port and begins serving in the background.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server != nil {
		return errors.New("heartbeat server already started")
	}

	port, err := ReservePort(ctx, s.store, s.cfg.PortStart, s.cfg.PortEnd)
	if err != nil {
		return err
	}

	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(port))
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		if relErr := ReleasePort(ctx, s.store, port); relErr != nil {
			s.logger.Warn("Failed to release heartbeat port", "port", port, "error", relErr)
		}
		return fmt.Errorf("failed to bind heartbeat listener on %s: %w", addr, err)
	}

	s.port = port
	s.addr = listener.Addr()
	s.server = &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	server := s.server
	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("Heartbeat server failed", "error", err)
		}
	}()

	s.logger.Info("Heartbeat server listening", "addr", s.addr.String(), "instance_id", s.instanceID)
	return nil
}

// Addr returns the listening address, or nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Port returns the reserved port, or 0 before Start.
func (s *Server) Port() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.port
}

// Stop shuts the server down and releases its port. Stopping a server that
// was never started is a no-op.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server == nil {
		return nil
	}

	shutdownErr := s.server.Shutdown(ctx)
	releaseErr := ReleasePort(ctx, s.store, s.port)

	s.server = nil
	s.addr = nil
	s.port = 0

	return errors.Join(shutdownErr, releaseErr)
}
