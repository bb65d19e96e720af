package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/hearthwatch/hearthwatch-core/internal/classify"
	"github.com/hearthwatch/hearthwatch-core/internal/directory"
	"github.com/hearthwatch/hearthwatch-core/internal/infrastructure/config"
	"github.com/hearthwatch/hearthwatch-core/internal/infrastructure/logging"
)

// gracefulShutdownTimeout is how long Close waits for in-flight requests.
const gracefulShutdownTimeout = 10 * time.Second

// EventQueue accepts raw sensor payloads for asynchronous processing.
// Implemented by tracker.Tracker.
type EventQueue interface {
	Enqueue(raw classify.RawPayload) bool
}

// DeviceDirectory is the slice of the directory registry the admin API needs.
type DeviceDirectory interface {
	Resolve(ctx context.Context, mac string) (*directory.Device, error)
	ListDevices(ctx context.Context) ([]directory.Device, error)
	ListDevicesByCategory(ctx context.Context, category directory.Category) ([]directory.Device, error)
	RegisterDevice(ctx context.Context, device *directory.Device) error
	UpdateDevice(ctx context.Context, device *directory.Device) error
	DeleteDevice(ctx context.Context, mac string) error
}

// Deps contains the dependencies required by the API server.
type Deps struct {
	Config    config.APIConfig
	Security  config.SecurityConfig
	Logger    *logging.Logger
	Directory DeviceDirectory
	Events    EventQueue
	Version   string
}

// Server is the HTTP API server.
type Server struct {
	cfg      config.APIConfig
	security config.SecurityConfig
	logger   *logging.Logger
	dir      DeviceDirectory
	events   EventQueue
	version  string

	hub        *Hub
	httpServer *http.Server
	cancel     context.CancelFunc
}

// New creates a new API server from its dependencies.
//
// Returns:
//   - *Server: Configured server, not yet listening
//   - error: If a required dependency is missing
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, errors.New("api: logger is required")
	}
	if deps.Directory == nil {
		return nil, errors.New("api: directory is required")
	}
	if deps.Events == nil {
		return nil, errors.New("api: event queue is required")
	}

	return &Server{
		cfg:      deps.Config,
		security: deps.Security,
		logger:   deps.Logger,
		dir:      deps.Directory,
		events:   deps.Events,
		version:  deps.Version,
	}, nil
}

// Hub returns the WebSocket hub, or nil before Start.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Start begins listening for HTTP connections. It returns once the listener
// goroutine is running; errors from the listener itself are logged.
func (s *Server) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.hub = NewHub(s.cfg.WebSocket, s.logger)
	go s.hub.Run(runCtx)

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		var err error
		if s.cfg.TLS.Enabled {
			s.logger.Info("api server listening", "addr", addr, "tls", true)
			err = s.httpServer.ListenAndServeTLS(s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
		} else {
			s.logger.Info("api server listening", "addr", addr, "tls", false)
			err = s.httpServer.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server failed", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the server, waiting for in-flight requests.
func (s *Server) Close() error {
	if s.cancel != nil {
		s.cancel()
	}

	if s.httpServer == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down api server: %w", err)
	}
	return nil
}

// HealthCheck reports whether the server is able to serve requests.
func (s *Server) HealthCheck(_ context.Context) error {
	if s.httpServer == nil {
		return errors.New("api: server not started")
	}
	return nil
}
