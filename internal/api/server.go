package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/voltwatch/voltwatch-core/internal/consumption"
	"github.com/voltwatch/voltwatch-core/internal/device"
	"github.com/voltwatch/voltwatch-core/internal/infrastructure/config"
	"github.com/voltwatch/voltwatch-core/internal/infrastructure/logging"
	"github.com/voltwatch/voltwatch-core/internal/infrastructure/metrics"
	"github.com/voltwatch/voltwatch-core/internal/infrastructure/mqtt"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Coordinator is the slice of the consumption coordinator the API needs.
// *consumption.Coordinator satisfies it.
type Coordinator interface {
	Associate(ctx context.Context, deviceID, userID string) (*device.Device, error)
	Report(ctx context.Context, userID, date string) ([]consumption.ReportRow, error)
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config      config.APIConfig
	WS          config.WebSocketConfig
	Security    config.SecurityConfig
	Logger      *logging.Logger
	Devices     device.Repository
	Coordinator Coordinator
	MQTT        *mqtt.Client // optional, used for health reporting
	Metrics     *metrics.Metrics
	ExternalHub *Hub // If set, the server uses this hub instead of creating its own
	Version     string
}

// Server is the HTTP API server for VoltWatch.
//
// It manages the HTTP listener, routes, middleware, and WebSocket hub.
// The server is created with New() and started with Start().
type Server struct {
	cfg         config.APIConfig
	wsCfg       config.WebSocketConfig
	secCfg      config.SecurityConfig
	logger      *logging.Logger
	devices     device.Repository
	coordinator Coordinator
	mqtt        *mqtt.Client
	metrics     *metrics.Metrics
	version     string
	server      *http.Server
	hub         *Hub
	tickets     *ticketStore
	cancel      context.CancelFunc // cancels background goroutines on Close()
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Devices == nil {
		return nil, fmt.Errorf("device repository is required")
	}
	if deps.Coordinator == nil {
		return nil, fmt.Errorf("consumption coordinator is required")
	}

	s := &Server{
		cfg:         deps.Config,
		wsCfg:       deps.WS,
		secCfg:      deps.Security,
		logger:      deps.Logger,
		devices:     deps.Devices,
		coordinator: deps.Coordinator,
		mqtt:        deps.MQTT,
		metrics:     deps.Metrics,
		version:     deps.Version,
		hub:         deps.ExternalHub,
		tickets:     newTicketStore(),
	}

	return s, nil
}

// Hub returns the server's WebSocket hub, creating it if needed. Use this
// to wire the hub into the alert dispatcher before calling Start.
func (s *Server) Hub() *Hub {
	if s.hub == nil {
		s.hub = NewHub(s.wsCfg, s.logger, s.metrics)
	}
	return s.hub
}

// Start begins listening for HTTP connections.
//
// It starts the WebSocket hub, the ticket cleanup loop, and the HTTP
// listener in a background goroutine. Stop the server with Close().
func (s *Server) Start(ctx context.Context) error {
	// Internal context so Close() can stop background goroutines
	// independently of the parent context.
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	if s.hub == nil {
		s.hub = NewHub(s.wsCfg, s.logger, s.metrics)
	}
	go s.hub.Run(srvCtx)

	// Periodic ticket cleanup prevents abandoned tickets accumulating.
	go s.tickets.cleanLoop(srvCtx)

	router := s.buildRouter()

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           router,
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		var err error
		if s.cfg.TLS.Enabled {
			s.logger.Info("API server starting with TLS",
				"address", s.server.Addr,
				"cert", s.cfg.TLS.CertFile,
			)
			err = s.server.ListenAndServeTLS(s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
		} else {
			s.logger.Info("API server starting", "address", s.server.Addr)
			err = s.server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	if s.cancel != nil {
		s.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running and responsive.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("api server not started")
	}

	return nil
}
