package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/mostwo/mostwo-core/internal/audit"
	"github.com/mostwo/mostwo-core/internal/auth"
	"github.com/mostwo/mostwo-core/internal/event"
	"github.com/mostwo/mostwo-core/internal/infrastructure/config"
	"github.com/mostwo/mostwo-core/internal/infrastructure/database"
	"github.com/mostwo/mostwo-core/internal/infrastructure/logging"
	"github.com/mostwo/mostwo-core/internal/machine"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// ChangePublisher publishes record changes to the message bus.
// *mqtt.Client satisfies it.
type ChangePublisher interface {
	PublishChange(entity, id, action string, record any) error
}

// PointWriter records transitions as time-series points.
// *influxdb.Client satisfies it.
type PointWriter interface {
	WriteMachineStatus(machineID, machineType, status string)
	WriteEventEnabled(eventID, machineID string, enabled bool)
	WriteRecordChange(entity, action string)
}

// Deps holds the dependencies required by the API server.
// MQTT and Influx are optional; leave them nil to disable.
type Deps struct {
	Config   config.APIConfig
	WS       config.WebSocketConfig
	Security config.SecurityConfig
	Logger   *logging.Logger
	DB       *database.DB
	Machines machine.Repository
	Events   event.Repository
	Users    auth.UserRepository
	Audit    audit.Repository
	MQTT     ChangePublisher
	Influx   PointWriter
	Version  string
}

// Server is the HTTP API server.
//
// It is created with New, serves with Start, and stops with Close.
// Handler exposes the router for in-process use.
type Server struct {
	cfg      config.APIConfig
	wsCfg    config.WebSocketConfig
	secCfg   config.SecurityConfig
	logger   *logging.Logger
	db       *database.DB
	machines machine.Repository
	events   event.Repository
	users    auth.UserRepository
	audit    audit.Repository
	mqtt     ChangePublisher
	influx   PointWriter
	version  string

	hub       *Hub
	tickets   *ticketStore
	metrics   *Metrics
	auditCh   chan *audit.AuditLog
	startTime time.Time

	health      singleflight.Group
	healthMu    sync.Mutex
	healthAt    time.Time
	healthState healthResponse

	router     http.Handler
	routerOnce sync.Once
	server     *http.Server
	cancel     context.CancelFunc
	background sync.WaitGroup
	publishing sync.WaitGroup
}

// New creates an API server. The server does not listen until Start.
func New(deps Deps) (*Server, error) {
	switch {
	case deps.Logger == nil:
		return nil, errors.New("logger is required")
	case deps.DB == nil:
		return nil, errors.New("database is required")
	case deps.Machines == nil || deps.Events == nil:
		return nil, errors.New("machine and event repositories are required")
	case deps.Users == nil:
		return nil, errors.New("user repository is required")
	case deps.Security.JWT.Secret == "":
		return nil, errors.New("jwt secret is required")
	}

	s := &Server{
		cfg:       deps.Config,
		wsCfg:     deps.WS,
		secCfg:    deps.Security,
		logger:    deps.Logger.Component("api"),
		db:        deps.DB,
		machines:  deps.Machines,
		events:    deps.Events,
		users:     deps.Users,
		audit:     deps.Audit,
		mqtt:      deps.MQTT,
		influx:    deps.Influx,
		version:   deps.Version,
		tickets:   newTicketStore(),
		startTime: time.Now(),
	}
	s.hub = NewHub(s.wsCfg, s.logger)
	s.metrics = NewMetrics(s.hub)
	if s.audit != nil {
		s.auditCh = make(chan *audit.AuditLog, auditChanSize)
	}

	return s, nil
}

// Handler returns the router. It is built once.
func (s *Server) Handler() http.Handler {
	s.routerOnce.Do(func() {
		s.router = s.buildRouter()
	})
	return s.router
}

// Start launches the background workers and the HTTP listener.
// Listener errors after startup are logged.
func (s *Server) Start(ctx context.Context) error {
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)
	s.runBackground(srvCtx)

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.Handler(),
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

// runBackground starts the hub, ticket cleanup and audit writer. They stop
// when ctx is cancelled.
func (s *Server) runBackground(ctx context.Context) {
	s.background.Add(2)
	go func() {
		defer s.background.Done()
		s.hub.Run(ctx)
	}()
	go func() {
		defer s.background.Done()
		s.cleanTicketsLoop(ctx)
	}()

	if s.auditCh != nil {
		s.background.Add(1)
		go func() {
			defer s.background.Done()
			s.drainAuditLog(ctx)
		}()
	}
}

// Close shuts the listener down, waiting up to gracefulShutdownTimeout for
// in-flight requests, then stops background workers.
func (s *Server) Close() error {
	if s.cancel == nil {
		return nil
	}

	var shutdownErr error
	if s.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
		defer cancel()

		s.logger.Info("API server shutting down")
		if err := s.server.Shutdown(ctx); err != nil {
			shutdownErr = fmt.Errorf("shutting down API server: %w", err)
		}
	}

	s.publishing.Wait()
	s.cancel()
	s.background.Wait()
	return shutdownErr
}

// HealthCheck reports whether the server has been started.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return errors.New("api server not started")
	}
	return nil
}
