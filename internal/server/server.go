package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/trickwire/twentyeight/internal/analytics"
	"github.com/trickwire/twentyeight/internal/store"
)

// Server ties the pieces together: the HTTP and WebSocket surface, the
// session registry, the mutation dispatcher, the bot driver and the
// idle sweep.
type Server struct {
	cfg        *ServerConfig
	logger     *log.Logger
	clock      quartz.Clock
	store      store.Store
	publisher  RoundPublisher
	registry   *Registry
	hub        *Hub
	driver     *Driver
	dispatcher *Dispatcher
	upgrader   websocket.Upgrader
	httpServer *http.Server

	ttl           idleTTLs
	sweepInterval time.Duration
	sweepMu       sync.Mutex
	sweepTimer    *quartz.Timer
	sweepStopped  bool
}

// Option overrides a dependency the server would otherwise build from
// its config. Tests inject mock clocks and memory stores this way.
type Option func(*Server)

// WithClock substitutes the time source.
func WithClock(clock quartz.Clock) Option {
	return func(s *Server) { s.clock = clock }
}

// WithStore substitutes the persistence backend.
func WithStore(st store.Store) Option {
	return func(s *Server) { s.store = st }
}

// WithPublisher substitutes the round event publisher.
func WithPublisher(p RoundPublisher) Option {
	return func(s *Server) { s.publisher = p }
}

// New builds a server from config. Dependencies not overridden by
// options come from the config: the storage backend, the Kafka
// publisher when analytics is enabled, the real clock.
func New(cfg *ServerConfig, logger *log.Logger, opts ...Option) (*Server, error) {
	if cfg == nil {
		cfg = DefaultServerConfig()
	}
	defaults := DefaultServerConfig()
	if cfg.Storage == nil {
		cfg.Storage = defaults.Storage
	}
	if cfg.Bots == nil {
		cfg.Bots = defaults.Bots
	}
	if cfg.Sessions == nil {
		cfg.Sessions = defaults.Sessions
	}
	if cfg.Analytics == nil {
		cfg.Analytics = defaults.Analytics
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}

	s := &Server{
		cfg:    cfg,
		logger: logger.WithPrefix("server"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				// Origin checks belong to the reverse proxy in front.
				return true
			},
		},
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.clock == nil {
		s.clock = quartz.NewReal()
	}
	if s.store == nil {
		st, err := store.Open(cfg.Storage.Backend, cfg.Storage.Path, cfg.Storage.DSN)
		if err != nil {
			return nil, fmt.Errorf("open store: %w", err)
		}
		s.store = st
	}
	if s.publisher == nil {
		if cfg.Analytics.Enabled {
			pub, err := analytics.NewKafka(cfg.Analytics.Brokers, cfg.Analytics.Topic, logger)
			if err != nil {
				return nil, fmt.Errorf("start analytics: %w", err)
			}
			s.publisher = pub
		} else {
			s.publisher = analytics.Noop{}
		}
	}

	s.registry = NewRegistry(s.store, s.clock, logger)
	s.hub = NewHub(logger)
	s.driver = NewDriver(s.registry, DriverConfig{
		Strategy:   cfg.Bots.Strategy,
		BidDelay:   time.Duration(cfg.Bots.BidDelayMs) * time.Millisecond,
		TrumpDelay: time.Duration(cfg.Bots.TrumpDelayMs) * time.Millisecond,
		PlayDelay:  time.Duration(cfg.Bots.PlayDelayMs) * time.Millisecond,
	}, s.clock, logger)
	s.dispatcher = NewDispatcher(s.registry, s.hub, s.store, s.publisher, s.clock, logger)
	s.dispatcher.SetScheduler(s.driver)
	s.driver.SetSubmitter(s.dispatcher)

	s.ttl = idleTTLs{
		lobby:    time.Duration(cfg.Sessions.LobbyIdleMinutes) * time.Minute,
		active:   time.Duration(cfg.Sessions.ActiveIdleMinutes) * time.Minute,
		finished: time.Duration(cfg.Sessions.FinishedIdleHours) * time.Hour,
	}
	s.sweepInterval = time.Duration(cfg.Sessions.SweepSeconds) * time.Second

	return s, nil
}

// Run serves until the context is canceled, then shuts down in order:
// sweep, WebSockets, HTTP, store, publisher.
func (s *Server) Run(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:    s.cfg.GetServerAddress(),
		Handler: s.setupRouter(),
	}

	s.armSweep()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("server listening",
			"address", s.httpServer.Addr,
			"storage", s.cfg.Storage.Backend)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		return s.shutdown()
	})
	return g.Wait()
}

func (s *Server) shutdown() error {
	s.logger.Info("shutting down")
	s.stopSweep()
	s.hub.CloseAll()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := s.httpServer.Shutdown(shutdownCtx)

	if cerr := s.store.Close(); cerr != nil && err == nil {
		err = cerr
	}
	if closer, ok := s.publisher.(io.Closer); ok {
		if cerr := closer.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

// removeSession tears a session down in dependency order: pending bot
// timers first, then subscribers, then the registry and store rows.
func (s *Server) removeSession(ctx context.Context, sessionID string) error {
	s.driver.Cancel(sessionID)
	s.hub.CloseSession(sessionID)
	return s.registry.Delete(ctx, sessionID)
}
