package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hallway-dev/hallway/pkg/state"
)

// Server ties the transports, the protocol endpoint, and the periodic sweeps
// together. Create one with New, call Start, and stop it with Shutdown.
type Server struct {
	cfg      *Config
	registry *state.Registry
	endpoint *Endpoint
	metrics  *Metrics
	logger   *slog.Logger
	gatherer prometheus.Gatherer

	httpServer  *http.Server
	httpLn      net.Listener
	tcpLn       net.Listener
	quit        chan struct{}
	wg          sync.WaitGroup
	shutdownOne sync.Once
}

// New builds a server around an existing registry. A nil promReg registers
// metrics with the Prometheus default registerer.
func New(cfg *Config, registry *state.Registry, logger *slog.Logger, promReg *prometheus.Registry) (*Server, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	var (
		registerer prometheus.Registerer = prometheus.DefaultRegisterer
		gatherer   prometheus.Gatherer   = prometheus.DefaultGatherer
	)
	if promReg != nil {
		registerer = promReg
		gatherer = promReg
	}
	metrics := NewMetrics(registerer, registry)

	s := &Server{
		cfg:      cfg,
		registry: registry,
		metrics:  metrics,
		logger:   logger.With("component", "server"),
		gatherer: gatherer,
		quit:     make(chan struct{}),
	}
	s.endpoint = NewEndpoint(cfg, registry, metrics, logger)
	return s, nil
}

// Endpoint returns the protocol endpoint, useful for mounting the WebSocket
// handler on an external router.
func (s *Server) Endpoint() *Endpoint { return s.endpoint }

// BootstrapSessions creates the configured startup sessions and their rooms
// in the registry. Host applications that need hooks or session data attach
// them afterwards through the state API.
func BootstrapSessions(registry *state.Registry, sessions []SessionConfig) error {
	registry.Lock()
	defer registry.Unlock()
	for _, sc := range sessions {
		s, err := registry.CreateSession(sc.ID, &state.SessionOptions{
			Name:           sc.Name,
			AutoRoomCreate: sc.AutoRoomCreate,
		})
		if err != nil {
			return err
		}
		for _, rc := range sc.Rooms {
			s.CreateRoom(rc.ID, &state.RoomOptions{
				Name:       rc.Name,
				MaxUsers:   rc.MaxUsers,
				Persistent: rc.Persistent,
				Password:   rc.Password,
			})
		}
	}
	return nil
}

// Start binds the configured listeners and launches the sweep loops. It
// returns once everything is listening.
func (s *Server) Start() error {
	if s.cfg.HTTPAddr != "" {
		ln, err := net.Listen("tcp", s.cfg.HTTPAddr)
		if err != nil {
			return err
		}
		s.httpLn = ln
		s.httpServer = &http.Server{Handler: s.router()}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				s.logger.Error("http server failed", "error", err)
			}
		}()
		s.logger.Info("http listening", "addr", ln.Addr().String(), "path", s.cfg.WebSocketPath)
	}

	if s.cfg.TCPAddr != "" {
		ln, err := net.Listen("tcp", s.cfg.TCPAddr)
		if err != nil {
			s.closeListeners()
			return err
		}
		s.tcpLn = ln
		s.wg.Add(1)
		go s.acceptLoop(ln)
		s.logger.Info("tcp listening", "addr", ln.Addr().String())
	}

	s.wg.Add(2)
	go s.sweepRooms()
	go s.sweepIdleUsers()
	return nil
}

// HTTPAddr returns the bound HTTP listen address, empty when disabled.
func (s *Server) HTTPAddr() string {
	if s.httpLn == nil {
		return ""
	}
	return s.httpLn.Addr().String()
}

// TCPAddr returns the bound TCP listen address, empty when disabled.
func (s *Server) TCPAddr() string {
	if s.tcpLn == nil {
		return ""
	}
	return s.tcpLn.Addr().String()
}

func (s *Server) router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	r.Handle(s.cfg.WebSocketPath, s.endpoint.WebSocketHandler())
	r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return r
}

func (s *Server) acceptLoop(ln net.Listener) {
	defer s.wg.Done()
	for {
		netConn, err := ln.Accept()
		if err != nil {
			select {
			case <-s.quit:
				return
			default:
			}
			s.logger.Warn("tcp accept failed", "error", err)
			return
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.endpoint.ServeConn(newTCPTransport(netConn, s.cfg.ReadBufferSize, s.cfg.WriteTimeout))
		}()
	}
}

// sweepRooms periodically removes empty non-persistent rooms.
func (s *Server) sweepRooms() {
	defer s.wg.Done()
	ticker := time.NewTicker(s.cfg.RoomSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.quit:
			return
		case <-ticker.C:
			s.registry.Lock()
			removed := s.registry.SweepEmptyRooms()
			s.registry.Unlock()
			if removed > 0 {
				s.logger.Debug("swept empty rooms", "count", removed)
			}
		}
	}
}

// sweepIdleUsers periodically disposes the connections of users that went
// silent. Disposal happens outside the registry lock; the disconnect flow
// runs when each connection's read loop unwinds.
func (s *Server) sweepIdleUsers() {
	defer s.wg.Done()
	ticker := time.NewTicker(s.cfg.ConnectionTimeout / 2)
	defer ticker.Stop()
	for {
		select {
		case <-s.quit:
			return
		case <-ticker.C:
			s.registry.Lock()
			stale := s.registry.StaleConnections(s.cfg.ConnectionTimeout)
			s.registry.Unlock()
			for _, c := range stale {
				s.logger.Info("disconnecting idle user", "remote", c.RemoteAddr())
				c.Dispose()
			}
		}
	}
}

func (s *Server) closeListeners() {
	if s.httpServer != nil {
		_ = s.httpServer.Close()
	} else if s.httpLn != nil {
		_ = s.httpLn.Close()
	}
	if s.tcpLn != nil {
		_ = s.tcpLn.Close()
	}
}

// Shutdown stops the listeners and sweeps, closes every live connection, and
// waits for the connection goroutines to unwind or the context to expire.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOne.Do(func() {
		s.logger.Info("shutting down")
		close(s.quit)

		if s.httpServer != nil {
			// closes the listener; hijacked websocket conns are
			// disposed below
			err = s.httpServer.Shutdown(ctx)
		}
		if s.tcpLn != nil {
			_ = s.tcpLn.Close()
		}
		s.endpoint.CloseAll()

		done := make(chan struct{})
		go func() {
			s.wg.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-ctx.Done():
			if err == nil {
				err = ctx.Err()
			}
		}
	})
	return err
}
