package bbs

import (
	"context"
	"log/slog"
	"net"

	"github.com/google/uuid"

	"github.com/andy6609/bbs-server/internal/auth"
	"github.com/andy6609/bbs-server/internal/config"
	"github.com/andy6609/bbs-server/internal/store"
)

// Server accepts connections and spawns one Session goroutine per
// connection. The accept loop never blocks on a session, and a session
// panic never takes the listener down.
type Server struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    store.Store
	hasher   auth.Hasher
	presence *Presence
	listener net.Listener
	doneCh   chan struct{}
}

func NewServer(cfg *config.Config, st store.Store, hasher auth.Hasher, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		cfg:      cfg,
		logger:   logger,
		store:    st,
		hasher:   hasher,
		presence: NewPresence(),
		doneCh:   make(chan struct{}),
	}
}

// Presence exposes the registry for maintenance/introspection. Sessions go
// through the same object.
func (s *Server) Presence() *Presence {
	return s.presence
}

// Addr returns the bound listen address once Start has succeeded.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return err
	}
	s.listener = ln

	go s.acceptLoop(ln)

	s.logger.Info("server started", "addr", ln.Addr().String())
	return nil
}

// Stop closes the listener and waits for the accept loop to exit. In-flight
// sessions are not severed; they end on their own logout/timeout/disconnect
// path.
func (s *Server) Stop() {
	s.logger.Info("shutting down")

	if s.listener != nil {
		s.listener.Close()
	}
	<-s.doneCh

	s.logger.Info("shutdown complete")
}

func (s *Server) acceptLoop(ln net.Listener) {
	defer close(s.doneCh)
	for {
		conn, err := ln.Accept()
		if err != nil {
			// Listener closed — normal shutdown.
			return
		}
		go s.runSession(conn)
	}
}

func (s *Server) runSession(conn net.Conn) {
	id := uuid.NewString()
	logger := s.logger.With("session", id, "addr", conn.RemoteAddr().String())
	logger.Info("client connected")

	defer func() {
		if r := recover(); r != nil {
			logger.Error("session panic", "panic", r)
			_ = conn.Close()
		}
	}()

	sess := &Session{
		transport:   NewTransport(conn, s.cfg.IdleTimeout),
		store:       s.store,
		hasher:      s.hasher,
		presence:    s.presence,
		logger:      logger,
		recentLimit: s.cfg.RecentLimit,
	}
	sess.Run(context.Background())

	logger.Info("client disconnected")
}
