package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/mandelsoft/webrequest/pkg/service"
)

// Server is an HTTP server usable as service.
type Server struct {
	*http.Server
	*http.ServeMux

	shutdownTimeout time.Duration

	lock     sync.Mutex
	listener net.Listener
	done     service.Trigger
}

var _ service.Service = (*Server)(nil)

// NewServer creates a server for the given port. Port 0 selects
// a free port, which can be queried with Port after the server
// has been started. If def is set, the handlers registered with
// Register are served, also.
func NewServer(port int, def bool, shutdownTimeout time.Duration) *Server {
	mux := http.NewServeMux()
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}
	if def {
		mux.Handle("/", default_mux)
	}
	return &Server{
		Server:          server,
		ServeMux:        mux,
		shutdownTimeout: shutdownTimeout,
	}
}

func (s *Server) GetName() string {
	return "http server " + s.Addr
}

// Port returns the port the server is listening on,
// or 0 if it is not started.
func (s *Server) Port() int {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.listener == nil {
		return 0
	}
	return s.listener.Addr().(*net.TCPAddr).Port
}

func (s *Server) Start(ctx context.Context) (service.Syncher, service.Syncher, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.done != nil {
		return nil, nil, fmt.Errorf("server %s already started", s.Addr)
	}
	l, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return nil, nil, err
	}
	s.listener = l
	s.done = service.SyncTrigger()

	ready := service.SyncTrigger()
	ready.Trigger()

	go func() {
		err := s.serveContext(ctx, l)
		if err != nil {
			s.done.SetError(err)
		}
		s.done.Trigger()
	}()
	log.Info("server listening on {{addr}}", "addr", l.Addr().String())
	return ready, s.done, nil
}

func (s *Server) Wait() error {
	s.lock.Lock()
	done := s.done
	s.lock.Unlock()
	if done == nil {
		return fmt.Errorf("server %s not started", s.Addr)
	}
	return done.Wait()
}

// ListenAndServeContext serves until the context is canceled.
// Then the server is shut down gracefully.
func (s *Server) ListenAndServeContext(ctx context.Context) error {
	l, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return err
	}
	return s.serveContext(ctx, l)
}

func (s *Server) serveContext(ctx context.Context, l net.Listener) error {
	serverErr := make(chan error, 1)
	go func() {
		// Shutdown causes Serve to return http.ErrServerClosed.
		serverErr <- s.Serve(l)
	}()
	var err error
	select {
	case <-ctx.Done():
		log.Info("shutting down server {{addr}}", "addr", l.Addr().String())
		sctx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		err = s.Shutdown(sctx)
	case err = <-serverErr:
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
	}
	if err != nil {
		log.LogError(err, "server {{addr}} failed", "addr", l.Addr().String())
	}
	return err
}
