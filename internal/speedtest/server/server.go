// Package server is the speed test server engine: a set of TCP listeners on
// several ports of both address families, a worker per connection speaking
// the line protocol, and the marker-file stop/reload watcher.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/cubiclesoft/network-speedtest-cli/internal/logs"
	"github.com/cubiclesoft/network-speedtest-cli/internal/networking/protocol"
	"github.com/cubiclesoft/network-speedtest-cli/internal/networking/transport"
	"github.com/cubiclesoft/network-speedtest-cli/internal/runtime"
)

var ErrNoListeners = errors.New("no listener could be bound")

type Server struct {
	rt     *runtime.Runtime
	opts   Options
	engine *protocol.Engine

	listeners []*Listener
	config    ListenerConfig

	shutdownOnce sync.Once

	mu        sync.Mutex
	stopCause error
}

func New(rt *runtime.Runtime, opts Options) *Server {
	opts = opts.withDefaults()
	return &Server{
		rt:     rt,
		opts:   opts,
		engine: protocol.NewEngine(opts.Clock),
	}
}

// Start binds the listeners, writes the listener config and starts
// accepting. It fails only when nothing could be bound.
func (s *Server) Start(ctx context.Context) error {
	lns, families, cfg, err := s.bindAll(ctx)
	if err != nil {
		return err
	}
	if cfg.Empty() {
		return ErrNoListeners
	}
	s.config = cfg

	if s.opts.ListenerConfigPath != "" {
		if err := cfg.Write(s.opts.ListenerConfigPath); err != nil {
			for _, ln := range lns {
				ln.Close()
			}
			return err
		}
		logs.Debugf("listener config written to %s", s.opts.ListenerConfigPath)
	}

	for i, ln := range lns {
		l := &Listener{
			family: families[i],
			port:   transport.PortOf(ln.Addr()),
			conns:  make(map[uint64]*Connection),
		}
		l.ts = transport.Serve(s.rt, families[i], ln, func(connCtx context.Context, conn net.Conn) {
			s.handleConn(connCtx, l, conn)
		})
		s.listeners = append(s.listeners, l)
	}

	logs.Infof("Ready.")
	return nil
}

func (s *Server) handleConn(ctx context.Context, l *Listener, conn net.Conn) {
	c := newConnection(s, l, conn)
	if !l.register(c) {
		conn.Close()
		return
	}
	logs.Infof("Client %d connected from %s on %s.", c.id, conn.RemoteAddr(), l.Name())
	c.serve(ctx)
}

// Run blocks until ctx ends or a stop/reload marker appears, then shuts the
// server down. Marker-triggered stops are not errors; see StopCause.
func (s *Server) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	watcher := SignalWatcher{
		StopMarker:   s.opts.StopMarker,
		ReloadMarker: s.opts.ReloadMarker,
		Interval:     s.opts.SignalInterval,
	}
	s.rt.GoNamed("SignalWatcher", func() {
		if err := watcher.Watch(ctx); err != nil {
			cancel(err)
		}
	})

	<-ctx.Done()
	cause := context.Cause(ctx)
	s.mu.Lock()
	s.stopCause = cause
	s.mu.Unlock()

	s.Shutdown()

	if errors.Is(cause, ErrStopRequested) || errors.Is(cause, ErrReloadRequested) || errors.Is(cause, context.Canceled) {
		return nil
	}
	return fmt.Errorf("server stopped: %w", cause)
}

// StopCause is ErrStopRequested, ErrReloadRequested or the context error
// that ended Run.
func (s *Server) StopCause() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopCause
}

// Shutdown closes all listeners and connections. It is safe to call more than once.
func (s *Server) Shutdown() {
	s.shutdownOnce.Do(func() {
		for _, l := range s.listeners {
			l.shutdown()
		}
		logs.Debugf("server shut down")
	})
}

func (s *Server) Listeners() []*Listener {
	return s.listeners
}

func (s *Server) Config() ListenerConfig {
	return s.config
}

func (s *Server) ConnectionCount() int {
	n := 0
	for _, l := range s.listeners {
		n += l.ConnectionCount()
	}
	return n
}
