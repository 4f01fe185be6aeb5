package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"sync"
	"sync/atomic"

	"github.com/cubiclesoft/network-speedtest-cli/internal/logs"
	"github.com/cubiclesoft/network-speedtest-cli/internal/networking/transport"
	"github.com/cubiclesoft/network-speedtest-cli/internal/utils"
)

// Listener is one bound socket plus the registry of the connections it accepted.
type Listener struct {
	family transport.Family
	port   int
	ts     *transport.Server

	nextID atomic.Uint64

	mu     sync.Mutex
	closed bool
	conns  map[uint64]*Connection
}

func (l *Listener) Family() transport.Family {
	return l.family
}

func (l *Listener) Port() int {
	return l.port
}

func (l *Listener) Addr() net.Addr {
	return l.ts.Listener.Addr()
}

func (l *Listener) Name() string {
	return fmt.Sprintf("%s:%d", l.family, l.port)
}

// register assigns the connection its id. It fails once the listener is shut down.
func (l *Listener) register(c *Connection) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return false
	}
	c.id = l.nextID.Add(1)
	l.conns[c.id] = c
	return true
}

func (l *Listener) unregister(id uint64) {
	l.mu.Lock()
	delete(l.conns, id)
	l.mu.Unlock()
}

// ConnectionCount returns the number of live connections.
func (l *Listener) ConnectionCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.conns)
}

// shutdown stops accepting and closes every live connection. Workers notice
// the closed socket and remove themselves from the registry.
func (l *Listener) shutdown() {
	_ = l.ts.Close()

	l.mu.Lock()
	l.closed = true
	conns := make([]*Connection, 0, len(l.conns))
	for _, c := range l.conns {
		conns = append(conns, c)
	}
	l.mu.Unlock()

	for _, c := range conns {
		_ = c.conn.Close()
	}
}

// ListenerConfig is the persisted record of the ports the server bound.
type ListenerConfig struct {
	V4Ports []int `json:"v4ports"`
	V6Ports []int `json:"v6ports"`
}

func (c ListenerConfig) Empty() bool {
	return len(c.V4Ports) == 0 && len(c.V6Ports) == 0
}

// Write replaces the file at path. Empty lists are written as [].
func (c ListenerConfig) Write(path string) error {
	if c.V4Ports == nil {
		c.V4Ports = []int{}
	}
	if c.V6Ports == nil {
		c.V6Ports = []int{}
	}
	data, err := json.MarshalIndent(c, "", "    ")
	if err != nil {
		return fmt.Errorf("encode listener config: %w", err)
	}
	if err := utils.WriteFileAtomic(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write listener config %s: %w", path, err)
	}
	return nil
}

func ReadListenerConfig(path string) (ListenerConfig, error) {
	var cfg ListenerConfig
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read listener config: %w", err)
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("decode listener config %s: %w", path, err)
	}
	return cfg, nil
}

// resolvePorts replaces RandomPort entries with one random port.
func resolvePorts(opts Options) ([]int, error) {
	random := -1
	ports := make([]int, 0, len(opts.Ports))
	for _, p := range opts.Ports {
		if p == RandomPort {
			if random < 0 {
				r, err := utils.RandomIntRange(opts.RandomPortMin, opts.RandomPortMax)
				if err != nil {
					return nil, fmt.Errorf("pick random port: %w", err)
				}
				random = r
			}
			p = random
		}
		ports = append(ports, p)
	}
	return ports, nil
}

// bindAll tries every candidate port on both families. A failed bind only
// skips that listener. For port 0 the IPv6 attempt reuses the port the IPv4
// listener was given, so both families usually share the ephemeral port.
func (s *Server) bindAll(ctx context.Context) ([]net.Listener, []transport.Family, ListenerConfig, error) {
	var (
		lns      []net.Listener
		families []transport.Family
		cfg      ListenerConfig
	)

	ports, err := resolvePorts(s.opts)
	if err != nil {
		return nil, nil, cfg, err
	}

	for _, port := range ports {
		if s.opts.BindV4 != "" {
			ln, err := transport.ListenTCP(ctx, transport.FamilyIPv4, s.opts.BindV4, port)
			if err != nil {
				logs.Debugf("bind %s port %d: %v", transport.FamilyIPv4, port, err)
			} else {
				logs.Infof("Started %s", ln.Addr())
				port = transport.PortOf(ln.Addr())
				cfg.V4Ports = append(cfg.V4Ports, port)
				lns = append(lns, ln)
				families = append(families, transport.FamilyIPv4)
			}
		}

		if s.opts.BindV6 != "" {
			ln, err := transport.ListenTCP(ctx, transport.FamilyIPv6, s.opts.BindV6, port)
			if err != nil {
				logs.Debugf("bind %s port %d: %v", transport.FamilyIPv6, port, err)
			} else {
				logs.Infof("Started %s", ln.Addr())
				cfg.V6Ports = append(cfg.V6Ports, transport.PortOf(ln.Addr()))
				lns = append(lns, ln)
				families = append(families, transport.FamilyIPv6)
			}
		}
	}

	return lns, families, cfg, nil
}
