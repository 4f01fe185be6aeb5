package transport

import (
	"context"
	"net"
	"strconv"
)

type Family string

const (
	FamilyIPv4 Family = "tcp4"
	FamilyIPv6 Family = "tcp6"
)

// Server represents a running TCP listener and its accept loop.
type Server struct {
	Listener net.Listener
	Family   Family
	Cancel   context.CancelFunc

	done chan struct{}
}

// Port returns the port the listener is actually bound to. For an
// OS-assigned (port 0) listener this is the ephemeral port.
func (s *Server) Port() int {
	return PortOf(s.Listener.Addr())
}

// Done is closed once the accept loop has returned.
func (s *Server) Done() <-chan struct{} {
	return s.done
}

// Close stops the accept loop and closes the listening socket.
func (s *Server) Close() error {
	s.Cancel()
	return s.Listener.Close()
}

// PortOf extracts the port from a net.Addr, or 0 if it has none.
func PortOf(addr net.Addr) int {
	if tcp, ok := addr.(*net.TCPAddr); ok {
		return tcp.Port
	}
	_, p, err := net.SplitHostPort(addr.String())
	if err != nil {
		return 0
	}
	port, _ := strconv.Atoi(p)
	return port
}
