package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/cubiclesoft/network-speedtest-cli/internal/logs"
	"github.com/cubiclesoft/network-speedtest-cli/internal/runtime"
)

// acceptBackoff is how long the accept loop pauses after a non-fatal accept
// error (for example running out of file descriptors).
const acceptBackoff = 50 * time.Millisecond

// ListenTCP binds host:port for one address family without accepting.
// tcp6 listeners are IPv6-only, so the same port can be bound for both families.
func ListenTCP(ctx context.Context, family Family, host string, port int) (net.Listener, error) {
	var lc net.ListenConfig
	return lc.Listen(ctx, string(family), net.JoinHostPort(host, strconv.Itoa(port)))
}

// Serve runs the accept loop for ln and calls onConn in a new goroutine for
// each accepted connection. Cancelling the runtime context, or calling Close
// on the returned Server, stops the loop.
func Serve(rt *runtime.Runtime, family Family, ln net.Listener, onConn func(context.Context, net.Conn)) *Server {
	ctx, cancel := context.WithCancel(rt.Ctx())

	srv := &Server{
		Listener: ln,
		Family:   family,
		Cancel:   cancel,
		done:     make(chan struct{}),
	}

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	routineName := fmt.Sprintf("Serve;Accept loop;%s;%s", family, ln.Addr())
	rt.GoNamed(routineName, func() {
		defer close(srv.done)
		logs.Debugf("tcp transport: accepting connections on %s", ln.Addr())
		for {
			conn, err := ln.Accept()
			if err != nil {
				// Closing the listener is the normal way out of this loop.
				if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
					logs.Debugf("accept loop on %s stopped: %v", ln.Addr(), err)
					return
				}
				logs.Warnf("accept error on %s: %v", ln.Addr(), err)
				select {
				case <-ctx.Done():
					return
				case <-time.After(acceptBackoff):
				}
				continue
			}

			rt.GoQuiet(routineName+";onConn", func() {
				onConn(ctx, conn)
			})
		}
	})

	return srv
}

// DialTCP opens a TCP connection to addr, giving up after timeout.
// There are no retries: a failed connect is reported to the caller as is.
func DialTCP(ctx context.Context, addr string, timeout time.Duration) (net.Conn, error) {
	dialer := &net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	return conn, nil
}
