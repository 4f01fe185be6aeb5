package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"

	"github.com/cubiclesoft/network-speedtest-cli/internal/logs"
)

// serve is the connection's worker. It is the only goroutine that touches
// the connection's buffers, counters and mode. Each round it tops up the
// download filler, answers buffered requests, flushes, then takes at most
// one chunk from the reader, so a response produced in one round is written
// at the start of the next.
func (c *Connection) serve(ctx context.Context) {
	done := make(chan struct{})
	chunks := make(chan []byte)

	var cause error
	defer func() {
		close(done)
		c.conn.Close()
		c.listener.unregister(c.id)
		c.logDisconnect(cause)
	}()

	c.srv.rt.GoQuiet(fmt.Sprintf("conn %s/%d reader", c.listener.Name(), c.id), func() {
		c.readLoop(chunks, done)
	})

	for {
		if err := c.topUp(); err != nil {
			cause = err
			return
		}
		c.process()
		if err := c.flush(); err != nil {
			cause = fmt.Errorf("write: %w", err)
			return
		}

		var recv <-chan []byte
		if c.canRead() {
			recv = chunks
		}

		var (
			chunk []byte
			ok    bool
		)
		if c.busy() {
			select {
			case <-ctx.Done():
				cause = errServerShutdown
				return
			case chunk, ok = <-recv:
			default:
				continue
			}
		} else {
			select {
			case <-ctx.Done():
				cause = errServerShutdown
				return
			case chunk, ok = <-recv:
			}
		}
		if !ok {
			// chunks is closed after readErr is set.
			cause = c.readErr
			return
		}

		c.received += int64(len(chunk))
		c.in = append(c.in, chunk...)
		c.process()
	}
}

// readLoop only moves bytes from the socket to the worker. It stops when the
// socket fails or the worker is gone.
func (c *Connection) readLoop(chunks chan<- []byte, done <-chan struct{}) {
	defer close(chunks)
	for {
		buf := make([]byte, c.srv.opts.ReadChunkSize)
		n, err := c.conn.Read(buf)
		if n > 0 {
			select {
			case chunks <- buf[:n]:
			case <-done:
				return
			}
		}
		if err != nil {
			c.readErr = err
			return
		}
	}
}

var errServerShutdown = errors.New("server shutdown")

func (c *Connection) logDisconnect(cause error) {
	reason := "closed"
	if cause != nil && !errors.Is(cause, io.EOF) && !errors.Is(cause, net.ErrClosed) {
		reason = cause.Error()
	}
	logs.Infof("Client %d disconnected (%s). %d bytes received, %d bytes sent.", c.id, reason, c.received, c.sent)
}
