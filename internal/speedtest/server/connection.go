package server

import (
	"bytes"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/cubiclesoft/network-speedtest-cli/internal/networking/protocol"
)

type Mode int

const (
	ModeIdle Mode = iota
	ModeDownloading
	ModeUploading
)

func (m Mode) String() string {
	switch m {
	case ModeIdle:
		return "idle"
	case ModeDownloading:
		return "downloading"
	case ModeUploading:
		return "uploading"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// responseReserve is room kept below the high-water mark for one JSON
// response line, so answering a request never pushes the outbound buffer
// past the mark.
const responseReserve = 256

// Connection is one accepted socket and its protocol state. Everything but
// the id and the socket is owned by the connection's worker goroutine.
type Connection struct {
	id       uint64
	listener *Listener
	conn     net.Conn
	srv      *Server

	in  []byte
	out []byte

	received int64
	sent     int64

	mode     Mode
	deadline time.Time

	// discarding drops inbound bytes through the next '\n': the rest of a
	// line already answered as too long.
	discarding bool

	readErr error
}

func newConnection(srv *Server, l *Listener, conn net.Conn) *Connection {
	return &Connection{
		listener: l,
		conn:     conn,
		srv:      srv,
		out:      make([]byte, 0, srv.opts.HighWaterMark),
	}
}

// Counters implements protocol.Session.
func (c *Connection) Counters() (received, sent int64) {
	return c.received, c.sent
}

// StartDownload implements protocol.Session.
func (c *Connection) StartDownload(deadline time.Time) {
	c.mode = ModeDownloading
	c.deadline = deadline
}

// StartUpload implements protocol.Session.
func (c *Connection) StartUpload() {
	c.mode = ModeUploading
}

// topUp keeps a downloading connection's outbound buffer filled to the
// high-water mark. Past the deadline it queues the terminator instead, as
// soon as there is room for it, and returns to idle.
func (c *Connection) topUp() error {
	if c.mode != ModeDownloading {
		return nil
	}
	hwm := c.srv.opts.HighWaterMark

	if c.srv.opts.Clock.Now().Before(c.deadline) {
		need := hwm - len(c.out)
		if need <= 0 {
			return nil
		}
		out, err := c.srv.opts.Filler.AppendHex(c.out, need)
		if err != nil {
			return err
		}
		c.out = out
		return nil
	}

	if len(c.out) < hwm {
		c.out = append(c.out, protocol.Terminator)
		c.mode = ModeIdle
		c.deadline = time.Time{}
	}
	return nil
}

// process consumes buffered inbound bytes according to the current mode.
func (c *Connection) process() {
	for len(c.in) > 0 {
		switch c.mode {
		case ModeUploading:
			i := bytes.IndexByte(c.in, protocol.Terminator)
			if i < 0 {
				c.in = c.in[:0]
				return
			}
			c.consume(i + 1)
			c.mode = ModeIdle

		case ModeIdle:
			if c.discarding {
				i := bytes.IndexByte(c.in, protocol.Terminator)
				if i < 0 {
					c.in = c.in[:0]
					return
				}
				c.consume(i + 1)
				c.discarding = false
				continue
			}
			if c.backlogged() {
				return
			}
			i := bytes.IndexByte(c.in, protocol.Terminator)
			if i < 0 {
				if len(c.in) > c.srv.opts.MaxLineLength {
					c.in = c.in[:0]
					c.discarding = true
					c.out = protocol.AppendResponse(c.out, protocol.Failure(protocol.CodeInvalidRequest))
				}
				return
			}
			resp := c.srv.engine.Handle(c.in[:i], c)
			c.consume(i + 1)
			c.out = protocol.AppendResponse(c.out, resp)

		default:
			// Requests sent while downloading wait for the terminator.
			return
		}
	}
}

func (c *Connection) consume(n int) {
	c.in = append(c.in[:0], c.in[n:]...)
}

// backlogged reports whether the outbound buffer is too full to take
// another response line.
func (c *Connection) backlogged() bool {
	return len(c.out) > c.srv.opts.HighWaterMark-responseReserve
}

// canRead reports whether the worker should accept more inbound bytes.
// While downloading, or while responses pile up unsent, reads stop and TCP
// flow control pushes back on the peer.
func (c *Connection) canRead() bool {
	switch c.mode {
	case ModeDownloading:
		return false
	case ModeIdle:
		return !c.backlogged()
	default:
		return true
	}
}

func (c *Connection) busy() bool {
	return c.mode == ModeDownloading || len(c.out) > 0
}

// flush writes as much of the outbound buffer as the socket takes within
// FlushTimeout. A timed out write keeps the remainder for the next round.
func (c *Connection) flush() error {
	if len(c.out) == 0 {
		return nil
	}
	if err := c.conn.SetWriteDeadline(time.Now().Add(c.srv.opts.FlushTimeout)); err != nil {
		return err
	}
	n, err := c.conn.Write(c.out)
	c.sent += int64(n)
	c.out = append(c.out[:0], c.out[n:]...)
	if err != nil && !errors.Is(err, os.ErrDeadlineExceeded) {
		return err
	}
	return nil
}
