// Package client is the blocking driver for the speed test server. One
// Client owns one connection and runs one action at a time.
package client

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/cubiclesoft/network-speedtest-cli/internal/logs"
	"github.com/cubiclesoft/network-speedtest-cli/internal/networking/protocol"
	"github.com/cubiclesoft/network-speedtest-cli/internal/networking/transport"
	"github.com/cubiclesoft/network-speedtest-cli/internal/utils"
)

const (
	DefaultConnectTimeout = 3 * time.Second

	readBufferSize = 65536
	// uploadBlockBytes random bytes are hex encoded into each upload write.
	uploadBlockBytes = 4096
)

type Client struct {
	conn net.Conn
	br   *bufio.Reader

	debug          bool
	connectTimeout time.Duration
}

func New() *Client {
	return &Client{connectTimeout: DefaultConnectTimeout}
}

// SetDebug logs every raw request and response line at debug level.
func (c *Client) SetDebug(debug bool) {
	c.debug = debug
}

func (c *Client) SetConnectTimeout(d time.Duration) {
	if d > 0 {
		c.connectTimeout = d
	}
}

func (c *Client) Connected() bool {
	return c.conn != nil
}

// Connect opens the connection. The connect timeout is the only timeout the
// client applies: later calls block until the server answers.
func (c *Client) Connect(ctx context.Context, host string, port int) error {
	if c.conn != nil {
		_ = c.Disconnect()
	}
	addr := net.JoinHostPort(host, strconv.Itoa(port))
	conn, err := transport.DialTCP(ctx, addr, c.connectTimeout)
	if err != nil {
		return newError(CodeConnectFailed, err)
	}
	logs.Debugf("connected to %s", addr)
	c.conn = conn
	c.br = bufio.NewReaderSize(conn, readBufferSize)
	return nil
}

// Disconnect closes the connection. It is a no-op when not connected.
func (c *Client) Disconnect() error {
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	c.br = nil
	return err
}

// RunAPI sends one request line and reads one response line. A response with
// success=false is returned together with a *Error carrying the server's code.
func (c *Client) RunAPI(req any) (protocol.Response, error) {
	if c.conn == nil {
		return protocol.Response{}, newError(CodeNotConnected, nil)
	}

	line, err := protocol.EncodeLine(req)
	if err != nil {
		return protocol.Response{}, newError(CodeServiceRequestFailed, err)
	}
	n, err := c.conn.Write(line)
	if c.debug {
		logs.Debugf("------- RAW SEND START -------\n%s------- RAW SEND END -------", line[:n])
	}
	if err != nil || n < len(line) {
		if err == nil {
			err = fmt.Errorf("short write: %d of %d bytes", n, len(line))
		}
		return protocol.Response{}, newError(CodeServiceRequestFailed, err)
	}

	raw, err := c.br.ReadBytes(protocol.Terminator)
	if c.debug {
		logs.Debugf("------- RAW RECEIVE START -------\n%s------- RAW RECEIVE END -------", raw)
	}
	if err != nil {
		return protocol.Response{}, newError(CodeDecodingFailed, err)
	}

	resp, err := protocol.DecodeResponse(raw)
	if err != nil {
		return protocol.Response{}, newError(CodeDecodingFailed, err)
	}
	if !resp.Success {
		return resp, &Error{Code: resp.ErrorCode, Message: resp.Error}
	}
	return resp, nil
}

type Stats struct {
	Received int64 `json:"received"`
	Sent     int64 `json:"sent"`
}

func (c *Client) Stats() (Stats, error) {
	resp, err := c.RunAPI(map[string]any{"action": protocol.ActionStats})
	if err != nil {
		return Stats{}, err
	}
	var st Stats
	if resp.Received != nil {
		st.Received = *resp.Received
	}
	if resp.Sent != nil {
		st.Sent = *resp.Sent
	}
	return st, nil
}

type LatencyResult struct {
	Average    time.Duration
	Iterations int
}

// RunLatencyTest times latency round trips until d has elapsed. At least one
// round trip always runs.
func (c *Client) RunLatencyTest(d time.Duration) (LatencyResult, error) {
	var (
		total time.Duration
		num   int
	)
	start := time.Now()
	for {
		ts := time.Now()
		if _, err := c.RunAPI(map[string]any{"action": protocol.ActionLatency}); err != nil {
			return LatencyResult{}, err
		}
		total += time.Since(ts)
		num++
		if time.Since(start) >= d {
			break
		}
	}
	return LatencyResult{Average: total / time.Duration(num), Iterations: num}, nil
}

// TransferResult is the outcome of a download or upload phase.
type TransferResult struct {
	Size int64
	Time time.Duration
}

// RunDownloadTest asks the server to stream for d (whole seconds) and counts
// the streamed bytes up to and including the terminator. Time is the
// requested duration, not the measured one.
func (c *Client) RunDownloadTest(d time.Duration) (TransferResult, error) {
	secs := int64(d / time.Second)
	if _, err := c.RunAPI(map[string]any{"action": protocol.ActionDownload, "secs": secs}); err != nil {
		return TransferResult{}, err
	}

	var size int64
	for {
		chunk, err := c.br.ReadSlice(protocol.Terminator)
		size += int64(len(chunk))
		if err == nil {
			break
		}
		if !errors.Is(err, bufio.ErrBufferFull) {
			return TransferResult{}, newError(CodeDownloadTestFailed, err)
		}
	}

	return TransferResult{Size: size, Time: time.Duration(secs) * time.Second}, nil
}

// RunUploadTest streams hex encoded random blocks until d has elapsed, then
// the terminator. Size counts the payload without the terminator; Time is
// the measured duration.
func (c *Client) RunUploadTest(d time.Duration) (TransferResult, error) {
	if c.conn == nil {
		return TransferResult{}, newError(CodeNotConnected, nil)
	}
	if _, err := c.RunAPI(map[string]any{"action": protocol.ActionUpload}); err != nil {
		return TransferResult{}, err
	}

	block, err := utils.RandomHex(uploadBlockBytes)
	if err != nil {
		return TransferResult{}, newError(CodeServiceRequestFailed, err)
	}
	data := []byte(block)

	var (
		size    int64
		elapsed time.Duration
	)
	start := time.Now()
	for {
		n, err := c.conn.Write(data)
		size += int64(n)
		if err != nil {
			return TransferResult{}, newError(CodeServiceRequestFailed, err)
		}
		elapsed = time.Since(start)
		if elapsed >= d {
			break
		}
	}

	if _, err := c.conn.Write([]byte{protocol.Terminator}); err != nil {
		return TransferResult{}, newError(CodeServiceRequestFailed, err)
	}

	return TransferResult{Size: size, Time: elapsed}, nil
}
