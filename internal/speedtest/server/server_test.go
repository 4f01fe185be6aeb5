package server_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cubiclesoft/network-speedtest-cli/internal/networking/protocol"
	"github.com/cubiclesoft/network-speedtest-cli/internal/runtime"
	"github.com/cubiclesoft/network-speedtest-cli/internal/speedtest/server"
)

func startServer(t *testing.T, mutate func(*server.Options)) *server.Server {
	t.Helper()

	rt := runtime.NewServerRuntime()
	opts := server.Options{
		BindV4: "127.0.0.1",
		Ports:  []int{0},
	}
	if mutate != nil {
		mutate(&opts)
	}
	srv := server.New(rt, opts)
	if err := srv.Start(rt.Ctx()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() {
		srv.Shutdown()
		rt.CancelCtx()
		_ = rt.Wait()
	})
	return srv
}

type peer struct {
	t    *testing.T
	conn net.Conn
	br   *bufio.Reader
}

func dial(t *testing.T, srv *server.Server) *peer {
	t.Helper()
	addr := srv.Listeners()[0].Addr().String()
	conn, err := net.DialTimeout("tcp", addr, 2*time.Second)
	if err != nil {
		t.Fatalf("dial %s: %v", addr, err)
	}
	t.Cleanup(func() { conn.Close() })
	return &peer{t: t, conn: conn, br: bufio.NewReader(conn)}
}

func (p *peer) send(line string) {
	p.t.Helper()
	if _, err := p.conn.Write([]byte(line)); err != nil {
		p.t.Fatalf("write: %v", err)
	}
}

func (p *peer) readLine() string {
	p.t.Helper()
	_ = p.conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	line, err := p.br.ReadString('\n')
	if err != nil {
		p.t.Fatalf("read line: %v", err)
	}
	return line
}

func (p *peer) call(line string) (protocol.Response, string) {
	p.t.Helper()
	p.send(line)
	raw := p.readLine()
	resp, err := protocol.DecodeResponse([]byte(raw))
	if err != nil {
		p.t.Fatalf("decode %q: %v", raw, err)
	}
	return resp, raw
}

func (p *peer) stats() (int64, int64, string) {
	p.t.Helper()
	resp, raw := p.call(statsReq)
	if !resp.Success || resp.Received == nil || resp.Sent == nil {
		p.t.Fatalf("bad stats response %q", raw)
	}
	return *resp.Received, *resp.Sent, raw
}

const statsReq = `{"action":"stats"}` + "\n"

func TestStatsCountsRawBytes(t *testing.T) {
	t.Parallel()

	srv := startServer(t, nil)
	p := dial(t, srv)

	r1, s1, raw1 := p.stats()
	if r1 != int64(len(statsReq)) || s1 != 0 {
		t.Fatalf("fresh stats = %d/%d, want %d/0", r1, s1, len(statsReq))
	}

	r2, s2, _ := p.stats()
	if r2 != r1+int64(len(statsReq)) {
		t.Fatalf("received = %d, want %d", r2, r1+int64(len(statsReq)))
	}
	if s2 != s1+int64(len(raw1)) {
		t.Fatalf("sent = %d, want %d", s2, s1+int64(len(raw1)))
	}
}

func TestDownloadStreamsUntilDeadline(t *testing.T) {
	t.Parallel()

	srv := startServer(t, nil)
	p := dial(t, srv)

	const req = `{"action":"download","secs":1}` + "\n"
	before := time.Now()
	resp, ack := p.call(req)
	if !resp.Success || resp.TS == nil {
		t.Fatalf("bad download ack %q", ack)
	}
	deadline := protocol.TimeFromTimestamp(*resp.TS)
	if d := deadline.Sub(before); d < 900*time.Millisecond || d > 1500*time.Millisecond {
		t.Fatalf("deadline is %v after the request", d)
	}

	var streamed int64
	for {
		_ = p.conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		chunk, err := p.br.ReadSlice('\n')
		if err != nil && !errors.Is(err, bufio.ErrBufferFull) {
			t.Fatalf("read stream: %v", err)
		}
		streamed += int64(len(chunk))
		if strings.Trim(string(bytes.TrimSuffix(chunk, []byte{'\n'})), "0123456789abcdef") != "" {
			t.Fatal("stream contains non-hex bytes")
		}
		if err == nil {
			break
		}
	}
	elapsed := time.Since(before)
	if elapsed < 900*time.Millisecond || elapsed > 3*time.Second {
		t.Fatalf("stream lasted %v, want about 1s", elapsed)
	}
	if streamed < 2 {
		t.Fatalf("streamed only %d bytes", streamed)
	}

	received, sent, _ := p.stats()
	if want := int64(len(req) + len(statsReq)); received != want {
		t.Fatalf("received = %d, want %d", received, want)
	}
	if want := int64(len(ack)) + streamed; sent != want {
		t.Fatalf("sent = %d, want %d", sent, want)
	}
}

func TestUploadCountsPayloadAndTerminator(t *testing.T) {
	t.Parallel()

	srv := startServer(t, nil)
	p := dial(t, srv)

	r1, _, _ := p.stats()

	const uploadReq = `{"action":"upload"}` + "\n"
	resp, raw := p.call(uploadReq)
	if !resp.Success {
		t.Fatalf("upload rejected: %q", raw)
	}
	p.send(strings.Repeat("a1", 5000) + "\n")

	r2, _, _ := p.stats()
	if want := r1 + 10001 + int64(len(uploadReq)) + int64(len(statsReq)); r2 != want {
		t.Fatalf("received = %d, want %d", r2, want)
	}
}

func TestProtocolErrorsKeepConnectionUsable(t *testing.T) {
	t.Parallel()

	srv := startServer(t, nil)
	p := dial(t, srv)

	cases := map[string]string{
		`{"action":"download"}` + "\n":           protocol.CodeMissingSecs,
		`{"action":"download","secs":0}` + "\n":  protocol.CodeInvalidSecs,
		`{"action":"download","secs":-3}` + "\n": protocol.CodeInvalidSecs,
		`{"action":"nope"}` + "\n":               protocol.CodeUnknownAction,
		"this is not json\n":                     protocol.CodeInvalidRequest,
	}
	for req, code := range cases {
		resp, raw := p.call(req)
		if resp.Success || resp.ErrorCode != code {
			t.Fatalf("%q -> %q, want errorcode %q", req, raw, code)
		}
	}

	resp, raw := p.call(`{"action":"latency"}` + "\n")
	if !resp.Success || resp.TS == nil {
		t.Fatalf("latency after errors: %q", raw)
	}
}

func TestPipelinedRequestsAnsweredInOrder(t *testing.T) {
	t.Parallel()

	srv := startServer(t, nil)
	p := dial(t, srv)

	p.send(statsReq + `{"action":"latency"}` + "\n" + `{"action":"x"}` + "\n")
	first := p.readLine()
	second := p.readLine()
	third := p.readLine()

	if !strings.Contains(first, `"received"`) || !strings.Contains(second, `"ts"`) || !strings.Contains(third, "unknown_action") {
		t.Fatalf("out of order responses: %q %q %q", first, second, third)
	}
	for _, line := range []string{first, second, third} {
		if !json.Valid([]byte(line)) {
			t.Fatalf("invalid JSON line %q", line)
		}
	}
}

func TestConnectionsAreIndependent(t *testing.T) {
	t.Parallel()

	srv := startServer(t, nil)
	a := dial(t, srv)
	b := dial(t, srv)

	resp, raw := a.call(`{"action":"upload"}` + "\n")
	if !resp.Success {
		t.Fatalf("upload: %q", raw)
	}

	// b is idle and unaffected by a's upload mode
	r, s, _ := b.stats()
	if r != int64(len(statsReq)) || s != 0 {
		t.Fatalf("b stats = %d/%d", r, s)
	}

	a.send("ffff\n")
	ra, _, _ := a.stats()
	if want := int64(len(`{"action":"upload"}`+"\n") + 5 + len(statsReq)); ra != want {
		t.Fatalf("a received = %d, want %d", ra, want)
	}

	deadline := time.Now().Add(2 * time.Second)
	for srv.ConnectionCount() != 2 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if n := srv.ConnectionCount(); n != 2 {
		t.Fatalf("ConnectionCount = %d, want 2", n)
	}

	a.conn.Close()
	for srv.ConnectionCount() != 1 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if n := srv.ConnectionCount(); n != 1 {
		t.Fatalf("ConnectionCount after disconnect = %d, want 1", n)
	}
}

func TestListenerConfigWritten(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.dat")
	srv := startServer(t, func(o *server.Options) {
		o.ListenerConfigPath = path
	})

	cfg, err := server.ReadListenerConfig(path)
	if err != nil {
		t.Fatalf("ReadListenerConfig: %v", err)
	}
	if len(cfg.V4Ports) != 1 || cfg.V4Ports[0] != srv.Listeners()[0].Port() {
		t.Fatalf("v4ports = %v, want [%d]", cfg.V4Ports, srv.Listeners()[0].Port())
	}
	if cfg.V6Ports == nil {
		t.Fatal("v6ports must be an empty list, not missing")
	}

	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), `"v6ports": []`) {
		t.Fatalf("unexpected file contents %s", data)
	}
}

func TestStartFailsWithoutListeners(t *testing.T) {
	t.Parallel()

	busy, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer busy.Close()
	port := busy.Addr().(*net.TCPAddr).Port

	rt := runtime.NewServerRuntime()
	defer func() {
		rt.CancelCtx()
		_ = rt.Wait()
	}()
	srv := server.New(rt, server.Options{BindV4: "127.0.0.1", Ports: []int{port}})
	if err := srv.Start(rt.Ctx()); !errors.Is(err, server.ErrNoListeners) {
		t.Fatalf("Start error = %v, want ErrNoListeners", err)
	}
}

func TestRunStopsOnMarkers(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	stop := filepath.Join(dir, "server.notify.stop")
	reload := filepath.Join(dir, "server.notify.reload")

	for name, tc := range map[string]struct {
		marker string
		want   error
	}{
		"stop":   {stop + "-a", server.ErrStopRequested},
		"reload": {reload + "-b", server.ErrReloadRequested},
	} {
		srv := startServer(t, func(o *server.Options) {
			if tc.want == server.ErrStopRequested {
				o.StopMarker = tc.marker
			} else {
				o.ReloadMarker = tc.marker
			}
			o.SignalInterval = 20 * time.Millisecond
		})
		p := dial(t, srv)
		p.stats()

		if err := os.WriteFile(tc.marker, nil, 0o644); err != nil {
			t.Fatalf("%s: write marker: %v", name, err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := srv.Run(ctx)
		cancel()
		if err != nil {
			t.Fatalf("%s: Run: %v", name, err)
		}
		if !errors.Is(srv.StopCause(), tc.want) {
			t.Fatalf("%s: StopCause = %v, want %v", name, srv.StopCause(), tc.want)
		}

		_, statErr := os.Stat(tc.marker)
		if tc.want == server.ErrReloadRequested && !os.IsNotExist(statErr) {
			t.Fatalf("reload marker must be removed")
		}
		if tc.want == server.ErrStopRequested && statErr != nil {
			t.Fatalf("stop marker must be left in place")
		}

		// connections were closed by the shutdown
		_ = p.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		if _, err := p.br.ReadByte(); err == nil {
			t.Fatalf("%s: expected closed connection after shutdown", name)
		}
	}
}

func TestRunReturnsWhenContextCancelled(t *testing.T) {
	t.Parallel()

	srv := startServer(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := srv.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !errors.Is(srv.StopCause(), context.Canceled) {
		t.Fatalf("StopCause = %v", srv.StopCause())
	}
}
