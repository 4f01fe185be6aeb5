package transport

import (
	"bufio"
	"context"
	"net"
	"testing"
	"time"

	"github.com/cubiclesoft/network-speedtest-cli/internal/runtime"
)

func TestServeAcceptsAndEchoes(t *testing.T) {
	t.Parallel()

	rt := runtime.NewServerRuntime()
	defer func() {
		rt.CancelCtx()
		_ = rt.Wait()
	}()

	ln, err := ListenTCP(rt.Ctx(), FamilyIPv4, "127.0.0.1", 0)
	if err != nil {
		t.Fatalf("ListenTCP: %v", err)
	}

	srv := Serve(rt, FamilyIPv4, ln, func(_ context.Context, c net.Conn) {
		defer c.Close()
		line, err := bufio.NewReader(c).ReadString('\n')
		if err != nil {
			return
		}
		_, _ = c.Write([]byte(line))
	})
	if srv.Port() == 0 {
		t.Fatal("expected an OS-assigned port")
	}

	conn, err := DialTCP(context.Background(), ln.Addr().String(), time.Second)
	if err != nil {
		t.Fatalf("DialTCP: %v", err)
	}
	defer conn.Close()

	if _, err := conn.Write([]byte("ping\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	got, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got != "ping\n" {
		t.Fatalf("echo = %q", got)
	}

	if err := srv.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	select {
	case <-srv.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("accept loop did not stop after Close")
	}
}

func TestDialTCPFailsOnClosedPort(t *testing.T) {
	t.Parallel()

	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()

	if _, err := DialTCP(context.Background(), addr, 500*time.Millisecond); err == nil {
		t.Fatal("expected dial to a closed port to fail")
	}
}

func TestPortOf(t *testing.T) {
	t.Parallel()

	if p := PortOf(&net.TCPAddr{IP: net.IPv4zero, Port: 8080}); p != 8080 {
		t.Fatalf("PortOf = %d", p)
	}
}
