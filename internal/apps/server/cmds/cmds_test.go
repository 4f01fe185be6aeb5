package speedtestserver

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	appconfig "github.com/cubiclesoft/network-speedtest-cli/internal/apps/speedtest/config"
	"github.com/cubiclesoft/network-speedtest-cli/internal/speedtest/server"
)

func TestAcquirePIDLock(t *testing.T) {
	t.Parallel()

	lockPath := filepath.Join(t.TempDir(), "run", "server.pid")

	release, err := acquirePIDLock(lockPath)
	if err != nil {
		t.Fatalf("acquirePIDLock: %v", err)
	}
	pid, ok := readPID(lockPath)
	if !ok || pid != os.Getpid() {
		t.Fatalf("lock holds %d (%v), want %d", pid, ok, os.Getpid())
	}

	release()
	if _, err := os.Stat(lockPath); !os.IsNotExist(err) {
		t.Fatalf("lock file still present after release: %v", err)
	}
}

func TestAcquirePIDLockHeldByLiveProcess(t *testing.T) {
	t.Parallel()

	lockPath := filepath.Join(t.TempDir(), "server.pid")
	// the test runner's parent is alive for the duration of the test
	other := os.Getppid()
	if err := os.WriteFile(lockPath, []byte(strconv.Itoa(other)+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := acquirePIDLock(lockPath)
	if !errors.Is(err, errAlreadyRunning) {
		t.Fatalf("expected errAlreadyRunning, got %v", err)
	}
}

func TestAcquirePIDLockReclaimsStale(t *testing.T) {
	t.Parallel()

	for _, content := range []string{"not a pid\n", "2147483646\n", ""} {
		lockPath := filepath.Join(t.TempDir(), "server.pid")
		if err := os.WriteFile(lockPath, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}

		release, err := acquirePIDLock(lockPath)
		if err != nil {
			t.Fatalf("content %q: acquirePIDLock: %v", content, err)
		}
		if pid, _ := readPID(lockPath); pid != os.Getpid() {
			t.Fatalf("content %q: lock not reclaimed, holds %d", content, pid)
		}
		release()
	}
}

func TestReleaseKeepsForeignLock(t *testing.T) {
	t.Parallel()

	lockPath := filepath.Join(t.TempDir(), "server.pid")
	release, err := acquirePIDLock(lockPath)
	if err != nil {
		t.Fatalf("acquirePIDLock: %v", err)
	}

	// another instance took over in the meantime
	if err := os.WriteFile(lockPath, []byte("12345\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	release()

	if pid, ok := readPID(lockPath); !ok || pid != 12345 {
		t.Fatalf("foreign lock removed or changed: %d %v", pid, ok)
	}
}

func TestWaitForExit(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	if err := waitForExit(context.Background(), filepath.Join(dir, "missing.pid"), 10*time.Millisecond); err != nil {
		t.Fatalf("missing pid file: %v", err)
	}

	live := filepath.Join(dir, "live.pid")
	if err := os.WriteFile(live, []byte(strconv.Itoa(os.Getppid())), 0o644); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := waitForExit(ctx, live, 10*time.Millisecond); !errors.Is(err, errStopTimeout) {
		t.Fatalf("expected errStopTimeout, got %v", err)
	}
}

func TestTouchMarker(t *testing.T) {
	t.Parallel()

	marker := filepath.Join(t.TempDir(), "bin", "speedtest-server.notify.stop")
	if err := touchMarker(marker); err != nil {
		t.Fatalf("touchMarker: %v", err)
	}
	// touching twice is fine
	if err := touchMarker(marker); err != nil {
		t.Fatalf("touchMarker again: %v", err)
	}
	if _, err := os.Stat(marker); err != nil {
		t.Fatalf("marker missing: %v", err)
	}

	if err := touchMarker(""); err == nil {
		t.Fatalf("expected error for empty path")
	}
}

func TestStopMarkerIsSeenByWatcher(t *testing.T) {
	t.Parallel()

	paths := appconfig.ServerPathsFor(filepath.Join(t.TempDir(), "speedtest-server"))
	if err := touchMarker(paths.StopMarker); err != nil {
		t.Fatal(err)
	}

	w := server.SignalWatcher{StopMarker: paths.StopMarker, ReloadMarker: paths.ReloadMarker}
	if err := w.Check(); !errors.Is(err, server.ErrStopRequested) {
		t.Fatalf("expected ErrStopRequested, got %v", err)
	}

	clearStaleStopMarker(paths)
	if err := w.Check(); err != nil {
		t.Fatalf("expected no signal after clearing, got %v", err)
	}
}

func TestRenderPorts(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	lc := server.ListenerConfig{V4Ports: []int{8080, 40123}, V6Ports: []int{8080}}
	if err := renderPorts(&buf, lc, true); err != nil {
		t.Fatalf("renderPorts: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 5 {
		t.Fatalf("expected 5 lines, got %d:\n%s", len(lines), buf.String())
	}
	if !strings.HasPrefix(lines[2], "IPv4") || !strings.HasSuffix(lines[3], "40123") || !strings.HasPrefix(lines[4], "IPv6") {
		t.Fatalf("unexpected rows:\n%s", buf.String())
	}

	buf.Reset()
	if err := renderPorts(&buf, server.ListenerConfig{}, true); err != nil {
		t.Fatalf("renderPorts empty: %v", err)
	}
	if strings.TrimSpace(buf.String()) != "No listeners recorded" {
		t.Fatalf("unexpected output %q", buf.String())
	}
}

func TestLoadConfig(t *testing.T) {
	t.Parallel()

	cfg, err := loadConfig("")
	if err != nil {
		t.Fatalf("loadConfig defaults: %v", err)
	}
	if len(cfg.Ports) != len(server.DefaultPorts) {
		t.Fatalf("default ports = %v", cfg.Ports)
	}

	if _, err := loadConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatalf("expected error for missing config")
	}

	path := filepath.Join(t.TempDir(), "server.yaml")
	if err := os.WriteFile(path, []byte("bind-v6: \"\"\nports: [8080, random]\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err = loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.BindV6 != "" || len(cfg.Ports) != 2 || int(cfg.Ports[1]) != server.RandomPort {
		t.Fatalf("unexpected config %+v", cfg)
	}
}
