package appconfig

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cubiclesoft/network-speedtest-cli/internal/speedtest/server"
)

func TestLoadServerConfigDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := LoadServerConfig("")
	if err != nil {
		t.Fatalf("LoadServerConfig: %v", err)
	}
	opts := cfg.ServerOptions()
	want := []int{80, 443, 8080, server.RandomPort, 0}
	if len(opts.Ports) != len(want) {
		t.Fatalf("ports = %v, want %v", opts.Ports, want)
	}
	for i := range want {
		if opts.Ports[i] != want[i] {
			t.Fatalf("ports = %v, want %v", opts.Ports, want)
		}
	}
	if opts.BindV4 != "0.0.0.0" || opts.BindV6 != "::" {
		t.Fatalf("bind = %q/%q", opts.BindV4, opts.BindV6)
	}
	if opts.SignalInterval != 3*time.Second || opts.HighWaterMark != 65536 {
		t.Fatalf("opts = %+v", opts)
	}
	if !strings.HasSuffix(opts.StopMarker, ".notify.stop") || !strings.HasSuffix(opts.ReloadMarker, ".notify.reload") {
		t.Fatalf("markers = %q %q", opts.StopMarker, opts.ReloadMarker)
	}
	if filepath.Base(opts.ListenerConfigPath) != "config.dat" {
		t.Fatalf("listener config = %q", opts.ListenerConfigPath)
	}
}

func TestLoadServerConfigFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "server.yaml")
	body := `
bind-v4: 127.0.0.1
bind-v6: ""
ports: [9000, random, 0]
random-port-min: 20000
random-port-max: 20010
marker-base: ` + filepath.Join(dir, "srv") + `
signal-interval: 1s
high-water-mark: 4096
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := LoadServerConfig(path)
	if err != nil {
		t.Fatalf("LoadServerConfig: %v", err)
	}
	opts := cfg.ServerOptions()
	if opts.BindV4 != "127.0.0.1" || opts.BindV6 != "" {
		t.Fatalf("bind = %q/%q", opts.BindV4, opts.BindV6)
	}
	if len(opts.Ports) != 3 || opts.Ports[0] != 9000 || opts.Ports[1] != server.RandomPort || opts.Ports[2] != 0 {
		t.Fatalf("ports = %v", opts.Ports)
	}
	if opts.SignalInterval != time.Second || opts.HighWaterMark != 4096 {
		t.Fatalf("opts = %+v", opts)
	}
	// untouched fields keep their defaults
	if opts.ReadChunkSize != server.DefaultReadChunkSize {
		t.Fatalf("read chunk = %d", opts.ReadChunkSize)
	}

	paths := cfg.Paths()
	if paths.StopMarker != filepath.Join(dir, "srv.notify.stop") || paths.PIDFile != filepath.Join(dir, "srv.pid") {
		t.Fatalf("paths = %+v", paths)
	}
	if paths.ListenerConfig != filepath.Join(dir, "config.dat") {
		t.Fatalf("listener config = %q", paths.ListenerConfig)
	}
}

func TestLoadServerConfigRejectsBadPorts(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	for name, body := range map[string]string{
		"word":     "ports: [eighty]\n",
		"range":    "ports: [70000]\n",
		"empty":    "ports: []\n",
		"nobind":   "bind-v4: \"\"\nbind-v6: \"\"\n",
		"inverted": "random-port-min: 10\nrandom-port-max: 5\n",
	} {
		path := filepath.Join(dir, name+".yaml")
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
		if _, err := LoadServerConfig(path); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}
