package appconfig

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/cubiclesoft/network-speedtest-cli/internal/speedtest/server"
	"gopkg.in/yaml.v3"
)

// ServerConfig is the optional YAML file of speedtest-server. Unset fields
// keep the built-in defaults.
type ServerConfig struct {
	BindV4        string          `yaml:"bind-v4"`
	BindV6        string          `yaml:"bind-v6"`
	Ports         []CandidatePort `yaml:"ports"`
	RandomPortMin int             `yaml:"random-port-min"`
	RandomPortMax int             `yaml:"random-port-max"`

	ListenerConfig string `yaml:"listener-config"`
	// MarkerBase replaces the binary path as the base of the marker and pid files.
	MarkerBase     string        `yaml:"marker-base"`
	SignalInterval time.Duration `yaml:"signal-interval"`

	HighWaterMark int    `yaml:"high-water-mark"`
	ReadChunkSize int    `yaml:"read-chunk-size"`
	LogFile       string `yaml:"log-file"`
}

// CandidatePort is a port number or the word "random".
type CandidatePort int

// UnmarshalYAML implements yaml.Unmarshaler.
func (p *CandidatePort) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	if raw == "random" {
		*p = CandidatePort(server.RandomPort)
		return nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fmt.Errorf("line %d: port %q is neither a number nor \"random\"", value.Line, raw)
	}
	if n < 0 || n > 65535 {
		return fmt.Errorf("line %d: port %d out of range", value.Line, n)
	}
	*p = CandidatePort(n)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (p CandidatePort) MarshalYAML() (any, error) {
	if int(p) == server.RandomPort {
		return "random", nil
	}
	return int(p), nil
}

func DefaultServerConfig() ServerConfig {
	opts := server.DefaultOptions()
	ports := make([]CandidatePort, 0, len(server.DefaultPorts))
	for _, p := range server.DefaultPorts {
		ports = append(ports, CandidatePort(p))
	}
	return ServerConfig{
		BindV4:         opts.BindV4,
		BindV6:         opts.BindV6,
		Ports:          ports,
		RandomPortMin:  server.DefaultRandomPortMin,
		RandomPortMax:  server.DefaultRandomPortMax,
		SignalInterval: server.DefaultSignalInterval,
		HighWaterMark:  server.DefaultHighWaterMark,
		ReadChunkSize:  server.DefaultReadChunkSize,
	}
}

// LoadServerConfig reads path over the defaults. An empty path returns the defaults.
func LoadServerConfig(path string) (ServerConfig, error) {
	cfg := DefaultServerConfig()
	if path == "" {
		return cfg, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read server config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parse server config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("server config %s: %w", path, err)
	}
	return cfg, nil
}

func (c ServerConfig) Validate() error {
	if c.BindV4 == "" && c.BindV6 == "" {
		return errors.New("bind-v4 and bind-v6 are both empty")
	}
	if len(c.Ports) == 0 {
		return errors.New("no candidate ports")
	}
	if c.RandomPortMin > c.RandomPortMax {
		return fmt.Errorf("random-port-min %d is above random-port-max %d", c.RandomPortMin, c.RandomPortMax)
	}
	if c.HighWaterMark < 0 || c.ReadChunkSize < 0 {
		return errors.New("high-water-mark and read-chunk-size must not be negative")
	}
	return nil
}

// Paths resolves the listener config, marker and pid files.
func (c ServerConfig) Paths() ServerPaths {
	base := c.MarkerBase
	if base == "" {
		base = DefaultServerBase()
	}
	paths := ServerPathsFor(base)
	if c.ListenerConfig != "" {
		paths.ListenerConfig = c.ListenerConfig
	}
	return paths
}

// ServerOptions maps the file onto the engine options.
func (c ServerConfig) ServerOptions() server.Options {
	paths := c.Paths()
	ports := make([]int, 0, len(c.Ports))
	for _, p := range c.Ports {
		ports = append(ports, int(p))
	}
	return server.Options{
		BindV4:             c.BindV4,
		BindV6:             c.BindV6,
		Ports:              ports,
		RandomPortMin:      c.RandomPortMin,
		RandomPortMax:      c.RandomPortMax,
		ListenerConfigPath: paths.ListenerConfig,
		StopMarker:         paths.StopMarker,
		ReloadMarker:       paths.ReloadMarker,
		SignalInterval:     c.SignalInterval,
		HighWaterMark:      c.HighWaterMark,
		ReadChunkSize:      c.ReadChunkSize,
	}
}
