package appconfig

import (
	"os"
	"path/filepath"

	"github.com/cubiclesoft/network-speedtest-cli/internal/utils"
)

func ConfigBasePath() string {
	homedir, err := os.UserHomeDir()
	if err != nil {
		homedir = "/usr/local/config"
	}

	p := filepath.Join(homedir, ".config", "speedtest")
	return p
}

func StateDBFile() string {
	return filepath.Join(ConfigBasePath(), "state.db")
}

// ServerPaths are the files a server instance shares with its supervisor.
type ServerPaths struct {
	ListenerConfig string
	StopMarker     string
	ReloadMarker   string
	PIDFile        string
}

// ServerPathsFor derives the server files from base. The listener config
// sits next to base, the markers and pid file extend its name.
func ServerPathsFor(base string) ServerPaths {
	return ServerPaths{
		ListenerConfig: filepath.Join(filepath.Dir(base), "config.dat"),
		StopMarker:     base + ".notify.stop",
		ReloadMarker:   base + ".notify.reload",
		PIDFile:        base + ".pid",
	}
}

// DefaultServerBase is the path of the running server binary, so the marker
// files live next to it. It falls back to the user config directory.
func DefaultServerBase() string {
	exe, err := utils.ExecutablePath()
	if err != nil {
		return filepath.Join(ConfigBasePath(), "server", "speedtest-server")
	}
	return exe
}
