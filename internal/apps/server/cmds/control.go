package speedtestserver

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cubiclesoft/network-speedtest-cli/internal/logs"
	"github.com/cubiclesoft/network-speedtest-cli/internal/runtime"
	"github.com/spf13/cobra"
)

var errStopTimeout = errors.New("server did not exit in time")

func newStopCmd() *cobra.Command {
	var wait time.Duration

	cmd := &cobra.Command{
		Use:   "stop",
		Short: "Ask the running server to stop.",
		Long:  "Create the stop marker file. The server notices it within one signal interval.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt := runtime.FromContextOrPanic(cmd.Context())

			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			paths := cfg.Paths()

			if err := touchMarker(paths.StopMarker); err != nil {
				return err
			}
			logs.Infof("Stop marker created at %s.", paths.StopMarker)

			if wait <= 0 {
				return nil
			}
			ctx, cancel := context.WithTimeout(rt.Ctx(), wait)
			defer cancel()
			return waitForExit(ctx, paths.PIDFile, 100*time.Millisecond)
		},
	}

	cmd.Flags().DurationVar(&wait, "wait", 0, "wait up to this long for the server to exit")

	return cmd
}

func newReloadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reload",
		Short: "Ask the running server to exit for a restart.",
		Long:  "Create the reload marker file. The server removes it and exits; its supervisor starts it again.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			paths := cfg.Paths()

			if err := touchMarker(paths.ReloadMarker); err != nil {
				return err
			}
			logs.Infof("Reload marker created at %s.", paths.ReloadMarker)
			return nil
		},
	}
}

func touchMarker(path string) error {
	if path == "" {
		return errors.New("marker path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create marker dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("create marker: %w", err)
	}
	return f.Close()
}

// waitForExit polls until the pid file is gone or names a dead process.
func waitForExit(ctx context.Context, pidFile string, every time.Duration) error {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		pid, ok := readPID(pidFile)
		if !ok || !processAlive(pid) {
			logs.Infof("Server stopped.")
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w (pid %d)", errStopTimeout, pid)
		case <-ticker.C:
		}
	}
}
