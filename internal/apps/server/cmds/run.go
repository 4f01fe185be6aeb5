package speedtestserver

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	appconfig "github.com/cubiclesoft/network-speedtest-cli/internal/apps/speedtest/config"
	"github.com/cubiclesoft/network-speedtest-cli/internal/logs"
	"github.com/cubiclesoft/network-speedtest-cli/internal/runtime"
	"github.com/cubiclesoft/network-speedtest-cli/internal/speedtest/server"
	"github.com/cubiclesoft/network-speedtest-cli/internal/ui"
	"github.com/cubiclesoft/network-speedtest-cli/internal/version"
	"github.com/spf13/cobra"
)

type runOpts struct {
	logFile string
}

func bindRunFlags(cmd *cobra.Command, opts *runOpts) {
	cmd.Flags().StringVar(&opts.logFile, "log-file", "", "also write the full log to this file")
}

func newRunCmd() *cobra.Command {
	opts := runOpts{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the speed test server in the foreground.",
		Long: "Run the speed test server until SIGINT/SIGTERM or until the stop or\n" +
			"reload marker file appears. A reload exits cleanly; the supervisor restarts it.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd, opts)
		},
	}
	bindRunFlags(cmd, &opts)

	return cmd
}

func runServer(cmd *cobra.Command, opts runOpts) error {
	rt := runtime.FromContextOrPanic(cmd.Context())

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if opts.logFile != "" {
		cfg.LogFile = opts.logFile
	}
	if cfg.LogFile != "" {
		w, err := ui.OpenLogFile(cfg.LogFile)
		if err != nil {
			return err
		}
		rt.SetLogWriter(w)
	}

	logs.Banner(version.String("speedtest-server"))
	logs.Debugf("%s runtime %s", rt.Type(), rt.RunID())
	logs.InfofSilent("effective config: %+v", cfg)

	paths := cfg.Paths()

	release, err := acquirePIDLock(paths.PIDFile)
	if err != nil {
		if errors.Is(err, errAlreadyRunning) {
			logs.Infof("%v, exiting", err)
			return nil
		}
		return err
	}
	rt.OnShutdown(func(context.Context) { release() })

	clearStaleStopMarker(paths)

	signalsCtx, stopSignalsCtx := signal.NotifyContext(rt.Ctx(), os.Interrupt, syscall.SIGTERM)
	defer stopSignalsCtx()

	srv := server.New(rt, cfg.ServerOptions())
	if err := srv.Start(signalsCtx); err != nil {
		return err
	}
	lc := srv.Config()
	logs.Debugf("bound ports: v4 %v, v6 %v", lc.V4Ports, lc.V6Ports)

	runErr := srv.Run(signalsCtx)
	switch cause := srv.StopCause(); {
	case errors.Is(cause, server.ErrReloadRequested):
		logs.Infof("Exiting for reload.")
	case errors.Is(cause, server.ErrStopRequested):
		logs.Infof("Exiting.")
	default:
		logs.Infof("Exiting (%v).", cause)
	}
	return runErr
}

// clearStaleStopMarker removes a stop marker left from the previous run, so
// a restarted server does not exit on its first check.
func clearStaleStopMarker(paths appconfig.ServerPaths) {
	if paths.StopMarker == "" {
		return
	}
	err := os.Remove(paths.StopMarker)
	switch {
	case err == nil:
		logs.Infof("Removed stale stop marker %s.", paths.StopMarker)
	case !os.IsNotExist(err):
		logs.Warnf("remove stale stop marker: %v", err)
	}
}
