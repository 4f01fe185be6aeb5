package speedtest

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/cubiclesoft/network-speedtest-cli/internal/logs"
	"github.com/cubiclesoft/network-speedtest-cli/internal/runtime"
	"github.com/cubiclesoft/network-speedtest-cli/internal/speedtest/client"
	"github.com/cubiclesoft/network-speedtest-cli/internal/speedtest/report"
	"github.com/cubiclesoft/network-speedtest-cli/internal/state"
	"github.com/cubiclesoft/network-speedtest-cli/internal/ui"
	"github.com/cubiclesoft/network-speedtest-cli/internal/version"
	"github.com/spf13/cobra"
)

var errNoTarget = errors.New("no server given and no previous target remembered")

type tcpOpts struct {
	port int

	latency  float64
	download int
	upload   float64

	downMbits float64
	upMbits   float64

	connectTimeout time.Duration
	debug          bool
	json           bool
	noSave         bool
}

func newTCPCmd() *cobra.Command {
	opts := tcpOpts{}

	cmd := &cobra.Command{
		Use:   "tcp [HOST[:PORT]]",
		Short: "Run a TCP speed test.",
		Long: "Connect to a speedtest-server, then measure latency, download and upload.\n" +
			"Without HOST the last tested server is used. A zero duration skips that phase.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt := runtime.FromContext(cmd.Context())
			return runTCP(cmd, rt, args, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.port, "port", "p", 0, "server port, when HOST has none")
	cmd.Flags().Float64Var(&opts.latency, "latency", 10, "latency test duration in seconds")
	cmd.Flags().IntVar(&opts.download, "download", 10, "download test duration in whole seconds")
	cmd.Flags().Float64Var(&opts.upload, "upload", 10, "upload test duration in seconds")
	cmd.Flags().Float64Var(&opts.downMbits, "down-mbits", 0, "expected download link speed in Mbit/s")
	cmd.Flags().Float64Var(&opts.upMbits, "up-mbits", 0, "expected upload link speed in Mbit/s")
	cmd.Flags().DurationVar(&opts.connectTimeout, "connect-timeout", client.DefaultConnectTimeout, "connect timeout")
	cmd.Flags().BoolVar(&opts.debug, "debug", false, "log every raw request and response line")
	cmd.Flags().BoolVar(&opts.json, "json", false, "print the result as JSON even on a terminal")
	cmd.Flags().BoolVar(&opts.noSave, "no-save", false, "do not record the run in the history")

	return cmd
}

func runTCP(cmd *cobra.Command, rt *runtime.Runtime, args []string, opts tcpOpts) error {
	signalsCtx, stopSignalsCtx := signal.NotifyContext(rt.Ctx(), os.Interrupt, syscall.SIGTERM)
	defer stopSignalsCtx()

	var db *state.DB
	if !opts.noSave || len(args) == 0 {
		var err error
		db, err = state.OpenDefault(signalsCtx)
		if err != nil {
			logs.Warnf("history unavailable: %v", err)
		}
	}

	last := ""
	if len(args) == 0 && db != nil {
		target, found, err := state.NewKVStore(db).LastTarget(signalsCtx)
		if err != nil {
			logs.Warnf("unable to read last target: %v", err)
		} else if found {
			last = target
		}
	}

	host, port, err := resolveTarget(args, opts.port, last)
	if err != nil {
		return err
	}

	plan := report.Plan{
		Host:              host,
		Port:              port,
		Latency:           seconds(opts.latency),
		Download:          seconds(float64(opts.download)),
		Upload:            seconds(opts.upload),
		ExpectedDownMbits: opts.downMbits,
		ExpectedUpMbits:   opts.upMbits,
		Version:           version.Get(),
	}

	c := client.New()
	c.SetDebug(opts.debug)
	c.SetConnectTimeout(opts.connectTimeout)

	logs.Infof("Connecting to %s...", net.JoinHostPort(host, strconv.Itoa(port)))
	res, runErr := report.Run(signalsCtx, c, plan)

	if db != nil && !opts.noSave {
		saveRun(context.WithoutCancel(signalsCtx), db, res, runErr)
	}

	out := cmd.OutOrStdout()
	if opts.json || quiet || !ui.IsTerminal(out) {
		if err := printJSON(out, res); err != nil {
			return err
		}
	} else if err := renderResult(out, res, false); err != nil {
		return err
	}

	return runErr
}

// saveRun records the run and remembers its target. A failed connect is not
// remembered, so a typo does not become the default.
func saveRun(ctx context.Context, db *state.DB, res report.Result, runErr error) {
	if _, err := state.NewResultStore(db).Save(ctx, res); err != nil {
		logs.Warnf("unable to record result: %v", err)
	}

	var phaseErr *report.PhaseError
	if errors.As(runErr, &phaseErr) && phaseErr.Phase == report.PhaseConnect {
		return
	}
	if err := state.NewKVStore(db).RememberTarget(ctx, res.Host, res.Port); err != nil {
		logs.Warnf("unable to remember target: %v", err)
	}
}

// resolveTarget picks host and port from the argument, the --port flag and
// the remembered last target, in that order.
func resolveTarget(args []string, flagPort int, last string) (string, int, error) {
	raw := last
	if len(args) == 1 {
		raw = args[0]
	}
	if raw == "" {
		return "", 0, errNoTarget
	}

	host, portStr, err := net.SplitHostPort(raw)
	if err != nil {
		// bare host (or bare IPv6 address) without a port
		host, portStr = raw, ""
	}
	if flagPort != 0 {
		portStr = strconv.Itoa(flagPort)
	}
	if host == "" {
		return "", 0, fmt.Errorf("invalid target %q: empty host", raw)
	}
	if portStr == "" {
		return "", 0, fmt.Errorf("no port for %s: use HOST:PORT or --port", host)
	}

	port, err := strconv.Atoi(portStr)
	if err != nil || port < 1 || port > 65535 {
		return "", 0, fmt.Errorf("invalid port %q", portStr)
	}
	return host, port, nil
}

func seconds(v float64) time.Duration {
	if v <= 0 {
		return 0
	}
	return time.Duration(v * float64(time.Second))
}
