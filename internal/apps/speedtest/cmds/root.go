package speedtest

import (
	"github.com/cubiclesoft/network-speedtest-cli/internal/logs"
	"github.com/cubiclesoft/network-speedtest-cli/internal/runtime"
	"github.com/spf13/cobra"
)

var (
	verbosity int
	quiet     bool
)

func Execute(rt *runtime.Runtime) error {
	rootCmd := &cobra.Command{
		Use:           "speedtest",
		Short:         "Measure latency and throughput against a TCP speed test server.",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logs.SetDebugVerbosity(verbosity)
			if quiet {
				logs.SetQuiet()
			}
			return nil
		},
	}

	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "increase verbosity (-v, -vv, -vvv)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "s", false, "suppress progress output, print only the result")

	rootCmd.AddCommand(
		newTCPCmd(),
		newHistoryCmd(),
		newVersionCmd(),
	)

	return rootCmd.ExecuteContext(rt.Ctx())
}
