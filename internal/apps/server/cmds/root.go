package speedtestserver

import (
	"github.com/cubiclesoft/network-speedtest-cli/internal/logs"
	"github.com/cubiclesoft/network-speedtest-cli/internal/runtime"
	"github.com/spf13/cobra"
)

var (
	verbosity  int
	configPath string
)

func Execute(rt *runtime.Runtime) error {
	run := runOpts{}

	rootCmd := &cobra.Command{
		Use:   "speedtest-server",
		Short: "TCP speed test server.",
		Long: "Listens on the configured ports of both address families and answers\n" +
			"stats, download and upload requests. Without a subcommand it runs the server.",
		SilenceErrors: true,
		SilenceUsage:  true,
		Args:          cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logs.SetDebugVerbosity(verbosity)
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd, run)
		},
	}

	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "increase verbosity (-v, -vv, -vvv)")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML server config")
	bindRunFlags(rootCmd, &run)

	rootCmd.AddCommand(
		newRunCmd(),
		newStopCmd(),
		newReloadCmd(),
		newPortsCmd(),
		newConfigCmd(),
		newVersionCmd(),
	)

	return rootCmd.ExecuteContext(rt.Ctx())
}
