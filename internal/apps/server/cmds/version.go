package speedtestserver

import (
	"fmt"

	"github.com/cubiclesoft/network-speedtest-cli/internal/version"
	"github.com/spf13/cobra"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print speedtest-server version.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), version.String("speedtest-server"))
			return err
		},
	}
}
