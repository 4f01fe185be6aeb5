package speedtestserver

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/cubiclesoft/network-speedtest-cli/internal/speedtest/server"
	"github.com/cubiclesoft/network-speedtest-cli/internal/ui"
	"github.com/spf13/cobra"
)

func newPortsCmd() *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "ports",
		Short: "Show the ports the server bound at its last start.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}

			lc, err := server.ReadListenerConfig(cfg.Paths().ListenerConfig)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if jsonOut {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "    ")
				return enc.Encode(lc)
			}
			return renderPorts(out, lc, !ui.IsTerminal(out))
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "print the listener config as JSON")

	return cmd
}

func renderPorts(w io.Writer, lc server.ListenerConfig, plain bool) error {
	if lc.Empty() {
		_, err := fmt.Fprintln(w, "No listeners recorded")
		return err
	}

	t := ui.NewTable(
		ui.Column{Header: "Family"},
		ui.Column{Header: "Port", Align: ui.AlignRight},
	)
	t.Plain = plain
	for _, p := range lc.V4Ports {
		t.AddRow("IPv4", strconv.Itoa(p))
	}
	for _, p := range lc.V6Ports {
		t.AddRow("IPv6", strconv.Itoa(p))
	}
	return t.Render(w)
}
