package speedtestserver

import (
	"fmt"

	appconfig "github.com/cubiclesoft/network-speedtest-cli/internal/apps/speedtest/config"
	"github.com/cubiclesoft/network-speedtest-cli/internal/logs"
	"github.com/cubiclesoft/network-speedtest-cli/internal/utils"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// loadConfig reads the --config file, or returns the defaults when none was given.
func loadConfig(path string) (appconfig.ServerConfig, error) {
	if path == "" {
		return appconfig.DefaultServerConfig(), nil
	}
	resolved, err := utils.ResolvePathStrict(path)
	if err != nil {
		return appconfig.ServerConfig{}, fmt.Errorf("config %s: %w", path, err)
	}
	logs.Debugf("loading server config from %s", resolved)
	return appconfig.LoadServerConfig(resolved)
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective server config as YAML.",
		Long:  "Print the effective server config. The output is a valid --config file.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(cfg); err != nil {
				return err
			}
			return enc.Close()
		},
	}
}
