// Package commands implements the contexttoold CLI.
package commands

import "github.com/spf13/cobra"

var (
	// Version is injected at build time.
	Version = "dev"

	cfgFile string
)

var rootCmd = &cobra.Command{
	Use:           "contexttoold",
	Short:         "Context/Tool service",
	Long:          `contexttoold runs the fabric's Context/Tool server: context lookups, tool invocation, telemetry bridging, and multi-modal exchange.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. Called by main.main.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $XDG_CONFIG_HOME/capfabric/config.yaml)")
	rootCmd.AddCommand(startCmd)
}

// GetConfigFile returns the --config flag value.
func GetConfigFile() string {
	return cfgFile
}
