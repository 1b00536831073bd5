// Package commands implements the eventbusd CLI.
package commands

import "github.com/spf13/cobra"

var (
	// Version is injected at build time.
	Version = "dev"

	cfgFile string
)

var rootCmd = &cobra.Command{
	Use:           "eventbusd",
	Short:         "Event Bus service",
	Long:          `eventbusd runs the fabric's Event Bus: topic publish and subscribe (exact or wildcard) over Redis Pub/Sub.`,
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
