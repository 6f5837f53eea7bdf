// Package cli provides the CLI command structure for go_edplug.
package cli

import (
	"fmt"

	"github.com/andrei-cloud/go_edplug/internal/config"
	"github.com/andrei-cloud/go_edplug/internal/logging"
	"github.com/spf13/cobra"
)

// NewRootCommand creates and returns the root command with all subcommands.
func NewRootCommand() (*cobra.Command, error) {
	var cfgFile string

	rootCmd := &cobra.Command{
		Use:   "go_edplug",
		Short: "Editor plugin discovery and lifecycle tool",
		Long: `Discovers editor plugin modules (WebAssembly and Lua) in the configured
plugin directories, resolves their dependencies and drives their lifecycle.`,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// Initialize configuration before running any command.
			if err := config.Initialize(cfgFile, cmd.Flags()); err != nil {
				return fmt.Errorf("failed to initialize configuration: %w", err)
			}

			cfg := config.Get()
			if err := logging.Configure(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Format); err != nil {
				return fmt.Errorf("failed to initialize logging: %w", err)
			}

			return nil
		},
	}

	// Add persistent flags that affect all commands.
	rootCmd.PersistentFlags().
		StringVar(&cfgFile, "config", "", "config file (default is $HOME/.go_edplug/config.yaml)")

	// Add global flags that can override config file settings.
	rootCmd.PersistentFlags().
		StringSlice("plugin-dir", nil, "plugin base directory (repeatable)")
	rootCmd.PersistentFlags().
		String("capability", "", "capability that marks a type as an editor plugin")
	rootCmd.PersistentFlags().
		String("log-level", "", "logging level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "", "logging format (human, json)")

	// Register all commands.
	if err := RegisterCommands(rootCmd); err != nil {
		return nil, fmt.Errorf("failed to register commands: %w", err)
	}

	return rootCmd, nil
}
