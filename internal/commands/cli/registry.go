// Package cli provides centralized command registration.
package cli

import (
	"github.com/andrei-cloud/go_edplug/internal/commands/cli/plugin"
	"github.com/spf13/cobra"
)

// RegisterCommands registers all root commands.
func RegisterCommands(root *cobra.Command) error {
	root.AddCommand(plugin.NewPluginCommand())

	return nil
}
