package plugin

import (
	"fmt"
	"text/tabwriter"

	"github.com/andrei-cloud/go_edplug/internal/config"
	"github.com/andrei-cloud/go_edplug/internal/logging"
	"github.com/spf13/cobra"
)

// NewListCommand creates the list command.
func NewListCommand() *cobra.Command {
	var initialize bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List discovered editor plugins",
		Long: `Load every editor plugin found in the plugin directories and print
its identity, plugin type, lifecycle state and location.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runList(cmd, initialize)
		},
	}
	cmd.Flags().BoolVar(&initialize, "init", false, "run plugin init hooks before listing")

	return cmd
}

func runList(cmd *cobra.Command, initialize bool) error {
	ctx := cmd.Context()

	s, err := openSession(ctx, config.Get())
	if err != nil {
		return err
	}
	defer s.close(ctx)

	if err := s.manager.LoadPlugins(ctx); err != nil {
		return fmt.Errorf("failed to load plugins: %w", err)
	}
	if initialize {
		s.manager.InitPlugins(ctx)
	}

	records := s.manager.LoadedPlugins()
	logging.LogPlugins(records)

	// Create tabwriter for aligned output.
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
	_, _ = fmt.Fprintln(w, "Identity\tType\tState\tPath")
	_, _ = fmt.Fprintln(w, "--------\t----\t-----\t----")
	for _, rec := range records {
		state := rec.State().String()
		if rec.Err != nil {
			state += " (hook failed)"
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", rec.Identity, rec.PluginType.Name, state, rec.Path)
	}

	return w.Flush()
}
