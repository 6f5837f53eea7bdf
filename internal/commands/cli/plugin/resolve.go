package plugin

import (
	"fmt"

	"github.com/andrei-cloud/go_edplug/internal/config"
	"github.com/spf13/cobra"
)

// NewResolveCommand creates the resolve command.
func NewResolveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "resolve IDENTITY",
		Short: "Resolve a module identity the way a loader would",
		Long: `Ask the plugin manager to resolve IDENTITY ("Name" or "Name@version")
without running discovery first, then print the module it produced and
every path the loaders attempted.`,
		Args: cobra.ExactArgs(1),
		RunE: runResolve,
	}
}

func runResolve(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	s, err := openSession(ctx, config.Get())
	if err != nil {
		return err
	}
	defer s.close(ctx)

	mod, ok := s.manager.Resolve(ctx, args[0])
	if !ok {
		return fmt.Errorf("module %q could not be resolved", args[0])
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "identity: %s\n", mod.Identity())
	_, _ = fmt.Fprintf(out, "location: %s\n", mod.Location())
	for _, p := range s.loader.ListLoadedPaths() {
		_, _ = fmt.Fprintf(out, "loaded:   %s\n", p)
	}

	return nil
}
