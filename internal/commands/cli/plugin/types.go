package plugin

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/andrei-cloud/go_edplug/internal/config"
	"github.com/spf13/cobra"
)

// NewTypesCommand creates the types command.
func NewTypesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "types CAPABILITY",
		Short: "List loaded types assignable to a capability",
		Long: `Load the editor plugins and print every type, across all loaded modules,
that can be used as CAPABILITY. Use "*" to list every type.`,
		Args: cobra.ExactArgs(1),
		RunE: runTypes,
	}
}

func runTypes(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	s, err := openSession(ctx, config.Get())
	if err != nil {
		return err
	}
	defer s.close(ctx)

	if err := s.manager.LoadPlugins(ctx); err != nil {
		return fmt.Errorf("failed to load plugins: %w", err)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
	_, _ = fmt.Fprintln(w, "Type\tImplements")
	_, _ = fmt.Fprintln(w, "----\t----------")
	for _, t := range s.manager.GetTypesAssignableTo(args[0]) {
		_, _ = fmt.Fprintf(w, "%s\t%s\n", t.Name, strings.Join(t.Implements, ", "))
	}

	return w.Flush()
}
