package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nao1215/datalab/engine"
)

// NewVersionCommand creates the version command.
func NewVersionCommand(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Display the datalab version and the SQL engines it was built with.`,
		Run: func(cmd *cobra.Command, _ []string) {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "datalab v%s\n", version)
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Engines: %v\n", engine.Names())
		},
	}
}
