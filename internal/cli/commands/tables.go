package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nao1215/datalab/domain/model"
	"github.com/nao1215/datalab/internal/cli/output"
)

// NewTablesCommand creates the tables command.
func NewTablesCommand() *cobra.Command {
	var category string

	cmd := &cobra.Command{
		Use:   "tables [FILE|DIR...]",
		Short: "Load files and list the resulting tables",
		Long: `Load the given files and list every table with its category and the
sanitized name and inferred type of each column.`,
		Example: `  datalab tables sales.csv book.xlsx
  datalab tables --samples --category builtin -o json`,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			var filter model.Category
			if category != "" {
				filter = model.Category(category)
				if !filter.IsValid() {
					return fmt.Errorf("invalid category %q: must be one of builtin, uploaded, external", category)
				}
			}

			w, err := openWorkspace(cmd.Context(), args, nil)
			if err != nil {
				return err
			}
			defer closeWorkspace(w, &err)

			tables := w.Tables()
			if filter != "" {
				tables = w.TablesByCategory()[filter]
			}
			return output.Tables(cmd.OutOrStdout(), tables, outputFormat(cmd))
		},
	}

	cmd.Flags().StringVar(&category, "category", "", "only list tables of this category (builtin|uploaded|external)")
	_ = cmd.RegisterFlagCompletionFunc("category", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"builtin", "uploaded", "external"}, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}
