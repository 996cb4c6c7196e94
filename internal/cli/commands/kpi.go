package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nao1215/datalab/internal/cli/output"
)

// NewKPICommand creates the kpi command.
func NewKPICommand() *cobra.Command {
	var run bool

	cmd := &cobra.Command{
		Use:   "kpi TABLE [FILE|DIR...]",
		Short: "Build the preview query behind a table summary card",
		Example: `  datalab kpi sales_data --samples
  datalab kpi orders orders.csv --run`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			ctx := cmd.Context()

			w, err := openWorkspace(ctx, args[1:], nil)
			if err != nil {
				return err
			}
			defer closeWorkspace(w, &err)

			table := args[0]
			if _, ok := w.Table(table); !ok {
				return fmt.Errorf("table not found: %s", table)
			}
			query := w.DrillDownKPI(table)
			if !run {
				_, err = fmt.Fprintln(cmd.OutOrStdout(), query)
				return err
			}

			result, err := w.RunQuery(ctx, query)
			if err != nil {
				return err
			}
			return output.Result(cmd.OutOrStdout(), result, outputFormat(cmd))
		},
	}

	cmd.Flags().BoolVar(&run, "run", false, "run the preview query and print its rows")
	return cmd
}
