package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nao1215/datalab/internal/config"
)

// NewExportCommand creates the export command.
func NewExportCommand() *cobra.Command {
	var (
		dir    string
		tables []string
	)

	cmd := &cobra.Command{
		Use:   "export [FILE|DIR...]",
		Short: "Load files and write tables out as CSV, TSV, Parquet or XLSX",
		Long: `Load the given files and write tables to --dir, one file per table named
after the table. Without --table every table is written. The format and
compression default to the export_format and export_compression settings.`,
		Example: `  datalab export --samples --dir out
  datalab export sales.xlsx --dir out --table sales_q1 --export-format parquet
  datalab export data/ --dir out --export-format tsv --export-compression zstd`,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			ctx := cmd.Context()

			opts, err := config.FromContext(ctx).DumpOptions()
			if err != nil {
				return err
			}

			w, err := openWorkspace(ctx, args, nil)
			if err != nil {
				return err
			}
			defer closeWorkspace(w, &err)

			var written []string
			if len(tables) == 0 {
				written, err = w.ExportAll(ctx, dir, opts)
				if err != nil {
					return err
				}
			}
			for _, table := range tables {
				path, err := w.ExportFile(ctx, table, dir, opts)
				if err != nil {
					return err
				}
				written = append(written, path)
			}

			for _, path := range written {
				if _, err := fmt.Fprintln(cmd.OutOrStdout(), path); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "output directory")
	cmd.Flags().StringSliceVarP(&tables, "table", "t", nil, "table to export (repeatable; default: all tables)")
	cmd.Flags().String("export-format", "csv", "output format (csv|tsv|parquet|xlsx)")
	cmd.Flags().String("export-compression", "none", "output compression (none|gz|xz|zstd)")
	_ = cmd.MarkFlagRequired("dir")
	_ = cmd.RegisterFlagCompletionFunc("export-format", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"csv", "tsv", "parquet", "xlsx"}, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}
