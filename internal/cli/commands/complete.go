package commands

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/nao1215/datalab"
	"github.com/nao1215/datalab/internal/cli/output"
)

// NewCompleteCommand creates the complete command.
func NewCompleteCommand() *cobra.Command {
	var (
		query  string
		cursor int
		apply  int
	)

	cmd := &cobra.Command{
		Use:   "complete [FILE|DIR...]",
		Short: "Suggest keywords, tables and columns at a cursor position",
		Long: `Load the given files and list completions for the word under the cursor
in --query. After FROM or JOIN only tables are offered; after other clause
keywords, columns of the referenced tables come first. With --apply the
chosen suggestion (1-based) is inserted and the new query printed.`,
		Example: `  datalab complete --samples --query 'SELECT * FROM sa'
  datalab complete --samples --query 'SELECT * FROM sa' --apply 1`,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			w, err := openWorkspace(cmd.Context(), args, nil)
			if err != nil {
				return err
			}
			defer closeWorkspace(w, &err)

			pos := cursor
			if pos < 0 {
				pos = len(query)
			}
			suggestions := w.Suggest(query, pos)

			if apply > 0 {
				if apply > len(suggestions) {
					return fmt.Errorf("no suggestion %d: %d available", apply, len(suggestions))
				}
				completed, _ := datalab.ApplySuggestion(query, pos, suggestions[apply-1])
				_, err = fmt.Fprintln(cmd.OutOrStdout(), completed)
				return err
			}
			return writeSuggestions(cmd, suggestions)
		},
	}

	cmd.Flags().StringVarP(&query, "query", "q", "", "query text being edited")
	cmd.Flags().IntVar(&cursor, "cursor", -1, "byte offset of the cursor (default: end of query)")
	cmd.Flags().IntVar(&apply, "apply", 0, "insert the n-th suggestion and print the result")
	_ = cmd.MarkFlagRequired("query")

	return cmd
}

func writeSuggestions(cmd *cobra.Command, suggestions []datalab.Suggestion) error {
	out := cmd.OutOrStdout()
	if outputFormat(cmd) != output.Table {
		for _, s := range suggestions {
			if _, err := fmt.Fprintf(out, "%s\t%s\n", s.Kind, s.Text); err != nil {
				return err
			}
		}
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"#", "Kind", "Suggestion"})
	for i, s := range suggestions {
		label := s.Display
		if label == "" {
			label = s.Text
		}
		t.AppendRow(table.Row{i + 1, s.Kind, label})
	}
	t.Render()
	return nil
}
