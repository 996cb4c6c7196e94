package commands

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nao1215/datalab"
	"github.com/nao1215/datalab/assist"
	"github.com/nao1215/datalab/domain/model"
	"github.com/nao1215/datalab/internal/cli/output"
	"github.com/nao1215/datalab/internal/config"
)

// NewAskCommand creates the ask command.
func NewAskCommand() *cobra.Command {
	var (
		selections []string
		run        bool
		insight    string
	)

	cmd := &cobra.Command{
		Use:   "ask REQUEST [FILE|DIR...]",
		Short: "Generate a SQL query from a natural-language request",
		Long: `Send the request and the selected columns to the completion command
configured as assist_command, and print the generated query. With --run the
query is executed; --insight additionally asks for a short summary of the
rows it returned.`,
		Example: `  datalab ask '每个地区的总利润' --samples --select sales_data --run
  datalab ask 'top products by price' products.csv --select products.price --assist-command 'llm -m gpt-4o'`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			ctx := cmd.Context()

			assistant, err := newAssistant(cmd)
			if err != nil {
				return err
			}
			w, err := openWorkspace(ctx, args[1:], nil)
			if err != nil {
				return err
			}
			defer closeWorkspace(w, &err)
			if err := applySelections(w, selections); err != nil {
				return err
			}

			reply := assistant.GenerateSQL(ctx, w.Selection(), args[0])
			if reply.Failed() {
				return errors.New(reply.Message)
			}
			out := cmd.OutOrStdout()
			if !run {
				_, err = fmt.Fprintln(out, reply.Text)
				return err
			}

			_, _ = fmt.Fprintln(cmd.ErrOrStderr(), reply.Text)
			result, err := w.RunQuery(ctx, reply.Text)
			if err != nil {
				return err
			}
			if err := output.Result(out, result, outputFormat(cmd)); err != nil {
				return err
			}
			if !cmd.Flags().Changed("insight") {
				return nil
			}

			summary := assistant.Insights(ctx, result.Rows, result.FieldNames(), insight)
			if summary.Failed() {
				return errors.New(summary.Message)
			}
			_, err = fmt.Fprintf(out, "\n%s\n", summary.Text)
			return err
		},
	}

	addAssistFlags(cmd, &selections)
	cmd.Flags().BoolVar(&run, "run", false, "run the generated query")
	cmd.Flags().StringVar(&insight, "insight", "", "summarize the rows of --run; use --insight=QUESTION to ask something specific")
	cmd.Flags().Lookup("insight").NoOptDefVal = " "

	return cmd
}

// NewSuggestCommand creates the suggest command.
func NewSuggestCommand() *cobra.Command {
	var selections []string

	cmd := &cobra.Command{
		Use:   "suggest [FILE|DIR...]",
		Short: "Stream exploratory query ideas for the selected columns",
		Example: `  datalab suggest --samples --select sales_data --select products.价格`,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			ctx := cmd.Context()

			assistant, err := newAssistant(cmd)
			if err != nil {
				return err
			}
			w, err := openWorkspace(ctx, args, nil)
			if err != nil {
				return err
			}
			defer closeWorkspace(w, &err)
			if err := applySelections(w, selections); err != nil {
				return err
			}

			logger := config.GetLogger(ctx)
			suggestions, message := assistant.StreamSuggestions(ctx, w.Selection(), func(s []assist.Suggestion) {
				logger.Debug("suggestions streaming", "count", len(s))
			})
			if message != "" && len(suggestions) == 0 {
				return errors.New(message)
			}

			out := cmd.OutOrStdout()
			for i, s := range suggestions {
				if _, err := fmt.Fprintf(out, "-- %d. %s\n%s\n\n", i+1, s.Description, s.Query); err != nil {
					return err
				}
			}
			if message != "" {
				_, _ = fmt.Fprintln(cmd.ErrOrStderr(), message)
			}
			return nil
		},
	}

	addAssistFlags(cmd, &selections)
	return cmd
}

func addAssistFlags(cmd *cobra.Command, selections *[]string) {
	cmd.Flags().StringArrayVarP(selections, "select", "s", nil, "select a table, or a column as table.column (repeatable)")
	cmd.Flags().String("assist-command", "", "completion command that reads a prompt on stdin")
}

func newAssistant(cmd *cobra.Command) (*assist.Assistant, error) {
	cfg := config.FromContext(cmd.Context())
	if cfg.AssistCommand == "" {
		return nil, errors.New("no completion command: set assist_command or pass --assist-command")
	}
	completer, err := assist.NewCommandCompleter(cfg.AssistCommand)
	if err != nil {
		return nil, err
	}
	return assist.New(completer, assist.WithLogger(config.GetLogger(cmd.Context()))), nil
}

// applySelections selects whole tables ("table") and single columns
// ("table.column") in w.
func applySelections(w *datalab.Workspace, selections []string) error {
	for _, sel := range selections {
		table, column, hasColumn := strings.Cut(sel, ".")
		if _, ok := w.Table(table); !ok {
			return fmt.Errorf("table not found: %s", table)
		}
		if !hasColumn {
			if w.SelectionState(table) != model.SelectionAll {
				w.ToggleTable(table)
			}
			continue
		}
		if w.IsSelected(table, column) {
			continue
		}
		if !w.ToggleColumn(table, column) {
			return fmt.Errorf("column not found: %s.%s", table, column)
		}
	}
	return nil
}
