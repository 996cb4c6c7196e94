package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nao1215/datalab"
	"github.com/nao1215/datalab/internal/cli/output"
)

type drillOptions struct {
	query string
	label string
	data  string
	value string
	run   bool
}

// NewDrillCommand creates the drill command.
func NewDrillCommand() *cobra.Command {
	opts := &drillOptions{}

	cmd := &cobra.Command{
		Use:   "drill [FILE|DIR...]",
		Short: "Build the detail query behind one value of an aggregate query",
		Long: `Run an aggregate query, treat it as a chart with --label on one axis, and
print the query that selects the source rows behind --value. The value is
quoted as a string unless the label column of the first result row is numeric.`,
		Example: `  datalab drill --samples --query 'SELECT "地区", SUM("销售额") AS total FROM sales_data GROUP BY "地区"' --label 地区 --value North
  datalab drill --samples --query '...' --label 地区 --value North --run`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDrill(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.query, "query", "q", "", "aggregate query the chart is built from")
	cmd.Flags().StringVarP(&opts.label, "label", "l", "", "label column of the chart")
	cmd.Flags().StringVarP(&opts.data, "data", "d", "", "data column of the chart (default: first other column)")
	cmd.Flags().StringVar(&opts.value, "value", "", "clicked label value")
	cmd.Flags().BoolVar(&opts.run, "run", false, "run the detail query and print its rows")
	_ = cmd.MarkFlagRequired("query")
	_ = cmd.MarkFlagRequired("label")
	_ = cmd.MarkFlagRequired("value")

	return cmd
}

func runDrill(cmd *cobra.Command, args []string, opts *drillOptions) (err error) {
	ctx := cmd.Context()

	w, err := openWorkspace(ctx, args, nil)
	if err != nil {
		return err
	}
	defer closeWorkspace(w, &err)

	result, err := w.RunQuery(ctx, opts.query)
	if err != nil {
		return err
	}
	headers := result.FieldNames()
	dataColumn := opts.data
	if dataColumn == "" {
		for _, h := range headers {
			if h != opts.label {
				dataColumn = h
				break
			}
		}
	}
	if dataColumn == "" {
		return errors.New("query needs a data column besides the label column")
	}

	chart, err := w.PinChart(datalab.ChartConfig{
		Query:       opts.query,
		LabelColumn: opts.label,
		DataColumn:  dataColumn,
		Data:        result.Rows,
		Headers:     headers,
	})
	if err != nil {
		return err
	}

	detail, err := w.DrillDownChart(chart.ID, opts.value)
	if err != nil {
		return err
	}
	if !opts.run {
		_, err = fmt.Fprintln(cmd.OutOrStdout(), detail)
		return err
	}

	rows, err := w.RunQuery(ctx, detail)
	if err != nil {
		return err
	}
	return output.Result(cmd.OutOrStdout(), rows, outputFormat(cmd))
}
