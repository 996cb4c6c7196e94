package commands

import (
	"context"
	"fmt"
	"sync"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/nao1215/datalab"
	"github.com/nao1215/datalab/internal/cli/output"
	"github.com/nao1215/datalab/internal/config"
	"github.com/nao1215/datalab/sqlrewrite"
)

type queryOptions struct {
	execute  string
	file     string
	filter   string
	topLevel bool
	showSQL  bool
	watch    bool
}

// NewQueryCommand creates the query command.
func NewQueryCommand() *cobra.Command {
	opts := &queryOptions{}

	cmd := &cobra.Command{
		Use:   "query [FILE|DIR...]",
		Short: "Run a SQL statement against loaded files",
		Long: `Load the given files and run one SQL statement against them.

Each file becomes a table named after the file. The statement is taken from
--execute, --file or standard input. A --filter clause such as
"WHERE x > 1" is injected before GROUP BY, ORDER BY or LIMIT. With --watch
the inputs are reloaded when they change and the statement is run again.`,
		Example: `  datalab query sales.csv -e 'SELECT * FROM sales LIMIT 5'
  datalab query --samples -e 'SELECT "地区", SUM("销售额") FROM sales_data GROUP BY "地区"' --filter 'WHERE "利润" > 100'
  echo 'SELECT COUNT(*) FROM orders' | datalab query orders.csv.gz -o json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.execute, "execute", "e", "", "SQL statement to run")
	cmd.Flags().StringVarP(&opts.file, "file", "f", "", "read the SQL statement from a file")
	cmd.Flags().StringVar(&opts.filter, "filter", "", "WHERE clause to inject, such as \"WHERE x > 1\"")
	cmd.Flags().BoolVar(&opts.topLevel, "top-level", false, "only place --filter relative to clauses of the outermost query")
	cmd.Flags().BoolVar(&opts.showSQL, "show-sql", false, "print the formatted statement to stderr before running it")
	cmd.Flags().BoolVarP(&opts.watch, "watch", "w", false, "rerun the statement whenever an input file changes")

	return cmd
}

func runQuery(cmd *cobra.Command, args []string, opts *queryOptions) (err error) {
	ctx := cmd.Context()

	query, err := readQuery(cmd, opts.execute, opts.file)
	if err != nil {
		return err
	}
	if opts.filter != "" {
		var rewriteOpts []sqlrewrite.Option
		if opts.topLevel {
			rewriteOpts = append(rewriteOpts, sqlrewrite.WithTopLevelScan())
		}
		query = sqlrewrite.InjectWhereClause(query, opts.filter, rewriteOpts...)
	}
	if opts.showSQL {
		_, _ = fmt.Fprintln(cmd.ErrOrStderr(), sqlrewrite.Format(query))
	}

	var mu sync.Mutex
	w, err := openWorkspace(ctx, args, &mu)
	if err != nil {
		return err
	}
	defer closeWorkspace(w, &err)

	format := outputFormat(cmd)
	run := func() error {
		mu.Lock()
		defer mu.Unlock()
		result, err := w.RunQuery(ctx, query)
		if err != nil {
			return err
		}
		return output.Result(cmd.OutOrStdout(), result, format)
	}

	if err := run(); err != nil {
		return err
	}
	if !opts.watch {
		return nil
	}
	if len(args) == 0 {
		return fmt.Errorf("--watch needs at least one file or directory")
	}
	return watchQuery(ctx, w, args, run)
}

// watchQuery reloads paths on change and calls run after every catalog
// refresh until ctx is done. Failed runs are logged and watching goes on.
func watchQuery(ctx context.Context, w *datalab.Workspace, paths []string, run func() error) error {
	logger := config.GetLogger(ctx)

	changed := make(chan struct{}, 1)
	unsubscribe := w.Subscribe(func(e datalab.Event) {
		if e.Kind != datalab.EventTablesChanged {
			return
		}
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	defer unsubscribe()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return w.Watch(ctx, paths...)
	})
	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-changed:
				if err := run(); err != nil {
					logger.Warn("query failed after reload", "error", err)
				}
			}
		}
	})
	return g.Wait()
}
