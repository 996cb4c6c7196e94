package commands

import (
	"errors"
	"fmt"
	"sync"

	"github.com/spf13/cobra"

	"github.com/nao1215/datalab"
	"github.com/nao1215/datalab/internal/config"
	"github.com/nao1215/datalab/internal/server"
)

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "serve [FILE|DIR...]",
		Short: "Serve the workspace over HTTP",
		Long: `Load the given files and serve the workspace as a JSON API under /api.

Clients upload files, run queries, complete SQL, select columns, pin and
drill into charts, and follow workspace changes on /api/events. With
--watch the inputs are reloaded when they change. When assist_command is
configured the /api/assist endpoints generate SQL and insights with it.`,
		Example: `  datalab serve --samples
  datalab serve data/ --watch --addr :9000
  datalab serve sales.xlsx --assist-command 'llm -m gpt-4o'`,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			ctx := cmd.Context()
			cfg := config.FromContext(ctx)
			logger := config.GetLogger(ctx)

			var mu sync.Mutex
			toasts := datalab.NewToasts()
			w, err := openWorkspace(ctx, args, &mu, toasts)
			if err != nil {
				return err
			}
			defer closeWorkspace(w, &err)

			opts := []server.Option{
				server.WithLogger(logger),
				server.WithLock(&mu),
				server.WithToasts(toasts),
			}
			if cfg.AssistCommand != "" {
				assistant, err := newAssistant(cmd)
				if err != nil {
					return err
				}
				opts = append(opts, server.WithAssistant(assistant))
			}

			var watchPaths []string
			if watch {
				if len(args) == 0 {
					return errors.New("--watch needs files or directories to watch")
				}
				watchPaths = args
			}

			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Serving %d tables on http://%s\n", len(w.TableNames()), cfg.Addr)
			return server.New(w, opts...).Run(ctx, cfg.Addr, watchPaths)
		},
	}

	cmd.Flags().String("addr", "", "listen address (default 127.0.0.1:8080)")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "reload inputs when they change")
	cmd.Flags().String("assist-command", "", "completion command that reads a prompt on stdin")

	return cmd
}
