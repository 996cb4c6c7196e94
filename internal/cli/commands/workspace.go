// Package commands implements the datalab subcommands.
package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/nao1215/datalab"
	"github.com/nao1215/datalab/internal/cli/output"
	"github.com/nao1215/datalab/internal/config"
)

// openWorkspace loads paths, and the samples when configured, into a new
// workspace. lock may be nil; see datalab.WithReloadLock. Notifications go to
// the logger and to every notifier in extra.
func openWorkspace(ctx context.Context, paths []string, lock sync.Locker, extra ...datalab.Notifier) (*datalab.Workspace, error) {
	cfg := config.FromContext(ctx)
	logger := config.GetLogger(ctx)

	enc, err := datalab.ParseEncoding(cfg.Encoding)
	if err != nil {
		return nil, err
	}

	b := datalab.NewBuilder().
		AddPaths(paths...).
		WithEngine(cfg.Engine, cfg.Database).
		WithEncoding(enc).
		WithLogger(logger).
		WithNotifier(fanOut(append([]datalab.Notifier{datalab.NewLogNotifier(logger)}, extra...)))
	if cfg.Samples {
		b = b.WithSamples()
	}
	if lock != nil {
		b = b.WithReloadLock(lock)
	}

	if len(paths) == 0 && !cfg.Samples {
		return nil, errors.New("no input files: pass files or directories, or use --samples")
	}
	if _, err := b.Build(ctx); err != nil {
		return nil, err
	}
	return b.Open(ctx)
}

// fanOut shows every notification on each of notifiers.
func fanOut(notifiers []datalab.Notifier) datalab.Notifier {
	if len(notifiers) == 1 {
		return notifiers[0]
	}
	return datalab.NotifierFunc(func(message string, duration time.Duration) {
		for _, n := range notifiers {
			n.Show(message, duration)
		}
	})
}

// closeWorkspace closes w and folds a close failure into err.
func closeWorkspace(w *datalab.Workspace, err *error) {
	if cerr := w.Close(); cerr != nil && *err == nil {
		*err = cerr
	}
}

// outputFormat resolves the configured result format for cmd's output.
func outputFormat(cmd *cobra.Command) string {
	return output.Resolve(config.FromContext(cmd.Context()).Output, cmd.OutOrStdout())
}

// readQuery returns the statement given by --execute, --file or, when stdin
// is not a terminal, standard input.
func readQuery(cmd *cobra.Command, execute, file string) (string, error) {
	switch {
	case execute != "" && file != "":
		return "", errors.New("use either --execute or --file, not both")
	case execute != "":
		return execute, nil
	case file != "":
		data, err := os.ReadFile(file) //nolint:gosec // path comes from the command line
		if err != nil {
			return "", fmt.Errorf("failed to read query file: %w", err)
		}
		return strings.TrimSpace(string(data)), nil
	}

	in := cmd.InOrStdin()
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) { //nolint:gosec // file descriptors fit in int
		return "", errors.New("no query: use --execute, --file or pipe SQL on stdin")
	}
	data, err := io.ReadAll(in)
	if err != nil {
		return "", fmt.Errorf("failed to read query from stdin: %w", err)
	}
	query := strings.TrimSpace(string(data))
	if query == "" {
		return "", errors.New("no query: use --execute, --file or pipe SQL on stdin")
	}
	return query, nil
}
