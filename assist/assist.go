package assist

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/nao1215/datalab/domain/model"
	"github.com/nao1215/datalab/engine"
)

var (
	// ErrNoSelection is returned when a prompt needs selected columns and there are none
	ErrNoSelection = errors.New("assist: no columns selected")
	// ErrNoData is returned when an insight is requested for an empty result
	ErrNoData = errors.New("assist: no data")
)

// Completer is a text-completion service.
type Completer interface {
	// Complete returns the full answer to prompt.
	Complete(ctx context.Context, prompt string) (string, error)
	// Stream returns the answer to prompt as it is produced.
	Stream(ctx context.Context, prompt string) (io.ReadCloser, error)
}

// Reply is the outcome of a completion. Message is set, and Text empty, when
// the completion failed.
type Reply struct {
	Text    string `json:"text,omitempty"`
	Message string `json:"message,omitempty"`
}

// Failed reports whether the completion failed.
func (r Reply) Failed() bool {
	return r.Message != ""
}

// Assistant turns workspace state into prompts for a Completer.
type Assistant struct {
	completer Completer
	logger    *slog.Logger
}

// Option configures an Assistant.
type Option func(*Assistant)

// WithLogger sets the structured logger. The default discards output.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Assistant) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// New returns an Assistant backed by c.
func New(c Completer, opts ...Option) *Assistant {
	a := &Assistant{
		completer: c,
		logger:    slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// GenerateSQL asks for a single query answering request over the selected
// columns. Markdown fences around the answer are removed.
func (a *Assistant) GenerateSQL(ctx context.Context, selection []model.SelectedColumn, request string) Reply {
	if len(selection) == 0 {
		return a.failure("生成 SQL 时出错", ErrNoSelection)
	}
	if a.completer == nil {
		return a.failure("生成 SQL 时出错", errNoCompleter)
	}

	text, err := a.completer.Complete(ctx, SQLPrompt(selection, request))
	if err != nil {
		return a.failure("生成 SQL 时出错", err)
	}
	return Reply{Text: CleanSQL(text)}
}

// Insights asks for a short summary of a query result. Only the first
// MaxSampleRows rows are sent. question is optional.
func (a *Assistant) Insights(ctx context.Context, rows []engine.Row, headers []string, question string) Reply {
	if len(rows) == 0 || len(headers) == 0 {
		return a.failure("生成洞察时出错", ErrNoData)
	}
	if a.completer == nil {
		return a.failure("生成洞察时出错", errNoCompleter)
	}

	prompt, err := InsightPrompt(rows, question)
	if err != nil {
		return a.failure("生成洞察时出错", err)
	}
	text, err := a.completer.Complete(ctx, prompt)
	if err != nil {
		return a.failure("生成洞察时出错", err)
	}
	return Reply{Text: strings.TrimSpace(text)}
}

// StreamSuggestions asks for exploratory queries over the selected columns.
// onUpdate, when not nil, receives the suggestions parsed so far after every
// chunk, the last one possibly partial. The returned slice holds the cleaned
// final suggestions; message is set when the stream failed, in which case the
// suggestions completed before the failure are still returned.
func (a *Assistant) StreamSuggestions(ctx context.Context, selection []model.SelectedColumn, onUpdate func([]Suggestion)) (suggestions []Suggestion, message string) {
	if len(selection) == 0 {
		return nil, a.failure("生成建议时出错", ErrNoSelection).Message
	}
	if a.completer == nil {
		return nil, a.failure("生成建议时出错", errNoCompleter).Message
	}

	stream, err := a.completer.Stream(ctx, SuggestionPrompt(selection))
	if err != nil {
		return nil, a.failure("生成建议时出错", err).Message
	}
	parser := NewStreamParser()
	parser.OnUpdate = onUpdate
	_, err = io.Copy(parser, stream)
	if cerr := stream.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		message = a.failure("生成建议时出错", err).Message
	}
	return parser.Finish(), message
}

var errNoCompleter = errors.New("assist: no completer configured")

func (a *Assistant) failure(action string, err error) Reply {
	a.logger.Error("completion failed", "action", action, "error", err)
	return Reply{Message: fmt.Sprintf("%s: %v", action, err)}
}
