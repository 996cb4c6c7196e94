package datalab

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/nao1215/datalab/domain/model"
	"github.com/nao1215/datalab/engine"
)

// Status is the lifecycle state of a Workspace.
type Status string

const (
	// StatusInitializing means the engine is not open yet
	StatusInitializing Status = "initializing"
	// StatusReady means the engine is open and accepting statements
	StatusReady Status = "ready"
	// StatusError means the engine could not be opened
	StatusError Status = "error"
)

// Workspace owns an engine handle and the in-memory state derived from it:
// the schema catalog, the category of every table, the column selection and
// pinned dashboard charts. Readers get copies; all mutation goes through
// named methods, and changes are announced to subscribers.
//
// Engine access is not serialized. Callers must not run two loads, or a load
// and a query, concurrently against one Workspace.
type Workspace struct {
	engine   engine.Engine
	logger   *slog.Logger
	notifier Notifier
	encoding Encoding
	// reloadLock, when set, is held around each reload made by Watch.
	reloadLock sync.Locker

	mu        sync.RWMutex
	status    Status
	loading   bool
	lastError string
	tables    []model.Table
	metadata  map[string]model.Category
	selection []model.SelectedColumn
	charts    []ChartConfig
	suggested string

	subMu   sync.Mutex
	nextSub int
	subs    map[int]func(Event)
}

// Option configures a Workspace.
type Option func(*Workspace)

// WithLogger sets the structured logger. The default discards output.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Workspace) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithNotifier sets where user-facing messages are shown.
func WithNotifier(n Notifier) Option {
	return func(w *Workspace) {
		if n != nil {
			w.notifier = n
		}
	}
}

// WithEncoding sets the character encoding of delimited uploads.
func WithEncoding(enc Encoding) Option {
	return func(w *Workspace) {
		w.encoding = enc
	}
}

// WithReloadLock makes Watch hold l while it reloads a file. Callers that
// serialize their own engine access with l then never overlap a reload.
func WithReloadLock(l sync.Locker) Option {
	return func(w *Workspace) {
		w.reloadLock = l
	}
}

// NewWorkspace creates a Workspace over e. A nil engine yields a Workspace in
// StatusError whose engine operations fail with ErrEngineUnavailable.
func NewWorkspace(e engine.Engine, opts ...Option) *Workspace {
	w := &Workspace{
		engine:   e,
		logger:   slog.New(slog.DiscardHandler),
		notifier: discardNotifier{},
		encoding: EncodingUTF8,
		status:   StatusReady,
		metadata: make(map[string]model.Category),
		subs:     make(map[int]func(Event)),
	}
	for _, opt := range opts {
		opt(w)
	}
	if e == nil {
		w.status = StatusError
		w.lastError = ErrEngineUnavailable.Error()
	}
	return w
}

// State is a point-in-time copy of a Workspace.
type State struct {
	Status    Status                    `json:"status"`
	Loading   bool                      `json:"loading"`
	LastError string                    `json:"lastError,omitempty"`
	Tables    []model.Table             `json:"tables"`
	Metadata  map[string]model.Category `json:"metadata"`
	Selection []model.SelectedColumn    `json:"selection"`
	Charts    []ChartConfig             `json:"charts"`
}

// Snapshot returns a copy of the whole workspace state.
func (w *Workspace) Snapshot() State {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return State{
		Status:    w.status,
		Loading:   w.loading,
		LastError: w.lastError,
		Tables:    cloneTables(w.tables),
		Metadata:  cloneMetadata(w.metadata),
		Selection: append([]model.SelectedColumn(nil), w.selection...),
		Charts:    cloneCharts(w.charts),
	}
}

// Status returns the lifecycle state.
func (w *Workspace) Status() Status {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.status
}

// Loading reports whether a bulk load is in progress.
func (w *Workspace) Loading() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.loading
}

// LastError returns the most recent user-visible error message, or "".
func (w *Workspace) LastError() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.lastError
}

// ClearError dismisses the current error message.
func (w *Workspace) ClearError() {
	w.mu.Lock()
	w.lastError = ""
	w.mu.Unlock()
}

// RunQuery executes one statement in its own transaction. When the statement
// is DDL the catalog is refreshed after the commit; a refresh failure is
// reported through LastError but does not fail the query.
func (w *Workspace) RunQuery(ctx context.Context, query string) (*engine.Result, error) {
	e, err := w.engineOrFail()
	if err != nil {
		return nil, err
	}

	w.logger.Debug("executing query", "sql", engine.SanitizeForLog(query))

	tx, err := e.Begin(ctx)
	if err != nil {
		return nil, w.fail(NewErrorContext("query", "").Error(err))
	}
	result, err := tx.Execute(ctx, query)
	if err != nil {
		return nil, w.fail(NewErrorContext("query", "").Error(errors.Join(err, rollback(tx))))
	}
	if err := tx.Commit(); err != nil {
		return nil, w.fail(NewErrorContext("query", "").Error(err))
	}

	if IsDDL(query) {
		_ = w.RefreshCatalog(ctx) //nolint:errcheck // reported through LastError
	}
	return result, nil
}

// UseSuggestion clears the column selection and stores query as the next
// query to run, as when the user accepts a suggested query.
func (w *Workspace) UseSuggestion(query string) {
	w.mu.Lock()
	w.suggested = query
	w.selection = nil
	w.mu.Unlock()
	w.publish(Event{Kind: EventSelectionChanged})
}

// TakeSuggestion returns the stored suggested query and forgets it.
func (w *Workspace) TakeSuggestion() (string, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	q := w.suggested
	w.suggested = ""
	return q, q != ""
}

// Close closes the engine. Later engine operations fail with
// ErrEngineUnavailable.
func (w *Workspace) Close() error {
	w.mu.Lock()
	e := w.engine
	w.engine = nil
	w.mu.Unlock()

	if e == nil {
		return nil
	}
	if err := e.Close(); err != nil {
		return fmt.Errorf("failed to close engine: %w", err)
	}
	return nil
}

// engineOrFail returns the live engine or reports ErrEngineUnavailable.
func (w *Workspace) engineOrFail() (engine.Engine, error) {
	w.mu.RLock()
	e := w.engine
	w.mu.RUnlock()
	if e == nil {
		return nil, w.fail(ErrEngineUnavailable)
	}
	return e, nil
}

// fail records err as the user-visible message, logs it, notifies and
// publishes it, then returns it unchanged.
func (w *Workspace) fail(err error) error {
	msg := err.Error()
	w.mu.Lock()
	w.lastError = msg
	w.mu.Unlock()

	w.logger.Error("operation failed", "error", msg)
	w.notifier.Show(msg, DefaultToastDuration)
	w.publish(Event{Kind: EventError, Message: msg})
	return err
}

func (w *Workspace) setLoading(loading bool) {
	w.mu.Lock()
	w.loading = loading
	w.mu.Unlock()
	w.publish(Event{Kind: EventLoadingChanged})
}

// rollback aborts tx, ignoring an already finished transaction
func rollback(tx engine.Tx) error {
	if err := tx.Rollback(); err != nil && !errors.Is(err, engine.ErrTxDone) {
		return err
	}
	return nil
}

func cloneTables(tables []model.Table) []model.Table {
	out := make([]model.Table, len(tables))
	for i, t := range tables {
		out[i] = t
		out[i].Columns = append([]model.Column(nil), t.Columns...)
	}
	return out
}

func cloneMetadata(m map[string]model.Category) map[string]model.Category {
	out := make(map[string]model.Category, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
