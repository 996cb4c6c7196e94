package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nao1215/datalab"
	"github.com/nao1215/datalab/domain/model"
	"github.com/nao1215/datalab/engine"
	"github.com/nao1215/datalab/sqlrewrite"
)

// maxUploadBytes limits the size of one uploaded file.
const maxUploadBytes = 64 << 20

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

// statusFor maps workspace errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, datalab.ErrChartNotFound):
		return http.StatusNotFound
	case errors.Is(err, datalab.ErrEngineUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, datalab.ErrMalformedInput),
		errors.Is(err, datalab.ErrUnsupportedFormat),
		errors.Is(err, datalab.ErrRewriteFailure):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadRequest
	}
}

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// statusResponse is the workspace status without the bulky catalog.
type statusResponse struct {
	Status    datalab.Status `json:"status"`
	Loading   bool           `json:"loading"`
	LastError string         `json:"lastError,omitempty"`
	Tables    int            `json:"tables"`
	Charts    int            `json:"charts"`
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	state := s.ws.Snapshot()
	writeJSON(w, http.StatusOK, statusResponse{
		Status:    state.Status,
		Loading:   state.Loading,
		LastError: state.LastError,
		Tables:    len(state.Tables),
		Charts:    len(state.Charts),
	})
}

func (s *Server) handleTables(w http.ResponseWriter, r *http.Request) {
	if category := r.URL.Query().Get("category"); category != "" {
		c := model.Category(category)
		if !c.IsValid() {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid category: %s", category))
			return
		}
		tables := s.ws.TablesByCategory()[c]
		if tables == nil {
			tables = []model.Table{}
		}
		writeJSON(w, http.StatusOK, tables)
		return
	}
	tables := s.ws.Tables()
	if tables == nil {
		tables = []model.Table{}
	}
	writeJSON(w, http.StatusOK, tables)
}

type uploadResponse struct {
	Tables []string `json:"tables"`
}

// handleUpload loads a multipart "file" field, or the raw body named by the
// "name" query parameter. "category" defaults to uploaded.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	category := model.CategoryUploaded
	if c := r.URL.Query().Get("category"); c != "" {
		category = model.Category(c)
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	var (
		body io.Reader
		name string
	)
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		file, header, err := r.FormFile("file")
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("missing file field: %w", err))
			return
		}
		defer func() { _ = file.Close() }()
		body, name = file, header.Filename
	} else {
		body, name = r.Body, r.URL.Query().Get("name")
	}
	if name == "" {
		writeError(w, http.StatusBadRequest, errors.New("missing file name"))
		return
	}

	s.lock.Lock()
	names, err := s.ws.LoadReader(r.Context(), body, name, category)
	s.lock.Unlock()
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusCreated, uploadResponse{Tables: names})
}

// handleExport streams a table. Query parameters "format" and "compression"
// default to CSV without compression.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	table := chi.URLParam(r, "table")
	format, err := datalab.ParseOutputFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	compression, err := datalab.ParseCompressionType(r.URL.Query().Get("compression"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if _, ok := s.ws.Table(table); !ok {
		writeError(w, http.StatusNotFound, fmt.Errorf("table not found: %s", table))
		return
	}
	opts := datalab.NewDumpOptions().WithFormat(format).WithCompression(compression)

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", table+opts.FileExtension()))

	s.lock.Lock()
	defer s.lock.Unlock()
	if err := s.ws.Export(r.Context(), table, w, opts); err != nil {
		// Headers are gone once the first byte is written.
		s.logger.Error("export failed", "table", table, "error", err)
	}
}

type sqlResponse struct {
	SQL    string         `json:"sql"`
	Result *engine.Result `json:"result,omitempty"`
}

// handleKPI returns the preview query of a table and, with run=true, its rows.
func (s *Server) handleKPI(w http.ResponseWriter, r *http.Request) {
	table := chi.URLParam(r, "table")
	if _, ok := s.ws.Table(table); !ok {
		writeError(w, http.StatusNotFound, fmt.Errorf("table not found: %s", table))
		return
	}
	resp := sqlResponse{SQL: s.ws.DrillDownKPI(table)}
	if r.URL.Query().Get("run") == "true" {
		result, err := s.run(r, resp.SQL)
		if err != nil {
			writeError(w, statusFor(err), err)
			return
		}
		resp.Result = result
	}
	writeJSON(w, http.StatusOK, resp)
}

type queryRequest struct {
	SQL string `json:"sql"`
	// Filter, when set, is injected as a WHERE clause.
	Filter string `json:"filter,omitempty"`
	// TopLevel places Filter relative to the outermost query's clauses only.
	TopLevel bool `json:"topLevel,omitempty"`
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	query := req.SQL
	if req.Filter != "" {
		var opts []sqlrewrite.Option
		if req.TopLevel {
			opts = append(opts, sqlrewrite.WithTopLevelScan())
		}
		query = sqlrewrite.InjectWhereClause(query, req.Filter, opts...)
	}

	result, err := s.run(r, query)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, sqlResponse{SQL: query, Result: result})
}

func (s *Server) run(r *http.Request, query string) (*engine.Result, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.ws.RunQuery(r.Context(), query)
}

// handleSuggest completes the word at "cursor" (default: end) in "q".
func (s *Server) handleSuggest(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	cursor := len(query)
	if c := r.URL.Query().Get("cursor"); c != "" {
		n, err := strconv.Atoi(c)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid cursor: %w", err))
			return
		}
		cursor = n
	}
	suggestions := s.ws.Suggest(query, cursor)
	if suggestions == nil {
		suggestions = []datalab.Suggestion{}
	}
	writeJSON(w, http.StatusOK, suggestions)
}

type selectionResponse struct {
	Columns []model.SelectedColumn          `json:"columns"`
	States  map[string]model.SelectionState `json:"states"`
}

func (s *Server) selection() selectionResponse {
	resp := selectionResponse{
		Columns: s.ws.Selection(),
		States:  make(map[string]model.SelectionState),
	}
	if resp.Columns == nil {
		resp.Columns = []model.SelectedColumn{}
	}
	for _, name := range s.ws.TableNames() {
		resp.States[name] = s.ws.SelectionState(name)
	}
	return resp
}

func (s *Server) handleSelection(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.selection())
}

type toggleRequest struct {
	Table string `json:"table"`
	// Column is omitted to toggle the whole table.
	Column string `json:"column,omitempty"`
}

func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	var req toggleRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if _, ok := s.ws.Table(req.Table); !ok {
		writeError(w, http.StatusNotFound, fmt.Errorf("table not found: %s", req.Table))
		return
	}
	if req.Column == "" {
		s.ws.ToggleTable(req.Table)
	} else {
		s.ws.ToggleColumn(req.Table, req.Column)
	}
	writeJSON(w, http.StatusOK, s.selection())
}

func (s *Server) handleClearSelection(w http.ResponseWriter, _ *http.Request) {
	s.ws.ClearSelection()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCharts(w http.ResponseWriter, _ *http.Request) {
	charts := s.ws.Charts()
	if charts == nil {
		charts = []datalab.ChartConfig{}
	}
	writeJSON(w, http.StatusOK, charts)
}

// handlePin pins a chart. When the request carries no data, the chart's
// query is run to fill it.
func (s *Server) handlePin(w http.ResponseWriter, r *http.Request) {
	var chart datalab.ChartConfig
	if err := decode(r, &chart); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if len(chart.Headers) == 0 && chart.Query != "" {
		result, err := s.run(r, chart.Query)
		if err != nil {
			writeError(w, statusFor(err), err)
			return
		}
		chart.Data = result.Rows
		chart.Headers = result.FieldNames()
	}

	pinned, err := s.ws.PinChart(chart)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusCreated, pinned)
}

func (s *Server) handleUnpin(w http.ResponseWriter, r *http.Request) {
	if err := s.ws.UnpinChart(chi.URLParam(r, "id")); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type drillRequest struct {
	Value any  `json:"value"`
	Run   bool `json:"run,omitempty"`
}

func (s *Server) handleDrill(w http.ResponseWriter, r *http.Request) {
	var req drillRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	query, err := s.ws.DrillDownChart(chi.URLParam(r, "id"), req.Value)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	resp := sqlResponse{SQL: query}
	if req.Run {
		result, err := s.run(r, query)
		if err != nil {
			writeError(w, statusFor(err), err)
			return
		}
		resp.Result = result
	}
	writeJSON(w, http.StatusOK, resp)
}

type filterRequest struct {
	Predicate string `json:"predicate"`
	TopLevel  bool   `json:"topLevel,omitempty"`
}

func (s *Server) handleFilter(w http.ResponseWriter, r *http.Request) {
	var req filterRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	var opts []sqlrewrite.Option
	if req.TopLevel {
		opts = append(opts, sqlrewrite.WithTopLevelScan())
	}

	s.lock.Lock()
	chart, err := s.ws.FilterChart(r.Context(), chi.URLParam(r, "id"), req.Predicate, opts...)
	s.lock.Unlock()
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, chart)
}

func (s *Server) handleToasts(w http.ResponseWriter, _ *http.Request) {
	if s.toasts == nil {
		writeJSON(w, http.StatusOK, []datalab.Toast{})
		return
	}
	toasts := s.toasts.List()
	if toasts == nil {
		toasts = []datalab.Toast{}
	}
	writeJSON(w, http.StatusOK, toasts)
}

func (s *Server) handleDismissToast(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid toast id: %w", err))
		return
	}
	if s.toasts != nil {
		s.toasts.Remove(id)
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleEvents streams workspace events as server-sent events until the
// client goes away.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, errors.New("streaming unsupported"))
		return
	}

	events := make(chan datalab.Event, 16)
	unsubscribe := s.ws.Subscribe(func(e datalab.Event) {
		select {
		case events <- e:
		default:
			s.logger.Warn("event dropped for slow client", "kind", e.Kind.String())
		}
	})
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case e := <-events:
			data, _ := json.Marshal(e)
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", e.Kind, data); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
