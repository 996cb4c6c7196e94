package server

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nao1215/datalab"
	"github.com/nao1215/datalab/assist"
	"github.com/nao1215/datalab/domain/model"
)

const regionTotals = `SELECT "地区", SUM("销售额") AS total FROM sales_data GROUP BY "地区" ORDER BY total DESC`

type fakeCompleter struct {
	answer string
}

func (f fakeCompleter) Complete(context.Context, string) (string, error) {
	return f.answer, nil
}

func (f fakeCompleter) Stream(context.Context, string) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader(f.answer)), nil
}

func newTestServer(t *testing.T, opts ...Option) (*Server, *datalab.Workspace, *datalab.Toasts) {
	t.Helper()

	ctx := context.Background()
	toasts := datalab.NewToasts()
	builder, err := datalab.NewBuilder().WithSamples().WithNotifier(toasts).Build(ctx)
	require.NoError(t, err)
	ws, err := builder.Open(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ws.Close() })

	opts = append([]Option{WithToasts(toasts)}, opts...)
	return New(ws, opts...), ws, toasts
}

func do(t *testing.T, s *Server, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, target, reader)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestServer_Status(t *testing.T) {
	t.Parallel()

	s, _, _ := newTestServer(t)
	rec := do(t, s, http.MethodGet, "/api/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	got := decodeBody[statusResponse](t, rec)
	assert.Equal(t, datalab.StatusReady, got.Status)
	assert.Equal(t, 3, got.Tables)
	assert.Empty(t, got.LastError)
}

func TestServer_Tables(t *testing.T) {
	t.Parallel()

	s, _, _ := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/api/tables", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]model.Table](t, rec), 3)

	rec = do(t, s, http.MethodGet, "/api/tables?category=uploaded", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())

	rec = do(t, s, http.MethodGet, "/api/tables?category=secret", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_Upload(t *testing.T) {
	t.Parallel()

	t.Run("raw body", func(t *testing.T) {
		t.Parallel()
		s, ws, _ := newTestServer(t)
		rec := do(t, s, http.MethodPost, "/api/tables?name=orders.csv", "id,amount\n1,9.5\n")
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		assert.Equal(t, []string{"orders"}, decodeBody[uploadResponse](t, rec).Tables)
		assert.Equal(t, model.CategoryUploaded, ws.Metadata()["orders"])
	})

	t.Run("multipart", func(t *testing.T) {
		t.Parallel()
		s, ws, _ := newTestServer(t)

		var body bytes.Buffer
		mw := multipart.NewWriter(&body)
		part, err := mw.CreateFormFile("file", "Team List.csv")
		require.NoError(t, err)
		_, _ = part.Write([]byte("name\nann\n"))
		require.NoError(t, mw.Close())

		req := httptest.NewRequest(http.MethodPost, "/api/tables?category=external", &body)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, req)

		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		assert.Equal(t, []string{"team_list"}, decodeBody[uploadResponse](t, rec).Tables)
		assert.Equal(t, model.CategoryExternal, ws.Metadata()["team_list"])
	})

	t.Run("missing name", func(t *testing.T) {
		t.Parallel()
		s, _, _ := newTestServer(t)
		rec := do(t, s, http.MethodPost, "/api/tables", "a\n1\n")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("malformed", func(t *testing.T) {
		t.Parallel()
		s, _, toasts := newTestServer(t)
		rec := do(t, s, http.MethodPost, "/api/tables?name=bad.csv", "header_only\n")
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.NotEmpty(t, toasts.List(), "failures are shown as toasts")
	})
}

func TestServer_Query(t *testing.T) {
	t.Parallel()

	s, _, _ := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/api/query", queryRequest{SQL: regionTotals})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	got := decodeBody[sqlResponse](t, rec)
	require.NotNil(t, got.Result)
	require.Len(t, got.Result.Rows, 4)
	assert.Equal(t, "North", got.Result.Rows[0]["地区"])

	rec = do(t, s, http.MethodPost, "/api/query", queryRequest{SQL: regionTotals, Filter: `WHERE "地区" = 'West'`})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	got = decodeBody[sqlResponse](t, rec)
	assert.Equal(t, `SELECT "地区", SUM("销售额") AS total FROM sales_data WHERE "地区" = 'West' GROUP BY "地区" ORDER BY total DESC`, got.SQL)
	assert.Len(t, got.Result.Rows, 1)

	rec = do(t, s, http.MethodPost, "/api/query", queryRequest{SQL: "SELECT * FROM nowhere"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeBody[errorResponse](t, rec).Error, "nowhere")

	rec = do(t, s, http.MethodPost, "/api/query", "{not json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_QueryDDLRefreshesCatalog(t *testing.T) {
	t.Parallel()

	s, ws, _ := newTestServer(t)
	rec := do(t, s, http.MethodPost, "/api/query", queryRequest{SQL: "CREATE TABLE notes (body TEXT)"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	_, ok := ws.Table("notes")
	assert.True(t, ok)
}

func TestServer_Suggest(t *testing.T) {
	t.Parallel()

	s, _, _ := newTestServer(t)
	rec := do(t, s, http.MethodGet, "/api/suggest?q=SELECT+*+FROM+sal", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decodeBody[[]datalab.Suggestion](t, rec)
	require.Len(t, got, 1)
	assert.Equal(t, "sales_data", got[0].Text)

	rec = do(t, s, http.MethodGet, "/api/suggest?q=x&cursor=abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_Selection(t *testing.T) {
	t.Parallel()

	s, _, _ := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/api/selection/toggle", toggleRequest{Table: "products"})
	require.Equal(t, http.StatusOK, rec.Code)
	got := decodeBody[selectionResponse](t, rec)
	assert.Len(t, got.Columns, 4)
	assert.Equal(t, model.SelectionAll, got.States["products"])
	assert.Equal(t, model.SelectionNone, got.States["employees"])

	rec = do(t, s, http.MethodPost, "/api/selection/toggle", toggleRequest{Table: "products", Column: "价格"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, model.SelectionSome, decodeBody[selectionResponse](t, rec).States["products"])

	rec = do(t, s, http.MethodPost, "/api/selection/toggle", toggleRequest{Table: "ghost"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, s, http.MethodDelete, "/api/selection", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = do(t, s, http.MethodGet, "/api/selection", nil)
	assert.Empty(t, decodeBody[selectionResponse](t, rec).Columns)
}

func TestServer_Charts(t *testing.T) {
	t.Parallel()

	s, _, _ := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/api/charts", datalab.ChartConfig{
		Query:       regionTotals,
		LabelColumn: "地区",
		DataColumn:  "total",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	chart := decodeBody[datalab.ChartConfig](t, rec)
	assert.NotEmpty(t, chart.ID)
	assert.Len(t, chart.Data, 4)
	assert.Equal(t, "total by 地区", chart.Title)

	rec = do(t, s, http.MethodPost, "/api/charts/"+chart.ID+"/drill", drillRequest{Value: "North", Run: true})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	drill := decodeBody[sqlResponse](t, rec)
	assert.Equal(t, `SELECT * FROM sales_data WHERE "地区" = 'North';`, drill.SQL)
	assert.Len(t, drill.Result.Rows, 3)

	rec = do(t, s, http.MethodPost, "/api/charts/"+chart.ID+"/filter", filterRequest{Predicate: `WHERE "地区" = 'North'`})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	filtered := decodeBody[datalab.ChartConfig](t, rec)
	assert.Len(t, filtered.Data, 1)
	assert.Equal(t, `WHERE "地区" = 'North'`, filtered.Filter)

	rec = do(t, s, http.MethodGet, "/api/charts", nil)
	assert.Len(t, decodeBody[[]datalab.ChartConfig](t, rec), 1)

	rec = do(t, s, http.MethodDelete, "/api/charts/"+chart.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = do(t, s, http.MethodPost, "/api/charts/"+chart.ID+"/drill", drillRequest{Value: "North"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, s, http.MethodPost, "/api/charts", datalab.ChartConfig{Query: "SELECT 1 AS one"})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "label and data columns are required")
}

func TestServer_KPI(t *testing.T) {
	t.Parallel()

	s, _, _ := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/api/tables/products/kpi?run=true", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	got := decodeBody[sqlResponse](t, rec)
	assert.Equal(t, `SELECT * FROM "products" LIMIT 100;`, got.SQL)
	assert.Len(t, got.Result.Rows, 4)

	rec = do(t, s, http.MethodGet, "/api/tables/ghost/kpi", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_Export(t *testing.T) {
	t.Parallel()

	s, _, _ := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/api/tables/products/export?format=tsv", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), `filename="products.tsv"`)
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	assert.Len(t, lines, 5)
	assert.True(t, strings.HasPrefix(lines[0], "产品id\t"))

	rec = do(t, s, http.MethodGet, "/api/tables/products/export?format=pdf", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = do(t, s, http.MethodGet, "/api/tables/ghost/export", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_Assist(t *testing.T) {
	t.Parallel()

	t.Run("not configured", func(t *testing.T) {
		t.Parallel()
		s, _, _ := newTestServer(t)
		rec := do(t, s, http.MethodPost, "/api/assist/sql", assistSQLRequest{Request: "x"})
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})

	t.Run("sql", func(t *testing.T) {
		t.Parallel()
		s, ws, _ := newTestServer(t, WithAssistant(assist.New(fakeCompleter{answer: "```sql\nSELECT 1;\n```"})))
		ws.ToggleTable("products")

		rec := do(t, s, http.MethodPost, "/api/assist/sql", assistSQLRequest{Request: "anything"})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "SELECT 1;", decodeBody[assistResponse](t, rec).Text)

		suggested, ok := ws.TakeSuggestion()
		assert.True(t, ok)
		assert.Equal(t, "SELECT 1;", suggested)
		assert.False(t, ws.HasSelection(), "accepting a suggestion clears the selection")
	})

	t.Run("failure is reported in the body", func(t *testing.T) {
		t.Parallel()
		s, _, _ := newTestServer(t, WithAssistant(assist.New(fakeCompleter{answer: "SELECT 1;"})))
		rec := do(t, s, http.MethodPost, "/api/assist/sql", assistSQLRequest{Request: "no selection"})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.NotEmpty(t, decodeBody[assistResponse](t, rec).Message)
	})

	t.Run("suggestions", func(t *testing.T) {
		t.Parallel()
		answer := "DESCRIPTION: count\nQUERY: SELECT COUNT(*) FROM products;\n===END_SUGGESTION===\n"
		s, ws, _ := newTestServer(t, WithAssistant(assist.New(fakeCompleter{answer: answer})))
		ws.ToggleTable("products")

		rec := do(t, s, http.MethodPost, "/api/assist/suggestions", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		got := decodeBody[assistResponse](t, rec)
		assert.Equal(t, []assist.Suggestion{{Description: "count", Query: "SELECT COUNT(*) FROM products;", Complete: true}}, got.Suggestions)
	})

	t.Run("insights", func(t *testing.T) {
		t.Parallel()
		s, _, _ := newTestServer(t, WithAssistant(assist.New(fakeCompleter{answer: "* North leads\n"})))
		rec := do(t, s, http.MethodPost, "/api/assist/insights", insightRequest{SQL: regionTotals})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "* North leads", decodeBody[assistResponse](t, rec).Text)
	})
}

func TestServer_Toasts(t *testing.T) {
	t.Parallel()

	s, _, toasts := newTestServer(t)
	toasts.Show("hello", time.Hour)

	rec := do(t, s, http.MethodGet, "/api/toasts", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decodeBody[[]datalab.Toast](t, rec)
	require.Len(t, list, 1)
	assert.Equal(t, "hello", list[0].Message)

	rec = do(t, s, http.MethodDelete, fmt.Sprintf("/api/toasts/%d", list[0].ID), nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, toasts.List())

	rec = do(t, s, http.MethodDelete, "/api/toasts/zero", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_Events(t *testing.T) {
	t.Parallel()

	s, ws, _ := newTestServer(t)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/events", nil)
	require.NoError(t, err)
	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	ws.ToggleTable("products")

	scanner := bufio.NewScanner(resp.Body)
	require.True(t, scanner.Scan())
	assert.Equal(t, "event: selection", scanner.Text())
	require.True(t, scanner.Scan())
	assert.Equal(t, `data: {"kind":1}`, scanner.Text())
}

func TestServer_Serve(t *testing.T) {
	t.Parallel()

	s, _, _ := newTestServer(t)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln, nil) }()

	url := "http://" + ln.Addr().String() + "/api/status"
	assert.Eventually(t, func() bool {
		resp, err := http.Get(url) //nolint:noctx // test helper
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 50*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}

func TestStatusFor(t *testing.T) {
	t.Parallel()

	assert.Equal(t, http.StatusNotFound, statusFor(datalab.ErrChartNotFound))
	assert.Equal(t, http.StatusServiceUnavailable, statusFor(datalab.ErrEngineUnavailable))
	assert.Equal(t, http.StatusUnprocessableEntity, statusFor(datalab.ErrRewriteFailure))
	assert.Equal(t, http.StatusBadRequest, statusFor(io.EOF))
}
