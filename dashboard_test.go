package datalab

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nao1215/datalab/sqlrewrite"
)

const regionTotals = `SELECT "地区", SUM("销售额") AS total FROM sales_data GROUP BY "地区" ORDER BY "地区"`

// pinRegionTotals loads the samples and pins a chart of sales per region.
func pinRegionTotals(t *testing.T, w *Workspace) ChartConfig {
	t.Helper()

	ctx := context.Background()
	require.NoError(t, w.LoadSamples(ctx))
	result, err := w.RunQuery(ctx, regionTotals)
	require.NoError(t, err)

	chart, err := w.PinChart(ChartConfig{
		Query:       regionTotals,
		LabelColumn: "地区",
		DataColumn:  "total",
		Data:        result.Rows,
		Headers:     result.FieldNames(),
	})
	require.NoError(t, err)
	return chart
}

func TestChartTitle(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "revenue by region", ChartTitle("revenue", "region"))
}

func TestWorkspace_PinChart(t *testing.T) {
	t.Parallel()

	t.Run("assigns id title and type", func(t *testing.T) {
		t.Parallel()

		var (
			mu       sync.Mutex
			messages []string
		)
		w := newTestWorkspace(t, WithNotifier(NotifierFunc(func(m string, _ time.Duration) {
			mu.Lock()
			defer mu.Unlock()
			messages = append(messages, m)
		})))
		rec := &eventRecorder{}
		w.Subscribe(rec.record)

		chart := pinRegionTotals(t, w)
		assert.True(t, strings.HasPrefix(chart.ID, "chart_"))
		assert.Equal(t, "total by 地区", chart.Title)
		assert.Equal(t, ChartBar, chart.ChartType)
		assert.Len(t, chart.Data, 4)

		charts := w.Charts()
		require.Len(t, charts, 1)
		assert.Equal(t, chart, charts[0])
		assert.Contains(t, rec.kinds(), EventDashboardChanged)

		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, []string{"Chart pinned to dashboard"}, messages)
	})

	t.Run("ids are unique", func(t *testing.T) {
		t.Parallel()
		w := newTestWorkspace(t)
		cfg := ChartConfig{Query: "SELECT 1", LabelColumn: "a", DataColumn: "b", Headers: []string{"a", "b"}}

		first, err := w.PinChart(cfg)
		require.NoError(t, err)
		second, err := w.PinChart(cfg)
		require.NoError(t, err)
		assert.NotEqual(t, first.ID, second.ID)
		assert.Len(t, w.Charts(), 2)
	})

	t.Run("rejects incomplete or unknown charts", func(t *testing.T) {
		t.Parallel()
		w := newTestWorkspace(t)

		_, err := w.PinChart(ChartConfig{Query: "SELECT 1", DataColumn: "b", Headers: []string{"b"}})
		assert.Error(t, err)
		_, err = w.PinChart(ChartConfig{
			Query: "SELECT 1", LabelColumn: "a", DataColumn: "b", Headers: []string{"a", "b"}, ChartType: "radar",
		})
		assert.Error(t, err)
		assert.Empty(t, w.Charts())
	})

	t.Run("stored data is a copy", func(t *testing.T) {
		t.Parallel()
		w := newTestWorkspace(t)
		chart := pinRegionTotals(t, w)

		chart.Headers[0] = "changed"
		stored, ok := w.Chart(chart.ID)
		require.True(t, ok)
		assert.Equal(t, "地区", stored.Headers[0])
	})
}

func TestWorkspace_UnpinChart(t *testing.T) {
	t.Parallel()

	w := newTestWorkspace(t)
	chart := pinRegionTotals(t, w)

	require.NoError(t, w.UnpinChart(chart.ID))
	assert.Empty(t, w.Charts())
	assert.ErrorIs(t, w.UnpinChart(chart.ID), ErrChartNotFound)
}

func TestWorkspace_DrillDownChart(t *testing.T) {
	t.Parallel()

	w := newTestWorkspace(t)
	chart := pinRegionTotals(t, w)

	query, err := w.DrillDownChart(chart.ID, "North")
	require.NoError(t, err)
	assert.Equal(t, `SELECT * FROM sales_data WHERE "地区" = 'North';`, query)

	result, err := w.RunQuery(context.Background(), query)
	require.NoError(t, err)
	assert.Len(t, result.Rows, 3)

	_, err = w.DrillDownChart("chart_missing", "North")
	assert.ErrorIs(t, err, ErrChartNotFound)
}

func TestWorkspace_DrillDownChart_NoTable(t *testing.T) {
	t.Parallel()

	w := newTestWorkspace(t)
	chart, err := w.PinChart(ChartConfig{
		Query: "SELECT 1 AS a, 2 AS b", LabelColumn: "a", DataColumn: "b", Headers: []string{"a", "b"},
	})
	require.NoError(t, err)

	_, err = w.DrillDownChart(chart.ID, 1)
	assert.ErrorIs(t, err, ErrRewriteFailure)
	assert.NotEmpty(t, w.LastError())
}

func TestWorkspace_DrillDownKPI(t *testing.T) {
	t.Parallel()

	w := newTestWorkspace(t)
	assert.Equal(t, `SELECT * FROM "sales_data" LIMIT 100;`, w.DrillDownKPI("sales_data"))
}

func TestWorkspace_FilterChart(t *testing.T) {
	t.Parallel()

	w := newTestWorkspace(t)
	chart := pinRegionTotals(t, w)
	ctx := context.Background()

	filtered, err := w.FilterChart(ctx, chart.ID, `WHERE "地区" = 'North'`)
	require.NoError(t, err)
	require.Len(t, filtered.Data, 1)
	assert.Equal(t, int64(4900), filtered.Data[0]["total"])
	assert.Equal(t, `WHERE "地区" = 'North'`, filtered.Filter)
	assert.Equal(t, regionTotals, filtered.Query)

	restored, err := w.FilterChart(ctx, chart.ID, "", sqlrewrite.WithTopLevelScan())
	require.NoError(t, err)
	assert.Len(t, restored.Data, 4)
	assert.Empty(t, restored.Filter)

	_, err = w.FilterChart(ctx, "chart_missing", "WHERE 1 = 1")
	assert.ErrorIs(t, err, ErrChartNotFound)
}
