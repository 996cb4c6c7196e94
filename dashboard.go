package datalab

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/nao1215/datalab/engine"
	"github.com/nao1215/datalab/sqlrewrite"
)

// ChartType is the visual form of a pinned chart.
type ChartType string

const (
	// ChartBar is a bar chart
	ChartBar ChartType = "bar"
	// ChartPie is a pie chart
	ChartPie ChartType = "pie"
	// ChartLine is a line chart
	ChartLine ChartType = "line"
)

// IsValid reports whether t is a known chart type.
func (t ChartType) IsValid() bool {
	switch t {
	case ChartBar, ChartPie, ChartLine:
		return true
	default:
		return false
	}
}

// ChartConfig is a query result pinned to the dashboard.
type ChartConfig struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Query       string       `json:"query"`
	ChartType   ChartType    `json:"chartType"`
	LabelColumn string       `json:"labelColumn"`
	DataColumn  string       `json:"dataColumn"`
	Data        []engine.Row `json:"data"`
	Headers     []string     `json:"headers"`
	// Filter is the predicate last applied with FilterChart, if any.
	Filter string `json:"filter,omitempty"`
}

// ChartTitle is the default title of a chart plotting dataColumn against
// labelColumn.
func ChartTitle(dataColumn, labelColumn string) string {
	return fmt.Sprintf("%s by %s", dataColumn, labelColumn)
}

// PinChart adds a chart to the dashboard and returns it with its new ID.
// An empty title defaults to ChartTitle and an empty type to ChartBar.
func (w *Workspace) PinChart(chart ChartConfig) (ChartConfig, error) {
	if chart.LabelColumn == "" || chart.DataColumn == "" || len(chart.Headers) == 0 {
		return ChartConfig{}, errors.New("chart needs a label column, a data column and result headers")
	}
	if chart.ChartType == "" {
		chart.ChartType = ChartBar
	}
	if !chart.ChartType.IsValid() {
		return ChartConfig{}, fmt.Errorf("unknown chart type: %s", chart.ChartType)
	}
	if chart.Title == "" {
		chart.Title = ChartTitle(chart.DataColumn, chart.LabelColumn)
	}
	chart.ID = "chart_" + uuid.NewString()

	w.mu.Lock()
	w.charts = append(w.charts, cloneChart(chart))
	w.mu.Unlock()

	w.notifier.Show("Chart pinned to dashboard", DefaultToastDuration)
	w.publish(Event{Kind: EventDashboardChanged})
	return chart, nil
}

// UnpinChart removes a chart from the dashboard.
func (w *Workspace) UnpinChart(id string) error {
	w.mu.Lock()
	for i, c := range w.charts {
		if c.ID == id {
			w.charts = append(w.charts[:i:i], w.charts[i+1:]...)
			w.mu.Unlock()
			w.publish(Event{Kind: EventDashboardChanged})
			return nil
		}
	}
	w.mu.Unlock()
	return fmt.Errorf("%w: %s", ErrChartNotFound, id)
}

// Charts returns the pinned charts in pin order.
func (w *Workspace) Charts() []ChartConfig {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return cloneCharts(w.charts)
}

// Chart looks up a pinned chart.
func (w *Workspace) Chart(id string) (ChartConfig, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	for _, c := range w.charts {
		if c.ID == id {
			return cloneChart(c), true
		}
	}
	return ChartConfig{}, false
}

// DrillDownChart builds the query behind a click on clickedValue in a pinned
// chart. The first data row decides whether the value is numeric.
func (w *Workspace) DrillDownChart(id string, clickedValue any) (string, error) {
	chart, ok := w.Chart(id)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrChartNotFound, id)
	}

	var sample map[string]any
	if len(chart.Data) > 0 {
		sample = chart.Data[0]
	}
	query, err := sqlrewrite.DrillDown(chart.Query, chart.LabelColumn, clickedValue, sample)
	if err != nil {
		return "", w.fail(err)
	}
	return query, nil
}

// DrillDownKPI builds the query behind a summary card for table.
func (w *Workspace) DrillDownKPI(table string) string {
	return sqlrewrite.DrillDownFromKPI(table)
}

// FilterChart reruns a pinned chart's query with predicate injected and
// replaces the chart data with the result. An empty predicate restores the
// unfiltered data. The chart's base query must not already filter.
func (w *Workspace) FilterChart(ctx context.Context, id, predicate string, opts ...sqlrewrite.Option) (ChartConfig, error) {
	chart, ok := w.Chart(id)
	if !ok {
		return ChartConfig{}, fmt.Errorf("%w: %s", ErrChartNotFound, id)
	}

	result, err := w.RunQuery(ctx, sqlrewrite.InjectWhereClause(chart.Query, predicate, opts...))
	if err != nil {
		return ChartConfig{}, err
	}

	w.mu.Lock()
	for i := range w.charts {
		if w.charts[i].ID == id {
			w.charts[i].Data = result.Rows
			w.charts[i].Headers = result.FieldNames()
			w.charts[i].Filter = predicate
			chart = cloneChart(w.charts[i])
		}
	}
	w.mu.Unlock()
	w.publish(Event{Kind: EventDashboardChanged})
	return chart, nil
}

func cloneChart(c ChartConfig) ChartConfig {
	c.Data = append([]engine.Row(nil), c.Data...)
	c.Headers = append([]string(nil), c.Headers...)
	return c
}

func cloneCharts(charts []ChartConfig) []ChartConfig {
	out := make([]ChartConfig, len(charts))
	for i, c := range charts {
		out[i] = cloneChart(c)
	}
	return out
}
