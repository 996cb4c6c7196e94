package datalab

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/nao1215/datalab/domain/model"
	"github.com/nao1215/datalab/engine"
)

// ddlStatement matches statements that change the schema
var ddlStatement = regexp.MustCompile(`(?i)^\s*(CREATE|DROP|ALTER|TRUNCATE)\b`)

// IsDDL reports whether query starts with CREATE, DROP, ALTER or TRUNCATE once
// lines beginning with "--" are removed.
func IsDDL(query string) bool {
	lines := strings.Split(query, "\n")
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "--") {
			continue
		}
		kept = append(kept, line)
	}
	return ddlStatement.MatchString(strings.TrimSpace(strings.Join(kept, "\n")))
}

// RefreshCatalog rebuilds the table list from the engine. Tables without a
// recorded category are tagged uploaded, and categories of tables that no
// longer exist are forgotten. On failure the previous state is kept and the
// returned error wraps ErrRefreshFailure.
func (w *Workspace) RefreshCatalog(ctx context.Context) error {
	e, err := w.engineOrFail()
	if err != nil {
		return err
	}

	tables, err := introspect(ctx, e)
	if err != nil {
		return w.fail(fmt.Errorf("%w: %w", ErrRefreshFailure, err))
	}

	w.mu.Lock()
	present := make(map[string]bool, len(tables))
	for i := range tables {
		name := tables[i].Name
		present[name] = true
		category, ok := w.metadata[name]
		if !ok {
			category = model.CategoryUploaded
			w.metadata[name] = category
		}
		tables[i].Category = category
	}
	w.tables = tables
	for name := range w.metadata {
		if !present[name] {
			delete(w.metadata, name)
		}
	}
	w.mu.Unlock()

	w.logger.Debug("catalog refreshed", "tables", len(tables))
	w.publish(Event{Kind: EventTablesChanged})
	return nil
}

// introspect lists every base table and its columns.
func introspect(ctx context.Context, e engine.Engine) ([]model.Table, error) {
	dialect := e.Dialect()
	tableResult, err := e.Execute(ctx, dialect.TablesQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}

	tables := make([]model.Table, 0, len(tableResult.Rows))
	for _, row := range tableResult.Rows {
		name := stringValue(row["table_name"])
		columnResult, err := e.Execute(ctx, dialect.ColumnsQuery, name)
		if err != nil {
			return nil, fmt.Errorf("failed to list columns of %s: %w", name, err)
		}

		columns := make([]model.Column, 0, len(columnResult.Rows))
		for _, c := range columnResult.Rows {
			columnName := stringValue(c["column_name"])
			columns = append(columns, model.Column{
				OriginalName:  columnName,
				SanitizedName: columnName,
				SQLType:       model.SQLType(strings.ToUpper(stringValue(c["data_type"]))),
			})
		}
		tables = append(tables, model.Table{Name: name, Columns: columns})
	}
	return tables, nil
}

// Tables returns a copy of the catalog in engine order.
func (w *Workspace) Tables() []model.Table {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return cloneTables(w.tables)
}

// Table looks up a catalog table by exact name.
func (w *Workspace) Table(name string) (model.Table, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	t, ok := w.findTable(name)
	if !ok {
		return model.Table{}, false
	}
	return cloneTables([]model.Table{t})[0], true
}

// Metadata returns a copy of the table name to category map.
func (w *Workspace) Metadata() map[string]model.Category {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return cloneMetadata(w.metadata)
}

// TablesByCategory groups the catalog by category. Every category is present
// as a key, with an empty slice when no table has it.
func (w *Workspace) TablesByCategory() map[model.Category][]model.Table {
	grouped := make(map[model.Category][]model.Table, len(model.Categories()))
	for _, c := range model.Categories() {
		grouped[c] = []model.Table{}
	}
	for _, t := range w.Tables() {
		if _, ok := grouped[t.Category]; ok {
			grouped[t.Category] = append(grouped[t.Category], t)
		}
	}
	return grouped
}

// TableNames returns the catalog table names sorted alphabetically.
func (w *Workspace) TableNames() []string {
	tables := w.Tables()
	names := make([]string, len(tables))
	for i, t := range tables {
		names[i] = t.Name
	}
	sort.Strings(names)
	return names
}

// findTable must be called with w.mu held
func (w *Workspace) findTable(name string) (model.Table, bool) {
	for _, t := range w.tables {
		if t.Name == name {
			return t, true
		}
	}
	return model.Table{}, false
}

// stringValue renders an introspection value as text
func stringValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	default:
		return fmt.Sprint(t)
	}
}
