package datalab

import (
	"github.com/nao1215/datalab/domain/model"
)

// ToggleColumn selects column of table, or deselects it when already
// selected. A newly selected column takes its type from the live catalog.
// It returns whether the column is selected afterwards; selecting a column
// the catalog does not know is a no-op.
func (w *Workspace) ToggleColumn(table, column string) bool {
	w.mu.Lock()
	for i, sel := range w.selection {
		if sel.TableName == table && sel.ColumnName == column {
			w.selection = append(w.selection[:i:i], w.selection[i+1:]...)
			w.mu.Unlock()
			w.publish(Event{Kind: EventSelectionChanged})
			return false
		}
	}

	t, ok := w.findTable(table)
	if !ok {
		w.mu.Unlock()
		return false
	}
	col, ok := t.Column(column)
	if !ok {
		w.mu.Unlock()
		return false
	}
	w.selection = append(w.selection, model.SelectedColumn{
		TableName:  table,
		ColumnName: col.OriginalName,
		SQLType:    col.SQLType,
	})
	w.mu.Unlock()
	w.publish(Event{Kind: EventSelectionChanged})
	return true
}

// ToggleTable selects every column of table unless all of them are already
// selected, in which case it deselects them all. Unknown tables are ignored.
func (w *Workspace) ToggleTable(table string) {
	w.mu.Lock()
	t, ok := w.findTable(table)
	if !ok {
		w.mu.Unlock()
		return
	}

	state := w.selectionState(table)
	others := make([]model.SelectedColumn, 0, len(w.selection))
	for _, sel := range w.selection {
		if sel.TableName != table {
			others = append(others, sel)
		}
	}
	if state != model.SelectionAll {
		for _, c := range t.Columns {
			others = append(others, model.SelectedColumn{
				TableName:  table,
				ColumnName: c.OriginalName,
				SQLType:    c.SQLType,
			})
		}
	}
	w.selection = others
	w.mu.Unlock()
	w.publish(Event{Kind: EventSelectionChanged})
}

// SelectionState summarizes how much of table is selected.
func (w *Workspace) SelectionState(table string) model.SelectionState {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.selectionState(table)
}

// selectionState must be called with w.mu held
func (w *Workspace) selectionState(table string) model.SelectionState {
	t, ok := w.findTable(table)
	if !ok || len(t.Columns) == 0 {
		return model.SelectionNone
	}

	selected := 0
	for _, sel := range w.selection {
		if sel.TableName == table {
			selected++
		}
	}
	switch selected {
	case 0:
		return model.SelectionNone
	case len(t.Columns):
		return model.SelectionAll
	default:
		return model.SelectionSome
	}
}

// IsSelected reports whether the (table, column) pair is selected.
func (w *Workspace) IsSelected(table, column string) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	for _, sel := range w.selection {
		if sel.TableName == table && sel.ColumnName == column {
			return true
		}
	}
	return false
}

// ClearSelection deselects everything.
func (w *Workspace) ClearSelection() {
	w.mu.Lock()
	w.selection = nil
	w.mu.Unlock()
	w.publish(Event{Kind: EventSelectionChanged})
}

// Selection returns the selected columns in selection order. Entries for
// tables dropped since they were selected are kept.
func (w *Workspace) Selection() []model.SelectedColumn {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return append([]model.SelectedColumn(nil), w.selection...)
}

// HasSelection reports whether any column is selected.
func (w *Workspace) HasSelection() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.selection) > 0
}
