package datalab

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/nao1215/datalab/domain/model"
	"github.com/nao1215/datalab/engine"
)

// LoadText parses comma-delimited text and loads it as a table named after
// source. It returns the table name.
func (w *Workspace) LoadText(ctx context.Context, text, source string, category model.Category) (string, error) {
	ds, err := model.ParseDataset(text, source)
	if err != nil {
		return "", w.fail(NewErrorContext("load", source).Error(err))
	}
	if err := w.LoadDataset(ctx, ds, source, category); err != nil {
		return "", err
	}
	return ds.Name(), nil
}

// LoadReader reads an upload from r and loads every table it holds. name
// selects the format and compression by extension and names the tables.
func (w *Workspace) LoadReader(ctx context.Context, r io.Reader, name string, category model.Category) ([]string, error) {
	datasets, err := readDatasets(ctx, r, name, w.encoding)
	if err != nil {
		return nil, w.fail(NewErrorContext("load", name).Error(err))
	}

	names := make([]string, 0, len(datasets))
	for _, ds := range datasets {
		if err := w.LoadDataset(ctx, ds, name, category); err != nil {
			return names, err
		}
		names = append(names, ds.Name())
	}
	return names, nil
}

// LoadFile loads an upload from the local file system.
func (w *Workspace) LoadFile(ctx context.Context, path string, category model.Category) ([]string, error) {
	f, err := os.Open(path) //nolint:gosec // path is validated by the caller
	if err != nil {
		return nil, w.fail(NewErrorContext("load", path).Error(err))
	}
	defer f.Close()

	return w.LoadReader(ctx, f, filepath.Base(path), category)
}

// LoadDataset materializes ds as a table. Any existing table with the same
// name is dropped first and cannot be restored if the load then fails. The
// rows are inserted in one transaction that is rolled back on failure, in
// which case the returned error is a *LoadError. After a successful load the
// category is recorded and the catalog refreshed; a refresh failure is
// reported through LastError but does not fail the load.
func (w *Workspace) LoadDataset(ctx context.Context, ds *model.Dataset, source string, category model.Category) error {
	e, err := w.engineOrFail()
	if err != nil {
		return err
	}
	if !category.IsValid() {
		category = model.CategoryUploaded
	}

	w.setLoading(true)
	defer w.setLoading(false)
	w.ClearError()

	if err := bulkLoad(ctx, e, ds); err != nil {
		return w.fail(newLoadError(source, err))
	}

	w.mu.Lock()
	w.metadata[ds.Name()] = category
	w.mu.Unlock()

	w.logger.Info("table loaded",
		"source", source,
		"table", ds.Name(),
		"columns", len(ds.Columns()),
		"rows", len(ds.Records()),
		"category", category,
	)

	_ = w.RefreshCatalog(ctx) //nolint:errcheck // reported through LastError
	return nil
}

// bulkLoad drops and recreates the dataset's table, then inserts every row
// inside one transaction.
func bulkLoad(ctx context.Context, e engine.Engine, ds *model.Dataset) error {
	columns := ds.Columns()
	if err := engine.ValidateColumnCount(len(columns)); err != nil {
		return err
	}

	table := engine.QuoteIdent(ds.Name())
	if _, err := e.Execute(ctx, "DROP TABLE IF EXISTS "+table); err != nil {
		return fmt.Errorf("failed to drop table: %w", err)
	}
	if _, err := e.Execute(ctx, createTableSQL(ds.Name(), columns)); err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}

	tx, err := e.Begin(ctx)
	if err != nil {
		return err
	}

	insert := insertSQL(ds.Name(), columns)
	for i, row := range ds.Rows() {
		if _, err := tx.Execute(ctx, insert, row...); err != nil {
			return errors.Join(fmt.Errorf("failed to insert row %d: %w", i+1, err), rollback(tx))
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

// createTableSQL builds the CREATE TABLE statement for columns
func createTableSQL(table string, columns []model.Column) string {
	defs := make([]string, len(columns))
	for i, c := range columns {
		defs[i] = engine.QuoteIdent(c.SanitizedName) + " " + c.SQLType.String()
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", engine.QuoteIdent(table), strings.Join(defs, ", "))
}

// insertSQL builds a parameterized INSERT for one row of columns
func insertSQL(table string, columns []model.Column) string {
	names := make([]string, len(columns))
	placeholders := make([]string, len(columns))
	for i, c := range columns {
		names[i] = engine.QuoteIdent(c.SanitizedName)
		placeholders[i] = "?"
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		engine.QuoteIdent(table), strings.Join(names, ", "), strings.Join(placeholders, ", "))
}
