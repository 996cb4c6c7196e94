package datalab

import (
	"context"
	"embed"
	"fmt"

	"github.com/nao1215/datalab/domain/model"
)

//go:embed samples/*.csv
var sampleFS embed.FS

// sampleFiles are loaded in this order
var sampleFiles = []string{"sales_data.csv", "employees.csv", "products.csv"}

// SampleFiles lists the bundled sample data sets.
func SampleFiles() []string {
	return append([]string(nil), sampleFiles...)
}

// LoadSamples loads the bundled sample data as builtin tables: sales_data,
// employees and products.
func (w *Workspace) LoadSamples(ctx context.Context) error {
	for _, name := range sampleFiles {
		data, err := sampleFS.ReadFile("samples/" + name)
		if err != nil {
			return fmt.Errorf("failed to read sample %s: %w", name, err)
		}
		if _, err := w.LoadText(ctx, string(data), name, model.CategoryBuiltin); err != nil {
			return err
		}
	}
	return nil
}
