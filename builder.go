package datalab

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sync"

	"github.com/nao1215/datalab/domain/model"
	"github.com/nao1215/datalab/engine"
)

// Builder configures the engine and initial inputs of a Workspace.
// Use NewBuilder to create a new instance, then chain method calls to configure it.
//
// The typical usage pattern is:
//
//	builder := datalab.NewBuilder().WithSamples().AddPath("data.csv")
//	validatedBuilder, err := builder.Build(ctx)
//	if err != nil {
//		return err
//	}
//	ws, err := validatedBuilder.Open(ctx)
//	if err != nil {
//		return err
//	}
//	defer ws.Close()
type Builder struct {
	// paths contains regular file or directory paths
	paths []string
	// filesystems contains fs.FS instances
	filesystems []fs.FS
	// readers contains reader inputs
	readers []readerInput

	engineName string
	enginePath string
	samples    bool
	options    []Option

	// collectedPaths contains every file path after Build validation
	collectedPaths []string
	// fsFiles contains every supported file found in filesystems
	fsFiles []fsFile
	built   bool
}

// readerInput is an upload supplied as a reader
type readerInput struct {
	reader   io.Reader
	name     string
	category model.Category
}

type fsFile struct {
	fsys fs.FS
	path string
}

// NewBuilder creates a builder for an in-memory SQLite workspace with no inputs.
func NewBuilder() *Builder {
	return &Builder{}
}

// AddPath adds a regular file or directory path. Directories are searched
// recursively for supported files (.csv, .xlsx, .parquet and their
// compressed variants).
//
// Returns the builder for method chaining.
func (b *Builder) AddPath(path string) *Builder {
	b.paths = append(b.paths, path)
	return b
}

// AddPaths adds multiple regular file or directory paths.
//
// Returns the builder for method chaining.
func (b *Builder) AddPaths(paths ...string) *Builder {
	b.paths = append(b.paths, paths...)
	return b
}

// AddFS adds all supported files from an fs.FS filesystem, such as one
// created with go:embed.
//
// Returns the builder for method chaining.
func (b *Builder) AddFS(filesystem fs.FS) *Builder {
	b.filesystems = append(b.filesystems, filesystem)
	return b
}

// AddReader adds an upload read from r. name selects the format and
// compression by extension and names the resulting tables.
//
// Returns the builder for method chaining.
func (b *Builder) AddReader(r io.Reader, name string, category model.Category) *Builder {
	b.readers = append(b.readers, readerInput{reader: r, name: name, category: category})
	return b
}

// WithEngine selects the engine by name ("sqlite" or "duckdb") and its
// database path. An empty path opens an in-memory database.
//
// Returns the builder for method chaining.
func (b *Builder) WithEngine(name, path string) *Builder {
	b.engineName = name
	b.enginePath = path
	return b
}

// WithSamples loads the bundled sample tables before any other input.
//
// Returns the builder for method chaining.
func (b *Builder) WithSamples() *Builder {
	b.samples = true
	return b
}

// WithLogger sets the workspace logger.
//
// Returns the builder for method chaining.
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.options = append(b.options, WithLogger(logger))
	return b
}

// WithNotifier sets the workspace notifier.
//
// Returns the builder for method chaining.
func (b *Builder) WithNotifier(n Notifier) *Builder {
	b.options = append(b.options, WithNotifier(n))
	return b
}

// WithEncoding sets the character encoding of delimited uploads.
//
// Returns the builder for method chaining.
func (b *Builder) WithEncoding(enc Encoding) *Builder {
	b.options = append(b.options, WithEncoding(enc))
	return b
}

// WithReloadLock sets the lock Watch holds around each reload.
//
// Returns the builder for method chaining.
func (b *Builder) WithReloadLock(l sync.Locker) *Builder {
	b.options = append(b.options, WithReloadLock(l))
	return b
}

// Build validates all configured inputs and prepares the builder for Open.
// It checks the engine name, the existence and format of every path and the
// reader inputs, and collects supported files from directories and
// filesystems. A builder with no inputs is valid only when samples are enabled.
//
// Returns the same builder instance for method chaining, or an error if validation fails.
func (b *Builder) Build(ctx context.Context) (*Builder, error) {
	if !engineKnown(b.engineName) {
		return nil, fmt.Errorf("%w: %s", engine.ErrUnsupportedEngine, b.engineName)
	}
	if len(b.paths) == 0 && len(b.filesystems) == 0 && len(b.readers) == 0 && !b.samples {
		return nil, errors.New("at least one input must be provided")
	}

	v := newValidator()
	b.collectedPaths = nil
	b.fsFiles = nil

	for _, p := range b.paths {
		if err := v.validatePath(p); err != nil {
			return nil, err
		}
		paths, err := collectPaths(ctx, p)
		if err != nil {
			return nil, err
		}
		b.collectedPaths = append(b.collectedPaths, paths...)
	}

	for _, filesystem := range b.filesystems {
		if filesystem == nil {
			return nil, errors.New("FS cannot be nil")
		}
		files, err := collectFS(filesystem)
		if err != nil {
			return nil, fmt.Errorf("failed to process FS input: %w", err)
		}
		b.fsFiles = append(b.fsFiles, files...)
	}

	for _, r := range b.readers {
		if err := v.validateReader(r.reader, r.name); err != nil {
			return nil, err
		}
	}

	if !b.samples {
		collected := len(b.collectedPaths) + len(b.fsFiles) + len(b.readers)
		if err := v.validateFinalState(collected, b.paths); err != nil {
			return nil, err
		}
	}

	b.built = true
	return b, nil
}

// Open creates the engine, wraps it in a Workspace and loads the samples and
// every collected input as uploaded tables. This method can only be called
// after Build() has been successfully executed.
//
// The caller is responsible for closing the returned Workspace.
func (b *Builder) Open(ctx context.Context) (*Workspace, error) {
	if !b.built {
		return nil, errors.New("builder is not validated, did you call Build()?")
	}

	e, err := engine.Open(ctx, b.engineName, b.enginePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEngineUnavailable, err)
	}
	w := NewWorkspace(e, b.options...)

	if err := b.load(ctx, w); err != nil {
		if closeErr := w.Close(); closeErr != nil {
			return nil, errors.Join(err, closeErr)
		}
		return nil, err
	}
	return w, nil
}

func (b *Builder) load(ctx context.Context, w *Workspace) error {
	if b.samples {
		if err := w.LoadSamples(ctx); err != nil {
			return err
		}
	}
	for _, p := range b.collectedPaths {
		if _, err := w.LoadFile(ctx, p, model.CategoryUploaded); err != nil {
			return err
		}
	}
	for _, f := range b.fsFiles {
		if err := loadFSFile(ctx, w, f); err != nil {
			return err
		}
	}
	for _, r := range b.readers {
		if _, err := w.LoadReader(ctx, r.reader, r.name, r.category); err != nil {
			return err
		}
	}
	return nil
}

func loadFSFile(ctx context.Context, w *Workspace, f fsFile) error {
	file, err := f.fsys.Open(f.path)
	if err != nil {
		return fmt.Errorf("failed to open FS file: %w", err)
	}
	defer file.Close()

	_, err = w.LoadReader(ctx, file, path.Base(f.path), model.CategoryUploaded)
	return err
}

func engineKnown(name string) bool {
	if name == "" {
		return true
	}
	for _, n := range engine.Names() {
		if n == name {
			return true
		}
	}
	return false
}

// collectPaths expands a directory into its supported files
func collectPaths(ctx context.Context, root string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("failed to stat path %s: %w", root, err)
	}
	if !info.IsDir() {
		return []string{root}, nil
	}

	var paths []string
	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if !d.IsDir() && IsSupportedFile(p) {
			paths = append(paths, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk directory %s: %w", root, err)
	}
	return paths, nil
}

// collectFS finds every supported file in filesystem
func collectFS(filesystem fs.FS) ([]fsFile, error) {
	var files []fsFile
	err := fs.WalkDir(filesystem, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && IsSupportedFile(p) {
			files = append(files, fsFile{fsys: filesystem, path: p})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk filesystem: %w", err)
	}
	if len(files) == 0 {
		return nil, errors.New("no supported files found in filesystem")
	}
	return files, nil
}
