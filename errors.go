package datalab

import (
	"errors"
	"fmt"
	"strings"

	"github.com/nao1215/datalab/domain/model"
	"github.com/nao1215/datalab/sqlrewrite"
)

// Predefined errors. Every failure reported by a Workspace wraps one of these.
var (
	// ErrMalformedInput indicates that uploaded text has fewer than two usable lines
	ErrMalformedInput = model.ErrMalformedInput

	// ErrEngineUnavailable indicates that no live engine handle exists
	ErrEngineUnavailable = errors.New("datalab: engine unavailable")

	// ErrLoadFailure indicates that creating or filling a table failed
	ErrLoadFailure = errors.New("datalab: load failure")

	// ErrRefreshFailure indicates that schema introspection failed
	ErrRefreshFailure = errors.New("datalab: refresh failure")

	// ErrRewriteFailure indicates that a drill-down query could not be built
	ErrRewriteFailure = sqlrewrite.ErrRewriteFailure

	// ErrUnsupportedFormat indicates an upload whose format cannot be read
	ErrUnsupportedFormat = errors.New("datalab: unsupported file format")

	// ErrNoTables indicates that the catalog holds no tables
	ErrNoTables = errors.New("datalab: no tables found in database")

	// ErrChartNotFound indicates an unknown dashboard chart ID
	ErrChartNotFound = errors.New("datalab: chart not found")
)

// LoadError reports a failed bulk load. It matches ErrLoadFailure.
type LoadError struct {
	// Source is the upload identifier, usually a file name.
	Source string
	// Message is the underlying engine message.
	Message string
	// Err is the underlying error.
	Err error
}

// Error implements error.
func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to load %s: %s", e.Source, e.Message)
}

// Is reports whether target is ErrLoadFailure.
func (e *LoadError) Is(target error) bool {
	return target == ErrLoadFailure
}

// Unwrap returns the underlying error.
func (e *LoadError) Unwrap() error {
	return e.Err
}

func newLoadError(source string, err error) *LoadError {
	return &LoadError{Source: source, Message: err.Error(), Err: err}
}

// ErrorContext provides context for where an error occurred
type ErrorContext struct {
	Operation string
	Source    string
	TableName string
	Details   string
}

// NewErrorContext creates a new error context
func NewErrorContext(operation, source string) *ErrorContext {
	return &ErrorContext{
		Operation: operation,
		Source:    source,
	}
}

// WithTable adds table context to the error
func (ec *ErrorContext) WithTable(tableName string) *ErrorContext {
	ec.TableName = tableName
	return ec
}

// WithDetails adds details to the error context
func (ec *ErrorContext) WithDetails(details string) *ErrorContext {
	ec.Details = details
	return ec
}

// Error creates a formatted error with context
func (ec *ErrorContext) Error(baseErr error) error {
	var parts []string
	parts = append(parts, fmt.Sprintf("datalab: %s failed", ec.Operation))

	if ec.Source != "" {
		parts = append(parts, "source: "+ec.Source)
	}

	if ec.TableName != "" {
		parts = append(parts, "table: "+ec.TableName)
	}

	if ec.Details != "" {
		parts = append(parts, "details: "+ec.Details)
	}

	context := strings.Join(parts, ", ")
	if baseErr != nil {
		return fmt.Errorf("%s: %w", context, baseErr)
	}
	return fmt.Errorf("%s", context)
}
