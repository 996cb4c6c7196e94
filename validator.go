package datalab

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// validator handles validation logic for Builder
type validator struct{}

// newValidator creates a new validator instance
func newValidator() *validator {
	return &validator{}
}

// validatePath validates a single file or directory path
func (v *validator) validatePath(path string) error {
	if strings.TrimSpace(path) == "" {
		return errors.New("path cannot be empty")
	}
	if err := ValidatePath(path); err != nil {
		return err
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("failed to load file: path does not exist: %s", path)
		}
		return fmt.Errorf("failed to stat path %s: %w", path, err)
	}

	if !info.IsDir() && !IsSupportedFile(path) {
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
	return nil
}

// validateReader validates a reader input
func (v *validator) validateReader(r io.Reader, name string) error {
	if r == nil {
		return errors.New("reader cannot be nil")
	}
	if name == "" {
		return errors.New("file name must be specified for reader input")
	}
	if !IsSupportedFile(name) {
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, name)
	}
	if sr, ok := r.(*strings.Reader); ok && sr.Len() == 0 {
		return fmt.Errorf("empty data: %s", name)
	}
	return nil
}

// validateFinalState performs final validation to ensure we have valid inputs
func (v *validator) validateFinalState(collected int, originalPaths []string) error {
	if collected > 0 {
		return nil
	}
	for _, path := range originalPaths {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			return errors.New("no supported files found in directory")
		}
	}
	return errors.New("no valid input files found")
}

// ValidatePath rejects paths that escape their base through "..", and
// absolute paths into system directories.
func ValidatePath(path string) error {
	if strings.Contains(filepath.ToSlash(path), "../") || strings.HasSuffix(path, "..") {
		return fmt.Errorf("path traversal is not allowed: %s", path)
	}

	clean := filepath.Clean(path)
	if filepath.IsAbs(clean) {
		for _, prefix := range []string{"/etc/", "/proc/", "/sys/", "/dev/"} {
			if strings.HasPrefix(filepath.ToSlash(clean)+"/", prefix) {
				return fmt.Errorf("access to system directory is not allowed: %s", path)
			}
		}
	}
	return nil
}
